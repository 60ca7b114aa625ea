package blob

import (
	"context"
	"errors"
	"testing"

	"historymaker/internal/model"
)

func TestObjectPath(t *testing.T) {
	got := ObjectPath("u1", "s1", "v1", AssetAudio, "a1", "mp3")
	want := "u1/series/s1/videos/v1/audio/a1.mp3"
	if got != want {
		t.Errorf("ObjectPath = %q, want %q", got, want)
	}

	// Leading dot on the extension is tolerated.
	got = ObjectPath("u1", "s1", "v1", AssetImages, "img", ".jpg")
	want = "u1/series/s1/videos/v1/images/img.jpg"
	if got != want {
		t.Errorf("ObjectPath = %q, want %q", got, want)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"mp3_44100_128": "mp3",
		"audio/mpeg":    "mp3",
		"pcm_24000":     "wav",
		"image/jpeg":    "jpg",
		"image/png":     "png",
		"video/mp4":     "mp4",
		"unknown/x":     "bin",
	}
	for in, want := range cases {
		if got := ExtensionFor(in); got != want {
			t.Errorf("ExtensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	if got := ContentTypeFor("mp3_44100_128"); got != "audio/mpeg" {
		t.Errorf("ContentTypeFor(mp3_44100_128) = %q", got)
	}
	if got := ContentTypeFor("pcm_24000"); got != "audio/wav" {
		t.Errorf("ContentTypeFor(pcm_24000) = %q", got)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	url, err := store.Put(ctx, "u1/series/s1/videos/v1/audio/a1.mp3", []byte("bytes"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if url == "" {
		t.Fatal("expected a URL")
	}

	data, contentType, err := store.Get(ctx, "u1/series/s1/videos/v1/audio/a1.mp3")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(data) != "bytes" || contentType != "audio/mpeg" {
		t.Errorf("got %q %q", data, contentType)
	}
}

func TestMemoryStoreMissing(t *testing.T) {
	store := NewMemoryStore()
	_, _, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	src := []byte("original")
	_, _ = store.Put(ctx, "p", src, "text/plain")
	src[0] = 'X'

	data, _, _ := store.Get(ctx, "p")
	if string(data) != "original" {
		t.Errorf("stored data was mutated: %q", data)
	}
}
