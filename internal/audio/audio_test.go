package audio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"historymaker/internal/blob"
	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/store"
	"historymaker/internal/tts"
)

type fakeGateway struct {
	invokeText string
	invokeErr  error
}

func (f *fakeGateway) Invoke(_ context.Context, _ llm.Request) (string, error) {
	return f.invokeText, f.invokeErr
}

func (f *fakeGateway) InvokeJSON(_ context.Context, _ llm.Request, out any) error {
	return json.Unmarshal([]byte(f.invokeText), out)
}

// fakeSynth records every chunk and returns a fixed-duration alignment.
type fakeSynth struct {
	chunks []string
	failAt int
	perDur float64
}

func (f *fakeSynth) Synthesize(_ context.Context, text, _ string) (*tts.ChunkResult, error) {
	f.chunks = append(f.chunks, text)
	if f.failAt > 0 && len(f.chunks) == f.failAt {
		return nil, errors.New("synthesis failed")
	}
	return &tts.ChunkResult{
		Audio: []byte("chunk-audio;"),
		Alignment: tts.Alignment{
			Characters: []string{"h", "i"},
			StartTimes: []float64{0, f.perDur / 2},
			EndTimes:   []float64{f.perDur / 2, f.perDur},
		},
	}, nil
}

func newTestService(t *testing.T) (*Service, *store.MemoryStore, *fakeSynth, *blob.MemoryStore, model.User, model.Script) {
	t.Helper()
	st := store.NewMemoryStore()
	user, err := st.CreateUser("narrator@example.com")
	if err != nil {
		t.Fatal(err)
	}
	series, _ := st.CreateSeries(user.ID, "The Roman Empire")
	video, _ := st.CreateVideo(user.ID, model.Video{SeriesID: series.ID, Title: "Part 1"})
	script, _ := st.UpsertScript(user.ID, model.Script{VideoID: video.ID, GeneratedScript: "Rome."})

	settings := st.GetSettings(user.ID)
	settings.ElevenLabsKey = "el-key"
	settings.BlobBucket = "test-bucket"
	if err := st.SaveSettings(settings); err != nil {
		t.Fatal(err)
	}

	synth := &fakeSynth{perDur: 2.0}
	blobStore := blob.NewMemoryStore()

	svc := NewService(&fakeGateway{invokeText: "[dramatic] Rome."}, st, Config{
		ModelID:      "eleven_v3",
		OutputFormat: "mp3_44100_128",
		MaxChunkSize: 4500,
	})
	svc.newSynth = func(string) Synthesizer { return synth }
	svc.newBlob = func(context.Context, model.UserSettings) (blob.Store, error) { return blobStore, nil }

	return svc, st, synth, blobStore, user, script
}

func TestTag(t *testing.T) {
	svc, _, _, _, user, _ := newTestService(t)
	tagged, err := svc.Tag(context.Background(), user.ID, "Rome fell.")
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if tagged != "[dramatic] Rome." {
		t.Errorf("tagged = %q", tagged)
	}
}

func TestGenerateTakeSingleChunk(t *testing.T) {
	svc, _, synth, _, user, script := newTestService(t)

	take, err := svc.GenerateTake(context.Background(), user.ID, TakeRequest{
		ScriptID: script.ID,
		Text:     "A short script.",
		VoiceID:  "voice-1",
	})
	if err != nil {
		t.Fatalf("GenerateTake: %v", err)
	}
	if len(synth.chunks) != 1 {
		t.Errorf("expected 1 chunk, got %d", len(synth.chunks))
	}
	if !strings.HasPrefix(take.AudioDataURL, "data:audio/mpeg;base64,") {
		t.Errorf("data url = %q", take.AudioDataURL[:40])
	}
	if len(take.Timestamps) == 0 {
		t.Error("expected timestamps")
	}
}

func TestGenerateTakeLongTextChunksAndOffsets(t *testing.T) {
	svc, _, synth, _, user, script := newTestService(t)

	// ~9000 characters of sentences forces at least two chunks.
	sentence := "The legions marched north through the cold provinces of Gaul. "
	text := strings.Repeat(sentence, 9000/len(sentence)+1)

	take, err := svc.GenerateTake(context.Background(), user.ID, TakeRequest{
		ScriptID: script.ID,
		Text:     text,
		VoiceID:  "voice-1",
	})
	if err != nil {
		t.Fatalf("GenerateTake: %v", err)
	}
	if len(synth.chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(synth.chunks))
	}
	for i, chunk := range synth.chunks {
		if len(chunk) > tts.MaxTextLength {
			t.Errorf("chunk %d exceeds hard limit: %d chars", i, len(chunk))
		}
	}

	// Later chunks' timestamps carry the cumulative offset.
	last := take.Timestamps[len(take.Timestamps)-1]
	wantMin := float64(len(synth.chunks)-1) * synth.perDur
	if last.EndTime < wantMin {
		t.Errorf("last timestamp %f lacks cumulative offset (want >= %f)", last.EndTime, wantMin)
	}
}

func TestGenerateTakeAbortsOnChunkFailure(t *testing.T) {
	svc, _, synth, _, user, script := newTestService(t)
	synth.failAt = 2

	sentence := "The legions marched north through the cold provinces of Gaul. "
	text := strings.Repeat(sentence, 9000/len(sentence)+1)

	_, err := svc.GenerateTake(context.Background(), user.ID, TakeRequest{
		ScriptID: script.ID,
		Text:     text,
		VoiceID:  "voice-1",
	})
	if err == nil {
		t.Fatal("expected take to abort on chunk failure")
	}
	if !strings.Contains(err.Error(), "chunk 2") {
		t.Errorf("error should name the failed chunk: %v", err)
	}
}

func TestGenerateTakeRequiresKey(t *testing.T) {
	svc, st, _, _, user, script := newTestService(t)
	settings := st.GetSettings(user.ID)
	settings.ElevenLabsKey = ""
	_ = st.SaveSettings(settings)

	_, err := svc.GenerateTake(context.Background(), user.ID, TakeRequest{
		ScriptID: script.ID, Text: "x", VoiceID: "v",
	})
	if !errors.Is(err, model.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGenerateTakeDefaultVoice(t *testing.T) {
	svc, st, _, _, user, script := newTestService(t)
	settings := st.GetSettings(user.ID)
	settings.DefaultVoiceID = "default-voice"
	_ = st.SaveSettings(settings)

	take, err := svc.GenerateTake(context.Background(), user.ID, TakeRequest{
		ScriptID: script.ID, Text: "x",
	})
	if err != nil {
		t.Fatalf("GenerateTake: %v", err)
	}
	if take.VoiceID != "default-voice" {
		t.Errorf("voice = %q", take.VoiceID)
	}
}

func TestGenerateTakeRequiresVoice(t *testing.T) {
	svc, _, _, _, user, script := newTestService(t)
	_, err := svc.GenerateTake(context.Background(), user.ID, TakeRequest{ScriptID: script.ID, Text: "x"})
	if !errors.Is(err, model.ErrInvalid) {
		t.Errorf("expected ErrInvalid for missing voice, got %v", err)
	}
}

func TestSaveTake(t *testing.T) {
	svc, st, _, blobStore, user, script := newTestService(t)

	dataURL := "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("audio-bytes"))
	saved, err := svc.SaveTake(context.Background(), user.ID, SaveRequest{
		ScriptID:     script.ID,
		TaggedText:   "[calm] Rome.",
		VoiceID:      "voice-1",
		Stability:    0.5,
		AudioDataURL: dataURL,
		Timestamps:   []model.Timestamp{{Text: "Rome", StartTime: 0, EndTime: 1}},
	})
	if err != nil {
		t.Fatalf("SaveTake: %v", err)
	}
	if saved.URL == "" {
		t.Error("saved take has no URL")
	}
	if !strings.Contains(saved.URL, fmt.Sprintf("/audio/%s.mp3", saved.ID)) {
		t.Errorf("url does not follow the object path scheme: %q", saved.URL)
	}
	if blobStore.Len() != 1 {
		t.Errorf("blob store has %d objects", blobStore.Len())
	}

	audios, _ := st.ListAudios(user.ID, script.ID)
	if len(audios) != 1 || audios[0].TaggedText != "[calm] Rome." {
		t.Errorf("audios = %+v", audios)
	}

	video, _ := st.GetVideo(user.ID, script.VideoID)
	if video.Status != model.StatusAudio {
		t.Errorf("video status = %s", video.Status)
	}
}

// failingBlob rejects every upload.
type failingBlob struct{}

func (failingBlob) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unreachable")
}
func (failingBlob) Get(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("bucket unreachable")
}
func (failingBlob) Close() error { return nil }

func TestSaveTakeFailedUploadLeavesNoRow(t *testing.T) {
	svc, st, _, _, user, script := newTestService(t)
	svc.newBlob = func(context.Context, model.UserSettings) (blob.Store, error) {
		return failingBlob{}, nil
	}

	_, err := svc.SaveTake(context.Background(), user.ID, SaveRequest{
		ScriptID:     script.ID,
		AudioDataURL: "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("audio-bytes")),
	})
	if err == nil {
		t.Fatal("expected upload failure")
	}

	audios, _ := st.ListAudios(user.ID, script.ID)
	if len(audios) != 0 {
		t.Errorf("failed save left %d rows behind", len(audios))
	}
}

func TestSaveTakeRequiresBucket(t *testing.T) {
	svc, st, _, _, user, script := newTestService(t)
	settings := st.GetSettings(user.ID)
	settings.BlobBucket = ""
	_ = st.SaveSettings(settings)

	_, err := svc.SaveTake(context.Background(), user.ID, SaveRequest{
		ScriptID:     script.ID,
		AudioDataURL: "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("x")),
	})
	if !errors.Is(err, model.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDecodeDataURL(t *testing.T) {
	data, err := decodeDataURL("data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString([]byte("hello")))
	if err != nil {
		t.Fatalf("decodeDataURL: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	if _, err := decodeDataURL(""); !errors.Is(err, model.ErrInvalid) {
		t.Errorf("empty: %v", err)
	}
	if _, err := decodeDataURL("data:audio/mpeg;base64,!!!"); !errors.Is(err, model.ErrInvalid) {
		t.Errorf("bad base64: %v", err)
	}
}
