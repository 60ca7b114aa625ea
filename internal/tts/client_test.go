package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"historymaker/internal/model"
)

func mockDialogueResponse(audio []byte, text string) []byte {
	a := charAlignment(text, 0.05)
	resp := dialogueResponse{
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		Alignment:   &a,
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestSynthesize(t *testing.T) {
	fakeAudio := []byte("fake audio data")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing or incorrect API key header")
		}
		if r.URL.Path != "/text-to-dialogue/with-timestamps" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "mp3_44100_128" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}

		var req dialogueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Inputs) != 1 || req.Inputs[0].VoiceID != "test-voice" {
			t.Errorf("inputs = %+v", req.Inputs)
		}
		if req.ModelID != "eleven_v3" {
			t.Errorf("model_id = %q", req.ModelID)
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(mockDialogueResponse(fakeAudio, req.Inputs[0].Text))
	}))
	defer server.Close()

	client := NewClient("test-key", Options{ModelID: "eleven_v3", OutputFormat: "mp3_44100_128"})
	client.SetBaseURL(server.URL)

	result, err := client.Synthesize(context.Background(), "Hello world", "test-voice")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if string(result.Audio) != string(fakeAudio) {
		t.Errorf("audio = %q", result.Audio)
	}
	if len(result.Alignment.Characters) != len("Hello world") {
		t.Errorf("alignment characters = %d", len(result.Alignment.Characters))
	}
}

func TestSynthesizePrefersNormalizedAlignment(t *testing.T) {
	raw := charAlignment("raw", 0.05)
	norm := charAlignment("normalized", 0.05)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := dialogueResponse{
			AudioBase64:         base64.StdEncoding.EncodeToString([]byte("audio")),
			Alignment:           &raw,
			NormalizedAlignment: &norm,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient("test-key", Options{ModelID: "eleven_v3"})
	client.SetBaseURL(server.URL)

	result, err := client.Synthesize(context.Background(), "anything", "v")
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if len(result.Alignment.Characters) != len("normalized") {
		t.Errorf("expected normalized alignment, got %d characters", len(result.Alignment.Characters))
	}
}

func TestSynthesizeRejectsOversizedText(t *testing.T) {
	client := NewClient("test-key", Options{})

	_, err := client.Synthesize(context.Background(), strings.Repeat("a", MaxTextLength+1), "v")
	if !errors.Is(err, model.ErrInvalid) {
		t.Errorf("error = %v, want ErrInvalid", err)
	}
}

func TestSynthesizeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	client := NewClient("bad-key", Options{})
	client.SetBaseURL(server.URL)

	_, err := client.Synthesize(context.Background(), "hello", "v")
	var upstream *model.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want UpstreamError", err)
	}
	if upstream.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", upstream.Status)
	}
}

func TestSynthesizeEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := charAlignment("x", 0.05)
		_ = json.NewEncoder(w).Encode(dialogueResponse{AudioBase64: "", Alignment: &a})
	}))
	defer server.Close()

	client := NewClient("test-key", Options{})
	client.SetBaseURL(server.URL)

	if _, err := client.Synthesize(context.Background(), "x", "v"); err == nil {
		t.Error("expected error for empty audio")
	}
}

func TestVoiceByID(t *testing.T) {
	v, ok := VoiceByID("onwK4e9ZLuTAKqWW03F9")
	if !ok || v.Name != "Daniel" {
		t.Errorf("VoiceByID = %+v, ok=%v", v, ok)
	}
	if _, ok := VoiceByID("nope"); ok {
		t.Error("expected miss for unknown voice id")
	}
}
