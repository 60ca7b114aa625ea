package videogen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"historymaker/internal/model"
)

func TestSubmit(t *testing.T) {
	var gotBody map[string]any
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("expected api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"name": "models/veo/operations/op-123"}`)
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.SetBaseURL(server.URL)

	opName, err := client.Submit(context.Background(), SubmitRequest{
		Prompt:         "A cavalry charge across a misty field",
		CameraMovement: "dolly_in",
		ImageData:      []byte("fake-image"),
		ImageMIMEType:  "image/jpeg",
		Model:          "veo-3.1-fast-generate-preview",
		AspectRatio:    "16:9",
		DurationSec:    8,
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if opName != "models/veo/operations/op-123" {
		t.Errorf("operation name = %q", opName)
	}
	if !strings.Contains(gotPath, "veo-3.1-fast-generate-preview:predictLongRunning") {
		t.Errorf("unexpected path: %s", gotPath)
	}

	instances := gotBody["instances"].([]any)
	instance := instances[0].(map[string]any)
	prompt := instance["prompt"].(string)
	if !strings.Contains(prompt, "dollies in") {
		t.Errorf("prompt missing camera movement: %q", prompt)
	}
	if _, ok := instance["image"]; !ok {
		t.Error("expected image in instance")
	}
	params := gotBody["parameters"].(map[string]any)
	if params["aspectRatio"] != "16:9" {
		t.Errorf("aspectRatio = %v", params["aspectRatio"])
	}
	if params["durationSeconds"].(float64) != 8 {
		t.Errorf("durationSeconds = %v", params["durationSeconds"])
	}
	if params["negativePrompt"] == "" {
		t.Error("expected negative prompt")
	}
}

func TestSubmitUnknownMovementFallsBack(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"name": "op"}`)
	}))
	defer server.Close()

	client := NewClient("k")
	client.SetBaseURL(server.URL)

	_, err := client.Submit(context.Background(), SubmitRequest{
		Prompt: "a scene", CameraMovement: "barrel_roll", Model: "veo",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	instance := gotBody["instances"].([]any)[0].(map[string]any)
	if !strings.Contains(instance["prompt"].(string), "slightest drift") {
		t.Errorf("expected default movement suffix, got %q", instance["prompt"])
	}
}

func TestSubmitWithoutKey(t *testing.T) {
	client := NewClient("")
	_, err := client.Submit(context.Background(), SubmitRequest{Prompt: "x", Model: "veo"})
	if !errors.Is(err, model.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestGetOperationPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": false}`)
	}))
	defer server.Close()

	client := NewClient("k")
	client.SetBaseURL(server.URL)

	state, err := client.GetOperation(context.Background(), "models/veo/operations/op-1")
	if err != nil {
		t.Fatalf("GetOperation returned error: %v", err)
	}
	if state.Done {
		t.Error("expected operation to be pending")
	}
}

func TestGetOperationDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"done": true,
			"response": {"generateVideoResponse": {"generatedSamples": [
				{"video": {"uri": "https://files.example/video.mp4"}}
			]}}
		}`)
	}))
	defer server.Close()

	client := NewClient("k")
	client.SetBaseURL(server.URL)

	state, err := client.GetOperation(context.Background(), "op")
	if err != nil {
		t.Fatalf("GetOperation returned error: %v", err)
	}
	if !state.Done || state.VideoURI != "https://files.example/video.mp4" {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestGetOperationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": true, "error": {"message": "safety violation"}}`)
	}))
	defer server.Close()

	client := NewClient("k")
	client.SetBaseURL(server.URL)

	state, err := client.GetOperation(context.Background(), "op")
	if err != nil {
		t.Fatalf("GetOperation returned error: %v", err)
	}
	if state.Err == nil || !strings.Contains(state.Err.Error(), "safety violation") {
		t.Errorf("expected operation error, got %v", state.Err)
	}
}

func TestGetOperationDoneWithoutVideo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"done": true, "response": {}}`)
	}))
	defer server.Close()

	client := NewClient("k")
	client.SetBaseURL(server.URL)

	state, err := client.GetOperation(context.Background(), "op")
	if err != nil {
		t.Fatalf("GetOperation returned error: %v", err)
	}
	if state.Err == nil {
		t.Error("expected error when done without a video")
	}
}

func TestDownloadAppendsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("expected key query parameter")
		}
		_, _ = w.Write([]byte("mp4-bytes"))
	}))
	defer server.Close()

	client := NewClient("test-key")
	data, err := client.Download(context.Background(), server.URL+"/files/video.mp4")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Errorf("unexpected data: %q", data)
	}
}
