// Package videogen animates still images into short clips with the Veo
// video model through its long-running predict API.
package videogen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"historymaker/internal/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	submitTimeout  = 60 * time.Second

	negativePrompt = "text, watermark, logo, modern objects, cars, phones, low quality, blurry"
)

// Camera movement suffixes appended to the motion prompt.
var cameraMovements = map[string]string{
	"drifting_still": "The camera holds an almost static shot with the slightest drift, as if handheld on a tripod.",
	"dolly_in":       "The camera slowly dollies in toward the subject.",
	"dolly_out":      "The camera slowly dollies out, revealing more of the scene.",
	"pan_left":       "The camera pans slowly to the left.",
	"pan_right":      "The camera pans slowly to the right.",
	"zoom_in":        "The camera zooms in gradually.",
	"zoom_out":       "The camera zooms out gradually.",
}

const defaultMovement = "drifting_still"

type SubmitRequest struct {
	Prompt         string
	CameraMovement string
	ImageData      []byte
	ImageMIMEType  string
	Model          string
	AspectRatio    string
	DurationSec    int
}

// OperationState is a point-in-time view of a generation operation.
type OperationState struct {
	Done     bool
	VideoURI string
	Err      error
}

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: submitTimeout},
		baseURL:    defaultBaseURL,
	}
}

// Submit starts a video generation and returns the operation name to poll.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", model.ErrInvalid)
	}
	if req.Model == "" {
		return "", fmt.Errorf("%w: model is required", model.ErrInvalid)
	}

	movement := req.CameraMovement
	if _, ok := cameraMovements[movement]; !ok {
		movement = defaultMovement
	}
	prompt := strings.TrimSpace(req.Prompt) + " " + cameraMovements[movement]

	instance := map[string]any{"prompt": prompt}
	if len(req.ImageData) > 0 {
		mime := req.ImageMIMEType
		if mime == "" {
			mime = "image/png"
		}
		instance["image"] = map[string]any{
			"bytesBase64Encoded": base64.StdEncoding.EncodeToString(req.ImageData),
			"mimeType":           mime,
		}
	}

	aspect := req.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}
	duration := req.DurationSec
	if duration <= 0 {
		duration = 8
	}

	payload := map[string]any{
		"instances": []any{instance},
		"parameters": map[string]any{
			"aspectRatio":     aspect,
			"durationSeconds": duration,
			"negativePrompt":  negativePrompt,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", model.NewUpstreamError("veo", resp.StatusCode, respBody)
	}

	var opResp struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(respBody, &opResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if opResp.Name == "" {
		return "", fmt.Errorf("no operation name in response")
	}
	slog.Debug("video generation submitted", "operation", opResp.Name)
	return opResp.Name, nil
}

// GetOperation polls a generation operation's state.
func (c *Client) GetOperation(ctx context.Context, operationName string) (OperationState, error) {
	if c.apiKey == "" {
		return OperationState{}, fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}

	endpoint := fmt.Sprintf("%s/%s", c.baseURL, operationName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return OperationState{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return OperationState{}, fmt.Errorf("poll operation: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return OperationState{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return OperationState{}, model.NewUpstreamError("veo", resp.StatusCode, respBody)
	}

	var op struct {
		Done  bool `json:"done"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Response struct {
			GenerateVideoResponse struct {
				GeneratedSamples []struct {
					Video struct {
						URI string `json:"uri"`
					} `json:"video"`
				} `json:"generatedSamples"`
			} `json:"generateVideoResponse"`
		} `json:"response"`
	}
	if err := json.Unmarshal(respBody, &op); err != nil {
		return OperationState{}, fmt.Errorf("parse response: %w", err)
	}

	state := OperationState{Done: op.Done}
	if op.Error != nil {
		state.Err = fmt.Errorf("video generation failed: %s", op.Error.Message)
		return state, nil
	}
	if op.Done {
		samples := op.Response.GenerateVideoResponse.GeneratedSamples
		if len(samples) == 0 || samples[0].Video.URI == "" {
			state.Err = fmt.Errorf("operation finished without a video")
			return state, nil
		}
		state.VideoURI = samples[0].Video.URI
	}
	return state, nil
}

// Download fetches the finished video's bytes. Veo file URIs require the
// API key as a query parameter.
func (c *Client) Download(ctx context.Context, videoURI string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}

	u, err := url.Parse(videoURI)
	if err != nil {
		return nil, fmt.Errorf("parse video uri: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewUpstreamError("veo", resp.StatusCode, nil)
	}
	return io.ReadAll(resp.Body)
}

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// CameraMovements lists the supported movement names.
func CameraMovements() []string {
	names := make([]string, 0, len(cameraMovements))
	for name := range cameraMovements {
		names = append(names, name)
	}
	return names
}
