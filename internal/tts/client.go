// Package tts talks to the ElevenLabs text-to-dialogue endpoint and turns
// its character-level alignments into the token timestamps the rest of the
// pipeline works with.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"historymaker/internal/model"
)

const (
	elevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	defaultTimeout    = 120 * time.Second

	// MaxTextLength is the hard upstream limit per synthesis request.
	MaxTextLength = 5000
)

type dialogueInput struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}

type dialogueRequest struct {
	Inputs  []dialogueInput `json:"inputs"`
	ModelID string          `json:"model_id"`
}

type dialogueResponse struct {
	AudioBase64         string     `json:"audio_base64"`
	Alignment           *Alignment `json:"alignment"`
	NormalizedAlignment *Alignment `json:"normalized_alignment"`
}

// Client issues one synthesis request per text chunk. It is constructed
// per call with the requesting user's API key.
type Client struct {
	apiKey       string
	modelID      string
	outputFormat string
	httpClient   *http.Client
	baseURL      string
}

type Options struct {
	ModelID      string
	OutputFormat string
}

func NewClient(apiKey string, opts Options) *Client {
	return &Client{
		apiKey:       apiKey,
		modelID:      opts.ModelID,
		outputFormat: opts.OutputFormat,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		baseURL:      elevenLabsBaseURL,
	}
}

// ChunkResult is the synthesis output for one chunk of text.
type ChunkResult struct {
	Audio     []byte
	Alignment Alignment
}

// Synthesize renders one chunk of text with one voice. The text must fit
// the upstream limit; callers chunk long scripts first.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) (*ChunkResult, error) {
	if len(text) > MaxTextLength {
		return nil, fmt.Errorf("%w: text exceeds %d characters", model.ErrInvalid, MaxTextLength)
	}

	reqBody := dialogueRequest{
		Inputs:  []dialogueInput{{Text: text, VoiceID: voiceID}},
		ModelID: c.modelID,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-dialogue/with-timestamps?output_format=%s",
		c.baseURL, url.QueryEscape(c.outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewUpstreamError("elevenlabs", resp.StatusCode, body)
	}

	var dlgResp dialogueResponse
	if err := json.Unmarshal(body, &dlgResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(dlgResp.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs: empty audio response")
	}

	alignment := dlgResp.NormalizedAlignment
	if alignment == nil || len(alignment.Characters) == 0 {
		alignment = dlgResp.Alignment
	}
	if alignment == nil {
		return nil, fmt.Errorf("elevenlabs: response missing alignment")
	}

	return &ChunkResult{
		Audio:     audio,
		Alignment: *alignment,
	}, nil
}

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}
