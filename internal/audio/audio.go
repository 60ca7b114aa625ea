// Package audio runs the voice-over stage: tagging a script for delivery,
// rendering takes with text-to-speech, and saving the chosen take to
// object storage with its word timestamps.
package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"historymaker/internal/blob"
	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/store"
	"historymaker/internal/tts"
	"historymaker/pkg/prompts"
)

// Synthesizer renders one chunk of text as speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (*tts.ChunkResult, error)
}

// Take is one unsaved rendering: audio as a data URL plus timestamps. It
// lives client-side until saved.
type Take struct {
	AudioDataURL string            `json:"audio_data_url"`
	Timestamps   []model.Timestamp `json:"timestamps"`
	VoiceID      string            `json:"voice_id"`
	Text         string            `json:"text"`
}

type TakeRequest struct {
	ScriptID  string  `json:"script_id"`
	Text      string  `json:"text"`
	VoiceID   string  `json:"voice_id"`
	Stability float64 `json:"stability"`
}

type SaveRequest struct {
	ScriptID     string            `json:"script_id"`
	TaggedText   string            `json:"tagged_text"`
	VoiceID      string            `json:"voice_id"`
	Stability    float64           `json:"stability"`
	AudioDataURL string            `json:"audio_data_url"`
	Timestamps   []model.Timestamp `json:"timestamps"`
}

type Config struct {
	ModelID      string
	OutputFormat string
	MaxChunkSize int
}

type Service struct {
	gateway llm.Gateway
	store   *store.MemoryStore
	cfg     Config

	// Swappable in tests.
	newSynth func(apiKey string) Synthesizer
	newBlob  func(ctx context.Context, settings model.UserSettings) (blob.Store, error)
}

func NewService(gateway llm.Gateway, st *store.MemoryStore, cfg Config) *Service {
	s := &Service{gateway: gateway, store: st, cfg: cfg}
	s.newSynth = func(apiKey string) Synthesizer {
		return tts.NewClient(apiKey, tts.Options{ModelID: cfg.ModelID, OutputFormat: cfg.OutputFormat})
	}
	s.newBlob = func(ctx context.Context, settings model.UserSettings) (blob.Store, error) {
		return blob.NewGCSStore(ctx, settings.BlobBucket, settings.BlobPublicURL)
	}
	return s
}

// Tag adds delivery tags to a script for text-to-speech rendering.
func (s *Service) Tag(ctx context.Context, userID, script string) (string, error) {
	if strings.TrimSpace(script) == "" {
		return "", fmt.Errorf("%w: script is required", model.ErrInvalid)
	}

	overrides := s.store.GetSettings(userID).PromptOverrides
	tagged, err := s.gateway.Invoke(ctx, llm.Request{
		Tier:   llm.TierFast,
		System: prompts.Resolve(prompts.AudioTaggingSystem, overrides),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: prompts.Fill(prompts.Resolve(prompts.AudioTaggingUser, overrides), map[string]string{"script": script}),
		}},
		MaxTokens: 8192,
	})
	if err != nil {
		return "", fmt.Errorf("tag script: %w", err)
	}
	return strings.TrimSpace(tagged), nil
}

// GenerateTake renders the full text as one take. Long texts are split at
// sentence boundaries and synthesized chunk by chunk; alignments are merged
// with cumulative offsets so timestamps span the whole take. Any chunk
// failure aborts the take.
func (s *Service) GenerateTake(ctx context.Context, userID string, req TakeRequest) (Take, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Take{}, fmt.Errorf("%w: text is required", model.ErrInvalid)
	}
	if _, err := s.store.GetScriptByID(userID, req.ScriptID); err != nil {
		return Take{}, err
	}

	settings := s.store.GetSettings(userID)
	if settings.ElevenLabsKey == "" {
		return Take{}, fmt.Errorf("%w: elevenlabs api key not set", model.ErrNotConfigured)
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = settings.DefaultVoiceID
	}
	if voiceID == "" {
		return Take{}, fmt.Errorf("%w: voice id is required", model.ErrInvalid)
	}

	synth := s.newSynth(settings.ElevenLabsKey)
	chunks := tts.SplitText(req.Text, s.cfg.MaxChunkSize)
	slog.Info("rendering take", "chunks", len(chunks), "voice", voiceID)

	var audio []byte
	var alignments []tts.Alignment
	for i, chunk := range chunks {
		result, err := synth.Synthesize(ctx, chunk, voiceID)
		if err != nil {
			return Take{}, fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio = append(audio, result.Audio...)
		alignments = append(alignments, result.Alignment)
	}

	merged := tts.MergeAlignments(alignments)
	return Take{
		AudioDataURL: fmt.Sprintf("data:%s;base64,%s",
			blob.ContentTypeFor(s.cfg.OutputFormat), base64.StdEncoding.EncodeToString(audio)),
		Timestamps: tts.DeriveTimestamps(merged),
		VoiceID:    voiceID,
		Text:       req.Text,
	}, nil
}

// SaveTake uploads a take's audio to the user's bucket and records it as a
// saved audio row for the script.
func (s *Service) SaveTake(ctx context.Context, userID string, req SaveRequest) (model.Audio, error) {
	script, err := s.store.GetScriptByID(userID, req.ScriptID)
	if err != nil {
		return model.Audio{}, err
	}
	data, err := decodeDataURL(req.AudioDataURL)
	if err != nil {
		return model.Audio{}, err
	}

	settings := s.store.GetSettings(userID)
	if settings.BlobBucket == "" {
		return model.Audio{}, fmt.Errorf("%w: blob bucket not set", model.ErrNotConfigured)
	}
	bst, err := s.newBlob(ctx, settings)
	if err != nil {
		return model.Audio{}, err
	}
	defer func() { _ = bst.Close() }()

	video, err := s.store.GetVideo(userID, script.VideoID)
	if err != nil {
		return model.Audio{}, err
	}

	// Upload before inserting the row so a failed upload leaves no
	// URL-less orphan behind.
	audioID := uuid.NewString()
	contentType := blob.ContentTypeFor(s.cfg.OutputFormat)
	path := blob.ObjectPath(userID, video.SeriesID, video.ID, blob.AssetAudio,
		audioID, blob.ExtensionFor(contentType))
	url, err := bst.Put(ctx, path, data, contentType)
	if err != nil {
		return model.Audio{}, fmt.Errorf("upload audio: %w", err)
	}

	saved, err := s.store.CreateAudio(userID, model.Audio{
		ID:         audioID,
		ScriptID:   req.ScriptID,
		TaggedText: req.TaggedText,
		VoiceID:    req.VoiceID,
		Stability:  req.Stability,
		URL:        url,
		Timestamps: req.Timestamps,
	})
	if err != nil {
		return model.Audio{}, err
	}
	if err := s.store.SetVideoStatus(userID, video.ID, model.StatusAudio); err != nil {
		return model.Audio{}, err
	}
	return saved, nil
}

func decodeDataURL(dataURL string) ([]byte, error) {
	if dataURL == "" {
		return nil, fmt.Errorf("%w: audio data is required", model.ErrInvalid)
	}
	payload := dataURL
	if idx := strings.Index(dataURL, ";base64,"); idx >= 0 {
		payload = dataURL[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid audio encoding", model.ErrInvalid)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: audio data is empty", model.ErrInvalid)
	}
	return data, nil
}
