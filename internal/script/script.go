// Package script generates documentary narration from source material.
// Tone presets shape the writing style; scripts are stored one per video.
package script

import (
	"context"
	"fmt"
	"strings"

	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/store"
	"historymaker/pkg/prompts"
)

type GenerateRequest struct {
	VideoID          string `json:"video_id,omitempty"`
	SourceText       string `json:"source_text"`
	Duration         string `json:"duration"`
	Tone             string `json:"tone"`
	AdditionalPrompt string `json:"additional_prompt,omitempty"`
}

type Service struct {
	gateway llm.Gateway
	store   *store.MemoryStore
}

func NewService(gateway llm.Gateway, st *store.MemoryStore) *Service {
	return &Service{gateway: gateway, store: st}
}

// Generate writes a script from source text. With VideoID set the result is
// persisted as that video's script, replacing any previous one.
func (s *Service) Generate(ctx context.Context, userID string, req GenerateRequest) (model.Script, error) {
	if strings.TrimSpace(req.SourceText) == "" {
		return model.Script{}, fmt.Errorf("%w: source text is required", model.ErrInvalid)
	}
	if req.Duration == "" {
		return model.Script{}, fmt.Errorf("%w: duration is required", model.ErrInvalid)
	}
	if req.VideoID != "" {
		if _, err := s.store.GetVideo(userID, req.VideoID); err != nil {
			return model.Script{}, err
		}
	}

	overrides := s.store.GetSettings(userID).PromptOverrides

	system := prompts.Fill(prompts.Resolve(prompts.ScriptSystem, overrides), map[string]string{
		"toneInstructions": toneInstructions(req.Tone, overrides),
	})

	additional := ""
	if req.AdditionalPrompt != "" {
		additional = "Additional instructions: " + req.AdditionalPrompt
	}
	user := prompts.Fill(prompts.Resolve(prompts.ScriptUser, overrides), map[string]string{
		"duration":         req.Duration,
		"sourceText":       req.SourceText,
		"additionalPrompt": additional,
	})

	text, err := s.gateway.Invoke(ctx, llm.Request{
		Tier:      llm.TierBest,
		System:    system,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: user}},
		MaxTokens: 8192,
	})
	if err != nil {
		return model.Script{}, fmt.Errorf("generate script: %w", err)
	}

	result := model.Script{
		VideoID:         req.VideoID,
		SourceText:      req.SourceText,
		GeneratedScript: strings.TrimSpace(text),
		Duration:        req.Duration,
		Tone:            req.Tone,
	}
	if req.VideoID == "" {
		return result, nil
	}

	saved, err := s.store.UpsertScript(userID, result)
	if err != nil {
		return model.Script{}, err
	}
	if err := s.store.SetVideoStatus(userID, req.VideoID, model.StatusScripting); err != nil {
		return model.Script{}, err
	}
	return saved, nil
}

func toneInstructions(tone string, overrides map[string]string) string {
	switch tone {
	case "mike_duncan":
		return prompts.Resolve(prompts.ToneMikeDuncan, overrides)
	case "mark_felton":
		return prompts.Resolve(prompts.ToneMarkFelton, overrides)
	default:
		return ""
	}
}
