// Package music scores a video: the model analyzes the script for mood,
// tempo, and genre, the catalog is searched against that profile, and the
// chosen tracks are saved for export.
package music

import (
	"context"
	"fmt"
	"strings"

	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/musiccat"
	"historymaker/internal/store"
	"historymaker/pkg/prompts"
)

// Catalog is the licensed-track search backend.
type Catalog interface {
	Search(ctx context.Context, query string, criteria musiccat.Criteria, limit int) ([]musiccat.Track, error)
}

// Section is a span of the script with its own musical intensity.
type Section struct {
	StartPosition int    `json:"startPosition"`
	EndPosition   int    `json:"endPosition"`
	Mood          string `json:"mood"`
	Intensity     string `json:"intensity"`
}

// Analysis is the model's musical profile for a script.
type Analysis struct {
	Mood     string    `json:"mood"`
	Tempo    string    `json:"tempo"`
	Genres   []string  `json:"genres"`
	Sections []Section `json:"sections"`
}

type Service struct {
	gateway llm.Gateway
	store   *store.MemoryStore

	// Swappable in tests.
	newCatalog func(apiKey string) Catalog
}

func NewService(gateway llm.Gateway, st *store.MemoryStore) *Service {
	s := &Service{gateway: gateway, store: st}
	s.newCatalog = func(apiKey string) Catalog { return musiccat.NewClient(apiKey) }
	return s
}

// Analyze derives the background-music profile for a video's script.
func (s *Service) Analyze(ctx context.Context, userID, videoID string) (Analysis, error) {
	script, err := s.store.GetScript(userID, videoID)
	if err != nil {
		return Analysis{}, err
	}
	if strings.TrimSpace(script.GeneratedScript) == "" {
		return Analysis{}, fmt.Errorf("%w: script has no text", model.ErrInvalid)
	}

	overrides := s.store.GetSettings(userID).PromptOverrides
	var analysis Analysis
	err = s.gateway.InvokeJSON(ctx, llm.Request{
		Tier:   llm.TierFast,
		System: prompts.Resolve(prompts.MusicAnalysisSystem, overrides),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: prompts.Fill(prompts.Resolve(prompts.MusicAnalysisUser, overrides), map[string]string{"script": script.GeneratedScript}),
		}},
		MaxTokens: 2048,
	}, &analysis)
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze script: %w", err)
	}
	return analysis, nil
}

type SearchRequest struct {
	Query  string   `json:"query"`
	Mood   string   `json:"mood"`
	Tempo  string   `json:"tempo"`
	Genres []string `json:"genres"`
	Limit  int      `json:"limit"`
}

// Search queries the user's music catalog, ranked against the criteria.
func (s *Service) Search(ctx context.Context, userID string, req SearchRequest) ([]musiccat.Track, error) {
	settings := s.store.GetSettings(userID)
	if settings.MusicCatalogKey == "" {
		return nil, fmt.Errorf("%w: music catalog api key not set", model.ErrNotConfigured)
	}
	catalog := s.newCatalog(settings.MusicCatalogKey)
	return catalog.Search(ctx, req.Query, musiccat.Criteria{
		Mood:   req.Mood,
		Tempo:  req.Tempo,
		Genres: req.Genres,
	}, req.Limit)
}

// Save records the chosen tracks for a video, replacing any previous
// selection.
func (s *Service) Save(ctx context.Context, userID, videoID string, trackIDs []string) (model.MusicSelection, error) {
	_ = ctx
	sel := model.MusicSelection{VideoID: videoID, TrackIDs: trackIDs}
	if err := s.store.SaveMusicSelection(userID, sel); err != nil {
		return model.MusicSelection{}, err
	}
	return sel, nil
}
