// Package visuals runs the illustration stage: tagging scripts with
// numbered visual markers, then sourcing candidate images for each slot
// through search, generation, upload, or restyling.
package visuals

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"historymaker/internal/blob"
	"historymaker/internal/imagegen"
	"historymaker/internal/imagesearch"
	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/store"
	"historymaker/pkg/prompts"
)

// ImageSearcher finds and fetches candidate images.
type ImageSearcher interface {
	Search(ctx context.Context, req imagesearch.SearchRequest) ([]imagesearch.Result, error)
	DownloadImage(ctx context.Context, url string) ([]byte, string, error)
}

// ImageGenerator renders or restyles illustrations.
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.GenerateRequest) ([]byte, string, error)
	Restyle(ctx context.Context, imageData []byte, mimeType string) ([]byte, string, error)
}

type Config struct {
	WordsPerMinute   int
	SecondsPerVisual int
}

type Service struct {
	gateway  llm.Gateway
	store    *store.MemoryStore
	searcher ImageSearcher
	cfg      Config

	// Swappable in tests.
	newGen  func(ctx context.Context, apiKey string) (ImageGenerator, error)
	newBlob func(ctx context.Context, settings model.UserSettings) (blob.Store, error)
}

func NewService(gateway llm.Gateway, st *store.MemoryStore, searcher ImageSearcher, cfg Config) *Service {
	s := &Service{gateway: gateway, store: st, searcher: searcher, cfg: cfg}
	s.newGen = func(ctx context.Context, apiKey string) (ImageGenerator, error) {
		return imagegen.NewGenerator(ctx, apiKey)
	}
	s.newBlob = func(ctx context.Context, settings model.UserSettings) (blob.Store, error) {
		return blob.NewGCSStore(ctx, settings.BlobBucket, settings.BlobPublicURL)
	}
	return s
}

// TargetVisualCount estimates how many visuals a script needs from its
// narration length: reading time at the configured pace divided into
// per-visual windows, never fewer than one.
func (s *Service) TargetVisualCount(script string) int {
	words := len(strings.Fields(script))
	seconds := float64(words) / float64(s.cfg.WordsPerMinute) * 60
	n := int(seconds/float64(s.cfg.SecondsPerVisual) + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

type TagResult struct {
	TaggedScript string         `json:"tagged_script"`
	Visuals      []model.Visual `json:"visuals"`
}

// AutoTag asks the model to insert visual markers into the script, parses
// them, and persists one visual slot per marker. A reply with no parseable
// markers is retried once before failing.
func (s *Service) AutoTag(ctx context.Context, userID, scriptID string) (TagResult, error) {
	script, err := s.store.GetScriptByID(userID, scriptID)
	if err != nil {
		return TagResult{}, err
	}
	if strings.TrimSpace(script.GeneratedScript) == "" {
		return TagResult{}, fmt.Errorf("%w: script has no text", model.ErrInvalid)
	}

	overrides := s.store.GetSettings(userID).PromptOverrides
	numVisuals := s.TargetVisualCount(script.GeneratedScript)

	system := prompts.Resolve(prompts.VisualTaggingSystem, overrides)
	user := prompts.Fill(prompts.Resolve(prompts.VisualTaggingUser, overrides), map[string]string{
		"numVisuals":     fmt.Sprintf("%d", numVisuals),
		"visualDuration": fmt.Sprintf("%d", s.cfg.SecondsPerVisual),
		"script":         script.GeneratedScript,
	})

	var tagged string
	var markers []Marker
	for attempt := 1; attempt <= 2; attempt++ {
		tagged, err = s.gateway.Invoke(ctx, llm.Request{
			Tier:      llm.TierBalanced,
			System:    system,
			Messages:  []llm.Message{{Role: llm.RoleUser, Content: user}},
			MaxTokens: 8192,
		})
		if err != nil {
			return TagResult{}, fmt.Errorf("tag visuals: %w", err)
		}
		markers = ParseMarkers(tagged)
		if len(markers) > 0 {
			break
		}
		slog.Warn("model returned no visual markers", "attempt", attempt)
	}
	if len(markers) == 0 {
		return TagResult{}, fmt.Errorf("model returned no visual markers")
	}

	var saved []model.Visual
	for _, m := range markers {
		visual, err := s.store.UpsertVisual(userID, model.Visual{
			ScriptID:       scriptID,
			SequenceNumber: m.Sequence,
			Description:    m.Description,
			Keyword:        m.Keyword,
		})
		if err != nil {
			return TagResult{}, err
		}
		saved = append(saved, visual)
	}

	if err := s.store.SetVideoStatus(userID, script.VideoID, model.StatusImage); err != nil {
		return TagResult{}, err
	}
	return TagResult{TaggedScript: tagged, Visuals: saved}, nil
}

type SearchImagesRequest struct {
	Query         string `json:"query"`
	MediaFilter   string `json:"media_filter"`
	QualityFilter string `json:"quality_filter"`
	Limit         int    `json:"limit"`
}

// SearchImages finds candidate images for a visual slot. Defaults to the
// slot's keyword when no query is given. Nothing is persisted; the caller
// picks a result and adds it as a variant.
func (s *Service) SearchImages(ctx context.Context, userID, visualID string, req SearchImagesRequest) ([]imagesearch.Result, error) {
	visual, err := s.store.GetVisual(userID, visualID)
	if err != nil {
		return nil, err
	}
	query := req.Query
	if query == "" {
		query = visual.Keyword
	}
	return s.searcher.Search(ctx, imagesearch.SearchRequest{
		Query:         query,
		MediaFilter:   req.MediaFilter,
		QualityFilter: req.QualityFilter,
		Limit:         req.Limit,
	})
}

// AddVariantFromURL downloads a found image, stores a copy in the user's
// bucket, and records it as a variant. The new variant becomes selected.
func (s *Service) AddVariantFromURL(ctx context.Context, userID, visualID, sourceURL string) (model.VisualVariant, error) {
	if sourceURL == "" {
		return model.VisualVariant{}, fmt.Errorf("%w: source url is required", model.ErrInvalid)
	}
	if _, err := s.store.GetVisual(userID, visualID); err != nil {
		return model.VisualVariant{}, err
	}

	data, contentType, err := s.searcher.DownloadImage(ctx, sourceURL)
	if err != nil {
		return model.VisualVariant{}, fmt.Errorf("fetch image: %w", err)
	}
	return s.storeVariant(ctx, userID, visualID, data, contentType, model.VisualVariant{
		SourceURL: sourceURL,
	})
}

type GenerateVariantRequest struct {
	Description string `json:"description"`
	Style       string `json:"style"`
}

// GenerateVariant renders an AI illustration for a visual slot with the
// user's own generation credentials.
func (s *Service) GenerateVariant(ctx context.Context, userID, visualID string, req GenerateVariantRequest) (model.VisualVariant, error) {
	visual, err := s.store.GetVisual(userID, visualID)
	if err != nil {
		return model.VisualVariant{}, err
	}
	settings := s.store.GetSettings(userID)
	if settings.GeminiKey == "" {
		return model.VisualVariant{}, fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}

	description := req.Description
	if description == "" {
		description = visual.Description
	}

	gen, err := s.newGen(ctx, settings.GeminiKey)
	if err != nil {
		return model.VisualVariant{}, err
	}
	data, mimeType, err := gen.Generate(ctx, imagegen.GenerateRequest{
		Description: description,
		Style:       req.Style,
		AspectRatio: s.aspectRatioFor(userID, visual),
	})
	if err != nil {
		return model.VisualVariant{}, fmt.Errorf("generate image: %w", err)
	}
	return s.storeVariant(ctx, userID, visualID, data, mimeType, model.VisualVariant{
		IsAIGenerated: true,
	})
}

// UploadVariant stores a user-provided image as a variant.
func (s *Service) UploadVariant(ctx context.Context, userID, visualID string, data []byte, contentType string) (model.VisualVariant, error) {
	if len(data) == 0 {
		return model.VisualVariant{}, fmt.Errorf("%w: image data is required", model.ErrInvalid)
	}
	if _, err := s.store.GetVisual(userID, visualID); err != nil {
		return model.VisualVariant{}, err
	}
	return s.storeVariant(ctx, userID, visualID, data, contentType, model.VisualVariant{})
}

// FilterVariant reprocesses an existing variant into a photorealistic
// rendition, preserving composition. The result is stored alongside and
// recorded on the same variant as its processed form.
func (s *Service) FilterVariant(ctx context.Context, userID, variantID string) (model.VisualVariant, error) {
	variant, err := s.store.GetVariant(userID, variantID)
	if err != nil {
		return model.VisualVariant{}, err
	}

	settings := s.store.GetSettings(userID)
	if settings.GeminiKey == "" {
		return model.VisualVariant{}, fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}
	if settings.BlobBucket == "" {
		return model.VisualVariant{}, fmt.Errorf("%w: blob bucket not set", model.ErrNotConfigured)
	}

	srcURL := variant.SourceURL
	if variant.ProcessedURL != "" {
		srcURL = variant.ProcessedURL
	}
	data, mimeType, err := s.searcher.DownloadImage(ctx, srcURL)
	if err != nil {
		return model.VisualVariant{}, fmt.Errorf("fetch variant image: %w", err)
	}

	gen, err := s.newGen(ctx, settings.GeminiKey)
	if err != nil {
		return model.VisualVariant{}, err
	}
	processed, outMime, err := gen.Restyle(ctx, data, mimeType)
	if err != nil {
		return model.VisualVariant{}, fmt.Errorf("restyle image: %w", err)
	}

	bst, err := s.newBlob(ctx, settings)
	if err != nil {
		return model.VisualVariant{}, err
	}
	defer func() { _ = bst.Close() }()

	seriesID, videoID, err := s.ownersOf(userID, variant.VisualID)
	if err != nil {
		return model.VisualVariant{}, err
	}
	path := blob.ObjectPath(userID, seriesID, videoID, blob.AssetImages,
		variant.ID+"-filtered", blob.ExtensionFor(outMime))
	url, err := bst.Put(ctx, path, processed, outMime)
	if err != nil {
		return model.VisualVariant{}, fmt.Errorf("upload processed image: %w", err)
	}

	variant.ProcessedURL = url
	variant.Filters = appendFilter(variant.Filters, "photorealistic")
	return s.store.UpdateVariant(userID, variant)
}

func (s *Service) storeVariant(ctx context.Context, userID, visualID string, data []byte, contentType string, variant model.VisualVariant) (model.VisualVariant, error) {
	settings := s.store.GetSettings(userID)
	if settings.BlobBucket == "" {
		return model.VisualVariant{}, fmt.Errorf("%w: blob bucket not set", model.ErrNotConfigured)
	}
	bst, err := s.newBlob(ctx, settings)
	if err != nil {
		return model.VisualVariant{}, err
	}
	defer func() { _ = bst.Close() }()

	seriesID, videoID, err := s.ownersOf(userID, visualID)
	if err != nil {
		return model.VisualVariant{}, err
	}

	// Upload before recording anything so a failed upload leaves no row
	// behind. The durable copy becomes the variant's source; ProcessedURL
	// is reserved for filter output.
	variantID := uuid.NewString()
	path := blob.ObjectPath(userID, seriesID, videoID, blob.AssetImages,
		variantID, blob.ExtensionFor(contentType))
	url, err := bst.Put(ctx, path, data, contentType)
	if err != nil {
		return model.VisualVariant{}, fmt.Errorf("upload image: %w", err)
	}

	variant.ID = variantID
	variant.VisualID = visualID
	variant.SourceURL = url
	variant.IsSelected = true
	return s.store.CreateVariant(userID, variant)
}

func (s *Service) ownersOf(userID, visualID string) (seriesID, videoID string, err error) {
	visual, err := s.store.GetVisual(userID, visualID)
	if err != nil {
		return "", "", err
	}
	script, err := s.store.GetScriptByID(userID, visual.ScriptID)
	if err != nil {
		return "", "", err
	}
	video, err := s.store.GetVideo(userID, script.VideoID)
	if err != nil {
		return "", "", err
	}
	return video.SeriesID, video.ID, nil
}

func (s *Service) aspectRatioFor(userID string, visual model.Visual) string {
	script, err := s.store.GetScriptByID(userID, visual.ScriptID)
	if err != nil {
		return "16:9"
	}
	video, err := s.store.GetVideo(userID, script.VideoID)
	if err != nil {
		return "16:9"
	}
	if video.Format == model.FormatYouTubeShort || video.Format == model.FormatTikTok {
		return "9:16"
	}
	return "16:9"
}

func appendFilter(filters []string, name string) []string {
	for _, f := range filters {
		if f == name {
			return filters
		}
	}
	return append(filters, name)
}
