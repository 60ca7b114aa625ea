// Package clips animates selected visuals into short video clips. A clip
// submission returns immediately; a background loop polls the generation
// operation and moves the durable clip record through its states.
package clips

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"historymaker/internal/blob"
	"historymaker/internal/model"
	"historymaker/internal/store"
	"historymaker/internal/videogen"
)

// VideoGen is the long-running generation API a clip goes through.
type VideoGen interface {
	Submit(ctx context.Context, req videogen.SubmitRequest) (string, error)
	GetOperation(ctx context.Context, operationName string) (videogen.OperationState, error)
	Download(ctx context.Context, videoURI string) ([]byte, error)
}

type Config struct {
	Model          string
	QualityModel   string
	PollInterval   time.Duration
	PollTimeout    time.Duration
	PollRatePerSec int
	BatchDelay     time.Duration
}

type GenerateRequest struct {
	CameraMovement string `json:"camera_movement"`
	Quality        bool   `json:"quality"`
}

type Service struct {
	store   *store.MemoryStore
	cfg     Config
	limiter *rate.Limiter
	wg      sync.WaitGroup

	// Swappable in tests.
	newGen     func(apiKey string) VideoGen
	newBlob    func(ctx context.Context, settings model.UserSettings) (blob.Store, error)
	fetchImage func(ctx context.Context, url string) ([]byte, string, error)
}

func NewService(st *store.MemoryStore, cfg Config) *Service {
	perSec := cfg.PollRatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	s := &Service{
		store: st,
		cfg:   cfg,
		// One limiter across all users keeps polling inside the provider's
		// request budget no matter how many clips run at once.
		limiter: rate.NewLimiter(rate.Limit(perSec), perSec),
	}
	s.newGen = func(apiKey string) VideoGen { return videogen.NewClient(apiKey) }
	s.newBlob = func(ctx context.Context, settings model.UserSettings) (blob.Store, error) {
		return blob.NewGCSStore(ctx, settings.BlobBucket, settings.BlobPublicURL)
	}
	s.fetchImage = fetchHTTPImage
	return s
}

// Generate submits one clip for a visual's selected variant and returns the
// processing record. Completion happens asynchronously.
func (s *Service) Generate(ctx context.Context, userID, visualID string, req GenerateRequest) (model.VideoClip, error) {
	visual, err := s.store.GetVisual(userID, visualID)
	if err != nil {
		return model.VideoClip{}, err
	}
	settings := s.store.GetSettings(userID)
	if settings.GeminiKey == "" {
		return model.VideoClip{}, fmt.Errorf("%w: gemini api key not set", model.ErrNotConfigured)
	}
	if settings.BlobBucket == "" {
		return model.VideoClip{}, fmt.Errorf("%w: blob bucket not set", model.ErrNotConfigured)
	}

	variant, err := s.store.SelectedVariant(userID, visualID)
	if err != nil {
		return model.VideoClip{}, fmt.Errorf("%w: visual has no selected image", model.ErrInvalid)
	}
	imageURL := variant.SourceURL
	if variant.ProcessedURL != "" {
		imageURL = variant.ProcessedURL
	}
	imageData, imageMime, err := s.fetchImage(ctx, imageURL)
	if err != nil {
		return model.VideoClip{}, fmt.Errorf("fetch selected image: %w", err)
	}

	clip, err := s.store.UpsertClip(userID, model.VideoClip{
		VisualID: visualID,
		Status:   model.ClipPending,
	})
	if err != nil {
		return model.VideoClip{}, err
	}

	gen := s.newGen(settings.GeminiKey)
	modelName := s.cfg.Model
	if req.Quality {
		modelName = s.cfg.QualityModel
	}

	aspect, duration := s.clipParams(userID, visual)
	opName, err := gen.Submit(ctx, videogen.SubmitRequest{
		Prompt:         visual.Description,
		CameraMovement: req.CameraMovement,
		ImageData:      imageData,
		ImageMIMEType:  imageMime,
		Model:          modelName,
		AspectRatio:    aspect,
		DurationSec:    duration,
	})
	if err != nil {
		clip.Status = model.ClipFailed
		clip.Error = err.Error()
		_, _ = s.store.UpsertClip(userID, clip)
		return model.VideoClip{}, err
	}

	clip.Status = model.ClipProcessing
	clip.OperationID = opName
	clip.Progress = 0
	clip.Error = ""
	clip, err = s.store.UpsertClip(userID, clip)
	if err != nil {
		return model.VideoClip{}, err
	}

	s.wg.Add(1)
	go s.poll(userID, clip.ID, gen, opName)
	return clip, nil
}

// poll drives one clip to completion. The loop owns the clip record from
// here; API reads see its progress through the store.
func (s *Service) poll(userID, clipID string, gen VideoGen, opName string) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PollTimeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finishFailed(userID, clipID, "generation timed out")
			return
		case <-ticker.C:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			s.finishFailed(userID, clipID, "generation timed out")
			return
		}

		state, err := gen.GetOperation(ctx, opName)
		if err != nil {
			slog.Warn("clip poll failed, will retry", "clip", clipID, "error", err)
			continue
		}
		if !state.Done {
			s.updateProgress(userID, clipID, progressEstimate(start, s.cfg.PollTimeout))
			continue
		}
		if state.Err != nil {
			s.finishFailed(userID, clipID, state.Err.Error())
			return
		}

		data, err := gen.Download(ctx, state.VideoURI)
		if err != nil {
			s.finishFailed(userID, clipID, fmt.Sprintf("download video: %v", err))
			return
		}
		s.finishCompleted(ctx, userID, clipID, data)
		return
	}
}

func (s *Service) finishCompleted(ctx context.Context, userID, clipID string, data []byte) {
	clip, err := s.store.GetClip(userID, clipID)
	if err != nil {
		return
	}

	settings := s.store.GetSettings(userID)
	bst, err := s.newBlob(ctx, settings)
	if err != nil {
		s.finishFailed(userID, clipID, fmt.Sprintf("open storage: %v", err))
		return
	}
	defer func() { _ = bst.Close() }()

	seriesID, videoID, err := s.ownersOf(userID, clip.VisualID)
	if err != nil {
		s.finishFailed(userID, clipID, err.Error())
		return
	}
	path := blob.ObjectPath(userID, seriesID, videoID, blob.AssetVideos, clip.ID, "mp4")
	url, err := bst.Put(ctx, path, data, "video/mp4")
	if err != nil {
		s.finishFailed(userID, clipID, fmt.Sprintf("upload video: %v", err))
		return
	}

	clip.Status = model.ClipCompleted
	clip.Progress = 100
	clip.URL = url
	clip.Error = ""
	_, _ = s.store.UpsertClip(userID, clip)
	_ = s.store.SetVideoStatus(userID, videoID, model.StatusVideo)
	slog.Info("clip completed", "clip", clipID)
}

func (s *Service) finishFailed(userID, clipID, msg string) {
	clip, err := s.store.GetClip(userID, clipID)
	if err != nil {
		return
	}
	clip.Status = model.ClipFailed
	clip.Error = msg
	_, _ = s.store.UpsertClip(userID, clip)
	slog.Warn("clip failed", "clip", clipID, "error", msg)
}

func (s *Service) updateProgress(userID, clipID string, progress int) {
	clip, err := s.store.GetClip(userID, clipID)
	if err != nil || clip.Status != model.ClipProcessing {
		return
	}
	clip.Progress = progress
	_, _ = s.store.UpsertClip(userID, clip)
}

// GenerateAll submits clips for every visual in a script that has a
// selected image and no live clip. Failed clips are resubmitted; pending,
// processing, and completed ones are left alone. Submissions are spaced by
// the batch delay.
func (s *Service) GenerateAll(ctx context.Context, userID, scriptID string, req GenerateRequest) ([]model.VideoClip, error) {
	visuals, err := s.store.ListVisuals(userID, scriptID)
	if err != nil {
		return nil, err
	}

	var submitted []model.VideoClip
	for i, visual := range visuals {
		if _, err := s.store.SelectedVariant(userID, visual.ID); err != nil {
			continue
		}
		if existing, err := s.store.GetClipForVisual(userID, visual.ID); err == nil &&
			existing.Status != model.ClipFailed {
			continue
		}

		if i > 0 && s.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return submitted, ctx.Err()
			case <-time.After(s.cfg.BatchDelay):
			}
		}

		clip, err := s.Generate(ctx, userID, visual.ID, req)
		if err != nil {
			slog.Warn("batch clip submission failed", "visual", visual.ID, "error", err)
			continue
		}
		submitted = append(submitted, clip)
	}
	return submitted, nil
}

// Wait blocks until every background poll loop has finished. Test hook and
// shutdown aid.
func (s *Service) Wait() {
	s.wg.Wait()
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

func (s *Service) clipParams(userID string, visual model.Visual) (aspect string, durationSec int) {
	aspect, durationSec = "16:9", 8
	script, err := s.store.GetScriptByID(userID, visual.ScriptID)
	if err != nil {
		return
	}
	video, err := s.store.GetVideo(userID, script.VideoID)
	if err != nil {
		return
	}
	if video.Format == model.FormatYouTubeShort || video.Format == model.FormatTikTok {
		aspect = "9:16"
	}
	return
}

// progressEstimate maps elapsed time onto a 0-95 scale; only completion
// reports 100.
func progressEstimate(start time.Time, timeout time.Duration) int {
	frac := float64(time.Since(start)) / float64(timeout)
	p := int(frac * 100)
	if p > 95 {
		p = 95
	}
	if p < 5 {
		p = 5
	}
	return p
}

func fetchHTTPImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", model.NewUpstreamError("imagefetch", resp.StatusCode, nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	return data, contentType, nil
}
