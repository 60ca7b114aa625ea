// Package export reports a video's readiness for final assembly and
// bundles its finished assets for download.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"historymaker/internal/blob"
	"historymaker/internal/model"
	"historymaker/internal/store"
)

// Readiness of one asset type.
const (
	StatusReady   = "ready"
	StatusPartial = "partial"
	StatusPending = "pending"
)

// AssetStatus sums up one asset type for the export view.
type AssetStatus struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Ready  int    `json:"ready"`
	Total  int    `json:"total"`
}

// Stats aggregates estimates across all asset types. The store keeps
// asset URLs, not byte counts, so sizes and cost are derived from flat
// per-asset rates.
type Stats struct {
	AssetCount      int     `json:"asset_count"`
	DurationSeconds float64 `json:"duration_seconds"`
	StorageBytes    int64   `json:"storage_bytes"`
	EstimatedCost   float64 `json:"estimated_cost"`
}

// Summary is the full export readiness report for one video.
type Summary struct {
	VideoID string        `json:"video_id"`
	Title   string        `json:"title"`
	Assets  []AssetStatus `json:"assets"`
	Ready   int           `json:"ready_types"`
	Total   int           `json:"total_types"`
	Stats   Stats         `json:"stats"`
}

// Per-asset estimate rates.
const (
	audioBytesPerSecond = 16000 // 128 kbps mp3
	imageBytesEach      = 600 << 10
	clipBytesEach       = 4 << 20

	costPerScript      = 0.02
	costPerAudioSecond = 0.003
	costPerImage       = 0.04
	costPerClip        = 0.40
)

type Service struct {
	store *store.MemoryStore

	// Swappable in tests.
	newBlob func(ctx context.Context, settings model.UserSettings) (blob.Store, error)
}

func NewService(st *store.MemoryStore) *Service {
	s := &Service{store: st}
	s.newBlob = func(ctx context.Context, settings model.UserSettings) (blob.Store, error) {
		return blob.NewGCSStore(ctx, settings.BlobBucket, settings.BlobPublicURL)
	}
	return s
}

// Summarize reports per-type readiness for a video. Script, audio, and
// music are all-or-nothing; images and clips count finished slots and can
// be partial.
func (s *Service) Summarize(ctx context.Context, userID, videoID string) (Summary, error) {
	_ = ctx
	video, err := s.store.GetVideo(userID, videoID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{VideoID: videoID, Title: video.Title}

	script, scriptErr := s.store.GetScript(userID, videoID)
	hasScript := scriptErr == nil && script.GeneratedScript != ""
	summary.Assets = append(summary.Assets, binaryStatus("script", hasScript))

	var visuals []model.Visual
	narration := 0.0
	if scriptErr == nil {
		audios, _ := s.store.ListAudios(userID, script.ID)
		summary.Assets = append(summary.Assets, binaryStatus("audio", len(audios) > 0))
		for _, a := range audios {
			if d := takeDuration(a); d > narration {
				narration = d
			}
		}
		visuals, _ = s.store.ListVisuals(userID, script.ID)
	} else {
		summary.Assets = append(summary.Assets, binaryStatus("audio", false))
	}

	imagesReady := 0
	clipsReady := 0
	for _, visual := range visuals {
		if _, err := s.store.SelectedVariant(userID, visual.ID); err == nil {
			imagesReady++
		}
		if clip, err := s.store.GetClipForVisual(userID, visual.ID); err == nil && clip.Status == model.ClipCompleted {
			clipsReady++
		}
	}
	summary.Assets = append(summary.Assets, countedStatus("images", imagesReady, len(visuals)))
	summary.Assets = append(summary.Assets, countedStatus("video_clips", clipsReady, len(visuals)))

	_, musicErr := s.store.GetMusicSelection(userID, videoID)
	summary.Assets = append(summary.Assets, binaryStatus("music", musicErr == nil))

	summary.Total = len(summary.Assets)
	for _, a := range summary.Assets {
		if a.Status != StatusPending {
			summary.Ready++
		}
		summary.Stats.AssetCount += a.Ready
	}

	summary.Stats.DurationSeconds = narration
	summary.Stats.StorageBytes = int64(narration*audioBytesPerSecond) +
		int64(imagesReady)*imageBytesEach +
		int64(clipsReady)*clipBytesEach
	if hasScript {
		summary.Stats.EstimatedCost += costPerScript
	}
	summary.Stats.EstimatedCost += narration*costPerAudioSecond +
		float64(imagesReady)*costPerImage +
		float64(clipsReady)*costPerClip
	return summary, nil
}

// takeDuration is the end time of a take's last timestamp.
func takeDuration(a model.Audio) float64 {
	if len(a.Timestamps) == 0 {
		return 0
	}
	return a.Timestamps[len(a.Timestamps)-1].EndTime
}

func binaryStatus(assetType string, ready bool) AssetStatus {
	st := AssetStatus{Type: assetType, Total: 1}
	if ready {
		st.Status = StatusReady
		st.Ready = 1
	} else {
		st.Status = StatusPending
	}
	return st
}

func countedStatus(assetType string, ready, total int) AssetStatus {
	st := AssetStatus{Type: assetType, Ready: ready, Total: total}
	switch {
	case total > 0 && ready == total:
		st.Status = StatusReady
	case ready > 0:
		st.Status = StatusPartial
	default:
		st.Status = StatusPending
	}
	return st
}

// Asset is one downloadable item in a bundle.
type Asset struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// Assets lists the downloadable items of one asset type. Script text is
// inlined as a virtual asset; everything else points at stored objects.
func (s *Service) Assets(ctx context.Context, userID, videoID, assetType string) ([]Asset, []byte, error) {
	_ = ctx
	if _, err := s.store.GetVideo(userID, videoID); err != nil {
		return nil, nil, err
	}
	script, scriptErr := s.store.GetScript(userID, videoID)

	switch assetType {
	case "script":
		if scriptErr != nil || script.GeneratedScript == "" {
			return nil, nil, fmt.Errorf("%w: no script", model.ErrNotFound)
		}
		return []Asset{{Name: "script.txt", ContentType: "text/plain"}}, []byte(script.GeneratedScript), nil

	case "audio":
		if scriptErr != nil {
			return nil, nil, fmt.Errorf("%w: no audio", model.ErrNotFound)
		}
		audios, _ := s.store.ListAudios(userID, script.ID)
		var assets []Asset
		for i, a := range audios {
			if a.URL == "" {
				continue
			}
			assets = append(assets, Asset{
				Name:        fmt.Sprintf("take-%02d.mp3", i+1),
				URL:         a.URL,
				ContentType: "audio/mpeg",
			})
		}
		if len(assets) == 0 {
			return nil, nil, fmt.Errorf("%w: no audio", model.ErrNotFound)
		}
		return assets, nil, nil

	case "images":
		assets, err := s.selectedImageAssets(userID, script, scriptErr)
		return assets, nil, err

	case "video_clips":
		if scriptErr != nil {
			return nil, nil, fmt.Errorf("%w: no clips", model.ErrNotFound)
		}
		visuals, _ := s.store.ListVisuals(userID, script.ID)
		var assets []Asset
		for _, visual := range visuals {
			clip, err := s.store.GetClipForVisual(userID, visual.ID)
			if err != nil || clip.Status != model.ClipCompleted || clip.URL == "" {
				continue
			}
			assets = append(assets, Asset{
				Name:        fmt.Sprintf("clip-%02d.mp4", visual.SequenceNumber),
				URL:         clip.URL,
				ContentType: "video/mp4",
			})
		}
		if len(assets) == 0 {
			return nil, nil, fmt.Errorf("%w: no clips", model.ErrNotFound)
		}
		return assets, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown asset type %q", model.ErrInvalid, assetType)
	}
}

// AssetAt resolves a single downloadable item by position within its
// type. Script text comes back inline; stored assets come back as a URL
// for the caller to redirect to.
func (s *Service) AssetAt(ctx context.Context, userID, videoID, assetType string, index int) (Asset, []byte, error) {
	assets, inline, err := s.Assets(ctx, userID, videoID, assetType)
	if err != nil {
		return Asset{}, nil, err
	}
	if index < 0 || index >= len(assets) {
		return Asset{}, nil, fmt.Errorf("%w: no asset at index %d", model.ErrNotFound, index)
	}
	if inline != nil && index == 0 {
		return assets[0], inline, nil
	}
	return assets[index], nil, nil
}

func (s *Service) selectedImageAssets(userID string, script model.Script, scriptErr error) ([]Asset, error) {
	if scriptErr != nil {
		return nil, fmt.Errorf("%w: no images", model.ErrNotFound)
	}
	visuals, _ := s.store.ListVisuals(userID, script.ID)
	var assets []Asset
	for _, visual := range visuals {
		variant, err := s.store.SelectedVariant(userID, visual.ID)
		if err != nil {
			continue
		}
		url := variant.SourceURL
		if variant.ProcessedURL != "" {
			url = variant.ProcessedURL
		}
		if url == "" {
			continue
		}
		assets = append(assets, Asset{
			Name:        fmt.Sprintf("visual-%02d%s", visual.SequenceNumber, extOf(url)),
			URL:         url,
			ContentType: "image/jpeg",
		})
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: no images", model.ErrNotFound)
	}
	return assets, nil
}

// Bundle builds a zip of one asset type on demand, pulling stored objects
// through the user's blob store. Inline assets (the script) are written
// directly.
func (s *Service) Bundle(ctx context.Context, userID, videoID, assetType string) ([]byte, string, error) {
	assets, inline, err := s.Assets(ctx, userID, videoID, assetType)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if inline != nil {
		w, err := zw.Create(assets[0].Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := w.Write(inline); err != nil {
			return nil, "", err
		}
	} else {
		settings := s.store.GetSettings(userID)
		if settings.BlobBucket == "" {
			return nil, "", fmt.Errorf("%w: blob bucket not set", model.ErrNotConfigured)
		}
		bst, err := s.newBlob(ctx, settings)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = bst.Close() }()

		for _, asset := range assets {
			data, _, err := bst.Get(ctx, objectPathFromURL(asset.URL))
			if err != nil {
				return nil, "", fmt.Errorf("read %s: %w", asset.Name, err)
			}
			w, err := zw.Create(asset.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := w.Write(data); err != nil {
				return nil, "", err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("%s-%s.zip", assetType, videoID), nil
}

// bundleTypes in download-all order.
var bundleTypes = []string{"script", "audio", "images", "video_clips"}

// BundleAll builds one zip holding every asset type that has content,
// each under its own directory. Types with nothing ready are skipped;
// an entirely empty video is an error.
func (s *Service) BundleAll(ctx context.Context, userID, videoID string) ([]byte, string, error) {
	if _, err := s.store.GetVideo(userID, videoID); err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var bst blob.Store
	wrote := 0
	for _, assetType := range bundleTypes {
		assets, inline, err := s.Assets(ctx, userID, videoID, assetType)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}

		if inline != nil {
			w, err := zw.Create(assetType + "/" + assets[0].Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := w.Write(inline); err != nil {
				return nil, "", err
			}
			wrote++
			continue
		}

		if bst == nil {
			settings := s.store.GetSettings(userID)
			if settings.BlobBucket == "" {
				return nil, "", fmt.Errorf("%w: blob bucket not set", model.ErrNotConfigured)
			}
			bst, err = s.newBlob(ctx, settings)
			if err != nil {
				return nil, "", err
			}
			defer func() { _ = bst.Close() }()
		}

		for _, asset := range assets {
			data, _, err := bst.Get(ctx, objectPathFromURL(asset.URL))
			if err != nil {
				return nil, "", fmt.Errorf("read %s: %w", asset.Name, err)
			}
			w, err := zw.Create(assetType + "/" + asset.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := w.Write(data); err != nil {
				return nil, "", err
			}
			wrote++
		}
	}

	if wrote == 0 {
		return nil, "", fmt.Errorf("%w: nothing to export", model.ErrNotFound)
	}
	if err := zw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("export-%s.zip", videoID), nil
}

// objectPathFromURL recovers the object path from a stored asset URL. The
// path scheme always starts at the user id segment, which follows the
// bucket's public base.
func objectPathFromURL(url string) string {
	idx := strings.Index(url, "/series/")
	if idx < 0 {
		return url
	}
	head := url[:idx]
	userSeg := head[strings.LastIndex(head, "/")+1:]
	return userSeg + url[idx:]
}

func extOf(url string) string {
	if idx := strings.LastIndex(url, "."); idx >= 0 && len(url)-idx <= 5 {
		return url[idx:]
	}
	return ".jpg"
}
