// Package blob stores generated media assets in per-user object storage
// and builds the canonical object paths for them.
package blob

import (
	"context"
	"fmt"
	"strings"
)

// AssetType is the folder an asset lives under within a video.
type AssetType string

const (
	AssetAudio  AssetType = "audio"
	AssetImages AssetType = "images"
	AssetVideos AssetType = "videos"
	AssetMusic  AssetType = "music"
)

// Store writes media assets and returns their public URLs.
type Store interface {
	Put(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, objectPath string) ([]byte, string, error)
	Close() error
}

// ObjectPath builds the canonical location for a stored asset:
// {userID}/series/{seriesID}/videos/{videoID}/{assetType}/{assetID}.{ext}
func ObjectPath(userID, seriesID, videoID string, assetType AssetType, assetID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s/series/%s/videos/%s/%s/%s.%s",
		userID, seriesID, videoID, assetType, assetID, ext)
}

// ExtensionFor maps a content type or audio output format to a file extension.
func ExtensionFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "mp3_"), contentType == "audio/mpeg":
		return "mp3"
	case strings.HasPrefix(contentType, "pcm_"), contentType == "audio/wav":
		return "wav"
	case contentType == "image/jpeg":
		return "jpg"
	case contentType == "image/png":
		return "png"
	case contentType == "image/webp":
		return "webp"
	case contentType == "video/mp4":
		return "mp4"
	default:
		return "bin"
	}
}

// ContentTypeFor maps an audio output format to its MIME type.
func ContentTypeFor(outputFormat string) string {
	switch {
	case strings.HasPrefix(outputFormat, "mp3_"):
		return "audio/mpeg"
	case strings.HasPrefix(outputFormat, "pcm_"):
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
