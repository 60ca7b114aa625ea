package model

import "time"

// VideoFormat is the target platform/format for a planned video.
type VideoFormat string

const (
	FormatYouTube      VideoFormat = "youtube"
	FormatYouTubeShort VideoFormat = "youtube_short"
	FormatTikTok       VideoFormat = "tiktok"
)

// VideoStatus tracks how far a video has progressed through the pipeline.
// The status is advisory: stages read it for display but do not enforce it.
type VideoStatus string

const (
	StatusPlanned   VideoStatus = "planned"
	StatusScripting VideoStatus = "scripting"
	StatusAudio     VideoStatus = "audio"
	StatusImage     VideoStatus = "image"
	StatusVideo     VideoStatus = "video"
	StatusComplete  VideoStatus = "complete"
)

// User identifies an account. Token is the bearer credential for the API
// and never appears in responses.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Series owns a topic and a collection of videos. Deleting a series
// cascades to its videos and their artifacts.
type Series struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Topic     string    `json:"topic"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Video struct {
	ID            string      `json:"id"`
	SeriesID      string      `json:"series_id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Format        VideoFormat `json:"format"`
	Status        VideoStatus `json:"status"`
	ScheduledDate time.Time   `json:"scheduled_date"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Script is 1:1 with a video. Overwritten in place on regenerate; no
// history is kept.
type Script struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	SourceText      string    `json:"source_text"`
	GeneratedScript string    `json:"generated_script"`
	Duration        string    `json:"duration"`
	Tone            string    `json:"tone"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Timestamp is one word or punctuation token with its position in the
// rendered audio.
type Timestamp struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// Audio is one saved take of a script. Unsaved takes live client-side as
// data URLs and never reach the store.
type Audio struct {
	ID         string      `json:"id"`
	ScriptID   string      `json:"script_id"`
	TaggedText string      `json:"tagged_text"`
	VoiceID    string      `json:"voice_id"`
	Stability  float64     `json:"stability"`
	URL        string      `json:"url"`
	Timestamps []Timestamp `json:"timestamps"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Visual is a numbered illustration slot parsed from a script marker.
// (script_id, sequence_number) is unique.
type Visual struct {
	ID             string    `json:"id"`
	ScriptID       string    `json:"script_id"`
	SequenceNumber int       `json:"sequence_number"`
	Description    string    `json:"description"`
	Keyword        string    `json:"keyword"`
	CreatedAt      time.Time `json:"created_at"`
}

// VisualVariant is one candidate image for a visual. Exactly one variant
// per visual carries IsSelected.
type VisualVariant struct {
	ID            string    `json:"id"`
	VisualID      string    `json:"visual_id"`
	SourceURL     string    `json:"source_url"`
	ProcessedURL  string    `json:"processed_url,omitempty"`
	Filters       []string  `json:"filters,omitempty"`
	IsAIGenerated bool      `json:"is_ai_generated"`
	IsSelected    bool      `json:"is_selected"`
	CreatedAt     time.Time `json:"created_at"`
}

type ClipStatus string

const (
	ClipPending    ClipStatus = "pending"
	ClipProcessing ClipStatus = "processing"
	ClipCompleted  ClipStatus = "completed"
	ClipFailed     ClipStatus = "failed"
)

// VideoClip tracks one generated motion clip for a visual. OperationID is
// set while processing; URL once completed.
type VideoClip struct {
	ID          string     `json:"id"`
	VisualID    string     `json:"visual_id"`
	Status      ClipStatus `json:"status"`
	OperationID string     `json:"operation_id,omitempty"`
	Progress    int        `json:"progress"`
	URL         string     `json:"url,omitempty"`
	Error       string     `json:"error,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MusicSelection is the set of catalog track ids chosen for a video.
type MusicSelection struct {
	VideoID  string   `json:"video_id"`
	TrackIDs []string `json:"track_ids"`
}

// UserSettings holds per-user service credentials and prompt overrides.
// A missing required credential is a configuration error for the stage
// that needs it, never silently defaulted.
type UserSettings struct {
	UserID           string            `json:"user_id"`
	BlobBucket       string            `json:"blob_bucket"`
	BlobPublicURL    string            `json:"blob_public_url"`
	ElevenLabsKey    string            `json:"elevenlabs_api_key"`
	GeminiKey        string            `json:"gemini_api_key"`
	MusicCatalogKey  string            `json:"music_catalog_api_key"`
	PromptOverrides  map[string]string `json:"prompt_overrides,omitempty"`
	DefaultVoiceID   string            `json:"default_voice_id,omitempty"`
	DefaultStability float64           `json:"default_stability,omitempty"`
}
