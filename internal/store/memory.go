// Package store holds all persistent state for the studio: users, series,
// videos, and every per-stage artifact. The in-memory implementation is the
// reference; everything is guarded by one RWMutex.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"historymaker/internal/model"
)

type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]model.User
	userByEmail map[string]string
	userByToken map[string]string

	series        map[string]model.Series
	videos        map[string]model.Video
	scriptByVideo map[string]model.Script

	audios   map[string]model.Audio
	visuals  map[string]model.Visual
	variants map[string]model.VisualVariant
	clips    map[string]model.VideoClip

	musicByVideo map[string]model.MusicSelection
	settings     map[string]model.UserSettings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[string]model.User{},
		userByEmail:   map[string]string{},
		userByToken:   map[string]string{},
		series:        map[string]model.Series{},
		videos:        map[string]model.Video{},
		scriptByVideo: map[string]model.Script{},
		audios:        map[string]model.Audio{},
		visuals:       map[string]model.Visual{},
		variants:      map[string]model.VisualVariant{},
		clips:         map[string]model.VideoClip{},
		musicByVideo:  map[string]model.MusicSelection{},
		settings:      map[string]model.UserSettings{},
	}
}

// --- users ---

func (s *MemoryStore) CreateUser(email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return model.User{}, fmt.Errorf("%w: email is required", model.ErrInvalid)
	}
	if _, exists := s.userByEmail[email]; exists {
		return model.User{}, fmt.Errorf("%w: email already registered", model.ErrInvalid)
	}

	user := model.User{
		ID:        uuid.NewString(),
		Email:     email,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	s.users[user.ID] = user
	s.userByEmail[email] = user.ID
	s.userByToken[user.Token] = user.ID
	return user, nil
}

func (s *MemoryStore) GetUser(id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByToken(token string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userByToken[token]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return s.users[id], nil
}

// --- series ---

func (s *MemoryStore) CreateSeries(userID, topic string) (model.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(topic) == "" {
		return model.Series{}, fmt.Errorf("%w: topic is required", model.ErrInvalid)
	}
	now := time.Now().UTC()
	sr := model.Series{
		ID:        uuid.NewString(),
		UserID:    userID,
		Topic:     strings.TrimSpace(topic),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.series[sr.ID] = sr
	return sr, nil
}

func (s *MemoryStore) GetSeries(userID, seriesID string) (model.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSeriesLocked(userID, seriesID)
}

func (s *MemoryStore) getSeriesLocked(userID, seriesID string) (model.Series, error) {
	sr, ok := s.series[seriesID]
	if !ok {
		return model.Series{}, model.ErrNotFound
	}
	if sr.UserID != userID {
		return model.Series{}, model.ErrForbidden
	}
	return sr, nil
}

func (s *MemoryStore) ListSeries(userID string) []model.Series {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Series
	for _, sr := range s.series {
		if sr.UserID == userID {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) UpdateSeriesTopic(userID, seriesID, topic string) (model.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, err := s.getSeriesLocked(userID, seriesID)
	if err != nil {
		return model.Series{}, err
	}
	if strings.TrimSpace(topic) == "" {
		return model.Series{}, fmt.Errorf("%w: topic is required", model.ErrInvalid)
	}
	sr.Topic = strings.TrimSpace(topic)
	sr.UpdatedAt = time.Now().UTC()
	s.series[seriesID] = sr
	return sr, nil
}

// DeleteSeries removes a series and cascades through its videos, scripts,
// and every downstream artifact.
func (s *MemoryStore) DeleteSeries(userID, seriesID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getSeriesLocked(userID, seriesID); err != nil {
		return err
	}
	for id, v := range s.videos {
		if v.SeriesID == seriesID {
			s.deleteVideoLocked(id)
		}
	}
	delete(s.series, seriesID)
	return nil
}

// --- videos ---

func (s *MemoryStore) CreateVideo(userID string, video model.Video) (model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getSeriesLocked(userID, video.SeriesID); err != nil {
		return model.Video{}, err
	}
	if video.ID == "" {
		video.ID = uuid.NewString()
	}
	if video.Status == "" {
		video.Status = model.StatusPlanned
	}
	if video.CreatedAt.IsZero() {
		video.CreatedAt = time.Now().UTC()
	}
	s.videos[video.ID] = video
	return video, nil
}

func (s *MemoryStore) GetVideo(userID, videoID string) (model.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getVideoLocked(userID, videoID)
}

func (s *MemoryStore) getVideoLocked(userID, videoID string) (model.Video, error) {
	v, ok := s.videos[videoID]
	if !ok {
		return model.Video{}, model.ErrNotFound
	}
	if _, err := s.getSeriesLocked(userID, v.SeriesID); err != nil {
		return model.Video{}, err
	}
	return v, nil
}

func (s *MemoryStore) ListVideos(userID, seriesID string) ([]model.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getSeriesLocked(userID, seriesID); err != nil {
		return nil, err
	}
	var out []model.Video
	for _, v := range s.videos {
		if v.SeriesID == seriesID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate.Equal(out[j].ScheduledDate) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}

func (s *MemoryStore) UpdateVideo(userID string, video model.Video) (model.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getVideoLocked(userID, video.ID)
	if err != nil {
		return model.Video{}, err
	}
	video.SeriesID = existing.SeriesID
	video.CreatedAt = existing.CreatedAt
	if video.Status == "" {
		video.Status = existing.Status
	}
	s.videos[video.ID] = video
	return video, nil
}

func (s *MemoryStore) SetVideoStatus(userID, videoID string, status model.VideoStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.getVideoLocked(userID, videoID)
	if err != nil {
		return err
	}
	v.Status = status
	s.videos[videoID] = v
	return nil
}

func (s *MemoryStore) DeleteVideo(userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVideoLocked(userID, videoID); err != nil {
		return err
	}
	s.deleteVideoLocked(videoID)
	return nil
}

func (s *MemoryStore) deleteVideoLocked(videoID string) {
	if script, ok := s.scriptByVideo[videoID]; ok {
		for id, a := range s.audios {
			if a.ScriptID == script.ID {
				delete(s.audios, id)
			}
		}
		for id, vis := range s.visuals {
			if vis.ScriptID == script.ID {
				s.deleteVisualLocked(id)
			}
		}
		delete(s.scriptByVideo, videoID)
	}
	delete(s.musicByVideo, videoID)
	delete(s.videos, videoID)
}

// --- scripts ---

// UpsertScript writes the single script for a video, replacing any
// previous one in place.
func (s *MemoryStore) UpsertScript(userID string, script model.Script) (model.Script, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVideoLocked(userID, script.VideoID); err != nil {
		return model.Script{}, err
	}
	if existing, ok := s.scriptByVideo[script.VideoID]; ok {
		script.ID = existing.ID
	} else if script.ID == "" {
		script.ID = uuid.NewString()
	}
	script.UpdatedAt = time.Now().UTC()
	s.scriptByVideo[script.VideoID] = script
	return script, nil
}

func (s *MemoryStore) GetScript(userID, videoID string) (model.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getVideoLocked(userID, videoID); err != nil {
		return model.Script{}, err
	}
	script, ok := s.scriptByVideo[videoID]
	if !ok {
		return model.Script{}, model.ErrNotFound
	}
	return script, nil
}

func (s *MemoryStore) getScriptByIDLocked(userID, scriptID string) (model.Script, error) {
	for _, script := range s.scriptByVideo {
		if script.ID == scriptID {
			if _, err := s.getVideoLocked(userID, script.VideoID); err != nil {
				return model.Script{}, err
			}
			return script, nil
		}
	}
	return model.Script{}, model.ErrNotFound
}

func (s *MemoryStore) GetScriptByID(userID, scriptID string) (model.Script, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getScriptByIDLocked(userID, scriptID)
}

// --- audio takes ---

func (s *MemoryStore) CreateAudio(userID string, audio model.Audio) (model.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getScriptByIDLocked(userID, audio.ScriptID); err != nil {
		return model.Audio{}, err
	}
	if audio.ID == "" {
		audio.ID = uuid.NewString()
	}
	audio.CreatedAt = time.Now().UTC()
	s.audios[audio.ID] = audio
	return audio, nil
}

func (s *MemoryStore) UpdateAudio(userID string, audio model.Audio) (model.Audio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.audios[audio.ID]
	if !ok {
		return model.Audio{}, model.ErrNotFound
	}
	if _, err := s.getScriptByIDLocked(userID, existing.ScriptID); err != nil {
		return model.Audio{}, err
	}
	audio.ScriptID = existing.ScriptID
	audio.CreatedAt = existing.CreatedAt
	s.audios[audio.ID] = audio
	return audio, nil
}

func (s *MemoryStore) ListAudios(userID, scriptID string) ([]model.Audio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getScriptByIDLocked(userID, scriptID); err != nil {
		return nil, err
	}
	var out []model.Audio
	for _, a := range s.audios {
		if a.ScriptID == scriptID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteAudio(userID, audioID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.audios[audioID]
	if !ok {
		return model.ErrNotFound
	}
	if _, err := s.getScriptByIDLocked(userID, a.ScriptID); err != nil {
		return err
	}
	delete(s.audios, audioID)
	return nil
}

// --- visuals ---

// UpsertVisual writes a visual slot. (script_id, sequence_number) is the
// natural key: re-tagging a script overwrites its slots in place, keeping
// their ids and variants.
func (s *MemoryStore) UpsertVisual(userID string, visual model.Visual) (model.Visual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getScriptByIDLocked(userID, visual.ScriptID); err != nil {
		return model.Visual{}, err
	}
	for id, existing := range s.visuals {
		if existing.ScriptID == visual.ScriptID && existing.SequenceNumber == visual.SequenceNumber {
			visual.ID = id
			visual.CreatedAt = existing.CreatedAt
			s.visuals[id] = visual
			return visual, nil
		}
	}
	if visual.ID == "" {
		visual.ID = uuid.NewString()
	}
	visual.CreatedAt = time.Now().UTC()
	s.visuals[visual.ID] = visual
	return visual, nil
}

func (s *MemoryStore) GetVisual(userID, visualID string) (model.Visual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getVisualLocked(userID, visualID)
}

func (s *MemoryStore) getVisualLocked(userID, visualID string) (model.Visual, error) {
	v, ok := s.visuals[visualID]
	if !ok {
		return model.Visual{}, model.ErrNotFound
	}
	if _, err := s.getScriptByIDLocked(userID, v.ScriptID); err != nil {
		return model.Visual{}, err
	}
	return v, nil
}

func (s *MemoryStore) ListVisuals(userID, scriptID string) ([]model.Visual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getScriptByIDLocked(userID, scriptID); err != nil {
		return nil, err
	}
	var out []model.Visual
	for _, v := range s.visuals {
		if v.ScriptID == scriptID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (s *MemoryStore) DeleteVisualsForScript(userID, scriptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getScriptByIDLocked(userID, scriptID); err != nil {
		return err
	}
	for id, v := range s.visuals {
		if v.ScriptID == scriptID {
			s.deleteVisualLocked(id)
		}
	}
	return nil
}

func (s *MemoryStore) deleteVisualLocked(visualID string) {
	for id, variant := range s.variants {
		if variant.VisualID == visualID {
			delete(s.variants, id)
		}
	}
	for id, clip := range s.clips {
		if clip.VisualID == visualID {
			delete(s.clips, id)
		}
	}
	delete(s.visuals, visualID)
}

// --- visual variants ---

func (s *MemoryStore) CreateVariant(userID string, variant model.VisualVariant) (model.VisualVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVisualLocked(userID, variant.VisualID); err != nil {
		return model.VisualVariant{}, err
	}
	if variant.ID == "" {
		variant.ID = uuid.NewString()
	}
	variant.CreatedAt = time.Now().UTC()
	if variant.IsSelected {
		s.deselectSiblingsLocked(variant.VisualID, variant.ID)
	}
	s.variants[variant.ID] = variant
	return variant, nil
}

func (s *MemoryStore) GetVariant(userID, variantID string) (model.VisualVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variant, ok := s.variants[variantID]
	if !ok {
		return model.VisualVariant{}, model.ErrNotFound
	}
	if _, err := s.getVisualLocked(userID, variant.VisualID); err != nil {
		return model.VisualVariant{}, err
	}
	return variant, nil
}

func (s *MemoryStore) UpdateVariant(userID string, variant model.VisualVariant) (model.VisualVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.variants[variant.ID]
	if !ok {
		return model.VisualVariant{}, model.ErrNotFound
	}
	if _, err := s.getVisualLocked(userID, existing.VisualID); err != nil {
		return model.VisualVariant{}, err
	}
	variant.VisualID = existing.VisualID
	variant.CreatedAt = existing.CreatedAt
	if variant.IsSelected && !existing.IsSelected {
		s.deselectSiblingsLocked(variant.VisualID, variant.ID)
	}
	s.variants[variant.ID] = variant
	return variant, nil
}

// SelectVariant marks one variant selected and deselects its siblings in
// the same locked section, so at most one variant per visual is ever
// selected.
func (s *MemoryStore) SelectVariant(userID, variantID string) (model.VisualVariant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	variant, ok := s.variants[variantID]
	if !ok {
		return model.VisualVariant{}, model.ErrNotFound
	}
	if _, err := s.getVisualLocked(userID, variant.VisualID); err != nil {
		return model.VisualVariant{}, err
	}
	s.deselectSiblingsLocked(variant.VisualID, variantID)
	variant.IsSelected = true
	s.variants[variantID] = variant
	return variant, nil
}

func (s *MemoryStore) deselectSiblingsLocked(visualID, keepID string) {
	for id, v := range s.variants {
		if v.VisualID == visualID && id != keepID && v.IsSelected {
			v.IsSelected = false
			s.variants[id] = v
		}
	}
}

func (s *MemoryStore) ListVariants(userID, visualID string) ([]model.VisualVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getVisualLocked(userID, visualID); err != nil {
		return nil, err
	}
	var out []model.VisualVariant
	for _, v := range s.variants {
		if v.VisualID == visualID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SelectedVariant(userID, visualID string) (model.VisualVariant, error) {
	variants, err := s.ListVariants(userID, visualID)
	if err != nil {
		return model.VisualVariant{}, err
	}
	for _, v := range variants {
		if v.IsSelected {
			return v, nil
		}
	}
	return model.VisualVariant{}, model.ErrNotFound
}

// --- video clips ---

func (s *MemoryStore) UpsertClip(userID string, clip model.VideoClip) (model.VideoClip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVisualLocked(userID, clip.VisualID); err != nil {
		return model.VideoClip{}, err
	}
	if clip.ID == "" {
		// One clip per visual.
		for id, existing := range s.clips {
			if existing.VisualID == clip.VisualID {
				clip.ID = id
				break
			}
		}
		if clip.ID == "" {
			clip.ID = uuid.NewString()
		}
	}
	clip.UpdatedAt = time.Now().UTC()
	s.clips[clip.ID] = clip
	return clip, nil
}

func (s *MemoryStore) GetClip(userID, clipID string) (model.VideoClip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clip, ok := s.clips[clipID]
	if !ok {
		return model.VideoClip{}, model.ErrNotFound
	}
	if _, err := s.getVisualLocked(userID, clip.VisualID); err != nil {
		return model.VideoClip{}, err
	}
	return clip, nil
}

func (s *MemoryStore) GetClipForVisual(userID, visualID string) (model.VideoClip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getVisualLocked(userID, visualID); err != nil {
		return model.VideoClip{}, err
	}
	for _, clip := range s.clips {
		if clip.VisualID == visualID {
			return clip, nil
		}
	}
	return model.VideoClip{}, model.ErrNotFound
}

func (s *MemoryStore) ListClips(userID, scriptID string) ([]model.VideoClip, error) {
	visuals, err := s.ListVisuals(userID, scriptID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.VideoClip
	for _, visual := range visuals {
		for _, clip := range s.clips {
			if clip.VisualID == visual.ID {
				out = append(out, clip)
			}
		}
	}
	return out, nil
}

// --- music ---

func (s *MemoryStore) SaveMusicSelection(userID string, sel model.MusicSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getVideoLocked(userID, sel.VideoID); err != nil {
		return err
	}
	if len(sel.TrackIDs) == 0 {
		return fmt.Errorf("%w: at least one track is required", model.ErrInvalid)
	}
	s.musicByVideo[sel.VideoID] = sel
	return nil
}

func (s *MemoryStore) GetMusicSelection(userID, videoID string) (model.MusicSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getVideoLocked(userID, videoID); err != nil {
		return model.MusicSelection{}, err
	}
	sel, ok := s.musicByVideo[videoID]
	if !ok {
		return model.MusicSelection{}, model.ErrNotFound
	}
	return sel, nil
}

// --- settings ---

func (s *MemoryStore) SaveSettings(settings model.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if settings.UserID == "" {
		return fmt.Errorf("%w: user id is required", model.ErrInvalid)
	}
	s.settings[settings.UserID] = settings
	return nil
}

// GetSettings returns the user's settings, zero-valued when none were
// ever saved.
func (s *MemoryStore) GetSettings(userID string) model.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	settings, ok := s.settings[userID]
	if !ok {
		return model.UserSettings{UserID: userID}
	}
	return settings
}
