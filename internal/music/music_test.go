package music

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/musiccat"
	"historymaker/internal/store"
)

type fakeGateway struct {
	jsonText string
	jsonErr  error
}

func (f *fakeGateway) Invoke(_ context.Context, _ llm.Request) (string, error) {
	return f.jsonText, f.jsonErr
}

func (f *fakeGateway) InvokeJSON(_ context.Context, _ llm.Request, out any) error {
	if f.jsonErr != nil {
		return f.jsonErr
	}
	return json.Unmarshal([]byte(f.jsonText), out)
}

type fakeCatalog struct {
	tracks   []musiccat.Track
	lastCrit musiccat.Criteria
}

func (f *fakeCatalog) Search(_ context.Context, _ string, criteria musiccat.Criteria, _ int) ([]musiccat.Track, error) {
	f.lastCrit = criteria
	return f.tracks, nil
}

func seed(t *testing.T) (*store.MemoryStore, model.User, model.Video) {
	t.Helper()
	st := store.NewMemoryStore()
	user, err := st.CreateUser("supervisor@example.com")
	if err != nil {
		t.Fatal(err)
	}
	series, _ := st.CreateSeries(user.ID, "The Roman Empire")
	video, _ := st.CreateVideo(user.ID, model.Video{SeriesID: series.ID, Title: "Part 1"})
	_, _ = st.UpsertScript(user.ID, model.Script{VideoID: video.ID, GeneratedScript: "The fall of Rome."})

	settings := st.GetSettings(user.ID)
	settings.MusicCatalogKey = "cat-key"
	_ = st.SaveSettings(settings)
	return st, user, video
}

func TestAnalyze(t *testing.T) {
	st, user, video := seed(t)
	gw := &fakeGateway{jsonText: `{
		"mood": "somber",
		"tempo": "60-80 bpm",
		"genres": ["orchestral", "ambient"],
		"sections": [{"startPosition": 0, "endPosition": 50, "mood": "quiet", "intensity": "low"}]
	}`}
	svc := NewService(gw, st)

	analysis, err := svc.Analyze(context.Background(), user.ID, video.ID)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Mood != "somber" || len(analysis.Genres) != 2 || len(analysis.Sections) != 1 {
		t.Errorf("analysis = %+v", analysis)
	}
}

func TestAnalyzeRequiresScript(t *testing.T) {
	st, user, _ := seed(t)
	series, _ := st.CreateSeries(user.ID, "Another")
	bare, _ := st.CreateVideo(user.ID, model.Video{SeriesID: series.ID, Title: "No script"})

	svc := NewService(&fakeGateway{}, st)
	_, err := svc.Analyze(context.Background(), user.ID, bare.ID)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchPassesCriteria(t *testing.T) {
	st, user, _ := seed(t)
	catalog := &fakeCatalog{tracks: []musiccat.Track{{CatalogID: "t1"}}}
	svc := NewService(&fakeGateway{}, st)
	svc.newCatalog = func(string) Catalog { return catalog }

	tracks, err := svc.Search(context.Background(), user.ID, SearchRequest{
		Mood: "somber", Tempo: "slow", Genres: []string{"orchestral"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("tracks = %v", tracks)
	}
	if catalog.lastCrit.Mood != "somber" || len(catalog.lastCrit.Genres) != 1 {
		t.Errorf("criteria = %+v", catalog.lastCrit)
	}
}

func TestSearchRequiresKey(t *testing.T) {
	st, user, _ := seed(t)
	settings := st.GetSettings(user.ID)
	settings.MusicCatalogKey = ""
	_ = st.SaveSettings(settings)

	svc := NewService(&fakeGateway{}, st)
	_, err := svc.Search(context.Background(), user.ID, SearchRequest{Mood: "x"})
	if !errors.Is(err, model.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSaveReplacesSelection(t *testing.T) {
	st, user, video := seed(t)
	svc := NewService(&fakeGateway{}, st)

	if _, err := svc.Save(context.Background(), user.ID, video.ID, []string{"t1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(context.Background(), user.ID, video.ID, []string{"t2", "t3"}); err != nil {
		t.Fatal(err)
	}

	sel, err := st.GetMusicSelection(user.ID, video.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.TrackIDs) != 2 || sel.TrackIDs[0] != "t2" {
		t.Errorf("selection = %v", sel.TrackIDs)
	}
}
