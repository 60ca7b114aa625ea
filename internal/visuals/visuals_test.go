package visuals

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"historymaker/internal/blob"
	"historymaker/internal/imagegen"
	"historymaker/internal/imagesearch"
	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/internal/store"
)

type fakeGateway struct {
	replies []string
	err     error
	calls   int
}

func (f *fakeGateway) Invoke(_ context.Context, _ llm.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	reply := f.replies[f.calls]
	if f.calls < len(f.replies)-1 {
		f.calls++
	}
	return reply, nil
}

func (f *fakeGateway) InvokeJSON(_ context.Context, _ llm.Request, out any) error {
	text, err := f.Invoke(context.Background(), llm.Request{})
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(text), out)
}

type fakeSearcher struct {
	results []imagesearch.Result
	imgData []byte
	imgMime string
	imgErr  error
	lastReq imagesearch.SearchRequest
	lastURL string
}

func (f *fakeSearcher) Search(_ context.Context, req imagesearch.SearchRequest) ([]imagesearch.Result, error) {
	f.lastReq = req
	return f.results, nil
}

func (f *fakeSearcher) DownloadImage(_ context.Context, url string) ([]byte, string, error) {
	f.lastURL = url
	if f.imgErr != nil {
		return nil, "", f.imgErr
	}
	return f.imgData, f.imgMime, nil
}

type fakeGen struct {
	genData  []byte
	genMime  string
	restyled []byte
}

func (f *fakeGen) Generate(_ context.Context, _ imagegen.GenerateRequest) ([]byte, string, error) {
	return f.genData, f.genMime, nil
}

func (f *fakeGen) Restyle(_ context.Context, _ []byte, _ string) ([]byte, string, error) {
	return f.restyled, "image/png", nil
}

type fixture struct {
	svc    *Service
	store  *store.MemoryStore
	blobs  *blob.MemoryStore
	search *fakeSearcher
	user   model.User
	script model.Script
}

func newFixture(t *testing.T, gw llm.Gateway) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	user, err := st.CreateUser("curator@example.com")
	if err != nil {
		t.Fatal(err)
	}
	series, _ := st.CreateSeries(user.ID, "The Roman Empire")
	video, _ := st.CreateVideo(user.ID, model.Video{SeriesID: series.ID, Title: "Part 1", Format: model.FormatYouTube})
	script, _ := st.UpsertScript(user.ID, model.Script{
		VideoID:         video.ID,
		GeneratedScript: strings.Repeat("word ", 300),
	})

	settings := st.GetSettings(user.ID)
	settings.BlobBucket = "bucket"
	settings.GeminiKey = "gem-key"
	_ = st.SaveSettings(settings)

	search := &fakeSearcher{imgData: []byte("img"), imgMime: "image/jpeg"}
	blobs := blob.NewMemoryStore()

	svc := NewService(gw, st, search, Config{WordsPerMinute: 150, SecondsPerVisual: 8})
	svc.newBlob = func(context.Context, model.UserSettings) (blob.Store, error) { return blobs, nil }
	svc.newGen = func(context.Context, string) (ImageGenerator, error) {
		return &fakeGen{genData: []byte("gen"), genMime: "image/png", restyled: []byte("styled")}, nil
	}

	return &fixture{svc: svc, store: st, blobs: blobs, search: search, user: user, script: script}
}

func (f *fixture) addVisual(t *testing.T) model.Visual {
	t.Helper()
	visual, err := f.store.UpsertVisual(f.user.ID, model.Visual{
		ScriptID:       f.script.ID,
		SequenceNumber: 1,
		Description:    "The Roman Forum at its height",
		Keyword:        "Roman Forum",
	})
	if err != nil {
		t.Fatal(err)
	}
	return visual
}

func TestTargetVisualCount(t *testing.T) {
	svc := &Service{cfg: Config{WordsPerMinute: 150, SecondsPerVisual: 8}}

	// 300 words at 150 wpm is 120s of narration, 15 visuals at 8s each.
	if got := svc.TargetVisualCount(strings.Repeat("word ", 300)); got != 15 {
		t.Errorf("300 words = %d visuals, want 15", got)
	}
	// Tiny scripts still get one visual.
	if got := svc.TargetVisualCount("short"); got != 1 {
		t.Errorf("one word = %d visuals, want 1", got)
	}
}

func TestAutoTagPersistsSlots(t *testing.T) {
	tagged := "(VISUAL 1: The forum | KEYWORD: Roman Forum) text. (VISUAL 2: A legion | KEYWORD: Roman legion) more."
	f := newFixture(t, &fakeGateway{replies: []string{tagged}})

	result, err := f.svc.AutoTag(context.Background(), f.user.ID, f.script.ID)
	if err != nil {
		t.Fatalf("AutoTag: %v", err)
	}
	if len(result.Visuals) != 2 {
		t.Fatalf("expected 2 visuals, got %d", len(result.Visuals))
	}
	if result.Visuals[0].Keyword != "Roman Forum" {
		t.Errorf("keyword = %q", result.Visuals[0].Keyword)
	}

	stored, _ := f.store.ListVisuals(f.user.ID, f.script.ID)
	if len(stored) != 2 {
		t.Errorf("store has %d visuals", len(stored))
	}

	video, _ := f.store.GetVideo(f.user.ID, f.script.VideoID)
	if video.Status != model.StatusImage {
		t.Errorf("video status = %s", video.Status)
	}
}

func TestAutoTagRetriesOnceOnNoMarkers(t *testing.T) {
	gw := &fakeGateway{replies: []string{
		"A reply with no markers at all.",
		"(VISUAL 1: The forum | KEYWORD: Roman Forum) text.",
	}}
	f := newFixture(t, gw)

	result, err := f.svc.AutoTag(context.Background(), f.user.ID, f.script.ID)
	if err != nil {
		t.Fatalf("AutoTag: %v", err)
	}
	if len(result.Visuals) != 1 {
		t.Errorf("expected 1 visual after retry, got %d", len(result.Visuals))
	}
}

func TestAutoTagFailsAfterTwoEmptyReplies(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{"nothing", "still nothing"}})

	_, err := f.svc.AutoTag(context.Background(), f.user.ID, f.script.ID)
	if err == nil {
		t.Fatal("expected failure after two markerless replies")
	}
}

func TestAutoTagReplacesSlotsInPlace(t *testing.T) {
	first := "(VISUAL 1: Old description | KEYWORD: old) text."
	second := "(VISUAL 1: New description | KEYWORD: new) text."
	f := newFixture(t, &fakeGateway{replies: []string{first, second}})

	r1, err := f.svc.AutoTag(context.Background(), f.user.ID, f.script.ID)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := f.svc.AutoTag(context.Background(), f.user.ID, f.script.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r2.Visuals[0].ID != r1.Visuals[0].ID {
		t.Error("re-tagging the same slot changed its id")
	}
	if r2.Visuals[0].Description != "New description" {
		t.Errorf("description = %q", r2.Visuals[0].Description)
	}
}

func TestSearchImagesDefaultsToKeyword(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)
	f.search.results = []imagesearch.Result{{URL: "http://img/1.jpg"}}

	results, err := f.svc.SearchImages(context.Background(), f.user.ID, visual.ID, SearchImagesRequest{MediaFilter: "paintings"})
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result")
	}
	if f.search.lastReq.Query != "Roman Forum" {
		t.Errorf("query = %q, want the slot keyword", f.search.lastReq.Query)
	}
	if f.search.lastReq.MediaFilter != "paintings" {
		t.Errorf("media filter = %q", f.search.lastReq.MediaFilter)
	}
}

func TestAddVariantFromURL(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)

	variant, err := f.svc.AddVariantFromURL(context.Background(), f.user.ID, visual.ID, "http://commons/img.jpg")
	if err != nil {
		t.Fatalf("AddVariantFromURL: %v", err)
	}
	if !variant.IsSelected {
		t.Error("new variant should be selected")
	}
	// The durable copy replaces the external URL as the variant's source.
	if strings.Contains(variant.SourceURL, "commons") {
		t.Errorf("source url still points at the external host: %q", variant.SourceURL)
	}
	if !strings.Contains(variant.SourceURL, "/images/") {
		t.Errorf("stored copy outside images path: %q", variant.SourceURL)
	}
	if variant.ProcessedURL != "" {
		t.Errorf("unfiltered variant has processed url %q", variant.ProcessedURL)
	}
	if f.blobs.Len() != 1 {
		t.Errorf("blob store has %d objects", f.blobs.Len())
	}
}

// failingBlob rejects every upload.
type failingBlob struct{}

func (failingBlob) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unreachable")
}
func (failingBlob) Get(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("bucket unreachable")
}
func (failingBlob) Close() error { return nil }

func TestAddVariantFailedUploadLeavesNoRow(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)
	f.svc.newBlob = func(context.Context, model.UserSettings) (blob.Store, error) {
		return failingBlob{}, nil
	}

	_, err := f.svc.AddVariantFromURL(context.Background(), f.user.ID, visual.ID, "http://commons/img.jpg")
	if err == nil {
		t.Fatal("expected upload failure")
	}

	variants, _ := f.store.ListVariants(f.user.ID, visual.ID)
	if len(variants) != 0 {
		t.Errorf("failed save left %d variants behind", len(variants))
	}
}

func TestGenerateVariant(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)

	variant, err := f.svc.GenerateVariant(context.Background(), f.user.ID, visual.ID, GenerateVariantRequest{Style: "18th_century_painting"})
	if err != nil {
		t.Fatalf("GenerateVariant: %v", err)
	}
	if !variant.IsAIGenerated {
		t.Error("expected AI-generated flag")
	}
	if variant.SourceURL == "" {
		t.Error("expected stored URL")
	}
}

func TestGenerateVariantRequiresGeminiKey(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)

	settings := f.store.GetSettings(f.user.ID)
	settings.GeminiKey = ""
	_ = f.store.SaveSettings(settings)

	_, err := f.svc.GenerateVariant(context.Background(), f.user.ID, visual.ID, GenerateVariantRequest{})
	if !errors.Is(err, model.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestUploadVariant(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)

	variant, err := f.svc.UploadVariant(context.Background(), f.user.ID, visual.ID, []byte("my-image"), "image/png")
	if err != nil {
		t.Fatalf("UploadVariant: %v", err)
	}
	if variant.SourceURL == "" || !variant.IsSelected {
		t.Errorf("unexpected variant: %+v", variant)
	}
}

func TestFilterVariant(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)

	original, err := f.svc.AddVariantFromURL(context.Background(), f.user.ID, visual.ID, "http://commons/img.jpg")
	if err != nil {
		t.Fatal(err)
	}

	filtered, err := f.svc.FilterVariant(context.Background(), f.user.ID, original.ID)
	if err != nil {
		t.Fatalf("FilterVariant: %v", err)
	}
	if filtered.ID != original.ID {
		t.Error("filtering created a new variant")
	}
	if len(filtered.Filters) != 1 || filtered.Filters[0] != "photorealistic" {
		t.Errorf("filters = %v", filtered.Filters)
	}
	if filtered.ProcessedURL == original.ProcessedURL {
		t.Error("processed url not updated")
	}

	// Re-filtering does not duplicate the filter tag.
	again, err := f.svc.FilterVariant(context.Background(), f.user.ID, original.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Filters) != 1 {
		t.Errorf("filters duplicated: %v", again.Filters)
	}
}

func TestVariantSelectionExclusiveAcrossSourcing(t *testing.T) {
	f := newFixture(t, &fakeGateway{replies: []string{""}})
	visual := f.addVisual(t)

	_, _ = f.svc.AddVariantFromURL(context.Background(), f.user.ID, visual.ID, "http://commons/a.jpg")
	_, _ = f.svc.UploadVariant(context.Background(), f.user.ID, visual.ID, []byte("b"), "image/png")
	third, _ := f.svc.GenerateVariant(context.Background(), f.user.ID, visual.ID, GenerateVariantRequest{})

	variants, _ := f.store.ListVariants(f.user.ID, visual.ID)
	selected := 0
	for _, v := range variants {
		if v.IsSelected {
			selected++
			if v.ID != third.ID {
				t.Errorf("wrong variant selected: %s", v.ID)
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected count = %d", selected)
	}
}
