// Package musiccat searches a licensed background-music catalog and ranks
// tracks against the characteristics a script calls for.
package musiccat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"historymaker/internal/model"
)

const (
	defaultBaseURL = "https://api.artlist.io/v1"
	searchTimeout  = 20 * time.Second
)

type Track struct {
	CatalogID   string `json:"catalogId"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	DurationSec int    `json:"duration"`
	Mood        string `json:"mood"`
	Tempo       string `json:"tempo"`
	Genre       string `json:"genre"`
	PreviewURL  string `json:"previewUrl"`
	LicenseInfo string `json:"licenseInfo"`
}

// Criteria describes what the script needs from its background music.
type Criteria struct {
	Mood   string   `json:"mood"`
	Tempo  string   `json:"tempo"`
	Genres []string `json:"genres"`
}

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: searchTimeout},
		baseURL:    defaultBaseURL,
	}
}

// Search queries the catalog and returns tracks ranked by how well they
// match the criteria.
func (c *Client) Search(ctx context.Context, query string, criteria Criteria, limit int) ([]Track, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: music catalog api key not set", model.ErrNotConfigured)
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	if criteria.Mood != "" {
		params.Set("mood", criteria.Mood)
	}
	if criteria.Tempo != "" {
		params.Set("tempo", criteria.Tempo)
	}
	if len(criteria.Genres) > 0 {
		params.Set("genre", strings.Join(criteria.Genres, ","))
	}
	params.Set("limit", fmt.Sprintf("%d", limit*3))

	endpoint := fmt.Sprintf("%s/tracks?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewUpstreamError("musiccatalog", resp.StatusCode, body)
	}

	var searchResp struct {
		Tracks []Track `json:"tracks"`
	}
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	tracks := RankTracks(searchResp.Tracks, criteria)
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

// RankTracks orders tracks by descending match score against the criteria.
// The sort is stable so catalog relevance order breaks ties.
func RankTracks(tracks []Track, criteria Criteria) []Track {
	ranked := make([]Track, len(tracks))
	copy(ranked, tracks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Score(ranked[i], criteria) > Score(ranked[j], criteria)
	})
	return ranked
}

// Score rates how well a track matches the criteria. Mood counts double
// since it dominates how a documentary feels.
func Score(t Track, criteria Criteria) int {
	score := 0
	if criteria.Mood != "" && fieldMatches(t.Mood, criteria.Mood) {
		score += 2
	}
	if criteria.Tempo != "" && fieldMatches(t.Tempo, criteria.Tempo) {
		score++
	}
	for _, genre := range criteria.Genres {
		if fieldMatches(t.Genre, genre) {
			score++
			break
		}
	}
	return score
}

func fieldMatches(field, want string) bool {
	field = strings.ToLower(strings.TrimSpace(field))
	want = strings.ToLower(strings.TrimSpace(want))
	if field == "" || want == "" {
		return false
	}
	return strings.Contains(field, want) || strings.Contains(want, field)
}

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}
