// Package imagesearch finds candidate images on Wikimedia Commons via its
// CirrusSearch API. No credential is required.
package imagesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"historymaker/internal/model"
	"historymaker/pkg/httputil"
)

const (
	wikimediaBaseURL = "https://commons.wikimedia.org/w/api.php"
	searchTimeout    = 15 * time.Second
	userAgent        = "HistoryMaker/1.0 (https://historymaker.app)"

	// Results below this size are thumbnails, not usable visuals.
	minImageWidth  = 200
	minImageHeight = 150

	// Ask for more than the caller wants; filtering discards plenty.
	fetchCount = 30
)

// Media type filter terms appended to the search query.
var mediaFilterTerms = map[string]string{
	"paintings":  "painting",
	"engravings": "engraving",
	"maps":       "map",
	"pre1900":    "19th century OR 18th century OR 17th century",
}

// Quality tier filters using Commons curation categories.
var qualityFilterTerms = map[string]string{
	"valued":   `incategory:"Valued images"`,
	"featured": `incategory:"Featured pictures"`,
}

var excludedExtensions = []string{".svg", ".pdf", ".ogg", ".webm"}

type SearchRequest struct {
	Query         string
	MediaFilter   string
	QualityFilter string
	Limit         int
}

type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	ThumbURL    string `json:"thumb"`
	License     string `json:"license"`
	Description string `json:"description"`
	Artist      string `json:"artist"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

type wikimediaResponse struct {
	Query struct {
		Pages map[string]wikimediaPage `json:"pages"`
	} `json:"query"`
}

type wikimediaPage struct {
	Title     string `json:"title"`
	ImageInfo []struct {
		URL         string `json:"url"`
		ThumbURL    string `json:"thumburl"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		ExtMetadata struct {
			ImageDescription struct {
				Value string `json:"value"`
			} `json:"ImageDescription"`
			Artist struct {
				Value string `json:"value"`
			} `json:"Artist"`
			License struct {
				Value string `json:"value"`
			} `json:"License"`
		} `json:"extmetadata"`
	} `json:"imageinfo"`
}

type Client struct {
	httpClient *httputil.RetryClient
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: searchTimeout}, httputil.DefaultRetryConfig()),
		baseURL:    wikimediaBaseURL,
	}
}

// Search returns usable bitmap images ranked by pixel area descending.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", model.ErrInvalid)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 3
	}

	reqURL := c.buildSearchURL(req)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.NewUpstreamError("wikimedia", resp.StatusCode, body)
	}

	var searchResp wikimediaResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := filterPages(searchResp.Query.Pages)
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (c *Client) buildSearchURL(req SearchRequest) string {
	// Commas break CirrusSearch term matching.
	query := strings.TrimSpace(strings.ReplaceAll(req.Query, ",", " "))
	if term, ok := mediaFilterTerms[req.MediaFilter]; ok {
		query += " " + term
	}
	if term, ok := qualityFilterTerms[req.QualityFilter]; ok {
		query += " " + term
	}
	query += " filetype:bitmap"

	params := url.Values{}
	params.Set("action", "query")
	params.Set("generator", "search")
	params.Set("gsrnamespace", "6")
	params.Set("gsrsearch", query)
	params.Set("gsrlimit", fmt.Sprintf("%d", fetchCount))
	params.Set("gsrsort", "relevance")
	params.Set("prop", "imageinfo")
	params.Set("iiprop", "url|extmetadata|size")
	params.Set("iiurlwidth", "400")
	params.Set("format", "json")

	return fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
}

func filterPages(pages map[string]wikimediaPage) []Result {
	var results []Result
	areas := map[string]int{}

	for _, page := range pages {
		if len(page.ImageInfo) == 0 {
			continue
		}
		info := page.ImageInfo[0]
		if info.Width < minImageWidth || info.Height < minImageHeight {
			continue
		}
		if hasExcludedExtension(info.URL) {
			continue
		}

		thumb := info.ThumbURL
		if thumb == "" {
			thumb = info.URL
		}
		r := Result{
			URL:         info.URL,
			Title:       strings.TrimPrefix(page.Title, "File:"),
			ThumbURL:    thumb,
			License:     stripHTML(info.ExtMetadata.License.Value),
			Description: truncate(stripHTML(info.ExtMetadata.ImageDescription.Value), 200),
			Artist:      stripHTML(info.ExtMetadata.Artist.Value),
			Width:       info.Width,
			Height:      info.Height,
		}
		results = append(results, r)
		areas[r.URL] = info.Width * info.Height
	}

	sort.Slice(results, func(i, j int) bool {
		return areas[results[i].URL] > areas[results[j].URL]
	})
	return results
}

// DownloadImage fetches an image's raw bytes and content type.
func (c *Client) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", model.NewUpstreamError("wikimedia", resp.StatusCode, nil)
	}

	contentType := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, "", fmt.Errorf("invalid content type: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image data: %w", err)
	}
	return data, contentType, nil
}

// SetBaseURL overrides the endpoint for testing.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

func hasExcludedExtension(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, ""))
}

// truncate cuts on a rune boundary so multi-byte snippets stay valid.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
