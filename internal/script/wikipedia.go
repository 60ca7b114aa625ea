package script

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"historymaker/internal/llm"
	"historymaker/internal/model"
	"historymaker/pkg/httputil"
)

const wikipediaBaseURL = "https://en.wikipedia.org/w/api.php"

type Article struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// WikipediaClient finds and fetches source material for scripts.
type WikipediaClient struct {
	httpClient *httputil.RetryClient
	baseURL    string
}

func NewWikipediaClient() *WikipediaClient {
	return &WikipediaClient{
		httpClient: httputil.NewRetryClient(&http.Client{Timeout: 15 * time.Second}, httputil.DefaultRetryConfig()),
		baseURL:    wikipediaBaseURL,
	}
}

// Search returns up to ten matching articles with a short intro extract.
func (c *WikipediaClient) Search(ctx context.Context, query string) ([]Article, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", model.ErrInvalid)
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", "10")
	params.Set("format", "json")

	var searchResp struct {
		Query struct {
			Search []struct {
				PageID int    `json:"pageid"`
				Title  string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &searchResp); err != nil {
		return nil, err
	}
	if len(searchResp.Query.Search) == 0 {
		return nil, nil
	}

	var pageIDs []string
	for _, r := range searchResp.Query.Search {
		pageIDs = append(pageIDs, fmt.Sprintf("%d", r.PageID))
	}

	extractParams := url.Values{}
	extractParams.Set("action", "query")
	extractParams.Set("pageids", strings.Join(pageIDs, "|"))
	extractParams.Set("prop", "extracts")
	extractParams.Set("exintro", "1")
	extractParams.Set("explaintext", "1")
	extractParams.Set("exsentences", "3")
	extractParams.Set("format", "json")

	var extractResp struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, extractParams, &extractResp); err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(searchResp.Query.Search))
	for _, r := range searchResp.Query.Search {
		extract := extractResp.Query.Pages[fmt.Sprintf("%d", r.PageID)].Extract
		articles = append(articles, Article{PageID: r.PageID, Title: r.Title, Extract: extract})
	}
	return articles, nil
}

// Content fetches the full plain-text body of one article.
func (c *WikipediaClient) Content(ctx context.Context, pageID int) (Article, error) {
	if pageID <= 0 {
		return Article{}, fmt.Errorf("%w: page id is required", model.ErrInvalid)
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("pageids", fmt.Sprintf("%d", pageID))
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("format", "json")

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
				Missing any    `json:"missing"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return Article{}, err
	}

	page, ok := resp.Query.Pages[fmt.Sprintf("%d", pageID)]
	if !ok || page.Missing != nil || page.Title == "" {
		return Article{}, fmt.Errorf("%w: article %d", model.ErrNotFound, pageID)
	}
	return Article{PageID: pageID, Title: page.Title, Extract: page.Extract}, nil
}

func (c *WikipediaClient) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "HistoryMaker/1.0 (https://historymaker.app)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.NewUpstreamError("wikipedia", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// SetBaseURL overrides the endpoint for testing.
func (c *WikipediaClient) SetBaseURL(u string) {
	c.baseURL = u
}

// SearchKeywords asks the model for article search terms, most specific
// first. On any model or parse failure the topic itself is the fallback.
func (s *Service) SearchKeywords(ctx context.Context, topic string) ([]string, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%w: topic is required", model.ErrInvalid)
	}

	system := `You are a research assistant. Generate optimal search keywords for finding encyclopedia articles about historical topics.
Return a JSON array of 3-5 search terms, ordered from most specific to most general.`

	var keywords []string
	err := s.gateway.InvokeJSON(ctx, llm.Request{
		Tier:      llm.TierFast,
		System:    system,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "Generate search keywords for: " + topic}},
		MaxTokens: 512,
	}, &keywords)
	if err != nil || len(keywords) == 0 {
		return []string{topic}, nil
	}
	return keywords, nil
}
