// Package search queries the Google Custom Search JSON API.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/retry"
)

const (
	defaultBaseURL = "https://www.googleapis.com/customsearch/v1"
	maxPageSize    = 10 // Custom Search returns at most 10 items per request
)

// Options configures a GoogleClient
type Options struct {
	APIKey     string
	CX         string // programmable search engine id
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Logger     *observability.Logger
}

// GoogleClient implements domain.WebSearcher
type GoogleClient struct {
	apiKey     string
	cx         string
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	logger     *observability.Logger
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// NewGoogleClient creates a Custom Search client
func NewGoogleClient(opts Options) *GoogleClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	return &GoogleClient{
		apiKey:     opts.APIKey,
		cx:         opts.CX,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry.DefaultConfig().WithMaxRetries(opts.MaxRetries),
		logger:     logger.WithOperation("search"),
	}
}

// Search runs a query restricted to q.Domain and returns results in rank order.
// Zero hits is an empty slice, not an error.
func (c *GoogleClient) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	if c.apiKey == "" || c.cx == "" {
		return nil, domain.SearchError("Search credentials are not configured", nil)
	}

	reqURL, err := c.buildURL(q)
	if err != nil {
		return nil, domain.SearchError("Invalid search endpoint", err)
	}

	resp, err := retry.Do(ctx, c.retry, c.logger, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, domain.SearchError("Search request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, domain.SearchError(fmt.Sprintf("Search returned status %d", resp.StatusCode), fmt.Errorf("%s", body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.SearchError("Failed to parse search response", err)
	}

	results := make([]domain.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		results = append(results, domain.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}

	c.logger.Debug().
		Str("query", q.Query).
		Int("results", len(results)).
		Msg("Search complete")

	return results, nil
}

func (c *GoogleClient) buildURL(q domain.SearchQuery) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	count := q.Count
	if count <= 0 || count > maxPageSize {
		count = maxPageSize
	}

	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("num", strconv.Itoa(count))
	if q.Domain != "" {
		params.Set("siteSearch", q.Domain)
		params.Set("siteSearchFilter", "i")
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}
