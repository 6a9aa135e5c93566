// Package profile fetches social profiles through the Unipile users API.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/observability"
	"github.com/spherical/pitchdeck-analyzer/internal/retry"
	"github.com/tidwall/gjson"
)

const defaultBaseURL = "https://api22.unipile.com:15236"

// Options configures a Client
type Options struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Logger     *observability.Logger
}

// Client implements domain.ProfileProvider
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	logger     *observability.Logger
}

// NewClient creates a Unipile profile client
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
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

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry.DefaultConfig().WithMaxRetries(opts.MaxRetries),
		logger:     logger.WithOperation("profile"),
	}
}

// FetchProfile retrieves the profile addressed by handle. A handle the provider
// does not know yields a ProfileFetchError wrapping domain.ErrProfileNotFound.
func (c *Client) FetchProfile(ctx context.Context, handle, accountID string) (*domain.Profile, error) {
	if c.apiKey == "" || accountID == "" {
		return nil, domain.ProfileFetchError("Profile credentials are not configured", nil)
	}
	if strings.TrimSpace(handle) == "" {
		return nil, domain.ProfileFetchError("Handle is empty", domain.ErrProfileNotFound)
	}

	endpoint := fmt.Sprintf("%s/api/v1/users/%s?%s",
		c.baseURL, url.PathEscape(handle), url.Values{"account_id": {accountID}}.Encode())

	resp, err := retry.Do(ctx, c.retry, c.logger, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("Accept", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, domain.ProfileFetchError("Profile request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.ProfileFetchError("Failed to read profile response", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		c.logger.Debug().Str("handle", handle).Int("status", resp.StatusCode).Msg("Handle not recognized")
		return nil, domain.ProfileFetchError(fmt.Sprintf("Handle %q not recognized", handle), domain.ErrProfileNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, domain.ProfileFetchError(
			fmt.Sprintf("Profile service returned status %d", resp.StatusCode),
			fmt.Errorf("%s", truncate(body, 512)))
	}

	return ParseProfile(body)
}

// ParseProfile builds the typed profile summary and keeps the raw payload
func ParseProfile(body []byte) (*domain.Profile, error) {
	if !gjson.ValidBytes(body) {
		return nil, domain.ProfileFetchError("Profile response is not valid JSON", nil)
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, domain.ProfileFetchError("Profile response is not an object", nil)
	}

	p := &domain.Profile{
		FirstName:        root.Get("first_name").String(),
		LastName:         root.Get("last_name").String(),
		Headline:         root.Get("headline").String(),
		PublicIdentifier: root.Get("public_identifier").String(),
		ConnectionsCount: intPtr(root.Get("connections_count")),
		FollowerCount:    intPtr(root.Get("follower_count")),
		Emails:           stringList(root.Get("contact_info.emails")),
		Websites:         stringList(root.Get("websites")),
		Raw:              json.RawMessage(body),
	}

	location := root.Get("location")
	if location.IsObject() {
		p.Location = location.Get("name").String()
	} else {
		p.Location = location.String()
	}
	if p.PublicIdentifier != "" {
		p.ProfileURL = "https://www.linkedin.com/in/" + p.PublicIdentifier
	}

	return p, nil
}

func intPtr(r gjson.Result) *int {
	if r.Type != gjson.Number {
		return nil
	}
	n := int(r.Int())
	return &n
}

func stringList(r gjson.Result) []string {
	var out []string
	for _, item := range r.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
