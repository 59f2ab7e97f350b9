package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/polyfarm/backend/internal/httputil"
)

// errNoData marks a clean "this address has no record here" answer,
// as opposed to a transport failure.
var errNoData = fmt.Errorf("no data")

// Client is the shared data-API accessor. Each request goes out through the
// calling account's proxy endpoint, so one farm's traffic never shares an
// exit IP with another's.
type Client struct {
	baseURL string
	timeout time.Duration
	retry   httputil.RetryConfig
}

func NewClient(baseURL string, timeout time.Duration, maxAttempts int) *Client {
	if maxAttempts <= 0 {
		maxAttempts = httputil.DefaultRetry.MaxAttempts
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		retry: httputil.RetryConfig{
			MaxAttempts: maxAttempts,
			BaseDelay:   2 * time.Second,
			MaxDelay:    15 * time.Second,
		},
	}
}

// getJSON fetches baseURL+path?query through the given proxy (nil means a
// direct connection) and decodes the body into v. Returns errNoData on 404.
func (c *Client) getJSON(ctx context.Context, proxy *url.URL, path string, query url.Values, v any) error {
	client := &http.Client{Timeout: c.timeout}
	if proxy != nil {
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxy)}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	resp, err := httputil.Do(ctx, client, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNoData
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
