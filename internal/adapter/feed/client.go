// Package feed retrieves the AuroraWatch UK activity document over HTTP.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/couchcryptid/aurora-watch-service/internal/domain"
	"github.com/couchcryptid/aurora-watch-service/internal/retry"
)

// maxBodyBytes caps the document size; the real feed is a few kilobytes.
const maxBodyBytes = 4 << 20

// Client fetches the raw feed document.
type Client struct {
	url        string
	httpClient *http.Client
	policy     retry.Policy
	maxBody    int64
	logger     *slog.Logger
}

// NewClient creates a feed client for url. The policy timeout bounds each
// attempt.
func NewClient(url string, policy retry.Policy, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{},
		policy:     policy,
		maxBody:    maxBodyBytes,
		logger:     logger,
	}
}

// Fetch returns the feed body. Network errors and 5xx responses are retried
// once; any other non-2xx response fails immediately. Every error wraps
// domain.ErrFetch.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		var err error
		body, err = c.doRequest(ctx)
		if err != nil {
			c.logger.Warn("feed request failed", "url", c.url, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("feed status %d: %s", resp.StatusCode, snippet)
		if resp.StatusCode < 500 {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, retry.Permanent(fmt.Errorf("feed exceeds %d bytes", c.maxBody))
	}
	return body, nil
}
