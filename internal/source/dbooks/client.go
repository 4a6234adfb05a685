// Package dbooks implements the single-endpoint dbooks metadata API adapter.
package dbooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
)

const (
	// Rate limit: 2 requests per second, burst of 5.
	defaultRPS   = 2.0
	defaultBurst = 5

	defaultTimeout = 30 * time.Second

	// searchMaxAttempts is how often a search call is retried.
	searchMaxAttempts = 3
)

// Client is a rate-limited dbooks API client.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	retrier *retry.Executor
	baseURL string
	logger  *slog.Logger
}

// New creates a new dbooks client.
func New(baseURL string, retrier *retry.Executor, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
		retrier: retrier,
		baseURL: baseURL,
		logger:  logger,
	}
}

// ID identifies this adapter's upstream.
func (c *Client) ID() domain.Source {
	return domain.SourceDbooks
}

// doRequest executes a rate-limited GET and returns the response body.
// Deadline overruns surface as ErrTimeout so callers can report the
// specific cause; 5xx responses surface as ErrUnavailable.
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, classifyErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Inkleaf/1.0")

	c.logger.Debug("dbooks request", "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyErr(err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, ErrBadRequest
	case resp.StatusCode >= 500:
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// classifyErr maps transport errors to the package sentinels, keeping
// deadline overruns distinct from other failures.
func classifyErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return err
}
