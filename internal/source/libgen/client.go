// Package libgen implements the multi-mirror scraped-catalog adapter.
// Mirrors fail independently; per-mirror health lives in the injected
// tracker and survives across searches.
package libgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/ratelimit"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
	"github.com/inkleafapp/inkleaf-server/internal/source"
)

const (
	// Rate limit: 1 request per second per mirror, burst of 2.
	defaultRPS   = 1.0
	defaultBurst = 2

	defaultTimeout = 30 * time.Second

	// mirrorMaxAttempts is the retry budget per mirror. Failures move on
	// to the next mirror, so long in-place retries don't pay off.
	mirrorMaxAttempts = 2

	// earlyStopResults ends the mirror sweep once a healthy mirror has
	// yielded this many results, so a satisfied query doesn't hammer the
	// rest of the pool.
	earlyStopResults = 10

	resultsPerPage = 25
)

// Client queries a fixed pool of catalog mirrors.
type Client struct {
	http    *http.Client
	mirrors []string
	tracker *mirror.HealthTracker
	retrier *retry.Executor
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a new catalog client over the given mirror pool.
func New(mirrors []string, tracker *mirror.HealthTracker, retrier *retry.Executor, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		mirrors: mirrors,
		tracker: tracker,
		retrier: retrier,
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		logger:  logger,
	}
}

// ID identifies this adapter's upstream.
func (c *Client) ID() domain.Source {
	return domain.SourceLibgen
}

// Search sweeps the mirror pool in health order, accumulating parsed
// results. Mirrors in cooldown are skipped; each attempted mirror's outcome
// and latency feed back into the tracker. The sweep stops early once a
// healthy mirror has yielded enough results.
func (c *Client) Search(ctx context.Context, q source.Query) ([]domain.BookRecord, error) {
	ranked := c.tracker.RankByHealth(c.mirrors)

	var all []domain.BookRecord
	attempted := 0

	for _, m := range ranked {
		if !c.tracker.ShouldTry(m) {
			c.logger.Debug("skipping mirror in cooldown", "mirror", m)
			continue
		}
		attempted++

		start := time.Now()
		records, err := c.searchMirror(ctx, m, q)
		elapsed := time.Since(start)

		if err != nil {
			c.tracker.RecordFailure(m)
			c.logger.Debug("mirror search failed",
				"mirror", m,
				"elapsed", elapsed,
				"error", err,
			)
			if ctx.Err() != nil {
				// The caller's deadline is gone; no point sweeping on.
				break
			}
			continue
		}

		c.tracker.RecordSuccess(m, elapsed)
		all = append(all, records...)

		if c.tracker.IsHealthy(m) && len(records) >= earlyStopResults {
			c.logger.Debug("mirror satisfied query, stopping sweep",
				"mirror", m,
				"count", len(records),
			)
			break
		}
	}

	// An empty sweep is unavailability, whether the mirrors errored, sat in
	// cooldown, or answered with empty catalog tables.
	if len(all) == 0 {
		return nil, &UnavailableError{Attempted: attempted}
	}

	return all, nil
}

// searchMirror runs one retried search against a single mirror.
func (c *Client) searchMirror(ctx context.Context, m string, q source.Query) ([]domain.BookRecord, error) {
	base, err := url.Parse(m)
	if err != nil {
		return nil, wrapError("search", m, err)
	}

	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("req", q.Text)
	params.Set("column", "def")
	params.Set("view", "simple")
	params.Set("res", fmt.Sprintf("%d", resultsPerPage))
	params.Set("page", fmt.Sprintf("%d", page))
	searchURL := m + "/search.php?" + params.Encode()

	var body string
	err = c.retrier.Do(ctx, "libgen search "+base.Host, mirrorMaxAttempts, func(ctx context.Context) error {
		var fetchErr error
		body, fetchErr = c.fetch(ctx, base.Host, searchURL)
		return fetchErr
	})
	if err != nil {
		return nil, wrapError("search", m, err)
	}

	records, err := parseCatalogPage(body, base)
	if err != nil {
		return nil, wrapError("search", m, err)
	}

	// Extension filtering happens client-side; the catalog has no reliable
	// format parameter.
	if len(q.Formats) > 0 {
		filtered := records[:0]
		for _, r := range records {
			if q.WantsFormat(r.Extension) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	c.logger.Debug("mirror search results",
		"mirror", m,
		"query", q.Text,
		"count", len(records),
	)
	return records, nil
}

// fetch executes one rate-limited GET against a mirror.
func (c *Client) fetch(ctx context.Context, host, fetchURL string) (string, error) {
	if err := c.limiter.Wait(ctx, host); err != nil {
		return "", classifyErr(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Inkleaf/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyErr(err)
	}
	return string(body), nil
}

// classifyErr keeps deadline overruns distinct from other transport errors.
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
