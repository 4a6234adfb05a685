// Package search orchestrates the upstream book sources behind their
// circuit breakers and merges their results into one deduplicated list.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/inkleafapp/inkleaf-server/internal/breaker"
	"github.com/inkleafapp/inkleaf-server/internal/cache"
	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/source"
	"github.com/inkleafapp/inkleaf-server/internal/source/dbooks"
	"github.com/inkleafapp/inkleaf-server/internal/source/libgen"
)

// defaultTimeout bounds a search fan-out when the caller passes none.
const defaultTimeout = 15 * time.Second

// Aggregator fans a query out to the enabled sources and merges whatever
// comes back. Search never fails: source-level errors are demoted to
// advisory log events and the other source's results still flow through.
type Aggregator struct {
	dbooksAdapter source.Adapter
	libgenAdapter source.Adapter
	dbooksBreaker *breaker.CircuitBreaker
	libgenBreaker *breaker.CircuitBreaker
	enabled       domain.SourceToggles // deployment-level source switches
	results       *cache.ResultCache   // nil disables caching
	logger        *slog.Logger
}

// NewAggregator wires the aggregator. enabled holds the deployment-level
// source switches; per-request toggles can only narrow them further.
// results may be nil to disable the cache (tests, cache-less deployments).
func NewAggregator(
	dbooksAdapter source.Adapter,
	libgenAdapter source.Adapter,
	dbooksBreaker *breaker.CircuitBreaker,
	libgenBreaker *breaker.CircuitBreaker,
	enabled domain.SourceToggles,
	results *cache.ResultCache,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		dbooksAdapter: dbooksAdapter,
		libgenAdapter: libgenAdapter,
		dbooksBreaker: dbooksBreaker,
		libgenBreaker: libgenBreaker,
		enabled:       enabled,
		results:       results,
		logger:        logger,
	}
}

// Search queries the enabled sources concurrently and returns the merged,
// deduplicated results. An empty slice means total failure or no matches;
// the caller cannot tell the difference and does not need to — per-source
// trouble is visible in logs and the mirror snapshot, never as an error.
//
// The libgen source is only queried for page 1: the mirror catalog has no
// stable pagination contract, so deeper pages come from dbooks alone.
func (a *Aggregator) Search(ctx context.Context, q source.Query, toggles domain.SourceToggles, timeout time.Duration) []domain.BookRecord {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if q.Page < 1 {
		q.Page = 1
	}
	toggles.Dbooks = toggles.Dbooks && a.enabled.Dbooks
	toggles.Libgen = toggles.Libgen && a.enabled.Libgen

	key := cache.Key(q.Text, q.Formats, q.Page, toggles)
	if a.results != nil {
		if cached, ok := a.results.Get(key); ok {
			a.logger.Debug("search served from cache", "query", q.Text, "count", len(cached))
			return cached
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		wg            sync.WaitGroup
		dbooksRecords []domain.BookRecord
		libgenRecords []domain.BookRecord
	)

	if toggles.Dbooks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dbooksRecords = a.querySource(ctx, a.dbooksAdapter, a.dbooksBreaker, q)
		}()
	}

	if toggles.Libgen && q.Page == 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			libgenRecords = a.querySource(ctx, a.libgenAdapter, a.libgenBreaker, q)
		}()
	}

	wg.Wait()

	merged := make([]domain.BookRecord, 0, len(dbooksRecords)+len(libgenRecords))
	merged = append(merged, dbooksRecords...)
	merged = append(merged, libgenRecords...)
	deduped := Dedupe(merged)

	a.logger.Info("search complete",
		"query", q.Text,
		"page", q.Page,
		"merged", len(merged),
		"returned", len(deduped),
	)

	if a.results != nil && len(deduped) > 0 {
		a.results.Set(key, deduped)
	}

	return deduped
}

// querySource runs one breaker-gated adapter call. Failures are advisory:
// they feed the breaker and the log, and the search continues without this
// source.
func (a *Aggregator) querySource(ctx context.Context, adapter source.Adapter, cb *breaker.CircuitBreaker, q source.Query) []domain.BookRecord {
	if !cb.CanExecute() {
		a.logger.Warn("source skipped, circuit open",
			"source", adapter.ID(),
			"failures", cb.FailureCount(),
		)
		return nil
	}

	records, err := adapter.Search(ctx, q)
	if err != nil {
		cb.RecordFailure()
		a.logger.Warn("source search failed",
			"source", adapter.ID(),
			"kind", errKind(err),
			"error", err,
		)
		return nil
	}

	cb.RecordSuccess()
	return records
}

// errKind classifies a source error for the advisory diagnostic event.
func errKind(err error) string {
	switch {
	case errors.Is(err, dbooks.ErrTimeout), errors.Is(err, libgen.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, dbooks.ErrUnavailable), errors.Is(err, libgen.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
