package search

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkleafapp/inkleaf-server/internal/breaker"
	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/source"
)

// fakeAdapter is a scriptable source.Adapter for aggregator tests.
type fakeAdapter struct {
	id      domain.Source
	records []domain.BookRecord
	err     error
	calls   atomic.Int64
}

func (f *fakeAdapter) ID() domain.Source { return f.id }

func (f *fakeAdapter) Search(_ context.Context, _ source.Query) ([]domain.BookRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestAggregator(dbooks, libgen *fakeAdapter, dbooksCB, libgenCB *breaker.CircuitBreaker) *Aggregator {
	return NewAggregator(dbooks, libgen, dbooksCB, libgenCB, allToggles(), nil, testLogger())
}

func allToggles() domain.SourceToggles {
	return domain.SourceToggles{Dbooks: true, Libgen: true}
}

func TestAggregator_MergesBothSources(t *testing.T) {
	dba := &fakeAdapter{id: domain.SourceDbooks, records: []domain.BookRecord{
		{Title: "Go Basics", SourceID: domain.SourceDbooks},
	}}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{
		{Title: "Go Advanced", ContentHash: "0cc175b9c0f1b6a831c399e269772661", SourceID: domain.SourceLibgen},
	}}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 1}, allToggles(), 0)

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), dba.calls.Load())
	assert.Equal(t, int64(1), lga.calls.Load())
}

func TestAggregator_FailingSourceIsAdvisory(t *testing.T) {
	// One source erroring must not hide the other source's results and
	// must not surface as an error to the caller.
	dba := &fakeAdapter{id: domain.SourceDbooks, err: context.DeadlineExceeded}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{
		{Title: "Still Here", SourceID: domain.SourceLibgen},
	}}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 1}, allToggles(), 0)

	require.Len(t, out, 1)
	assert.Equal(t, "Still Here", out[0].Title)
}

func TestAggregator_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	// Three consecutive dbooks failures trip its breaker; the fourth search
	// skips the adapter entirely while the other source keeps serving.
	dba := &fakeAdapter{id: domain.SourceDbooks, err: context.DeadlineExceeded}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{
		{Title: "Libgen Result", SourceID: domain.SourceLibgen},
	}}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	q := source.Query{Text: "go", Page: 1}
	for i := 0; i < 3; i++ {
		agg.Search(context.Background(), q, allToggles(), 0)
	}
	require.Equal(t, int64(3), dba.calls.Load())

	out := agg.Search(context.Background(), q, allToggles(), 0)

	assert.Equal(t, int64(3), dba.calls.Load(), "open circuit must skip the adapter")
	require.Len(t, out, 1)
	assert.Equal(t, "Libgen Result", out[0].Title)
}

func TestAggregator_SuccessResetsBreaker(t *testing.T) {
	dba := &fakeAdapter{id: domain.SourceDbooks, err: context.DeadlineExceeded}
	lga := &fakeAdapter{id: domain.SourceLibgen}
	cb := breaker.New(3, 5*time.Minute)
	agg := newTestAggregator(dba, lga, cb, breaker.New(5, 3*time.Minute))

	q := source.Query{Text: "go", Page: 1}
	agg.Search(context.Background(), q, allToggles(), 0)
	agg.Search(context.Background(), q, allToggles(), 0)

	dba.err = nil
	dba.records = []domain.BookRecord{{Title: "Recovered", SourceID: domain.SourceDbooks}}
	out := agg.Search(context.Background(), q, allToggles(), 0)

	require.Len(t, out, 1)
	assert.Equal(t, breaker.StateClosed, cb.State())
	assert.Equal(t, 0, cb.FailureCount())
}

func TestAggregator_DuplicateHashKeepsDbooks(t *testing.T) {
	hash := "d41d8cd98f00b204e9800998ecf8427e"
	dba := &fakeAdapter{id: domain.SourceDbooks, records: []domain.BookRecord{
		{Title: "Dbooks Copy", ContentHash: hash, SourceID: domain.SourceDbooks},
	}}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{
		{Title: "Libgen Copy", ContentHash: hash, SourceID: domain.SourceLibgen},
	}}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 1}, allToggles(), 0)

	require.Len(t, out, 1)
	assert.Equal(t, domain.SourceDbooks, out[0].SourceID)
}

func TestAggregator_DeepPagesSkipLibgen(t *testing.T) {
	dba := &fakeAdapter{id: domain.SourceDbooks, records: []domain.BookRecord{
		{Title: "Page Two", SourceID: domain.SourceDbooks},
	}}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{
		{Title: "Should Not Appear", SourceID: domain.SourceLibgen},
	}}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 2}, allToggles(), 0)

	assert.Equal(t, int64(0), lga.calls.Load())
	require.Len(t, out, 1)
	assert.Equal(t, "Page Two", out[0].Title)
}

func TestAggregator_DisabledTogglesSkipAdapters(t *testing.T) {
	dba := &fakeAdapter{id: domain.SourceDbooks, records: []domain.BookRecord{{Title: "D"}}}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{{Title: "L"}}}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 1},
		domain.SourceToggles{Dbooks: false, Libgen: true}, 0)

	assert.Equal(t, int64(0), dba.calls.Load())
	assert.Equal(t, int64(1), lga.calls.Load())
	require.Len(t, out, 1)
	assert.Equal(t, "L", out[0].Title)
}

func TestAggregator_DeploymentSwitchOverridesRequest(t *testing.T) {
	// Libgen is switched off at deployment level; a request asking for it
	// anyway still gets dbooks only.
	dba := &fakeAdapter{id: domain.SourceDbooks, records: []domain.BookRecord{{Title: "D"}}}
	lga := &fakeAdapter{id: domain.SourceLibgen, records: []domain.BookRecord{{Title: "L"}}}
	agg := NewAggregator(dba, lga,
		breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute),
		domain.SourceToggles{Dbooks: true, Libgen: false}, nil, testLogger())

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 1}, allToggles(), 0)

	assert.Equal(t, int64(0), lga.calls.Load())
	require.Len(t, out, 1)
	assert.Equal(t, "D", out[0].Title)
}

func TestAggregator_BothSourcesDownReturnsEmpty(t *testing.T) {
	dba := &fakeAdapter{id: domain.SourceDbooks, err: context.DeadlineExceeded}
	lga := &fakeAdapter{id: domain.SourceLibgen, err: context.DeadlineExceeded}
	agg := newTestAggregator(dba, lga, breaker.New(3, 5*time.Minute), breaker.New(5, 3*time.Minute))

	out := agg.Search(context.Background(), source.Query{Text: "go", Page: 1}, allToggles(), 0)

	assert.Empty(t, out)
}
