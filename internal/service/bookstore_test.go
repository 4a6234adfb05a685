package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/download"
	apperrors "github.com/inkleafapp/inkleaf-server/internal/errors"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/source"
)

type stubSearcher struct {
	records []domain.BookRecord
	gotQ    source.Query
	calls   int
}

func (s *stubSearcher) Search(_ context.Context, q source.Query, _ domain.SourceToggles, _ time.Duration) []domain.BookRecord {
	s.calls++
	s.gotQ = q
	return s.records
}

type stubResolver struct {
	links []string
	err   error
}

func (s *stubResolver) Resolve(context.Context, domain.BookRecord) ([]string, error) {
	return s.links, s.err
}

type stubDownloader struct {
	path string
	err  error
}

func (s *stubDownloader) Download(_ context.Context, _, _ string, _ download.ProgressFunc) (string, error) {
	return s.path, s.err
}

type stubLibrary struct {
	saved []string
	err   error
}

func (s *stubLibrary) Save(_ context.Context, localPath string, _ domain.BookRecord) error {
	s.saved = append(s.saved, localPath)
	return s.err
}

func newService(searcher Searcher, res LinkResolver, dl FileDownloader, lib LibrarySaver) *BookstoreService {
	if searcher == nil {
		searcher = &stubSearcher{}
	}
	if res == nil {
		res = &stubResolver{}
	}
	if dl == nil {
		dl = &stubDownloader{}
	}
	tracker := mirror.NewHealthTracker([]string{"http://libgen.is"})
	return NewBookstoreService(searcher, res, dl, tracker, lib, slog.New(slog.DiscardHandler))
}

func TestSearch_TrimsQueryAndDelegates(t *testing.T) {
	searcher := &stubSearcher{records: []domain.BookRecord{{Title: "Go"}}}
	svc := newService(searcher, nil, nil, nil)

	out := svc.Search(context.Background(), "  flutter  ", []string{"pdf"}, 1,
		domain.SourceToggles{Dbooks: true, Libgen: true}, 15*time.Second)

	require.Len(t, out, 1)
	assert.Equal(t, "flutter", searcher.gotQ.Text)
}

func TestSearch_BlankQueryReturnsEmptyWithoutCall(t *testing.T) {
	searcher := &stubSearcher{records: []domain.BookRecord{{Title: "noise"}}}
	svc := newService(searcher, nil, nil, nil)

	out := svc.Search(context.Background(), "   ", nil, 1,
		domain.SourceToggles{Dbooks: true}, 0)

	assert.Empty(t, out)
	assert.NotNil(t, out)
	assert.Zero(t, searcher.calls)
}

func TestSearch_AllSourcesDisabledReturnsEmpty(t *testing.T) {
	searcher := &stubSearcher{records: []domain.BookRecord{{Title: "noise"}}}
	svc := newService(searcher, nil, nil, nil)

	out := svc.Search(context.Background(), "go", nil, 1, domain.SourceToggles{}, 0)

	assert.Empty(t, out)
	assert.Zero(t, searcher.calls)
}

func TestResolveDownloadLinks_RejectsUnknownSource(t *testing.T) {
	svc := newService(nil, &stubResolver{links: []string{"http://x"}}, nil, nil)

	_, err := svc.ResolveDownloadLinks(context.Background(), domain.BookRecord{SourceID: "gutenberg"})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestDownload_SavesToLibrary(t *testing.T) {
	lib := &stubLibrary{}
	svc := newService(nil, nil, &stubDownloader{path: "/books/go.pdf"}, lib)

	path, err := svc.Download(context.Background(), "http://library.lol/main/abc", "go.pdf",
		domain.BookRecord{SourceID: domain.SourceLibgen}, nil)

	require.NoError(t, err)
	assert.Equal(t, "/books/go.pdf", path)
	assert.Equal(t, []string{"/books/go.pdf"}, lib.saved)
}

func TestDownload_SaveFailureStillReturnsPath(t *testing.T) {
	lib := &stubLibrary{err: fmt.Errorf("disk full")}
	svc := newService(nil, nil, &stubDownloader{path: "/books/go.pdf"}, lib)

	path, err := svc.Download(context.Background(), "http://library.lol/main/abc", "go.pdf",
		domain.BookRecord{}, nil)

	require.Error(t, err)
	assert.Equal(t, "/books/go.pdf", path)
}

func TestDownload_ValidatesInput(t *testing.T) {
	svc := newService(nil, nil, nil, nil)

	_, err := svc.Download(context.Background(), "", "go.pdf", domain.BookRecord{}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = svc.Download(context.Background(), "http://x", "", domain.BookRecord{}, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestDownload_NoLibraryConfigured(t *testing.T) {
	svc := newService(nil, nil, &stubDownloader{path: "/books/go.pdf"}, nil)

	path, err := svc.Download(context.Background(), "http://x", "go.pdf", domain.BookRecord{}, nil)

	require.NoError(t, err)
	assert.Equal(t, "/books/go.pdf", path)
}

func TestMirrorHealthLifecycle(t *testing.T) {
	svc := newService(nil, nil, nil, nil)

	for range 3 {
		svc.tracker.RecordFailure("http://libgen.is")
	}
	snap := svc.MirrorHealthSnapshot()
	require.Contains(t, snap, "http://libgen.is")
	assert.False(t, snap["http://libgen.is"].Healthy)

	svc.ResetMirrorHealth()
	snap = svc.MirrorHealthSnapshot()
	assert.True(t, snap["http://libgen.is"].Healthy)
	assert.Zero(t, snap["http://libgen.is"].ConsecutiveFailures)
}
