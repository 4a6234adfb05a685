// Package service exposes the public book-store operations consumed by the
// API layer and by embedding callers.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/download"
	"github.com/inkleafapp/inkleaf-server/internal/errors"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
	"github.com/inkleafapp/inkleaf-server/internal/source"
)

// Searcher fans a query out to the upstream sources.
type Searcher interface {
	Search(ctx context.Context, q source.Query, toggles domain.SourceToggles, timeout time.Duration) []domain.BookRecord
}

// LinkResolver turns a record into fetchable URLs.
type LinkResolver interface {
	Resolve(ctx context.Context, record domain.BookRecord) ([]string, error)
}

// FileDownloader streams a URL to local disk.
type FileDownloader interface {
	Download(ctx context.Context, url, fileName string, onProgress download.ProgressFunc) (string, error)
}

// LibrarySaver is the persistence collaborator that takes over once a file
// is on disk. The core never stores book metadata itself.
type LibrarySaver interface {
	Save(ctx context.Context, localPath string, record domain.BookRecord) error
}

// BookstoreService is the facade over search, resolution and download.
type BookstoreService struct {
	searcher   Searcher
	resolver   LinkResolver
	downloader FileDownloader
	tracker    *mirror.HealthTracker
	library    LibrarySaver // nil when no persistence collaborator is wired
	logger     *slog.Logger
}

// NewBookstoreService creates the book-store facade. library may be nil.
func NewBookstoreService(
	searcher Searcher,
	resolver LinkResolver,
	downloader FileDownloader,
	tracker *mirror.HealthTracker,
	library LibrarySaver,
	logger *slog.Logger,
) *BookstoreService {
	return &BookstoreService{
		searcher:   searcher,
		resolver:   resolver,
		downloader: downloader,
		tracker:    tracker,
		library:    library,
		logger:     logger,
	}
}

// Search queries the enabled sources. It never fails: a blank query,
// disabled sources or total upstream failure all yield an empty slice.
func (s *BookstoreService) Search(ctx context.Context, query string, formats []string, page int, toggles domain.SourceToggles, timeout time.Duration) []domain.BookRecord {
	query = strings.TrimSpace(query)
	if query == "" || !toggles.Any() {
		return []domain.BookRecord{}
	}

	q := source.Query{Text: query, Formats: formats, Page: page}
	records := s.searcher.Search(ctx, q, toggles, timeout)
	if records == nil {
		records = []domain.BookRecord{}
	}
	return records
}

// ResolveDownloadLinks returns candidate URLs for the record, or
// NO_LINKS_FOUND when the resolution chain comes up empty.
func (s *BookstoreService) ResolveDownloadLinks(ctx context.Context, record domain.BookRecord) ([]string, error) {
	if !record.SourceID.Valid() {
		return nil, errors.Validationf("unknown source %q", record.SourceID)
	}
	return s.resolver.Resolve(ctx, record)
}

// Download fetches url into the local download directory and hands the
// finished file to the library collaborator. A save failure does not undo
// the download; the path is still returned alongside the error.
func (s *BookstoreService) Download(ctx context.Context, url, fileName string, record domain.BookRecord, onProgress download.ProgressFunc) (string, error) {
	if url == "" {
		return "", errors.Validation("download url is required")
	}
	if fileName == "" {
		return "", errors.Validation("file name is required")
	}

	path, err := s.downloader.Download(ctx, url, fileName, onProgress)
	if err != nil {
		return "", err
	}

	if s.library != nil {
		if err := s.library.Save(ctx, path, record); err != nil {
			s.logger.Error("library save failed", "path", path, "error", err)
			return path, errors.Internal("downloaded but not saved to library").WithCause(err)
		}
	}

	return path, nil
}

// MirrorHealthSnapshot returns the diagnostic per-mirror health view.
func (s *BookstoreService) MirrorHealthSnapshot() map[string]mirror.Status {
	return s.tracker.Snapshot()
}

// ResetMirrorHealth clears all mirror failure history. Operational
// override for when an operator knows the mirrors have recovered.
func (s *BookstoreService) ResetMirrorHealth() {
	s.tracker.Reset()
	s.logger.Info("mirror health history cleared")
}
