// Package domain contains the core entities shared across the Inkleaf book-store client.
package domain

import (
	"strings"
	"time"
)

// Source identifies which upstream produced a record.
type Source string

const (
	// SourceDbooks is the single-endpoint JSON metadata API.
	SourceDbooks Source = "dbooks"
	// SourceLibgen is the multi-mirror scraped catalog.
	SourceLibgen Source = "libgen"
)

// Valid reports whether the source is a known upstream.
func (s Source) Valid() bool {
	return s == SourceDbooks || s == SourceLibgen
}

// BookRecord is one unified search result. Records are created fresh per
// search response and are not persisted by the core; persistence after a
// download belongs to the library collaborator.
type BookRecord struct {
	Title        string    `json:"title,omitempty"`
	Author       string    `json:"author,omitempty"`
	Publisher    string    `json:"publisher,omitempty"`
	Year         string    `json:"year,omitempty"`
	// ContentHash is the catalog's 32-char lowercase hex digest for the
	// edition. Empty means unknown; such records are treated as unique.
	ContentHash string `json:"content_hash,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	FileSize    string `json:"file_size,omitempty"`
	// Extension is the lowercase file format, e.g. "pdf" or "epub".
	Extension string `json:"extension,omitempty"`
	SourceID  Source `json:"source_id"`
	// DownloadHint is a page URL or direct URL, depending on the source.
	DownloadHint string    `json:"download_hint,omitempty"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// HashKey returns the dedup key for the record: the content hash lowered,
// or "" when the record has no hash.
func (r *BookRecord) HashKey() string {
	return strings.ToLower(r.ContentHash)
}

// HasValidHash reports whether the content hash follows the catalog's
// 32-hex-character convention.
func (r *BookRecord) HasValidHash() bool {
	if len(r.ContentHash) != 32 {
		return false
	}
	for _, c := range r.ContentHash {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// SourceToggles selects which upstreams a search queries.
type SourceToggles struct {
	Dbooks bool `json:"dbooks"`
	Libgen bool `json:"libgen"`
}

// Any reports whether at least one source is enabled.
func (t SourceToggles) Any() bool {
	return t.Dbooks || t.Libgen
}
