// Package source defines the common contract implemented by every upstream
// book-metadata adapter.
package source

import (
	"context"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
)

// Query describes one search request against an upstream.
type Query struct {
	// Text is the free-text search term.
	Text string
	// Formats filters results to these lowercase extensions; empty means all.
	Formats []string
	// Page is the 1-based result page.
	Page int
}

// WantsFormat reports whether the query accepts the given extension.
func (q Query) WantsFormat(ext string) bool {
	if len(q.Formats) == 0 {
		return true
	}
	for _, f := range q.Formats {
		if f == ext {
			return true
		}
	}
	return false
}

// Adapter is one upstream book-metadata source. Implementations translate
// upstream-specific responses into the unified record shape and surface
// timeouts and unavailability as their package's typed errors.
type Adapter interface {
	// ID identifies the upstream.
	ID() domain.Source
	// Search queries the upstream. The context carries the caller's
	// deadline; adapters must honor it on every network call.
	Search(ctx context.Context, q Query) ([]domain.BookRecord, error)
}
