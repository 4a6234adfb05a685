// Package resolver turns a book record into fetchable download URLs.
//
// Records from the metadata API carry pre-vetted links behind a single
// endpoint; mirror-catalog records only carry a page URL, for which a
// chain of fallback strategies is walked until one produces a link.
package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/errors"
)

// directDownloadDomains are hosts known to serve the file bytes directly.
// A hint pointing at one of these needs no further resolution.
var directDownloadDomains = []string{
	"library.lol",
	"libgen.rocks",
	"libgen.gs",
	"booksdl.org",
	"cloudflare-ipfs.com",
	"ipfs.io",
	"download.dbooks.org",
}

// catalogDomains are the mirror-catalog hosts whose pages must be scraped
// for the actual file link.
var catalogDomains = []string{
	"libgen.is",
	"libgen.rs",
	"libgen.st",
	"libgen.li",
	"gen.lib.rus.ec",
}

// canonicalURLTemplate synthesizes a download page from a content hash when
// every other strategy comes up empty.
const canonicalURLTemplate = "http://library.lol/main/%s"

const pageFetchTimeout = 10 * time.Second

// DirectResolver resolves records whose source vends its own links.
// Satisfied by the dbooks client.
type DirectResolver interface {
	Resolve(ctx context.Context, record domain.BookRecord) ([]string, error)
}

// LinkExtractor is an external helper that extracts download links from a
// catalog page. It is consulted only after local scraping finds nothing.
type LinkExtractor interface {
	Extract(ctx context.Context, pageURL string) ([]string, error)
}

// Resolver walks the strategy chain for a record. Safe for concurrent use.
type Resolver struct {
	dbooks    DirectResolver
	extractor LinkExtractor // nil disables the external-helper tier
	client    *http.Client
	logger    *slog.Logger
}

// New builds a resolver. extractor may be nil.
func New(dbooks DirectResolver, extractor LinkExtractor, logger *slog.Logger) *Resolver {
	return &Resolver{
		dbooks:    dbooks,
		extractor: extractor,
		client:    &http.Client{Timeout: pageFetchTimeout},
		logger:    logger,
	}
}

// Resolve returns one or more fetchable URLs for the record, or
// NO_LINKS_FOUND when the whole chain comes up empty.
func (r *Resolver) Resolve(ctx context.Context, record domain.BookRecord) ([]string, error) {
	if record.SourceID == domain.SourceDbooks {
		links, err := r.dbooks.Resolve(ctx, record)
		if err != nil {
			return nil, errors.NoLinksFound("no usable download links").WithCause(err)
		}
		return links, nil
	}

	hint := strings.TrimSpace(record.DownloadHint)

	// Strategy 1: the hint is already a direct file link.
	if isDirectDownloadURL(hint) {
		r.logger.Debug("hint is a direct link", "url", hint)
		return []string{hint}, nil
	}

	// Strategy 2: scrape the catalog page the hint points at.
	if isCatalogURL(hint) {
		if links := r.scrapePage(ctx, hint); len(links) > 0 {
			return links, nil
		}
		// Strategy 3: hand the same page to the external extractor.
		if links := r.extractLinks(ctx, hint); len(links) > 0 {
			return links, nil
		}
	}

	// Strategy 4: synthesize the canonical URL from the content hash.
	if record.HasValidHash() {
		u := fmt.Sprintf(canonicalURLTemplate, record.HashKey())
		r.logger.Debug("falling back to canonical url", "url", u)
		return []string{u}, nil
	}

	// Strategy 5: the hint verbatim, whatever it is.
	if hint != "" {
		return []string{hint}, nil
	}

	return nil, errors.NoLinksFound(fmt.Sprintf("no download links for %q", record.Title))
}

// scrapePage fetches the catalog page and scans it for download anchors.
// Any failure is advisory: the chain just moves on.
func (r *Resolver) scrapePage(ctx context.Context, pageURL string) []string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("catalog page fetch failed", "url", pageURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Debug("catalog page fetch failed", "url", pageURL, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	links := scanDownloadAnchors(string(body), base)
	if len(links) > 0 {
		r.logger.Debug("links scraped from catalog page", "url", pageURL, "count", len(links))
	}
	return links
}

// extractLinks consults the external extraction helper with a short timeout.
func (r *Resolver) extractLinks(ctx context.Context, pageURL string) []string {
	if r.extractor == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	links, err := r.extractor.Extract(ctx, pageURL)
	if err != nil {
		r.logger.Debug("link extractor failed", "url", pageURL, "error", err)
		return nil
	}
	return links
}

func isDirectDownloadURL(rawURL string) bool {
	return hostMatches(rawURL, directDownloadDomains)
}

func isCatalogURL(rawURL string) bool {
	return hostMatches(rawURL, catalogDomains)
}

func hostMatches(rawURL string, domains []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
