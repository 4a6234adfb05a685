package dbooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strings"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
)

// placeholderMarkers flag links the API sometimes emits before a file is
// actually mirrored. Such links 404 and must not reach the downloader.
var placeholderMarkers = []string{
	"placeholder",
	"example.com",
	"coming-soon",
	"unavailable",
	"{id}",
}

// Resolve fetches the pre-vetted download links for a dbooks record.
// The record's download hint carries the book id in its last path segment.
func (c *Client) Resolve(ctx context.Context, record domain.BookRecord) ([]string, error) {
	id := bookID(record.DownloadHint)
	if id == "" {
		return nil, wrapError("resolve", fmt.Errorf("no book id in hint %q", record.DownloadHint))
	}

	linksURL := fmt.Sprintf("%s/api/download/%s", c.baseURL, url.PathEscape(id))

	var body []byte
	err := c.retrier.Do(ctx, "dbooks resolve", searchMaxAttempts, func(ctx context.Context) error {
		var reqErr error
		body, reqErr = c.doRequest(ctx, linksURL)
		return reqErr
	})
	if err != nil {
		return nil, wrapError("resolve", err)
	}

	var resp linksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("resolve", fmt.Errorf("parse response: %w", err))
	}

	candidates := resp.Links
	for _, link := range resp.Keyed {
		candidates = append(candidates, link)
	}

	links := make([]string, 0, len(candidates))
	for _, link := range candidates {
		if link == "" || isPlaceholder(link) {
			continue
		}
		links = append(links, link)
	}

	if len(links) == 0 {
		return nil, wrapError("resolve", ErrNoLinks)
	}

	c.logger.Debug("dbooks links resolved", "book_id", id, "count", len(links))
	return links, nil
}

// bookID extracts the book id from a dbooks URL's last path segment.
func bookID(hint string) string {
	u, err := url.Parse(hint)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	id := segments[len(segments)-1]
	// Direct file links end in the file name, not an id.
	if strings.Contains(id, ".") {
		if len(segments) < 2 {
			return ""
		}
		id = segments[len(segments)-2]
	}
	return id
}

// isPlaceholder reports whether a link carries an obvious placeholder marker.
func isPlaceholder(link string) bool {
	lower := strings.ToLower(link)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
