package dbooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/source"
)

// Search queries the dbooks search endpoint. The call is retried with
// backoff; context cancellation and deadline are honored throughout.
func (c *Client) Search(ctx context.Context, q source.Query) ([]domain.BookRecord, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}

	searchURL := fmt.Sprintf("%s/api/search/%s?page=%d", c.baseURL, url.PathEscape(q.Text), page)

	var body []byte
	err := c.retrier.Do(ctx, "dbooks search", searchMaxAttempts, func(ctx context.Context) error {
		var reqErr error
		body, reqErr = c.doRequest(ctx, searchURL)
		return reqErr
	})
	if err != nil {
		return nil, wrapError("search", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("search", fmt.Errorf("parse response: %w", err))
	}

	c.logger.Debug("dbooks search results",
		"query", q.Text,
		"page", page,
		"total", resp.Total,
		"count", len(resp.Books),
	)

	now := time.Now()
	records := make([]domain.BookRecord, 0, len(resp.Books))
	for i := range resp.Books {
		b := &resp.Books[i]

		// dbooks serves PDFs unless the entry says otherwise.
		ext := "pdf"
		if dot := strings.LastIndexByte(b.DownloadURL, '.'); dot != -1 && dot > len(b.DownloadURL)-6 {
			ext = strings.ToLower(b.DownloadURL[dot+1:])
		}
		if !q.WantsFormat(ext) {
			continue
		}

		title := strings.TrimSpace(b.Title)
		if b.Subtitle != "" {
			title = title + ": " + strings.TrimSpace(b.Subtitle)
		}

		hint := b.DownloadURL
		if hint == "" {
			hint = b.URL
		}

		records = append(records, domain.BookRecord{
			Title:        title,
			Author:       strings.TrimSpace(b.Authors),
			Year:         b.Year,
			ContentHash:  strings.ToLower(b.MD5),
			CoverURL:     b.Image,
			FileSize:     b.Filesize,
			Extension:    ext,
			SourceID:     domain.SourceDbooks,
			DownloadHint: hint,
			FetchedAt:    now,
		})
	}

	return records, nil
}
