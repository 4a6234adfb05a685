package resolver

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPExtractor calls an external link-extraction service with the catalog
// page URL and flattens whatever JSON shape it answers with. The service
// has returned a bare string, a list, and a keyed map over time, so all
// three are tolerated.
type HTTPExtractor struct {
	endpoint string
	client   *http.Client
}

// NewHTTPExtractor builds an extractor against the given service endpoint.
func NewHTTPExtractor(endpoint string) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Extract asks the service for the download links on pageURL.
func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) ([]string, error) {
	reqURL := fmt.Sprintf("%s?url=%s", e.endpoint, url.QueryEscape(pageURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse extractor response: %w", err)
	}

	return flattenLinks(payload), nil
}

// flattenLinks pulls URL strings out of a string, list, or map payload.
func flattenLinks(payload any) []string {
	switch v := payload.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flattenLinks(item)...)
		}
		return out
	case map[string]any:
		var out []string
		for _, item := range v {
			out = append(out, flattenLinks(item)...)
		}
		return out
	}
	return nil
}
