package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
	"github.com/inkleafapp/inkleaf-server/internal/id"
	"github.com/inkleafapp/inkleaf-server/internal/mirror"
)

const searchRequestTimeout = 15 * time.Second

func (s *Server) registerStoreRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "storeSearch",
		Method:      http.MethodGet,
		Path:        "/api/v1/store/search",
		Summary:     "Search book stores",
		Description: "Queries the enabled upstream sources and returns merged, deduplicated results",
		Tags:        []string{"Store"},
	}, s.handleStoreSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "storeResolve",
		Method:      http.MethodPost,
		Path:        "/api/v1/store/resolve",
		Summary:     "Resolve download links",
		Description: "Walks the fallback chain to turn a search result into fetchable URLs",
		Tags:        []string{"Store"},
	}, s.handleStoreResolve)

	huma.Register(s.api, huma.Operation{
		OperationID: "storeDownload",
		Method:      http.MethodPost,
		Path:        "/api/v1/store/download",
		Summary:     "Download a book",
		Description: "Streams the URL to the local download directory, resuming partial files",
		Tags:        []string{"Store"},
	}, s.handleStoreDownload)

	huma.Register(s.api, huma.Operation{
		OperationID: "mirrorHealth",
		Method:      http.MethodGet,
		Path:        "/api/v1/store/mirrors",
		Summary:     "Mirror health snapshot",
		Tags:        []string{"Store"},
	}, s.handleMirrorHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "mirrorHealthReset",
		Method:      http.MethodPost,
		Path:        "/api/v1/store/mirrors/reset",
		Summary:     "Reset mirror health",
		Description: "Clears all mirror failure history (operational override)",
		Tags:        []string{"Store"},
	}, s.handleMirrorHealthReset)
}

// === DTOs ===

// StoreSearchInput contains the search parameters.
type StoreSearchInput struct {
	Query   string `query:"q" validate:"required,min=1,max=200" doc:"Search query"`
	Formats string `query:"formats" validate:"omitempty,max=50" doc:"Comma-separated format extensions to keep (e.g. pdf,epub). Omit for all."`
	Page    int    `query:"page" validate:"omitempty,gte=1,lte=100" doc:"Result page (default 1)"`
	Sources string `query:"sources" validate:"omitempty,max=50" doc:"Comma-separated sources to query (dbooks,libgen). Omit for all."`
}

// StoreSearchResponse contains the merged search results.
type StoreSearchResponse struct {
	Query   string              `json:"query" doc:"Original search query"`
	Page    int                 `json:"page" doc:"Requested page"`
	Count   int                 `json:"count" doc:"Number of results"`
	Results []domain.BookRecord `json:"results" doc:"Merged, deduplicated results"`
}

// StoreSearchOutput wraps the search response for Huma.
type StoreSearchOutput struct {
	Body StoreSearchResponse
}

// StoreResolveInput carries the record whose links should be resolved.
type StoreResolveInput struct {
	Body domain.BookRecord
}

// StoreResolveResponse lists the resolved candidate URLs.
type StoreResolveResponse struct {
	Links []string `json:"links" doc:"Candidate download URLs, best first"`
}

// StoreResolveOutput wraps the resolve response for Huma.
type StoreResolveOutput struct {
	Body StoreResolveResponse
}

// StoreDownloadRequest names the URL and destination file.
type StoreDownloadRequest struct {
	URL      string            `json:"url" validate:"required,url" doc:"Resolved download URL"`
	FileName string            `json:"file_name" validate:"required,min=1,max=255" doc:"Destination file name"`
	Record   domain.BookRecord `json:"record,omitzero" doc:"Originating search result, passed to the library on success"`
}

// StoreDownloadInput wraps the download request body.
type StoreDownloadInput struct {
	Body StoreDownloadRequest
}

// StoreDownloadResponse reports where the file landed.
type StoreDownloadResponse struct {
	JobID string `json:"job_id" doc:"Download job identifier, for log correlation"`
	Path  string `json:"path" doc:"Local path of the downloaded file"`
}

// StoreDownloadOutput wraps the download response for Huma.
type StoreDownloadOutput struct {
	Body StoreDownloadResponse
}

// MirrorHealthOutput wraps the mirror snapshot for Huma.
type MirrorHealthOutput struct {
	Body struct {
		Mirrors map[string]mirror.Status `json:"mirrors" doc:"Per-mirror health state"`
	}
}

// MirrorResetOutput confirms the reset.
type MirrorResetOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// === Handlers ===

func (s *Server) handleStoreSearch(ctx context.Context, input *StoreSearchInput) (*StoreSearchOutput, error) {
	if err := s.validate.Validate(input); err != nil {
		return nil, err
	}

	toggles, err := parseSourceToggles(input.Sources)
	if err != nil {
		return nil, err
	}

	page := input.Page
	if page == 0 {
		page = 1
	}

	results := s.store.Search(ctx, input.Query, splitCSV(input.Formats), page, toggles, searchRequestTimeout)

	out := &StoreSearchOutput{}
	out.Body = StoreSearchResponse{
		Query:   input.Query,
		Page:    page,
		Count:   len(results),
		Results: results,
	}
	return out, nil
}

func (s *Server) handleStoreResolve(ctx context.Context, input *StoreResolveInput) (*StoreResolveOutput, error) {
	links, err := s.store.ResolveDownloadLinks(ctx, input.Body)
	if err != nil {
		return nil, err
	}

	out := &StoreResolveOutput{}
	out.Body.Links = links
	return out, nil
}

func (s *Server) handleStoreDownload(ctx context.Context, input *StoreDownloadInput) (*StoreDownloadOutput, error) {
	if err := s.validate.Validate(input.Body); err != nil {
		return nil, err
	}

	jobID := id.MustGenerate("dl")
	logger := s.logger.With("job_id", jobID, "file", input.Body.FileName)
	logger.Info("download started", "url", input.Body.URL)

	// Progress is logged in coarse steps; per-chunk events would flood
	// the log on large files.
	var lastLogged float64
	onProgress := func(fraction float64) {
		if fraction-lastLogged >= 0.1 || fraction >= 1 {
			lastLogged = fraction
			logger.Debug("download progress", "fraction", fraction)
		}
	}

	path, err := s.store.Download(ctx, input.Body.URL, input.Body.FileName, input.Body.Record, onProgress)
	if err != nil {
		return nil, err
	}

	out := &StoreDownloadOutput{}
	out.Body = StoreDownloadResponse{JobID: jobID, Path: path}
	return out, nil
}

func (s *Server) handleMirrorHealth(_ context.Context, _ *struct{}) (*MirrorHealthOutput, error) {
	out := &MirrorHealthOutput{}
	out.Body.Mirrors = s.store.MirrorHealthSnapshot()
	return out, nil
}

func (s *Server) handleMirrorHealthReset(_ context.Context, _ *struct{}) (*MirrorResetOutput, error) {
	s.store.ResetMirrorHealth()

	out := &MirrorResetOutput{}
	out.Body.Status = "reset"
	return out, nil
}

// === Helpers ===

// parseSourceToggles turns a comma-separated source list into toggles.
// Empty means every source.
func parseSourceToggles(sources string) (domain.SourceToggles, error) {
	if strings.TrimSpace(sources) == "" {
		return domain.SourceToggles{Dbooks: true, Libgen: true}, nil
	}

	var toggles domain.SourceToggles
	for _, name := range splitCSV(sources) {
		switch domain.Source(name) {
		case domain.SourceDbooks:
			toggles.Dbooks = true
		case domain.SourceLibgen:
			toggles.Libgen = true
		default:
			return domain.SourceToggles{}, huma.Error400BadRequest("unknown source: " + name)
		}
	}
	return toggles, nil
}

// splitCSV splits a comma-separated value, trimming and lowercasing parts.
func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
