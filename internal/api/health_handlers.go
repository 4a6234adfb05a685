package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health plus the upstream mirror pool state",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status         string `json:"status" doc:"Overall status: always healthy while the process serves requests"`
	HealthyMirrors int    `json:"healthy_mirrors" doc:"Number of catalog mirrors currently considered healthy"`
	TotalMirrors   int    `json:"total_mirrors" doc:"Number of configured catalog mirrors"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	snap := s.store.MirrorHealthSnapshot()

	healthy := 0
	for _, status := range snap {
		if status.Healthy {
			healthy++
		}
	}

	out := &HealthOutput{}
	out.Body = HealthResponse{
		Status:         "healthy",
		HealthyMirrors: healthy,
		TotalMirrors:   len(snap),
	}
	return out, nil
}
