package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/playlistapp/playlist-server/internal/service"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
	Relations  *service.RelationStats     `json:"relations,omitempty" doc:"Background relationship job counters"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// handleHealthCheck reports the datastore and relation worker state.
func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	dbHealth := s.checkDatastore(ctx)
	components["datastore"] = dbHealth
	if dbHealth.Status != "healthy" {
		overall = "unhealthy"
	}

	var stats *service.RelationStats
	if s.services != nil && s.services.Relations != nil {
		snapshot := s.services.Relations.Stats()
		stats = &snapshot

		relHealth := checkRelations(snapshot)
		components["relations"] = relHealth
		if relHealth.Status == "degraded" && overall == "healthy" {
			overall = "degraded"
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
			Relations:  stats,
		},
	}, nil
}

// checkDatastore verifies the datastore answers.
func (s *Server) checkDatastore(ctx context.Context) ComponentHealth {
	if s.datastore == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "datastore not configured",
		}
	}

	start := time.Now()
	err := s.datastore.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "datastore unreachable",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkRelations reports degraded once any job has been lost.
func checkRelations(stats service.RelationStats) ComponentHealth {
	if stats.Failed > 0 || stats.Dropped > 0 {
		return ComponentHealth{
			Status:  "degraded",
			Message: fmt.Sprintf("%d failed, %d dropped", stats.Failed, stats.Dropped),
		}
	}
	return ComponentHealth{
		Status:  "healthy",
		Message: fmt.Sprintf("%d pending", stats.Pending),
	}
}
