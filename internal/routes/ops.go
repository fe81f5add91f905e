package routes

import (
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/router"
)

// RegisterOpsRoutes registers health, metrics, uploaded files and the JSON
// 404 for unmatched paths.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	if deps.Health != nil {
		r.Get("/health", deps.Health)
	}
	if deps.Metrics != nil {
		r.Handle("GET", "/metrics", deps.Metrics)
	}
	if deps.UploadsDir != "" && deps.UploadsURL != "" {
		r.Static(deps.UploadsURL, deps.UploadsDir)
	}
	r.NotFound(handler.NotFoundResponse)
}
