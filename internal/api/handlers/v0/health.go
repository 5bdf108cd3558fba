package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/orchestrator"
	"github.com/modelserve-dev/modelserve/pkg/types"
)

// HealthBody reports the orchestrator's own health plus the reachability of
// the platform it depends on.
type HealthBody struct {
	Status   string `json:"status" example:"ok" doc:"Overall health status"`
	Platform string `json:"platform" example:"ok" doc:"Compute platform reachability"`
}

// RegisterHealthEndpoint registers the health endpoint. The orchestrator
// holds no state, so health is its dependencies' reachability.
func RegisterHealthEndpoint(api huma.API, pathPrefix string, directory *orchestrator.Directory) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/health",
		Summary:     "Health check",
		Description: "Reports service health and compute platform reachability.",
		Tags:        []string{"health"},
	}, func(ctx context.Context, _ *struct{}) (*types.Response[HealthBody], error) {
		body := HealthBody{Status: "ok", Platform: "ok"}
		if _, err := directory.ListPresets(ctx); err != nil {
			body.Status = "degraded"
			body.Platform = "unreachable"
		}
		return &types.Response[HealthBody]{Body: body}, nil
	})
}
