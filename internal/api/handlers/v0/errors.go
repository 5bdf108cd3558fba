package v0

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/orchestrator"
)

// platformError wraps a compute-platform failure for API consumers without
// leaking transport details.
func platformError(err error) error {
	return huma.Error502BadGateway("Could not reach the platform", err)
}

// deployError maps deployment failures onto HTTP statuses. Collisions and
// bad inputs are the caller's to fix; timeouts report the job is still
// pending; everything else is a platform problem.
func deployError(err error) error {
	switch {
	case orchestrator.IsNameCollision(err):
		return huma.Error409Conflict("A deployment with this name already exists", err)
	case orchestrator.IsUnsupportedFlavor(err):
		return huma.Error400BadRequest("Unsupported model format for the target server", err)
	case orchestrator.IsStructural(err) || orchestrator.IsPrecondition(err):
		return huma.Error409Conflict("The selected server cannot accept deployments", err)
	case orchestrator.IsReadinessTimeout(err):
		return huma.Error504GatewayTimeout("The deployment did not start in time", err)
	default:
		return platformError(err)
	}
}
