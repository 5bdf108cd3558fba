// Package mlregistry is the boundary to the model registry: lookup of
// registered models and their promotion stages, artifact access, and the
// serving-deployment surface of shared multi-model servers.
package mlregistry

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelserve-dev/modelserve/internal/models"
)

// Client is the model registry surface the orchestrator consumes.
type Client interface {
	// GetRegisteredModels returns the latest version of every registered
	// model at each tracked promotion stage.
	GetRegisteredModels(ctx context.Context) ([]models.ModelStage, error)

	// GetModelDescriptor fetches and parses the descriptor file stored next
	// to a model version's artifacts. Descriptors are immutable per source
	// path, so results are cached by source path with no invalidation.
	GetModelDescriptor(ctx context.Context, source string) (map[string]any, error)

	// DownloadModelArtifacts materializes the artifact tree of the model
	// version a registry locator resolves to under destDir.
	DownloadModelArtifacts(ctx context.Context, modelURI, destDir string) error
}

// Target binds one serving-deployment call to a concrete multi-model server:
// its management endpoint and the shared model-repository path as seen by
// this process. The value is threaded explicitly through every call on the
// multi-model path; there is no ambient configuration.
type Target struct {
	// Endpoint is the base URL of the server's management API.
	Endpoint string
	// RepoPath is the model repository directory. It must resolve to the
	// same physical storage the server process mounts.
	RepoPath string
}

// ServingDeploymentRequest asks a multi-model server to serve one model.
type ServingDeploymentRequest struct {
	Name     string
	ModelURI string
	Flavor   string
}

// ServingDeployment is one model registration reported by a multi-model
// server. ModelURI is the registry locator recorded at deployment time; it
// may be empty for models placed outside the orchestrator.
type ServingDeployment struct {
	Name     string `json:"name"`
	ModelURI string `json:"modelUri"`
}

// ServingClient manages model registrations on a multi-model server.
type ServingClient interface {
	CreateServingDeployment(ctx context.Context, target Target, req ServingDeploymentRequest) (*ServingDeployment, error)
	ListServingDeployments(ctx context.Context, target Target) ([]ServingDeployment, error)
}

// UnsupportedFlavorError reports that a model's serialization format cannot
// be loaded by the target serving backend. It is user-actionable: the model
// must be re-saved in a supported flavor.
type UnsupportedFlavorError struct {
	Flavor string
}

func (e *UnsupportedFlavorError) Error() string {
	return fmt.Sprintf("model flavor %q is not supported by the target server", e.Flavor)
}

// IsUnsupportedFlavor reports whether err is a flavor mismatch.
func IsUnsupportedFlavor(err error) bool {
	var target *UnsupportedFlavorError
	return errors.As(err, &target)
}
