package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator/tags"
)

// Fleet composes the server directory with per-backend model listing to
// answer "what is deployed where", and exposes termination.
type Fleet struct {
	directory *Directory
	serving   mlregistry.ServingClient
	fabric    fabric.Client
	logger    *zap.Logger
}

// NewFleet creates a fleet aggregator.
func NewFleet(directory *Directory, serving mlregistry.ServingClient, fabricClient fabric.Client, logger *zap.Logger) *Fleet {
	return &Fleet{
		directory: directory,
		serving:   serving,
		fabric:    fabricClient,
		logger:    logger,
	}
}

// ListAllDeployedModels joins every enabled server type's active servers with
// the models each one serves. The reserved disabled type is skipped.
func (f *Fleet) ListAllDeployedModels(ctx context.Context) ([]models.DeployedModelInfo, error) {
	var result []models.DeployedModelInfo
	for _, serverType := range models.EnabledServerTypes() {
		servers, err := f.directory.ListActiveServers(ctx, serverType)
		if err != nil {
			return nil, err
		}
		for _, server := range servers {
			switch server.Type {
			case models.ServerTypeSingleModel:
				deployed, err := f.singleModelDeployment(server)
				if err != nil {
					// The model-identity tag was written at submission time;
					// its absence on a classified server means the tag
					// protocol was corrupted, which is not skippable.
					return nil, err
				}
				result = append(result, *deployed)
			case models.ServerTypeMultiModel:
				deployed, err := f.multiModelDeployments(ctx, server)
				if err != nil {
					return nil, err
				}
				result = append(result, deployed...)
			}
		}
	}
	return result, nil
}

// singleModelDeployment reads the served model straight off the server's own
// tags; no external call is needed.
func (f *Fleet) singleModelDeployment(server models.InferenceServerInfo) (*models.DeployedModelInfo, error) {
	model, err := tags.DecodeModelInfo(server.Job.Tags)
	if err != nil {
		return nil, &StructuralError{
			JobID:  server.JobID(),
			Reason: fmt.Sprintf("model info not found: %v", err),
		}
	}
	return &models.DeployedModelInfo{Model: model, Server: server}, nil
}

// multiModelDeployments asks the server's management surface for its current
// registrations. The reported locator's last path segment is the stage; the
// listing API does not expose versions, so the version is reported unknown.
func (f *Fleet) multiModelDeployments(ctx context.Context, server models.InferenceServerInfo) ([]models.DeployedModelInfo, error) {
	multiModel, err := MultiModelServerFor(server)
	if err != nil {
		return nil, err
	}
	target, err := multiModel.ServingTarget()
	if err != nil {
		return nil, err
	}

	registrations, err := f.serving.ListServingDeployments(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to list models on server %s: %w", server.JobID(), err)
	}

	result := make([]models.DeployedModelInfo, 0, len(registrations))
	for _, registration := range registrations {
		result = append(result, models.DeployedModelInfo{
			Model: models.ModelInfo{
				Name:    registration.Name,
				Stage:   lastPathSegment(registration.ModelURI),
				Version: "unknown",
			},
			Server: server,
		})
	}
	return result, nil
}

// KillServer requests termination of a server's job. Fire and forget: no
// confirmation polling, no rollback. The caller observes success by the
// server disappearing from the next discovery call.
func (f *Fleet) KillServer(ctx context.Context, server models.InferenceServerInfo) error {
	f.logger.Info("killing server",
		zap.String("job_id", server.JobID()), zap.String("name", server.JobName()))
	if err := f.fabric.KillJob(ctx, server.JobID()); err != nil {
		return fmt.Errorf("failed to kill server %s: %w", server.JobID(), err)
	}
	return nil
}

func lastPathSegment(uri string) string {
	if uri == "" {
		return ""
	}
	parts := strings.Split(uri, "/")
	return parts[len(parts)-1]
}
