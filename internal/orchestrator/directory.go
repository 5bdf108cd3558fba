package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator/tags"
	"github.com/modelserve-dev/modelserve/internal/telemetry"
)

// Directory discovers the live inference-server fleet. It keeps no state:
// every call re-reads the platform's job listing, which is the only source of
// truth about what is running.
type Directory struct {
	fabric       fabric.Client
	controllerID string
	metrics      *telemetry.Metrics
	logger       *zap.Logger
}

// NewDirectory creates a server directory scoped to one controller.
func NewDirectory(fabricClient fabric.Client, controllerID string, metrics *telemetry.Metrics, logger *zap.Logger) *Directory {
	return &Directory{
		fabric:       fabricClient,
		controllerID: controllerID,
		metrics:      metrics,
		logger:       logger,
	}
}

// ListActiveServers returns the active inference servers owned by this
// controller, optionally narrowed to one type. Jobs whose tags do not decode
// to a known type are logged and excluded; a single bad job never fails the
// listing.
func (d *Directory) ListActiveServers(ctx context.Context, typeFilter models.InferenceServerType) ([]models.InferenceServerInfo, error) {
	filter := []string{tags.Ownership(d.controllerID)}
	if typeFilter != "" {
		filter = append(filter, tags.TypeTag(typeFilter))
	}

	jobs, err := d.fabric.ListJobs(ctx, fabric.ListOptions{
		Statuses: fabric.ActiveStatuses(),
		Tags:     filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	d.metrics.DiscoveryScans.Inc()

	result := make([]models.InferenceServerInfo, 0, len(jobs))
	for _, job := range jobs {
		serverType, err := tags.DecodeServerType(job.Tags)
		if err != nil {
			d.logger.Warn("job excluded from listing: unknown inference server type",
				zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		result = append(result, models.InferenceServerInfo{Job: *job, Type: serverType})
	}
	return result, nil
}

// ListPresets is a side-effect-free passthrough to the platform's preset
// catalog.
func (d *Directory) ListPresets(ctx context.Context) ([]string, error) {
	return d.fabric.ListPresets(ctx)
}
