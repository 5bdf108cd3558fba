package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	"github.com/modelserve-dev/modelserve/internal/images"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator/tags"
	"github.com/modelserve-dev/modelserve/internal/telemetry"
)

const (
	// singleModelPort is the HTTP port the single-model serving process binds.
	singleModelPort = 5000
	// multiModelPort is the HTTP port of the multi-model server's API. The
	// server also exposes gRPC and metrics ports next to it; only HTTP is
	// published.
	multiModelPort = 8000
)

// DispatcherConfig carries the deployment-time settings of the orchestrator.
type DispatcherConfig struct {
	ControllerID string

	// RepoStorage is the platform storage URI mounted into multi-model
	// server jobs as their model repository.
	RepoStorage string
	// RepoRoot is the local mount of the same storage in this process.
	RepoRoot string

	PollInterval     time.Duration
	ReadinessTimeout time.Duration
}

// Dispatcher executes the two deployment protocols: single-model service
// start, and multi-model server provisioning plus model registration.
type Dispatcher struct {
	fabric  fabric.Client
	serving mlregistry.ServingClient
	cfg     DispatcherConfig
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// NewDispatcher creates a deployment dispatcher.
func NewDispatcher(fabricClient fabric.Client, serving mlregistry.ServingClient, cfg DispatcherConfig, metrics *telemetry.Metrics, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		fabric:  fabricClient,
		serving: serving,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// ServiceSpec describes a single-model serving deployment.
type ServiceSpec struct {
	Model          models.ModelStage
	DeploymentName string
	PresetName     string
	Image          images.Image
	EnableAuth     bool
}

// DeployService starts a single-model serving job bound to the model's
// registry locator. Success means the job left the pending state; readiness
// of the serving HTTP endpoint itself is intentionally not verified.
func (d *Dispatcher) DeployService(ctx context.Context, spec ServiceSpec) (*models.InferenceServerInfo, error) {
	model := models.ModelInfo{
		Name:    spec.Model.Name,
		Stage:   spec.Model.Stage,
		Version: spec.Model.Version,
	}

	command := fmt.Sprintf(
		`-c "source /root/.bashrc && mlflow models serve -m %s --host=0.0.0.0 --port=%d --env-manager conda"`,
		models.ModelURI(model.Name, model.Stage), singleModelPort,
	)

	job, err := d.fabric.SubmitJob(ctx, &fabric.SubmitRequest{
		Name:       spec.DeploymentName,
		PresetName: spec.PresetName,
		Image:      spec.Image.String(),
		Entrypoint: "/bin/bash",
		Command:    command,
		Env: map[string]string{
			"MLFLOW_TRACKING_URI": trackingOrigin(spec.Model.Link),
		},
		HTTP:         &fabric.HTTPPort{Port: singleModelPort, RequiresAuth: spec.EnableAuth},
		Tags:         tags.Encode(d.cfg.ControllerID, models.ServerTypeSingleModel, &model),
		SharedMemory: true,
	})
	if err != nil {
		d.metrics.DeploymentsFailed.WithLabelValues("single-model", failureReason(err)).Inc()
		if errors.Is(err, fabric.ErrNameConflict) {
			return nil, fmt.Errorf("deployment %s already exists: %w", spec.DeploymentName, err)
		}
		return nil, fmt.Errorf("failed to submit deployment %s: %w", spec.DeploymentName, err)
	}
	d.metrics.DeploymentsStarted.WithLabelValues("single-model").Inc()
	d.logger.Info("created serving job",
		zap.String("job_id", job.ID), zap.String("deployment", spec.DeploymentName))

	started, err := d.awaitStart(ctx, job)
	if err != nil {
		return nil, err
	}
	return &models.InferenceServerInfo{Job: *started, Type: models.ServerTypeSingleModel}, nil
}

// ServerSpec describes a multi-model server to provision.
type ServerSpec struct {
	Name       string
	PresetName string
	Image      images.Image
	EnableAuth bool
}

// DeployServer provisions a shared multi-model server in explicit
// model-control mode: models load only on explicit registration. The shared
// storage is mounted at the same path that is injected into the job's
// environment, so files this process writes there are visible to the server.
//
// A name collision returns (nil, nil): the caller must treat a missing server
// as "deployment aborted", not retry.
func (d *Dispatcher) DeployServer(ctx context.Context, spec ServerSpec) (*MultiModelServer, error) {
	repoPath := d.cfg.RepoRoot
	if err := os.MkdirAll(repoPath, 0o755); err != nil {
		return nil, &PreconditionError{
			Reason: fmt.Sprintf("cannot provision shared model repository %s: %v", repoPath, err),
		}
	}

	command := fmt.Sprintf(
		`/bin/bash -c "tritonserver --model-control-mode=explicit --strict-model-config=false --model-repository=$%s --http-port=%d"`,
		ModelRepoEnv, multiModelPort,
	)

	job, err := d.fabric.SubmitJob(ctx, &fabric.SubmitRequest{
		Name:       spec.Name,
		PresetName: spec.PresetName,
		Image:      spec.Image.String(),
		Command:    command,
		Env: map[string]string{
			ModelRepoEnv: repoPath,
		},
		Volumes: []fabric.Volume{
			{Storage: d.cfg.RepoStorage, Path: repoPath},
		},
		HTTP:         &fabric.HTTPPort{Port: multiModelPort, RequiresAuth: spec.EnableAuth},
		Tags:         tags.Encode(d.cfg.ControllerID, models.ServerTypeMultiModel, nil),
		SharedMemory: true,
	})
	if err != nil {
		d.metrics.DeploymentsFailed.WithLabelValues("multi-model", failureReason(err)).Inc()
		if errors.Is(err, fabric.ErrNameConflict) {
			d.logger.Warn("server name already exists, aborting provisioning",
				zap.String("server", spec.Name), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to submit server %s: %w", spec.Name, err)
	}
	d.metrics.DeploymentsStarted.WithLabelValues("multi-model").Inc()
	d.logger.Info("created server job",
		zap.String("job_id", job.ID), zap.String("server", spec.Name))

	started, err := d.awaitStart(ctx, job)
	if err != nil {
		return nil, err
	}
	return MultiModelServerFor(models.InferenceServerInfo{Job: *started, Type: models.ServerTypeMultiModel})
}

// DeployModel registers a model on an already-running multi-model server.
// The server handle must be resolved by the caller: either selected from the
// directory or just provisioned.
func (d *Dispatcher) DeployModel(ctx context.Context, model models.ModelStage, deploymentName, flavor string, server *models.InferenceServerInfo) error {
	if server == nil {
		return ErrServerResolution
	}
	multiModel, err := MultiModelServerFor(*server)
	if err != nil {
		return err
	}
	target, err := multiModel.ServingTarget()
	if err != nil {
		return err
	}

	deployment, err := d.serving.CreateServingDeployment(ctx, target, mlregistry.ServingDeploymentRequest{
		Name:     deploymentName,
		ModelURI: model.URI,
		Flavor:   flavor,
	})
	if err != nil {
		d.metrics.DeploymentsFailed.WithLabelValues("multi-model", failureReason(err)).Inc()
		return fmt.Errorf("failed to deploy %s to server %s: %w", model.URI, multiModel.JobID(), err)
	}
	if deployment.Name != deploymentName {
		return fmt.Errorf("deployment failed: server registered %q instead of %q", deployment.Name, deploymentName)
	}
	d.logger.Info("model registered on server",
		zap.String("server_job_id", multiModel.JobID()),
		zap.String("deployment", deploymentName),
		zap.String("model_uri", model.URI))
	return nil
}

func (d *Dispatcher) awaitStart(ctx context.Context, job *fabric.Job) (*fabric.Job, error) {
	waitStartedAt := time.Now()
	started, err := waitStarted(ctx, d.fabric, job, d.cfg.PollInterval, d.cfg.ReadinessTimeout)
	if err != nil {
		return nil, err
	}
	d.metrics.ReadinessWait.Observe(time.Since(waitStartedAt).Seconds())
	d.logger.Info("job started", zap.String("job_id", started.ID))
	return started, nil
}

// trackingOrigin strips path and fragment from a registry UI link, leaving
// the tracking endpoint the serving process should talk to.
func trackingOrigin(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return link
	}
	return parsed.Scheme + "://" + parsed.Host
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, fabric.ErrNameConflict):
		return "name-collision"
	case mlregistry.IsUnsupportedFlavor(err):
		return "unsupported-flavor"
	default:
		return "backend"
	}
}
