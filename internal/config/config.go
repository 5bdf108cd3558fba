package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the orchestrator process configuration. Everything comes from
// the environment: the orchestrator keeps no state of its own, so the
// environment contract (controller identity, platform endpoints, shared model
// repository mount) is the whole configuration surface.
type Config struct {
	// Address the HTTP API listens on.
	Address string `env:"MODELSERVE_ADDRESS" envDefault:":8090"`

	// ControllerID scopes which jobs this orchestrator instance owns.
	ControllerID string `env:"MODELSERVE_CONTROLLER_ID" envDefault:"0"`

	// PlatformURL is the base URL of the job fabric API.
	PlatformURL string `env:"PLATFORM_API_URL"`

	// PlatformToken is the bearer credential for the job fabric API. Empty
	// means unauthenticated access.
	PlatformToken string `env:"PLATFORM_API_TOKEN"`

	// RegistryURI is the model registry tracking endpoint.
	RegistryURI string `env:"MLFLOW_TRACKING_URI"`

	// RegistryPublicURI is the browser-facing registry endpoint, if it differs
	// from RegistryURI. Falls back to RegistryURI when empty.
	RegistryPublicURI string `env:"MLFLOW_PUBLIC_URI"`

	// ModelRepoStorage is the platform storage URI mounted into multi-model
	// server jobs as their model repository.
	ModelRepoStorage string `env:"MODEL_REPO_STORAGE"`

	// ModelRepoRoot is the local mount of the same storage as seen by this
	// process. The two must resolve to the same physical location.
	ModelRepoRoot string `env:"MODEL_REPO"`

	// PollInterval is the delay between job status polls during deployment.
	PollInterval time.Duration `env:"MODELSERVE_POLL_INTERVAL" envDefault:"100ms"`

	// ReadinessTimeout bounds how long a deployment waits for a job to leave
	// the pending state.
	ReadinessTimeout time.Duration `env:"MODELSERVE_READINESS_TIMEOUT" envDefault:"10m"`
}

// NewConfig loads configuration from the environment.
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if cfg.RegistryPublicURI == "" {
		cfg.RegistryPublicURI = cfg.RegistryURI
	}
	return cfg, nil
}
