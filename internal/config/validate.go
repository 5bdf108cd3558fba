package config

import "fmt"

// Validate performs runtime validations on the loaded configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.PlatformURL == "" {
		return fmt.Errorf("platform API URL must be specified (PLATFORM_API_URL)")
	}
	if cfg.RegistryURI == "" {
		return fmt.Errorf("model registry URI must be specified (MLFLOW_TRACKING_URI)")
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive (got %s)", cfg.PollInterval)
	}
	if cfg.ReadinessTimeout <= 0 {
		return fmt.Errorf("readiness timeout must be positive (got %s)", cfg.ReadinessTimeout)
	}
	return nil
}
