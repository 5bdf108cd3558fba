package mlregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// servingMetaFileName records the registry locator of a model placed in the
// shared repository, next to its version directories. The listing side reads
// it back to report which registry model a registration came from.
const servingMetaFileName = ".modelserve-meta.json"

// supportedServingFlavors are the model serialization formats the shared
// multi-model server can load.
var supportedServingFlavors = map[string]bool{
	"onnx":   true,
	"triton": true,
}

type servingMeta struct {
	ModelURI string `json:"model_uri"`
	Flavor   string `json:"flavor"`
}

// HTTPServingClient manages model registrations on a multi-model server via
// its repository management API plus file placement into the shared model
// repository. There is no file-transfer API: the server discovers files the
// client writes into the shared mount.
type HTTPServingClient struct {
	registry Client
	client   *http.Client
	logger   *zap.Logger
}

var _ ServingClient = (*HTTPServingClient)(nil)

// NewHTTPServingClient creates a serving client backed by the given registry
// for artifact materialization.
func NewHTTPServingClient(registry Client, logger *zap.Logger) *HTTPServingClient {
	return &HTTPServingClient{
		registry: registry,
		client:   &http.Client{Timeout: 2 * time.Minute},
		logger:   logger,
	}
}

// CreateServingDeployment places the model's artifacts into the target's
// shared repository, asks the server to load them, and verifies the server
// reports the registration under the requested name.
func (c *HTTPServingClient) CreateServingDeployment(ctx context.Context, target Target, req ServingDeploymentRequest) (*ServingDeployment, error) {
	if !supportedServingFlavors[strings.ToLower(req.Flavor)] {
		return nil, &UnsupportedFlavorError{Flavor: req.Flavor}
	}

	modelDir := filepath.Join(target.RepoPath, req.Name)
	versionDir := filepath.Join(modelDir, "1")
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory in shared repository: %w", err)
	}
	if err := c.registry.DownloadModelArtifacts(ctx, req.ModelURI, versionDir); err != nil {
		return nil, fmt.Errorf("failed to materialize model artifacts: %w", err)
	}
	if err := writeServingMeta(modelDir, servingMeta{ModelURI: req.ModelURI, Flavor: req.Flavor}); err != nil {
		return nil, err
	}

	if err := c.loadModel(ctx, target, req.Name); err != nil {
		return nil, err
	}

	// The server is the source of truth for what got registered: the echoed
	// name must match the requested one or the deployment failed.
	registrations, err := c.ListServingDeployments(ctx, target)
	if err != nil {
		return nil, err
	}
	for _, registration := range registrations {
		if registration.Name == req.Name {
			return &registration, nil
		}
	}
	return nil, fmt.Errorf("deployment failed: server did not report model %q after load", req.Name)
}

// ListServingDeployments returns the models the server currently has in its
// repository index.
func (c *HTTPServingClient) ListServingDeployments(ctx context.Context, target Target) ([]ServingDeployment, error) {
	entries, err := c.repositoryIndex(ctx, target)
	if err != nil {
		return nil, err
	}

	result := make([]ServingDeployment, 0, len(entries))
	for _, entry := range entries {
		meta, err := readServingMeta(filepath.Join(target.RepoPath, entry.Name))
		if err != nil {
			// Models placed outside the orchestrator have no metadata file.
			c.logger.Warn("no deployment metadata for served model",
				zap.String("model", entry.Name), zap.Error(err))
			meta = servingMeta{}
		}
		result = append(result, ServingDeployment{
			Name:     entry.Name,
			ModelURI: meta.ModelURI,
		})
	}
	return result, nil
}

type indexEntry struct {
	Name    string `json:"name"`
	State   string `json:"state,omitempty"`
	Version string `json:"version,omitempty"`
}

func (c *HTTPServingClient) repositoryIndex(ctx context.Context, target Target) ([]indexEntry, error) {
	u := strings.TrimSuffix(target.Endpoint, "/") + "/v2/repository/index"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, fmt.Errorf("failed to build index request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository index request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("repository index failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var entries []indexEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode repository index: %w", err)
	}
	return entries, nil
}

func (c *HTTPServingClient) loadModel(ctx context.Context, target Target, name string) error {
	u := strings.TrimSuffix(target.Endpoint, "/") + "/v2/repository/models/" + name + "/load"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build model load request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("model load request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("model load failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}

func writeServingMeta(modelDir string, meta servingMeta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode deployment metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, servingMetaFileName), payload, 0o644); err != nil {
		return fmt.Errorf("failed to write deployment metadata: %w", err)
	}
	return nil
}

func readServingMeta(modelDir string) (servingMeta, error) {
	raw, err := os.ReadFile(filepath.Join(modelDir, servingMetaFileName))
	if err != nil {
		return servingMeta{}, err
	}
	var meta servingMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return servingMeta{}, fmt.Errorf("malformed deployment metadata: %w", err)
	}
	return meta, nil
}
