package mlregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/modelserve-dev/modelserve/internal/models"
)

const (
	defaultRequestTimeout = 60 * time.Second

	// descriptorFileName is the descriptor stored at the root of every model
	// version's artifact tree.
	descriptorFileName = "MLmodel"
)

// trackedStages are the promotion stages surfaced in model listings.
var trackedStages = []string{"staging", "production"}

// HTTPClient talks to the model registry's REST API.
type HTTPClient struct {
	trackingURI string
	publicURI   string
	client      *http.Client
	descriptors *descriptorCache
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a registry client. publicURI is the browser-facing
// endpoint used for human links; it may equal trackingURI.
func NewHTTPClient(trackingURI, publicURI string) *HTTPClient {
	if publicURI == "" {
		publicURI = trackingURI
	}
	return &HTTPClient{
		trackingURI: strings.TrimSuffix(trackingURI, "/"),
		publicURI:   strings.TrimSuffix(publicURI, "/"),
		client:      &http.Client{Timeout: defaultRequestTimeout},
		descriptors: newDescriptorCache(defaultDescriptorCacheSize),
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.trackingURI + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build registry request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("registry API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode registry response: %w", err)
		}
	}
	return nil
}

type registeredModel struct {
	Name string `json:"name"`
}

type modelVersion struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	CurrentStage      string `json:"current_stage"`
	CreationTimestamp int64  `json:"creation_timestamp"`
	Source            string `json:"source"`
}

// GetRegisteredModels lists every registered model's latest version at each
// tracked promotion stage.
func (c *HTTPClient) GetRegisteredModels(ctx context.Context) ([]models.ModelStage, error) {
	var searchResp struct {
		RegisteredModels []registeredModel `json:"registered_models"`
	}
	if err := c.get(ctx, "/api/2.0/mlflow/registered-models/search", nil, &searchResp); err != nil {
		return nil, err
	}

	var result []models.ModelStage
	for _, model := range searchResp.RegisteredModels {
		query := url.Values{"name": {model.Name}}
		for _, stage := range trackedStages {
			query.Add("stages", stage)
		}
		var versionsResp struct {
			ModelVersions []modelVersion `json:"model_versions"`
		}
		if err := c.get(ctx, "/api/2.0/mlflow/registered-models/get-latest-versions", query, &versionsResp); err != nil {
			return nil, fmt.Errorf("failed to fetch latest versions of %s: %w", model.Name, err)
		}

		for _, version := range versionsResp.ModelVersions {
			link := fmt.Sprintf("%s/#/models/%s/versions/%s", c.trackingURI, model.Name, version.Version)
			publicLink := fmt.Sprintf("%s/#/models/%s/versions/%s", c.publicURI, model.Name, version.Version)
			descriptor, err := c.GetModelDescriptor(ctx, version.Source)
			if err != nil {
				// The listing stays useful without a descriptor; deployment
				// re-checks flavors anyway.
				descriptor = nil
			}
			result = append(result, models.ModelStage{
				Name:       model.Name,
				Version:    version.Version,
				Stage:      version.CurrentStage,
				CreatedAt:  time.UnixMilli(version.CreationTimestamp),
				URI:        models.ModelURI(model.Name, version.CurrentStage),
				Link:       link,
				PublicLink: publicLink,
				Source:     version.Source,
				Descriptor: descriptor,
			})
		}
	}
	return result, nil
}

// GetModelDescriptor fetches and parses the MLmodel descriptor of a model
// version. Descriptors are immutable per source path, so the parsed result is
// cached by source path and never invalidated.
func (c *HTTPClient) GetModelDescriptor(ctx context.Context, source string) (map[string]any, error) {
	if cached, ok := c.descriptors.get(source); ok {
		return cached, nil
	}

	raw, err := c.fetchArtifact(ctx, source, descriptorFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model descriptor from %s: %w", source, err)
	}
	descriptor := map[string]any{}
	if err := yaml.Unmarshal(raw, &descriptor); err != nil {
		return nil, fmt.Errorf("failed to parse model descriptor: %w", err)
	}

	c.descriptors.put(source, descriptor)
	return descriptor, nil
}

// resolveModelURI maps a models:/<name>/<stage> locator to the artifact
// source path of the latest version at that stage.
func (c *HTTPClient) resolveModelURI(ctx context.Context, modelURI string) (string, error) {
	name, stage, err := splitModelURI(modelURI)
	if err != nil {
		return "", err
	}
	query := url.Values{"name": {name}, "stages": {stage}}
	var versionsResp struct {
		ModelVersions []modelVersion `json:"model_versions"`
	}
	if err := c.get(ctx, "/api/2.0/mlflow/registered-models/get-latest-versions", query, &versionsResp); err != nil {
		return "", err
	}
	if len(versionsResp.ModelVersions) == 0 {
		return "", fmt.Errorf("no version of model %s at stage %s", name, stage)
	}
	return versionsResp.ModelVersions[0].Source, nil
}

func splitModelURI(modelURI string) (name, stage string, err error) {
	rest, ok := strings.CutPrefix(modelURI, "models:/")
	if !ok {
		return "", "", fmt.Errorf("not a registry locator: %q", modelURI)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed registry locator: %q", modelURI)
	}
	return parts[0], parts[1], nil
}

type artifactEntry struct {
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir"`
	FileSize int64  `json:"file_size,omitempty"`
}

// DownloadModelArtifacts materializes the artifact tree of the version
// modelURI resolves to under destDir.
func (c *HTTPClient) DownloadModelArtifacts(ctx context.Context, modelURI, destDir string) error {
	source, err := c.resolveModelURI(ctx, modelURI)
	if err != nil {
		return err
	}
	return c.downloadTree(ctx, source, "", destDir)
}

func (c *HTTPClient) downloadTree(ctx context.Context, source, rel, destDir string) error {
	entries, err := c.listArtifacts(ctx, source, rel)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir {
			if err := c.downloadTree(ctx, source, entry.Path, destDir); err != nil {
				return err
			}
			continue
		}
		raw, err := c.fetchArtifact(ctx, source, entry.Path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, filepath.FromSlash(entry.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %w", err)
		}
		if err := os.WriteFile(target, raw, 0o644); err != nil {
			return fmt.Errorf("failed to write artifact %s: %w", entry.Path, err)
		}
	}
	return nil
}

func (c *HTTPClient) listArtifacts(ctx context.Context, source, rel string) ([]artifactEntry, error) {
	base, ok := strings.CutPrefix(source, "mlflow-artifacts:/")
	if !ok {
		return nil, fmt.Errorf("unsupported artifact source scheme: %q", source)
	}
	path := strings.Trim(base, "/")
	if rel != "" {
		path += "/" + rel
	}
	var listResp struct {
		Files []artifactEntry `json:"files"`
	}
	query := url.Values{"path": {path}}
	if err := c.get(ctx, "/api/2.0/mlflow-artifacts/artifacts", query, &listResp); err != nil {
		return nil, err
	}
	return listResp.Files, nil
}

// fetchArtifact reads one file relative to a model version's artifact root.
func (c *HTTPClient) fetchArtifact(ctx context.Context, source, rel string) ([]byte, error) {
	base, ok := strings.CutPrefix(source, "mlflow-artifacts:/")
	if !ok {
		return nil, fmt.Errorf("unsupported artifact source scheme: %q", source)
	}
	u := c.trackingURI + "/api/2.0/mlflow-artifacts/artifacts/" + strings.Trim(base, "/") + "/" + rel

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact fetch failed (status %d) for %s", resp.StatusCode, rel)
	}
	return io.ReadAll(resp.Body)
}
