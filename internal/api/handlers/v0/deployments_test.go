package v0_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	v0 "github.com/modelserve-dev/modelserve/internal/api/handlers/v0"
	"github.com/modelserve-dev/modelserve/internal/api/router"
	fabrictesting "github.com/modelserve-dev/modelserve/internal/fabric/testing"
	"github.com/modelserve-dev/modelserve/internal/images"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	registrytesting "github.com/modelserve-dev/modelserve/internal/mlregistry/testing"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator"
	"github.com/modelserve-dev/modelserve/internal/telemetry"
)

type apiEnv struct {
	mux     *http.ServeMux
	fabric  *fabrictesting.FakeFabric
	serving *registrytesting.FakeServing
}

func newAPIEnv(t *testing.T, registry *registrytesting.FakeRegistry) *apiEnv {
	t.Helper()

	fakeFabric := fabrictesting.NewFakeFabric()
	fakeServing := registrytesting.NewFakeServing()
	metrics := telemetry.NewNopMetrics()
	logger := zap.NewNop()

	directory := orchestrator.NewDirectory(fakeFabric, "0", metrics, logger)
	dispatcher := orchestrator.NewDispatcher(fakeFabric, fakeServing, orchestrator.DispatcherConfig{
		ControllerID:     "0",
		RepoStorage:      "storage:model-repo",
		RepoRoot:         t.TempDir(),
		PollInterval:     time.Millisecond,
		ReadinessTimeout: time.Second,
	}, metrics, logger)
	fleet := orchestrator.NewFleet(directory, fakeServing, fakeFabric, logger)
	catalog := images.NewCatalog(fakeFabric, logger)

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("Test API", "1.0.0"))
	router.RegisterRoutes(api, router.Services{
		Dispatcher: dispatcher,
		Directory:  directory,
		Fleet:      fleet,
		Registry:   registry,
		Catalog:    catalog,
	})
	return &apiEnv{mux: mux, fabric: fakeFabric, serving: fakeServing}
}

func (e *apiEnv) post(t *testing.T, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func registryWithModels() *registrytesting.FakeRegistry {
	return &registrytesting.FakeRegistry{
		Models: []models.ModelStage{
			{
				Name:    "fraud-detector",
				Version: "3",
				Stage:   "Production",
				URI:     models.ModelURI("fraud-detector", "Production"),
				Link:    "https://mlflow.example.com/#/models/fraud-detector/versions/3",
				Source:  "mlflow-artifacts:/1/abc/artifacts/model",
			},
			{
				Name:    "ocr",
				Version: "1",
				Stage:   "Production",
				URI:     models.ModelURI("ocr", "Production"),
				Link:    "https://mlflow.example.com/#/models/ocr/versions/1",
				Source:  "mlflow-artifacts:/2/def/artifacts/model",
			},
		},
		Descriptors: map[string]map[string]any{
			"mlflow-artifacts:/2/def/artifacts/model": {
				"flavors": map[string]any{
					"python_function": map[string]any{},
					"onnx":            map[string]any{},
				},
			},
		},
	}
}

func serviceBody(name string) map[string]any {
	return map[string]any{
		"modelName": "fraud-detector",
		"stage":     "Production",
		"name":      name,
		"preset":    "cpu-small",
		"image":     map[string]any{"name": "ghcr.io/modelserve-dev/mlflow-runtime", "tag": "latest"},
	}
}

func TestDeployService_CreatesSingleModelServer(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	w := env.post(t, "/v0/services", serviceBody("fraud-detector-prod"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp v0.ServerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "fraud-detector-prod", resp.Name)
	assert.Equal(t, models.ServerTypeSingleModel, resp.Type)
	assert.NotEmpty(t, resp.JobID)

	listing := env.get(t, "/v0/servers?type=MLFlow")
	require.Equal(t, http.StatusOK, listing.Code)
	var servers struct {
		Servers []v0.ServerResponse `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(listing.Body.Bytes(), &servers))
	require.Len(t, servers.Servers, 1)
	assert.Equal(t, resp.JobID, servers.Servers[0].JobID)
}

func TestDeployService_NameCollision(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	first := env.post(t, "/v0/services", serviceBody("fraud-detector-prod"))
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := env.post(t, "/v0/services", serviceBody("fraud-detector-prod"))
	assert.Equal(t, http.StatusConflict, second.Code, second.Body.String())
}

func TestDeployService_UnknownModel(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	body := serviceBody("ghost")
	body["modelName"] = "ghost"
	w := env.post(t, "/v0/services", body)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestDeployServer_ReturnsServerHandle(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	w := env.post(t, "/v0/servers", map[string]any{
		"name":   "triton-a",
		"preset": "gpu-small",
		"image":  map[string]any{"name": "nvcr.io/nvidia/tritonserver", "tag": "23.08-py3"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp v0.ServerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "triton-a", resp.Name)
	assert.Equal(t, models.ServerTypeMultiModel, resp.Type)
}

func TestDeployServer_NameCollisionConflict(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	body := map[string]any{
		"name":   "triton-a",
		"preset": "gpu-small",
		"image":  map[string]any{"name": "nvcr.io/nvidia/tritonserver"},
	}
	require.Equal(t, http.StatusOK, env.post(t, "/v0/servers", body).Code)
	assert.Equal(t, http.StatusConflict, env.post(t, "/v0/servers", body).Code)
}

func TestDeployModel_ProvisionsServerAndResolvesFlavor(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	var captured mlregistry.ServingDeploymentRequest
	env.serving.CreateFn = func(_ context.Context, target mlregistry.Target, req mlregistry.ServingDeploymentRequest) (*mlregistry.ServingDeployment, error) {
		captured = req
		require.NotEmpty(t, target.Endpoint)
		return &mlregistry.ServingDeployment{Name: req.Name, ModelURI: req.ModelURI}, nil
	}

	w := env.post(t, "/v0/deployments", map[string]any{
		"modelName": "ocr",
		"stage":     "Production",
		"name":      "ocr",
		"server": map[string]any{
			"name":   "triton-a",
			"preset": "gpu-small",
			"image":  map[string]any{"name": "nvcr.io/nvidia/tritonserver"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "ocr", captured.Name)
	assert.Equal(t, "models:/ocr/production", captured.ModelURI)
	assert.Equal(t, "onnx", captured.Flavor)
}

func TestDeployModel_TargetsExistingServer(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	created := env.post(t, "/v0/servers", map[string]any{
		"name":   "triton-a",
		"preset": "gpu-small",
		"image":  map[string]any{"name": "nvcr.io/nvidia/tritonserver"},
	})
	require.Equal(t, http.StatusOK, created.Code)
	var server v0.ServerResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &server))

	w := env.post(t, "/v0/deployments", map[string]any{
		"modelName":   "ocr",
		"stage":       "Production",
		"name":        "ocr",
		"flavor":      "onnx",
		"serverJobId": server.JobID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp v0.ServerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, server.JobID, resp.JobID)
}

func TestDeployModel_RequiresServerReference(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	w := env.post(t, "/v0/deployments", map[string]any{
		"modelName": "ocr",
		"stage":     "Production",
		"name":      "ocr",
		"flavor":    "onnx",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestDeployModel_UnsupportedFlavor(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())
	env.serving.CreateFn = func(_ context.Context, _ mlregistry.Target, req mlregistry.ServingDeploymentRequest) (*mlregistry.ServingDeployment, error) {
		return nil, &mlregistry.UnsupportedFlavorError{Flavor: req.Flavor}
	}

	w := env.post(t, "/v0/deployments", map[string]any{
		"modelName": "ocr",
		"stage":     "Production",
		"name":      "ocr",
		"flavor":    "sklearn",
		"server": map[string]any{
			"name":   "triton-a",
			"preset": "gpu-small",
			"image":  map[string]any{"name": "nvcr.io/nvidia/tritonserver"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestListDeployments_JoinsServersWithModels(t *testing.T) {
	env := newAPIEnv(t, registryWithModels())

	require.Equal(t, http.StatusOK, env.post(t, "/v0/services", serviceBody("fraud-detector-prod")).Code)

	w := env.get(t, "/v0/deployments")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Deployments []struct {
			Model  models.ModelInfo  `json:"model"`
			Server v0.ServerResponse `json:"server"`
		} `json:"deployments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Deployments, 1)
	assert.Equal(t, "fraud-detector", resp.Deployments[0].Model.Name)
	assert.Equal(t, "Production", resp.Deployments[0].Model.Stage)
	assert.Equal(t, "3", resp.Deployments[0].Model.Version)
	assert.Equal(t, "fraud-detector-prod", resp.Deployments[0].Server.Name)
}
