package mlregistry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryStub(t *testing.T, descriptorFetches *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/2.0/mlflow/registered-models/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"registered_models": []map[string]any{{"name": "fraud-detector"}},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow/registered-models/get-latest-versions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "fraud-detector", r.URL.Query().Get("name"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model_versions": []map[string]any{{
				"name":               "fraud-detector",
				"version":            "3",
				"current_stage":      "Production",
				"creation_timestamp": 1700000000000,
				"source":             "mlflow-artifacts:/1/abc/artifacts/model",
			}},
		})
	})
	mux.HandleFunc("/api/2.0/mlflow-artifacts/artifacts/1/abc/artifacts/model/MLmodel", func(w http.ResponseWriter, r *http.Request) {
		if descriptorFetches != nil {
			descriptorFetches.Add(1)
		}
		_, _ = w.Write([]byte("flavors:\n  onnx:\n    onnx_version: \"1.14\"\n"))
	})
	return httptest.NewServer(mux)
}

func TestGetRegisteredModels(t *testing.T) {
	srv := newRegistryStub(t, nil)
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "https://mlflow.public.example.com")
	stages, err := client.GetRegisteredModels(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, 1)

	stage := stages[0]
	assert.Equal(t, "fraud-detector", stage.Name)
	assert.Equal(t, "3", stage.Version)
	assert.Equal(t, "Production", stage.Stage)
	assert.Equal(t, "models:/fraud-detector/production", stage.URI)
	assert.Equal(t, srv.URL+"/#/models/fraud-detector/versions/3", stage.Link)
	assert.Equal(t, "https://mlflow.public.example.com/#/models/fraud-detector/versions/3", stage.PublicLink)
	require.NotNil(t, stage.Descriptor)
	assert.Contains(t, stage.Descriptor, "flavors")
}

func TestGetModelDescriptor_CachedBySourcePath(t *testing.T) {
	var fetches atomic.Int64
	srv := newRegistryStub(t, &fetches)
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	ctx := context.Background()
	source := "mlflow-artifacts:/1/abc/artifacts/model"

	first, err := client.GetModelDescriptor(ctx, source)
	require.NoError(t, err)
	second, err := client.GetModelDescriptor(ctx, source)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), fetches.Load(), "descriptor must be fetched once per source path")
}

func TestSplitModelURI(t *testing.T) {
	name, stage, err := splitModelURI("models:/ocr/production")
	require.NoError(t, err)
	assert.Equal(t, "ocr", name)
	assert.Equal(t, "production", stage)

	_, _, err = splitModelURI("runs:/abc/model")
	assert.Error(t, err)

	_, _, err = splitModelURI("models:/missing-stage")
	assert.Error(t, err)
}

func TestDescriptorCache_EvictsOldest(t *testing.T) {
	cache := newDescriptorCache(2)
	cache.put("a", map[string]any{"v": 1})
	cache.put("b", map[string]any{"v": 2})
	cache.put("c", map[string]any{"v": 3})

	_, ok := cache.get("a")
	assert.False(t, ok, "oldest entry should be evicted at capacity")
	_, ok = cache.get("b")
	assert.True(t, ok)
	_, ok = cache.get("c")
	assert.True(t, ok)
}
