package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitJob_NameConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/jobs", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "job with name fraud-detector-prod already exists",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	_, err := client.SubmitJob(context.Background(), &SubmitRequest{Name: "fraud-detector-prod"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameConflict), "expected ErrNameConflict, got %v", err)
}

func TestSubmitJob_GenericFailureIsNotConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "cluster unavailable"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	_, err := client.SubmitJob(context.Background(), &SubmitRequest{Name: "x"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNameConflict))
}

func TestListJobs_SendsStatusAndTagFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.ElementsMatch(t, []string{"pending", "running"}, query["status"])
		assert.ElementsMatch(t, []string{"inference-server::0", "server-type::Triton"}, query["tag"])
		_ = json.NewEncoder(w).Encode(jobsPage{Jobs: []*Job{
			{ID: "job-1", Status: StatusRunning},
		}})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token")
	jobs, err := client.ListJobs(context.Background(), ListOptions{
		Statuses: ActiveStatuses(),
		Tags:     []string{"inference-server::0", "server-type::Triton"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].ID)
}

func TestKillJob_UnknownJobSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no such job"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	err := client.KillJob(context.Background(), "job-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such job")
}

func TestListPresets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/config", r.URL.Path)
		_, _ = w.Write([]byte(`{"presets": {"cpu-small": {"cpu": 1, "memory": 4096}, "gpu-v100": {"cpu": 8, "memory": 65536, "gpu": 1}}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "")
	presets, err := client.ListPresets(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cpu-small", "gpu-v100"}, presets)
}
