package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	fabrictesting "github.com/modelserve-dev/modelserve/internal/fabric/testing"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/telemetry"
)

func newDirectory(f fabric.Client) *Directory {
	return NewDirectory(f, "0", telemetry.NewNopMetrics(), zap.NewNop())
}

func submitTagged(t *testing.T, f *fabrictesting.FakeFabric, name string, tagSet []string) *fabric.Job {
	t.Helper()
	job, err := f.SubmitJob(context.Background(), &fabric.SubmitRequest{Name: name, Tags: tagSet})
	require.NoError(t, err)
	return job
}

func TestListActiveServers_ClassifiesByTags(t *testing.T) {
	f := fabrictesting.NewFakeFabric()
	submitTagged(t, f, "mlflow-one", []string{
		"inference-server::0", "server-type::MLFlow", "model-info::a:Staging:1",
	})
	submitTagged(t, f, "triton-one", []string{
		"inference-server::0", "server-type::Triton",
	})
	// Owned by a different controller: filtered out by the ownership tag.
	submitTagged(t, f, "other-controller", []string{
		"inference-server::1", "server-type::MLFlow",
	})

	servers, err := newDirectory(f).ListActiveServers(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, servers, 2)
}

func TestListActiveServers_TypeFilter(t *testing.T) {
	f := fabrictesting.NewFakeFabric()
	submitTagged(t, f, "mlflow-one", []string{"inference-server::0", "server-type::MLFlow"})
	submitTagged(t, f, "triton-one", []string{"inference-server::0", "server-type::Triton"})

	servers, err := newDirectory(f).ListActiveServers(context.Background(), models.ServerTypeMultiModel)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, models.ServerTypeMultiModel, servers[0].Type)
	assert.Equal(t, "triton-one", servers[0].JobName())
}

func TestListActiveServers_SkipsUndecodableJobs(t *testing.T) {
	f := fabrictesting.NewFakeFabric()
	submitTagged(t, f, "good", []string{"inference-server::0", "server-type::MLFlow"})
	// Carries the ownership tag but no recognized type tag: excluded, not fatal.
	submitTagged(t, f, "untyped", []string{"inference-server::0"})
	submitTagged(t, f, "bogus-type", []string{"inference-server::0", "server-type::TensorRT"})

	servers, err := newDirectory(f).ListActiveServers(context.Background(), "")
	require.NoError(t, err, "a single bad job must never fail the listing")
	require.Len(t, servers, 1)
	assert.Equal(t, "good", servers[0].JobName())
}
