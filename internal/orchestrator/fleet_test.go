package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	fabrictesting "github.com/modelserve-dev/modelserve/internal/fabric/testing"
	"github.com/modelserve-dev/modelserve/internal/images"
	registrytesting "github.com/modelserve-dev/modelserve/internal/mlregistry/testing"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator/tags"
)

func newFleet(f *fabrictesting.FakeFabric, serving *registrytesting.FakeServing) *Fleet {
	return NewFleet(newDirectory(f), serving, f, zap.NewNop())
}

func TestEndToEnd_SingleModelDeployment(t *testing.T) {
	ctx := context.Background()
	f := fabrictesting.NewFakeFabric()
	serving := registrytesting.NewFakeServing()
	dispatcher := newDispatcher(f, serving, t.TempDir())
	directory := newDirectory(f)
	fleet := newFleet(f, serving)

	// Nothing is running yet.
	servers, err := directory.ListActiveServers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, servers)

	// Deploy fraud-detector (Production, version 3) as a dedicated service.
	_, err = dispatcher.DeployService(ctx, ServiceSpec{
		Model:          productionModel(),
		DeploymentName: "fraud-detector-prod",
		PresetName:     "cpu-small",
		Image:          images.Image{Name: "ghcr.io/modelserve-dev/mlflow-runtime"},
	})
	require.NoError(t, err)

	// Discovery now returns exactly one single-model server whose decoded
	// model identity matches what was deployed.
	servers, err = directory.ListActiveServers(ctx, "")
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, models.ServerTypeSingleModel, servers[0].Type)

	model, err := tags.DecodeModelInfo(servers[0].Job.Tags)
	require.NoError(t, err)
	assert.Equal(t, models.ModelInfo{Name: "fraud-detector", Stage: "Production", Version: "3"}, model)

	deployed, err := fleet.ListAllDeployedModels(ctx)
	require.NoError(t, err)
	require.Len(t, deployed, 1)
	assert.Equal(t, model, deployed[0].Model)
	assert.True(t, deployed[0].Server.Equal(servers[0]))
}

func TestEndToEnd_MultiModelDeployment(t *testing.T) {
	ctx := context.Background()
	f := fabrictesting.NewFakeFabric()
	serving := registrytesting.NewFakeServing()
	dispatcher := newDispatcher(f, serving, t.TempDir())
	fleet := newFleet(f, serving)

	server, err := dispatcher.DeployServer(ctx, ServerSpec{
		Name:       "triton-a",
		PresetName: "gpu-v100",
		Image:      images.Image{Name: "nvcr.io/nvidia/tritonserver", Tag: "23.10-py3"},
	})
	require.NoError(t, err)
	require.NotNil(t, server)

	ocr := models.ModelStage{
		Name:    "ocr",
		Version: "1",
		Stage:   "Production",
		URI:     "models:/ocr/production",
	}
	require.NoError(t, dispatcher.DeployModel(ctx, ocr, "ocr", "onnx", &server.InferenceServerInfo))

	deployed, err := fleet.ListAllDeployedModels(ctx)
	require.NoError(t, err)
	require.Len(t, deployed, 1)

	assert.True(t, deployed[0].Server.Equal(server.InferenceServerInfo))
	// Stage comes from the last path segment of the reported locator; the
	// listing API does not expose versions.
	assert.Equal(t, "production", deployed[0].Model.Stage)
	assert.Equal(t, "unknown", deployed[0].Model.Version)
	assert.Equal(t, "ocr", deployed[0].Model.Name)
}

func TestListAllDeployedModels_MissingModelTagIsFatal(t *testing.T) {
	f := fabrictesting.NewFakeFabric()
	// A single-model server without its model-identity tag: the protocol was
	// corrupted, so the listing fails rather than skipping it.
	submitTagged(t, f, "corrupted", []string{"inference-server::0", "server-type::MLFlow"})

	fleet := newFleet(f, registrytesting.NewFakeServing())
	_, err := fleet.ListAllDeployedModels(context.Background())
	require.Error(t, err)
	assert.True(t, IsStructural(err))
}

func TestKillServer_RemovesFromNextListing(t *testing.T) {
	ctx := context.Background()
	f := fabrictesting.NewFakeFabric()
	dispatcher := newDispatcher(f, registrytesting.NewFakeServing(), t.TempDir())
	directory := newDirectory(f)
	fleet := newFleet(f, registrytesting.NewFakeServing())

	server, err := dispatcher.DeployService(ctx, ServiceSpec{
		Model:          productionModel(),
		DeploymentName: "fraud-detector-prod",
		PresetName:     "cpu-small",
		Image:          images.Image{Name: "ghcr.io/modelserve-dev/mlflow-runtime"},
	})
	require.NoError(t, err)

	require.NoError(t, fleet.KillServer(ctx, *server))

	servers, err := directory.ListActiveServers(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, servers)
}

func TestKillServer_UnknownJobSurfacesError(t *testing.T) {
	fleet := newFleet(fabrictesting.NewFakeFabric(), registrytesting.NewFakeServing())

	err := fleet.KillServer(context.Background(), models.InferenceServerInfo{
		Job: fabric.Job{ID: "job-does-not-exist"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job-does-not-exist")
}
