package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	"github.com/modelserve-dev/modelserve/internal/models"
)

func multiModelInfo(repoPath string) models.InferenceServerInfo {
	env := map[string]string{}
	if repoPath != "" {
		env[ModelRepoEnv] = repoPath
	}
	return models.InferenceServerInfo{
		Job: fabric.Job{
			ID:               "job-7",
			InternalHostname: "job-7.platform.internal",
			Container: fabric.Container{
				Env:  env,
				HTTP: &fabric.HTTPPort{Port: 8000},
			},
		},
		Type: models.ServerTypeMultiModel,
	}
}

func TestMultiModelServerFor(t *testing.T) {
	server, err := MultiModelServerFor(multiModelInfo("/data/models"))
	require.NoError(t, err)
	assert.Equal(t, "/data/models", server.RepoPath)
	assert.Equal(t, 8000, server.Port())
	assert.Equal(t, "http://job-7.platform.internal:8000", server.Endpoint())
}

func TestMultiModelServerFor_MissingRepoEnvIsStructural(t *testing.T) {
	_, err := MultiModelServerFor(multiModelInfo(""))
	require.Error(t, err)
	assert.True(t, IsStructural(err))
	assert.Contains(t, err.Error(), ModelRepoEnv)
}

func TestMultiModelServerFor_WrongTypeIsStructural(t *testing.T) {
	info := multiModelInfo("/data/models")
	info.Type = models.ServerTypeSingleModel
	_, err := MultiModelServerFor(info)
	require.Error(t, err)
	assert.True(t, IsStructural(err))
}

func TestServingTarget_MissingMountIsPreconditionViolation(t *testing.T) {
	server, err := MultiModelServerFor(multiModelInfo("/nonexistent/model/repo"))
	require.NoError(t, err)

	_, err = server.ServingTarget()
	require.Error(t, err)
	assert.True(t, IsPrecondition(err))
}

func TestServingTarget(t *testing.T) {
	repo := t.TempDir()
	server, err := MultiModelServerFor(multiModelInfo(repo))
	require.NoError(t, err)

	target, err := server.ServingTarget()
	require.NoError(t, err)
	assert.Equal(t, repo, target.RepoPath)
	assert.Equal(t, server.Endpoint(), target.Endpoint)
}
