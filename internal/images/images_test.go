package images

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/modelserve-dev/modelserve/internal/fabric"
)

type fakeFabric struct {
	fabric.Client

	hosted    []string
	hostedErr error
	tags      map[string][]string
}

func (f *fakeFabric) ListHostedImages(context.Context) ([]string, error) {
	return f.hosted, f.hostedErr
}

func (f *fakeFabric) ListHostedImageTags(_ context.Context, image string) ([]string, error) {
	tags, ok := f.tags[image]
	if !ok {
		return nil, errors.New("unknown image")
	}
	return tags, nil
}

func TestList_MergesSources(t *testing.T) {
	catalog := NewCatalog(&fakeFabric{hosted: []string{"team/custom-runtime"}}, zap.NewNop())

	imgs, err := catalog.List(context.Background(), SourceMultiModel, SourceSingleModel, SourcePlatform)
	require.NoError(t, err)

	var names []string
	for _, img := range imgs {
		names = append(names, img.Name)
	}
	assert.Contains(t, names, "nvcr.io/nvidia/tritonserver")
	assert.Contains(t, names, "ghcr.io/modelserve-dev/mlflow-runtime")
	assert.Contains(t, names, "team/custom-runtime")
}

func TestList_PlatformFailurePropagates(t *testing.T) {
	catalog := NewCatalog(&fakeFabric{hostedErr: errors.New("unreachable")}, zap.NewNop())

	_, err := catalog.List(context.Background(), SourcePlatform)
	require.Error(t, err)
}

func TestListTags_MultiModelImagesFiltered(t *testing.T) {
	catalog := NewCatalog(&fakeFabric{}, zap.NewNop())
	catalog.lister = func(context.Context, string) ([]string, error) {
		// Newest first, as registries report them.
		return []string{"23.10-py3", "23.09-py3-sdk", "23.09-py3", "latest"}, nil
	}

	tags, err := catalog.ListTags(context.Background(), Image{Name: "nvcr.io/nvidia/tritonserver"})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	// Reversed to older-to-newer, non-release tags dropped.
	assert.Equal(t, "23.09-py3", tags[0].Tag)
	assert.Equal(t, "23.10-py3", tags[1].Tag)
}

func TestListTags_ExternalFailureDegradesToEmpty(t *testing.T) {
	catalog := NewCatalog(&fakeFabric{}, zap.NewNop())
	catalog.lister = func(context.Context, string) ([]string, error) {
		return nil, errors.New("registry unavailable")
	}

	tags, err := catalog.ListTags(context.Background(), Image{Name: "ghcr.io/modelserve-dev/base"})
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestListTags_HostedImageUsesPlatform(t *testing.T) {
	catalog := NewCatalog(&fakeFabric{
		tags: map[string][]string{"team/custom-runtime": {"v1", "v2"}},
	}, zap.NewNop())

	tags, err := catalog.ListTags(context.Background(), Image{Name: "team/custom-runtime"})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "team/custom-runtime:v1", tags[0].String())
}
