// Package images discovers the container images inference servers can run
// from: curated external images per backend plus images hosted in the
// platform's own registry.
package images

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/modelserve-dev/modelserve/internal/fabric"
)

// Image is one container image reference, optionally pinned to a tag.
type Image struct {
	Name string `json:"name"`
	Tag  string `json:"tag,omitempty"`
}

// String renders the image as a pullable reference.
func (i Image) String() string {
	if i.Tag == "" {
		return i.Name
	}
	return i.Name + ":" + i.Tag
}

// Source selects one image origin for listing.
type Source string

const (
	// SourceMultiModel lists the curated multi-model server images.
	SourceMultiModel Source = "multi-model"
	// SourceSingleModel lists the curated single-model runtime images.
	SourceSingleModel Source = "single-model"
	// SourcePlatform lists images hosted in the platform registry.
	SourcePlatform Source = "platform"
)

// Curated images per backend. The multi-model server images come from the
// vendor registry; single-model runtime images carry the serving runtime and
// its environment manager.
var (
	multiModelImages = []Image{
		{Name: "nvcr.io/nvidia/tritonserver"},
	}
	singleModelImages = []Image{
		{Name: "ghcr.io/modelserve-dev/mlflow-runtime"},
		{Name: "ghcr.io/modelserve-dev/base"},
	}
)

// multiModelTagPattern keeps only CUDA release tags with the ONNX backend
// included.
var multiModelTagPattern = regexp.MustCompile(`^\d{1,2}\.\d{1,2}-py3$`)

// tagLister lists tags of an external repository. Injectable for tests.
type tagLister func(ctx context.Context, repo string) ([]string, error)

func remoteTagLister(ctx context.Context, repoName string) ([]string, error) {
	repo, err := name.NewRepository(repoName)
	if err != nil {
		return nil, fmt.Errorf("invalid image repository %q: %w", repoName, err)
	}
	// remote.List performs the anonymous pull-token exchange itself when the
	// registry demands one.
	return remote.List(repo, remote.WithContext(ctx))
}

// Catalog lists candidate images and their tags across sources.
type Catalog struct {
	fabric fabric.Client
	lister tagLister
	logger *zap.Logger
}

// NewCatalog creates an image catalog backed by the platform registry for
// hosted images and direct registry access for curated ones.
func NewCatalog(fabricClient fabric.Client, logger *zap.Logger) *Catalog {
	return &Catalog{
		fabric: fabricClient,
		lister: remoteTagLister,
		logger: logger,
	}
}

// List returns the images available from the requested sources. Sources are
// queried concurrently and joined before returning.
func (c *Catalog) List(ctx context.Context, sources ...Source) ([]Image, error) {
	results := make([][]Image, len(sources))
	group, ctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		group.Go(func() error {
			imgs, err := c.listSource(ctx, source)
			if err != nil {
				return err
			}
			results[i] = imgs
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var merged []Image
	for _, imgs := range results {
		merged = append(merged, imgs...)
	}
	return merged, nil
}

func (c *Catalog) listSource(ctx context.Context, source Source) ([]Image, error) {
	switch source {
	case SourceMultiModel:
		return multiModelImages, nil
	case SourceSingleModel:
		return singleModelImages, nil
	case SourcePlatform:
		hosted, err := c.fabric.ListHostedImages(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list platform images: %w", err)
		}
		imgs := make([]Image, 0, len(hosted))
		for _, name := range hosted {
			imgs = append(imgs, Image{Name: name})
		}
		return imgs, nil
	}
	return nil, fmt.Errorf("unknown image source %q", source)
}

// ListTags returns the tags of one image, ordered older to newer. Tags of
// curated multi-model server images are filtered to loadable releases.
// Failures against external registries degrade to an empty list.
func (c *Catalog) ListTags(ctx context.Context, image Image) ([]Image, error) {
	if c.isHosted(image) {
		tags, err := c.fabric.ListHostedImageTags(ctx, image.Name)
		if err != nil {
			return nil, err
		}
		return withTags(image, tags), nil
	}

	tags, err := c.lister(ctx, image.Name)
	if err != nil {
		c.logger.Error("unable to fetch image tags",
			zap.String("image", image.Name), zap.Error(err))
		return []Image{}, nil
	}

	// Registries report newest first; the caller wants older to newer.
	reverse(tags)

	if isMultiModelImage(image) {
		filtered := tags[:0]
		for _, tag := range tags {
			if multiModelTagPattern.MatchString(tag) {
				filtered = append(filtered, tag)
			}
		}
		tags = filtered
	}
	return withTags(image, tags), nil
}

// isHosted reports whether the image lives in the platform registry rather
// than an external one. External references carry a registry host.
func (c *Catalog) isHosted(image Image) bool {
	host, _, found := strings.Cut(image.Name, "/")
	return !found || !strings.Contains(host, ".")
}

func isMultiModelImage(image Image) bool {
	for _, curated := range multiModelImages {
		if curated.Name == image.Name {
			return true
		}
	}
	return false
}

func withTags(image Image, tags []string) []Image {
	result := make([]Image, 0, len(tags))
	for _, tag := range tags {
		result = append(result, Image{Name: image.Name, Tag: tag})
	}
	return result
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
