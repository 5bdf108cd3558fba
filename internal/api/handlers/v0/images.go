package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/images"
)

// ImagesListInput selects the image sources to query. All sources are
// queried when none are given.
type ImagesListInput struct {
	Sources []string `query:"source" json:"sources,omitempty" doc:"Image sources to query" example:"multi-model"`
}

// ImagesListResponse is the image listing payload.
type ImagesListResponse struct {
	Body struct {
		Images []images.Image `json:"images" doc:"Candidate server images"`
	}
}

// ImageTagsInput addresses one image repository.
type ImageTagsInput struct {
	Name string `query:"name" json:"name" doc:"Image repository" example:"nvcr.io/nvidia/tritonserver"`
}

// ImageTagsResponse lists an image's tags, ordered older to newer.
type ImageTagsResponse struct {
	Body struct {
		Tags []images.Image `json:"tags" doc:"Tagged image references, older to newer"`
	}
}

// RegisterImagesEndpoints registers image and tag discovery.
func RegisterImagesEndpoints(api huma.API, pathPrefix string, catalog *images.Catalog) {
	huma.Register(api, huma.Operation{
		OperationID: "list-images",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/images",
		Summary:     "List server images",
		Description: "List the container images inference servers can run from, merged across the requested sources.",
		Tags:        []string{"images"},
	}, func(ctx context.Context, input *ImagesListInput) (*ImagesListResponse, error) {
		sources := []images.Source{images.SourceMultiModel, images.SourceSingleModel, images.SourcePlatform}
		if len(input.Sources) > 0 {
			sources = make([]images.Source, 0, len(input.Sources))
			for _, s := range input.Sources {
				sources = append(sources, images.Source(s))
			}
		}
		imgs, err := catalog.List(ctx, sources...)
		if err != nil {
			return nil, platformError(err)
		}
		resp := &ImagesListResponse{}
		resp.Body.Images = imgs
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-image-tags",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/images/tags",
		Summary:     "List image tags",
		Description: "List the tags of one image, ordered older to newer. Multi-model server image tags are filtered to loadable releases.",
		Tags:        []string{"images"},
	}, func(ctx context.Context, input *ImageTagsInput) (*ImageTagsResponse, error) {
		if input.Name == "" {
			return nil, huma.Error400BadRequest("An image name is required")
		}
		tags, err := catalog.ListTags(ctx, images.Image{Name: input.Name})
		if err != nil {
			return nil, platformError(err)
		}
		resp := &ImageTagsResponse{}
		resp.Body.Tags = tags
		return resp, nil
	})
}
