package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/models"
)

// ModelsListResponse is the registered-model listing payload.
type ModelsListResponse struct {
	Body struct {
		Models []models.ModelStage `json:"models" doc:"Latest version per registered model and tracked stage"`
	}
}

// RegisterModelsEndpoint registers registry model discovery.
func RegisterModelsEndpoint(api huma.API, pathPrefix string, registry mlregistry.Client) {
	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/models",
		Summary:     "List registered models",
		Description: "List the latest version of every registered model at each tracked promotion stage.",
		Tags:        []string{"models"},
	}, func(ctx context.Context, _ *struct{}) (*ModelsListResponse, error) {
		registered, err := registry.GetRegisteredModels(ctx)
		if err != nil {
			return nil, huma.Error502BadGateway("Could not reach the model registry", err)
		}
		resp := &ModelsListResponse{}
		resp.Body.Models = registered
		return resp, nil
	})
}
