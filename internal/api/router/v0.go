// Package router contains API routing logic
package router

import (
	"github.com/danielgtaylor/huma/v2"

	v0 "github.com/modelserve-dev/modelserve/internal/api/handlers/v0"
	"github.com/modelserve-dev/modelserve/internal/images"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/orchestrator"
)

// Services collects the collaborators the API operates on.
type Services struct {
	Dispatcher *orchestrator.Dispatcher
	Directory  *orchestrator.Directory
	Fleet      *orchestrator.Fleet
	Registry   mlregistry.Client
	Catalog    *images.Catalog
}

// RegisterRoutes registers all API routes under /v0.
func RegisterRoutes(api huma.API, services Services) {
	pathPrefix := "/v0"

	v0.RegisterHealthEndpoint(api, pathPrefix, services.Directory)
	v0.RegisterPingEndpoint(api, pathPrefix)
	v0.RegisterVersionEndpoint(api, pathPrefix)
	v0.RegisterServersEndpoints(api, pathPrefix, services.Directory, services.Fleet)
	v0.RegisterDeploymentsEndpoints(api, pathPrefix, services.Dispatcher, services.Directory, services.Fleet, services.Registry)
	v0.RegisterModelsEndpoint(api, pathPrefix, services.Registry)
	v0.RegisterImagesEndpoints(api, pathPrefix, services.Catalog)
}
