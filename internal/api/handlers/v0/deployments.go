package v0

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/images"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator"
)

// ImageRef references a container image in API payloads.
type ImageRef struct {
	Name string `json:"name" doc:"Image repository" example:"nvcr.io/nvidia/tritonserver"`
	Tag  string `json:"tag,omitempty" doc:"Image tag" example:"23.08-py3"`
}

func (r ImageRef) toImage() images.Image {
	return images.Image{Name: r.Name, Tag: r.Tag}
}

// DeployServiceRequest starts a dedicated single-model serving job.
type DeployServiceRequest struct {
	Body struct {
		ModelName  string   `json:"modelName" doc:"Registered model name" example:"fraud-detector"`
		Stage      string   `json:"stage" doc:"Promotion stage to serve" example:"Production"`
		Name       string   `json:"name" doc:"Deployment name, unique among active jobs"`
		PresetName string   `json:"preset" doc:"Compute preset to run on"`
		Image      ImageRef `json:"image" doc:"Serving runtime image"`
		EnableAuth bool     `json:"enableAuth,omitempty" doc:"Require platform auth on the serving endpoint"`
	}
}

// DeployServerRequest provisions a shared multi-model server.
type DeployServerRequest struct {
	Body DeployServerRequestBody
}

// DeployModelRequest registers a model on a multi-model server. Exactly one
// of ServerJobID or Server must be set: either an existing server is targeted
// or one is provisioned first.
type DeployModelRequest struct {
	Body struct {
		ModelName string `json:"modelName" doc:"Registered model name" example:"ocr"`
		Stage     string `json:"stage" doc:"Promotion stage to serve" example:"Production"`
		Name      string `json:"name" doc:"Name to register the model under"`
		Flavor    string `json:"flavor,omitempty" doc:"Model serialization flavor; resolved from the model descriptor when omitted" example:"onnx"`

		ServerJobID string                   `json:"serverJobId,omitempty" doc:"Job id of an existing multi-model server to target"`
		Server      *DeployServerRequestBody `json:"server,omitempty" doc:"Server to provision when no existing one is targeted"`
	}
}

// DeployServerRequestBody is the inline server spec of a combined
// provision-and-deploy call.
type DeployServerRequestBody struct {
	Name       string   `json:"name" doc:"Server name, unique among active jobs"`
	PresetName string   `json:"preset" doc:"Compute preset to run on"`
	Image      ImageRef `json:"image" doc:"Multi-model server image"`
	EnableAuth bool     `json:"enableAuth,omitempty" doc:"Require platform auth on the serving endpoint"`
}

// DeployedModelResponse is one model-to-server pairing in listings.
type DeployedModelResponse struct {
	Model  models.ModelInfo `json:"model" doc:"Served model identity"`
	Server ServerResponse   `json:"server" doc:"Server currently serving the model"`
}

// DeploymentsListResponse is the fleet-wide deployed-model listing payload.
type DeploymentsListResponse struct {
	Body struct {
		Deployments []DeployedModelResponse `json:"deployments" doc:"Models currently deployed across all servers"`
	}
}

// ServerCreatedResponse wraps one server handle.
type ServerCreatedResponse struct {
	Body ServerResponse
}

// RegisterDeploymentsEndpoints registers the deployment operations: fleet
// listing, single-model service start, multi-model server provisioning, and
// model registration with create-or-select server resolution.
func RegisterDeploymentsEndpoints(
	api huma.API,
	pathPrefix string,
	dispatcher *orchestrator.Dispatcher,
	directory *orchestrator.Directory,
	fleet *orchestrator.Fleet,
	registry mlregistry.Client,
) {
	huma.Register(api, huma.Operation{
		OperationID: "list-deployments",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/deployments",
		Summary:     "List deployed models",
		Description: "Join every active server with the models it currently serves. The listing is rebuilt from live state on every call.",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, _ *struct{}) (*DeploymentsListResponse, error) {
		deployed, err := fleet.ListAllDeployedModels(ctx)
		if err != nil {
			return nil, platformError(err)
		}
		resp := &DeploymentsListResponse{}
		resp.Body.Deployments = make([]DeployedModelResponse, 0, len(deployed))
		for _, d := range deployed {
			resp.Body.Deployments = append(resp.Body.Deployments, DeployedModelResponse{
				Model:  d.Model,
				Server: toServerResponse(d.Server),
			})
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deploy-service",
		Method:      http.MethodPost,
		Path:        pathPrefix + "/services",
		Summary:     "Deploy a single-model service",
		Description: "Start a dedicated serving job bound to one registered model stage.",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *DeployServiceRequest) (*ServerCreatedResponse, error) {
		model, err := resolveModel(ctx, registry, input.Body.ModelName, input.Body.Stage)
		if err != nil {
			return nil, err
		}
		server, err := dispatcher.DeployService(ctx, orchestrator.ServiceSpec{
			Model:          *model,
			DeploymentName: input.Body.Name,
			PresetName:     input.Body.PresetName,
			Image:          input.Body.Image.toImage(),
			EnableAuth:     input.Body.EnableAuth,
		})
		if err != nil {
			return nil, deployError(err)
		}
		return &ServerCreatedResponse{Body: toServerResponse(*server)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deploy-server",
		Method:      http.MethodPost,
		Path:        pathPrefix + "/servers",
		Summary:     "Provision a multi-model server",
		Description: "Start a shared multi-model server with an empty model repository. Models are registered separately.",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *DeployServerRequest) (*ServerCreatedResponse, error) {
		server, err := dispatcher.DeployServer(ctx, orchestrator.ServerSpec{
			Name:       input.Body.Name,
			PresetName: input.Body.PresetName,
			Image:      input.Body.Image.toImage(),
			EnableAuth: input.Body.EnableAuth,
		})
		if err != nil {
			return nil, deployError(err)
		}
		if server == nil {
			return nil, huma.Error409Conflict("A deployment with this name already exists")
		}
		return &ServerCreatedResponse{Body: toServerResponse(server.InferenceServerInfo)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deploy-model",
		Method:      http.MethodPost,
		Path:        pathPrefix + "/deployments",
		Summary:     "Deploy a model to a multi-model server",
		Description: "Register a model on an existing multi-model server, or provision a new server first when an inline server spec is given.",
		Tags:        []string{"deployments"},
	}, func(ctx context.Context, input *DeployModelRequest) (*ServerCreatedResponse, error) {
		model, err := resolveModel(ctx, registry, input.Body.ModelName, input.Body.Stage)
		if err != nil {
			return nil, err
		}

		flavor := input.Body.Flavor
		if flavor == "" {
			flavor, err = resolveFlavor(ctx, registry, model)
			if err != nil {
				return nil, err
			}
		}

		server, err := resolveServer(ctx, dispatcher, directory, input)
		if err != nil {
			return nil, err
		}

		if err := dispatcher.DeployModel(ctx, *model, input.Body.Name, flavor, server); err != nil {
			if errors.Is(err, orchestrator.ErrServerResolution) {
				return nil, huma.Error400BadRequest("No model-compatible server selected or created")
			}
			return nil, deployError(err)
		}
		return &ServerCreatedResponse{Body: toServerResponse(*server)}, nil
	})
}

// resolveServer produces the server handle a model deployment targets:
// an existing server looked up by job id, or a freshly provisioned one. A
// provisioning abort (name collision) yields a nil handle; the dispatcher
// turns that into a server-resolution failure.
func resolveServer(ctx context.Context, dispatcher *orchestrator.Dispatcher, directory *orchestrator.Directory, input *DeployModelRequest) (*models.InferenceServerInfo, error) {
	if input.Body.ServerJobID != "" {
		return findServer(ctx, directory, input.Body.ServerJobID)
	}
	if input.Body.Server == nil {
		return nil, huma.Error400BadRequest("Either serverJobId or an inline server spec is required")
	}

	spec := input.Body.Server
	server, err := dispatcher.DeployServer(ctx, orchestrator.ServerSpec{
		Name:       spec.Name,
		PresetName: spec.PresetName,
		Image:      spec.Image.toImage(),
		EnableAuth: spec.EnableAuth,
	})
	if err != nil {
		return nil, deployError(err)
	}
	if server == nil {
		return nil, nil
	}
	return &server.InferenceServerInfo, nil
}

// resolveModel finds the registered model at the requested stage.
func resolveModel(ctx context.Context, registry mlregistry.Client, name, stage string) (*models.ModelStage, error) {
	registered, err := registry.GetRegisteredModels(ctx)
	if err != nil {
		return nil, huma.Error502BadGateway("Could not reach the model registry", err)
	}
	for _, model := range registered {
		if model.Name == name && strings.EqualFold(model.Stage, stage) {
			return &model, nil
		}
	}
	return nil, huma.Error404NotFound("No registered model " + name + " at stage " + stage)
}

// resolveFlavor reads the model's descriptor and picks the flavor a serving
// backend can load from its declared flavors.
func resolveFlavor(ctx context.Context, registry mlregistry.Client, model *models.ModelStage) (string, error) {
	descriptor := model.Descriptor
	if descriptor == nil {
		var err error
		descriptor, err = registry.GetModelDescriptor(ctx, model.Source)
		if err != nil {
			return "", huma.Error502BadGateway("Could not fetch the model descriptor", err)
		}
	}
	flavors, _ := descriptor["flavors"].(map[string]any)
	for flavor := range flavors {
		if flavor == "python_function" {
			// Every descriptor carries the generic wrapper flavor; it says
			// nothing about the native format.
			continue
		}
		return flavor, nil
	}
	return "", huma.Error400BadRequest("The model descriptor declares no loadable flavor")
}
