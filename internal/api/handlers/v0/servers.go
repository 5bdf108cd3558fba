package v0

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/models"
	"github.com/modelserve-dev/modelserve/internal/orchestrator"
)

// ServerResponse is one inference server in API listings.
type ServerResponse struct {
	JobID     string                     `json:"jobId" doc:"Platform job id backing the server"`
	Name      string                     `json:"name" doc:"Server name"`
	Type      models.InferenceServerType `json:"type" doc:"Inference server type" example:"Triton"`
	Status    string                     `json:"status" doc:"Platform job status"`
	Preset    string                     `json:"preset,omitempty" doc:"Compute preset the server runs on"`
	Owner     string                     `json:"owner,omitempty" doc:"Job owner"`
	URL       string                     `json:"url,omitempty" doc:"Public HTTP endpoint"`
	CreatedAt time.Time                  `json:"createdAt" doc:"Job creation time"`
}

func toServerResponse(server models.InferenceServerInfo) ServerResponse {
	return ServerResponse{
		JobID:     server.JobID(),
		Name:      server.JobName(),
		Type:      server.Type,
		Status:    string(server.Job.Status),
		Preset:    server.Job.PresetName,
		Owner:     server.Job.Owner,
		URL:       server.HTTPURL(),
		CreatedAt: server.CreatedAt(),
	}
}

// ServersListInput filters the server listing.
type ServersListInput struct {
	Type string `query:"type" json:"type,omitempty" doc:"Filter by server type" example:"Triton"`
}

// ServersListResponse is the server listing payload.
type ServersListResponse struct {
	Body struct {
		Servers []ServerResponse `json:"servers" doc:"Active inference servers"`
	}
}

// ServerByIDInput addresses one server by its job id.
type ServerByIDInput struct {
	JobID string `path:"jobId" json:"jobId" doc:"Platform job id"`
}

// RegisterServersEndpoints registers server discovery and termination.
func RegisterServersEndpoints(api huma.API, pathPrefix string, directory *orchestrator.Directory, fleet *orchestrator.Fleet) {
	huma.Register(api, huma.Operation{
		OperationID: "list-servers",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/servers",
		Summary:     "List active inference servers",
		Description: "Discover the active inference servers owned by this orchestrator, optionally filtered by type.",
		Tags:        []string{"servers"},
	}, func(ctx context.Context, input *ServersListInput) (*ServersListResponse, error) {
		var typeFilter models.InferenceServerType
		if input.Type != "" {
			parsed, err := models.ParseServerType(input.Type)
			if err != nil {
				return nil, huma.Error400BadRequest("Unknown server type: " + input.Type)
			}
			typeFilter = parsed
		}

		servers, err := directory.ListActiveServers(ctx, typeFilter)
		if err != nil {
			return nil, platformError(err)
		}

		resp := &ServersListResponse{}
		resp.Body.Servers = make([]ServerResponse, 0, len(servers))
		for _, server := range servers {
			resp.Body.Servers = append(resp.Body.Servers, toServerResponse(server))
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "kill-server",
		Method:      http.MethodDelete,
		Path:        pathPrefix + "/servers/{jobId}",
		Summary:     "Terminate an inference server",
		Description: "Request termination of a server's job. Success is observed by the server disappearing from the next listing.",
		Tags:        []string{"servers"},
	}, func(ctx context.Context, input *ServerByIDInput) (*struct{}, error) {
		server, err := findServer(ctx, directory, input.JobID)
		if err != nil {
			return nil, err
		}
		if err := fleet.KillServer(ctx, *server); err != nil {
			return nil, platformError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-presets",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/presets",
		Summary:     "List compute presets",
		Description: "List the named compute-resource profiles the platform offers.",
		Tags:        []string{"servers"},
	}, func(ctx context.Context, _ *struct{}) (*PresetsListResponse, error) {
		presets, err := directory.ListPresets(ctx)
		if err != nil {
			return nil, platformError(err)
		}
		resp := &PresetsListResponse{}
		resp.Body.Presets = presets
		return resp, nil
	})
}

// PresetsListResponse is the preset listing payload.
type PresetsListResponse struct {
	Body struct {
		Presets []string `json:"presets" doc:"Available compute presets"`
	}
}

// findServer resolves a job id against the current fleet.
func findServer(ctx context.Context, directory *orchestrator.Directory, jobID string) (*models.InferenceServerInfo, error) {
	servers, err := directory.ListActiveServers(ctx, "")
	if err != nil {
		return nil, platformError(err)
	}
	for _, server := range servers {
		if server.JobID() == jobID {
			return &server, nil
		}
	}
	return nil, huma.Error404NotFound("No active inference server with job id " + jobID)
}
