package v0

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/modelserve-dev/modelserve/internal/version"
	"github.com/modelserve-dev/modelserve/pkg/types"
)

// PingBody represents the ping response body
type PingBody struct {
	Pong bool `json:"pong" example:"true" doc:"Ping response"`
}

// RegisterPingEndpoint registers the ping endpoint
func RegisterPingEndpoint(api huma.API, pathPrefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "ping",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/ping",
		Summary:     "Ping",
		Description: "Simple ping endpoint",
		Tags:        []string{"ping"},
	}, func(_ context.Context, _ *struct{}) (*types.Response[PingBody], error) {
		return &types.Response[PingBody]{
			Body: PingBody{
				Pong: true,
			},
		}, nil
	})
}

// VersionBody represents the version response body
type VersionBody struct {
	Version   string `json:"version" example:"1.0.0" doc:"Build version"`
	GitCommit string `json:"gitCommit,omitempty" doc:"Git commit the binary was built from"`
	BuildDate string `json:"buildDate,omitempty" doc:"Build timestamp"`
}

// RegisterVersionEndpoint registers the version endpoint
func RegisterVersionEndpoint(api huma.API, pathPrefix string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        pathPrefix + "/version",
		Summary:     "Version",
		Description: "Returns build version information",
		Tags:        []string{"version"},
	}, func(_ context.Context, _ *struct{}) (*types.Response[VersionBody], error) {
		return &types.Response[VersionBody]{
			Body: VersionBody{
				Version:   version.Version,
				GitCommit: version.GitCommit,
				BuildDate: version.BuildDate,
			},
		}, nil
	})
}
