package orchestrator

import (
	"fmt"
	"os"

	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/models"
)

// ModelRepoEnv is the job environment variable carrying the model repository
// path inside a multi-model server container. The orchestrator injects it at
// provisioning time and reads it back at discovery time.
const ModelRepoEnv = "MODEL_REPO"

// MultiModelServer is the multi-model view of an inference server: its
// management API endpoint and the shared model-repository path. Constructing
// one validates the environment contract.
type MultiModelServer struct {
	models.InferenceServerInfo

	// RepoPath is the model repository path recorded in the job environment.
	// The same logical location must be mounted on the orchestrator side.
	RepoPath string
}

// MultiModelServerFor builds the multi-model view of a server. It fails with
// a structural error when the job lacks the model-repository variable or an
// HTTP port; no network call is attempted.
func MultiModelServerFor(info models.InferenceServerInfo) (*MultiModelServer, error) {
	if info.Type != models.ServerTypeMultiModel {
		return nil, &StructuralError{
			JobID:  info.JobID(),
			Reason: fmt.Sprintf("server type is %s, not %s", info.Type, models.ServerTypeMultiModel),
		}
	}
	repoPath, ok := info.Job.Container.Env[ModelRepoEnv]
	if !ok || repoPath == "" {
		return nil, &StructuralError{
			JobID:  info.JobID(),
			Reason: fmt.Sprintf("container environment lacks %s", ModelRepoEnv),
		}
	}
	if info.Job.Container.HTTP == nil {
		return nil, &StructuralError{
			JobID:  info.JobID(),
			Reason: "container exposes no HTTP port",
		}
	}
	return &MultiModelServer{InferenceServerInfo: info, RepoPath: repoPath}, nil
}

// Port is the port the server's management API listens on.
func (s *MultiModelServer) Port() int {
	return s.Job.Container.HTTP.Port
}

// Endpoint is the management API base URL, reached over the cluster-internal
// hostname. The public endpoint stays unused until auth is supported there.
func (s *MultiModelServer) Endpoint() string {
	return fmt.Sprintf("http://%s:%d", s.InternalHostname(), s.Port())
}

// ServingTarget binds a serving-deployment call to this server. The shared
// repository path must already exist on the calling side: provisioning the
// mount is the caller's responsibility, and a missing mount means deployed
// files would not reach the server at all.
func (s *MultiModelServer) ServingTarget() (mlregistry.Target, error) {
	if _, err := os.Stat(s.RepoPath); err != nil {
		return mlregistry.Target{}, &PreconditionError{
			Reason: fmt.Sprintf("shared model repository %s is not accessible: %v", s.RepoPath, err),
		}
	}
	return mlregistry.Target{Endpoint: s.Endpoint(), RepoPath: s.RepoPath}, nil
}
