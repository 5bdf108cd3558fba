// Package testing provides fakes for the model registry boundary.
package testing

import (
	"context"
	"sync"

	"github.com/modelserve-dev/modelserve/internal/mlregistry"
	"github.com/modelserve-dev/modelserve/internal/models"
)

// FakeServing is an in-memory mlregistry.ServingClient keyed by target
// endpoint.
type FakeServing struct {
	mu            sync.Mutex
	registrations map[string][]mlregistry.ServingDeployment

	// EchoName, when set, overrides the name the fake reports back on
	// create, to exercise echo-mismatch handling.
	EchoName string

	// Function hooks take precedence over the built-in behavior when set.
	CreateFn func(ctx context.Context, target mlregistry.Target, req mlregistry.ServingDeploymentRequest) (*mlregistry.ServingDeployment, error)
	ListFn   func(ctx context.Context, target mlregistry.Target) ([]mlregistry.ServingDeployment, error)
}

var _ mlregistry.ServingClient = (*FakeServing)(nil)

// NewFakeServing creates an empty fake serving client.
func NewFakeServing() *FakeServing {
	return &FakeServing{registrations: make(map[string][]mlregistry.ServingDeployment)}
}

// CreateServingDeployment records the registration under the target endpoint.
func (f *FakeServing) CreateServingDeployment(ctx context.Context, target mlregistry.Target, req mlregistry.ServingDeploymentRequest) (*mlregistry.ServingDeployment, error) {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, target, req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	deployment := mlregistry.ServingDeployment{Name: req.Name, ModelURI: req.ModelURI}
	f.registrations[target.Endpoint] = append(f.registrations[target.Endpoint], deployment)
	if f.EchoName != "" {
		deployment.Name = f.EchoName
	}
	return &deployment, nil
}

// ListServingDeployments returns what was registered against the endpoint.
func (f *FakeServing) ListServingDeployments(ctx context.Context, target mlregistry.Target) ([]mlregistry.ServingDeployment, error) {
	if f.ListFn != nil {
		return f.ListFn(ctx, target)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mlregistry.ServingDeployment(nil), f.registrations[target.Endpoint]...), nil
}

// FakeRegistry is a data-driven mlregistry.Client.
type FakeRegistry struct {
	Models      []models.ModelStage
	Descriptors map[string]map[string]any

	GetRegisteredModelsFn func(ctx context.Context) ([]models.ModelStage, error)
}

var _ mlregistry.Client = (*FakeRegistry)(nil)

// GetRegisteredModels returns the configured model stages.
func (f *FakeRegistry) GetRegisteredModels(ctx context.Context) ([]models.ModelStage, error) {
	if f.GetRegisteredModelsFn != nil {
		return f.GetRegisteredModelsFn(ctx)
	}
	return f.Models, nil
}

// GetModelDescriptor returns the configured descriptor for a source path.
func (f *FakeRegistry) GetModelDescriptor(_ context.Context, source string) (map[string]any, error) {
	return f.Descriptors[source], nil
}

// DownloadModelArtifacts is a no-op.
func (f *FakeRegistry) DownloadModelArtifacts(context.Context, string, string) error {
	return nil
}
