// Package testing provides a configurable in-memory fabric for tests.
package testing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelserve-dev/modelserve/internal/fabric"
)

// FakeFabric is an in-memory implementation of fabric.Client. It enforces
// name uniqueness among active jobs the way the platform does, and lets
// tests control how long submitted jobs stay pending.
type FakeFabric struct {
	mu     sync.Mutex
	nextID int
	jobs   map[string]*fabric.Job
	polls  map[string]int

	// PendingPolls is how many GetJob calls a job stays pending before it
	// transitions to running.
	PendingPolls int

	// StayPending keeps every job pending forever, for timeout tests.
	StayPending bool

	// Function hooks take precedence over the built-in behavior when set.
	SubmitJobFn func(ctx context.Context, req *fabric.SubmitRequest) (*fabric.Job, error)
	KillJobFn   func(ctx context.Context, id string) error

	Presets      []string
	HostedImages []string
	HostedTags   map[string][]string
}

var _ fabric.Client = (*FakeFabric)(nil)

// NewFakeFabric creates an empty fake fabric.
func NewFakeFabric() *FakeFabric {
	return &FakeFabric{
		jobs:  make(map[string]*fabric.Job),
		polls: make(map[string]int),
	}
}

func isActive(status fabric.JobStatus) bool {
	for _, active := range fabric.ActiveStatuses() {
		if status == active {
			return true
		}
	}
	return false
}

// SubmitJob starts a job, rejecting duplicate active names.
func (f *FakeFabric) SubmitJob(ctx context.Context, req *fabric.SubmitRequest) (*fabric.Job, error) {
	if f.SubmitJobFn != nil {
		return f.SubmitJobFn(ctx, req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.jobs {
		if job.Name == req.Name && isActive(job.Status) {
			return nil, fmt.Errorf("%w: job with name %s already exists", fabric.ErrNameConflict, req.Name)
		}
	}

	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	status := fabric.StatusPending
	if f.PendingPolls == 0 && !f.StayPending {
		status = fabric.StatusRunning
	}
	job := &fabric.Job{
		ID:               id,
		Name:             req.Name,
		Owner:            "test-user",
		Status:           status,
		Tags:             append([]string(nil), req.Tags...),
		PresetName:       req.PresetName,
		HTTPURL:          fmt.Sprintf("https://%s.jobs.example.com", req.Name),
		InternalHostname: id + ".platform.internal",
		Container: fabric.Container{
			Image:      req.Image,
			Entrypoint: req.Entrypoint,
			Command:    req.Command,
			Env:        req.Env,
			Volumes:    append([]fabric.Volume(nil), req.Volumes...),
			HTTP:       req.HTTP,
		},
		History: fabric.History{CreatedAt: time.Now()},
	}
	f.jobs[id] = job
	copied := *job
	return &copied, nil
}

// ListJobs filters by status and requires every tag to be present.
func (f *FakeFabric) ListJobs(_ context.Context, opts fabric.ListOptions) ([]*fabric.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result []*fabric.Job
	for _, job := range f.jobs {
		if !statusMatches(job.Status, opts.Statuses) || !hasAllTags(job.Tags, opts.Tags) {
			continue
		}
		copied := *job
		result = append(result, &copied)
	}
	return result, nil
}

// GetJob returns the job, transitioning it out of pending after the
// configured number of polls.
func (f *FakeFabric) GetJob(_ context.Context, id string) (*fabric.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("no such job: %s", id)
	}
	if job.Status == fabric.StatusPending && !f.StayPending {
		f.polls[id]++
		if f.polls[id] >= f.PendingPolls {
			job.Status = fabric.StatusRunning
		}
	}
	copied := *job
	return &copied, nil
}

// KillJob cancels the job; unknown ids fail.
func (f *FakeFabric) KillJob(ctx context.Context, id string) error {
	if f.KillJobFn != nil {
		return f.KillJobFn(ctx, id)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("no such job: %s", id)
	}
	job.Status = fabric.StatusCancelled
	return nil
}

// ListPresets returns the configured preset names.
func (f *FakeFabric) ListPresets(context.Context) ([]string, error) {
	return f.Presets, nil
}

// ListHostedImages returns the configured platform images.
func (f *FakeFabric) ListHostedImages(context.Context) ([]string, error) {
	return f.HostedImages, nil
}

// ListHostedImageTags returns the configured tags for a platform image.
func (f *FakeFabric) ListHostedImageTags(_ context.Context, image string) ([]string, error) {
	tags, ok := f.HostedTags[image]
	if !ok {
		return nil, fmt.Errorf("no such image: %s", image)
	}
	return tags, nil
}

func statusMatches(status fabric.JobStatus, wanted []fabric.JobStatus) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, s := range wanted {
		if status == s {
			return true
		}
	}
	return false
}

func hasAllTags(jobTags, wanted []string) bool {
	for _, tag := range wanted {
		found := false
		for _, jobTag := range jobTags {
			if jobTag == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
