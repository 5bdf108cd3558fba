// Package fabric is the boundary to the compute platform's job API. Jobs are
// the platform's atom of execution and the only durable state the orchestrator
// relies on: everything it knows about running inference servers is read back
// from the live job fleet.
package fabric

import (
	"context"
	"errors"
	"time"
)

// JobStatus is the platform-reported lifecycle state of a job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// ActiveStatuses are the states in which a job counts as part of the live
// fleet for discovery purposes.
func ActiveStatuses() []JobStatus {
	return []JobStatus{StatusPending, StatusRunning}
}

// IsPending reports whether the job has not started yet.
func (s JobStatus) IsPending() bool {
	return s == StatusPending
}

// HTTPPort describes the HTTP port a job exposes.
type HTTPPort struct {
	Port         int  `json:"port"`
	RequiresAuth bool `json:"requires_auth"`
}

// Volume describes a platform storage mount inside a job container.
type Volume struct {
	Storage  string `json:"storage_uri"`
	Path     string `json:"path"`
	ReadOnly bool   `json:"read_only,omitempty"`
}

// Container is the container part of a job description.
type Container struct {
	Image      string            `json:"image"`
	Entrypoint string            `json:"entrypoint,omitempty"`
	Command    string            `json:"command,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Volumes    []Volume          `json:"volumes,omitempty"`
	HTTP       *HTTPPort         `json:"http,omitempty"`
}

// History carries job lifecycle timestamps.
type History struct {
	CreatedAt time.Time `json:"created_at"`
}

// Job is one unit of compute as reported by the platform.
type Job struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name,omitempty"`
	Owner                 string    `json:"owner,omitempty"`
	Status                JobStatus `json:"status"`
	Tags                  []string  `json:"tags,omitempty"`
	PresetName            string    `json:"preset_name,omitempty"`
	HTTPURL               string    `json:"http_url,omitempty"`
	InternalHostname      string    `json:"internal_hostname,omitempty"`
	InternalHostnameNamed string    `json:"internal_hostname_named,omitempty"`
	Container             Container `json:"container"`
	History               History   `json:"history"`
}

// SubmitRequest describes a job to start.
type SubmitRequest struct {
	Name         string            `json:"name"`
	PresetName   string            `json:"preset_name"`
	Image        string            `json:"image"`
	Entrypoint   string            `json:"entrypoint,omitempty"`
	Command      string            `json:"command,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	Volumes      []Volume          `json:"volumes,omitempty"`
	HTTP         *HTTPPort         `json:"http,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	SharedMemory bool              `json:"shm,omitempty"`
}

// ListOptions filters a job listing. A job matches only if it carries every
// tag in Tags and its status is one of Statuses.
type ListOptions struct {
	Statuses []JobStatus
	Tags     []string
}

// ErrNameConflict is returned by SubmitJob when a job with the requested name
// already exists among active jobs. The platform, not the orchestrator, is the
// source of name-uniqueness truth.
var ErrNameConflict = errors.New("job name already in use")

// Client is the job fabric API surface the orchestrator consumes.
type Client interface {
	SubmitJob(ctx context.Context, req *SubmitRequest) (*Job, error)
	ListJobs(ctx context.Context, opts ListOptions) ([]*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	KillJob(ctx context.Context, id string) error

	ListPresets(ctx context.Context) ([]string, error)
	ListHostedImages(ctx context.Context) ([]string, error)
	ListHostedImageTags(ctx context.Context, image string) ([]string, error)
}
