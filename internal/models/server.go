package models

import (
	"fmt"
	"time"

	"github.com/modelserve-dev/modelserve/internal/fabric"
)

// InferenceServerType classifies which deployment and listing protocol a
// server follows. The string values are the wire-level type-tag values and
// must stay bit-compatible with jobs already running on the platform.
type InferenceServerType string

const (
	ServerTypeNone InferenceServerType = "none"

	// ServerTypeSingleModel is a single-process server bound to one model at
	// startup.
	ServerTypeSingleModel InferenceServerType = "MLFlow"

	// ServerTypeMultiModel is a shared server hosting several models under
	// explicit registration.
	ServerTypeMultiModel InferenceServerType = "Triton"

	// ServerTypeEmbedded is reserved and not deployable yet.
	ServerTypeEmbedded InferenceServerType = "BentoML"
)

// ParseServerType maps a wire value to a known server type.
func ParseServerType(s string) (InferenceServerType, error) {
	switch InferenceServerType(s) {
	case ServerTypeNone, ServerTypeSingleModel, ServerTypeMultiModel, ServerTypeEmbedded:
		return InferenceServerType(s), nil
	}
	return ServerTypeNone, fmt.Errorf("unknown inference server type %q", s)
}

// Enabled reports whether the type participates in deployment and listing.
func (t InferenceServerType) Enabled() bool {
	return t == ServerTypeSingleModel || t == ServerTypeMultiModel
}

// EnabledServerTypes lists the types the orchestrator can operate on.
func EnabledServerTypes() []InferenceServerType {
	return []InferenceServerType{ServerTypeSingleModel, ServerTypeMultiModel}
}

// InferenceServerInfo is one live job acting as an inference server. It is
// built from a job description at discovery time, never persisted, and stale
// the moment the underlying job changes.
type InferenceServerInfo struct {
	Job  fabric.Job          `json:"job"`
	Type InferenceServerType `json:"type"`
}

// Equal compares two records by job id alone: two records referencing the
// same job are the same server even if other fields diverged.
func (s InferenceServerInfo) Equal(other InferenceServerInfo) bool {
	return s.Job.ID == other.Job.ID
}

// JobID returns the underlying job's identifier.
func (s InferenceServerInfo) JobID() string {
	return s.Job.ID
}

// JobName returns the job's name, or a placeholder when it has none.
func (s InferenceServerInfo) JobName() string {
	if s.Job.Name == "" {
		return "<no-name>"
	}
	return s.Job.Name
}

// HTTPURL is the public endpoint of the job.
func (s InferenceServerInfo) HTTPURL() string {
	return s.Job.HTTPURL
}

// InternalHostname prefers the stable named hostname over the per-instance
// one.
func (s InferenceServerInfo) InternalHostname() string {
	if s.Job.InternalHostnameNamed != "" {
		return s.Job.InternalHostnameNamed
	}
	return s.Job.InternalHostname
}

// CreatedAt returns the job creation time.
func (s InferenceServerInfo) CreatedAt() time.Time {
	return s.Job.History.CreatedAt
}
