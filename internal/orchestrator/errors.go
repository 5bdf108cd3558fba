package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/modelserve-dev/modelserve/internal/fabric"
	"github.com/modelserve-dev/modelserve/internal/mlregistry"
)

// ErrServerResolution is returned when a multi-model deployment has no server
// to target: none was selected by the caller and none was created.
var ErrServerResolution = errors.New("no model-compatible server selected or created")

// StructuralError reports that a job violated the tag or environment
// contract. During discovery these are recovered locally (warn and skip);
// on the deployment path they are fatal for the call.
type StructuralError struct {
	JobID  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("job %s violates the server contract: %s", e.JobID, e.Reason)
}

// IsStructural reports whether err is a tag/environment contract violation.
func IsStructural(err error) bool {
	var target *StructuralError
	return errors.As(err, &target)
}

// PreconditionError reports a caller-side precondition violation, such as a
// missing shared-repository mount. It is fatal and never retried.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition violated: " + e.Reason
}

// IsPrecondition reports whether err is a precondition violation.
func IsPrecondition(err error) bool {
	var target *PreconditionError
	return errors.As(err, &target)
}

// ReadinessTimeoutError reports that a submitted job did not leave the
// pending state within the deployment's bounded wait. The job may still be
// starting; the caller decides whether to kill it.
type ReadinessTimeoutError struct {
	JobID   string
	Timeout time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("job %s still pending after %s", e.JobID, e.Timeout)
}

// IsReadinessTimeout reports whether err is a bounded-wait expiry.
func IsReadinessTimeout(err error) bool {
	var target *ReadinessTimeoutError
	return errors.As(err, &target)
}

// IsNameCollision reports whether err is a deployment-name conflict reported
// by the platform.
func IsNameCollision(err error) bool {
	return errors.Is(err, fabric.ErrNameConflict)
}

// IsUnsupportedFlavor reports whether err is a model format the target
// server cannot load.
func IsUnsupportedFlavor(err error) bool {
	return mlregistry.IsUnsupportedFlavor(err)
}
