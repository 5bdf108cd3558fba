// Package tags implements the string-tag protocol that marks platform jobs as
// orchestrator-owned inference servers. The encoding is an external contract:
// jobs tagged by earlier releases must keep decoding, so the format is frozen.
//
// Tags are case-sensitive strings of the form <key>::<value>; compound values
// join their parts with single colons:
//
//	inference-server::<controllerID>
//	server-type::<TypeName>
//	model-info::<name>:<stage>:<version>
package tags

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modelserve-dev/modelserve/internal/models"
)

const (
	// OwnershipKey scopes jobs to one orchestrator controller.
	OwnershipKey  = "inference-server"
	serverTypeKey = "server-type"
	modelInfoKey  = "model-info"

	keyValueSep = "::"
	partSep     = ":"
)

// NotFoundError reports that a required tag is absent from a job's tag set.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tag %q not found", e.Key)
}

// IsNotFound reports whether err is a missing-tag decode failure.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// Encode builds the tag set for a job owned by controllerID. The type tag is
// included when serverType is enabled or none-typed explicitly; the
// model-identity tag is included when model is non-nil.
func Encode(controllerID string, serverType models.InferenceServerType, model *models.ModelInfo) []string {
	result := []string{OwnershipKey + keyValueSep + controllerID}
	if serverType != "" {
		result = append(result, serverTypeKey+keyValueSep+string(serverType))
	}
	if model != nil {
		result = append(result,
			modelInfoKey+keyValueSep+model.Name+partSep+model.Stage+partSep+model.Version)
	}
	return result
}

// Ownership returns just the controller-ownership tag.
func Ownership(controllerID string) string {
	return OwnershipKey + keyValueSep + controllerID
}

// TypeTag returns just the server-type tag for a type.
func TypeTag(serverType models.InferenceServerType) string {
	return serverTypeKey + keyValueSep + string(serverType)
}

// DecodeServerType scans tags for a server-type tag. The scan is linear and
// the first match wins: a malformed job carrying two conflicting type tags
// decodes deterministically to the first one encountered.
func DecodeServerType(tagSet []string) (models.InferenceServerType, error) {
	for _, tag := range tagSet {
		value, ok := valueOf(tag, serverTypeKey)
		if !ok {
			continue
		}
		return models.ParseServerType(value)
	}
	return models.ServerTypeNone, &NotFoundError{Key: serverTypeKey}
}

// DecodeModelInfo scans tags for a model-identity tag, first match wins.
func DecodeModelInfo(tagSet []string) (models.ModelInfo, error) {
	for _, tag := range tagSet {
		value, ok := valueOf(tag, modelInfoKey)
		if !ok {
			continue
		}
		parts := strings.Split(value, partSep)
		if len(parts) != 3 {
			return models.ModelInfo{}, fmt.Errorf("malformed model-info tag %q", tag)
		}
		return models.ModelInfo{Name: parts[0], Stage: parts[1], Version: parts[2]}, nil
	}
	return models.ModelInfo{}, &NotFoundError{Key: modelInfoKey}
}

func valueOf(tag, key string) (string, bool) {
	prefix := key + keyValueSep
	if !strings.HasPrefix(tag, prefix) {
		return "", false
	}
	return strings.TrimPrefix(tag, prefix), true
}
