package models

import (
	"fmt"
	"strings"
	"time"
)

// ModelStage is one registered model version at a particular promotion stage.
// Identity is (Name, Version); records are never mutated after construction.
type ModelStage struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Stage     string    `json:"stage"`
	CreatedAt time.Time `json:"createdAt"`

	// URI is the registry-native locator, models:/<name>/<stage>.
	URI string `json:"uri"`
	// Link points at the model version in the registry UI.
	Link string `json:"link"`
	// PublicLink is the browser-facing variant of Link.
	PublicLink string `json:"publicLink"`

	// Source is the artifact path the registry stores the version under.
	Source string `json:"source,omitempty"`
	// Descriptor is the parsed model descriptor file, when fetched. Keys are
	// descriptor-defined (e.g. flavors).
	Descriptor map[string]any `json:"descriptor,omitempty"`
}

// ModelURI builds the canonical registry locator for a model at a stage.
// The stage segment is lowercased, matching what the serving runtimes expect.
func ModelURI(name, stage string) string {
	return fmt.Sprintf("models:/%s/%s", name, strings.ToLower(stage))
}

// ModelInfo identifies one model understood to be served, independent of
// registry metadata.
type ModelInfo struct {
	Name    string `json:"name"`
	Stage   string `json:"stage"`
	Version string `json:"version"`
}

// DeployedModelInfo pairs a served model with the server currently serving
// it. It is a derived, in-memory-only join rebuilt on every listing.
type DeployedModelInfo struct {
	Model  ModelInfo           `json:"model"`
	Server InferenceServerInfo `json:"server"`
}
