// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// AIConfig holds shared settings for calls to the generation API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// FailurePolicy decides what happens when fan-out units fail permanently.
type FailurePolicy string

const (
	// PolicyAbort fails the whole run when any unit exhausts its retries.
	PolicyAbort FailurePolicy = "abort"

	// PolicyProceed continues with the units that succeeded. Failures are
	// still reported on the progress writer, never swallowed.
	PolicyProceed FailurePolicy = "proceed"
)

// FanOutConfig holds settings for concurrent section writing.
type FanOutConfig struct {
	// MaxConcurrent caps the number of workers in flight (default 10).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// MaxRetries is the per-unit retry bound before a unit counts as
	// failed (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// WorkerTimeout bounds a single worker attempt. A timed-out attempt is
	// a failure for that unit, not a hang for the join (default 5m).
	WorkerTimeout time.Duration `json:"worker_timeout" yaml:"worker_timeout"`

	// OnFailure selects the failure policy: abort or proceed (default abort).
	OnFailure FailurePolicy `json:"on_failure" yaml:"on_failure"`
}

// CheckpointConfig holds settings for the durable session store.
type CheckpointConfig struct {
	// Dir is the directory holding the sessions database (default "sessions").
	Dir string `json:"dir" yaml:"dir"`
}

// ArtifactConfig holds settings for the section artifact store.
type ArtifactConfig struct {
	// Dir is the base directory for artifact keys (default "artifacts").
	Dir string `json:"dir" yaml:"dir"`
}

// OutputConfig holds settings for assembled documents.
type OutputConfig struct {
	// Dir is the directory for assembled documents (default "output").
	Dir string `json:"dir" yaml:"dir"`
}

// WorkflowConfig groups all settings for a drafting run.
type WorkflowConfig struct {
	AI         AIConfig         `json:"ai" yaml:"ai"`
	FanOut     FanOutConfig     `json:"fan_out" yaml:"fan_out"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint"`
	Artifacts  ArtifactConfig   `json:"artifacts" yaml:"artifacts"`
	Output     OutputConfig     `json:"output" yaml:"output"`
}
