// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/draft-engine/pkg/types"
)

// Resolution order for settings: flag, then config file / environment, then
// built-in default.

func stringSetting(cmd *cobra.Command, flag, key, def string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}

func intSetting(cmd *cobra.Command, flag, key string, def int) int {
	if v, _ := cmd.Flags().GetInt(flag); v != 0 {
		return v
	}
	if v := viper.GetInt(key); v != 0 {
		return v
	}
	return def
}

func durationSetting(cmd *cobra.Command, flag, key string, def time.Duration) time.Duration {
	if v, _ := cmd.Flags().GetDuration(flag); v != 0 {
		return v
	}
	if v := viper.GetDuration(key); v != 0 {
		return v
	}
	return def
}

// workflowConfig assembles the run settings from flags, config, and secrets.
func workflowConfig(cmd *cobra.Command) types.WorkflowConfig {
	apiKey := stringSetting(cmd, "api-key", "ai.api_key", "")

	return types.WorkflowConfig{
		AI: types.AIConfig{
			Model:      stringSetting(cmd, "model", "ai.model", "claude-sonnet-4-5-20250929"),
			APIKey:     secretDefault("anthropic-api-key", apiKey),
			MaxRetries: intSetting(cmd, "max-retries", "ai.max_retries", 3),
		},
		FanOut: types.FanOutConfig{
			MaxConcurrent: intSetting(cmd, "max-concurrent", "fan_out.max_concurrent", 10),
			MaxRetries:    intSetting(cmd, "worker-retries", "fan_out.max_retries", 3),
			WorkerTimeout: durationSetting(cmd, "worker-timeout", "fan_out.worker_timeout", 5*time.Minute),
			OnFailure:     types.FailurePolicy(stringSetting(cmd, "on-failure", "fan_out.on_failure", string(types.PolicyAbort))),
		},
		Checkpoint: types.CheckpointConfig{
			Dir: stringSetting(cmd, "sessions-dir", "checkpoint.dir", "sessions"),
		},
		Artifacts: types.ArtifactConfig{
			Dir: stringSetting(cmd, "artifacts-dir", "artifacts.dir", "artifacts"),
		},
		Output: types.OutputConfig{
			Dir: stringSetting(cmd, "output-dir", "output.dir", "output"),
		},
	}
}

// addWorkflowFlags registers the settings shared by run and resume.
func addWorkflowFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "", "AI model identifier")
	cmd.Flags().String("api-key", "", "AI API key (default: .secrets/anthropic-api-key)")
	cmd.Flags().Int("max-retries", 0, "retry bound for planning and reasoning API calls")
	cmd.Flags().Int("max-concurrent", 0, "maximum concurrent section writers")
	cmd.Flags().Int("worker-retries", 0, "per-section retry bound")
	cmd.Flags().Duration("worker-timeout", 0, "timeout for a single section-writer attempt")
	cmd.Flags().String("on-failure", "", "section failure policy: abort or proceed")
	cmd.Flags().String("sessions-dir", "", "directory for the sessions database")
	cmd.Flags().String("artifacts-dir", "", "directory for section artifacts")
	cmd.Flags().String("output-dir", "", "directory for assembled documents")
}
