// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/draft-engine/internal/workflow"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a suspended session with a question",
	Long: `Resume loads the session's checkpoint, injects your question, and runs
the remaining steps: a reasoning scratchpad followed by the final answer.

Each suspension can be resumed exactly once; resuming a consumed or unknown
session fails without touching any state.`,
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	session, _ := cmd.Flags().GetString("session")
	query, _ := cmd.Flags().GetString("query")

	cfg := workflowConfig(cmd)

	pipeline, store, err := buildPipeline(cfg, 0)
	if err != nil {
		return err
	}
	defer store.Close()

	out, err := pipeline.Resume(context.Background(), session, query)
	if err != nil {
		var rerr *workflow.ResumeError
		if errors.As(err, &rerr) {
			return fmt.Errorf("%w (use \"draft-engine status --session %s\" to inspect)", err, session)
		}
		return err
	}
	return reportOutcome(session, out)
}

func init() {
	resumeCmd.Flags().String("session", "", "session key of the suspended run")
	resumeCmd.Flags().String("query", "", "question about the drafted document")
	addWorkflowFlags(resumeCmd)

	resumeCmd.MarkFlagRequired("session")
	resumeCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(resumeCmd)
}
