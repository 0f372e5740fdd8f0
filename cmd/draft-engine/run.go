// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/draft-engine/internal/artifact"
	"github.com/pdiddy/draft-engine/internal/checkpoint"
	"github.com/pdiddy/draft-engine/internal/draft"
	"github.com/pdiddy/draft-engine/internal/genai"
	"github.com/pdiddy/draft-engine/internal/workflow"
	"github.com/pdiddy/draft-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a drafting session",
	Long: `Run plans an outline for the topic, writes every section concurrently,
assembles the document, and suspends awaiting a question about it.

The session key isolates independent runs and is needed to resume. Exit code 2
means the session suspended and awaits input; it is not an error.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	session, _ := cmd.Flags().GetString("session")
	output, _ := cmd.Flags().GetString("output")
	sections, _ := cmd.Flags().GetInt("sections")

	cfg := workflowConfig(cmd)
	if output == "" {
		output = filepath.Join(cfg.Output.Dir, session+".md")
	}

	pipeline, store, err := buildPipeline(cfg, sections)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := types.Record{
		Topic:       topic,
		OutputPath:  output,
		ArtifactKey: session,
	}

	out, err := pipeline.Run(context.Background(), session, rec)
	if err != nil {
		return err
	}
	return reportOutcome(session, out)
}

// buildPipeline wires the drafter from run settings.
func buildPipeline(cfg types.WorkflowConfig, sections int) (*workflow.Pipeline, *checkpoint.SQLiteStore, error) {
	client, err := genai.NewClaudeClient(cfg.AI)
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := artifact.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, nil, err
	}

	store, err := checkpoint.NewSQLiteStore(cfg.Checkpoint)
	if err != nil {
		return nil, nil, err
	}

	d := &draft.Drafter{
		Client:       client,
		Artifacts:    artifacts,
		Config:       cfg,
		SectionCount: sections,
		Progress:     os.Stderr,
	}

	pipeline, err := d.Pipeline(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return pipeline, store, nil
}

// reportOutcome prints the result and sets the process exit code.
func reportOutcome(session string, out workflow.Outcome) error {
	switch out.Status {
	case workflow.StatusSuspended:
		fmt.Printf("Document ready at: %s\n", out.Record.OutputPath)
		fmt.Printf("Session %q is awaiting your question. Resume with:\n", session)
		fmt.Printf("  draft-engine resume --session %s --query \"...\"\n", session)
		exitCode = exitAwaitingInput
	case workflow.StatusCompleted:
		if out.Record.ThoughtProcess != "" {
			fmt.Println("\n--- Reasoning Scratchpad ---")
			fmt.Println(out.Record.ThoughtProcess)
		}
		if out.Record.FinalAnswer != "" {
			fmt.Println("\n--- Final Answer ---")
			fmt.Println(out.Record.FinalAnswer)
		}
	}
	return nil
}

func init() {
	runCmd.Flags().String("topic", "", "document topic to draft")
	runCmd.Flags().String("session", "", "session key identifying this run")
	runCmd.Flags().String("output", "", "path for the assembled document (default: <output-dir>/<session>.md)")
	runCmd.Flags().Int("sections", 0, "requested outline size (default 12)")
	addWorkflowFlags(runCmd)

	runCmd.MarkFlagRequired("topic")
	runCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(runCmd)
}
