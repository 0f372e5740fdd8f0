// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/draft-engine/internal/checkpoint"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Inspect a session's checkpoint",
	Long: `Status shows where a session is suspended, whether its checkpoint has
already been consumed, and the section counts so far. Use --record to dump the
full Record snapshot as YAML.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	session, _ := cmd.Flags().GetString("session")
	dumpRecord, _ := cmd.Flags().GetBool("record")

	cfg := workflowConfig(cmd)
	store, err := checkpoint.NewSQLiteStore(cfg.Checkpoint)
	if err != nil {
		return err
	}
	defer store.Close()

	cp, err := store.Load(context.Background(), session)
	if err != nil {
		return err
	}

	fmt.Printf("session:   %s\n", cp.Session)
	fmt.Printf("step:      %s\n", cp.Step)
	fmt.Printf("version:   %d\n", cp.Version)
	fmt.Printf("consumed:  %t\n", cp.Consumed)
	fmt.Printf("created:   %s\n", cp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("sections:  %d planned, %d completed\n",
		len(cp.Record.SectionsToWrite), cp.Record.CompletedSections)

	if dumpRecord {
		data, err := yaml.Marshal(cp.Record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		fmt.Println("---")
		os.Stdout.Write(data)
	}
	return nil
}

func init() {
	statusCmd.Flags().String("session", "", "session key to inspect")
	statusCmd.Flags().Bool("record", false, "dump the full Record snapshot as YAML")
	statusCmd.Flags().String("sessions-dir", "", "directory for the sessions database")

	statusCmd.MarkFlagRequired("session")

	rootCmd.AddCommand(statusCmd)
}
