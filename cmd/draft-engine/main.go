// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the draft-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/draft-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit codes. Awaiting-input is a distinct non-error outcome so scripts can
// tell a suspended session from a failed one.
const (
	exitOK            = 0
	exitFailed        = 1
	exitAwaitingInput = 2
)

// exitCode is set by commands that finish without error but not at the
// pipeline's terminal step.
var exitCode = exitOK

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the draft-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "draft-engine",
	Short: "Checkpointed document drafting through a generation API",
	Long: `draft-engine drafts a long document section-by-section through a text
generation API and answers questions about the result with a two-stage
think-then-answer chain.

A run plans an outline, fans out one concurrent writer per section, assembles
the document in outline order, then suspends awaiting your question. Resume the
session with a query to get a reasoning scratchpad and a final answer. Sessions
are durable: a suspended run survives process restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./draft-engine.yaml or ~/.config/draft-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("draft-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "draft-engine"))
		}
	}

	viper.SetEnvPrefix("DRAFT_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitFailed)
	}
	os.Exit(exitCode)
}
