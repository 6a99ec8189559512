package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/autolabel/pkg/logger"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// defaultConfigPath matches the file the job has always read its settings from.
const defaultConfigPath = "configuration.json"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "autolabel",
		Short:         "Label dataset images with detected and classified bounding boxes",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Initialize logging
			if err := logger.InitWithWriter(cmd.ErrOrStderr()); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "configuration file (JSON or YAML)")

	// The default file is optional; an explicit one must exist.
	resolveConfig := func(cmd *cobra.Command) string {
		if f := cmd.Flag("config"); f != nil && f.Changed {
			return configPath
		}
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			return ""
		}
		return configPath
	}

	rootCmd.AddCommand(runCmd(resolveConfig))
	rootCmd.AddCommand(importCmd(resolveConfig))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "autolabel %s\n", version)
			return err
		},
	}
}
