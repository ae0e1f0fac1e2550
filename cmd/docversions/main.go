// docversions serves document services over gRPC and keeps a version history
// of every tracked document
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/docversions/internal/config"
)

const configEnv = "DOCVERSIONS_CONFIG"

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "docversions",
		Short:         "Document services with per-document version history",
		Long:          `docversions mounts the document services declared in its config file, records a bounded version history for every tracked service and exposes both over gRPC.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file (default $"+configEnv+")")

	load := func() (*config.Config, error) {
		path := configPath
		if path == "" {
			path = os.Getenv(configEnv)
		}
		if path == "" {
			return config.Default(), nil
		}
		return config.Load(path)
	}

	rootCmd.AddCommand(newServeCmd(load))
	rootCmd.AddCommand(newHistoryCmd(load))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
