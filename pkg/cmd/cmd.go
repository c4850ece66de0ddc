// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/simholt/hyrax/pkg/configs"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "hyrax",
		Short:         "Collection work and file counts backed by a search index",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file or directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose output for inspection commands")

	registerServeCommands()
	registerMaintenanceCommands()
	registerConfigsCommands()
	registerBackendsCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
