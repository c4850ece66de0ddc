package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/simholt/hyrax/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP server, scheduler and event consumer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.NewApp(ctx, configPath)
		if err != nil {
			return err
		}

		return a.Run(ctx)
	},
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
