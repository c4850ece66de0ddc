package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/simholt/hyrax/pkg/app"
	ctxPkg "github.com/simholt/hyrax/pkg/context"
	"github.com/simholt/hyrax/pkg/internal/service"
)

var (
	// 全量重建检索索引.
	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "rebuild search documents for all collections and works",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			ctx := ctxPkg.WithStorageManager(cmd.Context(), mgr)

			res, err := service.NewIndexerService(service.DepsFromContext(ctx)).ReindexAll(ctx)
			if err != nil {
				return err
			}

			return printJSON(cmd, res)
		},
	}

	// 生成一份集合计数快照.
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "compute counts for every collection and store a snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			ctx := ctxPkg.WithStorageManager(cmd.Context(), mgr)

			report, err := service.NewReportService(service.DepsFromContext(ctx)).Snapshot(ctx)
			if err != nil {
				return err
			}

			if !debug {
				report.Items = nil
			}

			return printJSON(cmd, report)
		},
	}
)

func printJSON(cmd *cobra.Command, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(b))

	return nil
}

func registerMaintenanceCommands() {
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(reportCmd)
}
