package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simholt/hyrax/pkg/configs"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "inspect the effective configuration",
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return configs.InitConfig(configPath)
		},
	}

	configPathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the config file in use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file := configs.GetViper().ConfigFileUsed()
			if file == "" {
				file = "(none: defaults and HYRAX_* environment)"
			}

			fmt.Fprintln(cmd.OutOrStdout(), file)

			return nil
		},
	}

	// 口令与密钥打码后输出；--debug 额外打印 viper 的来源明细.
	configShowCmd = &cobra.Command{
		Use:     "show",
		Short:   "print the effective configuration with secrets masked",
		Aliases: []string{"debug"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				configs.GetViper().Debug()
			}

			return printJSON(cmd, configs.GetConfig().Redacted())
		},
	}

	// 加载成功即校验通过，这里只输出影响计数结果的关键项.
	configCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "validate the configuration and summarise the counting setup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configs.GetConfig()

			return printJSON(cmd, map[string]any{
				"valid":            true,
				"search_select":    cfg.Search.SelectURL(),
				"child_link_field": cfg.Search.GetChildLinkField(),
				"max_rows":         cfg.Search.MaxRows,
				"counts_cache_ttl": cfg.Search.CountsCacheTTL.String(),
				"events_enabled":   cfg.Events.Enabled && cfg.MQ.Enabled,
			})
		},
	}
)

func registerConfigsCommands() {
	configCmd.AddCommand(configPathCmd, configShowCmd, configCheckCmd)
	rootCmd.AddCommand(configCmd)
}
