package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/simholt/hyrax/pkg/app"
	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/storage"
	"github.com/simholt/hyrax/pkg/internal/storage/db"
	"github.com/simholt/hyrax/pkg/internal/storage/kv"
	"github.com/simholt/hyrax/pkg/internal/storage/mq"
)

const pingTimeout = 5 * time.Second

var errBackendsUnhealthy = errors.New("one or more backends are unhealthy")

// backendInfo 单个后端的可选实现与当前选择.
type backendInfo struct {
	Registered []string `json:"registered,omitempty"`
	Selected   string   `json:"selected,omitempty"`
	Enabled    bool     `json:"enabled"`
	Endpoint   string   `json:"endpoint,omitempty"`
}

var (
	backendsCmd = &cobra.Command{
		Use:     "backends",
		Short:   "inspect storage, search and messaging backends",
		Aliases: []string{"be"},
	}

	backendsListCmd = &cobra.Command{
		Use:     "ls",
		Short:   "list registered backend types and the configured selection",
		Aliases: []string{"list"},
		PreRunE: func(*cobra.Command, []string) error {
			return configs.InitConfig(configPath)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, describeBackends(configs.GetConfig()))
		},
	}

	backendsPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "connect to every enabled backend and report its health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := app.Bootstrap(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer mgr.Close()

			results := pingBackends(cmd.Context(), mgr)
			if err := printJSON(cmd, results); err != nil {
				return err
			}

			for _, status := range results {
				if status != "ok" {
					return errBackendsUnhealthy
				}
			}

			return nil
		},
	}
)

func describeBackends(cfg configs.AppConfig) map[string]backendInfo {
	dbTypes := make([]string, 0)
	for _, t := range db.GetRegisteredDBTypes() {
		dbTypes = append(dbTypes, string(t))
	}

	kvTypes := make([]string, 0)
	for _, t := range kv.GetRegisteredKVTypes() {
		kvTypes = append(kvTypes, string(t))
	}

	mqTypes := make([]string, 0)
	for _, t := range mq.GetRegisteredTypes() {
		mqTypes = append(mqTypes, string(t))
	}

	return map[string]backendInfo{
		"db":     {Registered: dbTypes, Selected: string(cfg.DB.Type), Enabled: true},
		"kv":     {Registered: kvTypes, Selected: cfg.KV.GetKVType(), Enabled: cfg.KV.Type != ""},
		"mq":     {Registered: mqTypes, Selected: string(cfg.MQ.Type), Enabled: cfg.MQ.Enabled},
		"search": {Selected: "solr", Enabled: true, Endpoint: cfg.Search.SelectURL()},
		"s3":     {Selected: cfg.S3.BucketOr(""), Enabled: cfg.S3.Enabled, Endpoint: cfg.S3.Endpoint},
	}
}

func pingBackends(ctx context.Context, mgr *storage.Manager) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	status := func(err error) string {
		if err != nil {
			return err.Error()
		}

		return "ok"
	}

	out := map[string]string{}

	if c := mgr.GetDBClient(); c != nil {
		out["db"] = status(c.Ping(ctx))
	}

	if c := mgr.GetSearchClient(); c != nil {
		out["search"] = status(c.Ping(ctx))
	}

	if c := mgr.GetS3Client(); c != nil {
		out["s3"] = status(c.HealthCheck(ctx))
	}

	if c := mgr.GetKVClient(); c != nil {
		_, err := c.Exists(ctx, "health:probe")
		out["kv"] = status(err)
	}

	if mgr.GetMQClient() != nil {
		out["mq"] = "ok"
	}

	if len(out) == 0 {
		out["manager"] = "no backends initialized"
	}

	return out
}

func registerBackendsCommands() {
	backendsCmd.AddCommand(backendsListCmd, backendsPingCmd)
	rootCmd.AddCommand(backendsCmd)
}
