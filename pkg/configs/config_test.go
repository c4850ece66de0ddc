package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
)

func TestInitConfig_Defaults(t *testing.T) {
	require.NoError(t, configs.InitConfig(""))

	cfg := configs.GetConfig()

	assert.Equal(t, configs.DefaultSearchURL, cfg.Search.URL)
	assert.Equal(t, configs.DefaultSearchMaxRows, cfg.Search.MaxRows)
	assert.Equal(t, configs.DefaultChildLinkField, cfg.Search.GetChildLinkField())
	assert.Equal(t, "http://localhost:8983/solr/hydra/select", cfg.Search.SelectURL())
	assert.Zero(t, cfg.Search.CountsCacheTTL)
	assert.True(t, cfg.Events.Enabled)
	assert.True(t, cfg.Events.Index.Updated)
	assert.False(t, cfg.Ingest.LocalEnabled)
	assert.Equal(t, configs.DefaultReportPrefix, cfg.Report.Prefix)
	assert.Contains(t, cfg.Auth.SkipPaths, "/metrics")
}

func TestInitConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := `
search:
  url: http://solr:8983/solr/
  core: /archive/
  max_rows: 500
  child_link_field: isPartOf_ssim
  counts_cache_ttl: 45s
ingest:
  local_enabled: true
  allowed_roots: [/srv/ingest]
auth:
  admin_users: [Root@Example.org]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))

	t.Setenv("HYRAX_SEARCH_MAX_ROWS", "750")

	require.NoError(t, configs.InitConfig(dir))

	cfg := configs.GetConfig()

	assert.Equal(t, 750, cfg.Search.MaxRows, "env overrides file")
	assert.Equal(t, "isPartOf_ssim", cfg.Search.GetChildLinkField())
	assert.Equal(t, 45*time.Second, cfg.Search.CountsCacheTTL)
	assert.Equal(t, "http://solr:8983/solr/archive/update", cfg.Search.UpdateURL())
	assert.True(t, cfg.Ingest.LocalEnabled)
	assert.Equal(t, []string{"/srv/ingest"}, cfg.Ingest.AllowedRoots)
	assert.True(t, cfg.Auth.IsAdminUser("root@example.org"))
	assert.False(t, cfg.Auth.IsAdminUser("alice@example.org"))
}

func TestInitConfig_Invalid(t *testing.T) {
	cases := map[string]string{
		"zero max rows":    "search:\n  max_rows: 0\n",
		"bad search url":   "search:\n  url: not a url\n",
		"unknown db type":  "db:\n  type: oracle\n",
		"bad failure rate": "search:\n  breaker_failure_rate: 1.5\n",
		"bad link field":   "search:\n  child_link_field: \"a b\"\n",
		"bad limiter key":  "rate_limit:\n  key: session\n",
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(p, []byte(body), 0o600))

			err := configs.InitConfig(p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestInitConfig_MissingPath(t *testing.T) {
	require.Error(t, configs.InitConfig(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestRedacted(t *testing.T) {
	var cfg configs.AppConfig
	cfg.DB.Password = "pg-secret"
	cfg.S3.SecretAccessKey = "s3-secret"
	cfg.KV.Redis.Addr = "redis:6379"

	r := cfg.Redacted()

	assert.Equal(t, "******", r.DB.Password)
	assert.Equal(t, "******", r.S3.SecretAccessKey)
	assert.Empty(t, r.MQ.Redis.Password, "empty values stay empty")
	assert.Equal(t, "redis:6379", r.KV.Redis.Addr)
	assert.Equal(t, "pg-secret", cfg.DB.Password, "original untouched")
}

func TestDBConfig_GetDSN(t *testing.T) {
	pg := configs.DBConfig{
		Type: configs.Pg, Host: "db", Port: 5432, User: "hyrax", Password: "p@ss word",
		Database: "repo", SSLMode: "require",
	}
	assert.Equal(t, "postgres://hyrax:p%40ss%20word@db:5432/repo?sslmode=require", pg.GetDSN())
	assert.Equal(t, "postgres", pg.GetDBType())

	my := configs.DBConfig{Type: configs.MariaDB, Host: "db", Port: 3306, User: "u", Password: "p", Database: "repo"}
	assert.Contains(t, my.GetDSN(), "u:p@tcp(db:3306)/repo?")
	assert.Contains(t, my.GetDSN(), "parseTime=true")
	assert.Contains(t, my.GetDSN(), "charset=utf8mb4")

	assert.Equal(t, "file::memory:?cache=shared", (&configs.DBConfig{Type: configs.SQLite, Database: ":memory:"}).GetDSN())
	assert.Equal(t, "file:hyrax.db", (&configs.DBConfig{Type: configs.SQLite, Database: "hyrax"}).GetDSN())
	assert.Empty(t, (&configs.DBConfig{Type: "oracle"}).GetDSN())
}
