package cmd

import (
	"bytes"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
)

func TestDescribeBackends(t *testing.T) {
	cfg := configs.Defaults()
	cfg.S3.Enabled = false

	got := describeBackends(cfg)

	require.Contains(t, got, "db")
	assert.Contains(t, got["db"].Registered, string(configs.SQLite))
	assert.Equal(t, string(cfg.DB.Type), got["db"].Selected)
	assert.Contains(t, got["kv"].Registered, "memory")
	assert.Equal(t, cfg.Search.SelectURL(), got["search"].Endpoint)
	assert.False(t, got["s3"].Enabled)
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer

	backendsListCmd.SetOut(&out)
	t.Cleanup(func() { backendsListCmd.SetOut(nil) })

	require.NoError(t, printJSON(backendsListCmd, map[string]int{"works": 3}))

	var decoded map[string]int
	require.NoError(t, sonic.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, 3, decoded["works"])
}
