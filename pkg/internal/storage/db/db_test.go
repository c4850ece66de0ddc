package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
)

func TestAppendQuery(t *testing.T) {
	assert.Equal(t, "file:hyrax.db?_a=1", appendQuery("file:hyrax.db", "_a=1"))
	assert.Equal(t, "file::memory:?cache=shared&_a=1", appendQuery("file::memory:?cache=shared", "_a=1"))
}

func TestRegisteredTypes(t *testing.T) {
	types := GetRegisteredDBTypes()

	assert.Contains(t, types, configs.SQLite)
	assert.Contains(t, types, configs.PostgreSQL)
	assert.Contains(t, types, configs.MariaDB)
	assert.IsIncreasing(t, types)
}

func TestNew_SQLiteMemory(t *testing.T) {
	cfg := &configs.DBConfig{Type: configs.SQLite, Database: ":memory:", MaxOpenConns: 1}

	c, err := New(context.Background(), cfg, Options{})
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(context.Background()))

	var timeout int
	require.NoError(t, c.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	assert.Equal(t, 5000, timeout)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(context.Background(), &configs.DBConfig{Type: "oracle", Database: "x"}, Options{})
	require.Error(t, err)
}
