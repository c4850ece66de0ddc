package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	ctxPkg "github.com/simholt/hyrax/pkg/context"
	"github.com/simholt/hyrax/pkg/internal/storage"
	"github.com/simholt/hyrax/pkg/internal/types"
)

func TestClientsWithoutManager(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ctxPkg.GetDBClient(ctx))
	assert.Nil(t, ctxPkg.GetSearchClient(ctx))
	assert.Nil(t, ctxPkg.GetScheduler(ctx))
}

func TestClientsFromEmptyManager(t *testing.T) {
	ctx := ctxPkg.WithStorageManager(context.Background(), &storage.Manager{})

	assert.Nil(t, ctxPkg.GetKVClient(ctx))
	assert.Nil(t, ctxPkg.GetMQClient(ctx))
	assert.Nil(t, ctxPkg.GetS3Client(ctx))
}

func TestPrincipal(t *testing.T) {
	assert.True(t, ctxPkg.GetPrincipal(context.Background()).Anonymous())

	ctx := ctxPkg.WithPrincipal(context.Background(), types.Principal{User: "u1"})
	assert.Equal(t, "u1", ctxPkg.GetPrincipal(ctx).User)
}
