package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/service"
	"github.com/simholt/hyrax/pkg/queue"
)

func TestToSearchDocument(t *testing.T) {
	work := &model.Work{
		ID:         "w1",
		Title:      "Field notes",
		Depositor:  "alice",
		Visibility: model.VisibilityOpen,
		FileSets:   []model.FileSet{{ID: "f1"}, {ID: "f2"}},
		UpdatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, work.SetCollectionIDs([]string{"c1", "c2", "c1", ""}))

	doc := service.ToSearchDocument(work)

	assert.Equal(t, "w1", doc["id"])
	assert.Equal(t, []string{"Work"}, doc[service.HumanReadableTypeField])
	assert.Equal(t, []string{"GenericWork"}, doc[service.HasModelField])
	assert.Equal(t, []string{"c1", "c2"}, doc[configs.DefaultChildLinkField])
	assert.Equal(t, []string{"f1", "f2"}, doc[model.FileSetIDsField])
	assert.Equal(t, "2024-05-01T12:00:00Z", doc["system_modified_dtsi"])
	assert.NotContains(t, doc, "description_tesim")

	col := &model.Collection{
		ID: "c1",
		Permissions: []model.CollectionPermission{
			{Agent: "bob", AgentType: model.AgentUser, Access: model.AccessEdit},
			{Agent: "staff", AgentType: model.AgentGroup, Access: model.AccessRead},
		},
	}

	cdoc := service.ToSearchDocument(col)
	assert.Equal(t, []string{"Collection"}, cdoc[service.HumanReadableTypeField])
	assert.Equal(t, []string{"bob"}, cdoc["edit_access_person_ssim"])
	assert.Equal(t, []string{"staff"}, cdoc["read_access_group_ssim"])
}

func TestReindexAll(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	seedFixture(t, db)

	for _, id := range []string{"w1", "w2", "w3"} {
		w := &model.Work{ID: id, Title: id, FileSets: []model.FileSet{{ID: "fs-" + id}}}
		require.NoError(t, w.SetCollectionIDs([]string{"open"}))
		require.NoError(t, db.Create(w).Error)
	}

	w := &recordingWriter{}
	pub := newCapturePublisher()

	cfg := testConfig()
	cfg.Search.ChildLinkField = "isPartOf_ssim"

	res, err := service.NewIndexerService(service.Deps{DB: db, Writer: w, Publisher: pub, Config: cfg}).ReindexAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, 6, res.Collections)
	assert.Equal(t, 3, res.Works)
	assert.Equal(t, 9, res.Documents)
	assert.Equal(t, 1, w.commits, "one commit at the end")

	// 批大小为 2：集合 3 批，作品 2 批
	assert.Len(t, w.batches, 5)

	var works int

	for _, d := range w.docs() {
		if d[service.HasModelField].([]string)[0] != "GenericWork" {
			continue
		}

		works++

		assert.NotContains(t, d, configs.DefaultChildLinkField)
		assert.Equal(t, []string{"open"}, d["isPartOf_ssim"])
		assert.Len(t, d[model.FileSetIDsField], 1)
	}

	assert.Equal(t, 3, works)

	msgs := pub.published(queue.TopicIndexUpdated)
	require.Len(t, msgs, 1)

	evt, err := queue.ParseIndexUpdated(msgs[0])
	require.NoError(t, err)
	assert.True(t, evt.Payload.Full)
	assert.Equal(t, 9, evt.Payload.Documents)
}

func TestReindexAll_EventsDisabled(t *testing.T) {
	pub := newCapturePublisher()

	cfg := testConfig()
	cfg.Events.Enabled = false

	_, err := service.NewIndexerService(service.Deps{
		DB: newTestDB(t), Writer: &recordingWriter{}, Publisher: pub, Config: cfg,
	}).ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pub.published(queue.TopicIndexUpdated))
}

func TestIndexer_PublishFailureIsNotFatal(t *testing.T) {
	pub := newCapturePublisher()
	pub.err = errKVDown

	err := service.NewIndexerService(service.Deps{Writer: &recordingWriter{}, Publisher: pub, Config: testConfig()}).
		IndexWork(context.Background(), &model.Work{ID: "w1"})
	require.NoError(t, err)
}

func TestIndexer_NotConfigured(t *testing.T) {
	svc := service.NewIndexerService(service.Deps{Config: testConfig()})

	_, err := svc.ReindexAll(context.Background())
	require.ErrorIs(t, err, service.ErrNotConfigured)

	require.ErrorIs(t, svc.IndexCollection(context.Background(), &model.Collection{ID: "c1"}), service.ErrNotConfigured)
}
