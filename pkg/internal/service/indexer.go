package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
	"github.com/simholt/hyrax/pkg/internal/types"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/queue"
)

// 所有文档都带的公共字段.
const (
	HumanReadableTypeField = "human_readable_type_tesim"
	HasModelField          = "has_model_ssim"
)

// ToSearchDocument 组合实体字段、ID、可读类型名与模型名.
func ToSearchDocument(e model.Indexable) search.Document {
	fields := e.IndexFields()

	doc := make(search.Document, len(fields)+3)
	for k, v := range fields {
		doc[k] = v
	}

	doc["id"] = e.IndexID()
	doc[HumanReadableTypeField] = []string{e.HumanReadableType()}
	doc[HasModelField] = []string{e.ModelName()}

	return doc
}

// IndexerService 把集合与作品写入检索服务.
type IndexerService struct {
	deps      Deps
	linkField string
	batchSize int
}

// NewIndexerService 创建索引服务.
func NewIndexerService(d Deps) *IndexerService {
	size := d.Config.Search.IndexBatchSize
	if size <= 0 {
		size = configs.DefaultSearchIndexBatchSize
	}

	return &IndexerService{deps: d, linkField: d.Config.Search.GetChildLinkField(), batchSize: size}
}

// document 生成文档；成员字段按配置改名.
func (s *IndexerService) document(e model.Indexable) search.Document {
	doc := ToSearchDocument(e)

	if s.linkField != configs.DefaultChildLinkField {
		if v, ok := doc[configs.DefaultChildLinkField]; ok {
			delete(doc, configs.DefaultChildLinkField)
			doc[s.linkField] = v
		}
	}

	return doc
}

// IndexCollection 写入单个集合并提交.
func (s *IndexerService) IndexCollection(ctx context.Context, col *model.Collection) error {
	if s.deps.Writer == nil {
		return ErrNotConfigured
	}

	if err := s.deps.Writer.Add(ctx, []search.Document{s.document(col)}, true); err != nil {
		return fmt.Errorf("index collection %s: %w", col.ID, err)
	}

	s.publish(ctx, queue.IndexUpdatedPayload{CollectionIDs: []string{col.ID}, Documents: 1})

	return nil
}

// IndexWork 写入单个作品并提交.
func (s *IndexerService) IndexWork(ctx context.Context, work *model.Work) error {
	if s.deps.Writer == nil {
		return ErrNotConfigured
	}

	if err := s.deps.Writer.Add(ctx, []search.Document{s.document(work)}, true); err != nil {
		return fmt.Errorf("index work %s: %w", work.ID, err)
	}

	ids, _ := work.CollectionIDs()
	s.publish(ctx, queue.IndexUpdatedPayload{CollectionIDs: ids, Documents: 1})

	return nil
}

// ReindexAll 分批写入全部集合与作品，最后统一提交一次.
func (s *IndexerService) ReindexAll(ctx context.Context) (types.ReindexResult, error) {
	var res types.ReindexResult

	if s.deps.Writer == nil || s.deps.DB == nil {
		return res, ErrNotConfigured
	}

	logger := nlog.FromContext(ctx)
	dbx := s.deps.DB.WithContext(ctx)

	var cols []model.Collection

	err := dbx.Preload("Permissions").Order("id").
		FindInBatches(&cols, s.batchSize, func(_ *gorm.DB, _ int) error {
			docs := make([]search.Document, 0, len(cols))
			for i := range cols {
				docs = append(docs, s.document(&cols[i]))
			}

			res.Collections += len(docs)

			return s.deps.Writer.Add(ctx, docs, false)
		}).Error
	if err != nil {
		return res, fmt.Errorf("reindex collections: %w", err)
	}

	var works []model.Work

	err = dbx.Preload("FileSets").Order("id").
		FindInBatches(&works, s.batchSize, func(_ *gorm.DB, _ int) error {
			docs := make([]search.Document, 0, len(works))
			for i := range works {
				docs = append(docs, s.document(&works[i]))
			}

			res.Works += len(docs)

			return s.deps.Writer.Add(ctx, docs, false)
		}).Error
	if err != nil {
		return res, fmt.Errorf("reindex works: %w", err)
	}

	if err := s.deps.Writer.Add(ctx, nil, true); err != nil {
		return res, fmt.Errorf("commit reindex: %w", err)
	}

	res.Documents = res.Collections + res.Works

	logger.Info().
		Int("collections", res.Collections).
		Int("works", res.Works).
		Msg("reindex finished")

	invalidateAfterWrite(ctx, s.deps)
	s.publish(ctx, queue.IndexUpdatedPayload{Documents: res.Documents, Full: true})

	return res, nil
}

// publish 事件发布失败只记日志.
func (s *IndexerService) publish(ctx context.Context, payload queue.IndexUpdatedPayload) {
	if !s.deps.eventsOn(s.deps.Config.Events.Index.Updated) {
		return
	}

	err := queue.PublishIndexUpdated(s.deps.Publisher, payload,
		queue.FromContext(ctx), queue.WithProducer("indexer"))
	if err != nil {
		nlog.FromContext(ctx).Warn().Err(err).Str("topic", queue.TopicIndexUpdated).Msg("publish event failed")
	}
}
