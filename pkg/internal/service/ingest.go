package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/types"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
	"github.com/simholt/hyrax/pkg/queue"
	"github.com/simholt/hyrax/pkg/rule"
)

var (
	// ErrInvalidIngestRequest 请求整体校验失败.
	ErrInvalidIngestRequest = errors.New("invalid ingest request")
	// ErrLocalIngestDisabled 未开启本地路径导入.
	ErrLocalIngestDisabled = errors.New("local file ingestion is disabled")
	// ErrPathNotAllowed 路径不在允许的根目录下.
	ErrPathNotAllowed = errors.New("path is outside the allowed ingest roots")
	// ErrFileTooLarge 文件超过 max_file_bytes.
	ErrFileTooLarge = errors.New("file exceeds the ingest size limit")
	// ErrCollectionNotEditable 当前用户不能向该集合添加作品.
	ErrCollectionNotEditable = errors.New("collection not editable")
)

const defaultContentType = "application/octet-stream"

// IngestService 批量创建作品与文件集.
type IngestService struct {
	deps Deps
}

// NewIngestService 创建导入服务.
func NewIngestService(d Deps) *IngestService {
	return &IngestService{deps: d}
}

// localFile 通过校验的本地文件.
type localFile struct {
	abs   string
	entry types.IngestFile
}

// Ingest 逐条导入；单条失败记录在结果里，只有请求本身无效时返回错误.
func (s *IngestService) Ingest(
	ctx context.Context, opts configs.IngestConfig, p types.Principal, req types.BatchIngestRequest,
) (types.BatchIngestResult, error) {
	res := types.BatchIngestResult{Items: make([]types.IngestItemResult, 0, len(req.Items))}

	if err := rule.ValidateStruct(req); err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidIngestRequest, err)
	}

	if s.deps.DB == nil {
		return res, ErrNotConfigured
	}

	editable, err := s.editableCollections(ctx, p)
	if err != nil {
		return res, err
	}

	logger := nlog.FromContext(ctx)

	for i, item := range req.Items {
		r := types.IngestItemResult{Index: i, Title: item.Title}

		work, err := s.ingestItem(ctx, opts, p, item, editable)
		if err != nil {
			r.Error = err.Error()
			res.Failed++

			metrics.IngestItems.WithLabelValues("failed").Inc()
			logger.Warn().Err(err).Int("index", i).Str("title", item.Title).Msg("ingest item failed")
		} else {
			r.WorkID = work.ID
			r.Files = len(work.FileSets)
			res.Succeeded++

			metrics.IngestItems.WithLabelValues("ok").Inc()
		}

		res.Items = append(res.Items, r)
	}

	logger.Info().Int("succeeded", res.Succeeded).Int("failed", res.Failed).Msg("batch ingest finished")

	return res, nil
}

func (s *IngestService) editableCollections(ctx context.Context, p types.Principal) (map[string]bool, error) {
	cols, err := NewCollectionStore(s.deps.DB).ListAccessible(ctx, p, types.AccessEdit)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool, len(cols))
	for _, c := range cols {
		ids[c.ID] = true
	}

	return ids, nil
}

func (s *IngestService) ingestItem(
	ctx context.Context, opts configs.IngestConfig, p types.Principal, item types.IngestItem, editable map[string]bool,
) (*model.Work, error) {
	for _, id := range item.CollectionIDs {
		if !editable[id] {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotEditable, id)
		}
	}

	files := make([]localFile, 0, len(item.Files))

	for _, f := range item.Files {
		lf, err := checkLocalFile(opts, f)
		if err != nil {
			return nil, err
		}

		files = append(files, lf)
	}

	if len(files) > 0 && s.deps.Objects == nil {
		return nil, fmt.Errorf("object storage: %w", ErrNotConfigured)
	}

	work := &model.Work{
		ID:          newID(),
		Title:       item.Title,
		Description: item.Description,
		Depositor:   p.User,
		Visibility:  item.Visibility,
	}

	if work.Visibility == "" {
		work.Visibility = model.VisibilityRestricted
	}

	if err := work.SetCollectionIDs(item.CollectionIDs); err != nil {
		return nil, err
	}

	bucket := opts.Bucket
	if bucket == "" {
		bucket = s.deps.Config.S3.BucketName
	}

	for _, f := range files {
		fs, err := s.upload(ctx, bucket, work.ID, f)
		if err != nil {
			s.removeUploaded(ctx, work.FileSets)
			return nil, err
		}

		work.FileSets = append(work.FileSets, fs)
	}

	err := s.deps.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(work).Error
	})
	if err != nil {
		s.removeUploaded(ctx, work.FileSets)
		return nil, fmt.Errorf("save work: %w", err)
	}

	s.afterSave(ctx, work)

	return work, nil
}

func (s *IngestService) upload(ctx context.Context, bucket, workID string, f localFile) (model.FileSet, error) {
	fs := model.FileSet{
		ID:       newID(),
		WorkID:   workID,
		Label:    f.entry.Label,
		Bucket:   bucket,
		MimeType: f.entry.MimeType,
	}

	name := filepath.Base(f.abs)
	if fs.Label == "" {
		fs.Label = name
	}

	if fs.MimeType == "" {
		fs.MimeType = mime.TypeByExtension(filepath.Ext(name))
	}

	if fs.MimeType == "" {
		fs.MimeType = defaultContentType
	}

	fs.ObjectKey = path.Join("works", workID, fs.ID, name)

	info, err := s.deps.Objects.UploadFile(ctx, bucket, fs.ObjectKey, f.abs, fs.MimeType)
	if err != nil {
		return fs, fmt.Errorf("upload %s: %w", f.abs, err)
	}

	fs.Size = info.Size
	fs.ETag = info.ETag

	return fs, nil
}

// removeUploaded 删除作品保存失败前已上传的对象；请求已取消时仍然执行.
func (s *IngestService) removeUploaded(ctx context.Context, sets []model.FileSet) {
	ctx = context.WithoutCancel(ctx)

	for _, fs := range sets {
		if err := s.deps.Objects.RemoveObject(ctx, fs.Bucket, fs.ObjectKey); err != nil {
			nlog.FromContext(ctx).Warn().Err(err).
				Str("bucket", fs.Bucket).
				Str("object_key", fs.ObjectKey).
				Msg("remove orphaned object failed")
		}
	}
}

// afterSave 写索引并发布事件；失败只记日志，作品已经保存.
func (s *IngestService) afterSave(ctx context.Context, work *model.Work) {
	logger := nlog.FromContext(ctx)

	if s.deps.Writer != nil {
		if err := NewIndexerService(s.deps).IndexWork(ctx, work); err != nil {
			logger.Warn().Err(err).Str("work_id", work.ID).Msg("index ingested work failed")
		}
	}

	invalidateAfterWrite(ctx, s.deps)

	if !s.deps.eventsOn(s.deps.Config.Events.Work.Ingested) {
		return
	}

	ids, _ := work.CollectionIDs()
	payload := queue.WorkIngestedPayload{
		WorkID:        work.ID,
		Title:         work.Title,
		Depositor:     work.Depositor,
		CollectionIDs: ids,
	}

	for _, fs := range work.FileSets {
		payload.Files = append(payload.Files, queue.ObjectRef{
			Bucket:      fs.Bucket,
			ObjectKey:   fs.ObjectKey,
			ETag:        fs.ETag,
			Size:        fs.Size,
			ContentType: fs.MimeType,
		})
	}

	err := queue.PublishWorkIngested(s.deps.Publisher, payload, queue.FromContext(ctx), queue.WithProducer("ingest"))
	if err != nil {
		logger.Warn().Err(err).Str("topic", queue.TopicWorkIngested).Msg("publish event failed")
	}
}

// checkLocalFile 按导入选项校验本地路径；符号链接解析后再比较根目录.
func checkLocalFile(opts configs.IngestConfig, f types.IngestFile) (localFile, error) {
	if !opts.LocalEnabled {
		return localFile{}, ErrLocalIngestDisabled
	}

	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return localFile{}, fmt.Errorf("resolve %s: %w", f.Path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return localFile{}, fmt.Errorf("resolve %s: %w", f.Path, err)
	}

	if !underAnyRoot(resolved, opts.AllowedRoots) {
		return localFile{}, fmt.Errorf("%w: %s", ErrPathNotAllowed, f.Path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return localFile{}, fmt.Errorf("stat %s: %w", f.Path, err)
	}

	if !info.Mode().IsRegular() {
		return localFile{}, fmt.Errorf("%s is not a regular file", f.Path)
	}

	if opts.MaxFileBytes > 0 && info.Size() > opts.MaxFileBytes {
		return localFile{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, f.Path, info.Size())
	}

	return localFile{abs: resolved, entry: f}, nil
}

func underAnyRoot(p string, roots []string) bool {
	for _, root := range roots {
		if root == "" {
			continue
		}

		r, err := filepath.Abs(root)
		if err != nil {
			continue
		}

		if rr, err := filepath.EvalSymlinks(r); err == nil {
			r = rr
		}

		rel, err := filepath.Rel(r, p)
		if err != nil {
			continue
		}

		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}

	return false
}

func newID() string {
	return strings.ToLower(ulid.Make().String())
}
