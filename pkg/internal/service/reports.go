package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/simholt/hyrax/pkg/internal/types"
	nlog "github.com/simholt/hyrax/pkg/log"
	"github.com/simholt/hyrax/pkg/metrics"
	"github.com/simholt/hyrax/pkg/queue"
)

// ReportService 生成全部集合的计数快照.
type ReportService struct {
	deps Deps
	now  func() time.Time
}

// NewReportService 创建报表服务.
func NewReportService(d Deps) *ReportService {
	return &ReportService{deps: d, now: time.Now}
}

// Snapshot 计算全部集合的计数，写入对象存储并发布 hy.report.generated.
// 未配置对象存储时只返回报表.
func (s *ReportService) Snapshot(ctx context.Context) (types.CountReport, error) {
	if s.deps.DB == nil || s.deps.Search == nil {
		return types.CountReport{}, ErrNotConfigured
	}

	field := s.deps.Config.Search.GetChildLinkField()

	cols, err := NewCollectionStore(s.deps.DB).ListAll(ctx)
	if err != nil {
		return types.CountReport{}, err
	}

	items, err := NewAggregator(s.deps.Search, s.deps.Config.Search.MaxRows).
		ComputeEnrichedCounts(ctx, toParents(cols), field)
	if err != nil {
		return types.CountReport{}, fmt.Errorf("report counts: %w", err)
	}

	report := types.CountReport{
		ID:          uuid.NewString(),
		GeneratedAt: s.now().UTC(),
		Field:       field,
		Items:       items,
	}

	for _, it := range items {
		report.TotalWorks += it.WorkCount
		report.TotalFiles += it.FileCount
	}

	if s.deps.Objects == nil {
		nlog.FromContext(ctx).Warn().Msg("object storage not configured, report not persisted")

		return report, nil
	}

	report.Bucket = s.deps.Config.Report.Bucket
	if report.Bucket == "" {
		report.Bucket = s.deps.Config.S3.BucketName
	}

	report.ObjectKey = ReportKey(s.deps.Config.Report.Prefix, report.GeneratedAt, report.ID)

	body, err := sonic.Marshal(report)
	if err != nil {
		return report, fmt.Errorf("encode report: %w", err)
	}

	info, err := s.deps.Objects.PutBytes(ctx, report.Bucket, report.ObjectKey, body, "application/json")
	if err != nil {
		return report, fmt.Errorf("store report: %w", err)
	}

	metrics.ReportsGenerated.Inc()

	nlog.FromContext(ctx).Info().
		Str("report_id", report.ID).
		Str("object", report.ObjectKey).
		Int("collections", len(items)).
		Msg("collection counts report stored")

	if s.deps.eventsOn(s.deps.Config.Events.Report.Generated) {
		err := queue.PublishReportGenerated(s.deps.Publisher, queue.ReportGeneratedPayload{
			ReportID: report.ID,
			Object: queue.ObjectRef{
				Bucket:      info.Bucket,
				ObjectKey:   info.Key,
				ETag:        info.ETag,
				Size:        info.Size,
				ContentType: "application/json",
			},
			Collections: len(items),
			TotalWorks:  report.TotalWorks,
			TotalFiles:  report.TotalFiles,
			GeneratedAt: report.GeneratedAt,
		}, queue.FromContext(ctx), queue.WithProducer("report"))
		if err != nil {
			nlog.FromContext(ctx).Warn().Err(err).Str("topic", queue.TopicReportGenerated).Msg("publish event failed")
		}
	}

	return report, nil
}

// ReportKey 快照对象键：<prefix>/YYYY/MM/DD/<id>.json.
func ReportKey(prefix string, at time.Time, id string) string {
	return path.Join(prefix, at.UTC().Format("2006/01/02"), id+".json")
}
