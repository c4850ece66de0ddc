package queue

// 主题命名规范：hy.<域>.<动作>，保持稳定且向后兼容.
const (
	// TopicIndexUpdated 文档写入检索服务并已提交，计数缓存需要失效.
	TopicIndexUpdated = "hy.index.updated"
	// TopicWorkIngested 批量导入创建了新作品.
	TopicWorkIngested = "hy.work.ingested"
	// TopicReportGenerated 集合计数报表快照已写入对象存储.
	TopicReportGenerated = "hy.report.generated"
)

// AllTopics 返回全部主题，供 CLI 展示.
func AllTopics() []string {
	return []string{TopicIndexUpdated, TopicWorkIngested, TopicReportGenerated}
}
