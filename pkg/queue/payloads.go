package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// ObjectRef 标识对象存储中的一个对象.
type ObjectRef struct {
	Bucket      string `json:"bucket"`
	ObjectKey   string `json:"object_key"`
	ETag        string `json:"etag,omitempty"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// IndexUpdatedPayload 一批文档已提交到检索服务.
type IndexUpdatedPayload struct {
	// CollectionIDs 受影响的集合，为空表示全量重建.
	CollectionIDs []string `json:"collection_ids,omitempty"`
	Documents     int      `json:"documents"`
	Full          bool     `json:"full,omitempty"`
}

// WorkIngestedPayload 导入创建的作品.
type WorkIngestedPayload struct {
	WorkID        string      `json:"work_id"`
	Title         string      `json:"title"`
	Depositor     string      `json:"depositor"`
	CollectionIDs []string    `json:"collection_ids,omitempty"`
	Files         []ObjectRef `json:"files,omitempty"`
}

// ReportGeneratedPayload 报表快照位置与摘要.
type ReportGeneratedPayload struct {
	ReportID    string    `json:"report_id"`
	Object      ObjectRef `json:"object"`
	Collections int       `json:"collections"`
	TotalWorks  int       `json:"total_works"`
	TotalFiles  int       `json:"total_files"`
	GeneratedAt time.Time `json:"generated_at"`
}
