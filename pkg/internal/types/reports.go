package types

import "time"

// CountReport 某一时刻全部集合的计数快照.
type CountReport struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Field       string           `json:"field"`
	Items       []EnrichedResult `json:"items"`
	TotalWorks  int              `json:"total_works"`
	TotalFiles  int              `json:"total_files"`
	Bucket      string           `json:"bucket,omitempty"`
	ObjectKey   string           `json:"object_key,omitempty"`
}

// ReindexResult 全量重建索引的结果.
type ReindexResult struct {
	Collections int `json:"collections"`
	Works       int `json:"works"`
	Documents   int `json:"documents"`
}
