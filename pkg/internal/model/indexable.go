// Package model 定义持久化模型与索引能力接口.
package model

import "github.com/simholt/hyrax/pkg/internal/storage/search"

// DescribesOwnType 能给出自身可读类型名的实体，例如 "Collection"、"Work".
type DescribesOwnType interface {
	HumanReadableType() string
}

// Indexable 可写入检索服务的实体；索引时由调用方组合出完整文档.
type Indexable interface {
	DescribesOwnType
	IndexID() string
	ModelName() string
	IndexFields() search.Document
}

// AllModels 返回需要迁移的模型.
func AllModels() []any {
	return []any{&Collection{}, &CollectionPermission{}, &Work{}, &FileSet{}}
}
