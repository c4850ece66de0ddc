package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
	"github.com/simholt/hyrax/pkg/internal/storage/search"
)

// FileSetIDsField 作品文档上列出其文件集的字段.
const FileSetIDsField = "file_set_ids_ssim"

// Work 作品，可同时属于多个集合.
type Work struct {
	ID          string `gorm:"primaryKey;size:64"               json:"id"`
	Title       string `gorm:"size:512;index"                   json:"title"`
	Description string `gorm:"type:text"                        json:"description"`
	Depositor   string `gorm:"size:255;index"                   json:"depositor"`
	Visibility  string `gorm:"size:32;index;default:restricted" json:"visibility"`
	// CollectionIDsJSON 所属集合 ID 列表，JSON 文本
	CollectionIDsJSON string         `gorm:"type:text"                   json:"-"`
	FileSets          []FileSet      `gorm:"foreignKey:WorkID;constraint:OnDelete:CASCADE" json:"file_sets,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// FileSet 作品下的一个文件.
type FileSet struct {
	ID        string         `gorm:"primaryKey;size:64" json:"id"`
	WorkID    string         `gorm:"size:64;index"      json:"work_id"`
	Label     string         `gorm:"size:512"           json:"label"`
	Bucket    string         `gorm:"size:255"           json:"bucket"`
	ObjectKey string         `gorm:"size:1024"          json:"object_key"`
	Size      int64          `json:"size"`
	MimeType  string         `gorm:"size:255"           json:"mime_type"`
	ETag      string         `gorm:"size:64"            json:"etag"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CollectionIDs 解析所属集合.
func (w *Work) CollectionIDs() ([]string, error) {
	if w.CollectionIDsJSON == "" {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(w.CollectionIDsJSON), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal collection_ids of work %s: %w", w.ID, err)
	}

	return ids, nil
}

// SetCollectionIDs 设置所属集合（去重并保持顺序）.
func (w *Work) SetCollectionIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	uniq := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		uniq = append(uniq, id)
	}

	b, err := json.Marshal(uniq)
	if err != nil {
		return fmt.Errorf("marshal collection_ids: %w", err)
	}

	w.CollectionIDsJSON = string(b)

	return nil
}

// HumanReadableType 实现 DescribesOwnType.
func (w *Work) HumanReadableType() string { return "Work" }

// ModelName 实现 Indexable.
func (w *Work) ModelName() string { return "GenericWork" }

// IndexID 实现 Indexable.
func (w *Work) IndexID() string { return w.ID }

// IndexFields 实现 Indexable；成员关系写在默认的集合成员字段上.
func (w *Work) IndexFields() search.Document {
	fileIDs := make([]string, 0, len(w.FileSets))
	for _, fs := range w.FileSets {
		fileIDs = append(fileIDs, fs.ID)
	}

	// 解析失败时按无归属处理，索引仍可写入
	collections, _ := w.CollectionIDs()
	if collections == nil {
		collections = []string{}
	}

	doc := search.Document{
		"title_tesim":                 []string{w.Title},
		"depositor_ssim":              []string{w.Depositor},
		"visibility_ssi":              w.Visibility,
		"system_modified_dtsi":        w.UpdatedAt.UTC().Format(time.RFC3339),
		configs.DefaultChildLinkField: collections,
		FileSetIDsField:               fileIDs,
	}

	if w.Description != "" {
		doc["description_tesim"] = []string{w.Description}
	}

	return doc
}
