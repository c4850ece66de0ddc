package model

import (
	"time"

	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/internal/storage/search"
)

// 可见性取值.
const (
	VisibilityOpen          = "open"          // 所有人可读
	VisibilityAuthenticated = "authenticated" // 登录用户可读
	VisibilityRestricted    = "restricted"    // 仅授权者可读
)

// 授权主体类型与访问级别.
const (
	AgentUser  = "user"
	AgentGroup = "group"

	AccessRead = "read"
	AccessEdit = "edit"
)

// Collection 集合，计数聚合中的父记录.
type Collection struct {
	ID          string                 `gorm:"primaryKey;size:64"                                  json:"id"`
	Title       string                 `gorm:"size:512;index"                                      json:"title"`
	Description string                 `gorm:"type:text"                                           json:"description"`
	Depositor   string                 `gorm:"size:255;index"                                      json:"depositor"`
	Visibility  string                 `gorm:"size:32;index;default:restricted"                    json:"visibility"`
	Permissions []CollectionPermission `gorm:"foreignKey:CollectionID;constraint:OnDelete:CASCADE" json:"permissions,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `gorm:"index" json:"updated_at"`
	DeletedAt   gorm.DeletedAt         `gorm:"index" json:"-"`
}

// CollectionPermission 集合上的一条授权.
type CollectionPermission struct {
	ID           uint   `gorm:"primaryKey"                       json:"id"`
	CollectionID string `gorm:"size:64;index:idx_perm_lookup"    json:"collection_id"`
	Agent        string `gorm:"size:255;index:idx_perm_lookup"   json:"agent"`
	AgentType    string `gorm:"size:16;index:idx_perm_lookup"    json:"agent_type"`
	Access       string `gorm:"size:16"                          json:"access"`
}

// HumanReadableType 实现 DescribesOwnType.
func (c *Collection) HumanReadableType() string { return "Collection" }

// ModelName 实现 Indexable.
func (c *Collection) ModelName() string { return "Collection" }

// IndexID 实现 Indexable.
func (c *Collection) IndexID() string { return c.ID }

// IndexFields 实现 Indexable，权限字段按 person/group 与 read/edit 拆分.
func (c *Collection) IndexFields() search.Document {
	doc := search.Document{
		"title_tesim":          []string{c.Title},
		"depositor_ssim":       []string{c.Depositor},
		"visibility_ssi":       c.Visibility,
		"system_modified_dtsi": c.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if c.Description != "" {
		doc["description_tesim"] = []string{c.Description}
	}

	grants := map[string][]string{}

	for _, p := range c.Permissions {
		kind := "person"
		if p.AgentType == AgentGroup {
			kind = "group"
		}

		key := p.Access + "_access_" + kind + "_ssim"
		grants[key] = append(grants[key], p.Agent)
	}

	for k, v := range grants {
		doc[k] = v
	}

	return doc
}
