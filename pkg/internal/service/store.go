package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/internal/model"
	"github.com/simholt/hyrax/pkg/internal/types"
)

// ErrCollectionNotFound 集合不存在.
var ErrCollectionNotFound = errors.New("collection not found")

const grantSubquery = "id IN (SELECT collection_id FROM collection_permissions " +
	"WHERE agent_type = ? AND agent IN ? AND access IN ?)"

// CollectionStore 按权限列出集合.
type CollectionStore struct {
	db *gorm.DB
}

// NewCollectionStore 创建集合存储.
func NewCollectionStore(db *gorm.DB) *CollectionStore {
	return &CollectionStore{db: db}
}

// ListAccessible 列出 principal 在 scope 下可访问的集合，按修改时间倒序.
//
//   - read: 有 read 或 edit 授权、是存入者、open 可见，或登录用户访问 authenticated 可见
//   - edit: 有 edit 授权或是存入者
//
// 管理员可见全部集合.
func (s *CollectionStore) ListAccessible(
	ctx context.Context, p types.Principal, scope types.AccessScope,
) ([]model.Collection, error) {
	if p.Admin {
		return s.ListAll(ctx)
	}

	accesses := []string{model.AccessEdit}
	if scope == types.AccessRead {
		accesses = append(accesses, model.AccessRead)
	}

	var (
		clauses []string
		args    []any
	)

	if !p.Anonymous() {
		clauses = append(clauses, "depositor = ?", grantSubquery)
		args = append(args, p.User, model.AgentUser, []string{p.User}, accesses)
	}

	if len(p.Groups) > 0 {
		clauses = append(clauses, grantSubquery)
		args = append(args, model.AgentGroup, p.Groups, accesses)
	}

	if scope == types.AccessRead {
		clauses = append(clauses, "visibility = ?")
		args = append(args, model.VisibilityOpen)

		if !p.Anonymous() {
			clauses = append(clauses, "visibility = ?")
			args = append(args, model.VisibilityAuthenticated)
		}
	}

	if len(clauses) == 0 {
		return []model.Collection{}, nil
	}

	var cols []model.Collection

	err := s.db.WithContext(ctx).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("updated_at DESC").Order("id ASC").
		Find(&cols).Error
	if err != nil {
		return nil, fmt.Errorf("list accessible collections: %w", err)
	}

	return cols, nil
}

// ListAll 列出全部集合.
func (s *CollectionStore) ListAll(ctx context.Context) ([]model.Collection, error) {
	var cols []model.Collection

	if err := s.db.WithContext(ctx).Order("updated_at DESC").Order("id ASC").Find(&cols).Error; err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	return cols, nil
}

// Get 按 ID 获取集合及其授权.
func (s *CollectionStore) Get(ctx context.Context, id string) (*model.Collection, error) {
	var col model.Collection

	err := s.db.WithContext(ctx).Preload("Permissions").First(&col, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}

	return &col, nil
}

// Create 保存集合与授权.
func (s *CollectionStore) Create(ctx context.Context, col *model.Collection) error {
	if err := s.db.WithContext(ctx).Create(col).Error; err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

// toParents 转换为聚合输入，保持顺序.
func toParents(cols []model.Collection) []types.ParentRecord {
	parents := make([]types.ParentRecord, 0, len(cols))
	for _, c := range cols {
		parents = append(parents, types.ParentRecord{ID: c.ID, Title: c.Title, DateModified: c.UpdatedAt})
	}

	return parents
}
