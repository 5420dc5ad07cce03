package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"gorm.io/gorm"
)

// PermissionRepository 权限目录仓库（参考数据）
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create 创建权限（种子/管理工具用，引擎只读）
func (r *PermissionRepository) Create(ctx context.Context, p *entity.Permission) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// FindByID 按ID查找
func (r *PermissionRepository) FindByID(ctx context.Context, id string) (*entity.Permission, error) {
	var p entity.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByIDs 批量查找
func (r *PermissionRepository) FindByIDs(ctx context.Context, ids []string) ([]entity.Permission, error) {
	var perms []entity.Permission
	if len(ids) == 0 {
		return perms, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&perms).Error
	return perms, err
}

// FindByName 按名称查找
func (r *PermissionRepository) FindByName(ctx context.Context, name string) (*entity.Permission, error) {
	var p entity.Permission
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindAll 权限列表，可按资源过滤
func (r *PermissionRepository) FindAll(ctx context.Context, resource string) ([]entity.Permission, error) {
	var perms []entity.Permission
	query := r.db.WithContext(ctx).Model(&entity.Permission{})
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}
	err := query.Order("resource ASC, action ASC").Find(&perms).Error
	return perms, err
}
