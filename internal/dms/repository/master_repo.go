package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"gorm.io/gorm"
)

// MasterRepository 主数据仓库：医院/医生/供应商/产品
type MasterRepository struct {
	db *gorm.DB
}

func NewMasterRepository(db *gorm.DB) *MasterRepository {
	return &MasterRepository{db: db}
}

// === 医院 ===

func (r *MasterRepository) CreateHospital(ctx context.Context, h *entity.Hospital) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *MasterRepository) FindHospital(ctx context.Context, id string) (*entity.Hospital, error) {
	var h entity.Hospital
	if err := first(r.db.WithContext(ctx).Where("id = ?", id), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *MasterRepository) UpdateHospital(ctx context.Context, h *entity.Hospital) error {
	return r.db.WithContext(ctx).Save(h).Error
}

func (r *MasterRepository) ListHospitals(ctx context.Context, page, pageSize int, search string) ([]entity.Hospital, int64, error) {
	var items []entity.Hospital
	query := r.db.WithContext(ctx).Model(&entity.Hospital{})
	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	total, err := paginate(query, page, pageSize, &items)
	return items, total, err
}

// === 医生 ===

func (r *MasterRepository) CreateDoctor(ctx context.Context, d *entity.Doctor) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *MasterRepository) FindDoctor(ctx context.Context, id string) (*entity.Doctor, error) {
	var d entity.Doctor
	if err := first(r.db.WithContext(ctx).Preload("Hospital").Where("id = ?", id), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *MasterRepository) UpdateDoctor(ctx context.Context, d *entity.Doctor) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *MasterRepository) ListDoctors(ctx context.Context, page, pageSize int, hospitalID, search string) ([]entity.Doctor, int64, error) {
	var items []entity.Doctor
	query := r.db.WithContext(ctx).Model(&entity.Doctor{})
	if hospitalID != "" {
		query = query.Where("hospital_id = ?", hospitalID)
	}
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	total, err := paginate(query, page, pageSize, &items)
	return items, total, err
}

// === 供应商 ===

func (r *MasterRepository) CreatePrincipal(ctx context.Context, p *entity.Principal) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *MasterRepository) FindPrincipal(ctx context.Context, id string) (*entity.Principal, error) {
	var p entity.Principal
	if err := first(r.db.WithContext(ctx).Where("id = ?", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MasterRepository) UpdatePrincipal(ctx context.Context, p *entity.Principal) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *MasterRepository) ListPrincipals(ctx context.Context, page, pageSize int, search string) ([]entity.Principal, int64, error) {
	var items []entity.Principal
	query := r.db.WithContext(ctx).Model(&entity.Principal{})
	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	total, err := paginate(query, page, pageSize, &items)
	return items, total, err
}

// === 产品 ===

func (r *MasterRepository) CreateProduct(ctx context.Context, p *entity.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *MasterRepository) FindProduct(ctx context.Context, id string) (*entity.Product, error) {
	var p entity.Product
	if err := first(r.db.WithContext(ctx).Preload("Principal").Where("id = ?", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MasterRepository) UpdateProduct(ctx context.Context, p *entity.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *MasterRepository) ListProducts(ctx context.Context, page, pageSize int, principalID, search string) ([]entity.Product, int64, error) {
	var items []entity.Product
	query := r.db.WithContext(ctx).Model(&entity.Product{})
	if principalID != "" {
		query = query.Where("principal_id = ?", principalID)
	}
	if search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ? OR generic_name ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	total, err := paginate(query, page, pageSize, &items)
	return items, total, err
}

// === 内部辅助 ===

func first(query *gorm.DB, dest interface{}) error {
	err := query.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func paginate(query *gorm.DB, page, pageSize int, dest interface{}) (int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(dest).Error
	return total, err
}
