package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/dms/entity"
	"gorm.io/gorm"
)

// stageTables 工作流实体类型 → 表名
// 新接入引擎的实体在此登记即可获得阶段读写与CAS能力
var stageTables = map[string]string{
	entity.EntityTypePurchaseOrder:     entity.PurchaseOrder{}.TableName(),
	entity.EntityTypeInvoiceReceiving:  entity.InvoiceReceiving{}.TableName(),
	entity.EntityTypeQualityControl:    entity.QualityControl{}.TableName(),
	entity.EntityTypeWarehouseApproval: entity.WarehouseApproval{}.TableName(),
}

// EntityStageRepository 工作流实体阶段适配器（service.EntityStageStore 实现）
// 同一实体上的并发迁移靠 current_stage_id 条件更新串行化
type EntityStageRepository struct {
	db *gorm.DB
}

func NewEntityStageRepository(db *gorm.DB) *EntityStageRepository {
	return &EntityStageRepository{db: db}
}

func tableFor(entityType string) (string, error) {
	table, ok := stageTables[entityType]
	if !ok {
		return "", fmt.Errorf("unknown workflow entity type: %s", entityType)
	}
	return table, nil
}

// CurrentStage 读取实体当前阶段
func (r *EntityStageRepository) CurrentStage(ctx context.Context, entityType, entityID string) (string, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return "", err
	}
	var stageID string
	err = r.db.WithContext(ctx).Table(table).
		Select("current_stage_id").
		Where("id = ?", entityID).
		Take(&stageID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrNotFound
		}
		return "", err
	}
	return stageID, nil
}

// CompareAndSetStage 条件写回：仅当阶段仍为 fromStageID 时推进
// 返回 false 表示阶段已被并发推进（丢失更新防护）
func (r *EntityStageRepository) CompareAndSetStage(ctx context.Context, entityType, entityID, fromStageID, toStageID string) (bool, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Table(table).
		Where("id = ? AND current_stage_id = ?", entityID, fromStageID).
		Updates(map[string]interface{}{
			"current_stage_id": toStageID,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Snapshot 实体字段快照（条件求值域）
func (r *EntityStageRepository) Snapshot(ctx context.Context, entityType, entityID string) (map[string]interface{}, error) {
	table, err := tableFor(entityType)
	if err != nil {
		return nil, err
	}
	snapshot := map[string]interface{}{}
	err = r.db.WithContext(ctx).Table(table).
		Where("id = ?", entityID).
		Take(&snapshot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

// CountByStage 各业务表中停在该阶段的实体总数
func (r *EntityStageRepository) CountByStage(ctx context.Context, stageID string) (int64, error) {
	var total int64
	for _, table := range stageTables {
		var count int64
		err := r.db.WithContext(ctx).Table(table).
			Where("current_stage_id = ?", stageID).
			Count(&count).Error
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}
