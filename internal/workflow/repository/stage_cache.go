package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/pharma-dms/internal/workflow/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	stageCacheKeyPrefix = "wf:stage:"
	stageCacheCodeIndex = "wf:stage:code:"
	stageCacheTTL       = 5 * time.Minute
)

// CachedStageStore 阶段登记表的redis读穿缓存
// 阶段是读多写少的参考数据：命中则免回源，任何写操作整体失效
// redis 不可用时静默回源，不影响正确性
type CachedStageStore struct {
	*StageRepository
	rdb    *redis.Client
	logger *zap.Logger
}

// NewCachedStageStore 包装阶段仓库
func NewCachedStageStore(inner *StageRepository, rdb *redis.Client, logger *zap.Logger) *CachedStageStore {
	return &CachedStageStore{StageRepository: inner, rdb: rdb, logger: logger}
}

// FindByID 读穿缓存
func (c *CachedStageStore) FindByID(ctx context.Context, id string) (*entity.WorkflowStage, error) {
	if cached := c.get(ctx, stageCacheKeyPrefix+id); cached != nil {
		return cached, nil
	}
	stage, err := c.StageRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, stageCacheKeyPrefix+stage.ID, stage)
	return stage, nil
}

// FindByCode 读穿缓存（code -> id 间接索引）
func (c *CachedStageStore) FindByCode(ctx context.Context, code string) (*entity.WorkflowStage, error) {
	if c.rdb != nil {
		if id, err := c.rdb.Get(ctx, stageCacheCodeIndex+code).Result(); err == nil {
			if cached := c.get(ctx, stageCacheKeyPrefix+id); cached != nil {
				return cached, nil
			}
		}
	}
	stage, err := c.StageRepository.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.put(ctx, stageCacheKeyPrefix+stage.ID, stage)
	if c.rdb != nil {
		c.rdb.Set(ctx, stageCacheCodeIndex+stage.Code, stage.ID, stageCacheTTL)
	}
	return stage, nil
}

// Create 写操作使缓存失效
func (c *CachedStageStore) Create(ctx context.Context, stage *entity.WorkflowStage) error {
	if err := c.StageRepository.Create(ctx, stage); err != nil {
		return err
	}
	c.invalidate(ctx, stage)
	return nil
}

// Update 写操作使缓存失效
func (c *CachedStageStore) Update(ctx context.Context, stage *entity.WorkflowStage) error {
	if err := c.StageRepository.Update(ctx, stage); err != nil {
		return err
	}
	c.invalidate(ctx, stage)
	return nil
}

// Delete 写操作使缓存失效
func (c *CachedStageStore) Delete(ctx context.Context, id string) error {
	if err := c.StageRepository.Delete(ctx, id); err != nil {
		return err
	}
	if c.rdb != nil {
		c.rdb.Del(ctx, stageCacheKeyPrefix+id)
	}
	return nil
}

// UpdateSequences 批量改序后逐项失效
func (c *CachedStageStore) UpdateSequences(ctx context.Context, sequences map[string]int) error {
	if err := c.StageRepository.UpdateSequences(ctx, sequences); err != nil {
		return err
	}
	if c.rdb != nil {
		for id := range sequences {
			c.rdb.Del(ctx, stageCacheKeyPrefix+id)
		}
	}
	return nil
}

func (c *CachedStageStore) get(ctx context.Context, key string) *entity.WorkflowStage {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var stage entity.WorkflowStage
	if err := json.Unmarshal(data, &stage); err != nil {
		c.rdb.Del(ctx, key)
		return nil
	}
	return &stage
}

func (c *CachedStageStore) put(ctx context.Context, key string, stage *entity.WorkflowStage) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(stage)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, stageCacheTTL).Err(); err != nil {
		c.logger.Debug("stage cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedStageStore) invalidate(ctx context.Context, stage *entity.WorkflowStage) {
	if c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, stageCacheKeyPrefix+stage.ID, stageCacheCodeIndex+stage.Code)
}
