package service

import (
	"context"

	"go.uber.org/zap"
)

// ZapAuditSink 默认审计落点：结构化日志
type ZapAuditSink struct {
	logger *zap.Logger
}

// NewZapAuditSink 创建日志审计落点
func NewZapAuditSink(logger *zap.Logger) *ZapAuditSink {
	return &ZapAuditSink{logger: logger}
}

func (s *ZapAuditSink) Record(ctx context.Context, action, entityType, entityID, actingUser string, changes map[string]interface{}) error {
	s.logger.Info("workflow audit",
		zap.String("action", action),
		zap.String("entity_type", entityType),
		zap.String("entity_id", entityID),
		zap.String("action_by", actingUser),
		zap.Any("changes", changes),
	)
	return nil
}
