package service

import (
	"errors"
	"fmt"
	"strings"
)

// 迁移拒绝原因码
const (
	ReasonInvalidAction   = "invalid_action"
	ReasonNoRoute         = "no_route"
	ReasonMissingField    = "missing_field"
	ReasonConditionNotMet = "condition_not_met"
)

// ValidationError 输入校验错误：收集所有违规字段，一次性上报
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError 创建单字段校验错误
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ValidationBuilder 校验收集器：不在首个违规处短路
type ValidationBuilder struct {
	fields map[string]string
}

func NewValidationBuilder() *ValidationBuilder {
	return &ValidationBuilder{fields: map[string]string{}}
}

func (b *ValidationBuilder) Add(field, msg string) {
	if _, ok := b.fields[field]; !ok {
		b.fields[field] = msg
	}
}

// Err 有违规时返回 *ValidationError，否则返回 nil
func (b *ValidationBuilder) Err() error {
	if len(b.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: b.fields}
}

// NotFoundError 引用的阶段/迁移/实体/用户不存在
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ConflictError 删除/修改被存活引用阻止
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ForbiddenError 已认证但缺少阶段级授权
type ForbiddenError struct {
	UserID  string
	StageID string
	Action  string
	Missing []string // 缺失的权限ID（有则给出，便于UI提示）
}

func (e *ForbiddenError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("user %s lacks stage permissions %v for action %s", e.UserID, e.Missing, e.Action)
	}
	return fmt.Sprintf("user %s is not allowed to perform %s on stage %s", e.UserID, e.Action, e.StageID)
}

// TransitionRejectedError 迁移在当前状态下不合法
// 统一的"transition rejected"类，Reason 区分具体原因
type TransitionRejectedError struct {
	Reason  string
	Message string
	Fields  []string // missing_field 时给出缺失字段名
}

func (e *TransitionRejectedError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("transition rejected (%s): %s [%s]", e.Reason, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("transition rejected (%s): %s", e.Reason, e.Message)
}

// ConcurrentModificationError 乐观锁冲突，调用方可安全重试
type ConcurrentModificationError struct {
	EntityType string
	EntityID   string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification on %s %s, retry", e.EntityType, e.EntityID)
}

// WorkflowLoopError 自动迁移链超出深度上限（配置错误，需运维介入）
type WorkflowLoopError struct {
	EntityType string
	EntityID   string
	Depth      int
}

func (e *WorkflowLoopError) Error() string {
	return fmt.Sprintf("auto-transition chain on %s %s exceeded depth %d", e.EntityType, e.EntityID, e.Depth)
}

// IsRetryable 该错误是否适合调用方自动重试
func IsRetryable(err error) bool {
	var cme *ConcurrentModificationError
	return errors.As(err, &cme)
}
