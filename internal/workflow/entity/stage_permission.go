package entity

import "time"

// StagePermission 阶段授权：用户在某阶段上被授予的权限子集，可带有效期
// (user_id, stage_id) 唯一，upsert语义；撤销用 is_active=false，不物理删除
type StagePermission struct {
	ID      string `json:"id" gorm:"primaryKey;size:36"`
	UserID  string `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_stage_perm_user_stage"`
	StageID string `json:"stage_id" gorm:"size:36;not null;uniqueIndex:idx_stage_perm_user_stage"`

	// 授予的权限ID子集；空集合法（仅挂靠阶段，能力依赖别处的角色权限）
	Permissions StringArray `json:"permissions" gorm:"type:jsonb;not null;default:'[]'"`

	ExpiryDate *time.Time `json:"expiry_date"` // nil = 永不过期
	AssignedBy string     `json:"assigned_by" gorm:"size:36;not null"`
	IsActive   bool       `json:"is_active" gorm:"default:true"`
	Remarks    string     `json:"remarks" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	// 关联
	Stage *WorkflowStage `json:"stage,omitempty" gorm:"foreignKey:StageID"`
}

func (StagePermission) TableName() string {
	return "workflow_stage_permissions"
}

// IsExpired 是否已过期（无有效期则永不过期）
func (p *StagePermission) IsExpired() bool {
	if p.ExpiryDate == nil {
		return false
	}
	return time.Now().After(*p.ExpiryDate)
}

// IsValid 是否有效：激活且未过期
func (p *StagePermission) IsValid() bool {
	return p.IsActive && !p.IsExpired()
}
