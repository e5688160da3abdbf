package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Name         string    `gorm:"size:128"`
	Email        string    `gorm:"uniqueIndex;size:255"`
	PasswordHash string    `gorm:"size:255"`
	Profiles     []Profile `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile 表示用户创建的档案文档。
// 各分区以 JSONB 存储，规范形态由 internal/profile 在存取边界保证。
// UserID 是唯一的授权键：写路径必须校验请求者与其相等。
type Profile struct {
	gorm.Model
	UserID         uint           `gorm:"index"`
	User           User           `gorm:"constraint:OnDelete:CASCADE"`
	Personal       datatypes.JSON `gorm:"type:jsonb"`
	Education      datatypes.JSON `gorm:"type:jsonb"`
	Experience     datatypes.JSON `gorm:"type:jsonb"`
	Projects       datatypes.JSON `gorm:"type:jsonb"`
	Skills         datatypes.JSON `gorm:"type:jsonb"`
	Certifications datatypes.JSON `gorm:"type:jsonb"`
	CustomSections datatypes.JSON `gorm:"type:jsonb"`
	SectionOrder   datatypes.JSON `gorm:"type:jsonb"`
	ExportKey      string         `gorm:"size:512"`
	ExportStatus   string         `gorm:"size:32"`
}
