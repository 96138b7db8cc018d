package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示由身份提供方 Webhook 同步过来的账号。
// 账号只增改不删；DisplayID 是对外公开作品集的短标识。
type User struct {
	gorm.Model
	ClerkID               string   `gorm:"uniqueIndex;size:64"`
	Email                 string   `gorm:"size:255"`
	Name                  string   `gorm:"size:255"`
	AvatarURL             string   `gorm:"size:512"`
	DisplayID             string   `gorm:"uniqueIndex;size:64"`
	HasGeneratedPortfolio bool     `gorm:"default:false"`
	ActiveResumeID        *uint    `gorm:"index"`
	Resumes               []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// 简历处理状态机：uploaded → processing → processed | error。
// 终态不可回退；重新上传会产生新记录而不是改写旧记录。
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusError      = "error"
)

// Resume 表示一次简历上传及其提取出的作品集文档。
// Fields 是整份结构化文档（jsonb）；Version 供补丁层做乐观并发检查。
type Resume struct {
	gorm.Model
	UserID     uint           `gorm:"index"`
	User       User           `gorm:"constraint:OnDelete:CASCADE"`
	FileName   string         `gorm:"size:255"`
	FileSize   int64
	FileType   string         `gorm:"size:128"`
	ObjectKey  string         `gorm:"size:512"`
	Status     string         `gorm:"size:32"`
	ResumeText string         `gorm:"type:text"`
	Fields     datatypes.JSON `gorm:"type:jsonb"`
	Version    int64          `gorm:"default:0"`
}
