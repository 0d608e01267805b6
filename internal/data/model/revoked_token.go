package model

import "time"

// RevokedToken 撤销记录，过期后由定时任务物理删除
type RevokedToken struct {
	BaseModel
	JTI       string    `gorm:"column:jti;size:64;uniqueIndex;not null"`
	Subject   string    `gorm:"column:subject;size:64;index"`
	Reason    string    `gorm:"column:reason;size:32;not null"`
	RevokedAt time.Time `gorm:"column:revoked_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null"`
}

func (RevokedToken) TableName() string { return "revoked_tokens" }
