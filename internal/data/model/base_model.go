package model

import (
	"time"

	"github.com/sober-studio/blog-api-go-kratos/internal/pkg/idgen"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        int64          `gorm:"column:id;primaryKey"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

var globalIDGen idgen.IDGenerator

func SetIDGenerator(g idgen.IDGenerator) { globalIDGen = g }

// BeforeCreate 使用全局 ID 生成器填充主键
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID != 0 || globalIDGen == nil {
		return nil
	}
	id, err := globalIDGen.NextID()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}
