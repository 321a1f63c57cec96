// Package model 定义持久化到数据库的实体：项目、文件（帖子）、回收站快照与发布幂等记录.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectFields 项目的业务字段，在线项目与回收站快照共用.
type ProjectFields struct {
	Name          string          `gorm:"size:255;index"    json:"name"`
	Description   string          `gorm:"type:text"         json:"description"`
	Status        string          `gorm:"size:32;index"     json:"status"`
	Budget        decimal.Decimal `gorm:"type:decimal(14,2)" json:"budget"`
	ProjectNumber string          `gorm:"size:64;index"     json:"project_number"`
	Owner         string          `gorm:"size:255;index"    json:"owner"`
	CreatedAt     time.Time       `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// Project 在线项目.
type Project struct {
	ID            string `gorm:"primaryKey;size:26" json:"id"`
	ProjectFields `gorm:"embedded"`
}

// TableName 表名.
func (Project) TableName() string { return "projects" }
