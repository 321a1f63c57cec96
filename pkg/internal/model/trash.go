package model

import "time"

// AssociatedFile 项目快照中记录的文件摘要，仅用于展示.
type AssociatedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// TrashedProject 已删除项目的快照.
type TrashedProject struct {
	ID            string `gorm:"primaryKey;size:26" json:"id"`
	OriginalID    string `gorm:"size:26;index"      json:"original_id"`
	ProjectFields `gorm:"embedded"`

	DeletedAt       time.Time        `gorm:"index"                      json:"deleted_at"`
	DeletedBy       string           `gorm:"size:255;index"             json:"deleted_by"`
	AssociatedFiles []AssociatedFile `gorm:"serializer:json;type:text" json:"associated_files"`
}

// TableName 表名.
func (TrashedProject) TableName() string { return "trashed_projects" }

// TrashedFile 已删除文件的快照.
type TrashedFile struct {
	ID         string `gorm:"primaryKey;size:26" json:"id"`
	OriginalID string `gorm:"size:26;index"      json:"original_id"`
	FileFields `gorm:"embedded"`

	DeletedAt         time.Time `gorm:"index"          json:"deleted_at"`
	DeletedBy         string    `gorm:"size:255;index" json:"deleted_by"`
	ParentProjectName string    `gorm:"size:255"       json:"parent_project_name"`
}

// TableName 表名.
func (TrashedFile) TableName() string { return "trashed_files" }
