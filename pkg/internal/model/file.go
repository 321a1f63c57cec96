package model

import (
	"time"
)

// PublishStatus 帖子发布状态.
type PublishStatus string

const (
	StatusDraft     PublishStatus = "draft"
	StatusScheduled PublishStatus = "scheduled"
	StatusPosting   PublishStatus = "posting"
	StatusPosted    PublishStatus = "posted"
	StatusFailed    PublishStatus = "failed"
)

// PostKind 帖子类型.
type PostKind string

const (
	KindSelf PostKind = "self" // 正文帖，需要标题与正文
	KindLink PostKind = "link" // 链接帖，需要标题与 URL
)

// PlatformSettings 平台相关的发布参数，以 JSON 存储.
type PlatformSettings struct {
	Kind   PostKind          `json:"kind,omitempty"`
	URL    string            `json:"url,omitempty"`
	Target string            `json:"target,omitempty"` // 目标频道/社区
	Tags   []string          `json:"tags,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

// EffectiveKind 未指定类型时按正文帖处理.
func (s PlatformSettings) EffectiveKind() PostKind {
	if s.Kind == "" {
		return KindSelf
	}

	return s.Kind
}

// FileFields 文件（帖子）的业务字段，在线文件与回收站快照共用.
type FileFields struct {
	Name      string `gorm:"size:512;index"  json:"name"`
	Type      string `gorm:"size:64"         json:"type"`
	Extension string `gorm:"size:32"         json:"extension"`
	Content   string `gorm:"type:text"       json:"content"`
	Size      int64  `json:"size"`
	// ProjectID 所属项目；回收站快照中保存的是删除时的原项目引用
	ProjectID string `gorm:"size:26;index"  json:"project_id"`
	Owner     string `gorm:"size:255;index" json:"owner"`
	Path      string `gorm:"size:1024"      json:"path"`
	MimeType  string `gorm:"size:255"       json:"mime_type"`

	Platform         string           `gorm:"size:64;index"           json:"platform"`
	Title            string           `gorm:"size:512"                json:"title"`
	Status           PublishStatus    `gorm:"size:16;index"           json:"status"`
	ScheduledAt      *time.Time       `gorm:"index"                   json:"scheduled_at,omitempty"`
	PlatformSettings PlatformSettings `gorm:"serializer:json;type:text" json:"platform_settings"`
	PostID           string           `gorm:"size:255"                json:"post_id,omitempty"`
	PostURL          string           `gorm:"size:1024"               json:"post_url,omitempty"`
	ErrorMessage     string           `gorm:"type:text"               json:"error_message,omitempty"`

	// 时间戳由服务层按注入的时钟写入
	LastModified time.Time `json:"last_modified"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// File 在线文件，同时也是一篇可发布的帖子.
type File struct {
	ID         string `gorm:"primaryKey;size:26" json:"id"`
	FileFields `gorm:"embedded"`
}

// TableName 表名.
func (File) TableName() string { return "files" }
