package types

import (
	"github.com/yeisme/postvault/pkg/internal/model"
)

// CreateFileRequest 在项目下创建文件（帖子草稿）.
type CreateFileRequest struct {
	ProjectID        string                 `json:"project_id"        rule:"required"`
	Name             string                 `json:"name"              rule:"notblank,max=512"`
	Type             string                 `json:"type"              rule:"omitempty,max=64"`
	Extension        string                 `json:"extension"         rule:"omitempty,max=32"`
	Content          string                 `json:"content"`
	Path             string                 `json:"path"              rule:"omitempty,max=1024"`
	MimeType         string                 `json:"mime_type"         rule:"omitempty,max=255"`
	Platform         string                 `json:"platform"          rule:"omitempty,max=64"`
	Title            string                 `json:"title"             rule:"omitempty,max=512"`
	PlatformSettings model.PlatformSettings `json:"platform_settings"`
}

// FileListResponse 文件列表.
type FileListResponse struct {
	Total int          `json:"total"`
	Items []model.File `json:"items"`
}

// FileDraft 一次编辑产生的草稿字段，nil 表示该字段未改动.
type FileDraft struct {
	Content          *string                 `json:"content,omitempty"`
	Title            *string                 `json:"title,omitempty"`
	PlatformSettings *model.PlatformSettings `json:"platform_settings,omitempty"`
}

// Merge 以 next 中非 nil 的字段覆盖当前草稿（逐字段后写覆盖）.
func (d FileDraft) Merge(next FileDraft) FileDraft {
	if next.Content != nil {
		d.Content = next.Content
	}

	if next.Title != nil {
		d.Title = next.Title
	}

	if next.PlatformSettings != nil {
		d.PlatformSettings = next.PlatformSettings
	}

	return d
}

// Empty 草稿没有任何改动.
func (d FileDraft) Empty() bool {
	return d.Content == nil && d.Title == nil && d.PlatformSettings == nil
}
