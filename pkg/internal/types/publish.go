package types

import "github.com/yeisme/postvault/pkg/internal/model"

// SchedulePostRequest 设定定时发布，可同时更新标题、正文与平台参数.
type SchedulePostRequest struct {
	ScheduledAt      string                  `json:"scheduled_at"      rule:"required"`
	Platform         *string                 `json:"platform"          rule:"omitempty,max=64"`
	Title            *string                 `json:"title"             rule:"omitempty,max=512"`
	Content          *string                 `json:"content"`
	PlatformSettings *model.PlatformSettings `json:"platform_settings"`
}

// DueResult 一次到期检查的处理结果.
type DueResult struct {
	Scanned int `json:"scanned"`
	Posted  int `json:"posted"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// ReconcileRequest 手动对账请求：超过阈值仍处于 posting 的帖子标记为失败.
type ReconcileRequest struct {
	OlderThanMinutes int `json:"older_than_minutes" rule:"min=1"`
}
