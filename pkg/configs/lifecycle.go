package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTrashRetentionDays   = 30              // 回收站保留天数
	DefaultNearExpiryDays       = 5               // 距离过期多少天内视为即将过期
	DefaultAutosaveQuietPeriod  = time.Second     // 自动保存静默期
	DefaultAutosaveWriteTimeout = 5 * time.Second // 单次自动保存写入超时
	DefaultCleanupCron          = "0 3 * * *"     // 每天 03:00 清理过期回收站
	DefaultDuePublishCron       = "* * * * *"     // 每分钟检查到期的定时发布
	DefaultDuePublishBatch      = 50              // 单次最多处理的到期帖子
	DefaultMaxContentBytes      = 40000           // 帖子正文最大字节数
	DefaultStatsCacheTTL        = 30 * time.Second
	DefaultUnknownProjectName   = "Unknown Project"
)

// LifecycleConfig 内容生命周期配置：回收站、自动保存与发布状态机.
type LifecycleConfig struct {
	TrashRetentionDays   int           `mapstructure:"trash_retention_days"   rule:"min=1"`
	NearExpiryDays       int           `mapstructure:"near_expiry_days"       rule:"min=0"`
	AutosaveQuietPeriod  time.Duration `mapstructure:"autosave_quiet_period"`
	AutosaveWriteTimeout time.Duration `mapstructure:"autosave_write_timeout"`
	CleanupCron          string        `mapstructure:"cleanup_cron"           rule:"required"`
	DuePublishCron       string        `mapstructure:"due_publish_cron"       rule:"required"`
	DuePublishBatch      int           `mapstructure:"due_publish_batch"      rule:"min=1"`
	MaxContentBytes      int           `mapstructure:"max_content_bytes"      rule:"min=1"`
	StatsCacheTTL        time.Duration `mapstructure:"stats_cache_ttl"`
	UnknownProjectName   string        `mapstructure:"unknown_project_name"`
	// ClearErrorOnSuccess 重试成功后是否清空上一次失败留下的 error_message
	ClearErrorOnSuccess bool `mapstructure:"clear_error_on_success"`
}

// TrashTTL 回收站条目保留时长.
func (c *LifecycleConfig) TrashTTL() time.Duration {
	days := c.TrashRetentionDays
	if days <= 0 {
		days = DefaultTrashRetentionDays
	}

	return time.Duration(days) * 24 * time.Hour
}

// NearExpiryAgeDays 条目年龄达到该天数即视为即将过期.
func (c *LifecycleConfig) NearExpiryAgeDays() int {
	days := c.TrashRetentionDays
	if days <= 0 {
		days = DefaultTrashRetentionDays
	}

	window := c.NearExpiryDays
	if window <= 0 {
		window = DefaultNearExpiryDays
	}

	return days - window
}

// QuietPeriod 自动保存静默期，未配置时使用默认值.
func (c *LifecycleConfig) QuietPeriod() time.Duration {
	if c.AutosaveQuietPeriod <= 0 {
		return DefaultAutosaveQuietPeriod
	}

	return c.AutosaveQuietPeriod
}

// ContentLimit 帖子正文最大字节数.
func (c *LifecycleConfig) ContentLimit() int {
	if c.MaxContentBytes <= 0 {
		return DefaultMaxContentBytes
	}

	return c.MaxContentBytes
}

// PlaceholderProjectName 父项目缺失时使用的占位名称.
func (c *LifecycleConfig) PlaceholderProjectName() string {
	if c.UnknownProjectName == "" {
		return DefaultUnknownProjectName
	}

	return c.UnknownProjectName
}

// BatchSize 到期发布检查的批量大小.
func (c *LifecycleConfig) BatchSize() int {
	if c.DuePublishBatch <= 0 {
		return DefaultDuePublishBatch
	}

	return c.DuePublishBatch
}

func (c *LifecycleConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("lifecycle.trash_retention_days", DefaultTrashRetentionDays)
	v.SetDefault("lifecycle.near_expiry_days", DefaultNearExpiryDays)
	v.SetDefault("lifecycle.autosave_quiet_period", DefaultAutosaveQuietPeriod)
	v.SetDefault("lifecycle.autosave_write_timeout", DefaultAutosaveWriteTimeout)
	v.SetDefault("lifecycle.cleanup_cron", DefaultCleanupCron)
	v.SetDefault("lifecycle.due_publish_cron", DefaultDuePublishCron)
	v.SetDefault("lifecycle.due_publish_batch", DefaultDuePublishBatch)
	v.SetDefault("lifecycle.max_content_bytes", DefaultMaxContentBytes)
	v.SetDefault("lifecycle.stats_cache_ttl", DefaultStatsCacheTTL)
	v.SetDefault("lifecycle.unknown_project_name", DefaultUnknownProjectName)
	v.SetDefault("lifecycle.clear_error_on_success", false)
}
