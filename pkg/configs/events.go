package configs

import "github.com/spf13/viper"

// EventsConfig 控制生命周期事件发布的开关（全局与分领域）.
type EventsConfig struct {
	Enabled bool              `mapstructure:"enabled"` // 总开关
	Trash   TrashEventsConfig `mapstructure:"trash"`
	Post    PostEventsConfig  `mapstructure:"post"`
}

// TrashEventsConfig 回收站领域的事件开关.
type TrashEventsConfig struct {
	Trashed  bool `mapstructure:"trashed"`
	Restored bool `mapstructure:"restored"`
	Purged   bool `mapstructure:"purged"`
	Swept    bool `mapstructure:"swept"`
}

// PostEventsConfig 发布状态机的事件开关.
type PostEventsConfig struct {
	Scheduled bool `mapstructure:"scheduled"`
	Posted    bool `mapstructure:"posted"`
	Failed    bool `mapstructure:"failed"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：MQ 关闭时即使启用也不会投递
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.trash.trashed", true)
	v.SetDefault("events.trash.restored", true)
	v.SetDefault("events.trash.purged", true)
	v.SetDefault("events.trash.swept", true)

	v.SetDefault("events.post.scheduled", false)
	v.SetDefault("events.post.posted", true)
	v.SetDefault("events.post.failed", true)
}
