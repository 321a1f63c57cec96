package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogEnableFile = true
	DefaultLogFilePath   = "logs/postvault.log"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 7
	DefaultLogMaxAge     = 28 // 天
	DefaultLogCompress   = true
	DefaultLogLevel      = "info"
	DefaultLogConsole    = "console"
)

// LogConfig 日志配置，文件输出由 lumberjack 轮转.
type LogConfig struct {
	Level      string `mapstructure:"level"        rule:"oneof=trace debug info warn error fatal panic disabled"`
	EnableFile bool   `mapstructure:"enable_file"`
	FilePath   string `mapstructure:"file_path"    rule:"required_if=EnableFile true"`
	MaxSize    int    `mapstructure:"max_size_mb"  rule:"min=0"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"min=0"`
	MaxAge     int    `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool   `mapstructure:"compress"`
	// Console 标准输出格式：console（人类可读）或 json（交给日志采集）
	Console string `mapstructure:"console" rule:"oneof=console json"`
}

// JSONConsole 标准输出是否使用 JSON.
func (l *LogConfig) JSONConsole() bool {
	return l.Console == "json"
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
	v.SetDefault("log.console", DefaultLogConsole)
}
