// Package configs 管理应用程序配置，包括数据库、KV、消息队列、对象存储以及内容生命周期的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing lifecycle config:
//
//	lc := configs.GetConfig().Lifecycle
//	fmt.Println("Trash TTL:", lc.TrashTTL())
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AppVersion 应用版本号，构建时可通过 -ldflags 覆盖.
var AppVersion = "0.1.0"

// EnvPrefix 环境变量前缀.
const EnvPrefix = "POSTVAULT"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 其它服务器配置，日志级别、服务器端口等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 指标
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 生命周期事件开关
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig HTTP 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig HTTP 熔断
		Lifecycle      LifecycleConfig      `mapstructure:"lifecycle"`       // LifecycleConfig 回收站、自动保存、发布
		Publisher      PublisherConfig      `mapstructure:"publisher"`       // PublisherConfig 各平台发布适配器
	}
)

var (
	globalConfig AppConfig
	appViper     *viper.Viper

	reloadMu    sync.Mutex
	reloadHooks []func(*AppConfig)
)

// 未显式指定文件时按顺序查找的扩展名.
var configExts = []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

// InitConfig 从 path（文件或目录）加载配置，叠加默认值与 POSTVAULT_* 环境变量.
// 目录下找不到 config.* 时只使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	if file := locateConfig(path); file != "" {
		v.SetConfigFile(file)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	globalConfig = cfg
	appViper = v

	if cfg.Server.ReloadConfig && v.ConfigFileUsed() != "" {
		watch(v)
	}

	return nil
}

// locateConfig path 为文件时直接使用，为目录时依次查找 path 与 path/configs 下的 config.<ext>.
func locateConfig(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path
	}

	for _, dir := range []string{path, filepath.Join(path, "configs")} {
		for _, ext := range configExts {
			candidate := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}

	return ""
}

// LoadDefaults 仅使用默认值填充全局配置，命令行工具与测试使用.
func LoadDefaults() *AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err == nil {
		globalConfig = cfg
	}

	appViper = v

	return &globalConfig
}

// OnReload 注册配置热重载后的回调，回调在 viper 的监听 goroutine 中执行.
func OnReload(fn func(*AppConfig)) {
	reloadMu.Lock()
	defer reloadMu.Unlock()

	reloadHooks = append(reloadHooks, fn)
}

// watch 监听配置文件变化；解析失败时保留旧配置.
func watch(v *viper.Viper) {
	v.OnConfigChange(func(e fsnotify.Event) {
		var next AppConfig
		if err := v.Unmarshal(&next); err != nil {
			fmt.Fprintf(os.Stderr, "config reload from %s failed, keeping previous: %v\n", e.Name, err)
			return
		}

		reloadMu.Lock()
		defer reloadMu.Unlock()

		globalConfig = next

		for _, fn := range reloadHooks {
			fn(&globalConfig)
		}
	})
	v.WatchConfig()
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	defaults := []interface{ setDefaults(*viper.Viper) }{
		&ServerConfig{},
		&DBConfig{},
		&S3Config{},
		&MQConfig{},
		&KVConfig{},
		&LogConfig{},
		&TracingConfig{},
		&MetricsConfig{},
		&EventsConfig{},
		&RateLimitConfig{},
		&CircuitBreakerConfig{},
		&LifecycleConfig{},
		&PublisherConfig{},
	}

	for _, d := range defaults {
		d.setDefaults(v)
	}
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	return &globalConfig
}

// GetViper 返回最近一次加载使用的 viper 实例.
func GetViper() *viper.Viper {
	return appViper
}
