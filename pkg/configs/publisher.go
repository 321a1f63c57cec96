package configs

import (
	"time"

	"github.com/spf13/viper"
)

// PublisherType 发布适配器类型.
type PublisherType string

const (
	PublisherWebhook PublisherType = "webhook" // 通过 HTTP 回调投递到外部平台
	PublisherArchive PublisherType = "archive" // 写入对象存储归档

	DefaultPublisherTimeout = 15 * time.Second
	DefaultPublisherRPS     = 1.0
	DefaultPublisherBurst   = 3
)

// PublisherConfig 发布适配器配置，key 为平台名称.
type PublisherConfig struct {
	Platforms map[string]PlatformConfig `mapstructure:"platforms"`
	Breaker   CircuitBreakerConfig      `mapstructure:"breaker"`
}

// PlatformConfig 单个平台的发布配置.
type PlatformConfig struct {
	Type    PublisherType     `mapstructure:"type"    rule:"oneof=webhook archive"`
	URL     string            `mapstructure:"url"     rule:"omitempty,url"`
	Token   string            `mapstructure:"token"`
	Prefix  string            `mapstructure:"prefix"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
	RPS     float64           `mapstructure:"rps"     rule:"min=0"`
	Burst   int               `mapstructure:"burst"   rule:"min=0"`
}

// GetTimeout 返回请求超时.
func (c *PlatformConfig) GetTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultPublisherTimeout
	}

	return c.Timeout
}

func (c *PublisherConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("publisher.platforms", map[string]any{
		"archive": map[string]any{
			"type":   string(PublisherArchive),
			"prefix": "posts",
			"rps":    DefaultPublisherRPS,
			"burst":  DefaultPublisherBurst,
		},
	})

	v.SetDefault("publisher.breaker.enabled", true)
	v.SetDefault("publisher.breaker.failure_rate", DefaultCBFailureRate)
	v.SetDefault("publisher.breaker.min_requests", 5)
	v.SetDefault("publisher.breaker.interval_seconds", DefaultCBIntervalSeconds)
	v.SetDefault("publisher.breaker.timeout_seconds", DefaultCBTimeoutSeconds)
	v.SetDefault("publisher.breaker.max_requests_in_half", 1)
}
