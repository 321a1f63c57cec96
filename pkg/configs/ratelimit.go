package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRateLimitEnabled     = false
	DefaultRateLimitRPS         = 50.0
	DefaultRateLimitBurst       = 100
	DefaultRateLimitKey         = "user"
	DefaultRateLimitIdleSeconds = 600
)

// RateLimitConfig 速率限制配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"min=0"`
	Burst   int     `mapstructure:"burst" rule:"min=0"`
	// Key 限流维度：global、ip、user（身份中间件之后）、header:Header-Name
	Key string `mapstructure:"key"`
	// IdleSeconds 某个键空闲多久后释放其令牌桶
	IdleSeconds int `mapstructure:"idle_seconds" rule:"min=0"`
}

// IdleTimeout 令牌桶空闲释放时间，未配置时使用默认值.
func (c *RateLimitConfig) IdleTimeout() time.Duration {
	if c.IdleSeconds <= 0 {
		return DefaultRateLimitIdleSeconds * time.Second
	}

	return time.Duration(c.IdleSeconds) * time.Second
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.idle_seconds", DefaultRateLimitIdleSeconds)
}
