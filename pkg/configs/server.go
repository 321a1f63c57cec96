package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort            = 8080      // 监听端口
	DefaultHost            = "0.0.0.0" // 监听地址
	DefaultReloadConfig    = true      // 是否启用配置热重载
	DefaultDebug           = false     // 是否启用调试模式
	DefaultTimeout         = 30        // 读请求头超时，单位秒
	DefaultShutdownTimeout = 15        // 优雅退出等待时间，单位秒
)

type (
	// ServerConfig HTTP 服务配置.
	ServerConfig struct {
		Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
		Host         string `mapstructure:"host"          rule:"ip"`
		ReloadConfig bool   `mapstructure:"reload_config"`
		Debug        bool   `mapstructure:"debug"`
		Timeout      int    `mapstructure:"timeout"       rule:"min=1,max=300"`
		// ShutdownTimeout 收到退出信号后等待进行中请求、自动保存写入的时间（秒）
		ShutdownTimeout int `mapstructure:"shutdown_timeout" rule:"min=1,max=300"`
		// CORSOrigins 允许跨域的来源，为空时允许全部
		CORSOrigins []string `mapstructure:"cors_origins" rule:"dive,url"`
		// AllowQueryUser 允许用 ?user= 指定当前用户（仅用于本地调试，生产中身份来自反向代理请求头）
		AllowQueryUser bool `mapstructure:"allow_query_user"`
	}
)

// Addr 监听地址 host:port.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GetTimeoutDuration 返回超时时间作为time.Duration.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetShutdownTimeout 优雅退出等待时间.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}

// setDefaults 设置服务器配置的默认值.
func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.allow_query_user", false)
	v.SetDefault("server.cors_origins", []string{})
}
