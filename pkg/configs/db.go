package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DBType 数据库类型，同一种数据库允许多个别名.
type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgre"
	Pg         DBType = "pg"
	MySQL      DBType = "mysql"
	MariaDB    DBType = "mariadb"
	SQLite     DBType = "sqlite"
)

const (
	DefaultDBLogLevel      = "warn"
	DefaultSlowThresholdMS = 200
)

// DBConfig 实体存储（项目、文件、回收站快照、提交记录）的数据库配置.
type DBConfig struct {
	Type         DBType `mapstructure:"type"           rule:"oneof=postgresql postgre pg mysql mariadb sqlite"`
	Host         string `mapstructure:"host"           rule:"required_unless=Type sqlite"`
	Port         int    `mapstructure:"port"           rule:"min=0,max=65535"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"       rule:"required"`
	SSLMode      string `mapstructure:"sslmode"        rule:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" rule:"min=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" rule:"min=0"`
	// ConnMaxLifetime 连接最长复用时间，0 表示不限
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// LogLevel gorm 日志级别：silent、error、warn、info
	LogLevel        string `mapstructure:"log_level"         rule:"omitempty,oneof=silent error warn info"`
	SlowThresholdMS int    `mapstructure:"slow_threshold_ms" rule:"min=0"`
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// GetDBType 返回数据库的展示名.
func (c *DBConfig) GetDBType() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return "PostgreSQL"
	case MySQL, MariaDB:
		return "MySQL"
	case SQLite:
		return "SQLite"
	default:
		return "Unknown"
	}
}

// GetDSN 按类型拼接连接串，未知类型返回空串.
func (c *DBConfig) GetDSN() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
	case MySQL, MariaDB:
		// 时间字段统一按 UTC 读写，回收站过期判断依赖一致的时区
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case SQLite:
		if c.Database == ":memory:" || strings.HasPrefix(c.Database, "file:") {
			return c.Database
		}

		return fmt.Sprintf("file:%s.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", c.Database)
	default:
		return ""
	}
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", PostgreSQL)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.database", "postvault")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open_conns", 0)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.log_level", DefaultDBLogLevel)
	v.SetDefault("db.slow_threshold_ms", DefaultSlowThresholdMS)
	v.SetDefault("db.auto_migrate", true)
}
