//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yeisme/postvault/pkg/configs"
)

func init() {
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		// 兼容 pgbouncer transaction 模式，不使用服务端预编译语句
		return postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	}, configs.PostgreSQL, configs.Postgres, configs.Pg)
}
