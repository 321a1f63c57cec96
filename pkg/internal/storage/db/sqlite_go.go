//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/postvault/pkg/configs"
)

// 无 cgo 构建使用纯 Go 的 glebarez/sqlite，测试与单机部署默认走这里.
func init() {
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		return sqlite.Open(dsn)
	}, configs.SQLite)
}
