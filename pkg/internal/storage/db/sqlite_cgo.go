//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yeisme/postvault/pkg/configs"
)

// cgo 构建使用 mattn/go-sqlite3.
func init() {
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		return sqlite.Open(dsn)
	}, configs.SQLite)
}
