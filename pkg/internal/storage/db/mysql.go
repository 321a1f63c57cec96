//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/yeisme/postvault/pkg/configs"
)

// utf8mb4 下索引列最长 191 字符.
const mysqlStringSize = 191

func init() {
	RegisterDialectorFactory(func(dsn string) gorm.Dialector {
		return mysql.New(mysql.Config{DSN: dsn, DefaultStringSize: mysqlStringSize})
	}, configs.MySQL, configs.MariaDB)
}
