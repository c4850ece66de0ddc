//go:build !no_sqlite && !cgo

package db

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
)

// 纯 Go 驱动用 _pragma 参数；导入与计数并发写时等待锁而不是立即失败.
func openSQLite(dsn string) gorm.Dialector {
	return sqlite.Open(appendQuery(dsn, "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"))
}

func init() {
	RegisterDialectorFactory(openSQLite, configs.SQLite)
}
