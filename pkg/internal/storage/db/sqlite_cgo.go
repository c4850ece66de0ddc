//go:build !no_sqlite && cgo

package db

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
)

// cgo 驱动的参数名与纯 Go 版不同.
func openSQLite(dsn string) gorm.Dialector {
	return sqlite.Open(appendQuery(dsn, "_busy_timeout=5000&_foreign_keys=on"))
}

func init() {
	RegisterDialectorFactory(openSQLite, configs.SQLite)
}
