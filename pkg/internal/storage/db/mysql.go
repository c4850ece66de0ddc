//go:build !no_mysql

package db

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
)

// utf8mb4 下旧版 InnoDB 索引列上限 767 字节，字符串列默认 191.
const mysqlStringSize = 191

func openMySQL(dsn string) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN:               dsn,
		DefaultStringSize: mysqlStringSize,
	})
}

func init() {
	RegisterDialectorFactory(openMySQL, configs.MySQL, configs.MariaDB)
}
