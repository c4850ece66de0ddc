//go:build !no_postgres

package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/simholt/hyrax/pkg/configs"
)

// 兼容事务模式的连接池代理.
func openPostgres(dsn string) gorm.Dialector {
	return postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	})
}

func init() {
	RegisterDialectorFactory(openPostgres, configs.PostgreSQL, configs.Postgres, configs.Pg)
}
