package configs

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// DBType 关系库类型；同一族有多个别名.
type DBType string

const (
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgre"
	Pg         DBType = "pg"
	MySQL      DBType = "mysql"
	MariaDB    DBType = "mariadb"
	SQLite     DBType = "sqlite"
)

// Family 归一化后的数据库族名，未知类型返回空串.
func (t DBType) Family() string {
	switch t {
	case PostgreSQL, Postgres, Pg:
		return "postgres"
	case MySQL, MariaDB:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return ""
	}
}

const (
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "postgres"
	DefaultDBName            = "hyrax"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 20
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 30 * time.Minute
)

// DBConfig 集合、作品、文件与授权的权威存储.
type DBConfig struct {
	Type            DBType        `mapstructure:"type"              rule:"oneof=postgresql postgre pg mysql mariadb sqlite"`
	Host            string        `mapstructure:"host"              rule:"omitempty,hostname|ip"`
	Port            int           `mapstructure:"port"              rule:"min=0,max=65535"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"          rule:"required"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    rule:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    rule:"min=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" rule:"min=0"`
}

// GetDBType 用于日志的可读名称.
func (c *DBConfig) GetDBType() string {
	if f := c.Type.Family(); f != "" {
		return f
	}

	return "unknown"
}

// GetDSN 未知类型返回空串.
func (c *DBConfig) GetDSN() string {
	switch c.Type.Family() {
	case "postgres":
		q := url.Values{}
		if c.SSLMode != "" {
			q.Set("sslmode", c.SSLMode)
		}

		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.User, c.Password),
			Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
			Path:     "/" + c.Database,
			RawQuery: q.Encode(),
		}

		return u.String()
	case "mysql":
		m := mysql.NewConfig()
		m.User = c.User
		m.Passwd = c.Password
		m.Net = "tcp"
		m.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		m.DBName = c.Database
		m.ParseTime = true
		m.Loc = time.UTC
		m.Params = map[string]string{"charset": "utf8mb4"}

		return m.FormatDSN()
	case "sqlite":
		// ":memory:" 用共享缓存，否则每个连接各有一个空库
		if c.Database == ":memory:" {
			return "file::memory:?cache=shared"
		}

		return "file:" + c.Database + ".db"
	default:
		return ""
	}
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", PostgreSQL)
	v.SetDefault("db.host", DefaultDBHost)
	v.SetDefault("db.port", DefaultDBPort)
	v.SetDefault("db.user", DefaultDBUser)
	v.SetDefault("db.database", DefaultDBName)
	v.SetDefault("db.sslmode", DefaultDBSSLMode)
	v.SetDefault("db.max_open_conns", DefaultDBMaxOpenConns)
	v.SetDefault("db.max_idle_conns", DefaultDBMaxIdleConns)
	v.SetDefault("db.conn_max_lifetime", DefaultDBConnMaxLifetime)
}
