package binding

import (
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/hhkbp2/kvbench"
)

const (
	PropertyMysqlDSN              = "mysql.dsn"
	PropertyMysqlHost             = "mysql.host"
	PropertyMysqlHostDefault      = "127.0.0.1"
	PropertyMysqlPort             = "mysql.port"
	PropertyMysqlPortDefault      = 3306
	PropertyMysqlDatabase         = "mysql.db"
	PropertyMysqlDatabaseDefault  = "kvbench"
	PropertyMysqlUser             = "mysql.user"
	PropertyMysqlUserDefault      = "root"
	PropertyMysqlPassword         = "mysql.password"
	PropertyMysqlPasswordDefault  = ""
	PropertyMysqlOptions          = "mysql.options"
	PropertyMysqlOptionsDefault   = "charset=utf8mb4"
	PropertyMysqlTable            = "mysql.table"
	PropertyMysqlTableDefault     = "kvbench"
	PropertyMysqlKeepTable        = "mysql.keeptable"
	PropertyMysqlKeepTableDefault = false
)

var mysqlDialect = &sqlDialect{
	name:   "mysql",
	driver: "mysql",
	family: kvbench.FamilyPageStructured,
	drop:   "DROP TABLE IF EXISTS %s",
	create: "CREATE TABLE %s (k VARBINARY(1024) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL) ENGINE=InnoDB",
	upsert: "INSERT INTO %s (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
	get:    "SELECT v FROM %s WHERE k = ?",
	scan:   "SELECT k, v FROM %s WHERE k >= ? ORDER BY k LIMIT ?",
	size: "SELECT data_length + index_length FROM information_schema.tables " +
		"WHERE table_schema = DATABASE() AND table_name = '%s'",
}

// MysqlDSN returns the mysql.dsn property, or a DSN assembled from the
// host, port, db, user, password and options properties.
func MysqlDSN(props kvbench.Properties) (string, error) {
	dsn := props.Get(PropertyMysqlDSN)
	if dsn == "" {
		port, err := props.GetInt(PropertyMysqlPort, PropertyMysqlPortDefault)
		if err != nil {
			return "", err
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			props.GetDefault(PropertyMysqlUser, PropertyMysqlUserDefault),
			props.GetDefault(PropertyMysqlPassword, PropertyMysqlPasswordDefault),
			props.GetDefault(PropertyMysqlHost, PropertyMysqlHostDefault),
			port,
			props.GetDefault(PropertyMysqlDatabase, PropertyMysqlDatabaseDefault),
			props.GetDefault(PropertyMysqlOptions, PropertyMysqlOptionsDefault))
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", &kvbench.ConfigError{Source: "properties", Field: PropertyMysqlDSN, Err: err}
	}
	return dsn, nil
}

func NewMysqlDB(props kvbench.Properties) (*SQLDB, error) {
	dsn, err := MysqlDSN(props)
	if err != nil {
		return nil, err
	}
	keep, err := props.GetBool(PropertyMysqlKeepTable, PropertyMysqlKeepTableDefault)
	if err != nil {
		return nil, err
	}
	return openSQLDB(mysqlDialect, dsn, props.GetDefault(PropertyMysqlTable, PropertyMysqlTableDefault), keep)
}
