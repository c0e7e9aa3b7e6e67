package binding

import (
	"strings"

	"github.com/lib/pq"

	"github.com/hhkbp2/kvbench"
)

const (
	PropertyPostgresDSN              = "postgres.dsn"
	PropertyPostgresDSNDefault       = "postgres://postgres@127.0.0.1:5432/postgres?sslmode=disable"
	PropertyPostgresTable            = "postgres.table"
	PropertyPostgresTableDefault     = "kvbench"
	PropertyPostgresKeepTable        = "postgres.keeptable"
	PropertyPostgresKeepTableDefault = false
)

var postgresDialect = &sqlDialect{
	name:   "postgres",
	driver: "postgres",
	family: kvbench.FamilyPageStructured,
	drop:   "DROP TABLE IF EXISTS %s",
	create: "CREATE TABLE %s (k BYTEA PRIMARY KEY, v BYTEA NOT NULL)",
	upsert: "INSERT INTO %s (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v",
	get:    "SELECT v FROM %s WHERE k = $1",
	scan:   "SELECT k, v FROM %s WHERE k >= $1 ORDER BY k LIMIT $2",
	size:   "SELECT pg_total_relation_size('%s')",
}

// PostgresDSN returns the postgres.dsn property. URL forms are converted
// to the driver's key/value connection string.
func PostgresDSN(props kvbench.Properties) (string, error) {
	dsn := props.GetDefault(PropertyPostgresDSN, PropertyPostgresDSNDefault)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		converted, err := pq.ParseURL(dsn)
		if err != nil {
			return "", &kvbench.ConfigError{Source: "properties", Field: PropertyPostgresDSN, Err: err}
		}
		dsn = converted
	}
	return dsn, nil
}

func NewPostgresDB(props kvbench.Properties) (*SQLDB, error) {
	dsn, err := PostgresDSN(props)
	if err != nil {
		return nil, err
	}
	keep, err := props.GetBool(PropertyPostgresKeepTable, PropertyPostgresKeepTableDefault)
	if err != nil {
		return nil, err
	}
	return openSQLDB(postgresDialect, dsn, props.GetDefault(PropertyPostgresTable, PropertyPostgresTableDefault), keep)
}
