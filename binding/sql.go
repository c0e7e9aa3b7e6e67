package binding

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/hhkbp2/kvbench"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlDialect holds the statements of one database flavour. Every
// statement takes the table name as its only format verb.
type sqlDialect struct {
	name   string
	driver string
	family kvbench.Family
	drop   string
	create string
	upsert string
	get    string
	scan   string
	size   string
}

func (d *sqlDialect) format(statement, table string) string {
	return fmt.Sprintf(statement, table)
}

// SQLDB stores pairs in a two column table of a relational database.
// The table is recreated on open and dropped on close unless kept.
type SQLDB struct {
	kvbench.ByteCounters
	dialect   *sqlDialect
	table     string
	keepTable bool
	logger    *zap.Logger
	db        *sql.DB
	upsert    *sql.Stmt
	get       *sql.Stmt
	scan      *sql.Stmt
	size      *sql.Stmt
}

func openSQLDB(dialect *sqlDialect, dsn, table string, keepTable bool) (ret *SQLDB, err error) {
	if !tableNamePattern.MatchString(table) {
		return nil, kvbench.NewConfigError("properties", dialect.name+".table", "invalid table name %q", table)
	}
	db, err := sql.Open(dialect.driver, dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLDB{
		dialect:   dialect,
		table:     table,
		keepTable: keepTable,
		logger:    bindingLogger(dialect.name),
		db:        db,
	}
	defer func() {
		if err != nil {
			s.closeStatements()
			db.Close()
		}
	}()
	if err := db.Ping(); err != nil {
		return nil, err
	}
	for _, statement := range []string{dialect.drop, dialect.create} {
		if _, err := db.Exec(dialect.format(statement, table)); err != nil {
			return nil, fmt.Errorf("prepare table %s: %w", table, err)
		}
	}
	prepared := []struct {
		stmt      **sql.Stmt
		statement string
	}{
		{&s.upsert, dialect.upsert},
		{&s.get, dialect.get},
		{&s.scan, dialect.scan},
		{&s.size, dialect.size},
	}
	for _, p := range prepared {
		stmt, err := db.Prepare(dialect.format(p.statement, table))
		if err != nil {
			return nil, err
		}
		*p.stmt = stmt
	}
	s.logger.Debug("table ready", zap.String("table", table))
	return s, nil
}

func (s *SQLDB) Put(key, value []byte) error {
	if _, err := s.upsert.Exec(key, value); err != nil {
		return err
	}
	s.AddWritten(len(key) + len(value))
	return nil
}

func (s *SQLDB) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	err := s.get.QueryRow(key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	s.AddRead(len(key) + len(value))
	return value, true, nil
}

func (s *SQLDB) RangeScan(start []byte, limit int) ([]kvbench.KV, error) {
	if limit <= 0 {
		return []kvbench.KV{}, nil
	}
	rows, err := s.scan.Query(start, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]kvbench.KV, 0, limit)
	for rows.Next() {
		var kv kvbench.KV
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, err
		}
		ret = append(ret, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.CountScan(ret)
	return ret, nil
}

// Flush is a no-op, every statement commits on its own.
func (s *SQLDB) Flush() error {
	return nil
}

func (s *SQLDB) Name() string {
	return s.dialect.name
}

func (s *SQLDB) Family() kvbench.Family {
	return s.dialect.family
}

func (s *SQLDB) Statistics() kvbench.EngineStatistics {
	stats := s.ByteCounters.Statistics()
	var size sql.NullInt64
	if err := s.size.QueryRow().Scan(&size); err != nil {
		s.logger.Warn("table size unavailable", zap.String("table", s.table), zap.Error(err))
		return stats
	}
	if size.Valid && size.Int64 >= 0 {
		stats.DiskSizeBytes = uint64(size.Int64)
		stats.DiskSizeReported = true
	}
	return stats
}

func (s *SQLDB) closeStatements() {
	for _, stmt := range []*sql.Stmt{s.upsert, s.get, s.scan, s.size} {
		if stmt != nil {
			stmt.Close()
		}
	}
}

func (s *SQLDB) Close() error {
	s.closeStatements()
	var errs []error
	if !s.keepTable {
		if _, err := s.db.Exec(s.dialect.format(s.dialect.drop, s.table)); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}
