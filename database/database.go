package database

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
)

func init() {
	// the built-in lower only folds ASCII, postgres folds everything
	sqlite.MustRegisterDeterministicScalarFunction("lower", 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Open connects with driver "postgres" or "sqlite" and applies the schema.
func Open(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite" {
		dsn = sqliteDSN(dsn)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", driver)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	if isMemory(dsn) {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "ping %s", driver)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

func Migrate(db *sqlx.DB) error {
	schema := postgresSchema
	if db.DriverName() == "sqlite" {
		schema = sqliteSchema
	}

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}

	return nil
}
