package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB, ensures schema exists and seeds the default GPA rule table
// when gpa_rules is empty (a fresh install with no rules would grade
// everything as 0).
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:gpalive.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/gpalive?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	if err := seedDefaultRules(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// DefaultRules is the standard 4.0 scale shipped on first boot.
var DefaultRules = []struct {
	Min, Max, GPA float64
}{
	{90, 100, 4.0},
	{85, 89.9, 3.7},
	{80, 84.9, 3.3},
	{75, 79.9, 3.0},
	{70, 74.9, 2.7},
	{65, 69.9, 2.3},
	{60, 64.9, 2.0},
	{0, 59.9, 0},
}

func seedDefaultRules(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gpa_rules`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, r := range DefaultRules {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO gpa_rules (min_score,max_score,gpa_value) VALUES ($1,$2,$3)`,
			r.Min, r.Max, r.GPA); err != nil {
			return err
		}
	}
	return nil
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS courses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner TEXT NOT NULL,
  name TEXT NOT NULL,
  regular_score REAL NOT NULL,
  exam_scores TEXT NOT NULL,       -- JSON array
  final_score REAL NOT NULL,
  gpa REAL NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_courses_owner ON courses(owner);

CREATE TABLE IF NOT EXISTS gpa_rules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  min_score REAL NOT NULL,
  max_score REAL NOT NULL,
  gpa_value REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  offset INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  owner TEXT NOT NULL,
  typ TEXT NOT NULL,                        -- e.g. CourseAdded
  key TEXT NOT NULL,                        -- natural key: course id
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS courses (
  id BIGSERIAL PRIMARY KEY,
  owner TEXT NOT NULL,
  name TEXT NOT NULL,
  regular_score DOUBLE PRECISION NOT NULL,
  exam_scores TEXT NOT NULL,
  final_score DOUBLE PRECISION NOT NULL,
  gpa DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_courses_owner ON courses(owner);

CREATE TABLE IF NOT EXISTS gpa_rules (
  id BIGSERIAL PRIMARY KEY,
  min_score DOUBLE PRECISION NOT NULL,
  max_score DOUBLE PRECISION NOT NULL,
  gpa_value DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  owner TEXT NOT NULL,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
