package db

import (
	"context"
	"testing"
)

func TestOpenSQLiteCreatesSchemaAndSeedsRules(t *testing.T) {
	ctx := context.Background()
	dsn := "file:dbtest1?mode=memory&cache=shared"
	dbh, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dbh.Close()

	var n int
	if err := dbh.QueryRowContext(ctx, `SELECT COUNT(*) FROM gpa_rules`).Scan(&n); err != nil {
		t.Fatalf("count rules: %v", err)
	}
	if n != len(DefaultRules) {
		t.Fatalf("seeded %d rules, want %d", n, len(DefaultRules))
	}
	for _, table := range []string{"courses", "event_log"} {
		if _, err := dbh.ExecContext(ctx, `SELECT COUNT(*) FROM `+table); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenDoesNotReseedExistingRules(t *testing.T) {
	ctx := context.Background()
	dsn := "file:dbtest2?mode=memory&cache=shared"
	dbh, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dbh.Close()

	if _, err := dbh.ExecContext(ctx, `DELETE FROM gpa_rules`); err != nil {
		t.Fatal(err)
	}
	if _, err := dbh.ExecContext(ctx,
		`INSERT INTO gpa_rules (min_score,max_score,gpa_value) VALUES (0,100,4)`); err != nil {
		t.Fatal(err)
	}

	dbh2, err := Open(ctx, DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer dbh2.Close()

	var n int
	if err := dbh2.QueryRowContext(ctx, `SELECT COUNT(*) FROM gpa_rules`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("reopen reseeded rules: count = %d, want 1", n)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Driver("oracle"), ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
