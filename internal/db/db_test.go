package db

import (
	"testing"
)

func TestMigrate_CreatesAllTables(t *testing.T) {
	database, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}

	tables := []string{
		"schema_version",
		"tracked_markets",
		"decisions",
		"resolution_attempts",
		"market_snapshots",
	}

	for _, table := range tables {
		row := database.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table)
		var count int
		if err := row.Scan(&count); err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %s not found", table)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	database, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	// Run twice — should not error.
	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}
}

func TestMigrate_InsertAndQuery(t *testing.T) {
	database, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := Migrate(database); err != nil {
		t.Fatal(err)
	}

	_, err = database.Exec(`
		INSERT INTO tracked_markets (id, question, outcome_type, url, close_time, created_time)
		VALUES ('m1', 'Test?', 'BINARY', 'https://example.com', 1800000000000, 1700000000000)`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = database.Exec(`
		INSERT INTO decisions (id, market_id, eligible, outcome_kind, outcome)
		VALUES ('d1', 'm1', 1, 'binary', 'binary(100.0%)')`)
	if err != nil {
		t.Fatal(err)
	}

	_, err = database.Exec(`
		INSERT INTO resolution_attempts (decision_id, market_id, outcome, success, status_code)
		VALUES ('d1', 'm1', 'binary(100.0%)', 1, 200)`)
	if err != nil {
		t.Fatal(err)
	}

	var count int
	row := database.QueryRow(`SELECT COUNT(*) FROM resolution_attempts WHERE success = 1`)
	if err := row.Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 successful attempt, got %d", count)
	}
}
