package report

import (
	"testing"

	"resolvent/internal/db"
)

func TestGenerate(t *testing.T) {
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		t.Fatal(err)
	}

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := database.Exec(query, args...); err != nil {
			t.Fatal(err)
		}
	}

	mustExec(`INSERT INTO tracked_markets (id, question, outcome_type, url, is_resolved, close_time, created_time)
		VALUES ('m1', 'A?', 'BINARY', 'u1', 1, 0, 0), ('m2', 'B?', 'BINARY', 'u2', 0, 0, 0)`)
	mustExec(`INSERT INTO decisions (id, market_id, eligible, outcome_kind, outcome)
		VALUES ('d1', 'm1', 1, 'binary', 'binary(100.0%)'), ('d2', 'm2', 0, NULL, NULL)`)
	mustExec(`INSERT INTO decisions (id, market_id, eligible, error)
		VALUES ('d3', 'm2', 0, 'rule exploded')`)
	mustExec(`INSERT INTO resolution_attempts (decision_id, market_id, outcome, success, status_code)
		VALUES ('d1', 'm1', 'binary(100.0%)', 1, 200)`)

	r, err := NewTracker(database).Generate()
	if err != nil {
		t.Fatal(err)
	}

	if r.TrackedMarkets != 2 || r.ResolvedMarkets != 1 {
		t.Errorf("unexpected market counts: %+v", r)
	}
	if r.TotalDecisions != 3 || r.EligibleDecisions != 1 || r.FailedEvaluations != 1 {
		t.Errorf("unexpected decision counts: %+v", r)
	}
	if r.ResolveAttempts != 1 || r.ResolveSuccesses != 1 {
		t.Errorf("unexpected attempt counts: %+v", r)
	}

	m1 := r.MarketStats["m1"]
	if m1.Decisions != 1 || m1.Eligible != 1 || m1.Attempts != 1 || m1.Successes != 1 {
		t.Errorf("unexpected m1 stats: %+v", m1)
	}
}
