// Package report computes summary statistics over the decision journal.
package report

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// Tracker computes journal metrics from the database.
type Tracker struct {
	db *sql.DB
}

func NewTracker(db *sql.DB) *Tracker {
	return &Tracker{db: db}
}

// Report summarizes what the bot has decided and done so far.
type Report struct {
	TrackedMarkets    int
	ResolvedMarkets   int
	TotalDecisions    int
	EligibleDecisions int
	FailedEvaluations int
	ResolveAttempts   int
	ResolveSuccesses  int
	MarketStats       map[string]MarketStats
}

// MarketStats contains per-market journal counts.
type MarketStats struct {
	Decisions int
	Eligible  int
	Attempts  int
	Successes int
}

// Generate computes the full report.
func (t *Tracker) Generate() (*Report, error) {
	r := &Report{
		MarketStats: make(map[string]MarketStats),
	}

	if err := t.computeOverall(r); err != nil {
		return nil, fmt.Errorf("computing overall stats: %w", err)
	}
	if err := t.computeMarketStats(r); err != nil {
		return nil, fmt.Errorf("computing market stats: %w", err)
	}

	return r, nil
}

func (t *Tracker) computeOverall(r *Report) error {
	row := t.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(is_resolved), 0) FROM tracked_markets`)
	if err := row.Scan(&r.TrackedMarkets, &r.ResolvedMarkets); err != nil {
		return err
	}

	row = t.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(eligible), 0),
		       COALESCE(SUM(CASE WHEN error IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM decisions`)
	if err := row.Scan(&r.TotalDecisions, &r.EligibleDecisions, &r.FailedEvaluations); err != nil {
		return err
	}

	row = t.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(success), 0) FROM resolution_attempts`)
	return row.Scan(&r.ResolveAttempts, &r.ResolveSuccesses)
}

func (t *Tracker) computeMarketStats(r *Report) error {
	rows, err := t.db.Query(`
		SELECT d.market_id, COUNT(*), COALESCE(SUM(d.eligible), 0),
		       (SELECT COUNT(*) FROM resolution_attempts a WHERE a.market_id = d.market_id),
		       (SELECT COALESCE(SUM(a.success), 0) FROM resolution_attempts a WHERE a.market_id = d.market_id)
		FROM decisions d GROUP BY d.market_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var stats MarketStats
		if err := rows.Scan(&id, &stats.Decisions, &stats.Eligible, &stats.Attempts, &stats.Successes); err != nil {
			return err
		}
		r.MarketStats[id] = stats
	}
	return rows.Err()
}

// Log writes the report as structured JSON.
func (r *Report) Log() {
	slog.Info("=== JOURNAL REPORT ===",
		"tracked_markets", r.TrackedMarkets,
		"resolved_markets", r.ResolvedMarkets,
		"decisions", r.TotalDecisions,
		"eligible_decisions", r.EligibleDecisions,
		"failed_evaluations", r.FailedEvaluations,
		"resolve_attempts", r.ResolveAttempts,
		"resolve_successes", r.ResolveSuccesses,
	)

	for id, stats := range r.MarketStats {
		slog.Info("market stats",
			"market", id,
			"decisions", stats.Decisions,
			"eligible", stats.Eligible,
			"attempts", stats.Attempts,
			"successes", stats.Successes,
		)
	}
}
