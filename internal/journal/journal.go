// Package journal persists every decision cycle so that resolutions are
// auditable after the fact: which markets were tracked, what the rule
// chains decided, and what the API answered.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"resolvent/internal/manifold"
	"resolvent/internal/rule"
)

type Journal struct {
	db *sql.DB
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// UpsertMarket records or refreshes a tracked market.
func (j *Journal) UpsertMarket(ctx rule.Context) error {
	_, err := j.db.Exec(`
		INSERT INTO tracked_markets (id, question, outcome_type, url, notes, is_resolved, resolution, close_time, created_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			notes = excluded.notes,
			is_resolved = excluded.is_resolved,
			resolution = excluded.resolution,
			last_updated_at = datetime('now')`,
		ctx.ID, ctx.Question, ctx.OutcomeType, ctx.URL, ctx.Notes,
		boolToInt(ctx.IsResolved), ctx.Resolution,
		ctx.CloseTime.UnixMilli(), ctx.CreatedTime.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting market %s: %w", ctx.ID, err)
	}
	return nil
}

// RecordDecision writes one evaluation result and returns the decision id
// for linking resolution attempts to it. Either the outcome or the
// evaluation error is recorded, never both.
func (j *Journal) RecordDecision(marketID string, eligible bool, out rule.Outcome, evalErr error) (string, error) {
	id := uuid.NewString()

	var kind, outcome, errText any
	if evalErr != nil {
		errText = evalErr.Error()
	} else if eligible {
		kind = kindName(out.Kind)
		outcome = out.String()
	}

	_, err := j.db.Exec(`
		INSERT INTO decisions (id, market_id, eligible, outcome_kind, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, marketID, boolToInt(eligible), kind, outcome, errText,
	)
	if err != nil {
		return "", fmt.Errorf("inserting decision for %s: %w", marketID, err)
	}
	return id, nil
}

// RecordAttempt writes the result of one resolve call.
func (j *Journal) RecordAttempt(decisionID, marketID string, out rule.Outcome, ack *manifold.Acknowledgement, attemptErr error) error {
	var status, errText any
	if ack != nil {
		status = ack.StatusCode
	}
	if attemptErr != nil {
		errText = attemptErr.Error()
	}

	_, err := j.db.Exec(`
		INSERT INTO resolution_attempts (decision_id, market_id, outcome, success, status_code, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		decisionID, marketID, out.String(), boolToInt(attemptErr == nil), status, errText,
	)
	if err != nil {
		return fmt.Errorf("inserting attempt for %s: %w", marketID, err)
	}
	return nil
}

// Snapshot records the market's current probabilities.
func (j *Journal) Snapshot(ctx rule.Context) error {
	var answerProbs any
	if len(ctx.Answers) > 0 {
		probs := make(map[int]float64, len(ctx.Answers))
		for _, a := range ctx.Answers {
			probs[a.Index] = a.Probability
		}
		encoded, err := json.Marshal(probs)
		if err != nil {
			return fmt.Errorf("encoding answer probs for %s: %w", ctx.ID, err)
		}
		answerProbs = string(encoded)
	}

	var probability any
	if ctx.Probability != nil {
		probability = *ctx.Probability
	}

	_, err := j.db.Exec(`
		INSERT INTO market_snapshots (market_id, probability, answer_probs, is_resolved)
		VALUES (?, ?, ?, ?)`,
		ctx.ID, probability, answerProbs, boolToInt(ctx.IsResolved),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot for %s: %w", ctx.ID, err)
	}
	return nil
}

func kindName(k rule.OutcomeKind) string {
	switch k {
	case rule.OutcomeBinary:
		return "binary"
	case rule.OutcomeNumeric:
		return "numeric"
	case rule.OutcomeAnswer:
		return "answer"
	case rule.OutcomeWeights:
		return "weights"
	case rule.OutcomeCancel:
		return "cancel"
	default:
		return "none"
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
