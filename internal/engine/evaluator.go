// Package engine implements the two-phase rule chain evaluator: gate rules
// decide whether a market is eligible to resolve, value rules decide what
// it resolves to. The evaluator is pure and stateless; it never performs
// the resolution itself.
package engine

import (
	"errors"
	"fmt"
	"math"

	"resolvent/internal/rule"
)

// ErrNoDefault is returned by ResolveTo when no value rule produced a
// result and the market shape has no well-defined fallback. Numeric
// markets always need at least one decisive value rule.
var ErrNoDefault = errors.New("no value rule fired and market has no default value")

// Evaluator holds the ordered rule chains for one market. Both chains may
// be empty. An Evaluator has no state of its own; it is safe to share
// across goroutines as long as each call gets its own Context snapshot.
type Evaluator struct {
	Gates  []rule.GateRule
	Values []rule.ValueRule
}

// New returns an Evaluator over the given rule chains.
func New(gates []rule.GateRule, values []rule.ValueRule) *Evaluator {
	return &Evaluator{Gates: gates, Values: values}
}

// ShouldResolve reports whether the market is eligible to be resolved now.
//
// The gate result is the OR over all gate rules: any single rule voting
// true is sufficient. Evaluation short-circuits on the first true vote.
// An empty gate chain yields false, so a market with no gate rules is
// never auto-eligible. An already-resolved market is never eligible,
// even if every gate rule votes true.
//
// A gate rule error aborts evaluation and propagates; a failing rule must
// be visible, not silently skipped.
func (e *Evaluator) ShouldResolve(ctx rule.Context) (bool, error) {
	if ctx.IsResolved {
		return false, nil
	}
	for _, g := range e.Gates {
		ok, err := g.ShouldResolve(ctx)
		if err != nil {
			return false, fmt.Errorf("gate rule %s: %w", g.Name(), err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ResolveTo selects the value the market should be resolved to.
//
// Value rules are consulted strictly in order and the first non-None
// outcome is decisive; later rules are not evaluated. Rule order is the
// priority. A CANCEL outcome passes through unchanged.
//
// If every rule returns None (or the chain is empty), the result falls
// back to a default derived from market shape:
//
//   - binary: the current probability rounded half away from zero, so
//     p >= 0.5 resolves YES (100%) and p < 0.5 resolves NO (0%);
//   - free response: the answer index with the highest probability,
//     first occurrence winning ties;
//   - numeric: no default exists and ErrNoDefault is returned.
//
// A value rule error aborts evaluation and propagates; it is not treated
// as "no opinion", since falling through could pick an unintended value.
func (e *Evaluator) ResolveTo(ctx rule.Context) (rule.Outcome, error) {
	for _, v := range e.Values {
		out, err := v.Value(ctx)
		if err != nil {
			return rule.None(), fmt.Errorf("value rule %s: %w", v.Name(), err)
		}
		if !out.IsNone() {
			return out, nil
		}
	}
	return defaultOutcome(ctx)
}

func defaultOutcome(ctx rule.Context) (rule.Outcome, error) {
	if ctx.Probability != nil {
		if math.Round(*ctx.Probability) >= 1 {
			return rule.Binary(100), nil
		}
		return rule.Binary(0), nil
	}
	if len(ctx.Answers) > 0 {
		best := 0
		for i, a := range ctx.Answers {
			if a.Probability > ctx.Answers[best].Probability {
				best = i
			}
		}
		return rule.SingleAnswer(ctx.Answers[best].Index), nil
	}
	return rule.None(), fmt.Errorf("market %s (%s): %w", ctx.ID, ctx.OutcomeType, ErrNoDefault)
}
