// Package rule defines the contract market-resolution rules must satisfy
// and the outcome values they may propose. Rules are pure: they read a
// Context snapshot and return a result without side effects. The chain
// evaluator in internal/engine composes them into a decision.
package rule

import (
	"fmt"
	"sort"
	"strings"
)

// GateRule decides whether a market is eligible to be resolved now.
type GateRule interface {
	Name() string
	ShouldResolve(ctx Context) (bool, error)
}

// ValueRule proposes a resolution value for a market, or no opinion.
type ValueRule interface {
	Name() string
	Value(ctx Context) (Outcome, error)
}

// OutcomeKind discriminates the variants of Outcome.
type OutcomeKind int

const (
	// OutcomeNone means the rule has no opinion.
	OutcomeNone OutcomeKind = iota
	// OutcomeBinary resolves a binary market to a probability.
	OutcomeBinary
	// OutcomeNumeric resolves a pseudo-numeric market to a value.
	OutcomeNumeric
	// OutcomeAnswer resolves a free-response market to a single answer index.
	OutcomeAnswer
	// OutcomeWeights resolves a free-response market to a distribution
	// over answer indices.
	OutcomeWeights
	// OutcomeCancel refunds all orders instead of settling a value.
	OutcomeCancel
)

// Outcome is a tagged variant holding one proposed resolution value.
//
// Binary probabilities are expressed in percent, 0 to 100, matching the
// probabilityInt field of the Manifold resolve endpoint. Weights need not
// sum to anything in particular; the resolution client normalizes them.
type Outcome struct {
	Kind        OutcomeKind
	Probability float64         // OutcomeBinary: percent in [0, 100]
	Value       float64         // OutcomeNumeric
	AnswerIndex int             // OutcomeAnswer
	Weights     map[int]float64 // OutcomeWeights: answer index -> weight
}

// None returns the no-opinion outcome.
func None() Outcome { return Outcome{Kind: OutcomeNone} }

// Binary returns a binary outcome at the given probability in percent.
func Binary(pct float64) Outcome {
	return Outcome{Kind: OutcomeBinary, Probability: pct}
}

// Numeric returns a numeric outcome.
func Numeric(v float64) Outcome {
	return Outcome{Kind: OutcomeNumeric, Value: v}
}

// SingleAnswer returns an outcome resolving to one answer index.
func SingleAnswer(index int) Outcome {
	return Outcome{Kind: OutcomeAnswer, AnswerIndex: index}
}

// Weighted returns an outcome distributing the resolution over answer
// indices proportionally to the given weights.
func Weighted(weights map[int]float64) Outcome {
	return Outcome{Kind: OutcomeWeights, Weights: weights}
}

// Cancel returns the outcome that refunds all orders.
func Cancel() Outcome { return Outcome{Kind: OutcomeCancel} }

// IsNone reports whether the outcome carries no opinion.
func (o Outcome) IsNone() bool { return o.Kind == OutcomeNone }

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeNone:
		return "none"
	case OutcomeBinary:
		return fmt.Sprintf("binary(%.1f%%)", o.Probability)
	case OutcomeNumeric:
		return fmt.Sprintf("numeric(%g)", o.Value)
	case OutcomeAnswer:
		return fmt.Sprintf("answer(%d)", o.AnswerIndex)
	case OutcomeWeights:
		indices := make([]int, 0, len(o.Weights))
		for i := range o.Weights {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		parts := make([]string, 0, len(indices))
		for _, i := range indices {
			parts = append(parts, fmt.Sprintf("%d:%g", i, o.Weights[i]))
		}
		return "weights(" + strings.Join(parts, " ") + ")"
	case OutcomeCancel:
		return "CANCEL"
	default:
		return fmt.Sprintf("unknown(%d)", int(o.Kind))
	}
}
