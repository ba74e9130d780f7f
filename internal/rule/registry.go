package rule

import (
	"fmt"
	"strconv"
	"time"
)

// Spec is the declarative form of a rule as it appears in the config
// file. Kind selects the rule; the remaining fields parameterize it and
// are ignored by kinds that do not use them.
type Spec struct {
	Kind  string    `toml:"kind"`
	At    time.Time `toml:"at"`    // at_time
	Delay string    `toml:"delay"` // after_close, e.g. "24h"
	Token string    `toml:"token"` // notes_flag, notes_cancel

	// fixed
	Outcome     string             `toml:"outcome"` // binary, numeric, answer, weights, cancel
	Probability float64            `toml:"probability"`
	Value       float64            `toml:"value"`
	Answer      int                `toml:"answer"`
	Weights     map[string]float64 `toml:"weights"` // answer index -> weight
}

// BuildGates constructs an ordered gate rule chain from config specs.
// Order in the config is evaluation order.
func BuildGates(specs []Spec) ([]GateRule, error) {
	gates := make([]GateRule, 0, len(specs))
	for _, s := range specs {
		switch s.Kind {
		case "at_time":
			if s.At.IsZero() {
				return nil, fmt.Errorf("gate rule at_time: missing at")
			}
			gates = append(gates, ResolveAtTime{At: s.At})
		case "after_close":
			var delay time.Duration
			if s.Delay != "" {
				d, err := time.ParseDuration(s.Delay)
				if err != nil {
					return nil, fmt.Errorf("gate rule after_close: parsing delay: %w", err)
				}
				delay = d
			}
			gates = append(gates, ResolveAfterClose{Delay: delay})
		case "notes_flag":
			if s.Token == "" {
				return nil, fmt.Errorf("gate rule notes_flag: missing token")
			}
			gates = append(gates, NotesFlag{Token: s.Token})
		default:
			return nil, fmt.Errorf("unknown gate rule kind %q", s.Kind)
		}
	}
	return gates, nil
}

// BuildValues constructs an ordered value rule chain from config specs.
// Order in the config is priority: the first decisive rule wins.
func BuildValues(specs []Spec) ([]ValueRule, error) {
	values := make([]ValueRule, 0, len(specs))
	for _, s := range specs {
		switch s.Kind {
		case "fixed":
			out, err := parseOutcome(s)
			if err != nil {
				return nil, fmt.Errorf("value rule fixed: %w", err)
			}
			values = append(values, FixedValue{Outcome: out})
		case "current_value":
			values = append(values, CurrentValue{})
		case "notes_cancel":
			if s.Token == "" {
				return nil, fmt.Errorf("value rule notes_cancel: missing token")
			}
			values = append(values, NotesCancel{Token: s.Token})
		default:
			return nil, fmt.Errorf("unknown value rule kind %q", s.Kind)
		}
	}
	return values, nil
}

func parseOutcome(s Spec) (Outcome, error) {
	switch s.Outcome {
	case "binary":
		if s.Probability < 0 || s.Probability > 100 {
			return None(), fmt.Errorf("probability %g out of range [0, 100]", s.Probability)
		}
		return Binary(s.Probability), nil
	case "numeric":
		return Numeric(s.Value), nil
	case "answer":
		if s.Answer < 0 {
			return None(), fmt.Errorf("negative answer index %d", s.Answer)
		}
		return SingleAnswer(s.Answer), nil
	case "weights":
		if len(s.Weights) == 0 {
			return None(), fmt.Errorf("empty weights")
		}
		weights := make(map[int]float64, len(s.Weights))
		for k, w := range s.Weights {
			idx, err := strconv.Atoi(k)
			if err != nil {
				return None(), fmt.Errorf("weight key %q is not an answer index", k)
			}
			if w < 0 {
				return None(), fmt.Errorf("negative weight %g for answer %d", w, idx)
			}
			weights[idx] = w
		}
		return Weighted(weights), nil
	case "cancel":
		return Cancel(), nil
	default:
		return None(), fmt.Errorf("unknown outcome %q", s.Outcome)
	}
}
