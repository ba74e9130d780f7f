package rule

import "time"

// Market outcome types as reported by the Manifold API.
const (
	OutcomeTypeBinary         = "BINARY"
	OutcomeTypePseudoNumeric  = "PSEUDO_NUMERIC"
	OutcomeTypeFreeResponse   = "FREE_RESPONSE"
	OutcomeTypeMultipleChoice = "MULTIPLE_CHOICE"
)

// Context is the read-only market snapshot every rule evaluates against.
// It is captured once per decision cycle; the gate phase and the value
// phase of a cycle must see the same Context. Nothing in this package
// mutates it.
type Context struct {
	ID          string
	Question    string
	OutcomeType string

	// Probability is the current market probability. Only meaningful for
	// binary markets; nil otherwise.
	Probability *float64

	// Answers holds the current free-response / multiple-choice answers
	// in market order. Empty for binary and numeric markets.
	Answers []Answer

	// Min and Max bound any numeric value a rule may return for
	// pseudo-numeric markets. They come from the market's declaration;
	// the fetched payload does not include them.
	Min float64
	Max float64

	// Notes is free-text attached by the operator. Rules may use it for
	// out-of-band signaling, e.g. a manual cancel token.
	Notes string

	IsResolved  bool
	Resolution  string
	CloseTime   time.Time
	CreatedTime time.Time
	URL         string
}

// Answer is one free-response answer with its current probability.
type Answer struct {
	Index       int
	ID          string
	Text        string
	Probability float64
}

// IsBinary reports whether the market resolves YES/NO.
func (c Context) IsBinary() bool {
	return c.OutcomeType == OutcomeTypeBinary
}

// IsNumeric reports whether the market resolves to a value in [Min, Max].
func (c Context) IsNumeric() bool {
	return c.OutcomeType == OutcomeTypePseudoNumeric
}

// IsFreeResponse reports whether the market resolves to one answer index
// or a weighted distribution over indices.
func (c Context) IsFreeResponse() bool {
	return c.OutcomeType == OutcomeTypeFreeResponse || c.OutcomeType == OutcomeTypeMultipleChoice
}
