package rule

import (
	"strings"
	"time"
)

// ResolveAtTime is a gate rule that votes true once a fixed wall-clock
// time has passed.
type ResolveAtTime struct {
	At time.Time
}

func (r ResolveAtTime) Name() string { return "at_time" }

func (r ResolveAtTime) ShouldResolve(_ Context) (bool, error) {
	return !time.Now().Before(r.At), nil
}

// ResolveAfterClose is a gate rule that votes true once the market's close
// time, plus an optional grace delay, has passed.
type ResolveAfterClose struct {
	Delay time.Duration
}

func (r ResolveAfterClose) Name() string { return "after_close" }

func (r ResolveAfterClose) ShouldResolve(ctx Context) (bool, error) {
	if ctx.CloseTime.IsZero() {
		return false, nil
	}
	return time.Now().After(ctx.CloseTime.Add(r.Delay)), nil
}

// NotesFlag is a gate rule that votes true when the operator has written
// the trigger token into the market notes.
type NotesFlag struct {
	Token string
}

func (r NotesFlag) Name() string { return "notes_flag" }

func (r NotesFlag) ShouldResolve(ctx Context) (bool, error) {
	return r.Token != "" && strings.Contains(ctx.Notes, r.Token), nil
}

// FixedValue is a value rule that always proposes the same outcome.
type FixedValue struct {
	Outcome Outcome
}

func (r FixedValue) Name() string { return "fixed" }

func (r FixedValue) Value(_ Context) (Outcome, error) {
	return r.Outcome, nil
}

// CurrentValue is a value rule that proposes resolving the market to its
// current state: binary markets to the current probability (MKT), free
// response markets to a distribution weighted by current answer
// probabilities. It has no opinion on numeric markets, whose current
// value is not part of the snapshot.
type CurrentValue struct{}

func (r CurrentValue) Name() string { return "current_value" }

func (r CurrentValue) Value(ctx Context) (Outcome, error) {
	if ctx.Probability != nil {
		return Binary(*ctx.Probability * 100), nil
	}
	if len(ctx.Answers) > 0 {
		weights := make(map[int]float64, len(ctx.Answers))
		for _, a := range ctx.Answers {
			weights[a.Index] = a.Probability
		}
		return Weighted(weights), nil
	}
	return None(), nil
}

// NotesCancel is a value rule that proposes CANCEL when the operator has
// written the cancel token into the market notes, and has no opinion
// otherwise.
type NotesCancel struct {
	Token string
}

func (r NotesCancel) Name() string { return "notes_cancel" }

func (r NotesCancel) Value(ctx Context) (Outcome, error) {
	if r.Token != "" && strings.Contains(ctx.Notes, r.Token) {
		return Cancel(), nil
	}
	return None(), nil
}
