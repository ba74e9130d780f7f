package manifold

import (
	"testing"
	"time"

	"github.com/jonnyspicer/mango"

	"resolvent/internal/rule"
)

func TestContextFromMarket_Binary(t *testing.T) {
	m := mango.FullMarket{
		Id:          "m1",
		Question:    "Will it rain tomorrow?",
		OutcomeType: mango.Binary,
		Probability: 0.42,
		IsResolved:  false,
		CloseTime:   1800000000000,
		CreatedTime: 1700000000000,
		Url:         "https://manifold.markets/u/rain",
	}

	ctx := contextFromMarket(m)

	if ctx.ID != "m1" || ctx.OutcomeType != rule.OutcomeTypeBinary {
		t.Errorf("unexpected identity fields: %+v", ctx)
	}
	if ctx.Probability == nil || *ctx.Probability != 0.42 {
		t.Errorf("expected probability 0.42, got %v", ctx.Probability)
	}
	if len(ctx.Answers) != 0 {
		t.Errorf("binary market should carry no answers, got %d", len(ctx.Answers))
	}
	if !ctx.CloseTime.Equal(time.UnixMilli(1800000000000)) {
		t.Errorf("unexpected close time %s", ctx.CloseTime)
	}
}

func TestContextFromMarket_AnswersIndexed(t *testing.T) {
	m := mango.FullMarket{
		Id: "m2",
		Answers: []mango.Answer{
			{Id: "a0", Text: "red", Probability: 0.3},
			{Id: "a1", Text: "blue", Probability: 0.7},
		},
	}

	ctx := contextFromMarket(m)

	if len(ctx.Answers) != 2 {
		t.Fatalf("expected 2 answers, got %d", len(ctx.Answers))
	}
	for i, a := range ctx.Answers {
		if a.Index != i {
			t.Errorf("answer %d: index %d does not match position", i, a.Index)
		}
	}
	if ctx.Answers[1].ID != "a1" || ctx.Answers[1].Probability != 0.7 {
		t.Errorf("answer fields not carried over: %+v", ctx.Answers[1])
	}
}
