package manifold

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resolvent/internal/rule"
)

func binaryMarket() rule.Context {
	p := 0.5
	return rule.Context{
		ID:          "b1",
		OutcomeType: rule.OutcomeTypeBinary,
		Probability: &p,
	}
}

func freeResponseMarket() rule.Context {
	return rule.Context{
		ID:          "fr1",
		OutcomeType: rule.OutcomeTypeMultipleChoice,
		Answers: []rule.Answer{
			{Index: 0, ID: "a0", Probability: 0.2},
			{Index: 1, ID: "a1", Probability: 0.5},
			{Index: 2, ID: "a2", Probability: 0.3},
		},
	}
}

func numericMarket() rule.Context {
	return rule.Context{
		ID:          "n1",
		OutcomeType: rule.OutcomeTypePseudoNumeric,
		Min:         0,
		Max:         200,
	}
}

func TestBuildResolveRequest_BinaryHardOutcomes(t *testing.T) {
	req, err := buildResolveRequest(binaryMarket(), rule.Binary(100))
	if err != nil {
		t.Fatal(err)
	}
	if req.Outcome != "YES" || req.ProbabilityInt != nil {
		t.Errorf("expected hard YES, got %+v", req)
	}

	req, err = buildResolveRequest(binaryMarket(), rule.Binary(0))
	if err != nil {
		t.Fatal(err)
	}
	if req.Outcome != "NO" {
		t.Errorf("expected hard NO, got %+v", req)
	}
}

func TestBuildResolveRequest_BinaryPartial(t *testing.T) {
	req, err := buildResolveRequest(binaryMarket(), rule.Binary(65.4))
	if err != nil {
		t.Fatal(err)
	}
	if req.Outcome != "MKT" {
		t.Errorf("expected MKT, got %q", req.Outcome)
	}
	if req.ProbabilityInt == nil || *req.ProbabilityInt != 65 {
		t.Errorf("expected probabilityInt 65, got %v", req.ProbabilityInt)
	}
}

func TestBuildResolveRequest_Cancel(t *testing.T) {
	// CANCEL is valid for every market shape.
	for _, market := range []rule.Context{binaryMarket(), freeResponseMarket(), numericMarket()} {
		req, err := buildResolveRequest(market, rule.Cancel())
		if err != nil {
			t.Fatal(err)
		}
		if req.Outcome != "CANCEL" {
			t.Errorf("market %s: expected CANCEL, got %q", market.ID, req.Outcome)
		}
	}
}

func TestBuildResolveRequest_Numeric(t *testing.T) {
	req, err := buildResolveRequest(numericMarket(), rule.Numeric(50))
	if err != nil {
		t.Fatal(err)
	}
	if req.Outcome != "MKT" || req.Value == nil || *req.Value != 50 {
		t.Errorf("unexpected numeric request %+v", req)
	}
	if req.ProbabilityInt == nil || *req.ProbabilityInt != 25 {
		t.Errorf("expected position 25%% in [0, 200], got %v", req.ProbabilityInt)
	}
}

func TestBuildResolveRequest_NumericOutOfRange(t *testing.T) {
	if _, err := buildResolveRequest(numericMarket(), rule.Numeric(500)); err == nil {
		t.Error("expected error for value outside market range")
	}
}

func TestBuildResolveRequest_SingleAnswer(t *testing.T) {
	req, err := buildResolveRequest(freeResponseMarket(), rule.SingleAnswer(1))
	if err != nil {
		t.Fatal(err)
	}
	if req.Outcome != "1" {
		t.Errorf("expected outcome \"1\", got %q", req.Outcome)
	}

	if _, err := buildResolveRequest(freeResponseMarket(), rule.SingleAnswer(7)); err == nil {
		t.Error("expected error for out-of-range answer index")
	}
}

func TestBuildResolveRequest_WeightsNormalized(t *testing.T) {
	req, err := buildResolveRequest(freeResponseMarket(), rule.Weighted(map[int]float64{
		0: 1,
		2: 3,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if req.Outcome != "MKT" {
		t.Errorf("expected MKT, got %q", req.Outcome)
	}
	if len(req.Resolutions) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(req.Resolutions))
	}
	if req.Resolutions[0].Answer != 0 || req.Resolutions[0].Pct != 25 {
		t.Errorf("expected answer 0 at 25%%, got %+v", req.Resolutions[0])
	}
	if req.Resolutions[1].Answer != 2 || req.Resolutions[1].Pct != 75 {
		t.Errorf("expected answer 2 at 75%%, got %+v", req.Resolutions[1])
	}
}

func TestBuildResolveRequest_WeightsInvalid(t *testing.T) {
	if _, err := buildResolveRequest(freeResponseMarket(), rule.Weighted(map[int]float64{9: 1})); err == nil {
		t.Error("expected error for weight on unknown answer")
	}
	if _, err := buildResolveRequest(freeResponseMarket(), rule.Weighted(map[int]float64{0: 0})); err == nil {
		t.Error("expected error for all-zero weights")
	}
}

func TestBuildResolveRequest_ShapeMismatch(t *testing.T) {
	if _, err := buildResolveRequest(binaryMarket(), rule.Numeric(1)); err == nil {
		t.Error("expected error for numeric outcome on binary market")
	}
	if _, err := buildResolveRequest(numericMarket(), rule.Binary(50)); err == nil {
		t.Error("expected error for binary outcome on numeric market")
	}
	if _, err := buildResolveRequest(freeResponseMarket(), rule.Binary(50)); err == nil {
		t.Error("expected error for binary outcome on free-response market")
	}
}

func TestResolver_Resolve(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody resolveRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, "test-key")
	ack, err := r.Resolve(context.Background(), binaryMarket(), rule.Binary(100))
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/market/b1/resolve" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Key test-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody.Outcome != "YES" {
		t.Errorf("unexpected outcome %q", gotBody.Outcome)
	}
	if ack.MarketID != "b1" || ack.StatusCode != http.StatusOK {
		t.Errorf("unexpected ack %+v", ack)
	}
}

func TestResolver_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusBadRequest, ErrRejected},
		{http.StatusInternalServerError, ErrNetwork},
	}

	for _, c := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(c.status)
		}))

		r := NewResolver(srv.URL, "k")
		_, err := r.Resolve(context.Background(), binaryMarket(), rule.Cancel())
		if !errors.Is(err, c.want) {
			t.Errorf("status %d: expected %v, got %v", c.status, c.want, err)
		}
		srv.Close()
	}
}
