package manifold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"resolvent/internal/rule"
)

const DefaultBaseURL = "https://api.manifold.markets/v0"

// Resolver is the resolution-performing collaborator. It posts the
// irreversible resolve call to the Manifold API. The SDK used for market
// lookups does not expose the resolve endpoint, so this is a small REST
// client of its own.
type Resolver struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewResolver creates a resolve client. baseURL is the API root, e.g.
// DefaultBaseURL; apiKey is the operator's Manifold API key.
func NewResolver(baseURL, apiKey string) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Acknowledgement reports what the API accepted.
type Acknowledgement struct {
	MarketID   string
	StatusCode int
	Body       json.RawMessage
}

// resolveRequest is the wire shape of POST /v0/market/{id}/resolve.
type resolveRequest struct {
	Outcome        string             `json:"outcome"`
	ProbabilityInt *int               `json:"probabilityInt,omitempty"`
	Value          *float64           `json:"value,omitempty"`
	Resolutions    []answerResolution `json:"resolutions,omitempty"`
}

type answerResolution struct {
	Answer int     `json:"answer"`
	Pct    float64 `json:"pct"`
}

// Resolve settles the market described by ctx to the given outcome.
// CANCEL refunds all orders. The outcome must fit the market's shape;
// a mismatch fails before any network call is made.
func (r *Resolver) Resolve(ctx context.Context, market rule.Context, out rule.Outcome) (*Acknowledgement, error) {
	req, err := buildResolveRequest(market, out)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w", market.ID, err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("market %s: encoding resolve request: %w", market.ID, err)
	}

	url := fmt.Sprintf("%s/market/%s/resolve", r.baseURL, market.ID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("market %s: building request: %w", market.ID, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+r.apiKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w: %v", market.ID, ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w: reading response: %v", market.ID, ErrNetwork, err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, fmt.Errorf("market %s: %w: %s", market.ID, err, bytes.TrimSpace(body))
	}

	return &Acknowledgement{
		MarketID:   market.ID,
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrUnauthorized
	case code >= 400 && code < 500:
		return ErrRejected
	default:
		return ErrNetwork
	}
}

// buildResolveRequest maps an outcome onto the payload shape the market
// type expects. Binary probabilities arrive in percent; exact 100 and 0
// become hard YES/NO, anything between resolves MKT at that probability.
func buildResolveRequest(market rule.Context, out rule.Outcome) (resolveRequest, error) {
	if out.Kind == rule.OutcomeCancel {
		return resolveRequest{Outcome: "CANCEL"}, nil
	}

	switch {
	case market.IsBinary():
		if out.Kind != rule.OutcomeBinary {
			return resolveRequest{}, fmt.Errorf("outcome %s not valid for a binary market", out)
		}
		switch {
		case out.Probability >= 100:
			return resolveRequest{Outcome: "YES"}, nil
		case out.Probability <= 0:
			return resolveRequest{Outcome: "NO"}, nil
		default:
			pct := int(math.Round(out.Probability))
			return resolveRequest{Outcome: "MKT", ProbabilityInt: &pct}, nil
		}

	case market.IsNumeric():
		if out.Kind != rule.OutcomeNumeric {
			return resolveRequest{}, fmt.Errorf("outcome %s not valid for a numeric market", out)
		}
		if out.Value < market.Min || out.Value > market.Max {
			return resolveRequest{}, fmt.Errorf("value %g outside market range [%g, %g]", out.Value, market.Min, market.Max)
		}
		v := out.Value
		// The API wants the value's position in the range as a percentage
		// alongside the value itself.
		var pct int
		if market.Max > market.Min {
			pct = int(math.Round((v - market.Min) / (market.Max - market.Min) * 100))
		}
		return resolveRequest{Outcome: "MKT", Value: &v, ProbabilityInt: &pct}, nil

	case market.IsFreeResponse():
		switch out.Kind {
		case rule.OutcomeAnswer:
			if out.AnswerIndex < 0 || out.AnswerIndex >= len(market.Answers) {
				return resolveRequest{}, fmt.Errorf("answer index %d out of range (%d answers)", out.AnswerIndex, len(market.Answers))
			}
			return resolveRequest{Outcome: strconv.Itoa(out.AnswerIndex)}, nil
		case rule.OutcomeWeights:
			resolutions, err := normalizeWeights(market, out.Weights)
			if err != nil {
				return resolveRequest{}, err
			}
			return resolveRequest{Outcome: "MKT", Resolutions: resolutions}, nil
		default:
			return resolveRequest{}, fmt.Errorf("outcome %s not valid for a free-response market", out)
		}

	default:
		return resolveRequest{}, fmt.Errorf("unsupported market type %q", market.OutcomeType)
	}
}

// normalizeWeights scales an arbitrary non-negative weight map into
// percentages summing 100, dropping zero weights. Output is ordered by
// answer index so payloads are deterministic.
func normalizeWeights(market rule.Context, weights map[int]float64) ([]answerResolution, error) {
	var total float64
	indices := make([]int, 0, len(weights))
	for idx, w := range weights {
		if idx < 0 || idx >= len(market.Answers) {
			return nil, fmt.Errorf("weight for answer index %d out of range (%d answers)", idx, len(market.Answers))
		}
		if w < 0 {
			return nil, fmt.Errorf("negative weight %g for answer %d", w, idx)
		}
		if w > 0 {
			indices = append(indices, idx)
			total += w
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("weights sum to zero")
	}
	sort.Ints(indices)

	resolutions := make([]answerResolution, 0, len(indices))
	for _, idx := range indices {
		resolutions = append(resolutions, answerResolution{
			Answer: idx,
			Pct:    weights[idx] / total * 100,
		})
	}
	return resolutions, nil
}
