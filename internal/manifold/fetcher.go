package manifold

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonnyspicer/mango"

	"resolvent/internal/rule"
)

// Fetcher is the market source collaborator: it turns a Manifold market
// id or slug into a populated decision context. It wraps the mango client
// and performs no caching of its own.
type Fetcher struct {
	client *mango.Client
}

func NewFetcher(client *mango.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FromID fetches a market snapshot by its Manifold id.
func (f *Fetcher) FromID(id string) (rule.Context, error) {
	m, err := f.client.GetMarketByID(id)
	if err != nil {
		return rule.Context{}, classifyFetchErr(id, err)
	}
	if m == nil {
		return rule.Context{}, fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	return contextFromMarket(*m), nil
}

// FromSlug fetches a market snapshot by its URL slug.
func (f *Fetcher) FromSlug(slug string) (rule.Context, error) {
	m, err := f.client.GetMarketBySlug(slug)
	if err != nil {
		return rule.Context{}, classifyFetchErr(slug, err)
	}
	if m == nil {
		return rule.Context{}, fmt.Errorf("market %s: %w", slug, ErrNotFound)
	}
	return contextFromMarket(*m), nil
}

// classifyFetchErr maps mango errors onto the sentinel taxonomy. The SDK
// surfaces HTTP failures as errors containing "status NNN".
func classifyFetchErr(ref string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "status 404"):
		return fmt.Errorf("market %s: %w", ref, ErrNotFound)
	case strings.Contains(msg, "status 401"), strings.Contains(msg, "status 403"):
		return fmt.Errorf("market %s: %w", ref, ErrUnauthorized)
	default:
		return fmt.Errorf("market %s: %w: %v", ref, ErrNetwork, err)
	}
}

func contextFromMarket(m mango.FullMarket) rule.Context {
	// Numeric bounds are absent here: the full-market payload does not
	// carry them, so they come from the market's declaration instead.
	ctx := rule.Context{
		ID:          m.Id,
		Question:    m.Question,
		OutcomeType: string(m.OutcomeType),
		IsResolved:  m.IsResolved,
		Resolution:  m.Resolution,
		CloseTime:   time.UnixMilli(m.CloseTime),
		CreatedTime: time.UnixMilli(m.CreatedTime),
		URL:         m.Url,
	}

	// The API reports a probability for every market; it is only the
	// primary signal on binary markets.
	if ctx.OutcomeType == rule.OutcomeTypeBinary {
		p := m.Probability
		ctx.Probability = &p
	}

	if len(m.Answers) > 0 {
		ctx.Answers = make([]rule.Answer, 0, len(m.Answers))
		for i, a := range m.Answers {
			ctx.Answers = append(ctx.Answers, rule.Answer{
				Index:       i,
				ID:          a.Id,
				Text:        a.Text,
				Probability: a.Probability,
			})
		}
	}

	return ctx
}
