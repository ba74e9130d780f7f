// Package scheduler drives the periodic decide-then-resolve loop over the
// configured markets. It owns the wiring between the market source, the
// rule evaluators, the resolve client, and the journal; the evaluators
// themselves stay free of I/O.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"resolvent/internal/config"
	"resolvent/internal/engine"
	"resolvent/internal/journal"
	"resolvent/internal/manifold"
	"resolvent/internal/report"
	"resolvent/internal/rule"
)

// MarketSource produces decision contexts; implemented by manifold.Fetcher.
type MarketSource interface {
	FromID(id string) (rule.Context, error)
	FromSlug(slug string) (rule.Context, error)
}

// ResolutionClient performs the irreversible resolve call; implemented by
// manifold.Resolver.
type ResolutionClient interface {
	Resolve(ctx context.Context, market rule.Context, out rule.Outcome) (*manifold.Acknowledgement, error)
}

// TrackedMarket pairs one configured market with its rule evaluator.
type TrackedMarket struct {
	Cfg       config.MarketConfig
	Evaluator *engine.Evaluator
}

// Scheduler runs the evaluation and snapshot loops.
type Scheduler struct {
	source   MarketSource
	resolver ResolutionClient
	cache    *manifold.Cache
	journal  *journal.Journal
	tracker  *report.Tracker
	markets  []TrackedMarket
	cfg      config.ScheduleConfig
	dryRun   bool
	failures map[string]int // market ref -> consecutive resolve failures
}

func New(
	source MarketSource,
	resolver ResolutionClient,
	cache *manifold.Cache,
	jrnl *journal.Journal,
	tracker *report.Tracker,
	markets []TrackedMarket,
	cfg config.ScheduleConfig,
	dryRun bool,
) *Scheduler {
	return &Scheduler{
		source:   source,
		resolver: resolver,
		cache:    cache,
		journal:  jrnl,
		tracker:  tracker,
		markets:  markets,
		cfg:      cfg,
		dryRun:   dryRun,
		failures: make(map[string]int),
	}
}

// Run starts the periodic loops and blocks until the context is
// cancelled. The first evaluation cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting",
		"markets", len(s.markets),
		"eval_interval", s.cfg.EvalInterval.Duration,
		"snapshot_interval", s.cfg.SnapshotInterval.Duration,
		"dry_run", s.dryRun,
	)

	s.RunOnce(ctx)

	evalTicker := time.NewTicker(s.cfg.EvalInterval.Duration)
	snapshotTicker := time.NewTicker(s.cfg.SnapshotInterval.Duration)
	reportTicker := time.NewTicker(s.cfg.ReportInterval.Duration)
	defer evalTicker.Stop()
	defer snapshotTicker.Stop()
	defer reportTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler shutting down")
			return ctx.Err()
		case <-evalTicker.C:
			s.RunOnce(ctx)
		case <-snapshotTicker.C:
			s.runSnapshots()
		case <-reportTicker.C:
			s.runReport()
		}
	}
}

// RunOnce evaluates every tracked market a single time. Cancellation is
// checked between market iterations; one in-flight market finishes.
func (s *Scheduler) RunOnce(ctx context.Context) {
	slog.Info("starting evaluation cycle")
	for _, tm := range s.markets {
		select {
		case <-ctx.Done():
			slog.Info("evaluation cycle interrupted")
			return
		default:
		}
		s.evaluate(ctx, tm)
	}
	slog.Info("evaluation cycle complete")
}

func (s *Scheduler) evaluate(ctx context.Context, tm TrackedMarket) {
	ref := tm.Cfg.Ref()

	if limit := s.cfg.MaxFailures; limit > 0 && s.failures[ref] >= limit {
		slog.Info("skipping blacklisted market", "market", ref, "failures", s.failures[ref])
		return
	}

	// One snapshot per cycle: the gate phase and the value phase below
	// both see this context.
	mctx, err := s.fetch(tm.Cfg)
	if err != nil {
		slog.Error("failed to fetch market", "market", ref, "error", err)
		return
	}
	// Notes and numeric bounds live in the market declaration, not in
	// the fetched payload.
	mctx.Notes = tm.Cfg.Notes
	mctx.Min = tm.Cfg.Min
	mctx.Max = tm.Cfg.Max

	s.cache.Set(mctx)
	if err := s.journal.UpsertMarket(mctx); err != nil {
		slog.Warn("failed to upsert market", "market", mctx.ID, "error", err)
	}

	eligible, err := tm.Evaluator.ShouldResolve(mctx)
	if err != nil {
		slog.Error("gate evaluation failed, leaving market unresolved", "market", mctx.ID, "error", err)
		s.recordDecision(mctx.ID, false, rule.None(), err)
		return
	}
	if !eligible {
		slog.Debug("market not eligible to resolve", "market", mctx.ID)
		return
	}

	out, err := tm.Evaluator.ResolveTo(mctx)
	if err != nil {
		slog.Error("value evaluation failed, leaving market unresolved", "market", mctx.ID, "error", err)
		s.recordDecision(mctx.ID, true, rule.None(), err)
		return
	}

	decisionID := s.recordDecision(mctx.ID, true, out, nil)

	slog.Info("market eligible to resolve",
		"market", mctx.ID,
		"question", mctx.Question,
		"outcome", out.String(),
	)

	if s.dryRun {
		slog.Info("dry run: skipping resolve call", "market", mctx.ID, "outcome", out.String())
		return
	}

	ack, err := s.resolver.Resolve(ctx, mctx, out)
	if jerr := s.journal.RecordAttempt(decisionID, mctx.ID, out, ack, err); jerr != nil {
		slog.Warn("failed to record resolution attempt", "market", mctx.ID, "error", jerr)
	}

	if err != nil {
		if isPermanent(err) {
			s.failures[ref] = s.cfg.MaxFailures
			slog.Warn("market blacklisted after permanent failure", "market", mctx.ID, "error", err)
		} else {
			s.failures[ref]++
		}
		slog.Error("resolve failed",
			"market", mctx.ID,
			"error", err,
			"consecutive_failures", s.failures[ref],
		)
		return
	}
	delete(s.failures, ref)

	slog.Info("market resolved",
		"market", mctx.ID,
		"outcome", out.String(),
		"status", ack.StatusCode,
	)
}

func (s *Scheduler) fetch(cfg config.MarketConfig) (rule.Context, error) {
	if cfg.ID != "" {
		return s.source.FromID(cfg.ID)
	}
	return s.source.FromSlug(cfg.Slug)
}

func (s *Scheduler) recordDecision(marketID string, eligible bool, out rule.Outcome, evalErr error) string {
	id, err := s.journal.RecordDecision(marketID, eligible, out, evalErr)
	if err != nil {
		slog.Warn("failed to record decision", "market", marketID, "error", err)
	}
	return id
}

func (s *Scheduler) runSnapshots() {
	contexts := s.cache.All()
	taken := 0
	for _, c := range contexts {
		if err := s.journal.Snapshot(c); err != nil {
			slog.Warn("failed to snapshot market", "market", c.ID, "error", err)
			continue
		}
		taken++
	}
	slog.Info("snapshot cycle complete", "snapshots", taken)
}

func (s *Scheduler) runReport() {
	r, err := s.tracker.Generate()
	if err != nil {
		slog.Error("failed to generate report", "error", err)
		return
	}
	r.Log()
}

// isPermanent reports whether a resolve failure cannot be fixed by
// retrying, e.g. the key lacks permission or the market rejected the
// outcome shape.
func isPermanent(err error) bool {
	return errors.Is(err, manifold.ErrNotFound) ||
		errors.Is(err, manifold.ErrUnauthorized) ||
		errors.Is(err, manifold.ErrRejected)
}
