package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonnyspicer/mango"

	"resolvent/internal/config"
	"resolvent/internal/db"
	"resolvent/internal/engine"
	"resolvent/internal/journal"
	"resolvent/internal/manifold"
	"resolvent/internal/report"
	"resolvent/internal/rule"
	"resolvent/internal/scheduler"
)

func main() {
	// Parse CLI flags.
	dryRun := flag.Bool("dry-run", false, "Evaluate and journal decisions without calling the resolve API")
	once := flag.Bool("once", false, "Run a single evaluation cycle and exit")
	market := flag.String("market", "", "Only evaluate the market with this id or slug (pairs well with -once)")
	flag.Parse()

	// Load MANIFOLD_API_KEY from .env if present.
	_ = godotenv.Load()

	// Load configuration.
	configPath := "config.toml"
	if p := os.Getenv("RESOLVENT_CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel),
	})))

	slog.Info("resolvent starting")

	// Initialize database.
	database, err := db.Open(cfg.General.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database initialized", "path", cfg.General.DBPath)

	// Build rule chains for each tracked market.
	markets, err := buildMarkets(cfg)
	if err != nil {
		slog.Error("failed to build rule chains", "error", err)
		os.Exit(1)
	}
	if *market != "" {
		markets = filterMarkets(markets, *market)
		if len(markets) == 0 {
			slog.Error("market not found in config", "market", *market)
			os.Exit(1)
		}
	}
	if len(markets) == 0 {
		slog.Error("no markets configured")
		os.Exit(1)
	}
	slog.Info("markets registered", "count", len(markets))

	// Manifold collaborators. The decision engine never sees these; the
	// scheduler wires lookups and resolutions around it.
	mc := mango.DefaultClientInstance()
	fetcher := manifold.NewFetcher(mc)
	resolver := manifold.NewResolver(cfg.Manifold.BaseURL, os.Getenv("MANIFOLD_API_KEY"))
	cache := manifold.NewCache(cfg.Schedule.CacheTTL.Duration)
	jrnl := journal.New(database)
	tracker := report.NewTracker(database)

	sched := scheduler.New(fetcher, resolver, cache, jrnl, tracker, markets, cfg.Schedule, cfg.General.DryRun || *dryRun)

	// Graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if *once {
		sched.RunOnce(ctx)
		slog.Info("single cycle complete")
		return
	}

	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	slog.Info("resolvent stopped")
}

func buildMarkets(cfg *config.Config) ([]scheduler.TrackedMarket, error) {
	markets := make([]scheduler.TrackedMarket, 0, len(cfg.Markets))
	for _, mc := range cfg.Markets {
		gates, err := rule.BuildGates(mc.Gates)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", mc.Ref(), err)
		}
		values, err := rule.BuildValues(mc.Values)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", mc.Ref(), err)
		}
		markets = append(markets, scheduler.TrackedMarket{
			Cfg:       mc,
			Evaluator: engine.New(gates, values),
		})
	}
	return markets, nil
}

// filterMarkets keeps only the market declared with the given id or slug.
func filterMarkets(markets []scheduler.TrackedMarket, ref string) []scheduler.TrackedMarket {
	var out []scheduler.TrackedMarket
	for _, m := range markets {
		if m.Cfg.ID == ref || m.Cfg.Slug == ref {
			out = append(out, m)
		}
	}
	return out
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
