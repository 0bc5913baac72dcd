package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/simulation"
	"github.com/pthm-cable/forage/telemetry"
)

// runOptions holds the resolved command line.
type runOptions struct {
	ConfigPath  string
	Seed        int64
	Generations int // 0 = simulation.max_generation
	OutputDir   string
	HistoryDB   string
	Perf        bool
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	generations := flag.Int("generations", 0, "Stop after N generations (0 = simulation.max_generation)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	historyDB := flag.String("history-db", "", "SQLite file recording generation history (empty = disabled)")
	perf := flag.Bool("perf", false, "Collect step timing and write perf.csv")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := runOptions{
		ConfigPath:  *configPath,
		Seed:        *seed,
		Generations: *generations,
		OutputDir:   *outputDir,
		HistoryDB:   *historyDB,
		Perf:        *perf,
	}
	if err := run(ctx, logger, opts); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

// run evolves generations until the limit is reached or ctx is cancelled.
// Cancellation is checked between generations only.
func run(ctx context.Context, logger *slog.Logger, opts runOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	rngSeed := opts.Seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	limit := cfg.Simulation.MaxGeneration
	if opts.Generations > 0 {
		limit = opts.Generations
	}

	out, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		return err
	}

	var history *telemetry.HistoryStore
	if opts.HistoryDB != "" {
		history = telemetry.NewHistoryStore(opts.HistoryDB)
		if err := history.Init(ctx); err != nil {
			return err
		}
		defer history.Close()
		if err := history.RecordRun(ctx, rngSeed, cfg); err != nil {
			return err
		}
	}

	var perf *telemetry.PerfCollector
	if opts.Perf {
		perf = telemetry.NewPerfCollector(cfg.Simulation.StepsPerGeneration)
	}

	sim, err := simulation.New(cfg, rand.New(rand.NewSource(rngSeed)), simulation.Options{
		Logger: logger,
		Perf:   perf,
	})
	if err != nil {
		return err
	}

	logger.Info("starting simulation",
		"seed", rngSeed,
		"run_id", history.RunID(),
		"generations", limit,
		"steps_per_generation", cfg.Simulation.StepsPerGeneration,
		"animals", cfg.World.NumAnimals,
		"foods", cfg.World.NumFoods,
	)

	logEvery := max(cfg.Telemetry.LogEvery, 1)
	for sim.Generation() < limit {
		if err := ctx.Err(); err != nil {
			logger.Info("interrupted", "generation", sim.Generation())
			return nil
		}

		stats, err := sim.RunGeneration()
		if err != nil {
			return err
		}
		if stats.Generation%logEvery == 0 {
			stats.LogStats(logger)
			if perf != nil {
				logger.Info("perf", "generation", stats.Generation, "stats", perf.Stats())
			}
		}
		if err := out.WriteGeneration(stats); err != nil {
			return err
		}
		if perf != nil {
			if err := out.WritePerf(perf.Stats(), stats.Generation); err != nil {
				return err
			}
		}
		if err := history.RecordGeneration(ctx, stats); err != nil {
			return err
		}
	}

	logger.Info("generation limit reached", "generation", sim.Generation())
	return nil
}
