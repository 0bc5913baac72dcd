package main

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/simulation"
)

// FitnessEvaluator runs headless simulations and scores parameter vectors.
// Lower is better: the score is the negated mean meal count of the final
// generations, averaged over seeds.
type FitnessEvaluator struct {
	params      *ParamVector
	generations int
	tail        int // generations averaged at the end of each run
	seeds       []int64
	baseConfig  *config.Config
	logger      *slog.Logger

	mu          sync.Mutex
	bestFitness float64
	lastAvg     float64 // mean fitness from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, generations int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		generations: generations,
		tail:        max(generations/5, 1),
		seeds:       seeds,
		baseConfig:  baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// LastAvg returns the mean tail fitness from the most recent evaluation.
func (fe *FitnessEvaluator) LastAvg() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastAvg
}

// Evaluate computes the score for a raw parameter vector. Each seed runs
// its own simulation in parallel. A configuration that fails validation
// scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	if err := cfg.Finalize(); err != nil {
		return math.Inf(1)
	}

	results := make([]float64, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total float64
	for i, r := range results {
		if errs[i] != nil {
			return math.Inf(1)
		}
		total += r
	}
	avg := total / float64(len(fe.seeds))
	fitness := -avg

	fe.mu.Lock()
	fe.lastAvg = avg
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.mu.Unlock()

	return fitness
}

// runSimulation returns the mean average fitness over the last tail generations.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) (float64, error) {
	sim, err := simulation.New(cfg, rand.New(rand.NewSource(seed)), simulation.Options{Logger: fe.logger})
	if err != nil {
		return 0, err
	}

	var sum float64
	for g := 0; g < fe.generations; g++ {
		stats, err := sim.RunGeneration()
		if err != nil {
			return 0, err
		}
		if g >= fe.generations-fe.tail {
			sum += stats.Avg
		}
	}
	return sum / float64(fe.tail), nil
}

// copyConfig returns a copy of the base config safe to modify.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	c := *fe.baseConfig
	c.Derived.Topology = append([]int(nil), fe.baseConfig.Derived.Topology...)
	return &c
}
