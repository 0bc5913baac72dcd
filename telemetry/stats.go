// Package telemetry records per-generation fitness statistics, step timing
// and run history.
package telemetry

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GenerationStats summarizes the fitness of one concluded generation.
type GenerationStats struct {
	Generation int     `csv:"generation"`
	Animals    int     `csv:"animals"`
	Min        float64 `csv:"min_fitness"`
	Max        float64 `csv:"max_fitness"`
	Avg        float64 `csv:"avg_fitness"`
	Std        float64 `csv:"std_fitness"` // population standard deviation
	Meals      int     `csv:"meals"`       // total food eaten
}

// ComputeGenerationStats summarizes the fitness values of a population.
// An empty population yields zero statistics.
func ComputeGenerationStats(generation int, fitness []float64) GenerationStats {
	s := GenerationStats{Generation: generation, Animals: len(fitness)}
	if len(fitness) == 0 {
		return s
	}

	s.Min = floats.Min(fitness)
	s.Max = floats.Max(fitness)
	s.Avg, s.Std = stat.PopMeanStdDev(fitness, nil)
	s.Meals = int(floats.Sum(fitness))
	return s
}

// String returns the one-line summary reported by a fast-forward.
func (s GenerationStats) String() string {
	return fmt.Sprintf("generation=%d min=%.4f max=%.4f avg=%.4f", s.Generation, s.Min, s.Max, s.Avg)
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("animals", s.Animals),
		slog.Float64("min", s.Min),
		slog.Float64("max", s.Max),
		slog.Float64("avg", s.Avg),
		slog.Float64("std", s.Std),
		slog.Int("meals", s.Meals),
	)
}

// LogStats logs the generation summary on the given logger.
func (s GenerationStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("generation",
		"generation", s.Generation,
		"min", s.Min,
		"max", s.Max,
		"avg", s.Avg,
		"std", s.Std,
		"meals", s.Meals,
	)
}
