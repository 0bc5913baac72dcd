package telemetry

import (
	"math"
	"testing"
)

func TestComputeGenerationStats(t *testing.T) {
	tests := []struct {
		name    string
		fitness []float64
		want    GenerationStats
	}{
		{
			name:    "empty",
			fitness: nil,
			want:    GenerationStats{Generation: 3},
		},
		{
			name:    "single",
			fitness: []float64{4},
			want:    GenerationStats{Generation: 3, Animals: 1, Min: 4, Max: 4, Avg: 4, Std: 0, Meals: 4},
		},
		{
			name:    "spread",
			fitness: []float64{2, 4, 4, 4, 5, 5, 7, 9},
			want:    GenerationStats{Generation: 3, Animals: 8, Min: 2, Max: 9, Avg: 5, Std: 2, Meals: 40},
		},
		{
			name:    "all starving",
			fitness: []float64{0, 0, 0},
			want:    GenerationStats{Generation: 3, Animals: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeGenerationStats(3, tt.fitness)
			if got.Generation != tt.want.Generation || got.Animals != tt.want.Animals || got.Meals != tt.want.Meals {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			for _, f := range []struct {
				name      string
				got, want float64
			}{
				{"min", got.Min, tt.want.Min},
				{"max", got.Max, tt.want.Max},
				{"avg", got.Avg, tt.want.Avg},
				{"std", got.Std, tt.want.Std},
			} {
				if math.Abs(f.got-f.want) > 1e-9 {
					t.Errorf("%s = %v, want %v", f.name, f.got, f.want)
				}
			}
		})
	}
}

func TestGenerationStatsString(t *testing.T) {
	s := GenerationStats{Generation: 12, Min: 0, Max: 7, Avg: 2.125}
	want := "generation=12 min=0.0000 max=7.0000 avg=2.1250"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
