package genetic

import (
	"math/rand"
)

// RouletteWheel implements fitness-proportionate selection.
// When total fitness is zero it falls back to a uniform pick.
type RouletteWheel struct{}

// Select spins the wheel once and returns the chosen index.
func (RouletteWheel) Select(rng *rand.Rand, population []Individual) int {
	// Calculate cumulative fitness scores
	cumulative := make([]float64, len(population))
	total := 0.0
	for i, ind := range population {
		if ind.Fitness > 0 {
			total += ind.Fitness
		}
		cumulative[i] = total
	}

	if total <= 0 {
		return rng.Intn(len(population))
	}

	spin := rng.Float64() * total
	for i, cum := range cumulative {
		if cum > spin {
			return i
		}
	}

	// Rounding can leave spin == total; take the last individual with weight.
	for i := len(population) - 1; i >= 0; i-- {
		if population[i].Fitness > 0 {
			return i
		}
	}
	return len(population) - 1
}

// UniformCrossover takes each gene from either parent with probability 0.5,
// flipping a fresh coin per gene.
type UniformCrossover struct{}

// Crossover returns a new child; parents are not modified.
func (UniformCrossover) Crossover(rng *rand.Rand, a, b Chromosome) Chromosome {
	if len(a) != len(b) {
		panic("genetic: crossover of chromosomes with different lengths")
	}
	child := make(Chromosome, len(a))
	for i := range a {
		if rng.Float64() < 0.5 {
			child[i] = a[i]
		} else {
			child[i] = b[i]
		}
	}
	return child
}

// UniformMutation adds Weight * U(-1, 1) to each gene with probability Chance.
type UniformMutation struct {
	Chance float32 // Probability each gene mutates, in [0, 1]
	Weight float32 // Maximum absolute perturbation
}

// Mutate perturbs child in place. Genes not selected are unchanged.
func (m UniformMutation) Mutate(rng *rand.Rand, child Chromosome) {
	for i := range child {
		if rng.Float32() < m.Chance {
			child[i] += m.Weight * (rng.Float32()*2 - 1)
		}
	}
}
