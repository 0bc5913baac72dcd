// Package genetic implements a generational genetic algorithm over flat
// float chromosomes: roulette-wheel selection, uniform crossover and
// per-gene mutation.
package genetic

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	ErrEmptyPopulation = errors.New("population is empty")
	ErrLengthMismatch  = errors.New("chromosome lengths differ")
)

// Chromosome is a flat ordered gene sequence.
type Chromosome []float32

// Clone returns an independent copy.
func (c Chromosome) Clone() Chromosome {
	return append(Chromosome(nil), c...)
}

// Individual pairs a chromosome with the fitness it earned.
type Individual struct {
	Chromosome Chromosome
	Fitness    float64
}

// Selector picks the index of one parent from the population.
type Selector interface {
	Select(rng *rand.Rand, population []Individual) int
}

// Crossover combines two parents into one child.
type Crossover interface {
	Crossover(rng *rand.Rand, a, b Chromosome) Chromosome
}

// Mutator perturbs a child in place.
type Mutator interface {
	Mutate(rng *rand.Rand, child Chromosome)
}

// Algorithm wires the three operators together. There is no elitism: the
// fittest individual survives only if it is selected again.
type Algorithm struct {
	Selection Selector
	Crossover Crossover
	Mutation  Mutator
}

// New returns the default algorithm: roulette wheel, uniform crossover and
// uniform mutation with the given chance and weight.
func New(mutationChance, mutationWeight float32) *Algorithm {
	return &Algorithm{
		Selection: RouletteWheel{},
		Crossover: UniformCrossover{},
		Mutation:  UniformMutation{Chance: mutationChance, Weight: mutationWeight},
	}
}

// Evolve produces the next generation: one child per input slot, in order.
// For each child the RNG is consumed as: parent A, parent B, crossover, mutation.
func (ga *Algorithm) Evolve(rng *rand.Rand, population []Individual) ([]Chromosome, error) {
	if len(population) == 0 {
		return nil, ErrEmptyPopulation
	}
	size := len(population[0].Chromosome)
	for i := range population {
		if len(population[i].Chromosome) != size {
			return nil, fmt.Errorf("%w: individual %d has %d genes, want %d",
				ErrLengthMismatch, i, len(population[i].Chromosome), size)
		}
	}

	next := make([]Chromosome, len(population))
	for i := range next {
		a := ga.Selection.Select(rng, population)
		b := ga.Selection.Select(rng, population)
		child := ga.Crossover.Crossover(rng, population[a].Chromosome, population[b].Chromosome)
		ga.Mutation.Mutate(rng, child)
		next[i] = child
	}
	return next, nil
}
