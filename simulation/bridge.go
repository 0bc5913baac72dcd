package simulation

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/genetic"
	"github.com/pthm-cable/forage/neural"
	"github.com/pthm-cable/forage/systems"
)

// Animal is the value form of an animal entity.
type Animal struct {
	Position components.Position
	Heading  float32
	Speed    float32
	Brain    *neural.Network
	Meals    int
}

// ToChromosome flattens a brain into its gene sequence.
func ToChromosome(brain *neural.Network) genetic.Chromosome {
	return genetic.Chromosome(brain.Genes())
}

// FromChromosome builds a fresh animal around the brain encoded by genes:
// random position (x then y), random heading in [0, 2π), initial speed and
// no meals. It fails with neural.ErrShapeMismatch if genes do not fit the
// configured topology.
func FromChromosome(rng *rand.Rand, cfg *config.Config, genes genetic.Chromosome) (Animal, error) {
	brain, err := neural.FromGenes(cfg.Derived.Topology, genes)
	if err != nil {
		return Animal{}, fmt.Errorf("rebuilding brain: %w", err)
	}
	return spawn(rng, cfg, brain), nil
}

// randomAnimal draws a brain, then the body.
func randomAnimal(rng *rand.Rand, cfg *config.Config) Animal {
	return spawn(rng, cfg, neural.Random(rng, cfg.Derived.Topology))
}

func spawn(rng *rand.Rand, cfg *config.Config, brain *neural.Network) Animal {
	pos := randomPosition(rng)
	return Animal{
		Position: pos,
		Heading:  systems.NormalizeHeading(rng.Float32() * float32(2*math.Pi)),
		Speed:    cfg.Derived.InitialSpeed32,
		Brain:    brain,
	}
}

func randomPosition(rng *rand.Rand) components.Position {
	x := rng.Float32()
	y := rng.Float32()
	return components.Position{X: x, Y: y}
}
