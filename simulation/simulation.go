// Package simulation runs the forage world: animals steered by evolved
// brains search a unit torus for food, and a genetic algorithm breeds the
// next generation from how much each animal ate.
package simulation

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/genetic"
	"github.com/pthm-cable/forage/systems"
	"github.com/pthm-cable/forage/telemetry"
)

// MealEvent describes one animal eating one food.
type MealEvent struct {
	Animal   int     // animal index
	Food     int     // food index
	Distance float32 // wrapped distance at the moment of the hit
}

// Options holds optional collaborators.
type Options struct {
	Logger *slog.Logger             // defaults to slog.Default()
	OnMeal func(MealEvent)          // called for every hit, in processing order
	Perf   *telemetry.PerfCollector // step timing, may be nil
}

// Simulation owns one world, its random source and its configuration.
// It is not safe for concurrent use.
type Simulation struct {
	cfg    *config.Config
	rng    *rand.Rand
	logger *slog.Logger
	onMeal func(MealEvent)
	perf   *telemetry.PerfCollector

	world      *ecs.World
	animalMap  *ecs.Map5[components.Position, components.Heading, components.Speed, components.Brain, components.Fitness]
	foodMap    *ecs.Map2[components.Position, components.Food]
	posMap     *ecs.Map1[components.Position]
	fitnessMap *ecs.Map1[components.Fitness]

	// Entity order is the animal and food index order.
	animals []ecs.Entity
	foods   []ecs.Entity

	eye        systems.Eye
	kinematics systems.Kinematics
	ga         *genetic.Algorithm
	generation int

	foodBuf []components.Position
}

// New validates cfg and builds a world of random animals and foods.
// cfg is copied; later changes to it do not affect the simulation.
func New(cfg *config.Config, rng *rand.Rand, opts Options) (*Simulation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalidConfig)
	}
	if rng == nil {
		return nil, errors.New("simulation: nil random source")
	}
	c := *cfg
	if err := c.Finalize(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	world := ecs.NewWorld()
	s := &Simulation{
		cfg:    &c,
		rng:    rng,
		logger: logger,
		onMeal: opts.OnMeal,
		perf:   opts.Perf,
		world:  world,
		animalMap: ecs.NewMap5[
			components.Position,
			components.Heading,
			components.Speed,
			components.Brain,
			components.Fitness,
		](world),
		foodMap:    ecs.NewMap2[components.Position, components.Food](world),
		posMap:     ecs.NewMap1[components.Position](world),
		fitnessMap: ecs.NewMap1[components.Fitness](world),
		eye: systems.Eye{
			FovRange: c.Animal.Eye.FovRange,
			FovAngle: c.Animal.Eye.FovAngle,
			Cells:    c.Animal.Eye.Cells,
		},
		kinematics: systems.Kinematics{
			SpeedMin:      c.Derived.SpeedMin32,
			SpeedMax:      c.Derived.SpeedMax32,
			SpeedAccel:    c.Derived.SpeedAccel32,
			RotationAccel: c.Derived.RotationAccel32,
		},
		ga:      genetic.New(c.Derived.MutationChance32, c.Derived.MutationWeight32),
		animals: make([]ecs.Entity, 0, c.World.NumAnimals),
		foods:   make([]ecs.Entity, 0, c.World.NumFoods),
		foodBuf: make([]components.Position, c.World.NumFoods),
	}

	for i := 0; i < c.World.NumAnimals; i++ {
		a := randomAnimal(rng, s.cfg)
		s.animals = append(s.animals, s.animalMap.NewEntity(
			&a.Position,
			&components.Heading{Angle: a.Heading},
			&components.Speed{Value: a.Speed},
			&components.Brain{Net: a.Brain},
			&components.Fitness{},
		))
	}
	for i := 0; i < c.World.NumFoods; i++ {
		pos := randomPosition(rng)
		s.foods = append(s.foods, s.foodMap.NewEntity(&pos, &components.Food{}))
	}

	logger.Debug("simulation created",
		"animals", len(s.animals),
		"foods", len(s.foods),
		"topology", c.Derived.Topology,
	)
	return s, nil
}

// Config returns the validated configuration. Callers must not modify it.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// Generation returns the number of completed evolutions.
func (s *Simulation) Generation() int {
	return s.generation
}

// Step advances the world by one tick: every animal looks, thinks and
// moves, then every animal in index order eats the foods it touches.
func (s *Simulation) Step() {
	s.perf.StartStep()

	s.perf.StartPhase(telemetry.PhaseMovement)
	foods := s.foodPositions()
	for _, e := range s.animals {
		pos, heading, speed, brain, _ := s.animalMap.Get(e)
		vision := s.eye.Process(*pos, heading.Angle, foods)
		out := brain.Net.Forward(vision)
		speed.Value, heading.Angle = s.kinematics.Steer(speed.Value, heading.Angle, out)
		*pos = systems.Advance(*pos, heading.Angle, speed.Value)
	}

	s.perf.StartPhase(telemetry.PhaseCollision)
	s.collide()

	s.perf.EndStep()
}

// collide feeds animals in index order. A food that is eaten moves
// immediately, so later animals test it at its new position.
func (s *Simulation) collide() {
	radius := s.cfg.Derived.CollisionRadius
	for i, e := range s.animals {
		pos := s.posMap.Get(e)
		fitness := s.fitnessMap.Get(e)
		for j, f := range s.foods {
			food := s.posMap.Get(f)
			if !systems.Collides(*pos, *food, radius) {
				continue
			}
			fitness.Meals++
			if s.onMeal != nil {
				s.onMeal(MealEvent{Animal: i, Food: j, Distance: systems.WrappedDistance(*pos, *food)})
			}
			*food = randomPosition(s.rng)
		}
	}
}

func (s *Simulation) foodPositions() []components.Position {
	for i, f := range s.foods {
		s.foodBuf[i] = *s.posMap.Get(f)
	}
	return s.foodBuf
}

// Evolve ends the current generation. The population is bred from the
// animals' meal counts and replaces the current animals, each starting with
// zero meals. It returns statistics for the generation that just ended,
// labelled with the new generation counter. On error nothing changes.
func (s *Simulation) Evolve() (telemetry.GenerationStats, error) {
	population := make([]genetic.Individual, len(s.animals))
	fitness := make([]float64, len(s.animals))
	for i, e := range s.animals {
		_, _, _, brain, meals := s.animalMap.Get(e)
		fitness[i] = float64(meals.Meals)
		population[i] = genetic.Individual{
			Chromosome: ToChromosome(brain.Net),
			Fitness:    fitness[i],
		}
	}

	next, err := s.ga.Evolve(s.rng, population)
	if err != nil {
		return telemetry.GenerationStats{}, fmt.Errorf("evolving generation %d: %w", s.generation, err)
	}

	born := make([]Animal, len(next))
	for i, genes := range next {
		a, err := FromChromosome(s.rng, s.cfg, genes)
		if err != nil {
			return telemetry.GenerationStats{}, fmt.Errorf("evolving generation %d: child %d: %w", s.generation, i, err)
		}
		born[i] = a
	}

	for i, e := range s.animals {
		pos, heading, speed, brain, meals := s.animalMap.Get(e)
		*pos = born[i].Position
		heading.Angle = born[i].Heading
		speed.Value = born[i].Speed
		brain.Net = born[i].Brain
		meals.Meals = 0
	}
	if s.cfg.Simulation.ScatterFoodsOnEvolve {
		for _, f := range s.foods {
			*s.posMap.Get(f) = randomPosition(s.rng)
		}
	}

	s.generation++
	stats := telemetry.ComputeGenerationStats(s.generation, fitness)
	s.logger.Debug("generation evolved", "stats", stats)
	return stats, nil
}

// RunGeneration calls Step steps_per_generation times, then Evolve once.
// It blocks for the whole batch.
func (s *Simulation) RunGeneration() (telemetry.GenerationStats, error) {
	for i := 0; i < s.cfg.Simulation.StepsPerGeneration; i++ {
		s.Step()
	}
	return s.Evolve()
}

// FastForward runs one full generation and returns its summary line,
// "generation=<n> min=<f> max=<f> avg=<f>".
func (s *Simulation) FastForward() (string, error) {
	stats, err := s.RunGeneration()
	if err != nil {
		return "", err
	}
	return stats.String(), nil
}

// Fitness returns each animal's meal count in index order.
func (s *Simulation) Fitness() []int {
	out := make([]int, len(s.animals))
	for i, e := range s.animals {
		out[i] = s.fitnessMap.Get(e).Meals
	}
	return out
}

// Animals returns value copies of every animal in index order. Brains are cloned.
func (s *Simulation) Animals() []Animal {
	out := make([]Animal, len(s.animals))
	for i, e := range s.animals {
		pos, heading, speed, brain, meals := s.animalMap.Get(e)
		out[i] = Animal{
			Position: *pos,
			Heading:  heading.Angle,
			Speed:    speed.Value,
			Brain:    brain.Net.Clone(),
			Meals:    meals.Meals,
		}
	}
	return out
}
