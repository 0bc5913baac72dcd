package simulation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/pthm-cable/forage/components"
	"github.com/pthm-cable/forage/config"
	"github.com/pthm-cable/forage/systems"
	"github.com/pthm-cable/forage/telemetry"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// smallConfig returns a fast world: few animals, a short generation.
func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.World.NumAnimals = 8
	cfg.World.NumFoods = 12
	cfg.Simulation.StepsPerGeneration = 50
	return cfg
}

func newSim(t testing.TB, cfg *config.Config, seed int64, opts Options) *Simulation {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quiet
	}
	s, err := New(cfg, rand.New(rand.NewSource(seed)), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"zero speed accel", func(c *config.Config) { c.Simulation.SpeedAccel = 0 }},
		{"negative rotation accel", func(c *config.Config) { c.Simulation.RotationAccel = -1 }},
		{"zero mutation chance", func(c *config.Config) { c.Simulation.MutationChance = 0 }},
		{"no cells", func(c *config.Config) { c.Animal.Eye.Cells = 0 }},
		{"no animals", func(c *config.Config) { c.World.NumAnimals = 0 }},
		{"no foods", func(c *config.Config) { c.World.NumFoods = 0 }},
		{"zero fov range", func(c *config.Config) { c.Animal.Eye.FovRange = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.modify(cfg)
			s, err := New(cfg, rand.New(rand.NewSource(1)), Options{Logger: quiet})
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
			if s != nil {
				t.Error("expected no simulation on invalid config")
			}
		})
	}

	if _, err := New(nil, rand.New(rand.NewSource(1)), Options{}); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("nil config err = %v, want ErrInvalidConfig", err)
	}
	if _, err := New(smallConfig(), nil, Options{}); err == nil {
		t.Error("expected error for nil random source")
	}
}

func TestNewPopulation(t *testing.T) {
	cfg := smallConfig()
	s := newSim(t, cfg, 42, Options{})

	snap := s.Snapshot()
	if len(snap.Animals) != cfg.World.NumAnimals || len(snap.Foods) != cfg.World.NumFoods {
		t.Fatalf("got %d animals, %d foods", len(snap.Animals), len(snap.Foods))
	}
	for i, a := range s.Animals() {
		if a.Speed != float32(cfg.Animal.Speed) {
			t.Errorf("animal %d speed = %v, want %v", i, a.Speed, cfg.Animal.Speed)
		}
		if a.Meals != 0 {
			t.Errorf("animal %d starts with %d meals", i, a.Meals)
		}
		if a.Heading < 0 || a.Heading >= 2*math.Pi {
			t.Errorf("animal %d heading %v outside [0, 2π)", i, a.Heading)
		}
		if got := a.Brain.Topology(); got[0] != cfg.Animal.Eye.Cells || got[1] != 2*cfg.Animal.Eye.Cells || got[2] != 2 {
			t.Errorf("animal %d topology = %v", i, got)
		}
	}
	if s.Generation() != 0 {
		t.Errorf("Generation = %d, want 0", s.Generation())
	}
}

func TestNewDoesNotModifyConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Animal.HiddenNeurons = 5
	cfg.Derived.Topology = nil
	s := newSim(t, cfg, 1, Options{})

	if cfg.Derived.Topology != nil {
		t.Error("New modified the caller's config")
	}
	if got := s.Config().Derived.Topology; got[1] != 5 {
		t.Errorf("hidden width = %d, want 5", got[1])
	}
}

func TestStepInvariants(t *testing.T) {
	cfg := smallConfig()
	s := newSim(t, cfg, 42, Options{})

	for step := 0; step < 200; step++ {
		s.Step()
		for i, a := range s.Animals() {
			if a.Position.X < 0 || a.Position.X >= 1 || a.Position.Y < 0 || a.Position.Y >= 1 {
				t.Fatalf("step %d: animal %d at %v, outside the unit square", step, i, a.Position)
			}
			if a.Speed < float32(cfg.Simulation.SpeedMin) || a.Speed > float32(cfg.Simulation.SpeedMax) {
				t.Fatalf("step %d: animal %d speed %v outside range", step, i, a.Speed)
			}
			if a.Heading < 0 || a.Heading >= 2*math.Pi {
				t.Fatalf("step %d: animal %d heading %v outside [0, 2π)", step, i, a.Heading)
			}
		}
		for i, f := range s.Snapshot().Foods {
			if f.X < 0 || f.X >= 1 || f.Y < 0 || f.Y >= 1 {
				t.Fatalf("step %d: food %d at %v, outside the unit square", step, i, f)
			}
		}
	}
}

func TestFitnessMonotonicAndReset(t *testing.T) {
	cfg := smallConfig()
	cfg.Animal.Radius = 0.05
	cfg.Food.Radius = 0.05
	s := newSim(t, cfg, 7, Options{})

	prev := s.Fitness()
	for step := 0; step < 300; step++ {
		s.Step()
		cur := s.Fitness()
		for i := range cur {
			if cur[i] < prev[i] {
				t.Fatalf("step %d: animal %d fitness fell from %d to %d", step, i, prev[i], cur[i])
			}
		}
		prev = cur
	}

	total := 0
	for _, f := range prev {
		total += f
	}
	if total == 0 {
		t.Fatal("no animal ate with large radii; test is not exercising collisions")
	}

	stats, err := s.Evolve()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Meals != total {
		t.Errorf("stats.Meals = %d, want %d", stats.Meals, total)
	}
	for i, f := range s.Fitness() {
		if f != 0 {
			t.Errorf("animal %d fitness = %d after evolve, want 0", i, f)
		}
	}
}

func TestMealEvents(t *testing.T) {
	cfg := smallConfig()
	cfg.Animal.Radius = 0.04
	cfg.Food.Radius = 0.04
	var events []MealEvent
	s := newSim(t, cfg, 3, Options{OnMeal: func(e MealEvent) { events = append(events, e) }})

	for step := 0; step < 200; step++ {
		s.Step()
	}

	total := 0
	for _, f := range s.Fitness() {
		total += f
	}
	if len(events) != total {
		t.Fatalf("%d meal events, total fitness %d", len(events), total)
	}
	perAnimal := make([]int, cfg.World.NumAnimals)
	for _, e := range events {
		if e.Distance > s.Config().Derived.CollisionRadius {
			t.Errorf("meal at distance %v beyond radius", e.Distance)
		}
		if e.Food < 0 || e.Food >= cfg.World.NumFoods {
			t.Errorf("meal of food %d out of range", e.Food)
		}
		perAnimal[e.Animal]++
	}
	for i, f := range s.Fitness() {
		if perAnimal[i] != f {
			t.Errorf("animal %d: %d events, fitness %d", i, perAnimal[i], f)
		}
	}
}

// Two animals, one food, omnidirectional single-cell eye and fixed speed.
// Every hit is checked against the positions seen from outside.
func TestEndToEndTwoAnimalsOneFood(t *testing.T) {
	cfg := config.Default()
	cfg.World.NumAnimals = 2
	cfg.World.NumFoods = 1
	cfg.Animal.Eye.FovRange = 1.0
	cfg.Animal.Eye.FovAngle = 2 * math.Pi
	cfg.Animal.Eye.Cells = 1
	cfg.Simulation.SpeedMin = 0.01
	cfg.Simulation.SpeedMax = 0.01
	cfg.Animal.Speed = 0.01
	cfg.Animal.Radius = 0.05
	cfg.Food.Radius = 0.05
	radius := float32(0.1)

	var stepEvents []MealEvent
	s := newSim(t, cfg, 2024, Options{OnMeal: func(e MealEvent) { stepEvents = append(stepEvents, e) }})

	hits := 0
	for step := 0; step < 100; step++ {
		before := s.Snapshot().Foods[0]
		stepEvents = stepEvents[:0]
		s.Step()
		after := s.Snapshot()

		// The food sits at its pre-step position until someone eats it.
		// After that, the next animal that does not eat sees its final position.
		food := components.Position{X: before.X, Y: before.Y}
		known := true
		for i, a := range after.Animals {
			pos := components.Position{X: a.X, Y: a.Y}
			ate := false
			for _, e := range stepEvents {
				if e.Animal == i {
					ate = true
					if e.Distance > radius {
						t.Fatalf("step %d animal %d ate at distance %v", step, i, e.Distance)
					}
				}
			}

			switch {
			case known:
				d := systems.WrappedDistance(pos, food)
				if ate != (d <= radius) {
					t.Fatalf("step %d animal %d: ate=%v but distance %v (radius %v)", step, i, ate, d, radius)
				}
			case !ate:
				settled := components.Position{X: after.Foods[0].X, Y: after.Foods[0].Y}
				if d := systems.WrappedDistance(pos, settled); d <= radius {
					t.Fatalf("step %d animal %d missed a food at distance %v", step, i, d)
				}
			}
			if ate {
				hits++
				known = false
			}
		}
	}

	total := 0
	for _, f := range s.Fitness() {
		total += f
	}
	if total != hits {
		t.Errorf("total fitness %d, observed hits %d", total, hits)
	}
}

func TestSeededReproducible(t *testing.T) {
	run := func() ([]string, Snapshot) {
		s := newSim(t, smallConfig(), 99, Options{})
		var lines []string
		for g := 0; g < 3; g++ {
			line, err := s.FastForward()
			if err != nil {
				t.Fatal(err)
			}
			lines = append(lines, line)
		}
		return lines, s.Snapshot()
	}

	linesA, snapA := run()
	linesB, snapB := run()
	for i := range linesA {
		if linesA[i] != linesB[i] {
			t.Errorf("generation %d: %q vs %q", i, linesA[i], linesB[i])
		}
	}
	for i := range snapA.Animals {
		if snapA.Animals[i] != snapB.Animals[i] {
			t.Fatalf("animal %d differs: %+v vs %+v", i, snapA.Animals[i], snapB.Animals[i])
		}
	}
	for i := range snapA.Foods {
		if snapA.Foods[i] != snapB.Foods[i] {
			t.Fatalf("food %d differs: %+v vs %+v", i, snapA.Foods[i], snapB.Foods[i])
		}
	}
}

func TestFastForward(t *testing.T) {
	s := newSim(t, smallConfig(), 5, Options{})
	for g := 1; g <= 3; g++ {
		line, err := s.FastForward()
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(line, "generation=") || !strings.Contains(line, " min=") ||
			!strings.Contains(line, " max=") || !strings.Contains(line, " avg=") {
			t.Errorf("unexpected summary %q", line)
		}
		if want := fmt.Sprintf("generation=%d ", g); !strings.HasPrefix(line, want) {
			t.Errorf("summary %q does not start with %q", line, want)
		}
		if s.Generation() != g {
			t.Errorf("Generation = %d, want %d", s.Generation(), g)
		}
	}
}

func TestEvolveKeepsShape(t *testing.T) {
	cfg := smallConfig()
	s := newSim(t, cfg, 11, Options{})
	foodsBefore := s.Snapshot().Foods

	for i := 0; i < 20; i++ {
		s.Step()
	}
	stats, err := s.Evolve()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Generation != 1 || stats.Animals != cfg.World.NumAnimals {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Min > stats.Avg || stats.Avg > stats.Max {
		t.Errorf("min %v, avg %v, max %v out of order", stats.Min, stats.Avg, stats.Max)
	}

	animals := s.Animals()
	if len(animals) != cfg.World.NumAnimals {
		t.Fatalf("population changed to %d", len(animals))
	}
	for i, a := range animals {
		if a.Speed != float32(cfg.Animal.Speed) {
			t.Errorf("animal %d speed = %v, want initial", i, a.Speed)
		}
		if len(ToChromosome(a.Brain)) != len(ToChromosome(animals[0].Brain)) {
			t.Errorf("animal %d chromosome length differs", i)
		}
	}
	if got := len(s.Snapshot().Foods); got != len(foodsBefore) {
		t.Errorf("food count changed to %d", got)
	}
}

func TestEvolveScatterFoods(t *testing.T) {
	cfg := smallConfig()
	cfg.Simulation.ScatterFoodsOnEvolve = true
	s := newSim(t, cfg, 13, Options{})
	before := s.Snapshot().Foods

	if _, err := s.Evolve(); err != nil {
		t.Fatal(err)
	}
	after := s.Snapshot().Foods
	moved := 0
	for i := range before {
		if before[i] != after[i] {
			moved++
		}
	}
	if moved != len(before) {
		t.Errorf("%d of %d foods moved, want all", moved, len(before))
	}
}

func TestSnapshotIsolated(t *testing.T) {
	s := newSim(t, smallConfig(), 17, Options{})
	snap := s.Snapshot()
	x := snap.Animals[0].X
	snap.Animals[0].X = 5
	snap.Foods[0].Y = 5

	again := s.Snapshot()
	if again.Animals[0].X != x || again.Foods[0].Y == 5 {
		t.Error("snapshot shares memory with the simulation")
	}

	animals := s.Animals()
	animals[0].Brain.Layers[0].Weights[0] = 999
	if s.Animals()[0].Brain.Layers[0].Weights[0] == 999 {
		t.Error("Animals shares brains with the simulation")
	}
}

func TestPerfCollectorWired(t *testing.T) {
	perf := telemetry.NewPerfCollector(10)
	s := newSim(t, smallConfig(), 19, Options{Perf: perf})
	for i := 0; i < 4; i++ {
		s.Step()
	}
	if got := perf.Stats().SampledSteps; got != 4 {
		t.Errorf("SampledSteps = %d, want 4", got)
	}
}

func BenchmarkStep(b *testing.B) {
	s := newSim(b, config.Default(), 42, Options{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Step()
	}
}
