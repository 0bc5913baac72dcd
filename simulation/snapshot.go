package simulation

// FoodView is the rendered state of one food.
type FoodView struct {
	X, Y float32
}

// AnimalView is the rendered state of one animal.
type AnimalView struct {
	X, Y     float32
	Rotation float32
}

// Snapshot is a read-only copy of the world for a renderer. It shares no
// memory with the simulation.
type Snapshot struct {
	Generation int
	Animals    []AnimalView
	Foods      []FoodView
}

// Snapshot copies the current positions in index order.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Generation: s.generation,
		Animals:    make([]AnimalView, len(s.animals)),
		Foods:      make([]FoodView, len(s.foods)),
	}
	for i, e := range s.animals {
		pos, heading, _, _, _ := s.animalMap.Get(e)
		snap.Animals[i] = AnimalView{X: pos.X, Y: pos.Y, Rotation: heading.Angle}
	}
	for i, f := range s.foods {
		pos := s.posMap.Get(f)
		snap.Foods[i] = FoodView{X: pos.X, Y: pos.Y}
	}
	return snap
}
