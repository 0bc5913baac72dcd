package systems

import (
	"github.com/pthm-cable/forage/components"
)

// Collides reports whether an animal and a food overlap, treating both as
// circles whose radii sum to radius. Touching counts as a hit.
func Collides(animal, food components.Position, radius float32) bool {
	return WrappedDistance(animal, food) <= radius
}
