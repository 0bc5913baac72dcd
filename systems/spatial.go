// Package systems provides the geometry, vision, movement and collision
// rules of the simulation on the unit torus.
package systems

import (
	"math"

	"github.com/pthm-cable/forage/components"
)

// WrapUnit maps a coordinate onto [0, 1).
func WrapUnit(v float32) float32 {
	w := v - float32(math.Floor(float64(v)))
	// Tiny negatives round up to exactly 1 in float32.
	if w >= 1 || w < 0 {
		return 0
	}
	return w
}

// ToroidalDelta returns the shortest path delta from a to b on the unit torus.
func ToroidalDelta(a, b components.Position) (dx, dy float32) {
	dx = b.X - a.X
	dy = b.Y - a.Y

	if dx > 0.5 {
		dx -= 1
	} else if dx < -0.5 {
		dx += 1
	}
	if dy > 0.5 {
		dy -= 1
	} else if dy < -0.5 {
		dy += 1
	}

	return dx, dy
}

// WrappedDistance returns the shortest distance between a and b on the unit torus.
// It is symmetric: WrappedDistance(a, b) == WrappedDistance(b, a).
func WrappedDistance(a, b components.Position) float32 {
	dx, dy := ToroidalDelta(a, b)
	return float32(math.Hypot(float64(dx), float64(dy)))
}
