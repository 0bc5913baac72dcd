// Package components defines ECS components for the simulation.
package components

import (
	"github.com/pthm-cable/forage/neural"
)

// Position is a point on the unit torus, each coordinate in [0, 1).
type Position struct {
	X, Y float32
}

// Heading is an animal's rotation in radians, kept in [0, 2π).
type Heading struct {
	Angle float32
}

// Speed is the distance travelled per step, clamped to [speed_min, speed_max].
type Speed struct {
	Value float32
}

// Brain holds the animal's perception network.
type Brain struct {
	Net *neural.Network
}

// Fitness counts food eaten during the current generation.
type Fitness struct {
	Meals int
}

// Food marks a food entity.
type Food struct{}
