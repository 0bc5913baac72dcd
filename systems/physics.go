package systems

import (
	"math"

	"github.com/pthm-cable/forage/components"
)

// Kinematics holds the rates that turn brain outputs into motion.
type Kinematics struct {
	SpeedMin      float32
	SpeedMax      float32
	SpeedAccel    float32
	RotationAccel float32
}

// Steer applies brain outputs (Δspeed, Δrotation) to speed and heading.
// Outputs are unbounded; the clamp to [SpeedMin, SpeedMax] and the heading
// wrap happen here.
func (k Kinematics) Steer(speed, heading float32, out []float32) (float32, float32) {
	speed = clampFloat(speed+out[0]*k.SpeedAccel, k.SpeedMin, k.SpeedMax)
	heading = NormalizeHeading(heading + out[1]*k.RotationAccel)
	return speed, heading
}

// Advance moves a position along heading by speed and wraps it onto the torus.
func Advance(pos components.Position, heading, speed float32) components.Position {
	sin, cos := math.Sincos(float64(heading))
	return components.Position{
		X: WrapUnit(pos.X + float32(cos)*speed),
		Y: WrapUnit(pos.Y + float32(sin)*speed),
	}
}
