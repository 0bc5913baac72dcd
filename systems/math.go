package systems

import "math"

const twoPi = 2 * math.Pi

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// NormalizeAngle wraps an angle to (-Pi, Pi].
func NormalizeAngle(angle float64) float64 {
	angle = math.Mod(angle, twoPi)
	if angle > math.Pi {
		angle -= twoPi
	} else if angle <= -math.Pi {
		angle += twoPi
	}
	return angle
}

// NormalizeHeading wraps a heading to [0, 2*Pi).
func NormalizeHeading(h float32) float32 {
	r := math.Mod(float64(h), twoPi)
	if r < 0 {
		r += twoPi
	}
	out := float32(r)
	// float32(2π) rounds above 2π, so values just below it collapse onto it.
	if out >= float32(twoPi) {
		return 0
	}
	return out
}
