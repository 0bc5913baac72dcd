package systems

import (
	"math"

	"github.com/pthm-cable/forage/components"
)

// Eye maps nearby food into a fixed number of angular sectors centred on
// the animal's heading.
type Eye struct {
	FovRange float64 // exclusive maximum distance
	FovAngle float64 // total field of view in radians, exclusive at both edges
	Cells    int
}

// Process returns one value per sector, each >= 0. A food contributes
// 1 - distance/FovRange to its sector; contributions sum without clamping.
// Foods are visited in slice order so results are reproducible.
func (e Eye) Process(pos components.Position, heading float32, foods []components.Position) []float32 {
	cells := make([]float32, e.Cells)
	halfFov := e.FovAngle / 2

	for _, food := range foods {
		dx, dy := ToroidalDelta(pos, food)
		dist := math.Hypot(float64(dx), float64(dy))
		if dist >= e.FovRange {
			continue
		}

		// Angle to food relative to heading
		angle := NormalizeAngle(math.Atan2(float64(dy), float64(dx)) - float64(heading))
		if math.Abs(angle) >= halfFov {
			continue
		}

		idx := e.sectorIndex(angle)
		cells[idx] += float32(1 - dist/e.FovRange)
	}

	return cells
}

// sectorIndex maps a relative angle in (-FovAngle/2, FovAngle/2) to a sector.
func (e Eye) sectorIndex(angle float64) int {
	idx := int(math.Floor((angle + e.FovAngle/2) / e.FovAngle * float64(e.Cells)))
	if idx < 0 {
		return 0
	}
	if idx >= e.Cells {
		return e.Cells - 1
	}
	return idx
}
