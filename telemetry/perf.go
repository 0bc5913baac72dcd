package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for a simulation step.
const (
	PhaseMovement  = "movement"  // vision, brain and kinematics for every animal
	PhaseCollision = "collision" // feeding and food relocation
)

var phases = []string{PhaseMovement, PhaseCollision}

// stepSample holds timing data for a single step.
type stepSample struct {
	total  time.Duration
	phases map[string]time.Duration
}

// PerfCollector tracks step timing over a rolling window.
// All methods are safe to call on a nil collector.
type PerfCollector struct {
	windowSize  int
	samples     []stepSample
	writeIndex  int
	sampleCount int

	current    map[string]time.Duration
	stepStart  time.Time
	phaseStart time.Time
	lastPhase  string
}

// NewPerfCollector creates a collector averaging over windowSize steps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 100
	}
	return &PerfCollector{
		windowSize: windowSize,
		samples:    make([]stepSample, windowSize),
		current:    make(map[string]time.Duration),
	}
}

// StartStep begins timing a new step.
func (p *PerfCollector) StartStep() {
	if p == nil {
		return
	}
	p.stepStart = time.Now()
	p.current = make(map[string]time.Duration, len(phases))
	p.lastPhase = ""
}

// StartPhase ends the previous phase, if any, and begins timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	if p == nil {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndStep closes the current phase and records the sample.
func (p *PerfCollector) EndStep() {
	if p == nil {
		return
	}
	now := time.Now()
	if p.lastPhase != "" {
		p.current[p.lastPhase] += now.Sub(p.phaseStart)
		p.lastPhase = ""
	}

	p.samples[p.writeIndex] = stepSample{total: now.Sub(p.stepStart), phases: p.current}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated step timing.
type PerfStats struct {
	AvgStep      time.Duration
	MinStep      time.Duration
	MaxStep      time.Duration
	StepsPerSec  float64
	PhasePct     map[string]float64 // share of the average step, in percent
	SampledSteps int
}

// Stats aggregates the samples currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{PhasePct: make(map[string]float64)}
	if p == nil || p.sampleCount == 0 {
		return out
	}

	var total time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.total
		if i == 0 || s.total < out.MinStep {
			out.MinStep = s.total
		}
		if s.total > out.MaxStep {
			out.MaxStep = s.total
		}
		for phase, d := range s.phases {
			phaseSum[phase] += d
		}
	}

	out.SampledSteps = p.sampleCount
	out.AvgStep = total / time.Duration(p.sampleCount)
	if total > 0 {
		out.StepsPerSec = float64(p.sampleCount) / total.Seconds()
		for phase, d := range phaseSum {
			out.PhasePct[phase] = float64(d) / float64(total) * 100
		}
	}
	return out
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_step_us", s.AvgStep.Microseconds()),
		slog.Int64("min_step_us", s.MinStep.Microseconds()),
		slog.Int64("max_step_us", s.MaxStep.Microseconds()),
		slog.Float64("steps_per_sec", s.StepsPerSec),
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of step timing.
type PerfStatsCSV struct {
	Generation   int     `csv:"generation"`
	AvgStepUS    int64   `csv:"avg_step_us"`
	MinStepUS    int64   `csv:"min_step_us"`
	MaxStepUS    int64   `csv:"max_step_us"`
	StepsPerSec  float64 `csv:"steps_per_sec"`
	MovementPct  float64 `csv:"movement_pct"`
	CollisionPct float64 `csv:"collision_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(generation int) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:   generation,
		AvgStepUS:    s.AvgStep.Microseconds(),
		MinStepUS:    s.MinStep.Microseconds(),
		MaxStepUS:    s.MaxStep.Microseconds(),
		StepsPerSec:  s.StepsPerSec,
		MovementPct:  s.PhasePct[PhaseMovement],
		CollisionPct: s.PhasePct[PhaseCollision],
	}
}
