package world

import (
	"math"

	"robotarena-sim/internal/geometry"
)

// AutonomousAgent senses the arena with a fan of rays and turns away from
// anything it sees.
type AutonomousAgent struct {
	body
	// AvoidanceAngle is the rotation applied whenever an obstacle, another
	// agent or the arena edge is sensed.
	AvoidanceAngle float64

	avoiding bool
}

func (a *AutonomousAgent) Kind() Kind { return KindAutonomous }

// Avoiding reports whether the last Move triggered an avoidance rotation.
func (a *AutonomousAgent) Avoiding() bool { return a.avoiding }

// HandleCollision turns the agent by its avoidance angle.
func (a *AutonomousAgent) HandleCollision() { a.Rotate(a.AvoidanceAngle) }

// Move runs one sense, react and advance cycle.
func (a *AutonomousAgent) Move(v View) {
	a.avoiding = a.Detect(v)
	if a.avoiding {
		a.HandleCollision()
	}
	a.pos = advance(v, a, a.speed, a.params.StepSize)
}

// Detect reports whether any sensor ray hits an obstacle or another agent, or
// whether the arena edge lies within sensor range.
func (a *AutonomousAgent) Detect(v View) bool {
	return a.rayHit(v) || a.EdgeInRange(v)
}

func (a *AutonomousAgent) rayHit(v View) bool {
	obstacles := v.Obstacles()
	agents := v.Agents()
	if len(obstacles) == 0 && len(agents) <= 1 {
		return false
	}
	r := a.params.Radius
	reach := a.sensorRange + r
	for _, offset := range a.sensorOffsets() {
		end := a.pos.Add(geometry.Polar(a.orientation+offset, reach))
		for _, o := range obstacles {
			if geometry.SegmentIntersectsRect(a.pos, end, o.Bounds().Expand(r)) {
				return true
			}
		}
		for _, other := range agents {
			if other.ID() == a.id {
				continue
			}
			if geometry.SegmentIntersectsRect(a.pos, end, geometry.SquareAround(other.Position(), 2*r)) {
				return true
			}
		}
	}
	return false
}

// sensorOffsets lists the ray angles relative to the heading, from
// -SensorHalfAngle to +SensorHalfAngle in SensorStep increments.
func (a *AutonomousAgent) sensorOffsets() []float64 {
	half := math.Abs(a.params.SensorHalfAngle)
	step := a.params.SensorStep
	if step <= 0 {
		return []float64{0}
	}
	n := int(math.Floor(2*half/step + 1e-9))
	offsets := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		offsets = append(offsets, -half+float64(i)*step)
	}
	return offsets
}

// EdgeInRange probes three points at sensor range, straight ahead and at
// plus and minus EdgeProbeAngle, and reports whether any lies outside the arena.
func (a *AutonomousAgent) EdgeInRange(v View) bool {
	w, h := v.Size()
	probe := a.params.EdgeProbeAngle
	for _, offset := range []float64{-probe, 0, probe} {
		p := a.pos.Add(geometry.Polar(a.orientation+offset, a.sensorRange))
		if !geometry.Inside(p, w, h) {
			return true
		}
	}
	return false
}
