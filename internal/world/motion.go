package world

import (
	"math"

	"robotarena-sim/internal/geometry"
)

// View is the read-only face of the world handed to agents while they move.
type View interface {
	Size() (width, height float64)
	Obstacles() []*Obstacle
	Agents() []Agent
}

// pathClear reports whether a can travel in a straight line from its current
// position to dst without leaving the arena or crossing an obstacle or another
// agent. Obstacles are grown by the agent radius, other agents by twice that.
func pathClear(v View, a Agent, dst geometry.Point) bool {
	w, h := v.Size()
	if !geometry.Inside(dst, w, h) {
		return false
	}
	from := a.Position()
	r := a.Radius()
	for _, o := range v.Obstacles() {
		if geometry.SegmentIntersectsRect(from, dst, o.Bounds().Expand(r)) {
			return false
		}
	}
	for _, other := range v.Agents() {
		if other.ID() == a.ID() {
			continue
		}
		if geometry.SegmentIntersectsRect(from, dst, geometry.SquareAround(other.Position(), 2*r)) {
			return false
		}
	}
	return true
}

// advance computes the position a reaches this tick when travelling at speed
// along its orientation. Each axis is resolved on its own so an agent blocked
// in one direction can still slide along the other; a blocked axis is probed
// in increments of step. The result is clamped to the arena.
func advance(v View, a Agent, speed, step float64) geometry.Point {
	pos := a.Position()
	proposed := pos.Add(geometry.Polar(a.Orientation(), speed))

	x := resolveAxis(pos.X, proposed.X, step, func(nx float64) bool {
		return pathClear(v, a, geometry.Point{X: nx, Y: pos.Y})
	})
	y := resolveAxis(pos.Y, proposed.Y, step, func(ny float64) bool {
		return pathClear(v, a, geometry.Point{X: pos.X, Y: ny})
	})
	w, h := v.Size()
	return geometry.ClampPoint(geometry.Point{X: x, Y: y}, w, h)
}

// resolveAxis returns to when clear(to) holds, otherwise the furthest
// increment of step from `from` towards `to` that stays clear.
func resolveAxis(from, to, step float64, clear func(float64) bool) float64 {
	if clear(to) {
		return to
	}
	delta := to - from
	if delta == 0 || step <= 0 {
		return from
	}
	inc := math.Copysign(step, delta)
	reached := from
	for next := from; math.Abs(next-from) <= math.Abs(delta); next += inc {
		if !clear(next) {
			break
		}
		reached = next
	}
	return reached
}

func clampToArena(v View, p geometry.Point) geometry.Point {
	w, h := v.Size()
	return geometry.ClampPoint(p, w, h)
}
