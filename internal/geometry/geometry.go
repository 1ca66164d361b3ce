// Package geometry holds the planar math shared by sensing and movement.
package geometry

import (
	"fmt"
	"math"
	"time"
)

// parallelEpsilon is the denominator magnitude below which two segments are
// treated as parallel.
const parallelEpsilon = 1e-6

// Point is a position in arena units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Polar returns the offset of length r along angleDeg.
func Polar(angleDeg, r float64) Point {
	rad := DegToRad(angleDeg)
	return Point{X: r * math.Cos(rad), Y: r * math.Sin(rad)}
}

// Rect is an axis-aligned rectangle. Min is the top-left corner in screen
// orientation (y grows downwards).
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// SquareAround returns the square centred on c with the given half extent.
func SquareAround(c Point, half float64) Rect {
	return Rect{MinX: c.X - half, MinY: c.Y - half, MaxX: c.X + half, MaxY: c.Y + half}
}

// Expand grows the rectangle outward by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{MinX: r.MinX - d, MinY: r.MinY - d, MaxX: r.MaxX + d, MaxY: r.MaxY + d}
}

// Contains reports whether p lies inside r, borders included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// SegmentsIntersect reports whether segment p1-p2 meets segment p3-p4.
//
// Parallel segments only count as intersecting when both lie on the same
// exactly horizontal or exactly vertical line and their extents overlap.
// Collinear diagonal segments are reported as disjoint.
func SegmentsIntersect(p1, p2, p3, p4 Point) bool {
	denom := (p4.Y-p3.Y)*(p2.X-p1.X) - (p4.X-p3.X)*(p2.Y-p1.Y)
	if math.Abs(denom) < parallelEpsilon {
		switch {
		case p4.Y-p3.Y == 0:
			if p1.Y != p3.Y {
				return false
			}
			return math.Max(p1.X, p2.X) >= math.Min(p3.X, p4.X) && math.Min(p1.X, p2.X) <= math.Max(p3.X, p4.X)
		case p4.X-p3.X == 0:
			if p1.X != p3.X {
				return false
			}
			return math.Max(p1.Y, p2.Y) >= math.Min(p3.Y, p4.Y) && math.Min(p1.Y, p2.Y) <= math.Max(p3.Y, p4.Y)
		}
		return false
	}
	ua := ((p4.X-p3.X)*(p1.Y-p3.Y) - (p4.Y-p3.Y)*(p1.X-p3.X)) / denom
	ub := ((p2.X-p1.X)*(p1.Y-p3.Y) - (p2.Y-p1.Y)*(p1.X-p3.X)) / denom
	return ua >= 0 && ua <= 1 && ub >= 0 && ub <= 1
}

// SegmentIntersectsRect reports whether segment p1-p2 crosses any side of r.
// A segment lying entirely inside r touches no side and is not reported.
func SegmentIntersectsRect(p1, p2 Point, r Rect) bool {
	topLeft := Point{X: r.MinX, Y: r.MinY}
	topRight := Point{X: r.MaxX, Y: r.MinY}
	bottomLeft := Point{X: r.MinX, Y: r.MaxY}
	bottomRight := Point{X: r.MaxX, Y: r.MaxY}
	return SegmentsIntersect(p1, p2, topLeft, topRight) ||
		SegmentsIntersect(p1, p2, bottomLeft, bottomRight) ||
		SegmentsIntersect(p1, p2, topLeft, bottomLeft) ||
		SegmentsIntersect(p1, p2, topRight, bottomRight)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeDegrees wraps deg into [0,360).
func NormalizeDegrees(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// d+360 can round up to exactly 360 for tiny negative inputs.
	if d >= 360 {
		d = 0
	}
	return d
}

// Clamp limits v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// ClampPoint limits p to [0,width]x[0,height].
func ClampPoint(p Point, width, height float64) Point {
	return Point{X: Clamp(p.X, 0, width), Y: Clamp(p.Y, 0, height)}
}

// Inside reports whether p lies within [0,width]x[0,height].
func Inside(p Point, width, height float64) bool {
	return p.X >= 0 && p.X <= width && p.Y >= 0 && p.Y <= height
}

// FormatElapsed renders d as HH:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
