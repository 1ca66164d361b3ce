package world

import "robotarena-sim/internal/geometry"

// Obstacle is a static square footprint centred on Position.
type Obstacle struct {
	ID       int
	Position geometry.Point
	Size     float64
}

// NewObstacle creates an obstacle with edge length size.
func NewObstacle(id int, pos geometry.Point, size float64) *Obstacle {
	return &Obstacle{ID: id, Position: pos, Size: size}
}

// Bounds returns the axis-aligned square covered by the obstacle.
func (o *Obstacle) Bounds() geometry.Rect {
	return geometry.SquareAround(o.Position, o.Size/2)
}

// SetPosition moves the obstacle.
func (o *Obstacle) SetPosition(p geometry.Point) { o.Position = p }

// SetSize changes the obstacle edge length.
func (o *Obstacle) SetSize(size float64) { o.Size = size }

// ObstacleSpec describes an obstacle to be created.
type ObstacleSpec struct {
	ID   int     `json:"id" yaml:"id"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Size float64 `json:"size" yaml:"size"`
}

// Build creates the obstacle described by s.
func (s ObstacleSpec) Build() *Obstacle {
	return NewObstacle(s.ID, geometry.Point{X: s.X, Y: s.Y}, s.Size)
}

// Spec describes o.
func (o *Obstacle) Spec() ObstacleSpec {
	return ObstacleSpec{ID: o.ID, X: o.Position.X, Y: o.Position.Y, Size: o.Size}
}
