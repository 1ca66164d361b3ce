package world

import (
	"errors"
	"fmt"

	"robotarena-sim/internal/geometry"
)

// Kind tags the motion policy of an agent.
type Kind string

const (
	KindAutonomous Kind = "autonomous"
	KindRemote     Kind = "remote"
)

// ErrUnknownKind is returned for agent types other than autonomous or remote.
var ErrUnknownKind = errors.New("unknown agent kind")

// ParseKind converts a scene or API token into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindAutonomous, KindRemote:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Agent is the capability set shared by every robot variant.
type Agent interface {
	ID() int
	Kind() Kind
	Position() geometry.Point
	Orientation() float64
	Speed() float64
	SensorRange() float64
	Radius() float64
	TaskCompleted() bool

	SetPosition(geometry.Point)
	SetOrientation(deg float64)
	SetSpeed(float64)
	SetSensorRange(float64)
	SetTaskCompleted(bool)

	// Move advances the agent by one tick against a read-only view of the world.
	Move(v View)
	Rotate(deg float64)
	HandleCollision()
}

// Params carries the tuning shared by all agents of a world.
type Params struct {
	Radius          float64
	AvoidanceAngle  float64
	SensorHalfAngle float64
	SensorStep      float64
	EdgeProbeAngle  float64
	TurnRate        float64
	StepSize        float64
}

// DefaultParams returns the tuning used when no configuration is supplied.
func DefaultParams() Params {
	return Params{
		Radius:          10,
		AvoidanceAngle:  45,
		SensorHalfAngle: 30,
		SensorStep:      2,
		EdgeProbeAngle:  15,
		TurnRate:        5,
		StepSize:        0.5,
	}
}

// Spec describes an agent to be created, as read from a scene or an API call.
type Spec struct {
	Kind        Kind    `json:"kind" yaml:"kind"`
	ID          int     `json:"id" yaml:"id"`
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	Speed       float64 `json:"speed" yaml:"speed"`
	Orientation float64 `json:"orientation" yaml:"orientation"`
	SensorRange float64 `json:"sensor_range" yaml:"sensor_range"`
}

// SpecOf describes an existing agent.
func SpecOf(a Agent) Spec {
	p := a.Position()
	return Spec{
		Kind:        a.Kind(),
		ID:          a.ID(),
		X:           p.X,
		Y:           p.Y,
		Speed:       a.Speed(),
		Orientation: a.Orientation(),
		SensorRange: a.SensorRange(),
	}
}

// NewAgent builds the agent variant named by spec.Kind.
func NewAgent(spec Spec, p Params) (Agent, error) {
	b := body{
		id:          spec.ID,
		pos:         geometry.Point{X: spec.X, Y: spec.Y},
		orientation: geometry.NormalizeDegrees(spec.Orientation),
		speed:       spec.Speed,
		sensorRange: spec.SensorRange,
		params:      p,
	}
	switch spec.Kind {
	case KindAutonomous:
		return &AutonomousAgent{body: b, AvoidanceAngle: p.AvoidanceAngle}, nil
	case KindRemote:
		return &RemoteAgent{body: b, TurnRate: p.TurnRate}, nil
	}
	return nil, fmt.Errorf("agent %d: %w: %q", spec.ID, ErrUnknownKind, spec.Kind)
}

// body holds the pose and kinematics common to both variants.
type body struct {
	id            int
	pos           geometry.Point
	orientation   float64
	speed         float64
	sensorRange   float64
	taskCompleted bool
	params        Params
}

func (b *body) ID() int { return b.id }
func (b *body) Position() geometry.Point { return b.pos }
func (b *body) Orientation() float64 { return b.orientation }
func (b *body) Speed() float64 { return b.speed }
func (b *body) SensorRange() float64 { return b.sensorRange }
func (b *body) Radius() float64 { return b.params.Radius }
func (b *body) TaskCompleted() bool { return b.taskCompleted }
func (b *body) SetPosition(p geometry.Point) { b.pos = p }
func (b *body) SetSpeed(v float64) { b.speed = v }
func (b *body) SetSensorRange(r float64) { b.sensorRange = r }
func (b *body) SetTaskCompleted(done bool) { b.taskCompleted = done }

// SetOrientation stores deg normalised into [0,360).
func (b *body) SetOrientation(deg float64) { b.orientation = geometry.NormalizeDegrees(deg) }

// Rotate turns the agent by deg, wrapping the result into [0,360).
func (b *body) Rotate(deg float64) { b.orientation = geometry.NormalizeDegrees(b.orientation + deg) }
