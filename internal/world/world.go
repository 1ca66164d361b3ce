// Package world owns the arena model: obstacles, agents and their motion policies.
package world

import (
	"errors"
	"fmt"

	"robotarena-sim/internal/geometry"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// ErrDuplicateID is returned when adding an entity whose id is already taken.
var ErrDuplicateID = errors.New("duplicate id")

// World is the single owner of every agent and obstacle in the arena.
// It is not safe for concurrent use; callers serialise access.
type World struct {
	width, height float64
	agents        []Agent
	obstacles     []*Obstacle
	remotes       []*RemoteAgent
}

// New returns an empty world. Non-positive dimensions fall back to 800x600.
func New(width, height float64) *World {
	w := &World{}
	w.SetSize(width, height)
	return w
}

// Size returns the arena width and height.
func (w *World) Size() (float64, float64) { return w.width, w.height }

// Width returns the arena width.
func (w *World) Width() float64 { return w.width }

// Height returns the arena height.
func (w *World) Height() float64 { return w.height }

// SetSize changes the arena dimensions.
func (w *World) SetSize(width, height float64) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	w.width, w.height = width, height
}

// Bounds returns the arena rectangle.
func (w *World) Bounds() geometry.Rect {
	return geometry.Rect{MaxX: w.width, MaxY: w.height}
}

// AddAgent appends a to the world, clamping its position to the arena.
func (w *World) AddAgent(a Agent) error {
	if w.Agent(a.ID()) != nil {
		return fmt.Errorf("agent %d: %w", a.ID(), ErrDuplicateID)
	}
	a.SetPosition(geometry.ClampPoint(a.Position(), w.width, w.height))
	w.agents = append(w.agents, a)
	if r, ok := a.(*RemoteAgent); ok {
		w.remotes = append(w.remotes, r)
	}
	return nil
}

// AddObstacle appends o to the world.
func (w *World) AddObstacle(o *Obstacle) error {
	if w.Obstacle(o.ID) != nil {
		return fmt.Errorf("obstacle %d: %w", o.ID, ErrDuplicateID)
	}
	w.obstacles = append(w.obstacles, o)
	return nil
}

// RemoveAgent deletes the agent with id and reports whether it existed.
func (w *World) RemoveAgent(id int) bool {
	for i, a := range w.agents {
		if a.ID() != id {
			continue
		}
		w.agents = append(w.agents[:i], w.agents[i+1:]...)
		for j, r := range w.remotes {
			if r.ID() == id {
				w.remotes = append(w.remotes[:j], w.remotes[j+1:]...)
				break
			}
		}
		return true
	}
	return false
}

// RemoveObstacle deletes the obstacle with id and reports whether it existed.
func (w *World) RemoveObstacle(id int) bool {
	for i, o := range w.obstacles {
		if o.ID == id {
			w.obstacles = append(w.obstacles[:i], w.obstacles[i+1:]...)
			return true
		}
	}
	return false
}

// Agents returns the agents in insertion order.
func (w *World) Agents() []Agent { return w.agents }

// Obstacles returns the obstacles in insertion order.
func (w *World) Obstacles() []*Obstacle { return w.obstacles }

// RemoteAgents returns the remote-controlled agents in insertion order.
func (w *World) RemoteAgents() []*RemoteAgent { return w.remotes }

// Agent finds an agent by id, or nil.
func (w *World) Agent(id int) Agent {
	for _, a := range w.agents {
		if a.ID() == id {
			return a
		}
	}
	return nil
}

// Obstacle finds an obstacle by id, or nil.
func (w *World) Obstacle(id int) *Obstacle {
	for _, o := range w.obstacles {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Remote finds a remote-controlled agent by id, or nil.
func (w *World) Remote(id int) *RemoteAgent {
	for _, r := range w.remotes {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// Clear removes every agent and obstacle. The arena size is kept.
func (w *World) Clear() {
	w.agents = nil
	w.obstacles = nil
	w.remotes = nil
}

// Collision pairs an agent with the obstacle it overlaps.
type Collision struct {
	Agent    Agent
	Obstacle *Obstacle
}

// Collisions returns, for every agent, the first obstacle whose centre lies
// closer than the agent radius plus half the obstacle size.
func (w *World) Collisions() []Collision {
	var out []Collision
	for _, a := range w.agents {
		for _, o := range w.obstacles {
			if geometry.Distance(a.Position(), o.Position) < a.Radius()+o.Size/2 {
				out = append(out, Collision{Agent: a, Obstacle: o})
				break
			}
		}
	}
	return out
}
