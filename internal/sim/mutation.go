package sim

import (
	"fmt"

	"robotarena-sim/internal/geometry"
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/telemetry"
	"robotarena-sim/internal/world"
)

// mutation is a deferred change to the world.
type mutation struct {
	desc  string
	apply func() error
}

// AgentUpdate changes selected properties of an agent. Nil fields are kept.
type AgentUpdate struct {
	X             *float64 `json:"x,omitempty"`
	Y             *float64 `json:"y,omitempty"`
	Speed         *float64 `json:"speed,omitempty"`
	Orientation   *float64 `json:"orientation,omitempty"`
	SensorRange   *float64 `json:"sensor_range,omitempty"`
	TaskCompleted *bool    `json:"task_completed,omitempty"`
}

// ObstacleUpdate changes selected properties of an obstacle. Nil fields are kept.
type ObstacleUpdate struct {
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Size *float64 `json:"size,omitempty"`
}

// mutate applies m now when the simulation is not running and returns its
// error. While running, m is queued for the next tick boundary.
func (s *Simulator) mutate(m mutation) error {
	if s.state == Running {
		s.pending = append(s.pending, m)
		return nil
	}
	return s.applyMutation(m)
}

func (s *Simulator) applyMutation(m mutation) error {
	err := m.apply()
	ev := s.event(telemetry.EventMutation)
	ev.Detail = m.desc
	if err != nil {
		ev.Detail = fmt.Sprintf("%s failed: %v", m.desc, err)
		s.log.Warn("mutation failed", "mutation", m.desc, "err", err)
	}
	s.emit(ev)
	return err
}

func (s *Simulator) applyPending() {
	pending := s.pending
	s.pending = nil
	for _, m := range pending {
		_ = s.applyMutation(m)
	}
}

// Pending returns the number of queued mutations.
func (s *Simulator) Pending() int {
	s.lock()
	defer s.unlock()
	return len(s.pending)
}

// AddAgent creates an agent from spec. Unknown kinds fail at once; a
// duplicate id fails at once only when the change is applied immediately.
func (s *Simulator) AddAgent(spec world.Spec) error {
	s.lock()
	defer s.unlock()
	a, err := world.NewAgent(spec, s.params)
	if err != nil {
		return err
	}
	return s.mutate(mutation{
		desc:  fmt.Sprintf("add %s agent %d", spec.Kind, spec.ID),
		apply: func() error { return s.world.AddAgent(a) },
	})
}

// AddObstacle creates an obstacle from spec.
func (s *Simulator) AddObstacle(spec world.ObstacleSpec) error {
	s.lock()
	defer s.unlock()
	o := spec.Build()
	return s.mutate(mutation{
		desc:  fmt.Sprintf("add obstacle %d", spec.ID),
		apply: func() error { return s.world.AddObstacle(o) },
	})
}

// RemoveAgent deletes an agent by id and reports whether it currently exists.
func (s *Simulator) RemoveAgent(id int) bool {
	s.lock()
	defer s.unlock()
	exists := s.world.Agent(id) != nil
	_ = s.mutate(mutation{
		desc: fmt.Sprintf("remove agent %d", id),
		apply: func() error {
			if !s.world.RemoveAgent(id) {
				return fmt.Errorf("agent %d: %w", id, ErrUnknownAgent)
			}
			delete(s.avoiding, id)
			return nil
		},
	})
	return exists
}

// RemoveObstacle deletes an obstacle by id and reports whether it currently exists.
func (s *Simulator) RemoveObstacle(id int) bool {
	s.lock()
	defer s.unlock()
	exists := s.world.Obstacle(id) != nil
	_ = s.mutate(mutation{
		desc: fmt.Sprintf("remove obstacle %d", id),
		apply: func() error {
			if !s.world.RemoveObstacle(id) {
				return fmt.Errorf("obstacle %d: %w", id, ErrUnknownObstacle)
			}
			return nil
		},
	})
	return exists
}

// UpdateAgent changes an agent in place and reports whether it currently exists.
// Positions are clamped to the arena.
func (s *Simulator) UpdateAgent(id int, u AgentUpdate) bool {
	s.lock()
	defer s.unlock()
	exists := s.world.Agent(id) != nil
	_ = s.mutate(mutation{
		desc: fmt.Sprintf("update agent %d", id),
		apply: func() error {
			a := s.world.Agent(id)
			if a == nil {
				return fmt.Errorf("agent %d: %w", id, ErrUnknownAgent)
			}
			if u.X != nil || u.Y != nil {
				p := a.Position()
				if u.X != nil {
					p.X = *u.X
				}
				if u.Y != nil {
					p.Y = *u.Y
				}
				a.SetPosition(geometry.ClampPoint(p, s.world.Width(), s.world.Height()))
			}
			if u.Speed != nil {
				a.SetSpeed(*u.Speed)
			}
			if u.Orientation != nil {
				a.SetOrientation(*u.Orientation)
			}
			if u.SensorRange != nil {
				a.SetSensorRange(*u.SensorRange)
			}
			if u.TaskCompleted != nil {
				a.SetTaskCompleted(*u.TaskCompleted)
			}
			return nil
		},
	})
	return exists
}

// UpdateObstacle changes an obstacle in place and reports whether it currently exists.
func (s *Simulator) UpdateObstacle(id int, u ObstacleUpdate) bool {
	s.lock()
	defer s.unlock()
	exists := s.world.Obstacle(id) != nil
	_ = s.mutate(mutation{
		desc: fmt.Sprintf("update obstacle %d", id),
		apply: func() error {
			o := s.world.Obstacle(id)
			if o == nil {
				return fmt.Errorf("obstacle %d: %w", id, ErrUnknownObstacle)
			}
			p := o.Position
			if u.X != nil {
				p.X = *u.X
			}
			if u.Y != nil {
				p.Y = *u.Y
			}
			o.SetPosition(p)
			if u.Size != nil {
				o.SetSize(*u.Size)
			}
			return nil
		},
	})
	return exists
}

// ClearWorld removes every agent and obstacle.
func (s *Simulator) ClearWorld() {
	s.lock()
	defer s.unlock()
	_ = s.mutate(mutation{
		desc: "clear world",
		apply: func() error {
			s.world.Clear()
			s.avoiding = make(map[int]bool)
			return nil
		},
	})
}

// LoadScene adds the scene records to the world, optionally clearing it first.
// Rejected records are logged and skipped.
func (s *Simulator) LoadScene(sc *scene.Scene, replace bool) error {
	if sc == nil {
		return nil
	}
	s.lock()
	defer s.unlock()
	return s.mutate(mutation{
		desc: fmt.Sprintf("load scene with %d records", sc.Len()),
		apply: func() error {
			if replace {
				s.world.Clear()
				s.avoiding = make(map[int]bool)
			}
			if n := sc.Apply(s.world, s.params, s.log); n < sc.Len() {
				return fmt.Errorf("%d of %d records rejected", sc.Len()-n, sc.Len())
			}
			return nil
		},
	})
}

// Scene captures the current layout.
func (s *Simulator) Scene() *scene.Scene {
	s.lock()
	defer s.unlock()
	return scene.FromWorld(s.world)
}

// SendCommand forwards cmd to every remote agent and returns how many are
// currently addressed. While running the command lands on the next tick.
func (s *Simulator) SendCommand(cmd world.Command) int {
	s.lock()
	defer s.unlock()
	n := len(s.world.RemoteAgents())
	if s.state == Running {
		s.pending = append(s.pending, mutation{
			desc:  fmt.Sprintf("broadcast %s", cmd),
			apply: func() error { s.broadcast(cmd); return nil },
		})
		return n
	}
	s.broadcast(cmd)
	return n
}

// SendCommandTo forwards cmd to one remote agent and reports whether it exists.
func (s *Simulator) SendCommandTo(id int, cmd world.Command) bool {
	s.lock()
	defer s.unlock()
	if s.world.Remote(id) == nil {
		return false
	}
	if s.state == Running {
		s.pending = append(s.pending, mutation{
			desc:  fmt.Sprintf("send %s to %d", cmd, id),
			apply: func() error { s.command(id, cmd); return nil },
		})
		return true
	}
	s.command(id, cmd)
	return true
}

func (s *Simulator) broadcast(cmd world.Command) {
	for _, r := range s.world.RemoteAgents() {
		s.deliver(r, cmd)
	}
}

func (s *Simulator) command(id int, cmd world.Command) {
	r := s.world.Remote(id)
	if r == nil {
		s.log.Warn("command for unknown remote agent", "agent_id", id, "command", cmd)
		return
	}
	s.deliver(r, cmd)
}

func (s *Simulator) deliver(r *world.RemoteAgent, cmd world.Command) {
	if !r.ProcessCommand(cmd) {
		s.log.Warn("unknown command ignored", "agent_id", r.ID(), "command", cmd)
		return
	}
	ev := s.event(telemetry.EventCommand)
	ev.AgentID = r.ID()
	ev.Detail = string(cmd)
	s.emit(ev)
}
