package sim

import (
	"context"
	"fmt"
	"time"

	"robotarena-sim/internal/logging"
	"robotarena-sim/internal/scenario"
	"robotarena-sim/internal/telemetry"
	"robotarena-sim/internal/world"
)

// Run starts the simulation and ticks it until the context is done or the
// run terminates on an end condition.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	s.Start()
	done := s.Done()
	log.Info("starting simulator", "tick_interval", s.timeStep, "run_id", s.runID)

	// Tick gates on the time step; poll at a finer interval.
	poll := s.timeStep / 4
	if poll < time.Millisecond {
		poll = time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-done:
			log.Info("simulation terminated", "reason", s.EndReason())
			return
		case <-ctx.Done():
			log.Info("stopping simulator")
			s.Stop()
			return
		}
	}
}

// Tick advances the world once if the simulation is running and at least one
// time step has passed since the last committed tick. It reports whether an
// advance happened.
func (s *Simulator) Tick() bool {
	s.lock()
	defer s.unlock()
	if s.state != Running {
		return false
	}
	now := s.now()
	if now.Sub(s.lastTick) < s.timeStep {
		return false
	}
	s.lastTick = now
	s.advance(now)
	return true
}

// Step advances the world once regardless of the lifecycle state. It returns
// false once the run has terminated.
func (s *Simulator) Step() bool {
	s.lock()
	defer s.unlock()
	if s.terminated {
		return false
	}
	now := s.now()
	if s.startTime.IsZero() {
		s.startTime = now
	}
	s.lastTick = now
	s.advance(now)
	return true
}

func (s *Simulator) advance(now time.Time) {
	s.applyPending()
	s.ticks++
	s.elapsed += s.timeStep
	s.advanceScenario()

	for _, a := range s.world.Agents() {
		a.Move(s.world)
		aa, ok := a.(*world.AutonomousAgent)
		if !ok {
			continue
		}
		if aa.Avoiding() && !s.avoiding[a.ID()] {
			ev := s.event(telemetry.EventAvoidance)
			ev.AgentID = a.ID()
			ev.Detail = fmt.Sprintf("turned to %.1f", a.Orientation())
			s.emit(ev)
		}
		s.avoiding[a.ID()] = aa.Avoiding()
	}

	if s.collisionCheck {
		for _, c := range s.world.Collisions() {
			c.Agent.HandleCollision()
			s.collisions++
			ev := s.event(telemetry.EventCollision)
			ev.AgentID = c.Agent.ID()
			ev.ObstacleID = c.Obstacle.ID
			s.emit(ev)
			s.log.Debug("collision", "agent_id", c.Agent.ID(), "obstacle_id", c.Obstacle.ID, "tick", s.ticks)
		}
	}

	s.writeRows(s.gen.AgentRows(s.world, s.ticks, now.UTC()))

	if reason, ok := s.checkEnd(); ok {
		s.terminate(reason)
	}
	s.writeState(now)
}

func (s *Simulator) terminate(reason EndReason) {
	s.state = Stopped
	s.endReason = reason
	s.terminated = true
	close(s.done)
	ev := s.event(telemetry.EventTermination)
	ev.Detail = string(reason)
	s.emit(ev)
	s.log.Info("simulation ended", "reason", reason, "tick", s.ticks, "collisions", s.collisions)
}

func (s *Simulator) writeRows(rows []telemetry.AgentRow) {
	if s.writer == nil || len(rows) == 0 {
		return
	}
	// Batch support if writer implements WriteBatch
	if bw, ok := s.writer.(batchWriter); ok {
		if err := bw.WriteBatch(rows); err != nil {
			s.log.Error("batch write failed", "err", err)
		}
		return
	}
	for _, row := range rows {
		if err := s.writer.Write(row); err != nil {
			s.log.Error("write failed", "agent_id", row.AgentID, "err", err)
		}
	}
}

func (s *Simulator) writeState(now time.Time) {
	if s.states == nil {
		return
	}
	completed := 0
	for _, a := range s.world.Agents() {
		if a.TaskCompleted() {
			completed++
		}
	}
	row := telemetry.StateRow{
		RunID:      s.runID,
		State:      s.state.String(),
		Tick:       s.ticks,
		ElapsedS:   s.elapsed.Seconds(),
		Agents:     len(s.world.Agents()),
		Obstacles:  len(s.world.Obstacles()),
		Collisions: s.collisions,
		Completed:  completed,
		Phase:      s.phase,
		Timestamp:  now.UTC(),
	}
	if err := s.states.WriteState(row); err != nil {
		s.log.Error("state write failed", "err", err)
	}
}

// advanceScenario enters the first phase on the first tick, then follows at
// most one trigger per tick.
func (s *Simulator) advanceScenario() {
	if s.scenario == nil {
		return
	}
	if s.phase == "" {
		s.enterPhase(s.scenario.First())
		return
	}
	s.phaseTick++
	events := []scenario.Event{
		{Type: scenario.EventTick, Value: s.phaseTick},
		{Type: scenario.EventTimeElapsed, Value: int(s.elapsed / time.Second)},
		{Type: scenario.EventCollisions, Value: s.collisions},
	}
	for _, ev := range events {
		if next, ok := s.scenario.NextPhase(s.phase, ev); ok {
			s.enterPhase(next)
			return
		}
	}
}

func (s *Simulator) enterPhase(name string) {
	p, ok := s.scenario.Phase(name)
	if !ok {
		s.log.Warn("scenario phase not found", "phase", name)
		return
	}
	s.phase = name
	s.phaseTick = 0
	ev := s.event(telemetry.EventPhase)
	ev.Detail = name
	s.emit(ev)
	s.log.Info("scenario phase", "phase", name, "tick", s.ticks)
	for _, a := range p.Actions {
		s.applyAction(a)
	}
}

func (s *Simulator) applyAction(a scenario.Action) {
	if a.Command != "" {
		cmd, ok := world.ParseCommand(a.Command)
		if !ok {
			s.log.Warn("scenario command ignored", "command", a.Command)
		} else if a.Agent == 0 {
			s.broadcast(cmd)
		} else {
			s.command(a.Agent, cmd)
		}
	}
	if !a.CompleteTask {
		return
	}
	for _, ag := range s.world.Agents() {
		if a.Agent == 0 || ag.ID() == a.Agent {
			ag.SetTaskCompleted(true)
		}
	}
}
