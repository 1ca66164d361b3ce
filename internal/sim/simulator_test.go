package sim

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"robotarena-sim/internal/config"
	"robotarena-sim/internal/logging"
	"robotarena-sim/internal/scenario"
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/telemetry"
	"robotarena-sim/internal/world"
)

// MockWriter collects agent, event and state rows for validation
type MockWriter struct {
	mu     sync.Mutex
	Rows   []telemetry.AgentRow
	Events []telemetry.EventRow
	States []telemetry.StateRow
}

func (w *MockWriter) Write(row telemetry.AgentRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Rows = append(w.Rows, row)
	return nil
}

func (w *MockWriter) WriteEvent(e telemetry.EventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Events = append(w.Events, e)
	return nil
}

func (w *MockWriter) WriteState(row telemetry.StateRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.States = append(w.States, row)
	return nil
}

func (w *MockWriter) eventsOf(typ string) []telemetry.EventRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []telemetry.EventRow
	for _, e := range w.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSim(t *testing.T, cfg *config.SimulationConfig, opts ...Option) (*Simulator, *MockWriter, *fakeClock) {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	mw := &MockWriter{}
	clk := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	base := []Option{WithWriter(mw), WithClock(clk.Now), WithLogger(logging.Discard()), WithRunID("run-test")}
	s := NewSimulator(cfg, nil, append(base, opts...)...)
	return s, mw, clk
}

func autonomous(id int, x, y, speed, orientation float64) world.Spec {
	return world.Spec{Kind: world.KindAutonomous, ID: id, X: x, Y: y, Speed: speed, Orientation: orientation, SensorRange: 50}
}

func remote(id int, x, y, speed, orientation float64) world.Spec {
	return world.Spec{Kind: world.KindRemote, ID: id, X: x, Y: y, Speed: speed, Orientation: orientation, SensorRange: 40}
}

func mustAdd(t *testing.T, s *Simulator, specs ...world.Spec) {
	t.Helper()
	for _, spec := range specs {
		if err := s.AddAgent(spec); err != nil {
			t.Fatalf("AddAgent(%d): %v", spec.ID, err)
		}
	}
}

func TestSimulator_StepGeneratesTelemetry(t *testing.T) {
	s, mw, _ := newTestSim(t, nil)
	mustAdd(t, s, autonomous(1, 200, 300, 2, 0), autonomous(2, 600, 300, 2, 180))

	if !s.Step() {
		t.Fatalf("Step returned false")
	}
	if len(mw.Rows) != 2 {
		t.Fatalf("expected telemetry for 2 agents, got %d", len(mw.Rows))
	}
	for _, row := range mw.Rows {
		if row.RunID != "run-test" || row.RunLabel != "arena-01" || row.Tick != 1 {
			t.Errorf("unexpected row tags: %+v", row)
		}
	}
	if mw.Rows[0].X != 202 {
		t.Errorf("agent 1 x = %v, want 202", mw.Rows[0].X)
	}
	if len(mw.States) != 1 || mw.States[0].Agents != 2 || mw.States[0].Tick != 1 {
		t.Fatalf("state rows = %+v", mw.States)
	}
	if s.Elapsed() != 16*time.Millisecond {
		t.Fatalf("elapsed = %v", s.Elapsed())
	}
}

func TestSimulator_TickGating(t *testing.T) {
	s, _, clk := newTestSim(t, nil)
	if s.Tick() {
		t.Fatalf("tick advanced while stopped")
	}
	s.Start()
	if s.Tick() {
		t.Fatalf("tick advanced before a full time step")
	}
	clk.Advance(16 * time.Millisecond)
	if !s.Tick() {
		t.Fatalf("tick did not advance after a time step")
	}
	if s.Tick() {
		t.Fatalf("tick advanced twice for one step")
	}

	s.Pause()
	clk.Advance(time.Second)
	if s.Tick() {
		t.Fatalf("tick advanced while paused")
	}
	s.Resume()
	clk.Advance(10 * time.Millisecond)
	if s.Tick() {
		t.Fatalf("paused interval counted towards the next tick")
	}
	clk.Advance(6 * time.Millisecond)
	if !s.Tick() {
		t.Fatalf("tick did not advance after resume")
	}
	if s.Ticks() != 2 {
		t.Fatalf("ticks = %d, want 2", s.Ticks())
	}
}

func TestSimulator_LifecycleIdempotent(t *testing.T) {
	s, mw, clk := newTestSim(t, nil)
	s.Start()
	clk.Advance(time.Second)
	s.Start()
	s.Pause()
	s.Pause()
	s.Start()
	if s.State() != Running {
		t.Fatalf("Start did not resume a paused run")
	}
	s.Stop()
	s.Stop()
	if s.State() != Stopped {
		t.Fatalf("state = %s", s.State())
	}
	var details []string
	for _, e := range mw.eventsOf(telemetry.EventLifecycle) {
		details = append(details, e.Detail)
	}
	if got := strings.Join(details, ","); got != "started,paused,resumed,stopped" {
		t.Fatalf("lifecycle events = %s", got)
	}
}

func TestSimulator_EndConditionOrder(t *testing.T) {
	s, _, _ := newTestSim(t, nil)
	if _, ok := s.CheckEndConditions(); ok {
		t.Fatalf("empty world must not end the run")
	}
	mustAdd(t, s, autonomous(1, 100, 100, 0, 0))

	s.SetCollisionCount(51)
	if r, ok := s.CheckEndConditions(); !ok || r != EndCollisionLimit {
		t.Fatalf("expected collision limit, got %q %v", r, ok)
	}
	done := true
	s.UpdateAgent(1, AgentUpdate{TaskCompleted: &done})
	if r, _ := s.CheckEndConditions(); r != EndTasksCompleted {
		t.Fatalf("task completion must win over the collision limit, got %q", r)
	}
	s.SetCollisionCount(50)
	notDone := false
	s.UpdateAgent(1, AgentUpdate{TaskCompleted: &notDone})
	if _, ok := s.CheckEndConditions(); ok {
		t.Fatalf("50 collisions is within the limit")
	}
}

func TestSimulator_TimeLimitTerminates(t *testing.T) {
	s, mw, clk := newTestSim(t, nil)
	mustAdd(t, s, autonomous(1, 400, 300, 1, 0))
	s.Start()

	clk.Advance(1800 * time.Second)
	if !s.Step() {
		t.Fatalf("step refused")
	}
	select {
	case <-s.Done():
		t.Fatalf("terminated at the limit, want strictly after")
	default:
	}
	clk.Advance(time.Second)
	s.Step()
	select {
	case <-s.Done():
	default:
		t.Fatalf("expected termination after exceeding the time limit")
	}
	if s.EndReason() != EndTimeLimit || s.State() != Stopped {
		t.Fatalf("reason=%q state=%s", s.EndReason(), s.State())
	}
	if s.Elapsed() >= time.Second {
		t.Fatalf("simulated elapsed = %v, want two steps only", s.Elapsed())
	}
	if s.Step() {
		t.Fatalf("Step advanced a terminated run")
	}
	term := mw.eventsOf(telemetry.EventTermination)
	if len(term) != 1 || term[0].Detail != string(EndTimeLimit) {
		t.Fatalf("termination events = %+v", term)
	}
	if last := mw.States[len(mw.States)-1]; last.State != "stopped" {
		t.Fatalf("final state row = %+v", last)
	}

	// A new start resets the run.
	s.Start()
	if s.Ticks() != 0 || s.EndReason() != EndNone || s.Elapsed() != 0 || s.Runtime() != 0 {
		t.Fatalf("restart kept ticks=%d reason=%q elapsed=%v", s.Ticks(), s.EndReason(), s.Elapsed())
	}
	if !s.Step() {
		t.Fatalf("Step refused after restart")
	}
}

func TestSimulator_TimeLimitUsesWallClock(t *testing.T) {
	s, _, clk := newTestSim(t, nil)
	mustAdd(t, s, autonomous(1, 400, 300, 1, 0))
	s.Start()

	clk.Advance(1801 * time.Second)
	if !s.Tick() {
		t.Fatalf("Tick did not advance")
	}
	if s.EndReason() != EndTimeLimit || s.State() != Stopped {
		t.Fatalf("reason=%q state=%s elapsed=%v", s.EndReason(), s.State(), s.Elapsed())
	}
	if s.Ticks() != 1 {
		t.Fatalf("ticks = %d, want 1", s.Ticks())
	}
}

func TestSimulator_StopKeepsCounters(t *testing.T) {
	cfg := config.Default()
	cfg.TickMS = 1000
	s, _, clk := newTestSim(t, cfg)
	mustAdd(t, s, autonomous(1, 400, 300, 0, 0))
	s.Start()
	for i := 0; i < 3; i++ {
		clk.Advance(time.Second)
		s.Tick()
	}
	s.SetCollisionCount(2)
	s.Stop()
	clk.Advance(time.Hour)
	s.Start()

	snap := s.Snapshot()
	if snap.Tick != 3 || snap.Elapsed != "00:00:03" || snap.Collisions != 2 {
		t.Fatalf("snapshot after restart = %+v", snap)
	}
	if snap.Runtime != "00:00:00" {
		t.Fatalf("run clock not restarted: runtime=%s", snap.Runtime)
	}
	if _, ok := s.CheckEndConditions(); ok {
		t.Fatalf("restarted run ended at once")
	}
}

func TestSimulator_MutationsImmediateWhenStopped(t *testing.T) {
	s, mw, _ := newTestSim(t, nil)
	mustAdd(t, s, autonomous(1, 100, 100, 1, 0))

	if err := s.AddAgent(remote(1, 50, 50, 1, 0)); !errors.Is(err, world.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if err := s.AddAgent(world.Spec{Kind: "hover", ID: 9}); !errors.Is(err, world.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if err := s.AddObstacle(world.ObstacleSpec{ID: 1, X: 300, Y: 300, Size: 20}); err != nil {
		t.Fatalf("AddObstacle: %v", err)
	}
	if s.RemoveAgent(99) || s.RemoveObstacle(99) {
		t.Fatalf("remove of unknown id reported true")
	}

	x := 1000.0
	if !s.UpdateAgent(1, AgentUpdate{X: &x}) {
		t.Fatalf("UpdateAgent reported missing agent")
	}
	size := 40.0
	if !s.UpdateObstacle(1, ObstacleUpdate{Size: &size}) {
		t.Fatalf("UpdateObstacle reported missing obstacle")
	}
	snap := s.Snapshot()
	if snap.Agents[0].X != 800 {
		t.Fatalf("update not clamped to arena: %+v", snap.Agents[0])
	}
	if snap.Obstacles[0].Size != 40 {
		t.Fatalf("obstacle size = %v", snap.Obstacles[0].Size)
	}
	if !s.RemoveAgent(1) || len(s.Snapshot().Agents) != 0 {
		t.Fatalf("RemoveAgent failed")
	}
	var failed int
	for _, e := range mw.eventsOf(telemetry.EventMutation) {
		if strings.Contains(e.Detail, "failed") {
			failed++
		}
	}
	if failed != 3 {
		t.Fatalf("expected 3 failed mutation events, got %d", failed)
	}
}

func TestSimulator_MutationsQueuedWhileRunning(t *testing.T) {
	s, mw, clk := newTestSim(t, nil)
	s.Start()
	if err := s.AddObstacle(world.ObstacleSpec{ID: 7, X: 300, Y: 300, Size: 20}); err != nil {
		t.Fatalf("AddObstacle: %v", err)
	}
	if err := s.AddObstacle(world.ObstacleSpec{ID: 7, X: 500, Y: 300, Size: 20}); err != nil {
		t.Fatalf("queued duplicate must not fail at call time: %v", err)
	}
	if s.Pending() != 2 || len(s.Snapshot().Obstacles) != 0 {
		t.Fatalf("mutations applied before the tick boundary")
	}
	clk.Advance(16 * time.Millisecond)
	if !s.Tick() {
		t.Fatalf("tick did not advance")
	}
	snap := s.Snapshot()
	if len(snap.Obstacles) != 1 || snap.Obstacles[0].X != 300 {
		t.Fatalf("obstacles after tick = %+v", snap.Obstacles)
	}
	if s.Pending() != 0 {
		t.Fatalf("queue not drained")
	}
	muts := mw.eventsOf(telemetry.EventMutation)
	if len(muts) != 2 || !strings.Contains(muts[1].Detail, "failed") {
		t.Fatalf("mutation events = %+v", muts)
	}
}

func TestSimulator_SendCommand(t *testing.T) {
	s, mw, _ := newTestSim(t, nil)
	mustAdd(t, s,
		remote(1, 100, 300, 2, 0),
		remote(2, 100, 500, 2, 0),
		autonomous(3, 600, 100, 0, 0),
	)
	if n := s.SendCommand(world.StartMoveForward); n != 2 {
		t.Fatalf("broadcast reached %d remotes, want 2", n)
	}
	if s.SendCommandTo(3, world.StartTurnLeft) {
		t.Fatalf("autonomous agent accepted a command")
	}
	if s.SendCommandTo(99, world.StartTurnLeft) {
		t.Fatalf("unknown agent accepted a command")
	}
	if !s.SendCommandTo(2, world.StopMoveForward) {
		t.Fatalf("targeted command rejected")
	}
	s.Step()
	snap := s.Snapshot()
	if snap.Agents[0].X != 102 || snap.Agents[1].X != 100 {
		t.Fatalf("positions after command: %+v %+v", snap.Agents[0], snap.Agents[1])
	}
	if len(mw.eventsOf(telemetry.EventCommand)) != 3 {
		t.Fatalf("command events = %d", len(mw.eventsOf(telemetry.EventCommand)))
	}
}

func TestSimulator_CollisionPass(t *testing.T) {
	for _, check := range []bool{true, false} {
		cfg := config.Default()
		cfg.CollisionCheck = check
		s, mw, _ := newTestSim(t, cfg)
		mustAdd(t, s, autonomous(1, 100, 100, 0, 0))
		if err := s.AddObstacle(world.ObstacleSpec{ID: 4, X: 105, Y: 100, Size: 10}); err != nil {
			t.Fatal(err)
		}
		s.Step()
		want := 0
		if check {
			want = 1
		}
		if s.Collisions() != want {
			t.Fatalf("check=%t collisions = %d, want %d", check, s.Collisions(), want)
		}
		evs := mw.eventsOf(telemetry.EventCollision)
		if len(evs) != want {
			t.Fatalf("check=%t collision events = %d", check, len(evs))
		}
		if check && (evs[0].AgentID != 1 || evs[0].ObstacleID != 4) {
			t.Fatalf("collision event = %+v", evs[0])
		}
	}
}

func TestSimulator_AvoidanceEvent(t *testing.T) {
	s, mw, _ := newTestSim(t, nil)
	mustAdd(t, s, autonomous(1, 790, 300, 1, 0))
	s.Step()
	evs := mw.eventsOf(telemetry.EventAvoidance)
	if len(evs) != 1 || evs[0].AgentID != 1 {
		t.Fatalf("avoidance events = %+v", evs)
	}
	if !mw.Rows[0].Avoiding {
		t.Fatalf("row does not report avoidance")
	}
}

func TestSimulator_ScenarioDrivesRemote(t *testing.T) {
	sc := &scenario.Scenario{
		Name: "test",
		Phases: []scenario.Phase{
			{
				Name:     "go",
				Actions:  []scenario.Action{{Agent: 5, Command: string(world.StartMoveForward)}},
				Triggers: []scenario.Trigger{{Event: scenario.EventTick, Value: 2, Next: "done"}},
			},
			{
				Name:    "done",
				Actions: []scenario.Action{{CompleteTask: true}},
			},
		},
	}
	s, mw, _ := newTestSim(t, nil, WithScenario(sc))
	mustAdd(t, s, remote(5, 100, 300, 2, 0))
	s.Start()

	s.Step()
	if s.Phase() != "go" {
		t.Fatalf("phase = %q", s.Phase())
	}
	if x := s.Snapshot().Agents[0].X; x != 102 {
		t.Fatalf("remote x = %v, want 102", x)
	}
	s.Step()
	s.Step()
	if s.Phase() != "done" || s.EndReason() != EndTasksCompleted {
		t.Fatalf("phase=%q reason=%q", s.Phase(), s.EndReason())
	}
	if n := len(mw.eventsOf(telemetry.EventPhase)); n != 2 {
		t.Fatalf("phase events = %d", n)
	}
}

func TestSimulator_LoadSceneReplace(t *testing.T) {
	s, _, _ := newTestSim(t, nil)
	mustAdd(t, s, autonomous(1, 100, 100, 1, 0))
	sc := &scene.Scene{
		Obstacles: []world.ObstacleSpec{{ID: 1, X: 400, Y: 300, Size: 30}},
		Robots:    []world.Spec{remote(2, 50, 50, 1, 0)},
	}
	if err := s.LoadScene(sc, true); err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	got := s.Scene()
	if len(got.Robots) != 1 || got.Robots[0].ID != 2 || len(got.Obstacles) != 1 {
		t.Fatalf("scene after replace = %+v", got)
	}
	if err := s.LoadScene(sc, false); err == nil {
		t.Fatalf("expected error for duplicate records")
	}
}

func TestSimulator_LoadSceneClampsRobots(t *testing.T) {
	s, _, _ := newTestSim(t, nil)
	sc := &scene.Scene{Robots: []world.Spec{autonomous(1, -50, 900, 0, 0)}}
	if err := s.LoadScene(sc, false); err != nil {
		t.Fatalf("LoadScene: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Agents) != 1 || snap.Agents[0].X != 0 || snap.Agents[0].Y != 600 {
		t.Fatalf("agents after load = %+v", snap.Agents)
	}
}

func TestSimulator_SnapshotElapsed(t *testing.T) {
	cfg := config.Default()
	cfg.TickMS = 1000
	s, _, _ := newTestSim(t, cfg)
	mustAdd(t, s, autonomous(1, 400, 300, 0, 0))
	for i := 0; i < 61; i++ {
		s.Step()
	}
	snap := s.Snapshot()
	if snap.Elapsed != "00:01:01" || snap.Tick != 61 || snap.State != "stopped" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestSimulator_RunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.TickMS = 1
	mw := &MockWriter{}
	s := NewSimulator(cfg, nil, WithWriter(mw), WithLogger(logging.Discard()))
	mustAdd(t, s, autonomous(1, 400, 300, 1, 0))

	ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), logging.Discard()))
	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for s.Ticks() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("simulator never ticked")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if s.State() != Stopped {
		t.Fatalf("state after cancel = %s", s.State())
	}
}

func TestSimulator_RunReturnsOnTermination(t *testing.T) {
	cfg := config.Default()
	cfg.TickMS = 1
	cfg.Limits.MaxDurationS = 0.005
	s := NewSimulator(cfg, nil, WithLogger(logging.Discard()))
	mustAdd(t, s, autonomous(1, 400, 300, 1, 0))

	finished := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return on termination")
	}
	if s.EndReason() != EndTimeLimit || s.Ticks() == 0 {
		t.Fatalf("reason=%q ticks=%d", s.EndReason(), s.Ticks())
	}
}
