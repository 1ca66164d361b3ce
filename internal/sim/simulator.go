// Simulator orchestrating robots, obstacles and telemetry ticks
package sim

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"robotarena-sim/internal/config"
	"robotarena-sim/internal/geometry"
	"robotarena-sim/internal/scenario"
	"robotarena-sim/internal/telemetry"
	"robotarena-sim/internal/world"
)

// State is the lifecycle state of a simulation.
type State int

const (
	Stopped State = iota
	Running
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// EndReason names the condition that terminated a run.
type EndReason string

const (
	EndNone           EndReason = ""
	EndTimeLimit      EndReason = "time_limit"
	EndTasksCompleted EndReason = "tasks_completed"
	EndCollisionLimit EndReason = "collision_limit"
)

var (
	// ErrUnknownAgent is returned when an operation addresses a missing agent.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnknownObstacle is returned when an operation addresses a missing obstacle.
	ErrUnknownObstacle = errors.New("unknown obstacle")
)

// Option configures a Simulator.
type Option func(*Simulator)

// WithWriter installs the telemetry writer. If w also implements EventWriter
// or StateWriter it receives those rows too, unless dedicated writers are set.
func WithWriter(w TelemetryWriter) Option {
	return func(s *Simulator) {
		s.writer = w
		if ew, ok := w.(EventWriter); ok && s.events == nil {
			s.events = ew
		}
		if sw, ok := w.(StateWriter); ok && s.states == nil {
			s.states = sw
		}
	}
}

// WithEventWriter installs a dedicated event writer.
func WithEventWriter(w EventWriter) Option { return func(s *Simulator) { s.events = w } }

// WithStateWriter installs a dedicated state writer.
func WithStateWriter(w StateWriter) Option { return func(s *Simulator) { s.states = w } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(s *Simulator) { s.now = now } }

// WithLogger sets the logger used for lifecycle and writer errors.
func WithLogger(l *slog.Logger) Option { return func(s *Simulator) { s.log = l } }

// WithScenario attaches a phase script.
func WithScenario(sc *scenario.Scenario) Option { return func(s *Simulator) { s.scenario = sc } }

// WithRunID overrides the generated run id.
func WithRunID(id string) Option { return func(s *Simulator) { s.runID = id } }

// Simulator owns the world and advances it one fixed step per tick.
// All exported methods are safe for concurrent use.
type Simulator struct {
	// mu serialises callers; Tick and Step gate advances on state.
	mu sync.Mutex

	cfg    *config.SimulationConfig
	world  *world.World
	params world.Params
	runID  string
	gen    *telemetry.Generator
	log    *slog.Logger
	now    func() time.Time

	writer TelemetryWriter
	events EventWriter
	states StateWriter

	timeStep       time.Duration
	maxDuration    time.Duration
	maxCollisions  int
	collisionCheck bool

	state      State
	startTime  time.Time
	lastTick   time.Time
	elapsed    time.Duration
	ticks      int64
	collisions int
	endReason  EndReason
	terminated bool
	done       chan struct{}

	pending   []mutation
	eventBuf  []telemetry.EventRow
	avoiding  map[int]bool
	scenario  *scenario.Scenario
	phase     string
	phaseTick int
}

// NewSimulator builds a simulator around w. A nil cfg uses config.Default and
// a nil world creates an empty arena of the configured size.
func NewSimulator(cfg *config.SimulationConfig, w *world.World, opts ...Option) *Simulator {
	if cfg == nil {
		cfg = config.Default()
	}
	if w == nil {
		w = world.New(cfg.Arena.Width, cfg.Arena.Height)
	}
	s := &Simulator{
		cfg:            cfg,
		world:          w,
		params:         cfg.Params(),
		log:            slog.Default(),
		now:            time.Now,
		timeStep:       cfg.TimeStep(),
		maxDuration:    cfg.MaxDuration(),
		maxCollisions:  cfg.Limits.MaxCollisions,
		collisionCheck: cfg.CollisionCheck,
		done:           make(chan struct{}),
		avoiding:       make(map[int]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = telemetry.NewRunID()
	}
	if s.timeStep <= 0 {
		s.timeStep = config.Default().TimeStep()
	}
	s.gen = telemetry.NewGenerator(s.runID, cfg.RunLabel)
	return s
}

func (s *Simulator) lock() { s.mu.Lock() }

// unlock flushes events gathered while the lock was held.
func (s *Simulator) unlock() {
	s.flushEvents()
	s.mu.Unlock()
}

// Start begins or continues a run. It is a no-op while running and resumes a
// paused run. From Stopped the run clock restarts; a terminated run has its
// counters reset, a manually stopped one keeps them.
func (s *Simulator) Start() {
	s.lock()
	defer s.unlock()
	switch s.state {
	case Running:
		return
	case Paused:
		s.resumeLocked()
		return
	}
	now := s.now()
	if s.terminated {
		s.ticks = 0
		s.elapsed = 0
		s.collisions = 0
		s.endReason = EndNone
		s.terminated = false
		s.done = make(chan struct{})
		s.phase = ""
		s.phaseTick = 0
		s.avoiding = make(map[int]bool)
	}
	s.startTime = now
	s.lastTick = now
	s.state = Running
	s.log.Info("simulation started", "run_id", s.runID, "agents", len(s.world.Agents()), "obstacles", len(s.world.Obstacles()))
	s.lifecycle("started")
}

// Pause suspends ticking. It is a no-op unless running.
func (s *Simulator) Pause() {
	s.lock()
	defer s.unlock()
	if s.state != Running {
		return
	}
	s.state = Paused
	s.log.Info("simulation paused", "tick", s.ticks)
	s.lifecycle("paused")
}

// Resume continues a paused run without counting the paused interval.
func (s *Simulator) Resume() {
	s.lock()
	defer s.unlock()
	s.resumeLocked()
}

func (s *Simulator) resumeLocked() {
	if s.state != Paused {
		return
	}
	s.state = Running
	s.lastTick = s.now()
	s.log.Info("simulation resumed", "tick", s.ticks)
	s.lifecycle("resumed")
}

// Stop halts the run. The world and counters are kept.
func (s *Simulator) Stop() {
	s.lock()
	defer s.unlock()
	if s.state == Stopped {
		return
	}
	s.state = Stopped
	s.log.Info("simulation stopped", "tick", s.ticks)
	s.lifecycle("stopped")
}

// State returns the current lifecycle state.
func (s *Simulator) State() State {
	s.lock()
	defer s.unlock()
	return s.state
}

// Done is closed when the current run terminates on an end condition.
func (s *Simulator) Done() <-chan struct{} {
	s.lock()
	defer s.unlock()
	return s.done
}

// EndReason returns why the last run terminated, or EndNone.
func (s *Simulator) EndReason() EndReason {
	s.lock()
	defer s.unlock()
	return s.endReason
}

// Ticks returns the number of advances in the current run.
func (s *Simulator) Ticks() int64 {
	s.lock()
	defer s.unlock()
	return s.ticks
}

// Elapsed returns simulated time: ticks multiplied by the time step. The time
// limit is measured on the wall clock instead, see Runtime.
func (s *Simulator) Elapsed() time.Duration {
	s.lock()
	defer s.unlock()
	return s.elapsed
}

// Runtime returns wall-clock time since the run clock last started.
func (s *Simulator) Runtime() time.Duration {
	s.lock()
	defer s.unlock()
	return s.runtime()
}

func (s *Simulator) runtime() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return s.now().Sub(s.startTime)
}

// Collisions returns the collision total of the current run.
func (s *Simulator) Collisions() int {
	s.lock()
	defer s.unlock()
	return s.collisions
}

// SetCollisionCount overrides the collision total.
func (s *Simulator) SetCollisionCount(n int) {
	s.lock()
	defer s.unlock()
	s.collisions = n
}

// RunID identifies the run on every emitted row.
func (s *Simulator) RunID() string { return s.runID }

// Config returns the simulation configuration.
func (s *Simulator) Config() *config.SimulationConfig { return s.cfg }

// Phase returns the active scenario phase, if any.
func (s *Simulator) Phase() string {
	s.lock()
	defer s.unlock()
	return s.phase
}

// CheckEndConditions evaluates, in order, the wall-clock time limit, task
// completion and the collision limit.
func (s *Simulator) CheckEndConditions() (EndReason, bool) {
	s.lock()
	defer s.unlock()
	return s.checkEnd()
}

func (s *Simulator) checkEnd() (EndReason, bool) {
	if s.maxDuration > 0 && s.runtime() > s.maxDuration {
		return EndTimeLimit, true
	}
	agents := s.world.Agents()
	if len(agents) > 0 {
		all := true
		for _, a := range agents {
			if !a.TaskCompleted() {
				all = false
				break
			}
		}
		if all {
			return EndTasksCompleted, true
		}
	}
	if s.maxCollisions > 0 && s.collisions > s.maxCollisions {
		return EndCollisionLimit, true
	}
	return EndNone, false
}

// Snapshot is a point-in-time copy of the simulation for observers.
type Snapshot struct {
	RunID      string               `json:"run_id"`
	RunLabel   string               `json:"run_label"`
	State      string               `json:"state"`
	Tick       int64                `json:"tick"`
	Elapsed    string               `json:"elapsed"`
	ElapsedS   float64              `json:"elapsed_s"`
	Runtime    string               `json:"runtime"`
	Collisions int                  `json:"collisions"`
	EndReason  EndReason            `json:"end_reason,omitempty"`
	Phase      string               `json:"phase,omitempty"`
	Width      float64              `json:"width"`
	Height     float64              `json:"height"`
	Agents     []telemetry.AgentRow `json:"agents"`
	Obstacles  []world.ObstacleSpec `json:"obstacles"`
}

// Snapshot copies the current state.
func (s *Simulator) Snapshot() Snapshot {
	s.lock()
	defer s.unlock()
	w, h := s.world.Size()
	snap := Snapshot{
		RunID:      s.runID,
		RunLabel:   s.cfg.RunLabel,
		State:      s.state.String(),
		Tick:       s.ticks,
		Elapsed:    geometry.FormatElapsed(s.elapsed),
		ElapsedS:   s.elapsed.Seconds(),
		Runtime:    geometry.FormatElapsed(s.runtime()),
		Collisions: s.collisions,
		EndReason:  s.endReason,
		Phase:      s.phase,
		Width:      w,
		Height:     h,
		Agents:     s.gen.AgentRows(s.world, s.ticks, s.now().UTC()),
		Obstacles:  make([]world.ObstacleSpec, 0, len(s.world.Obstacles())),
	}
	for _, o := range s.world.Obstacles() {
		snap.Obstacles = append(snap.Obstacles, o.Spec())
	}
	return snap
}

func (s *Simulator) emit(ev telemetry.EventRow) {
	s.eventBuf = append(s.eventBuf, ev)
}

func (s *Simulator) event(typ string) telemetry.EventRow {
	return s.gen.Event(typ, s.ticks, s.now().UTC())
}

func (s *Simulator) lifecycle(detail string) {
	ev := s.event(telemetry.EventLifecycle)
	ev.Detail = detail
	s.emit(ev)
}

func (s *Simulator) flushEvents() {
	if len(s.eventBuf) == 0 {
		return
	}
	evs := s.eventBuf
	s.eventBuf = nil
	if s.events == nil {
		return
	}
	if bw, ok := s.events.(batchEventWriter); ok {
		if err := bw.WriteEvents(evs); err != nil {
			s.log.Error("event batch write failed", "err", err)
		}
		return
	}
	for _, ev := range evs {
		if err := s.events.WriteEvent(ev); err != nil {
			s.log.Error("event write failed", "event_type", ev.Type, "err", err)
		}
	}
}
