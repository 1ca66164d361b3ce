package telemetry

import (
	"time"

	"github.com/google/uuid"

	"robotarena-sim/internal/world"
)

// NewRunID returns a fresh identifier stamped on every row of a run.
func NewRunID() string {
	return uuid.NewString()
}

// Generator turns world agents into telemetry rows for one run.
type Generator struct {
	RunID    string
	RunLabel string
}

// NewGenerator creates a generator for the given run.
func NewGenerator(runID, runLabel string) *Generator {
	return &Generator{RunID: runID, RunLabel: runLabel}
}

// AgentRow samples a after a tick.
func (g *Generator) AgentRow(a world.Agent, tick int64, ts time.Time) AgentRow {
	p := a.Position()
	row := AgentRow{
		RunID:         g.RunID,
		RunLabel:      g.RunLabel,
		AgentID:       a.ID(),
		Kind:          string(a.Kind()),
		X:             p.X,
		Y:             p.Y,
		Orientation:   a.Orientation(),
		Speed:         a.Speed(),
		SensorRange:   a.SensorRange(),
		TaskCompleted: a.TaskCompleted(),
		Tick:          tick,
		Timestamp:     ts,
	}
	switch v := a.(type) {
	case *world.AutonomousAgent:
		row.Avoiding = v.Avoiding()
	case *world.RemoteAgent:
		row.Speed = v.CurrentSpeed()
	}
	return row
}

// AgentRows samples every agent of w.
func (g *Generator) AgentRows(w *world.World, tick int64, ts time.Time) []AgentRow {
	agents := w.Agents()
	rows := make([]AgentRow, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, g.AgentRow(a, tick, ts))
	}
	return rows
}

// Event builds an event row for this run.
func (g *Generator) Event(typ string, tick int64, ts time.Time) EventRow {
	return EventRow{RunID: g.RunID, Type: typ, Tick: tick, Timestamp: ts}
}
