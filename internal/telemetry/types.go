// Telemetry rows with greptime tags
package telemetry

import (
	"os"
	"time"
)

// AgentRow represents one agent sample for GreptimeDB.
type AgentRow struct {
	RunID         string    `json:"run_id"`         // TAG
	RunLabel      string    `json:"run_label"`      // TAG
	AgentID       int       `json:"agent_id"`       // TAG
	Kind          string    `json:"kind"`           // TAG
	X             float64   `json:"x"`              // FIELD
	Y             float64   `json:"y"`              // FIELD
	Orientation   float64   `json:"orientation"`    // FIELD
	Speed         float64   `json:"speed"`          // FIELD
	SensorRange   float64   `json:"sensor_range"`   // FIELD
	TaskCompleted bool      `json:"task_completed"` // FIELD
	Avoiding      bool      `json:"avoiding"`       // FIELD
	Tick          int64     `json:"tick"`           // FIELD
	Timestamp     time.Time `json:"ts"`             // TIME INDEX
}

// AgentTableName holds the table name used when writing agent rows.
// It defaults to "robot_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var AgentTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "robot_telemetry"
}()

func (AgentRow) TableName() string {
	return AgentTableName
}

// Event types.
const (
	EventCollision   = "collision"
	EventAvoidance   = "avoidance"
	EventLifecycle   = "lifecycle"
	EventTermination = "termination"
	EventCommand     = "command"
	EventMutation    = "mutation"
	EventPhase       = "phase"
)

// EventRow records something that happened during a tick.
type EventRow struct {
	RunID      string    `json:"run_id"`
	Type       string    `json:"event_type"`
	AgentID    int       `json:"agent_id,omitempty"`
	ObstacleID int       `json:"obstacle_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Tick       int64     `json:"tick"`
	Timestamp  time.Time `json:"ts"`
}

func (EventRow) TableName() string { return "robot_events" }

// StateRow captures per-tick simulator state.
type StateRow struct {
	RunID      string    `json:"run_id"`
	State      string    `json:"state"`
	Tick       int64     `json:"tick"`
	ElapsedS   float64   `json:"elapsed_s"`
	Agents     int       `json:"agents"`
	Obstacles  int       `json:"obstacles"`
	Collisions int       `json:"collisions"`
	Completed  int       `json:"completed"`
	Phase      string    `json:"phase,omitempty"`
	Timestamp  time.Time `json:"ts"`
}

func (StateRow) TableName() string { return "simulation_state" }
