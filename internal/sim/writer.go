package sim

import (
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/telemetry"
	"robotarena-sim/internal/world"
)

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.AgentRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.AgentRow) error
}

// EventWriter handles collision, avoidance, lifecycle and control events.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// Optional: Event writers may support batch mode
type batchEventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}

// StateWriter handles per-tick simulation state rows.
type StateWriter interface {
	WriteState(telemetry.StateRow) error
}

// AdminStatusWriter allows writers to receive admin UI status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// Controller is the control surface exposed to interactive writers.
// *Simulator implements it.
type Controller interface {
	State() State
	Pause()
	Resume()
	SendCommand(cmd world.Command) int
	SendCommandTo(id int, cmd world.Command) bool
	LoadScene(sc *scene.Scene, replace bool) error
	RemoveAgent(id int) bool
	RemoveObstacle(id int) bool
}

// ControlWriter is implemented by writers that drive the simulation.
type ControlWriter interface {
	SetController(Controller)
}
