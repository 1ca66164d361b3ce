package sim

import (
	"errors"

	"robotarena-sim/internal/telemetry"
)

// MultiWriter fans agent, event and state rows out to multiple writers.
// Event and state rows reach only the writers that implement those interfaces.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(writers ...TelemetryWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write sends an agent row to all writers.
func (mw *MultiWriter) Write(row telemetry.AgentRow) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.Write(row))
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple agent rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.AgentRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			errs = append(errs, bw.WriteBatch(rows))
			continue
		}
		for _, r := range rows {
			errs = append(errs, w.Write(r))
		}
	}
	return errors.Join(errs...)
}

// WriteEvent sends an event row to all event writers.
func (mw *MultiWriter) WriteEvent(e telemetry.EventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if ew, ok := w.(EventWriter); ok {
			errs = append(errs, ew.WriteEvent(e))
		}
	}
	return errors.Join(errs...)
}

// WriteEvents sends multiple events to all event writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(rows []telemetry.EventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchEventWriter); ok {
			errs = append(errs, bw.WriteEvents(rows))
			continue
		}
		if ew, ok := w.(EventWriter); ok {
			for _, e := range rows {
				errs = append(errs, ew.WriteEvent(e))
			}
		}
	}
	return errors.Join(errs...)
}

// WriteState sends a state row to all state writers.
func (mw *MultiWriter) WriteState(row telemetry.StateRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(StateWriter); ok {
			errs = append(errs, sw.WriteState(row))
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards the admin UI status to writers that show it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// SetController forwards the controller to interactive writers.
func (mw *MultiWriter) SetController(c Controller) {
	for _, w := range mw.writers {
		if cw, ok := w.(ControlWriter); ok {
			cw.SetController(c)
		}
	}
}
