package sim

import (
	"errors"
	"testing"

	"robotarena-sim/internal/telemetry"
)

// rowOnlyWriter implements only TelemetryWriter.
type rowOnlyWriter struct {
	rows []telemetry.AgentRow
	err  error
}

func (w *rowOnlyWriter) Write(r telemetry.AgentRow) error {
	w.rows = append(w.rows, r)
	return w.err
}

// batchingWriter records how rows arrived.
type batchingWriter struct {
	MockWriter
	batches     int
	eventBatches int
	admin       bool
	ctl         Controller
}

func (w *batchingWriter) WriteBatch(rows []telemetry.AgentRow) error {
	w.batches++
	for _, r := range rows {
		_ = w.MockWriter.Write(r)
	}
	return nil
}

func (w *batchingWriter) WriteEvents(rows []telemetry.EventRow) error {
	w.eventBatches++
	for _, e := range rows {
		_ = w.MockWriter.WriteEvent(e)
	}
	return nil
}

func (w *batchingWriter) SetAdminStatus(listening bool) { w.admin = listening }
func (w *batchingWriter) SetController(c Controller)    { w.ctl = c }

func TestMultiWriterFanOut(t *testing.T) {
	plain := &rowOnlyWriter{}
	full := &batchingWriter{}
	mw := NewMultiWriter(plain, full)

	rows := []telemetry.AgentRow{{AgentID: 1}, {AgentID: 2}}
	if err := mw.WriteBatch(rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if len(plain.rows) != 2 {
		t.Fatalf("plain writer got %d rows", len(plain.rows))
	}
	if full.batches != 1 || len(full.Rows) != 2 {
		t.Fatalf("batch writer got %d batches, %d rows", full.batches, len(full.Rows))
	}

	evs := []telemetry.EventRow{{Type: telemetry.EventCollision}, {Type: telemetry.EventAvoidance}}
	if err := mw.WriteEvents(evs); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	if err := mw.WriteEvent(telemetry.EventRow{Type: telemetry.EventLifecycle}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if full.eventBatches != 1 || len(full.Events) != 3 {
		t.Fatalf("event writer got %d batches, %d events", full.eventBatches, len(full.Events))
	}

	if err := mw.WriteState(telemetry.StateRow{Tick: 4}); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if len(full.States) != 1 || full.States[0].Tick != 4 {
		t.Fatalf("state rows = %+v", full.States)
	}

	mw.SetAdminStatus(true)
	s := NewSimulator(nil, nil)
	mw.SetController(s)
	if !full.admin || full.ctl != Controller(s) {
		t.Fatalf("admin status or controller not forwarded")
	}
}

func TestMultiWriterJoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	mw := NewMultiWriter(&rowOnlyWriter{err: errA}, &rowOnlyWriter{err: errB}, &rowOnlyWriter{})
	err := mw.Write(telemetry.AgentRow{AgentID: 1})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both errors, got %v", err)
	}
}
