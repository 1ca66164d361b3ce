package sim

import (
	"encoding/json"
	"io"
	"os"

	"robotarena-sim/internal/telemetry"
)

// JSONStdoutWriter prints agent, event and state rows as JSON lines.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) encode(v any) error {
	return json.NewEncoder(w.out).Encode(v)
}

// Write outputs an agent row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.AgentRow) error { return w.encode(row) }

// WriteBatch outputs multiple agent rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent outputs an event row in JSON format.
func (w *JSONStdoutWriter) WriteEvent(e telemetry.EventRow) error { return w.encode(e) }

// WriteState outputs a state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.StateRow) error { return w.encode(row) }
