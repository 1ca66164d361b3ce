package sim

import (
	"encoding/json"
	"errors"
	"os"

	"robotarena-sim/internal/telemetry"
)

// FileWriter writes agent, event and state rows to JSONL files.
type FileWriter struct {
	agentFile *os.File
	eventFile *os.File
	stateFile *os.File
	agentEnc  *json.Encoder
	eventEnc  *json.Encoder
	stateEnc  *json.Encoder
}

// NewFileWriter creates a FileWriter. eventPath or statePath may be empty to
// skip those logs.
func NewFileWriter(agentPath, eventPath, statePath string) (*FileWriter, error) {
	af, err := os.Create(agentPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{agentFile: af, agentEnc: json.NewEncoder(af)}
	if eventPath != "" {
		ef, err := os.Create(eventPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.eventFile = ef
		fw.eventEnc = json.NewEncoder(ef)
	}
	if statePath != "" {
		sf, err := os.Create(statePath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.stateFile = sf
		fw.stateEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// Write logs a single agent row.
func (f *FileWriter) Write(row telemetry.AgentRow) error {
	return f.agentEnc.Encode(row)
}

// WriteBatch logs multiple agent rows.
func (f *FileWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs a single event row, if enabled.
func (f *FileWriter) WriteEvent(e telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(e)
}

// WriteEvents logs multiple event rows.
func (f *FileWriter) WriteEvents(rows []telemetry.EventRow) error {
	for _, e := range rows {
		if err := f.WriteEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// WriteState logs a simulation state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.StateRow) error {
	if f.stateEnc == nil {
		return nil
	}
	return f.stateEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var errs []error
	for _, file := range []*os.File{f.agentFile, f.eventFile, f.stateFile} {
		if file != nil {
			errs = append(errs, file.Close())
		}
	}
	return errors.Join(errs...)
}
