package main

import (
	"os"

	"robotarena-sim/internal/config"
	"robotarena-sim/internal/sim"
)

// newWriters sets up the telemetry writer based on flags and env vars. It
// returns the writer and a cleanup function to close any resources.
func newWriters(cfg *config.SimulationConfig, printOnly, tui bool, logFile string) (sim.TelemetryWriter, func(), error) {
	writer, closeBase, err := baseWriter(cfg, printOnly, tui)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return writer, closeBase, nil
	}
	fw, err := sim.NewFileWriter(logFile, logFile+".events", logFile+".state")
	if err != nil {
		closeBase()
		return nil, nil, err
	}
	cleanup := func() {
		closeBase()
		fw.Close()
	}
	return sim.NewMultiWriter(writer, fw), cleanup, nil
}

// baseWriter chooses the underlying writer: the TUI, STDOUT when printOnly is
// set or no GreptimeDB endpoint is configured, and GreptimeDB otherwise.
func baseWriter(cfg *config.SimulationConfig, printOnly, tui bool) (sim.TelemetryWriter, func(), error) {
	if tui {
		w := sim.NewTUIWriter(cfg)
		return w, func() { w.Close() }, nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		return sim.NewStdoutWriter(cfg), func() {}, nil
	}
	w, err := greptimeWriter(endpoint)
	if err != nil {
		return nil, nil, err
	}
	return w, func() {}, nil
}

func greptimeWriter(endpoint string) (*sim.GreptimeDBWriter, error) {
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	return sim.NewGreptimeDBWriter(endpoint, database)
}

// newReplayWriter creates the writer used by replay. Rows always go out as
// JSON lines when not sent to GreptimeDB.
func newReplayWriter(printOnly bool) (sim.TelemetryWriter, error) {
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		return sim.NewJSONStdoutWriter(), nil
	}
	return greptimeWriter(endpoint)
}
