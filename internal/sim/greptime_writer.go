package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"robotarena-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes agent, event and state rows to GreptimeDB via the
// ingester client. Tables are created on first write.
type GreptimeDBWriter struct {
	client     greptimeClient
	agentTable string
	eventTable string
	stateTable string
	timeout    time.Duration
	log        *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:     client,
		agentTable: telemetry.AgentRow{}.TableName(),
		eventTable: telemetry.EventRow{}.TableName(),
		stateTable: telemetry.StateRow{}.TableName(),
		timeout:    5 * time.Second,
		log:        slog.Default(),
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	if w.log != nil {
		w.log.Debug("greptime rows written", "rows", n)
	}
	return nil
}

// Write inserts a single agent row.
func (w *GreptimeDBWriter) Write(row telemetry.AgentRow) error {
	return w.WriteBatch([]telemetry.AgentRow{row})
}

// WriteBatch inserts multiple agent rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.AgentRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.agentTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("run_label", types.STRING),
		tbl.AddTagColumn("agent_id", types.INT64),
		tbl.AddTagColumn("kind", types.STRING),
		tbl.AddFieldColumn("x", types.FLOAT64),
		tbl.AddFieldColumn("y", types.FLOAT64),
		tbl.AddFieldColumn("orientation", types.FLOAT64),
		tbl.AddFieldColumn("speed", types.FLOAT64),
		tbl.AddFieldColumn("sensor_range", types.FLOAT64),
		tbl.AddFieldColumn("task_completed", types.BOOLEAN),
		tbl.AddFieldColumn("avoiding", types.BOOLEAN),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.RunID, r.RunLabel, int64(r.AgentID), r.Kind,
			r.X, r.Y, r.Orientation, r.Speed, r.SensorRange,
			r.TaskCompleted, r.Avoiding, r.Tick, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteEvent inserts a single event row.
func (w *GreptimeDBWriter) WriteEvent(e telemetry.EventRow) error {
	return w.WriteEvents([]telemetry.EventRow{e})
}

// WriteEvents inserts multiple event rows.
func (w *GreptimeDBWriter) WriteEvents(rows []telemetry.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddTagColumn("event_type", types.STRING),
		tbl.AddFieldColumn("agent_id", types.INT64),
		tbl.AddFieldColumn("obstacle_id", types.INT64),
		tbl.AddFieldColumn("detail", types.STRING),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	for _, e := range rows {
		if err := tbl.AddRow(e.RunID, e.Type, int64(e.AgentID), int64(e.ObstacleID),
			e.Detail, e.Tick, e.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteState inserts a simulation state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.StateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	if err := errors.Join(
		tbl.AddTagColumn("run_id", types.STRING),
		tbl.AddFieldColumn("state", types.STRING),
		tbl.AddFieldColumn("tick", types.INT64),
		tbl.AddFieldColumn("elapsed_s", types.FLOAT64),
		tbl.AddFieldColumn("agents", types.INT64),
		tbl.AddFieldColumn("obstacles", types.INT64),
		tbl.AddFieldColumn("collisions", types.INT64),
		tbl.AddFieldColumn("completed", types.INT64),
		tbl.AddFieldColumn("phase", types.STRING),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return err
	}
	if err := tbl.AddRow(row.RunID, row.State, row.Tick, row.ElapsedS,
		int64(row.Agents), int64(row.Obstacles), int64(row.Collisions), int64(row.Completed),
		row.Phase, row.Timestamp); err != nil {
		return err
	}
	return w.write(tbl, 1)
}
