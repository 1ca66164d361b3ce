// Writer implementation printing telemetry to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"robotarena-sim/internal/config"
	"robotarena-sim/internal/geometry"
	"robotarena-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

var agentPalette = []string{colorGreen, colorYellow, colorBlue, colorMagenta, colorCyan, colorRed}

// agentColors hands out a stable palette colour per agent id.
type agentColors struct {
	colors map[int]string
	next   int
}

func (c *agentColors) get(id int) string {
	if c.colors == nil {
		c.colors = make(map[int]string)
	}
	if col, ok := c.colors[id]; ok {
		return col
	}
	col := agentPalette[c.next%len(agentPalette)]
	c.colors[id] = col
	c.next++
	return col
}

// StdoutWriter prints rows to STDOUT, colorized when attached to a terminal
// and as JSON lines otherwise.
type StdoutWriter struct {
	cfg      *config.SimulationConfig
	out      io.Writer
	colorize bool
	once     sync.Once
	colors   agentColors
}

// NewStdoutWriter creates a StdoutWriter for os.Stdout.
func NewStdoutWriter(cfg *config.SimulationConfig) *StdoutWriter {
	return &StdoutWriter{
		cfg:      cfg,
		out:      os.Stdout,
		colorize: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (w *StdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	for _, kv := range configPairs(w.cfg) {
		fmt.Fprintf(tw, "%s:\t%s\n", kv[0], kv[1])
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// configPairs lists the configuration values shown by human-readable writers.
func configPairs(cfg *config.SimulationConfig) [][2]string {
	return [][2]string{
		{"Run Label", cfg.RunLabel},
		{"Arena", fmt.Sprintf("%.0fx%.0f", cfg.Arena.Width, cfg.Arena.Height)},
		{"Tick", cfg.TimeStep().String()},
		{"Max Duration", geometry.FormatElapsed(cfg.MaxDuration())},
		{"Max Collisions", fmt.Sprintf("%d", cfg.Limits.MaxCollisions)},
		{"Collision Check", fmt.Sprintf("%t", cfg.CollisionCheck)},
		{"Robot Radius", fmt.Sprintf("%.1f", cfg.Agents.Radius)},
		{"Avoidance Angle", fmt.Sprintf("%.0f°", cfg.Agents.AvoidanceAngle)},
		{"Sensor Fan", fmt.Sprintf("±%.0f° step %.0f°", cfg.Agents.SensorHalfAngle, cfg.Agents.SensorStep)},
		{"Remote Turn Rate", fmt.Sprintf("%.0f°/tick", cfg.Agents.RemoteTurnRate)},
	}
}

func (w *StdoutWriter) json(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a single agent row.
func (w *StdoutWriter) Write(row telemetry.AgentRow) error {
	if !w.colorize {
		return w.json(row)
	}
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatAgentLine(row, w.colors.get(row.AgentID)))
	return err
}

// WriteBatch outputs multiple agent rows.
func (w *StdoutWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent prints a simulation event.
func (w *StdoutWriter) WriteEvent(e telemetry.EventRow) error {
	if !w.colorize {
		return w.json(e)
	}
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatEventLine(e))
	return err
}

// WriteState prints simulation state metrics.
func (w *StdoutWriter) WriteState(row telemetry.StateRow) error {
	if !w.colorize {
		return w.json(row)
	}
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatStateLine(row))
	return err
}

func formatAgentLine(row telemetry.AgentRow, agentColor string) string {
	line := fmt.Sprintf("%s[%s]%s %s%s=%d%s %spos=(%.1f,%.1f)%s %shdg=%.1f%s %sspd=%.1f%s %ssensor=%.0f%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		agentColor, row.Kind, row.AgentID, colorReset,
		colorWhite(), row.X, row.Y, colorReset,
		colorCyan, row.Orientation, colorReset,
		colorYellow, row.Speed, colorReset,
		colorBlue, row.SensorRange, colorReset)
	if row.Avoiding {
		line += fmt.Sprintf(" %savoiding%s", colorMagenta, colorReset)
	}
	if row.TaskCompleted {
		line += fmt.Sprintf(" %sdone%s", colorGreen, colorReset)
	}
	return line
}

func eventColor(typ string) string {
	switch typ {
	case telemetry.EventCollision:
		return colorRed
	case telemetry.EventAvoidance:
		return colorYellow
	case telemetry.EventTermination:
		return colorMagenta
	case telemetry.EventCommand:
		return colorCyan
	case telemetry.EventPhase:
		return colorBlue
	}
	return colorGreen
}

func formatEventLine(e telemetry.EventRow) string {
	line := fmt.Sprintf("%s[%s]%s %s%s%s tick=%d",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		eventColor(e.Type), e.Type, colorReset, e.Tick)
	if e.AgentID != 0 {
		line += fmt.Sprintf(" agent=%d", e.AgentID)
	}
	if e.ObstacleID != 0 {
		line += fmt.Sprintf(" obstacle=%d", e.ObstacleID)
	}
	if e.Detail != "" {
		line += " " + e.Detail
	}
	return line
}

func formatStateLine(row telemetry.StateRow) string {
	line := fmt.Sprintf("%sSTATE%s %s%s%s tick=%d elapsed=%s %sagents=%d%s obstacles=%d %scollisions=%d%s done=%d",
		colorBlue, colorReset,
		colorGreen, row.State, colorReset,
		row.Tick, geometry.FormatElapsed(time.Duration(row.ElapsedS*float64(time.Second))),
		colorCyan, row.Agents, colorReset,
		row.Obstacles,
		colorRed, row.Collisions, colorReset,
		row.Completed)
	if row.Phase != "" {
		line += fmt.Sprintf(" %sphase=%s%s", colorMagenta, row.Phase, colorReset)
	}
	return line
}
