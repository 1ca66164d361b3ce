package sim

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"robotarena-sim/internal/config"
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/telemetry"
	"robotarena-sim/internal/world"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// agentMsg carries the latest row of one agent.
type agentMsg struct{ telemetry.AgentRow }

// eventMsg carries an event log line and row data.
type eventMsg struct {
	line string
	row  telemetry.EventRow
}

// stateMsg carries a simulation state update.
type stateMsg struct{ telemetry.StateRow }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type controllerMsg struct{ ctl Controller }

const (
	maxLogLines         = 1000
	maxSectionHeightPct = 0.25
)

// TUIWriter renders telemetry using a bubbletea TUI and lets the user drive
// remote robots from the keyboard.
type TUIWriter struct {
	program    teaProgram
	colors     agentColors
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(cfg *config.SimulationConfig) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(cfg), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements TelemetryWriter.
func (w *TUIWriter) Write(row telemetry.AgentRow) error {
	w.program.Send(logMsg{line: formatAgentLine(row, w.colors.get(row.AgentID))})
	w.program.Send(agentMsg{row})
	return nil
}

// WriteBatch outputs multiple agent rows.
func (w *TUIWriter) WriteBatch(rows []telemetry.AgentRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e telemetry.EventRow) error {
	w.program.Send(eventMsg{line: formatEventLine(e), row: e})
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.StateRow) error {
	w.program.Send(stateMsg{StateRow: row})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetController registers the simulation the keyboard drives.
func (w *TUIWriter) SetController(c Controller) {
	w.program.Send(controllerMsg{ctl: c})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type dialogKind int

const (
	dialogNone dialogKind = iota
	dialogAdd
	dialogRemove
)

type tuiModel struct {
	cfg          *config.SimulationConfig
	table        table.Model
	vp           viewport.Model
	evVP         viewport.Model
	logs         []string
	evLogs       []string
	state        telemetry.StateRow
	agents       map[int]telemetry.AgentRow
	colors       *agentColors
	admin        bool
	wrap         bool
	autoscroll   bool
	showAgents   bool
	help         bool
	header       string
	headerHeight int
	height       int
	ctl          Controller
	target       int
	input        textinput.Model
	dialog       dialogKind
	status       string
}

func newTUIModel(cfg *config.SimulationConfig) tuiModel {
	if cfg == nil {
		cfg = config.Default()
	}
	cols := []table.Column{
		{Title: "Config", Width: 16},
		{Title: "Value", Width: 14},
		{Title: "Config", Width: 16},
		{Title: "Value", Width: 14},
	}
	pairs := configPairs(cfg)
	var rows []table.Row
	for i := 0; i < len(pairs); i += 2 {
		row := table.Row{pairs[i][0], pairs[i][1], "", ""}
		if i+1 < len(pairs) {
			row[2], row[3] = pairs[i+1][0], pairs[i+1][1]
		}
		rows = append(rows, row)
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		cfg:        cfg,
		table:      t,
		vp:         viewport.New(0, 0),
		evVP:       viewport.New(0, 0),
		agents:     make(map[int]telemetry.AgentRow),
		colors:     &agentColors{},
		autoscroll: true,
		showAgents: true,
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		tableWidth := msg.Width
		if m.showAgents {
			tableWidth = msg.Width / 2
		}
		m.table.SetWidth(tableWidth)
		m.vp.Width = msg.Width
		m.evVP.Width = msg.Width
		m.height = msg.Height
		m.refreshHeader()
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshEvents()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case logMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.refreshViewport()
	case agentMsg:
		m.agents[msg.AgentID] = msg.AgentRow
	case eventMsg:
		m.evLogs = appendCapped(m.evLogs, msg.line)
		m.updateViewportHeight()
		m.refreshEvents()
	case stateMsg:
		m.state = msg.StateRow
		// agent rows of a tick arrive before its state row
		for id, row := range m.agents {
			if row.Tick < msg.Tick {
				delete(m.agents, id)
			}
		}
		if m.showAgents {
			m.refreshHeader()
			m.updateViewportHeight()
		}
	case adminMsg:
		m.admin = msg.active
	case controllerMsg:
		m.ctl = msg.ctl
	}
	return m, nil
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog != dialogNone {
		switch msg.Type {
		case tea.KeyEnter:
			m.submitDialog()
			m.dialog = dialogNone
			m.updateViewportHeight()
		case tea.KeyEsc:
			m.dialog = dialogNone
			m.updateViewportHeight()
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	if m.help {
		switch msg.String() {
		case "?", "h", "esc":
			m.help = false
			m.updateViewportHeight()
		}
		return m, nil
	}
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "w":
		m.wrap = !m.wrap
		m.refreshViewport()
		m.refreshHeader()
		m.updateViewportHeight()
		return m, nil
	case "s":
		m.autoscroll = !m.autoscroll
		if m.autoscroll {
			m.vp.GotoBottom()
			m.evVP.GotoBottom()
		}
		return m, nil
	case "p":
		m.showAgents = !m.showAgents
		if m.showAgents {
			m.table.SetWidth(m.vp.Width / 2)
		} else {
			m.table.SetWidth(m.vp.Width)
		}
		m.refreshHeader()
		m.updateViewportHeight()
		return m, nil
	case "h", "?":
		m.help = !m.help
		m.updateViewportHeight()
		return m, nil
	case " ":
		m.togglePause()
		return m, nil
	case "tab":
		m.cycleTarget()
		return m, nil
	case "up":
		m.drive(world.StopMoveBackward, world.StartMoveForward)
		return m, nil
	case "down":
		m.drive(world.StopMoveForward, world.StartMoveBackward)
		return m, nil
	case "left":
		m.drive(world.StopTurnRight, world.StartTurnLeft)
		return m, nil
	case "right":
		m.drive(world.StopTurnLeft, world.StartTurnRight)
		return m, nil
	case "x":
		m.drive(world.StopMoveForward, world.StopMoveBackward, world.StopTurnLeft, world.StopTurnRight)
		return m, nil
	case "a":
		m.openDialog(dialogAdd, "Obstacle <id> <x> <y> <size> | Robot <kind> <id> <x> <y> <speed> <orientation> <sensor>")
		return m, nil
	case "d":
		m.openDialog(dialogRemove, "agent <id> | obstacle <id>")
		return m, nil
	}
	if !m.autoscroll {
		switch msg.String() {
		case "j":
			m.vp.LineDown(1)
			m.evVP.LineDown(1)
		case "k":
			m.vp.LineUp(1)
			m.evVP.LineUp(1)
		case "pgdown", "ctrl+n":
			m.vp.LineDown(10)
			m.evVP.LineDown(10)
		case "pgup", "ctrl+p":
			m.vp.LineUp(10)
			m.evVP.LineUp(10)
		default:
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			m.evVP, _ = m.evVP.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *tuiModel) openDialog(kind dialogKind, placeholder string) {
	m.input = textinput.New()
	m.input.Placeholder = placeholder
	m.input.Focus()
	m.dialog = kind
	m.updateViewportHeight()
}

func (m *tuiModel) submitDialog() {
	if m.ctl == nil {
		m.status = "no simulation attached"
		return
	}
	ctl := m.ctl
	val := strings.TrimSpace(m.input.Value())
	switch m.dialog {
	case dialogAdd:
		sc, err := scene.ParseLine(val)
		if err != nil {
			m.status = fmt.Sprintf("invalid record: %v", err)
			return
		}
		if sc.Len() == 0 {
			m.status = "nothing to add"
			return
		}
		go func() { _ = ctl.LoadScene(sc, false) }()
		m.status = "added: " + val
	case dialogRemove:
		kind, id, err := parseRemoveInput(val)
		if err != nil {
			m.status = err.Error()
			return
		}
		if kind == "agent" {
			go ctl.RemoveAgent(id)
		} else {
			go ctl.RemoveObstacle(id)
		}
		m.status = fmt.Sprintf("removing %s %d", kind, id)
	}
}

func parseRemoveInput(val string) (string, int, error) {
	fields := strings.Fields(val)
	if len(fields) != 2 || (fields[0] != "agent" && fields[0] != "obstacle") {
		return "", 0, fmt.Errorf("expected agent <id> or obstacle <id>")
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("bad id %q", fields[1])
	}
	return fields[0], id, nil
}

func (m *tuiModel) togglePause() {
	if m.ctl == nil {
		return
	}
	ctl := m.ctl
	go func() {
		if ctl.State() == Paused {
			ctl.Resume()
		} else {
			ctl.Pause()
		}
	}()
	m.status = "toggling pause"
}

// remoteIDs lists the remote agents seen so far in ascending order.
func (m tuiModel) remoteIDs() []int {
	var ids []int
	for id, row := range m.agents {
		if row.Kind == string(world.KindRemote) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// cycleTarget steps through all remotes (0) and each remote id in turn.
func (m *tuiModel) cycleTarget() {
	ids := m.remoteIDs()
	next := 0
	if m.target == 0 {
		if len(ids) > 0 {
			next = ids[0]
		}
	} else {
		for i, id := range ids {
			if id == m.target && i+1 < len(ids) {
				next = ids[i+1]
			}
		}
	}
	m.target = next
	m.status = "target: " + m.targetLabel()
	m.refreshHeader()
}

func (m tuiModel) targetLabel() string {
	if m.target == 0 {
		return "all remotes"
	}
	return fmt.Sprintf("remote %d", m.target)
}

func (m *tuiModel) drive(cmds ...world.Command) {
	if m.ctl == nil || len(cmds) == 0 {
		return
	}
	ctl, target := m.ctl, m.target
	go func() {
		for _, cmd := range cmds {
			if target == 0 {
				ctl.SendCommand(cmd)
			} else {
				ctl.SendCommandTo(target, cmd)
			}
		}
	}()
	m.status = fmt.Sprintf("%s: %s", m.targetLabel(), cmds[len(cmds)-1])
}

func (m *tuiModel) refreshHeader() {
	m.header = m.renderHeader()
	m.headerHeight = lipgloss.Height(m.header)
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())

	evLines := len(m.evLogs)
	if evLines == 0 {
		evLines = 1
	}
	if limit := m.maxSectionLines(); evLines > limit {
		evLines = limit
	}
	m.evVP.Height = evLines

	dialogHeight := 0
	if m.dialog != dialogNone {
		dialogHeight = 2
	}
	h := m.height - m.headerHeight - bottomHeight - m.evVP.Height - dialogHeight - 4
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.evVP.GotoBottom()
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshEvents() {
	content := "none"
	if len(m.evLogs) > 0 {
		content = strings.Join(m.evLogs, "\n")
	}
	m.evVP.SetContent(content)
	if m.autoscroll {
		m.evVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Events:",
		m.evVP.View(),
	}
	if m.dialog != dialogNone {
		sections = append(sections, divider, m.renderDialog())
	}
	sections = append(sections, divider, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	tableView := m.table.View()
	if !m.showAgents {
		return tableView
	}
	width := m.vp.Width/2 - 1
	tree := renderAgentTree(m.agents, m.colors, m.target, m.wrap, width)
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, tableView, sep, tree)
}

func renderAgentTree(agents map[int]telemetry.AgentRow, colors *agentColors, target int, wrap bool, width int) string {
	var b strings.Builder
	b.WriteString("Robots\n")
	ids := make([]int, 0, len(agents))
	for id := range agents {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for i, id := range ids {
		r := agents[id]
		prefix := "├─"
		if i == len(ids)-1 {
			prefix = "└─"
		}
		mark := ""
		if target != 0 && id == target {
			mark = " ◀"
		}
		line := fmt.Sprintf("%s %s%s %d%s (%.0f,%.0f) hdg %.0f%s", prefix, colors.get(id), r.Kind, id, colorReset, r.X, r.Y, r.Orientation, mark)
		if r.TaskCompleted {
			line += " done"
		}
		if wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m tuiModel) renderDialog() string {
	switch m.dialog {
	case dialogAdd:
		return fmt.Sprintf("Add scene record - Enter to add, Esc to cancel: %s", m.input.View())
	case dialogRemove:
		return fmt.Sprintf("Remove (agent <id> | obstacle <id>) - Enter to remove, Esc to cancel: %s", m.input.View())
	}
	return ""
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	line := fmt.Sprintf("%s | Target %s | Admin UI %s | Wrap %s | Scroll %s | Robots %s | Help %s",
		formatStateLine(m.state), m.targetLabel(),
		indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll),
		indicator(m.showAgents), indicator(m.help))
	if m.status != "" {
		return fmt.Sprintf("%s\n%s", m.status, line)
	}
	return line
}

func renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q      quit",
		" space  pause / resume",
		" ↑ ↓    drive forward / backward",
		" ← →    turn left / right",
		" x      stop all movement",
		" tab    cycle target (all remotes, then each remote)",
		" a      add a scene record (Obstacle ... | Robot ...)",
		" d      remove an agent or obstacle",
		" w      toggle wrap",
		" s      toggle auto-scroll",
		" p      toggle robot list",
		" h/?    toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k           scroll one line",
		" pgdown/pgup   scroll a page",
	}
	return strings.Join(lines, "\n")
}
