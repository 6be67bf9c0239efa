package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
	"github.com/gwillem/autonrec/pkg/sim"
	"github.com/gwillem/autonrec/pkg/teleop"
)

const (
	headerHeight = 2  // title + blank line
	panelHeight  = 5  // LCD box + blank
	legendHeight = 2  // legend row + blank
	footerHeight = 7  // log box height
	helpHeight   = 2  // help line + blank
	maxLogs      = 5  // number of log messages to show
	borderSize   = 2  // chart border
	stickStep    = 16 // command change per key press
	refreshEvery = 100 * time.Millisecond
)

// Channel colors - distinct colors for each channel
var channelColors = map[robot.Channel]string{
	robot.Speed:        "196", // red
	robot.Turn:         "208", // orange
	robot.Shooter:      "226", // yellow
	robot.Intake:       "46",  // green
	robot.Transmission: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle   = lipgloss.NewStyle().Padding(0, 2)
)

// LCD look with the backlight on and off
var (
	lcdOnStyle = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("28")).
			Background(lipgloss.Color("148")).Foreground(lipgloss.Color("22")).Width(recorder.NameMax)
	lcdOffStyle = lcdOnStyle.BorderForeground(lipgloss.Color("238")).
			Background(lipgloss.Color("236")).Foreground(lipgloss.Color("242"))
)

type keyMap struct {
	PotLeft  key.Binding
	PotRight key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	Charset  key.Binding
	Delete   key.Binding
	Record   key.Binding
	Load     key.Binding
	Auton    key.Binding
	Online   key.Binding
	Forward  key.Binding
	Back     key.Binding
	Left     key.Binding
	Right    key.Binding
	Shooter  key.Binding
	Intake   key.Binding
	Gear     key.Binding
	Center   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap(stick bool) keyMap {
	return keyMap{
		PotLeft:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pot down")),
		PotRight: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pot up")),
		Confirm:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Cancel:   key.NewBinding(key.WithKeys("esc", "x"), key.WithHelp("esc/x", "cancel")),
		Charset:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "charset")),
		Delete:   key.NewBinding(key.WithKeys("backspace"), key.WithHelp("bksp", "delete")),
		Record:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record")),
		Load:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "load+play")),
		Auton:    key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "auton period")),
		Online:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "field online")),
		Forward:  key.NewBinding(key.WithKeys("w", "up"), key.WithHelp("w/↑", "forward")),
		Back:     key.NewBinding(key.WithKeys("s", "down"), key.WithHelp("s/↓", "back")),
		Left:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "turn left")),
		Right:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "turn right")),
		Shooter:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "shooter")),
		Intake:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "intake")),
		Gear:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "transmission")),
		Center:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "release")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}.withStick(stick)
}

func (k keyMap) withStick(on bool) keyMap {
	for _, b := range []*key.Binding{&k.Forward, &k.Back, &k.Left, &k.Right, &k.Shooter, &k.Intake, &k.Gear, &k.Center} {
		b.SetEnabled(on)
	}
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Load, k.Confirm, k.Cancel, k.Online, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PotLeft, k.PotRight, k.Confirm, k.Cancel, k.Charset, k.Delete},
		{k.Record, k.Load, k.Auton, k.Online},
		{k.Forward, k.Back, k.Left, k.Right, k.Shooter, k.Intake, k.Gear, k.Center},
		{k.Help, k.Quit},
	}
}

type consoleModel struct {
	title    string
	ctrl     *teleop.Controller
	panel    *sim.Panel
	stick    *sim.Stick      // nil when a leader arm drives
	plant    *sim.Drivetrain // nil when a follower arm is driven
	chart    *streamlinechart.Model
	keys     keyMap
	help     help.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	state    teleop.State
	lastCmd  *robot.Snapshot
	quitting bool
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string
type refreshMsg time.Time

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

func newConsoleModel(title string, ctrl *teleop.Controller, panel *sim.Panel, stick *sim.Stick, plant *sim.Drivetrain) consoleModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-robot.CommandMax, robot.CommandMax),
	)
	for _, ch := range robot.AllChannels() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[ch]))
		chart.SetDataSetStyles(string(ch), runes.ThinLineStyle, style)
	}

	return consoleModel{
		title: title,
		ctrl:  ctrl,
		panel: panel,
		stick: stick,
		plant: plant,
		chart: &chart,
		keys:  newKeyMap(stick != nil),
		help:  help.New(),
	}
}

func (m *consoleModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *consoleModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 16 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-panelHeight-legendHeight-footerHeight-helpHeight-borderSize, 6)
	return width, height
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
		refresh(),
	)
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.state = teleop.State(msg)
		// Only update chart when the command changes (freeze when idle)
		if m.lastCmd == nil || *m.lastCmd != m.state.Command {
			for _, ch := range robot.AllChannels() {
				m.chart.PushDataSet(string(ch), float64(m.state.Command.Get(ch)))
			}
			m.chart.DrawAll()
			cmd := m.state.Command
			m.lastCmd = &cmd
		}
		if m.state.Error != nil {
			m.addLog("Error: " + m.state.Error.Error())
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case refreshMsg:
		return m, refresh()
	}

	return m, nil
}

func (m consoleModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, potHigh := m.panel.Pot()
	potStep := max(potHigh/56, 1)

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.PotLeft):
		m.panel.TurnPot(-potStep)
	case key.Matches(msg, m.keys.PotRight):
		m.panel.TurnPot(potStep)
	case key.Matches(msg, m.keys.Confirm):
		m.panel.Press(recorder.Confirm)
	case key.Matches(msg, m.keys.Cancel):
		m.panel.Press(recorder.Cancel)
	case key.Matches(msg, m.keys.Charset):
		m.panel.Press(recorder.Charset)
	case key.Matches(msg, m.keys.Delete):
		m.panel.Press(recorder.Delete)
	case key.Matches(msg, m.keys.Record):
		m.panel.Press(recorder.Record)
	case key.Matches(msg, m.keys.Load):
		m.panel.Press(recorder.Load)
	case key.Matches(msg, m.keys.Auton):
		m.ctrl.RunAutonomous()
	case key.Matches(msg, m.keys.Online):
		m.panel.SetOnline(!m.panel.Online())
	case key.Matches(msg, m.keys.Forward):
		m.stick.Nudge(robot.Speed, stickStep)
	case key.Matches(msg, m.keys.Back):
		m.stick.Nudge(robot.Speed, -stickStep)
	case key.Matches(msg, m.keys.Left):
		m.stick.Nudge(robot.Turn, -stickStep)
	case key.Matches(msg, m.keys.Right):
		m.stick.Nudge(robot.Turn, stickStep)
	case key.Matches(msg, m.keys.Shooter):
		toggle(m.stick, robot.Shooter)
	case key.Matches(msg, m.keys.Intake):
		toggle(m.stick, robot.Intake)
	case key.Matches(msg, m.keys.Gear):
		toggle(m.stick, robot.Transmission)
	case key.Matches(msg, m.keys.Center):
		m.stick.Center()
	}
	return m, nil
}

// toggle switches a channel between off and full power.
func toggle(s *sim.Stick, ch robot.Channel) {
	cmd, _ := s.Command(context.Background())
	if cmd.Get(ch) != 0 {
		s.Set(ch, 0)
		return
	}
	s.Set(ch, robot.CommandMax)
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Operator control stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render(m.title))
	sb.WriteString(fmt.Sprintf(" - %d Hz - %s", m.ctrl.Hz(), m.ctrl.Mode()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// LCD and robot status
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderLCD(), infoStyle.Render(m.renderInfo())))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'r' to record, 'p' to play back, 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))

	return sb.String()
}

func (m consoleModel) renderLCD() string {
	l1, l2 := m.panel.Lines()
	style := lcdOnStyle
	if !m.panel.Backlight() {
		style = lcdOffStyle
	}
	return style.Render(fit(l1) + "\n" + fit(l2))
}

// fit cuts or pads an LCD line to the display width.
func fit(s string) string {
	if len(s) > recorder.NameMax {
		return s[:recorder.NameMax]
	}
	return s + strings.Repeat(" ", recorder.NameMax-len(s))
}

func (m consoleModel) renderInfo() string {
	p := m.ctrl.Session().Params()
	st := m.ctrl.Session().State()
	pot, high := m.panel.Pot()

	online := "offline"
	if m.panel.Online() {
		online = "ONLINE"
	}
	lines := []string{
		fmt.Sprintf("field: %s", online),
		fmt.Sprintf("pot:   %d/%d (bucket %d)", pot, high, recorder.Quantize(pot, high, p.Buckets())),
		fmt.Sprintf("slot:  %s", describeSlot(p, st)),
	}
	if st.SkillsSection != 0 {
		lines = append(lines, fmt.Sprintf("skills: %d/%d recorded", st.SkillsSection, p.Sections()))
	}
	if m.plant != nil {
		dist, heading := m.plant.Odometry()
		lines = append(lines, fmt.Sprintf("odom:  %.1f fwd, %.1f turn", dist/float64(p.PollHz), heading/float64(p.PollHz)))
	}
	return strings.Join(lines, "\n")
}

func describeSlot(p recorder.Params, st recorder.State) string {
	switch p.Kind(st.Loaded) {
	case recorder.KindNone:
		return "none (blank)"
	case recorder.KindSkills:
		return "programming skills"
	case recorder.KindHardcoded:
		return "hardcoded skills"
	case recorder.KindNumbered:
		if st.Name != "" {
			return fmt.Sprintf("%d %q", st.Loaded, st.Name)
		}
		return fmt.Sprintf("%d", st.Loaded)
	}
	return "not loaded"
}

func renderLegend() string {
	var items []string
	for _, ch := range robot.AllChannels() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(channelColors[ch])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(ch))
	}
	return strings.Join(items, "  ")
}

// runConsole starts the controller in the background and runs the TUI
// until the operator quits.
func runConsole(model consoleModel) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := model.ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	cancel()
	<-done
	if err != nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}
