package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/meped/pkg/quad"
	"github.com/gwillem/meped/pkg/remote"
	"github.com/gwillem/meped/pkg/robot"
)

type RunCommand struct {
	Sim     bool    `long:"sim" description:"Run without hardware on simulated servos"`
	Speed   float64 `long:"speed" description:"Servo speed in degrees per second (default from config)"`
	Trot    bool    `long:"trot" description:"Start with the trot gait instead of creep"`
	LogFile string  `long:"log-file" description:"Write log messages to this file while the UI runs"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 3 // legend rows + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Servo colors - pivots warm, lifts cool
var servoColors = map[quad.Actuator]string{
	quad.FrontLeftPivot:  "196", // red
	quad.BackLeftPivot:   "208", // orange
	quad.BackRightPivot:  "226", // yellow
	quad.FrontRightPivot: "201", // magenta
	quad.FrontLeftLift:   "46",  // green
	quad.BackLeftLift:    "51",  // cyan
	quad.BackRightLift:   "33",  // blue
	quad.FrontRightLift:  "129", // purple
}

// Key bindings
var runKeys = map[string]remote.Command{
	"up":    remote.CmdForward,
	"down":  remote.CmdBackward,
	"left":  remote.CmdLeft,
	"right": remote.CmdRight,
	"a":     remote.CmdTwistLeft,
	"d":     remote.CmdTwistRight,
	" ":     remote.CmdStop,
	"space": remote.CmdStop,
	"c":     remote.CmdCenter,
	"w":     remote.CmdBodyUp,
	"s":     remote.CmdBodyDown,
	"t":     remote.CmdTall,
	"l":     remote.CmdLow,
	"+":     remote.CmdFaster,
	"-":     remote.CmdSlower,
	"g":     remote.CmdToggleGait,
}

const helpText = "arrows walk · a/d twist · space stop · c center · w/s body · t/l tall/low · +/- speed · g gait · q quit"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	ctrl     *remote.Controller
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	current  remote.Command
	quitting bool
	last     quad.Pose
	hasLast  bool
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any servo angle has changed from the last state
func (m *runModel) hasMovement(p quad.Pose) bool {
	return !m.hasLast || p != m.last
}

// Messages from the controller
type stateMsg remote.State
type logMsg string

func waitForState(ctrl *remote.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *remote.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(ctrl *remote.Controller) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 180),
	)

	// Set up data set styles for each servo
	for _, a := range quad.AllActuators() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(servoColors[a]))
		chart.SetDataSetStyles(a.Name(), runes.ThinLineStyle, style)
	}

	return runModel{
		ctrl:  ctrl,
		chart: &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if cmd, ok := runKeys[key]; ok {
			m.ctrl.Send(cmd)
		}

	case stateMsg:
		state := remote.State(msg)
		m.current = state.Command
		if state.Error != nil {
			m.addLog(fmt.Sprintf("Write error: %v", state.Error))
		}
		// Only update chart if there's movement (freeze when idle)
		if m.hasMovement(state.Positions) {
			for _, a := range quad.AllActuators() {
				m.chart.PushDataSet(a.Name(), state.Positions[a])
			}
			m.chart.DrawAll()
			m.last = state.Positions
			m.hasLast = true
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Shutting down servos...\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("mePed"))
	sb.WriteString(fmt.Sprintf(" - %s", m.current))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
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
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render(helpText)
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var pivots, lifts []string
	for _, a := range quad.AllActuators() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(servoColors[a])).Bold(true)
		item := colorStyle.Render("━━") + " " + a.Name()
		if a.IsPivot() {
			pivots = append(pivots, item)
		} else {
			lifts = append(lifts, item)
		}
	}
	return strings.Join(pivots, "  ") + "\n" + strings.Join(lifts, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	var logOut io.Writer = io.Discard
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		exitOnError(err, "Error opening log file")
		defer f.Close()
		logOut = f
	}
	logger := initLogger(logOut)

	cfg, err := loadConfig()
	exitOnError(err, "Error loading configuration")
	if c.Speed > 0 {
		cfg.Speed = c.Speed
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	link, err := connect(ctx, cfg, c.Sim, logger)
	exitOnError(err, "Error connecting to servos")
	defer release(link)

	// Create controller
	ctrl, err := remote.NewController(remote.Config{
		Bus:    link,
		Body:   cfg.BodyConfig(),
		Store:  robot.FileTrimStore{Path: opts.Config},
		Logger: logger,
	})
	exitOnError(err, "Failed to create controller")

	// Ease from where the servos are instead of jumping
	if pose, err := link.ReadAngles(ctx); err == nil {
		ctrl.Body().Model().Seed(untrimmed(pose, ctrl.Body().Model().Trim()))
	} else {
		logger.Warn().Err(err).Msg("could not read servo positions")
	}
	if c.Trot {
		ctrl.Execute(ctx, remote.CmdToggleGait)
	}

	// Start controller in background
	done := make(chan error, 1)
	go func() {
		done <- ctrl.Start(ctx)
	}()

	// Run TUI
	p := tea.NewProgram(initialRunModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("error running program")
	}

	// Stop the controller; it lowers the body before returning
	cancel()
	if err := <-done; err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("controller error")
		return err
	}
	fmt.Println("Servos shut down.")
	return nil
}
