package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/meped/pkg/quad"
	"github.com/gwillem/meped/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Ranges bool `long:"ranges" description:"Record the travel range of every servo"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("mePed Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━"))
	fmt.Println()

	// Keep trim and tuning from an earlier setup
	config, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		config = robot.DefaultConfig()
	} else if err != nil {
		exitOnError(err, "Error loading configuration")
	}

	// Step 1: Find the robot
	config.Port = scanForRobot(config)

	// Save the port before the optional range step
	exitOnError(config.SaveTo(opts.Config), "Error saving config")

	// Step 2: Record servo ranges
	if c.Ranges {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Recording Servo Ranges ━━━"))
		fmt.Println()
		recordRanges(config)
		exitOnError(config.SaveTo(opts.Config), "Error saving config")
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Straighten the legs with: " + headerStyle.Render("meped calibrate"))
	fmt.Println("Then walk with:           " + headerStyle.Render("meped run"))

	return nil
}

type robotInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func scanForRobot(config *robot.Config) string {
	fmt.Println("Scanning for mePed servo buses...")
	fmt.Println()

	ids := config.Servos.ServoIDs()
	robots := findRobots(config.BaudRate, ids)

	if len(robots) == 0 {
		fmt.Println("No quadruped found.")
		fmt.Printf("Expected %d servos with IDs %v on one bus.\n", len(ids), ids)
		fmt.Println("Make sure the robot is connected and powered on.")
		os.Exit(1)
	}

	// Wiggle each candidate until the user recognises theirs
	for _, r := range robots {
		if identifyRobotWithWiggle(r, config.Servos.For(quad.FrontLeftPivot).ID, len(robots) > 1) {
			fmt.Println()
			fmt.Println(successStyle.Render("Robot found on ") + r.port)
			return r.port
		}
	}

	fmt.Println()
	fmt.Println("No robot selected.")
	os.Exit(1)
	return ""
}

func findRobots(baudRate int, ids []int) []robotInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}
	if baudRate <= 0 {
		baudRate = robot.DefaultBaudRate
	}
	lo, hi := slices.Min(ids), slices.Max(ids)

	var robots []robotInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)

		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: baudRate,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, lo, hi)
		cancel()

		if err != nil {
			bus.Close()
			continue
		}

		if isQuadruped(servos, ids) {
			fmt.Printf("  Found %d leg servos on %s\n", len(servos), port)
			robots = append(robots, robotInfo{
				port:   port,
				servos: servos,
				bus:    bus,
			})
		} else {
			bus.Close()
		}
	}

	return robots
}

// isQuadruped reports whether every configured servo ID answered a scan.
func isQuadruped(servos []feetech.FoundServo, ids []int) bool {
	found := make(map[int]bool)
	for _, s := range servos {
		found[s.ID] = true
	}

	for _, id := range ids {
		if !found[id] {
			return false
		}
	}

	return true
}

func identifyRobotWithWiggle(r robotInfo, id int, ask bool) bool {
	defer r.bus.Close()

	ctx := context.Background()

	// Servo id is the front left pivot, which swings sideways
	var servo *feetech.Servo
	for _, s := range r.servos {
		if s.ID == id {
			servo = feetech.NewServo(r.bus, s.ID, s.Model)
			break
		}
	}

	if servo == nil {
		return false
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false
	}

	fmt.Printf("\n  Wiggling front left leg on %s...\n", r.port)

	wiggleAmount := 100
	moveTimeMs := 500
	servo.SetPositionWithTime(ctx, originalPos+wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	servo.SetPositionWithTime(ctx, originalPos-wiggleAmount, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	servo.SetPositionWithTime(ctx, originalPos, moveTimeMs)
	time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)

	servo.Disable(ctx)

	title := fmt.Sprintf("Use the robot on %s?", r.port)
	if ask {
		title = fmt.Sprintf("Did the front left leg on %s just move?", r.port)
	}

	use := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&use),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	return use
}

func recordRanges(config *robot.Config) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     config.Port,
		BaudRate: config.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	exitOnError(err, "Error connecting to robot")
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	ids := config.Servos.ServoIDs()
	found, err := bus.Scan(ctx, slices.Min(ids), slices.Max(ids))
	cancel()
	exitOnError(err, "Error scanning servos")

	servos := make(map[quad.Actuator]*feetech.Servo)
	for _, s := range found {
		if a, _, ok := config.Servos.ByID(s.ID); ok {
			servos[a] = feetech.NewServo(bus, s.ID, s.Model)
		}
	}

	// Torque off so the legs can be moved by hand
	bg := context.Background()
	for _, servo := range servos {
		servo.Disable(bg)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move every leg servo to both ends of its 180 degree travel.")
	fmt.Println()

	model := newRangeModel(servos)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	exitOnError(err, "Error recording ranges")

	rm := finalModel.(rangeModel)
	for _, a := range quad.AllActuators() {
		if _, ok := servos[a]; !ok || rm.maxPositions[a] <= rm.minPositions[a] {
			fmt.Printf("  %s: no range recorded, keeping %d..%d\n",
				a.Name(), config.Servos.For(a).RangeMin, config.Servos.For(a).RangeMax)
			continue
		}
		sc := config.Servos.For(a)
		sc.RangeMin = rm.minPositions[a]
		sc.RangeMax = rm.maxPositions[a]
		config.Servos[a.Name()] = sc
	}

	fmt.Println()
	fmt.Println("Servo ranges recorded.")
}

// Range TUI model
type rangeModel struct {
	servos       map[quad.Actuator]*feetech.Servo
	curPositions map[quad.Actuator]int
	minPositions map[quad.Actuator]int
	maxPositions map[quad.Actuator]int
	seen         map[quad.Actuator]bool
	quitting     bool
}

type tickMsg time.Time

func newRangeModel(servos map[quad.Actuator]*feetech.Servo) rangeModel {
	return rangeModel{
		servos:       servos,
		curPositions: make(map[quad.Actuator]int),
		minPositions: make(map[quad.Actuator]int),
		maxPositions: make(map[quad.Actuator]int),
		seen:         make(map[quad.Actuator]bool),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m rangeModel) Init() tea.Cmd {
	return tick()
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for a, servo := range m.servos {
			pos, err := servo.Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[a] = pos
			if !m.seen[a] {
				m.minPositions[a], m.maxPositions[a] = pos, pos
				m.seen[a] = true
			}
			m.minPositions[a] = min(m.minPositions[a], pos)
			m.maxPositions[a] = max(m.maxPositions[a], pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m rangeModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableServoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, quad.NumActuators)
	ranges := make([]int, 0, quad.NumActuators)
	for _, a := range quad.AllActuators() {
		rangeSize := m.maxPositions[a] - m.minPositions[a]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			a.Name(),
			fmt.Sprintf("%d", m.curPositions[a]),
			fmt.Sprintf("%d", m.minPositions[a]),
			fmt.Sprintf("%d", m.maxPositions[a]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Servo", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableServoStyle
			case 1:
				return tableCurrentStyle
			case 4:
				// half a turn is the expected span for 180 degrees
				if row >= 0 && row < len(ranges) && ranges[row] > 1500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
