package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/meped/pkg/quad"
	"github.com/gwillem/meped/pkg/robot"
)

type CalibrateCommand struct {
	Sim bool `long:"sim" description:"Calibrate against simulated servos"`
}

const maxTrim = 30

// Calibration TUI model. All servos stand at 90 degrees; the trim of the
// selected servo is changed until its leg is straight.
type calibrationModel struct {
	ctx      context.Context
	body     *quad.Body
	selected int
	err      error
	save     bool
	quitting bool
}

func newCalibrationModel(ctx context.Context, body *quad.Body) calibrationModel {
	return calibrationModel{ctx: ctx, body: body}
}

func (m calibrationModel) Init() tea.Cmd {
	return nil
}

func (m calibrationModel) adjust(delta int) calibrationModel {
	a := quad.Actuator(m.selected)
	trim := m.body.Model().Trim()[a]
	if trim+delta > maxTrim || trim+delta < -maxTrim {
		return m
	}
	m.err = m.body.AdjustTrim(m.ctx, a, delta)
	return m
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.save = true
			m.quitting = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			m.selected = (m.selected + quad.NumActuators - 1) % quad.NumActuators
		case "down", "j":
			m.selected = (m.selected + 1) % quad.NumActuators
		case "left", "h", "-":
			m = m.adjust(-1)
		case "right", "l", "+":
			m = m.adjust(1)
		case "0":
			a := quad.Actuator(m.selected)
			m = m.adjust(-m.body.Model().Trim()[a])
		}
	}
	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	// Table styles
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableServoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableSelectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).Padding(0, 1)
	tableTrimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)

	trim := m.body.Model().Trim()
	rows := make([][]string, 0, quad.NumActuators)
	for _, a := range quad.AllActuators() {
		marker := " "
		if int(a) == m.selected {
			marker = "▶"
		}
		rows = append(rows, []string{
			marker,
			a.Name(),
			fmt.Sprintf("%.0f", m.body.Model().Position(a)),
			fmt.Sprintf("%+d", trim[a]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("", "Servo", "Angle", "Trim").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if row == m.selected {
				return tableSelectedStyle
			}
			switch col {
			case 1:
				return tableServoStyle
			case 3:
				return tableTrimStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	if m.err != nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("↑/↓ select · ←/→ trim · 0 reset · Enter save · q discard"))

	return sb.String()
}

func (c *CalibrateCommand) Execute(args []string) error {
	logger := initLogger(os.Stderr)

	cfg, err := loadConfig()
	exitOnError(err, "Error loading configuration")

	ctx := context.Background()
	link, err := connect(ctx, cfg, c.Sim, logger)
	exitOnError(err, "Error connecting to servos")
	defer release(link)

	model := quad.NewModel(link, logger)
	body := quad.NewBody(model, quad.NewSynchronizer(model, quad.SyncConfig{Logger: logger}), cfg.BodyConfig())

	store := robot.FileTrimStore{Path: opts.Config}
	exitOnError(body.LoadTrim(store), "Error loading trim")

	// Trim is judged with every servo at 90 degrees
	exitOnError(body.ResetToNeutral(ctx), "Error centering servos")

	fmt.Println(headerStyle.Render("mePed Calibration"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	p := tea.NewProgram(newCalibrationModel(ctx, body))
	finalModel, err := p.Run()
	exitOnError(err, "Error running calibration")

	cm := finalModel.(calibrationModel)
	if !cm.save {
		fmt.Println("Calibration discarded.")
		return nil
	}

	exitOnError(body.SaveTrim(store), "Error saving trim")
	fmt.Println(successStyle.Render("Trim saved") + " to " + opts.Config)
	return nil
}
