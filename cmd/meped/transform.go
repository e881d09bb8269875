package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog"

	"github.com/gwillem/meped/pkg/quad"
	"github.com/gwillem/meped/pkg/robot"
)

type TransformCommand struct {
	Demo bool `long:"demo" description:"Also stage a sample pose for every direction"`
}

var directions = []quad.Direction{quad.Forward, quad.Left, quad.Backward, quad.Right}

// Sample pose per logical leg (FL, BL, BR, FR); distinct values make the
// routing visible.
var (
	demoPivots = [quad.NumLegs]float64{180, 1, 135, 30}
	demoLifts  = [quad.NumLegs]float64{111, 0, 0, 0}
)

func renderTable(headers []string, rows [][]string) string {
	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableServoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 0 {
				return tableServoStyle
			}
			return tableCellStyle
		}).
		Render()
}

// indexTable shows which physical actuator serves each logical role.
func indexTable(mirror bool) string {
	headers := []string{"Role"}
	for _, d := range directions {
		headers = append(headers, d.String())
	}

	rows := make([][]string, 0, quad.NumActuators)
	for _, a := range quad.AllActuators() {
		row := []string{a.Name()}
		for _, d := range directions {
			idx, invert := quad.TransformIndex(a, d, mirror)
			cell := fmt.Sprintf("%d %s", idx, idx.Name())
			if invert && a.IsPivot() {
				cell += " (inv)"
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows)
}

// demoTable stages the sample pose for every direction without moving and
// shows the resulting physical angles.
func demoTable(body *quad.Body) (string, error) {
	headers := []string{"Direction"}
	for _, a := range quad.AllActuators() {
		headers = append(headers, fmt.Sprintf("%d", a))
	}

	var rows [][]string
	ctx := context.Background()
	for _, d := range directions {
		for _, mirror := range []bool{false, true} {
			if _, err := body.SetAllLegs(ctx, demoPivots, demoLifts, d, mirror, false); err != nil {
				return "", err
			}
			label := d.String()
			if mirror {
				label += " mirrored"
			}
			row := []string{label}
			for _, v := range body.Next() {
				row = append(row, fmt.Sprintf("%.0f", v))
			}
			rows = append(rows, row)
		}
	}
	return renderTable(headers, rows), nil
}

func (c *TransformCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Leg Index Transformation"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	for _, mirror := range []bool{false, true} {
		title := "Direct"
		if mirror {
			title = "Mirrored"
		}
		fmt.Println(subHeaderStyle.Render(title))
		fmt.Println(indexTable(mirror))
		fmt.Println()
	}

	if !c.Demo {
		return nil
	}

	model := quad.NewModel(robot.NewSimBus(), zerolog.Nop())
	body := quad.NewBody(model, quad.NewSynchronizer(model, quad.SyncConfig{}), quad.BodyConfig{})
	out, err := demoTable(body)
	exitOnError(err, "Error staging pose")

	fmt.Println(subHeaderStyle.Render("Staged angles"))
	fmt.Println(dimStyle.Render("pivots " + formatLegs(demoPivots) + "  lifts " + formatLegs(demoLifts)))
	fmt.Println(out)
	return nil
}

func formatLegs(v [quad.NumLegs]float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%.0f", x)
	}
	return strings.Join(parts, "/")
}
