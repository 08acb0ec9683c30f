package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// StackModel - Interactive layer stack browser
// =============================================================================

// stackRow pairs a layer with its stack name for ordered display.
type stackRow struct {
	name  string
	layer layerstack.Layer
}

// stackRows returns the stack's layers bottom-up: layers with a vertical
// position first, ordered by their top surface, then positionless layers by
// name.
func stackRows(stack layerstack.LayerStack) []stackRow {
	rows := make([]stackRow, 0, len(stack.Layers))
	for _, name := range stack.Names() {
		rows = append(rows, stackRow{name: name, layer: stack.Layers[name]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ki, iok := rows[i].layer.SortKey()
		kj, jok := rows[j].layer.SortKey()
		if iok != jok {
			return iok
		}
		if iok && ki != kj {
			return ki < kj
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

// StackModel is the bubbletea model for interactive stack browsing.
type StackModel struct {
	Rows   []stackRow
	Mats   materials.Table
	Cursor int
	Height int
	Offset int
}

// NewStackModel creates a new stack browser model.
func NewStackModel(stack layerstack.LayerStack, mats materials.Table) StackModel {
	return StackModel{
		Rows:   stackRows(stack),
		Mats:   mats,
		Cursor: 0,
		Height: 15,
		Offset: 0,
	}
}

func (m StackModel) Init() tea.Cmd {
	return nil
}

func (m StackModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 10
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m StackModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Layer Stack"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		r := m.Rows[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		rows = append(rows, []string{
			cursor,
			r.name,
			r.layer.GDS.String(),
			formatZ(r.layer.Zmin),
			formatZ(r.layer.Thickness),
			materialLabel(r.layer.Material),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Layer", "GDS", "Zmin", "Thick", "Material").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}

			actualIdx := m.Offset + row
			if actualIdx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			r := m.Rows[actualIdx]

			if actualIdx == m.Cursor {
				return listSelectedStyle
			}
			if !r.layer.HasZ() {
				return listDimStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(m.detail())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))

	return b.String()
}

// detail describes the layer under the cursor.
func (m StackModel) detail() string {
	if len(m.Rows) == 0 {
		return ""
	}
	l := m.Rows[m.Cursor].layer

	var parts []string
	if lo, hi, ok := l.ZRange(); ok {
		parts = append(parts, fmt.Sprintf("z %g to %g µm", lo, hi))
	} else {
		parts = append(parts, "no vertical position")
	}
	if l.SidewallAngle != 0 {
		parts = append(parts, fmt.Sprintf("sidewall %g°", l.SidewallAngle))
	}
	if l.MeshOrder != 0 {
		parts = append(parts, fmt.Sprintf("mesh order %d", l.MeshOrder))
	}
	if l.Material != "" {
		if mat, err := m.Mats.Get(l.Material); err == nil {
			if mat.IsConductor() {
				parts = append(parts, fmt.Sprintf("%s σ=%g S/µm", l.Material, mat.Conductivity))
			} else {
				parts = append(parts, fmt.Sprintf("%s n=%g", l.Material, mat.Index))
			}
		}
	}

	return listDimStyle.Render("  " + strings.Join(parts, "  "))
}

// =============================================================================
// Helpers
// =============================================================================

func formatZ(v *float64) string {
	if v == nil {
		return "—"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func materialLabel(name string) string {
	if name == "" {
		return "—"
	}
	return name
}
