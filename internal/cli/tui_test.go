package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gdsfactory/gplugins-go/pkg/layerstack"
	"github.com/gdsfactory/gplugins-go/pkg/layout"
	"github.com/gdsfactory/gplugins-go/pkg/materials"
)

func testStack() layerstack.LayerStack {
	return layerstack.New(map[string]layerstack.Layer{
		"core": {
			GDS:       layout.LayerID{Layer: 1},
			Zmin:      layerstack.Float(0),
			Thickness: layerstack.Float(0.22),
			Material:  "si",
		},
		"clad": {
			GDS:       layout.LayerID{Layer: 2},
			Zmin:      layerstack.Float(-1),
			Thickness: layerstack.Float(3),
			Material:  "sio2",
		},
		"floating": {
			GDS: layout.LayerID{Layer: 66},
		},
	})
}

func TestStackRowsOrder(t *testing.T) {
	rows := stackRows(testStack())

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Bottom-up by top surface, positionless layers last
	want := []string{"core", "clad", "floating"}
	for i, name := range want {
		if rows[i].name != name {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i].name, name)
		}
	}
}

func TestStackModelNavigation(t *testing.T) {
	m := NewStackModel(testStack(), materials.Default())

	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyUp}

	next, _ := m.Update(down)
	m = next.(StackModel)
	if m.Cursor != 1 {
		t.Errorf("cursor = %d after down, want 1", m.Cursor)
	}

	// Cursor clamps at the last row
	for range 5 {
		next, _ = m.Update(down)
		m = next.(StackModel)
	}
	if m.Cursor != 2 {
		t.Errorf("cursor = %d after repeated down, want 2", m.Cursor)
	}

	next, _ = m.Update(up)
	m = next.(StackModel)
	if m.Cursor != 1 {
		t.Errorf("cursor = %d after up, want 1", m.Cursor)
	}
}

func TestStackModelQuit(t *testing.T) {
	m := NewStackModel(testStack(), materials.Default())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should quit")
	}
}

func TestStackModelView(t *testing.T) {
	m := NewStackModel(testStack(), materials.Default())
	view := m.View()

	for _, want := range []string{"core", "clad", "floating", "[1/3]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestStackModelWindowResize(t *testing.T) {
	m := NewStackModel(testStack(), materials.Default())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = next.(StackModel)
	if m.Height != 30 {
		t.Errorf("height = %d after resize, want 30", m.Height)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	m = next.(StackModel)
	if m.Height != 5 {
		t.Errorf("height = %d after small resize, want 5", m.Height)
	}
}
