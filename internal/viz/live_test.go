package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/stiffsim/internal/controller"
	"github.com/san-kum/stiffsim/internal/dynamo"
)

func feed(m Model, samples ...controller.Sample) Model {
	for _, s := range samples {
		next, _ := m.Update(SampleMsg(s))
		m = next.(Model)
	}
	return m
}

func TestModelObserve(t *testing.T) {
	m := NewModel("vdp", 0, 1, 2)
	m = feed(m,
		controller.Sample{Step: 1, Time: 0.25, State: dynamo.State{1, 0}, Indicator: -3, Mode: controller.Stiff, Next: controller.Stiff, Solver: "bdf", Work: 4},
		controller.Sample{Step: 2, Time: 0.5, State: dynamo.State{0.5, 1}, Indicator: 2, Mode: controller.Stiff, Next: controller.NonStiff, Solver: "bdf", Work: 6, Switched: true},
	)

	if m.work != 10 {
		t.Errorf("work = %d, want 10", m.work)
	}
	if m.nSwitch != 1 || len(m.switches) != 1 || m.switches[0].To != controller.NonStiff {
		t.Errorf("switch log = %+v", m.switches)
	}
	if p := m.Progress(); p != 0.5 {
		t.Errorf("progress = %v, want 0.5", p)
	}

	view := m.View()
	for _, want := range []string{"VDP", "STIFF", "bdf", "nonstiff"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModelHistoryBounded(t *testing.T) {
	m := NewModel("lorenz", 0, 1, 3)
	for i := 1; i <= historyCapacity+50; i++ {
		m.observe(controller.Sample{Step: i, Time: float64(i), State: dynamo.State{1, 2, 3}})
	}
	if len(m.times) != historyCapacity || len(m.states) != historyCapacity {
		t.Fatalf("history len = %d/%d, want %d", len(m.times), len(m.states), historyCapacity)
	}
	if m.times[0] != 51 {
		t.Errorf("oldest sample = %v, want 51", m.times[0])
	}
}

func TestModelKeys(t *testing.T) {
	m := NewModel("lorenz", 0, 1, 3)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.yComp != 2 {
		t.Errorf("yComp = %d, want 2", m.yComp)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if m.yComp != 1 {
		t.Errorf("yComp = %d, want 1", m.yComp)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	if next.(Model).theme.Name != ThemeOcean.Name {
		t.Errorf("theme = %s, want ocean", next.(Model).theme.Name)
	}

	canceled := false
	m.cancel = func() { canceled = true }
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil || !canceled {
		t.Error("quit should cancel the run and return tea.Quit")
	}
}

func TestModelDone(t *testing.T) {
	m := NewModel("vdp", 0, 1, 2)
	next, _ := m.Update(DoneMsg{Err: errors.New("solver exploded")})
	if !strings.Contains(next.(Model).View(), "solver exploded") {
		t.Error("failure should be shown")
	}
}

func TestFeedStride(t *testing.T) {
	var got []int
	f := Feed{Send: func(msg tea.Msg) { got = append(got, msg.(SampleMsg).Step) }, Stride: 3}
	for i := 1; i <= 7; i++ {
		f.OnStep(controller.Sample{Step: i, Switched: i == 5})
	}
	want := []int{3, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("sent %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent %v, want %v", got, want)
		}
	}
}

func TestCanvasPath(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Path([]float64{0, 1}, []float64{0, 1})
	s := c.String()
	if strings.Count(s, "\n") != 2 {
		t.Fatalf("rows = %d", strings.Count(s, "\n"))
	}
	// corners of the diagonal are lit
	if c.Grid[1][0] == brailleBlank || c.Grid[0][3] == brailleBlank {
		t.Errorf("diagonal not drawn:\n%s", s)
	}
}
