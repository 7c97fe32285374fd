package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/stiffsim/internal/controller"
)

const (
	canvasWidth     = 40
	canvasHeight    = 12
	historyCapacity = 600
	switchLogSize   = 5
)

// SampleMsg carries one accepted controller step into the view.
type SampleMsg controller.Sample

// DoneMsg ends the run; Err is the run's failure, if any.
type DoneMsg struct{ Err error }

// Model is the live view of an adaptive run: progress, the active family,
// indicator and monitor history, and a phase portrait of two components.
type Model struct {
	title         string
	tStart, tStop float64
	dim           int

	times      []float64
	indicators []float64
	monitors   []float64
	modes      []controller.Mode
	states     [][]float64
	switches   []controller.Switch

	last     controller.Sample
	steps    int
	work     int
	wall     time.Duration
	nSwitch  int
	done     bool
	err      error
	logScale bool
	yComp    int
	showHelp bool

	theme  Theme
	st     styles
	canvas *Canvas
	cancel context.CancelFunc
}

func NewModel(title string, tStart, tStop float64, dim int) Model {
	yComp := 0
	if dim > 1 {
		yComp = 1
	}
	return Model{
		title:      title,
		tStart:     tStart,
		tStop:      tStop,
		dim:        dim,
		times:      make([]float64, 0, historyCapacity),
		indicators: make([]float64, 0, historyCapacity),
		monitors:   make([]float64, 0, historyCapacity),
		modes:      make([]controller.Mode, 0, historyCapacity),
		states:     make([][]float64, 0, historyCapacity),
		yComp:      yComp,
		theme:      ThemeNight,
		st:         newStyles(ThemeNight),
		canvas:     NewCanvas(canvasWidth, canvasHeight),
	}
}

// WithTheme returns m rendered with the named theme.
func (m Model) WithTheme(name string) Model {
	m.theme = GetTheme(name)
	m.st = newStyles(m.theme)
	return m
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "t":
			m.theme = nextTheme(m.theme)
			m.st = newStyles(m.theme)
		case "l":
			m.logScale = !m.logScale
		case "tab":
			if m.dim > 1 {
				m.yComp = m.yComp%(m.dim-1) + 1
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case SampleMsg:
		m.observe(controller.Sample(msg))
	case DoneMsg:
		m.done = true
		m.err = msg.Err
	}
	return m, nil
}

func (m *Model) observe(s controller.Sample) {
	m.last = s
	m.steps = s.Step
	m.work += s.Work
	m.wall += s.Wall
	m.times = push(m.times, s.Time)
	m.indicators = push(m.indicators, s.Indicator)
	m.monitors = push(m.monitors, s.Monitor)
	m.modes = push(m.modes, s.Mode)
	m.states = push(m.states, []float64(s.State.Clone()))
	if s.Switched {
		m.nSwitch++
		m.switches = append(m.switches, controller.Switch{
			Step: s.Step, Time: s.Time, From: s.Mode, To: s.Next,
			Indicator: s.Indicator, Monitor: s.Monitor,
		})
		if len(m.switches) > switchLogSize {
			m.switches = m.switches[1:]
		}
	}
}

func push[T any](buf []T, v T) []T {
	if len(buf) == historyCapacity {
		copy(buf, buf[1:])
		buf = buf[:len(buf)-1]
	}
	return append(buf, v)
}

// Progress is the fraction of [tStart, tStop] covered so far.
func (m Model) Progress() float64 {
	span := m.tStop - m.tStart
	if span <= 0 || m.steps == 0 {
		return 0
	}
	return math.Min(1, (m.last.Time-m.tStart)/span)
}

func (m Model) View() string {
	if m.showHelp {
		return m.st.panel.Render(strings.Join([]string{
			"q      quit (cancels the run)",
			"t      cycle theme",
			"l      toggle log scale on charts",
			"tab    cycle phase portrait component",
			"?      toggle this help",
		}, "\n"))
	}

	var s strings.Builder
	s.WriteString(m.st.header.Render(strings.ToUpper(m.title)) + "\n")

	status := m.st.badge(m.last.Mode)
	switch {
	case m.err != nil:
		status = m.st.err.Render("FAILED: " + m.err.Error())
	case m.done:
		status = m.st.value.Render("DONE") + "  " + status
	}
	s.WriteString(status + "\n\n")
	s.WriteString(ProgressBar(m.Progress(), 30) + fmt.Sprintf(" %5.1f%%\n\n", 100*m.Progress()))

	row := func(label, value string) {
		s.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.6g", m.last.Time))
	row("Step", fmt.Sprintf("%d", m.steps))
	row("Solver", m.last.Solver)
	row("Indicator", fmt.Sprintf("%.4g", m.last.Indicator))
	row("Monitor", fmt.Sprintf("%.4g", m.last.Monitor))
	row("Switches", fmt.Sprintf("%d", m.nSwitch))
	row("Work", fmt.Sprintf("%d", m.work))
	row("Wall", m.wall.Round(time.Microsecond).String())

	s.WriteString("\n" + m.st.muted.Render("modes ") + ModeStrip(m.modes, 40) + "\n")
	if len(m.switches) > 0 {
		s.WriteString("\n")
		for _, sw := range m.switches {
			s.WriteString(m.st.switched.Render(fmt.Sprintf("t=%-10.4g %s → %s", sw.Time, sw.From, sw.To)) + "\n")
		}
	}
	stats := m.st.panel.Render(s.String())

	var charts strings.Builder
	if len(m.indicators) > 1 {
		charts.WriteString(m.st.chart.Render(m.plot(m.indicators, "indicator")) + "\n")
		charts.WriteString(m.st.chart.Render(m.plot(m.monitors, "monitor")) + "\n")
	}
	m.drawPhase()
	charts.WriteString(m.st.canvas.Render(m.canvas.String()))
	charts.WriteString("\n" + m.st.muted.Render(fmt.Sprintf("y%d vs y0   ? help", m.yComp)))

	return lipgloss.JoinHorizontal(lipgloss.Top, stats, charts.String())
}

func (m Model) plot(vs []float64, caption string) string {
	data := vs
	if m.logScale {
		data = make([]float64, len(vs))
		for i, v := range vs {
			data[i] = math.Copysign(math.Log10(1+math.Abs(v)), v)
		}
		caption = "log " + caption
	}
	return asciigraph.Plot(data,
		asciigraph.Height(5),
		asciigraph.Width(50),
		asciigraph.Caption(caption))
}

func (m Model) drawPhase() {
	m.canvas.Clear()
	if len(m.states) == 0 || m.dim == 0 {
		return
	}
	xs := make([]float64, len(m.states))
	ys := make([]float64, len(m.states))
	for i, y := range m.states {
		xs[i] = y[0]
		if m.yComp < len(y) {
			ys[i] = y[m.yComp]
		}
	}
	if m.dim == 1 {
		copy(xs, m.times)
	}
	m.canvas.Path(xs, ys)
}

// Feed forwards controller samples to a running program. With Stride n > 1
// only every n-th step is sent; switches are always sent.
type Feed struct {
	Send   func(tea.Msg)
	Stride int
}

func (f Feed) OnStep(s controller.Sample) {
	if f.Stride > 1 && !s.Switched && s.Step%f.Stride != 0 {
		return
	}
	f.Send(SampleMsg(s))
}

// Run shows m while run executes. Quitting the view cancels the context
// passed to run.
func Run(ctx context.Context, m Model, stride int, run func(context.Context, controller.Observer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.cancel = cancel

	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		err := run(ctx, Feed{Send: p.Send, Stride: stride})
		p.Send(DoneMsg{Err: err})
	}()
	_, err := p.Run()
	return err
}
