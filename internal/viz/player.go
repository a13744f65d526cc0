package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/orbit"
)

const (
	maxHistory    = 20000
	maxStepsPerTk = 1024
	frameInterval = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Player iterates a map live and draws the visited points. One-dimensional
// maps are drawn as the return plot x_k against x_k+1.
type Player struct {
	name  string
	sys   dynamo.System
	order int
	dir   orbit.Direction
	x0    dynamo.State

	history      []dynamo.State
	running      bool
	stepsPerTick int
	xIdx, yIdx   int

	paramKeys     []string
	selected      int
	initialParams map[string]float64

	theme         Theme
	showHelp      bool
	err           error
	width, height int
}

func NewPlayer(name string, sys dynamo.System, order int, dir orbit.Direction, x0 dynamo.State) *Player {
	params := sys.GetParams()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := &Player{
		name:          name,
		sys:           sys,
		order:         order,
		dir:           dir,
		x0:            x0.Clone(),
		running:       true,
		stepsPerTick:  4,
		yIdx:          min(1, sys.Dim()-1),
		paramKeys:     keys,
		initialParams: params,
		theme:         Themes[0],
		width:         80,
		height:        24,
	}
	p.reset()
	return p
}

func (p *Player) reset() {
	p.history = []dynamo.State{p.x0.Clone()}
	p.err = nil
}

// Step advances the orbit by one point.
func (p *Player) Step() error {
	if p.err != nil {
		return p.err
	}
	x := p.history[len(p.history)-1].Vec()
	var err error
	if p.dir == orbit.Backward {
		err = p.sys.Backward(p.order, x, x)
	} else {
		err = p.sys.Forward(p.order, x, x)
	}
	if err != nil {
		p.err = err
		p.running = false
		return err
	}
	p.history = append(p.history, dynamo.StateOf(x))
	if len(p.history) > maxHistory {
		p.history = p.history[len(p.history)-maxHistory:]
	}
	return nil
}

func (p *Player) History() []dynamo.State { return p.history }
func (p *Player) Running() bool           { return p.running }
func (p *Player) Err() error              { return p.err }

func (p *Player) SetTheme(name string) { p.theme = GetTheme(name) }

func (p Player) Init() tea.Cmd { return tick() }

func (p Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return p, tea.Quit
		case " ":
			p.running = !p.running
		case "n":
			if !p.running {
				p.Step()
			}
		case "r":
			p.reset()
		case "+", "=":
			p.stepsPerTick = min(p.stepsPerTick*2, maxStepsPerTk)
		case "-", "_":
			p.stepsPerTick = max(p.stepsPerTick/2, 1)
		case "tab":
			if len(p.paramKeys) > 0 {
				p.selected = (p.selected + 1) % len(p.paramKeys)
			}
		case "up", "k":
			p.adjustParam(1.05)
		case "down", "j":
			p.adjustParam(0.95)
		case "a":
			p.cycleAxes()
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == p.theme.Name {
					p.theme = GetTheme(names[(i+1)%len(names)])
					break
				}
			}
		case "?":
			p.showHelp = !p.showHelp
		}
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
	case TickMsg:
		if p.running {
			for i := 0; i < p.stepsPerTick; i++ {
				if p.Step() != nil {
					break
				}
			}
		}
		return p, tick()
	}
	return p, nil
}

func (p *Player) adjustParam(factor float64) {
	if len(p.paramKeys) == 0 {
		return
	}
	k := p.paramKeys[p.selected]
	v := p.sys.GetParams()[k]
	if v == 0 {
		v = factor - 1
	} else {
		v *= factor
	}
	if err := p.sys.SetParam(k, v); err != nil {
		p.err = err
	}
}

func (p *Player) cycleAxes() {
	dim := p.sys.Dim()
	if dim < 3 {
		return
	}
	p.yIdx++
	if p.yIdx >= dim {
		p.xIdx = (p.xIdx + 1) % dim
		p.yIdx = 0
	}
	if p.yIdx == p.xIdx {
		p.yIdx = (p.yIdx + 1) % dim
	}
}

// series returns the plotted coordinate pairs.
func (p *Player) series() (xs, ys []float64) {
	if p.sys.Dim() == 1 {
		for i := 0; i+1 < len(p.history); i++ {
			xs = append(xs, p.history[i][0])
			ys = append(ys, p.history[i+1][0])
		}
		return xs, ys
	}
	xs = make([]float64, len(p.history))
	ys = make([]float64, len(p.history))
	for i, s := range p.history {
		xs[i], ys[i] = s[p.xIdx], s[p.yIdx]
	}
	return xs, ys
}

func (p Player) View() string {
	cw := max(p.width-30, 20)
	ch := max(p.height-4, 8)
	canvas := NewCanvas(cw, ch)
	xs, ys := p.series()
	vp := Fit(xs, ys)
	canvas.Scatter(vp, xs, ys)

	orbitStyle := lipgloss.NewStyle().Foreground(p.theme.Orbit)
	plot := orbitStyle.Render(strings.TrimSuffix(canvas.String(), "\n"))

	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(p.name)) + "\n")
	switch {
	case p.err != nil:
		s.WriteString(ErrorText.Render("STOPPED") + "\n")
	case p.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n")
	}
	s.WriteString("\n")
	s.WriteString(Metric("points", fmt.Sprintf("%d", len(p.history))) + "\n")
	s.WriteString(Metric("order ", fmt.Sprintf("%d %s", p.order, p.dir)) + "\n")
	s.WriteString(Metric("speed ", fmt.Sprintf("%d/frame", p.stepsPerTick)) + "\n")

	cur := p.history[len(p.history)-1]
	s.WriteString("\n" + MetricLabel.Render("current") + "\n")
	for i, v := range cur {
		line := fmt.Sprintf("x%d % .6f", i, v)
		if i == p.xIdx || (i == p.yIdx && p.sys.Dim() > 1) {
			line = lipgloss.NewStyle().Foreground(p.theme.Current).Render(line)
		}
		s.WriteString(line + "\n")
	}

	if len(p.paramKeys) > 0 {
		s.WriteString("\n" + MetricLabel.Render("parameters") + "\n")
		params := p.sys.GetParams()
		for i, k := range p.paramKeys {
			line := fmt.Sprintf("%-4s %.4f", k, params[k])
			if i == p.selected {
				line = "> " + MetricValue.Render(line)
			} else {
				line = "  " + line
			}
			s.WriteString(line + "\n")
		}
	}

	n := min(len(p.history), 60)
	recent := make([]float64, n)
	for i := range recent {
		recent[i] = p.history[len(p.history)-n+i][p.xIdx]
	}
	s.WriteString("\n" + Sparkline(recent, 20) + "\n")

	if p.err != nil {
		s.WriteString("\n" + ErrorText.Render(p.err.Error()) + "\n")
	}
	if p.showHelp {
		s.WriteString("\n" + KeyHint.Render("space pause  n step  r reset\n+/- speed  tab/↑/↓ param\na axes  t theme  q quit") + "\n")
	} else {
		s.WriteString("\n" + KeyHint.Render("? help") + "\n")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, Panel.Render(plot), "  ", s.String())
}

// Run starts the player full screen.
func Run(p *Player) error {
	_, err := tea.NewProgram(*p, tea.WithAltScreen()).Run()
	return err
}
