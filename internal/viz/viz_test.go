package viz

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/orbit"
)

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	if c.Grid[0][0] != 0x2801 {
		t.Errorf("cell 0 = %U, want U+2801", c.Grid[0][0])
	}
	if c.Grid[0][1] != 0x2880 {
		t.Errorf("cell 1 = %U, want U+2880", c.Grid[0][1])
	}
	if !c.IsSet(3, 3) || c.IsSet(1, 0) {
		t.Error("IsSet disagrees with Set")
	}

	c.Unset(0, 0)
	if c.Grid[0][0] != brailleBlank {
		t.Errorf("cell 0 after unset = %U", c.Grid[0][0])
	}

	// out of range is ignored
	c.Set(-1, 0)
	c.Set(100, 100)
	c.Clear()
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Error("canvas not blank after clear")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i <= 7; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("pixel (%d,%d) not set", i, i)
		}
	}
}

func TestViewport(t *testing.T) {
	v := Fit([]float64{0, 1, 2}, []float64{10, 20, 30})
	if v.MinX != 0 || v.MaxX != 2 || v.MinY != 10 || v.MaxY != 30 {
		t.Errorf("unexpected viewport %+v", v)
	}

	c := NewCanvas(10, 5)
	px, py, ok := v.Pixel(c, 0, 30)
	if !ok || px != 0 || py != 0 {
		t.Errorf("top left = (%d,%d,%v)", px, py, ok)
	}
	px, py, _ = v.Pixel(c, 2, 10)
	if px != 19 || py != 19 {
		t.Errorf("bottom right = (%d,%d)", px, py)
	}

	flat := Fit([]float64{1, 1}, []float64{2, 2})
	if flat.MaxX <= flat.MinX || flat.MaxY <= flat.MinY {
		t.Errorf("flat data not widened: %+v", flat)
	}

	empty := Fit(nil, nil)
	if empty.MinX != -1 || empty.MaxY != 1 {
		t.Errorf("empty viewport %+v", empty)
	}
}

func TestSparkline(t *testing.T) {
	got := Sparkline([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 8)
	if got != "▁▂▃▄▅▆▇█" {
		t.Errorf("sparkline = %q", got)
	}
	if Sparkline(nil, 3) != "───" {
		t.Error("empty sparkline should be a rule")
	}
}

func TestGetTheme(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("nope").Name != Themes[0].Name {
		t.Error("unknown theme should fall back to the first")
	}
}

func newStandardPlayer(t *testing.T) *Player {
	t.Helper()
	m, err := models.NewStandard().Map()
	if err != nil {
		t.Fatal(err)
	}
	return NewPlayer("standard", m, 1, orbit.Forward, dynamo.State{0.5, 0.5})
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, p Player, msg tea.Msg) Player {
	t.Helper()
	next, _ := p.Update(msg)
	return next.(Player)
}

func TestPlayerFollowsMap(t *testing.T) {
	p := newStandardPlayer(t)
	for i := 0; i < 5; i++ {
		if err := p.Step(); err != nil {
			t.Fatal(err)
		}
	}

	m, _ := models.NewStandard().Map()
	o, err := orbit.New(m, 1, orbit.Forward, 5, mat.NewVecDense(2, []float64{0.5, 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	want := o.Points()
	got := p.History()
	if len(got) != len(want) {
		t.Fatalf("history has %d points, want %d", len(got), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("point %d = %v, want %v", i, got[i], want[i])
			}
		}
	}
}

func TestPlayerKeys(t *testing.T) {
	p := *newStandardPlayer(t)

	p = update(t, p, TickMsg{})
	if n := len(p.History()); n != 5 {
		t.Errorf("after one tick: %d points, want 5", n)
	}

	p = update(t, p, key(" "))
	if p.Running() {
		t.Error("space should pause")
	}
	p = update(t, p, TickMsg{})
	if n := len(p.History()); n != 5 {
		t.Errorf("paused tick advanced to %d points", n)
	}
	p = update(t, p, key("n"))
	if n := len(p.History()); n != 6 {
		t.Errorf("single step: %d points, want 6", n)
	}

	p = update(t, p, key("+"))
	if p.stepsPerTick != 8 {
		t.Errorf("speed = %d, want 8", p.stepsPerTick)
	}

	k0 := p.sys.GetParams()["k"]
	p = update(t, p, key("up"))
	if k := p.sys.GetParams()["k"]; k <= k0 {
		t.Errorf("k = %v, expected increase from %v", k, k0)
	}

	p = update(t, p, key("r"))
	if n := len(p.History()); n != 1 {
		t.Errorf("reset left %d points", n)
	}

	p = update(t, p, key("t"))
	if p.theme.Name != Themes[1].Name {
		t.Errorf("theme = %s, want %s", p.theme.Name, Themes[1].Name)
	}

	if _, cmd := p.Update(key("q")); cmd == nil {
		t.Error("q should quit")
	}
}

func TestPlayerStopsOnError(t *testing.T) {
	errBad := errors.New("bad")
	fw := func(x0 mat.Vector, x1 *mat.VecDense, _ struct{}) error {
		if x0.AtVec(0) > 2 {
			return errBad
		}
		x1.ScaleVec(2, x0)
		return nil
	}
	m, err := dynamo.NewMap(1, fw, nil, struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	p := *NewPlayer("doubling", m, 1, orbit.Forward, dynamo.State{1})

	p = update(t, p, TickMsg{})
	if !errors.Is(p.Err(), errBad) {
		t.Errorf("err = %v, want errBad", p.Err())
	}
	if p.Running() {
		t.Error("player should stop on error")
	}
	if n := len(p.History()); n != 3 {
		t.Errorf("history = %d points, want 3", n)
	}
	if !strings.Contains(p.View(), "STOPPED") {
		t.Error("view should report the stop")
	}
}

func TestPlayerView(t *testing.T) {
	p := *newStandardPlayer(t)
	p = update(t, p, tea.WindowSizeMsg{Width: 100, Height: 30})
	p = update(t, p, TickMsg{})

	out := p.View()
	for _, want := range []string{"STANDARD", "RUNNING", "points", "x0", "x1", "k"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestPlayerOneDimensional(t *testing.T) {
	m, err := models.NewLogistic().Map()
	if err != nil {
		t.Fatal(err)
	}
	p := NewPlayer("logistic", m, 1, orbit.Forward, dynamo.State{0.2})
	for i := 0; i < 3; i++ {
		p.Step()
	}
	xs, ys := p.series()
	if len(xs) != 3 || len(ys) != 3 {
		t.Fatalf("return plot has %d/%d points, want 3", len(xs), len(ys))
	}
	if ys[0] != xs[1] {
		t.Errorf("return plot not shifted: %v %v", xs, ys)
	}
}
