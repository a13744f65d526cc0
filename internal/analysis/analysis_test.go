package analysis

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/dynmap/internal/dynamo"
	"github.com/san-kum/dynmap/internal/models"
	"github.com/san-kum/dynmap/internal/orbit"
	"gonum.org/v1/gonum/mat"
)

func mustSystem(t *testing.T, name string, params map[string]float64) dynamo.System {
	t.Helper()
	sys, err := models.NewRegistry().Get(name, params)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	return sys
}

func TestLyapunovSpectrumLinear(t *testing.T) {
	l, err := models.NewLinear(mat.NewDiagDense(2, []float64{2, 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	m, err := l.Map()
	if err != nil {
		t.Fatal(err)
	}

	got, err := LyapunovSpectrum(m, 1, dynamo.State{1, 1}, 0, 100)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	want := []float64{math.Log(2), math.Log(0.5)}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("exponent %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLyapunovSpectrumSums(t *testing.T) {
	tests := []struct {
		name  string
		model string
		x0    dynamo.State
		sum   float64
	}{
		{"standard map is area preserving", "standard", dynamo.State{0.5, 0.5}, 0},
		{"henon contracts by b", "henon", dynamo.State{0.1, 0.1}, math.Log(0.3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := mustSystem(t, tt.model, nil)
			got, err := LyapunovSpectrum(sys, 1, tt.x0, 100, 2000)
			if err != nil {
				t.Fatalf("spectrum: %v", err)
			}
			if got[0] < got[1] {
				t.Errorf("spectrum not descending: %v", got)
			}
			if s := got[0] + got[1]; math.Abs(s-tt.sum) > 1e-9 {
				t.Errorf("sum = %v, want %v", s, tt.sum)
			}
		})
	}
}

func TestLyapunovHenonChaotic(t *testing.T) {
	sys := mustSystem(t, "henon", nil)
	got, err := LyapunovSpectrum(sys, 1, dynamo.State{0.1, 0.1}, 100, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] < 0.3 || got[0] > 0.5 {
		t.Errorf("largest exponent %v, expected about 0.42", got[0])
	}
}

func TestLyapunovSpectrumValidation(t *testing.T) {
	sys := mustSystem(t, "henon", nil)
	if _, err := LyapunovSpectrum(sys, 0, dynamo.State{0, 0}, 0, 10); !errors.Is(err, dynamo.ErrInvalidOrder) {
		t.Errorf("order 0: got %v", err)
	}
	if _, err := LyapunovSpectrum(sys, 1, dynamo.State{0}, 0, 10); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("wrong dimension: got %v", err)
	}
	if _, err := LyapunovSpectrum(sys, 1, dynamo.State{0, 0}, 0, 0); err == nil {
		t.Error("expected error for zero steps")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		eigs []complex128
		want Stability
	}{
		{"all inside", []complex128{0.5, -0.2}, Stable},
		{"all outside", []complex128{2, -3}, Unstable},
		{"mixed", []complex128{2, 0.5}, Saddle},
		{"on the circle", []complex128{complex(0.6, 0.8), complex(0.6, -0.8)}, Marginal},
		{"complex inside", []complex128{complex(0.3, 0.3), complex(0.3, -0.3)}, Stable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.eigs, DefaultMarginalTol); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeFixedPoint(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		params map[string]float64
		guess  dynamo.State
		point  dynamo.State
		want   Stability
	}{
		{"logistic below first doubling", "logistic", map[string]float64{"r": 2.8}, dynamo.State{0.5}, dynamo.State{1 - 1/2.8}, Stable},
		{"chirikov hyperbolic point", "chirikov", nil, dynamo.State{0.05, 0.02}, dynamo.State{0, 0}, Saddle},
		{"chirikov elliptic point", "chirikov", nil, dynamo.State{3.1, 0.01}, dynamo.State{math.Pi, 0}, Marginal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := mustSystem(t, tt.model, tt.params)
			rep, err := AnalyzeFixedPoint(sys, 1, tt.guess, nil)
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}
			for i := range tt.point {
				if math.Abs(rep.Point[i]-tt.point[i]) > 1e-8 {
					t.Errorf("point = %v, want %v", rep.Point, tt.point)
				}
			}
			if rep.Stability != tt.want {
				t.Errorf("stability = %v, want %v (eigenvalues %v)", rep.Stability, tt.want, rep.Eigenvalues)
			}
		})
	}
}

func TestAnalyzeHenonFixedPoint(t *testing.T) {
	h := models.NewHenon()
	m, err := h.Map()
	if err != nil {
		t.Fatal(err)
	}
	exact := h.FixedPoints()[0]
	guess := dynamo.State{exact[0] + 0.05, exact[1] - 0.02}

	rep, err := AnalyzeFixedPoint(m, 1, guess, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	for i := range exact {
		if math.Abs(rep.Point[i]-exact[i]) > 1e-9 {
			t.Errorf("point = %v, want %v", rep.Point, exact)
		}
	}
	if rep.Stability != Saddle {
		t.Errorf("stability = %v, want saddle", rep.Stability)
	}
	if len(rep.Eigenvalues) != 2 {
		t.Errorf("got %d eigenvalues", len(rep.Eigenvalues))
	}
}

func TestBifurcationDiagramLogistic(t *testing.T) {
	sys := mustSystem(t, "logistic", nil)
	sweep := BifurcationSweep{
		Param:     "r",
		Min:       2.8,
		Max:       3.2,
		Steps:     2,
		Transient: 2000,
		Record:    64,
	}

	data, err := BifurcationDiagram(sys, sweep, dynamo.State{0.5})
	if err != nil {
		t.Fatalf("diagram: %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("got %d points, want 2", len(data))
	}
	if n := len(data[0].Values); n != 1 {
		t.Errorf("r=2.8: got %d values, want 1", n)
	} else if math.Abs(data[0].Values[0]-(1-1/2.8)) > 1e-9 {
		t.Errorf("r=2.8: got %v, want %v", data[0].Values[0], 1-1/2.8)
	}
	if n := len(data[1].Values); n != 2 {
		t.Errorf("r=3.2: got %d values, want 2", n)
	}

	if r := sys.GetParams()["r"]; r != 3.7 {
		t.Errorf("parameter not restored: r = %v", r)
	}
}

func TestBifurcationDiagramErrors(t *testing.T) {
	sys := mustSystem(t, "logistic", nil)
	if _, err := BifurcationDiagram(sys, BifurcationSweep{Param: "k", Steps: 2}, dynamo.State{0.5}); !errors.Is(err, dynamo.ErrUnknownParam) {
		t.Errorf("unknown param: got %v", err)
	}
	if _, err := BifurcationDiagram(sys, BifurcationSweep{Param: "r", Steps: 2, StateIndex: 1}, dynamo.State{0.5}); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("bad index: got %v", err)
	}
}

func TestBifurcationToASCII(t *testing.T) {
	data := []BifurcationPoint{
		{Param: 1, Values: []float64{0.5}},
		{Param: 2, Values: []float64{0.2, 0.8}},
	}
	out := BifurcationToASCII(data, 10, 5)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if n := strings.Count(out, "•"); n != 3 {
		t.Errorf("got %d dots, want 3", n)
	}
	if BifurcationToASCII(nil, 10, 5) != "" {
		t.Error("expected empty output for no data")
	}
}

func TestPhasePortrait(t *testing.T) {
	sys := mustSystem(t, "standard", nil)
	o, err := orbit.New(sys, 1, orbit.Forward, 200, mat.NewVecDense(2, []float64{0.5, 0.5}))
	if err != nil {
		t.Fatal(err)
	}

	p, err := NewPhasePortrait(o, 0, 1)
	if err != nil {
		t.Fatalf("portrait: %v", err)
	}
	if len(p.Points) != 201 {
		t.Errorf("got %d points, want 201", len(p.Points))
	}
	minX, maxX, minY, maxY := p.Bounds()
	if minX < 0 || maxX >= 2*math.Pi || minY < 0 || maxY >= 2*math.Pi {
		t.Errorf("bounds outside the torus: %v %v %v %v", minX, maxX, minY, maxY)
	}

	art := PhasePortraitToASCII(p, 40, 20)
	if !strings.Contains(art, "•") {
		t.Error("expected plotted points")
	}

	if _, err := NewPhasePortrait(o, 0, 2); !errors.Is(err, orbit.ErrOutOfRange) {
		t.Errorf("bad index: got %v", err)
	}
}

func TestDominantPeriod(t *testing.T) {
	sys := mustSystem(t, "logistic", map[string]float64{"r": 3.2})
	x := mat.NewVecDense(1, []float64{0.5})
	if err := sys.Forward(1000, x, x); err != nil {
		t.Fatal(err)
	}
	o, err := orbit.New(sys, 1, orbit.Forward, 127, x)
	if err != nil {
		t.Fatal(err)
	}
	series, _ := o.Series(0)

	if got := DominantPeriod(series); math.Abs(got-2) > 1e-9 {
		t.Errorf("period = %v, want 2", got)
	}

	flat := make([]float64, 16)
	for i := range flat {
		flat[i] = 0.25
	}
	if got := DominantPeriod(flat); got != 0 {
		t.Errorf("constant series: period = %v, want 0", got)
	}
}
