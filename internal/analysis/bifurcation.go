package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/dynmap/internal/dynamo"
)

// BifurcationPoint represents the attractor found for one parameter value
type BifurcationPoint struct {
	Param  float64
	Values []float64 // distinct values of the recorded coordinate
}

// BifurcationSweep configures [BifurcationDiagram].
type BifurcationSweep struct {
	Param      string
	Min, Max   float64
	Steps      int
	StateIndex int
	Transient  int // iterates discarded before recording
	Record     int
}

// BifurcationDiagram sweeps a parameter and records the values the orbit of
// x0 settles on. Values closer than 1e-3 are merged, so a period-p orbit
// shows up as p values. The parameter is restored afterwards.
func BifurcationDiagram(sys dynamo.System, sweep BifurcationSweep, x0 dynamo.State) ([]BifurcationPoint, error) {
	orig, ok := sys.GetParams()[sweep.Param]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownParam, sweep.Param)
	}
	if sweep.StateIndex < 0 || sweep.StateIndex >= sys.Dim() {
		return nil, fmt.Errorf("%w: state index %d, map dimension %d", dynamo.ErrDimensionMismatch, sweep.StateIndex, sys.Dim())
	}
	defer sys.SetParam(sweep.Param, orig)

	steps := sweep.Steps
	if steps <= 1 {
		steps = 2 // Prevent division by zero
	}
	paramStep := (sweep.Max - sweep.Min) / float64(steps-1)
	results := make([]BifurcationPoint, 0, steps)

	for i := 0; i < steps; i++ {
		param := sweep.Min + float64(i)*paramStep
		if err := sys.SetParam(sweep.Param, param); err != nil {
			return nil, err
		}

		x := x0.Vec()
		if err := sys.Forward(sweep.Transient, x, x); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, param, err)
		}

		values := make([]float64, 0, 16)
		seen := make(map[int64]bool)
		for n := 0; n < sweep.Record; n++ {
			if err := sys.Forward(1, x, x); err != nil {
				return nil, fmt.Errorf("%s=%g: %w", sweep.Param, param, err)
			}
			val := x.AtVec(sweep.StateIndex)
			if math.IsNaN(val) || math.IsInf(val, 0) {
				break
			}
			key := int64(math.Round(val * 1000))
			if !seen[key] {
				seen[key] = true
				values = append(values, val)
			}
		}

		results = append(results, BifurcationPoint{
			Param:  param,
			Values: values,
		})
	}

	return results, nil
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	foundFirst := false
	for _, p := range data {
		for _, v := range p.Values {
			if !foundFirst {
				minVal, maxVal = v, v
				foundFirst = true
				continue
			}
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
	}
	if !foundFirst {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := newCanvas(width, height)
	for i, p := range data {
		col := min(i*width/len(data), width-1)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			canvas.set(col, row, '•')
		}
	}
	return canvas.String()
}

type runeCanvas [][]rune

func newCanvas(width, height int) runeCanvas {
	c := make(runeCanvas, height)
	for i := range c {
		c[i] = []rune(strings.Repeat(" ", width))
	}
	return c
}

func (c runeCanvas) set(col, row int, r rune) {
	if row >= 0 && row < len(c) && col >= 0 && col < len(c[row]) {
		c[row][col] = r
	}
}

func (c runeCanvas) get(col, row int) rune {
	if row >= 0 && row < len(c) && col >= 0 && col < len(c[row]) {
		return c[row][col]
	}
	return 0
}

func (c runeCanvas) String() string {
	var sb strings.Builder
	for _, row := range c {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
