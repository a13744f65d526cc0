package viz

import (
	"math"
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a grid of braille cells. Its resolution in pixels is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) cell(x, y int) (row, col int, mask rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, rune(pixelMap[y%4][x%2]), true
}

// Set turns on the pixel at (x, y); y grows downward.
func (c *Canvas) Set(x, y int) {
	if row, col, mask, ok := c.cell(x, y); ok {
		c.Grid[row][col] |= mask
	}
}

func (c *Canvas) Unset(x, y int) {
	if row, col, mask, ok := c.cell(x, y); ok {
		c.Grid[row][col] &^= mask
		c.Grid[row][col] |= brailleBlank
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	row, col, mask, ok := c.cell(x, y)
	return ok && c.Grid[row][col]&mask != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps data coordinates onto canvas pixels.
type Viewport struct {
	MinX, MaxX, MinY, MaxY float64
}

// Fit returns the bounding box of xs and ys, widened where it is flat.
// Non-finite values are ignored.
func Fit(xs, ys []float64) Viewport {
	v := Viewport{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	for i := range xs {
		if i >= len(ys) || !finite(xs[i]) || !finite(ys[i]) {
			continue
		}
		v.MinX, v.MaxX = min(v.MinX, xs[i]), max(v.MaxX, xs[i])
		v.MinY, v.MaxY = min(v.MinY, ys[i]), max(v.MaxY, ys[i])
	}
	if v.MinX > v.MaxX {
		return Viewport{MinX: -1, MaxX: 1, MinY: -1, MaxY: 1}
	}
	if v.MaxX == v.MinX {
		v.MinX, v.MaxX = v.MinX-0.5, v.MaxX+0.5
	}
	if v.MaxY == v.MinY {
		v.MinY, v.MaxY = v.MinY-0.5, v.MaxY+0.5
	}
	return v
}

// Pixel converts a data point to canvas pixel coordinates.
func (v Viewport) Pixel(c *Canvas, x, y float64) (int, int, bool) {
	if !finite(x) || !finite(y) {
		return 0, 0, false
	}
	w := float64(c.Width*2 - 1)
	h := float64(c.Height*4 - 1)
	px := int(math.Round((x - v.MinX) / (v.MaxX - v.MinX) * w))
	py := int(math.Round((v.MaxY - y) / (v.MaxY - v.MinY) * h))
	return px, py, true
}

// Scatter plots every (xs[i], ys[i]) as a single pixel.
func (c *Canvas) Scatter(v Viewport, xs, ys []float64) {
	for i := range xs {
		if i >= len(ys) {
			break
		}
		if px, py, ok := v.Pixel(c, xs[i], ys[i]); ok {
			c.Set(px, py)
		}
	}
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
