package analysis

import (
	"github.com/san-kum/dynmap/internal/orbit"
)

type PhasePoint struct{ X, Y float64 }

// PhasePortrait2D holds two coordinates of every point of an orbit
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []PhasePoint
}

// NewPhasePortrait projects o onto coordinates xIdx and yIdx.
func NewPhasePortrait(o *orbit.Orbit, xIdx, yIdx int) (*PhasePortrait2D, error) {
	xs, err := o.Series(xIdx)
	if err != nil {
		return nil, err
	}
	ys, err := o.Series(yIdx)
	if err != nil {
		return nil, err
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]PhasePoint, len(xs)),
	}
	for i := range xs {
		portrait.Points[i] = PhasePoint{X: xs[i], Y: ys[i]}
	}
	return portrait, nil
}

// Bounds returns the smallest box holding every point.
func (p *PhasePortrait2D) Bounds() (minX, maxX, minY, maxY float64) {
	if len(p.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points[1:] {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}
	return minX, maxX, minY, maxY
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX, minY, maxY := portrait.Bounds()

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := newCanvas(width, height)
	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		canvas.set(col, row, '•')
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas.get(col, row) == ' ' {
				canvas.set(col, row, '│')
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas.get(col, row) == ' ' {
				canvas.set(col, row, '─')
			}
		}
	}

	return canvas.String()
}
