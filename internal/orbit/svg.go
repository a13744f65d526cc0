package orbit

import (
	"fmt"
	"strings"
)

// SVG draws coordinates xIdx and yIdx of every point as dots. Orbits of a
// map are discrete, so points are not joined.
func (o *Orbit) SVG(xIdx, yIdx, width, height int, color string) (string, error) {
	xs, err := o.Series(xIdx)
	if err != nil {
		return "", err
	}
	ys, err := o.Series(yIdx)
	if err != nil {
		return "", err
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	minY -= rangeY * 0.05
	rangeX *= 1.1
	rangeY *= 1.1

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="%s">
`, width, height, width, height, color)

	for i := range xs {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"0.8\"/>\n", x, y)
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String(), nil
}
