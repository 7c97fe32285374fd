package viz

import (
	"math"
	"strings"
)

const brailleBlank = 0x2800

// Braille dot bits by sub-row and sub-column of a 2x4 cell.
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille pixel grid of Width x Height cells, i.e.
// 2·Width x 4·Height dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y); out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a Bresenham line between two dots.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
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

// Path draws the polyline (xs[i], ys[i]) scaled to fill the canvas.
// Non-finite points break the line.
func (c *Canvas) Path(xs, ys []float64) {
	n := min(len(xs), len(ys))
	if n == 0 {
		return
	}
	xlo, xhi := bounds(xs[:n])
	ylo, yhi := bounds(ys[:n])
	w, h := float64(2*c.Width-1), float64(4*c.Height-1)
	scale := func(v, lo, hi, size float64) int {
		if hi == lo {
			return int(size / 2)
		}
		return int(math.Round((v - lo) / (hi - lo) * size))
	}

	px, py, have := 0, 0, false
	for i := 0; i < n; i++ {
		if !finite(xs[i]) || !finite(ys[i]) {
			have = false
			continue
		}
		x := scale(xs[i], xlo, xhi, w)
		y := int(h) - scale(ys[i], ylo, yhi, h)
		if have {
			c.DrawLine(px, py, x, y)
		} else {
			c.Set(x, y)
		}
		px, py, have = x, y, true
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

func bounds(vs []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if !finite(v) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo > hi {
		return 0, 0
	}
	return lo, hi
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
