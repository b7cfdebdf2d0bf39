package plot

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Basemap colours
var (
	LandColor      = color.Gray{Y: 211}
	CoastlineColor = color.Black
	ContourColor   = color.Black
)

// LandMask fills every grid cell at or above sea level.
type LandMask struct {
	Grid  plotter.GridXYZ
	Color color.Color
}

// Plot implements plot.Plotter.
func (l *LandMask) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	cols, rows := l.Grid.Dims()
	for i := 0; i < cols; i++ {
		x0, x1 := cellBounds(l.Grid.X, i, cols)
		for j := 0; j < rows; j++ {
			z := l.Grid.Z(i, j)
			if math.IsNaN(z) || z < 0 {
				continue
			}
			y0, y1 := cellBounds(l.Grid.Y, j, rows)
			pts := []vg.Point{
				{X: trX(x0), Y: trY(y0)},
				{X: trX(x1), Y: trY(y0)},
				{X: trX(x1), Y: trY(y1)},
				{X: trX(x0), Y: trY(y1)},
			}
			c.FillPolygon(l.Color, c.ClipPolygonXY(pts))
		}
	}
}

// cellBounds returns the edges of cell i halfway to its neighbours.
func cellBounds(at func(int) float64, i, n int) (lo, hi float64) {
	v := at(i)
	switch {
	case n == 1:
		return v, v
	case i == 0:
		h := (at(1) - v) / 2
		return v - h, v + h
	case i == n-1:
		h := (v - at(n-2)) / 2
		return v - h, v + h
	}
	return (at(i-1) + v) / 2, (v + at(i+1)) / 2
}

// contourable reports whether g can be contoured: at least 2x2 nodes and a
// finite elevation range.
func contourable(g plotter.GridXYZ) bool {
	if g == nil {
		return false
	}
	c, r := g.Dims()
	if c < 2 || r < 2 {
		return false
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			z := g.Z(i, j)
			if math.IsNaN(z) {
				continue
			}
			lo, hi = math.Min(lo, z), math.Max(hi, z)
		}
	}
	return lo <= hi
}

// levelContour draws g at a single level in clr.
func levelContour(g plotter.GridXYZ, level float64, clr color.Color, width vg.Length) *plotter.Contour {
	ct := plotter.NewContour(g, []float64{level}, nil)
	ct.LineStyles = []draw.LineStyle{{Color: clr, Width: width}}
	return ct
}
