package plot

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// QuiverScale is the vector magnitude drawn as an arrow one plot width long.
const QuiverScale = 2.0

// Quiver draws one arrow per vector. Arrow length is proportional to the
// vector magnitude times Scale, relative to the width of the data area.
type Quiver struct {
	Vectors Vectors
	Scale   float64

	LineStyle  draw.LineStyle
	HeadLength vg.Length
}

// NewQuiver creates a quiver plotter drawn in clr.
func NewQuiver(v Vectors, scale float64, clr color.Color) *Quiver {
	return &Quiver{
		Vectors: v,
		Scale:   scale,
		LineStyle: draw.LineStyle{
			Color: clr,
			Width: vg.Points(0.75),
		},
		HeadLength: vg.Points(3),
	}
}

// Plot implements plot.Plotter.
func (q *Quiver) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	width := float64(c.Max.X - c.Min.X)

	for i := range q.Vectors.Lon {
		x, y := q.Vectors.Lon[i], q.Vectors.Lat[i]
		u, v := q.Vectors.U[i], q.Vectors.V[i]
		if anyNaN(x, y, u, v) {
			continue
		}
		start := vg.Point{X: trX(x), Y: trY(y)}
		if !c.Contains(start) {
			continue
		}
		f := q.Scale / QuiverScale * width
		end := vg.Point{X: start.X + vg.Length(u*f), Y: start.Y + vg.Length(v*f)}

		c.StrokeLines(q.LineStyle, c.ClipLinesXY([]vg.Point{start, end})...)
		if head := q.head(start, end); head != nil {
			c.StrokeLines(q.LineStyle, c.ClipLinesXY(head)...)
		}
	}
}

// head returns the two barbs of the arrow ending at end.
func (q *Quiver) head(start, end vg.Point) []vg.Point {
	dx, dy := float64(end.X-start.X), float64(end.Y-start.Y)
	if math.Hypot(dx, dy) == 0 {
		return nil
	}
	angle := math.Atan2(dy, dx)
	l := float64(q.HeadLength)
	barb := func(a float64) vg.Point {
		return vg.Point{
			X: end.X - vg.Length(l*math.Cos(angle+a)),
			Y: end.Y - vg.Length(l*math.Sin(angle+a)),
		}
	}
	return []vg.Point{barb(math.Pi / 7), end, barb(-math.Pi / 7)}
}

// DataRange implements plot.DataRanger over the arrow tails.
func (q *Quiver) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for i := range q.Vectors.Lon {
		x, y := q.Vectors.Lon[i], q.Vectors.Lat[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		xmin, xmax = math.Min(xmin, x), math.Max(xmax, x)
		ymin, ymax = math.Min(ymin, y), math.Max(ymax, y)
	}
	return xmin, xmax, ymin, ymax
}

func anyNaN(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
