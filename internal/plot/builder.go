package plot

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"adcpview/internal/archive"
	"adcpview/internal/config"
	"adcpview/internal/dataprocessing"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/infrastructure"
)

// BandColors are the arrow colours of the first, second and third depth band.
var BandColors = []color.Color{
	color.RGBA{B: 255, A: 255},
	color.RGBA{G: 128, A: 255},
	color.RGBA{R: 255, A: 255},
}

// Band is one depth range of the vector map.
type Band struct {
	Range   dataprocessing.Range `json:"range"`
	Enabled bool                 `json:"enabled"`
}

// MapRequest describes a vector map.
type MapRequest struct {
	Lon dataprocessing.Range
	Lat dataprocessing.Range
	// Bands holds up to three depth bands. The first is always drawn.
	Bands []Band
	// Vectors is the target number of casts after downsampling.
	Vectors int
	// Scale multiplies every vector before drawing.
	Scale float64
	// Bathymetry draws the bathymetric contour.
	Bathymetry bool
	// Basemap draws land and coastline from the bathymetry grid.
	Basemap bool
}

// Builder assembles viewer figures.
type Builder struct {
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewBuilder creates a Builder. metrics may be nil.
func NewBuilder(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Builder {
	return &Builder{
		logger:  logger.With(slog.String("component", "plot")),
		metrics: metrics,
	}
}

// VectorMap draws the depth-averaged currents of ds inside the requested
// extent. bathy may be nil, in which case no contour or basemap is drawn.
func (b *Builder) VectorMap(ctx context.Context, ds *dataset.Dataset, bathy *archive.Grid, req MapRequest) (*plot.Plot, error) {
	if len(req.Bands) == 0 {
		return nil, apperrors.NewAppValidationError("at least one depth band is required")
	}
	if len(req.Bands) > len(BandColors) {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("at most %d depth bands are supported", len(BandColors)))
	}

	lon, lat := req.Lon.Ordered(), req.Lat.Ordered()

	ds, err := dataprocessing.Downsample(ds, req.Vectors)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"
	p.Y.Scale = MercatorScale{}
	p.Add(plotter.NewGrid())

	if bathy != nil && (req.Basemap || req.Bathymetry) {
		window := bathy.Sub(lon.Min, lon.Max, lat.Min, lat.Max)
		if req.Basemap {
			p.Add(&LandMask{Grid: window, Color: LandColor})
			if contourable(window) {
				p.Add(levelContour(window, 0, CoastlineColor, vg.Points(0.75)))
			}
		}
		if req.Bathymetry && contourable(window) {
			p.Add(levelContour(window, config.BathyContourLevel, ContourColor, vg.Points(1)))
		}
	}

	drawn := 0
	for i, band := range req.Bands {
		if i > 0 && !band.Enabled {
			continue
		}
		v, err := DepthMeanVectors(ds, band.Range)
		if err != nil {
			return nil, err
		}
		p.Add(NewQuiver(v, req.Scale, BandColors[i]))
		drawn += v.Len()
	}

	p.X.Min, p.X.Max = lon.Min, lon.Max
	p.Y.Min, p.Y.Max = lat.Min, lat.Max

	b.recordPlot(ctx, "vectors")
	b.logger.DebugContext(ctx, "vector map built",
		slog.Int("vectors", drawn),
		slog.String("lon", lon.String()),
		slog.String("lat", lat.String()))
	return p, nil
}

// SeriesVariables are the per-cast variables plotted against time.
var SeriesVariables = []string{
	dataprocessing.VarBathy,
	dataprocessing.VarUShip,
	dataprocessing.VarVShip,
	dataprocessing.VarBottomDepth,
}

// TimeSeries plots the maximum over depth of each series variable against
// TIME, one plot per variable in SeriesVariables order.
func (b *Builder) TimeSeries(ctx context.Context, ds *dataset.Dataset) ([]*plot.Plot, error) {
	tv, err := ds.MustVar(dataprocessing.VarTime)
	if err != nil {
		return nil, apperrors.NewDataFormatError(dataprocessing.VarTime, err)
	}
	if tv.Kind() != dataset.Temporal {
		return nil, apperrors.NewDataFormatError(dataprocessing.VarTime, errors.New("time is not decoded"))
	}

	plots := make([]*plot.Plot, 0, len(SeriesVariables))
	for _, name := range SeriesVariables {
		p, err := b.series(ds, tv.Times, name)
		if err != nil {
			return nil, err
		}
		plots = append(plots, p)
		b.recordPlot(ctx, "series")
	}
	return plots, nil
}

// Series builds the time series plot of a single variable.
func (b *Builder) Series(ctx context.Context, ds *dataset.Dataset, name string) (*plot.Plot, error) {
	tv, err := ds.MustVar(dataprocessing.VarTime)
	if err != nil {
		return nil, apperrors.NewDataFormatError(dataprocessing.VarTime, err)
	}
	if tv.Kind() != dataset.Temporal {
		return nil, apperrors.NewDataFormatError(dataprocessing.VarTime, errors.New("time is not decoded"))
	}
	p, err := b.series(ds, tv.Times, name)
	if err != nil {
		return nil, err
	}
	b.recordPlot(ctx, "series")
	return p, nil
}

func (b *Builder) series(ds *dataset.Dataset, times []time.Time, name string) (*plot.Plot, error) {
	v, err := ds.MustVar(name)
	if err != nil {
		return nil, apperrors.NewDataFormatError(name, err)
	}
	if v.HasDim(dataprocessing.VarDepth) {
		if v, err = v.Max(dataprocessing.VarDepth); err != nil {
			return nil, apperrors.NewDataFormatError(name, err)
		}
	}
	if v.Len() != len(times) {
		return nil, apperrors.NewDataFormatError(name, fmt.Errorf("%d values for %d times", v.Len(), len(times)))
	}

	p := plot.New()
	p.Title.Text = name
	p.X.Label.Text = dataprocessing.VarTime
	p.Y.Label.Text = name
	if units, ok := v.Attrs.String("units"); ok {
		p.Y.Label.Text = fmt.Sprintf("%s (%s)", name, units)
	}
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Add(plotter.NewGrid())

	for _, seg := range segments(times, v.Data) {
		line, err := plotter.NewLine(seg)
		if err != nil {
			return nil, apperrors.NewRenderError("build series "+name, err)
		}
		p.Add(line)
	}
	return p, nil
}

// segments splits a series into runs of present values.
func segments(times []time.Time, ys []float64) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, y := range ys {
		if math.IsNaN(y) || math.IsInf(y, 0) || times[i].IsZero() {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(times[i].Unix()), Y: y})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func (b *Builder) recordPlot(ctx context.Context, kind string) {
	if b.metrics == nil {
		return
	}
	b.metrics.PlotsRendered.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
