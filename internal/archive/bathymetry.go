package archive

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/batchatco/go-native-netcdf/netcdf"

	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

var (
	lonNames = []string{"longitude", "lon", "x"}
	latNames = []string{"latitude", "lat", "y"}
	zNames   = []string{"z", "elevation", "elev", "topo"}
)

// Grid is a regular bathymetry grid. Z is stored row-major by latitude, so
// Z(c, r) is the elevation at Lon[c], Lat[r]. Grid satisfies
// gonum.org/v1/plot/plotter.GridXYZ.
type Grid struct {
	Lon []float64
	Lat []float64
	z   []float64
}

// NewGrid builds a Grid from row-major (lat, lon) elevations.
func NewGrid(lon, lat, z []float64) (*Grid, error) {
	if len(z) != len(lon)*len(lat) {
		return nil, fmt.Errorf("grid: %d values for %dx%d grid", len(z), len(lat), len(lon))
	}
	return &Grid{Lon: lon, Lat: lat, z: z}, nil
}

// Dims returns the number of columns (longitudes) and rows (latitudes).
func (g *Grid) Dims() (c, r int) {
	return len(g.Lon), len(g.Lat)
}

// Z returns the elevation at column c, row r.
func (g *Grid) Z(c, r int) float64 {
	return g.z[r*len(g.Lon)+c]
}

// X returns the longitude of column c.
func (g *Grid) X(c int) float64 {
	return g.Lon[c]
}

// Y returns the latitude of row r.
func (g *Grid) Y(r int) float64 {
	return g.Lat[r]
}

// Min returns the lowest elevation, ignoring NaN.
func (g *Grid) Min() float64 {
	m := math.Inf(1)
	for _, v := range g.z {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the highest elevation, ignoring NaN.
func (g *Grid) Max() float64 {
	m := math.Inf(-1)
	for _, v := range g.z {
		if v > m {
			m = v
		}
	}
	return m
}

// Sub returns the window of g inside the closed lon/lat ranges. A window
// with no cells yields an empty grid.
func (g *Grid) Sub(lonMin, lonMax, latMin, latMax float64) *Grid {
	cols := within(g.Lon, lonMin, lonMax)
	rows := within(g.Lat, latMin, latMax)

	out := &Grid{
		Lon: make([]float64, len(cols)),
		Lat: make([]float64, len(rows)),
		z:   make([]float64, 0, len(cols)*len(rows)),
	}
	for i, c := range cols {
		out.Lon[i] = g.Lon[c]
	}
	for i, r := range rows {
		out.Lat[i] = g.Lat[r]
		for _, c := range cols {
			out.z = append(out.z, g.Z(c, r))
		}
	}
	return out
}

func within(xs []float64, lo, hi float64) []int {
	var idx []int
	for i, x := range xs {
		if x >= lo && x <= hi {
			idx = append(idx, i)
		}
	}
	return idx
}

// LoadBathymetry reads a longitude/latitude/elevation grid. Axes stored in
// descending order are flipped so both run ascending.
func LoadBathymetry(ctx context.Context, path string) (*Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewIOError(path, err)
	}

	group, err := netcdf.Open(path)
	if err != nil {
		return nil, apperrors.NewDataFormatError("bathymetry", err)
	}
	defer group.Close()

	ds, err := decodeGroup(group)
	if err != nil {
		return nil, err
	}
	return gridFromDataset(ds)
}

func gridFromDataset(ds *dataset.Dataset) (*Grid, error) {
	lon, lonName, err := pick(ds, lonNames)
	if err != nil {
		return nil, err
	}
	lat, latName, err := pick(ds, latNames)
	if err != nil {
		return nil, err
	}
	z, zName, err := pick(ds, zNames)
	if err != nil {
		return nil, err
	}
	if len(lon.Dims) != 1 || len(lat.Dims) != 1 || len(z.Dims) != 2 {
		return nil, apperrors.NewDataFormatError(zName, fmt.Errorf("want 1-D axes and a 2-D grid"))
	}

	nlon, nlat := lon.Len(), lat.Len()
	data := make([]float64, nlon*nlat)
	switch {
	case z.Dims[0] == lat.Dims[0] && z.Dims[1] == lon.Dims[0]:
		copy(data, z.Data)
	case z.Dims[0] == lon.Dims[0] && z.Dims[1] == lat.Dims[0]:
		for c := 0; c < nlon; c++ {
			for r := 0; r < nlat; r++ {
				data[r*nlon+c] = z.Data[c*nlat+r]
			}
		}
	default:
		return nil, apperrors.NewDataFormatError(zName,
			fmt.Errorf("dimensions %v do not match %s and %s", z.Dims, lonName, latName))
	}

	g := &Grid{
		Lon: append([]float64(nil), lon.Data...),
		Lat: append([]float64(nil), lat.Data...),
		z:   data,
	}
	g.ascending()
	return g, nil
}

// ascending flips descending axes.
func (g *Grid) ascending() {
	nlon, nlat := len(g.Lon), len(g.Lat)
	if nlon > 1 && !sort.Float64sAreSorted(g.Lon) {
		reverse(g.Lon)
		for r := 0; r < nlat; r++ {
			reverse(g.z[r*nlon : (r+1)*nlon])
		}
	}
	if nlat > 1 && !sort.Float64sAreSorted(g.Lat) {
		reverse(g.Lat)
		for top, bottom := 0, nlat-1; top < bottom; top, bottom = top+1, bottom-1 {
			for c := 0; c < nlon; c++ {
				g.z[top*nlon+c], g.z[bottom*nlon+c] = g.z[bottom*nlon+c], g.z[top*nlon+c]
			}
		}
	}
}

func reverse(xs []float64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func pick(ds *dataset.Dataset, names []string) (*dataset.Variable, string, error) {
	for _, n := range names {
		if v, ok := ds.Var(n); ok {
			return v, n, nil
		}
	}
	return nil, "", apperrors.NewDataFormatError(names[0], dataset.ErrNoVariable)
}
