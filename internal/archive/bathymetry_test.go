package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/shared/testutil"
)

var _ plotter.GridXYZ = (*Grid)(nil)

func TestLoadBathymetry(t *testing.T) {
	dir := t.TempDir()
	fixture := testutil.DefaultBathymetry()
	path := testutil.WriteBathymetryNC(t, dir, "bathy.nc", fixture)

	g, err := LoadBathymetry(context.Background(), path)
	require.NoError(t, err)

	c, r := g.Dims()
	assert.Equal(t, 5, c)
	assert.Equal(t, 4, r)
	assert.Equal(t, -22.0, g.X(0))
	assert.Equal(t, 42.0, g.Y(3))
	assert.Equal(t, -4000.0, g.Z(0, 0))
	assert.Equal(t, 0.0, g.Z(4, 2))
	assert.Equal(t, -4000.0, g.Min())
	assert.Equal(t, 0.0, g.Max())
}

func TestLoadBathymetryMissing(t *testing.T) {
	_, err := LoadBathymetry(context.Background(), "/does/not/exist.nc")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIO))
}

func TestGridSub(t *testing.T) {
	g, err := NewGrid([]float64{0, 1, 2}, []float64{10, 11}, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	tests := []struct {
		name    string
		lon     [2]float64
		lat     [2]float64
		wantLon []float64
		wantLat []float64
		wantZ   []float64
	}{
		{
			name:    "inclusive window",
			lon:     [2]float64{1, 2},
			lat:     [2]float64{11, 11},
			wantLon: []float64{1, 2},
			wantLat: []float64{11},
			wantZ:   []float64{5, 6},
		},
		{
			name:    "whole grid",
			lon:     [2]float64{-10, 10},
			lat:     [2]float64{0, 20},
			wantLon: []float64{0, 1, 2},
			wantLat: []float64{10, 11},
			wantZ:   []float64{1, 2, 3, 4, 5, 6},
		},
		{
			name:    "outside",
			lon:     [2]float64{5, 6},
			lat:     [2]float64{10, 11},
			wantLon: []float64{},
			wantLat: []float64{10, 11},
			wantZ:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := g.Sub(tt.lon[0], tt.lon[1], tt.lat[0], tt.lat[1])
			assert.Equal(t, tt.wantLon, s.Lon)
			assert.Equal(t, tt.wantLat, s.Lat)
			assert.Equal(t, tt.wantZ, s.z)
		})
	}
}

func TestGridFromDatasetTransposedAndDescending(t *testing.T) {
	ds, err := dataset.NewBuilder().
		Dim("lon", 2).
		Dim("lat", 2).
		Coord("lon", dataset.NewFloat([]string{"lon"}, []int{2}, []float64{0, 1}, nil)).
		Coord("lat", dataset.NewFloat([]string{"lat"}, []int{2}, []float64{5, 4}, nil)).
		Var("z", dataset.NewFloat([]string{"lon", "lat"}, []int{2, 2}, []float64{
			1, 2, // lon 0: lat 5, lat 4
			3, 4, // lon 1: lat 5, lat 4
		}, nil)).
		Build()
	require.NoError(t, err)

	g, err := gridFromDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, g.Lat)
	assert.Equal(t, 2.0, g.Z(0, 0))
	assert.Equal(t, 4.0, g.Z(1, 0))
	assert.Equal(t, 1.0, g.Z(0, 1))
	assert.Equal(t, 3.0, g.Z(1, 1))
}
