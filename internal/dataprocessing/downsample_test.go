package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adcpview/internal/errors"
)

func TestDownsampleFactor(t *testing.T) {
	tests := []struct {
		total, n, want int
	}{
		{total: 1000, n: 100, want: 10},
		{total: 1050, n: 100, want: 10},
		{total: 99, n: 100, want: 1},
		{total: 0, n: 100, want: 1},
		{total: 801, n: 400, want: 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DownsampleFactor(tt.total, tt.n), "%d/%d", tt.total, tt.n)
	}
}

func TestDownsample(t *testing.T) {
	lon := []float64{-20, -19, -18, -17, -16}
	lat := []float64{40, 41, 42, 43, 44}
	ds := gridDataset(t, lon, lat, []float64{-10, -20})

	out, err := Downsample(ds, 2)
	require.NoError(t, err)

	n, _ := out.DimLen("MAXT")
	assert.Equal(t, 2, n, "trailing partial block is trimmed")

	assert.True(t, out.IsCoord(VarLongitude))
	assert.True(t, out.IsCoord(VarLatitude))

	lv, err := out.MustVar(VarLongitude)
	require.NoError(t, err)
	assert.Equal(t, []float64{-19.5, -17.5}, lv.Data)

	u, err := out.MustVar(VarU)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 1.5, 3.5, 3.5}, u.Data)

	tv, err := out.MustVar(VarTime)
	require.NoError(t, err)
	start := time.Date(2018, 5, 19, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, start.Add(30*time.Minute), tv.Times[0])
	assert.Equal(t, start.Add(150*time.Minute), tv.Times[1])

	z, err := out.MustVar(VarDepth)
	require.NoError(t, err)
	assert.Equal(t, []float64{-10, -20}, z.Data, "depth is untouched")
}

func TestDownsampleBelowBudget(t *testing.T) {
	ds := gridDataset(t, []float64{-20, -19, -18}, []float64{40, 41, 42}, []float64{-10})

	out, err := Downsample(ds, 100)
	require.NoError(t, err)
	assert.Same(t, ds, out)
}

func TestDownsampleRejectsNonPositive(t *testing.T) {
	ds := gridDataset(t, []float64{-20}, []float64{40}, []float64{-10})

	for _, n := range []int{0, -5} {
		_, err := Downsample(ds, n)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	}
}
