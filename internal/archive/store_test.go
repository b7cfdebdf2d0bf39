package archive

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adcpview/internal/errors"
	"adcpview/internal/shared/testutil"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	dir := t.TempDir()
	return NewStore(dir, logger), dir
}

func TestStoreOpenDecodesSurvey(t *testing.T) {
	store, dir := newTestStore(t)
	fixture := testutil.DefaultSurvey()
	fixture.Times[1] = math.NaN()
	fixture.UCUR[2][1] = math.NaN()
	fixture.Bad = [][2]int{{0, 2}}
	testutil.WriteSurveyNC(t, dir, "survey.nc", fixture)

	h, err := store.Open(context.Background(), "survey.nc")
	require.NoError(t, err)
	defer h.Close()

	ds := h.Dataset()
	assert.Equal(t, "survey.nc", h.Name())

	n, ok := ds.DimLen("MAXT")
	require.True(t, ok)
	assert.Equal(t, 4, n)
	n, ok = ds.DimLen("INSTANCE")
	require.True(t, ok)
	assert.Equal(t, 1, n)

	t.Run("fill values become NaN", func(t *testing.T) {
		tv, err := ds.MustVar("TIME")
		require.NoError(t, err)
		assert.True(t, math.IsNaN(tv.Data[1]))
		assert.InDelta(t, fixture.Times[0], tv.Data[0], 1e-9)

		u, err := ds.MustVar("UCUR")
		require.NoError(t, err)
		assert.Equal(t, []string{"INSTANCE", "MAXT", "MAXZ"}, u.Dims)
		assert.True(t, math.IsNaN(u.Data[2*3+1]))
		_, has := u.Attrs.Get("_FillValue")
		assert.False(t, has)
	})

	t.Run("flags become byte codes", func(t *testing.T) {
		qc, err := ds.MustVar("UCUR_SEADATANET_QC")
		require.NoError(t, err)
		assert.Equal(t, []int{1, 4, 3}, qc.Shape)
		assert.Equal(t, float64(testutil.QCBad), qc.Data[2])
		assert.Equal(t, float64(testutil.QCGood), qc.Data[0])

		ship, err := ds.MustVar("USHIP_SEADATANET_QC")
		require.NoError(t, err)
		assert.Equal(t, []string{"INSTANCE", "MAXT"}, ship.Dims)
		assert.Equal(t, []int{1, 4}, ship.Shape)
	})

	t.Run("text drops the string length dimension", func(t *testing.T) {
		cdi, err := ds.MustVar("SDN_LOCAL_CDI_ID")
		require.NoError(t, err)
		assert.Equal(t, []string{"INSTANCE"}, cdi.Dims)
		assert.Equal(t, []string{fixture.LocalCDI}, cdi.Text)

		cruise, err := ds.MustVar("SDN_CRUISE")
		require.NoError(t, err)
		name, ok := cruise.Attrs.String("shipname")
		assert.True(t, ok)
		assert.Equal(t, "THALASSA", name)
	})

	t.Run("coordinates attribute marks coordinates", func(t *testing.T) {
		for _, c := range []string{"TIME", "LATITUDE", "LONGITUDE"} {
			assert.True(t, ds.IsCoord(c), c)
		}
		assert.False(t, ds.IsCoord("UCUR"))
		assert.False(t, ds.IsCoord("PROFZ"))
	})

	t.Run("global attributes", func(t *testing.T) {
		freq, ok := ds.Attrs().String("ADCP_frequency")
		assert.True(t, ok)
		assert.Equal(t, "150 kHz", freq)
	})
}

func TestStoreOpenErrors(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.nc"), []byte("not netcdf"), 0644))

	tests := []struct {
		name    string
		file    string
		errType apperrors.ErrorType
	}{
		{name: "missing file", file: "absent.nc", errType: apperrors.ErrTypeIO},
		{name: "not netcdf", file: "broken.nc", errType: apperrors.ErrTypeDataFormat},
		{name: "path traversal", file: "../secret.nc", errType: apperrors.ErrTypeValidation},
		{name: "empty name", file: "", errType: apperrors.ErrTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := store.Open(context.Background(), tt.file)
			assert.Nil(t, h)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
	assert.Equal(t, 0, store.OpenHandles())
}

func TestStoreOpenCancelled(t *testing.T) {
	store, dir := newTestStore(t)
	testutil.WriteSurveyNC(t, dir, "survey.nc", testutil.DefaultSurvey())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Open(ctx, "survey.nc")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleClose(t *testing.T) {
	store, dir := newTestStore(t)
	testutil.WriteSurveyNC(t, dir, "survey.nc", testutil.DefaultSurvey())

	h, err := store.Open(context.Background(), "survey.nc")
	require.NoError(t, err)
	assert.Equal(t, 1, store.OpenHandles())

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 0, store.OpenHandles())
	assert.NotNil(t, h.Dataset())
}

func TestStoreList(t *testing.T) {
	store, dir := newTestStore(t)
	testutil.WriteSurveyNC(t, dir, "b.nc", testutil.DefaultSurvey())
	testutil.WriteSurveyNC(t, dir, "a.nc", testutil.DefaultSurvey())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zarr_table.csv"), []byte("x"), 0644))

	names, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.nc", "b.nc"}, names)
}
