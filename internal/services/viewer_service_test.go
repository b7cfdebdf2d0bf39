package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adcpview/internal/archive"
	"adcpview/internal/config"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/metadata"
)

func TestViewerServiceSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.svc.NewSession(ctx)
	b := f.svc.NewSession(ctx)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, f.svc.SessionIDs())

	got, err := f.svc.Session(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = a.Apply(ctx, selectionFor("a2017.nc", 0, 0))
	require.NoError(t, err)
	_, err = b.Apply(ctx, selectionFor("c2018.nc", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.OpenHandles())

	require.NoError(t, f.svc.CloseSession(ctx, a.ID()))
	assert.Equal(t, 1, f.store.OpenHandles())
	assert.Equal(t, []string{b.ID()}, f.svc.SessionIDs())

	err = f.svc.CloseSession(ctx, a.ID())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
	_, err = f.svc.Session("missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))

	f.svc.Close(ctx)
	assert.Empty(t, f.svc.SessionIDs())
	assert.Equal(t, 0, f.store.OpenHandles())
}

func TestViewerServiceInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.svc.Info(ctx, "a2017.nc", false)
	require.NoError(t, err)
	assert.Equal(t, "a2017.nc", rec.String(metadata.KeyFilename))
	assert.Equal(t, 0, f.store.OpenHandles())
	assert.NoFileExists(t, f.paths.GetTransformedPath("a2017.nc"))

	_, err = f.svc.Info(ctx, "a2017.nc", true)
	require.NoError(t, err)
	assert.FileExists(t, f.paths.GetTransformedPath("a2017.nc"))
	manifest, err := os.ReadFile(f.paths.GetManifestPath())
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "a2017.nc")

	out, err := archive.NewStore(f.paths.TransformedDir, discardLogger()).Open(ctx, "a2017.nc")
	require.NoError(t, err)
	defer out.Close()
	_, ok := out.Dataset().Var("PROFZ")
	assert.True(t, ok)
}

func TestViewerServiceInfoErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		file    string
		errType apperrors.ErrorType
	}{
		{name: "empty name", file: "", errType: apperrors.ErrTypeValidation},
		{name: "parent directory", file: "..", errType: apperrors.ErrTypeValidation},
		{name: "nested path", file: filepath.Join("sub", "a2017.nc"), errType: apperrors.ErrTypeValidation},
		{name: "missing file", file: "missing.nc", errType: apperrors.ErrTypeIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Info(ctx, tt.file, false)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestViewerServiceInfoPersistWithoutSink(t *testing.T) {
	f := newFixture(t)
	f.svc.sink = nil

	_, err := f.svc.Info(context.Background(), "a2017.nc", true)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Equal(t, 0, f.store.OpenHandles())
}

func TestViewerServiceReport(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Report(context.Background(), &buf, "a2017.nc"))

	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))
	assert.Equal(t, 0, f.store.OpenHandles())
}

func TestHealthService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hs := NewHealthService("1.2.0", "", "abc", f.paths, f.svc, nil, discardLogger())

	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "ready", ready.Services["archive"].Status)
	assert.Equal(t, "3 catalog entries", ready.Services["catalog"].Message)

	f.svc.NewSession(ctx)
	stats, err := hs.SystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.SurveyFiles)
	assert.Equal(t, 3, stats.CatalogEntries)
	assert.Equal(t, 1, stats.Sessions)

	v := hs.Version()
	assert.Equal(t, "1.2.0", v["version"])
	assert.Equal(t, "abc", v["build_id"])
	assert.NotContains(t, v, "build_time")
}

func TestHealthServiceNotReady(t *testing.T) {
	paths := config.NewPathsFromBase(t.TempDir(), config.Default().Paths)
	hs := NewHealthService("dev", "", "", paths, nil, nil, nil)

	ready := hs.ReadinessCheck(context.Background())
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "not_ready", ready.Services["archive"].Status)
	assert.Equal(t, "not_ready", ready.Services["catalog"].Status)

	stats, err := hs.SystemStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Sessions)
}
