package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "adcpview/internal/errors"
	"adcpview/internal/plot"
	ws "adcpview/internal/websocket"
)

func TestSessionApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.svc.NewSession(ctx)

	view, err := s.Apply(ctx, selectionFor("a2017.nc", 0, 0))
	require.NoError(t, err)
	assert.True(t, view.Reloaded)
	assert.Equal(t, YearRange{From: 2017, To: 2018}, view.Years)
	assert.Equal(t, []string{"a2017.nc", "b2018.nc", "c2018.nc"}, view.Files)
	assert.Equal(t, "a2017.nc", view.Selection.File)
	assert.Equal(t, Range{Min: -21, Max: -16}, view.Selection.Lon)
	assert.Equal(t, Range{Min: 39, Max: 44}, view.Selection.Lat)
	assert.Equal(t, Range{Min: -31, Max: -9}, view.Bounds.Depth)
	for _, b := range view.Selection.Bands {
		assert.Equal(t, view.Bounds.Depth, b.Range)
	}
	assert.Equal(t, 4, view.Casts)
	assert.NotNil(t, view.Map)
	assert.Len(t, view.Series, len(plot.SeriesVariables))
	assert.NotEmpty(t, view.Summary)
	assert.Equal(t, 1, f.store.OpenHandles())

	t.Run("narrowed range is kept", func(t *testing.T) {
		sel := view.Selection
		sel.Lon = Range{Min: -20, Max: -18}
		next, err := s.Apply(ctx, sel)
		require.NoError(t, err)
		assert.False(t, next.Reloaded)
		assert.Equal(t, Range{Min: -20, Max: -18}, next.Selection.Lon)
		assert.Equal(t, 3, next.Casts)
		assert.Equal(t, 1, f.store.OpenHandles())
	})

	t.Run("out of bounds range is clamped", func(t *testing.T) {
		sel := view.Selection
		sel.Lon = Range{Min: -30, Max: -18}
		next, err := s.Apply(ctx, sel)
		require.NoError(t, err)
		assert.Equal(t, Range{Min: -21, Max: -18}, next.Selection.Lon)
	})

	t.Run("year change switches file and resets ranges", func(t *testing.T) {
		sel := view.Selection
		sel.YearFrom, sel.YearTo = 2018, 2018
		sel.Lon = Range{Min: -20, Max: -18}
		next, err := s.Apply(ctx, sel)
		require.NoError(t, err)
		assert.True(t, next.Reloaded)
		assert.Equal(t, []string{"b2018.nc", "c2018.nc"}, next.Files)
		assert.Equal(t, "b2018.nc", next.Selection.File)
		assert.Equal(t, Range{Min: -11, Max: -6}, next.Selection.Lon)
		assert.Equal(t, "b2018.nc", s.File())
		assert.Equal(t, 1, f.store.OpenHandles())
	})

	t.Run("reversed years are ordered", func(t *testing.T) {
		next, err := s.Apply(ctx, selectionFor("c2018.nc", 2018, 2017))
		require.NoError(t, err)
		assert.Equal(t, YearRange{From: 2017, To: 2018}, next.Years)
		assert.Equal(t, "c2018.nc", next.Selection.File)
	})

	t.Run("empty year range releases the file", func(t *testing.T) {
		next, err := s.Apply(ctx, selectionFor("a2017.nc", 1990, 1995))
		require.NoError(t, err)
		assert.Empty(t, next.Files)
		assert.Empty(t, next.Selection.File)
		assert.Nil(t, next.Map)
		assert.Empty(t, s.File())
		assert.Equal(t, 0, f.store.OpenHandles())
	})
}

func TestSessionApplyRejectsInvalidSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.svc.NewSession(ctx)

	tests := []struct {
		name  string
		edit  func(*Selection)
		field string
	}{
		{name: "too few vectors", edit: func(s *Selection) { s.Vectors = 10 }, field: "vectors"},
		{name: "scale above one", edit: func(s *Selection) { s.Scale = 2 }, field: "scale"},
		{name: "path in file name", edit: func(s *Selection) { s.File = "../a2017.nc" }, field: "file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := selectionFor("a2017.nc", 0, 0)
			tt.edit(&sel)
			_, err := s.Apply(ctx, sel)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
			assert.Equal(t, tt.field, apperrors.Field(err))
		})
	}
	_, ok := s.View()
	assert.False(t, ok)
	assert.Equal(t, 0, f.store.OpenHandles())
}

func TestSessionListenAppliesNewest(t *testing.T) {
	f := newFixture(t)
	s := f.newSession()

	updates := make(chan Selection, 3)
	updates <- selectionFor("a2017.nc", 0, 0)
	updates <- selectionFor("c2018.nc", 0, 0)
	bad := selectionFor("a2017.nc", 0, 0)
	bad.Vectors = 1
	updates <- bad
	close(updates)

	require.NoError(t, s.Listen(context.Background(), updates))

	msgs := f.publisher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ws.TypeError, msgs[0].Type)
	assert.Equal(t, "test", msgs[0].SessionID)
	data, ok := msgs[0].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "vectors", data["field"])
	assert.Empty(t, s.File())
}

func TestSessionListenPublishesView(t *testing.T) {
	f := newFixture(t)
	s := f.newSession()

	updates := make(chan Selection, 2)
	updates <- selectionFor("a2017.nc", 0, 0)
	updates <- selectionFor("c2018.nc", 0, 0)
	close(updates)

	require.NoError(t, s.Listen(context.Background(), updates))

	msgs := f.publisher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ws.TypeView, msgs[0].Type)
	view, ok := msgs[0].Data.(*View)
	require.True(t, ok)
	assert.Equal(t, "c2018.nc", view.Selection.File)
	s.Close(context.Background())
	assert.Equal(t, 0, f.store.OpenHandles())
}

func TestSessionListenStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	s := f.newSession()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Listen(ctx, make(chan Selection))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSessionNotify(t *testing.T) {
	f := newFixture(t)
	s := f.svc.NewSession(context.Background())

	s.Notify(selectionFor("b2018.nc", 0, 0))

	require.Eventually(t, func() bool {
		view, ok := s.View()
		return ok && view.Selection.File == "b2018.nc"
	}, 5*testTimeout, testTick)
	require.Eventually(t, func() bool {
		for _, m := range f.publisher.messages() {
			if m.Type == ws.TypeView && m.SessionID == s.ID() {
				return true
			}
		}
		return false
	}, testTimeout, testTick)
}

func TestSessionNotifyKeepsNewest(t *testing.T) {
	f := newFixture(t)
	s := f.newSession()

	for i := 0; i < pendingSelections+3; i++ {
		sel := DefaultSelection()
		sel.Vectors = 100 + i
		s.Notify(sel)
	}

	assert.Len(t, s.updates, pendingSelections)
	newest, open := latest(s.updates, Selection{})
	assert.True(t, open)
	assert.Equal(t, 100+pendingSelections+2, newest.Vectors)
}

func TestSessionClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.svc.NewSession(ctx)
	_, err := s.Apply(ctx, selectionFor("a2017.nc", 0, 0))
	require.NoError(t, err)

	s.Close(ctx)
	s.Close(ctx)

	assert.Equal(t, 0, f.store.OpenHandles())
	_, err = s.Apply(ctx, selectionFor("a2017.nc", 0, 0))
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}
