package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adcpview/internal/plot"
)

func TestSelectionValidate(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Selection)
		wantErr bool
	}{
		{name: "defaults", edit: func(*Selection) {}},
		{name: "fewest vectors", edit: func(s *Selection) { s.Vectors = 40 }},
		{name: "most vectors", edit: func(s *Selection) { s.Vectors = 800 }},
		{name: "too many vectors", edit: func(s *Selection) { s.Vectors = 801 }, wantErr: true},
		{name: "smallest scale", edit: func(s *Selection) { s.Scale = 0.1 }},
		{name: "zero scale", edit: func(s *Selection) { s.Scale = 0 }, wantErr: true},
		{name: "negative year", edit: func(s *Selection) { s.YearFrom = -1 }, wantErr: true},
		{name: "backslash in file", edit: func(s *Selection) { s.File = `a\b.nc` }, wantErr: true},
		{name: "reversed ranges", edit: func(s *Selection) { s.Lon = Range{Min: 5, Max: -5} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := DefaultSelection()
			tt.edit(&sel)
			err := sel.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelectionResetKeepsEnabledBands(t *testing.T) {
	b := Bounds{
		Lon:   Range{Min: -21, Max: -16},
		Lat:   Range{Min: 39, Max: 44},
		Depth: Range{Min: -31, Max: -9},
	}
	sel := DefaultSelection()
	sel.Bands[1] = plot.Band{Range: Range{Min: -15, Max: -12}, Enabled: true}

	got := sel.reset(b)

	assert.Equal(t, b.Lon, got.Lon)
	assert.Equal(t, b.Lat, got.Lat)
	assert.True(t, got.Bands[1].Enabled)
	assert.False(t, got.Bands[2].Enabled)
	for _, band := range got.Bands {
		assert.Equal(t, b.Depth, band.Range)
	}
}

func TestSelectionClamp(t *testing.T) {
	b := Bounds{
		Lon:   Range{Min: -21, Max: -16},
		Lat:   Range{Min: 39, Max: 44},
		Depth: Range{Min: -31, Max: -9},
	}
	sel := DefaultSelection()
	sel.Lon = Range{Min: -18, Max: -25}
	sel.Lat = Range{Min: 40, Max: 41}
	sel.Bands[0].Range = Range{Min: -50, Max: 0}

	got := sel.clamp(b)

	assert.Equal(t, Range{Min: -21, Max: -18}, got.Lon)
	assert.Equal(t, Range{Min: 40, Max: 41}, got.Lat)
	assert.Equal(t, b.Depth, got.Bands[0].Range)
}

func TestSelectionJSON(t *testing.T) {
	var sel Selection
	err := json.Unmarshal([]byte(`{
		"year_from": 2017, "year_to": 2018, "file": "a2017.nc",
		"lon": {"min": -20, "max": -18},
		"bands": [{"range": {"min": -30, "max": -10}, "enabled": true}],
		"vectors": 200, "scale": 0.3, "bathymetry": true
	}`), &sel)
	require.NoError(t, err)

	assert.Equal(t, "a2017.nc", sel.File)
	assert.Equal(t, Range{Min: -20, Max: -18}, sel.Lon)
	assert.True(t, sel.Bands[0].Enabled)
	assert.False(t, sel.Bands[1].Enabled)

	req := sel.MapRequest()
	assert.Len(t, req.Bands, 3)
	assert.Equal(t, 200, req.Vectors)
	assert.True(t, req.Bathymetry)
	assert.False(t, req.Basemap)
}
