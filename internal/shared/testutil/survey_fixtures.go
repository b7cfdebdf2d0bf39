package testutil

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/stretchr/testify/require"
)

// Fill values written for missing samples
const (
	FillDouble = 1e36
	FillFloat  = float32(1e36)
)

// Flag bytes used by the SeaDataNet quality-control variables
const (
	QCGood = '1'
	QCBad  = '4'
)

// SurveyFixture describes a synthetic shipboard ADCP survey file laid out like
// the SeaDataNet archive: an INSTANCE dimension of length one, MAXT casts and
// MAXZ depth bins.
type SurveyFixture struct {
	// Times are Julian days; NaN is written as the fill value.
	Times []float64
	// Depths are positive-down bin depths shared by every cast.
	Depths []float64
	Lon    []float64
	Lat    []float64
	// UCUR and VCUR are indexed [cast][bin].
	UCUR [][]float64
	VCUR [][]float64
	// USHIP, VSHIP, BATHY and BOTTOM_DEPTH are per cast.
	USHIP       []float64
	VSHIP       []float64
	Bathy       []float64
	BottomDepth []float64

	// Bad lists [cast, bin] pairs flagged bad in UCUR_SEADATANET_QC.
	Bad [][2]int
	// BadV lists [cast, bin] pairs flagged bad in VCUR_SEADATANET_QC.
	BadV [][2]int
	// BadShip and BadVShip list casts flagged bad in USHIP_SEADATANET_QC and
	// VSHIP_SEADATANET_QC.
	BadShip  []int
	BadVShip []int
	// BadFlags are cycled through for flagged samples. QCBad when empty.
	BadFlags []byte

	XLink     string
	LocalCDI  string
	ShipName  string
	ShipCode  string
	Attrs     map[string]string
	OmitAttrs []string
}

// DefaultSurvey returns a 4-cast, 3-bin survey starting 2018-05-19 12:00 UTC
// with one cast every six hours and every sample flagged good.
func DefaultSurvey() SurveyFixture {
	const jd0 = 2458258.5
	nt, nz := 4, 3
	f := SurveyFixture{
		Depths:      []float64{10, 20, 30},
		Times:       make([]float64, nt),
		Lon:         make([]float64, nt),
		Lat:         make([]float64, nt),
		UCUR:        make([][]float64, nt),
		VCUR:        make([][]float64, nt),
		USHIP:       make([]float64, nt),
		VSHIP:       make([]float64, nt),
		Bathy:       make([]float64, nt),
		BottomDepth: make([]float64, nt),
		XLink:       `<sdn_reference xlink:href="https://cdi.seadatanet.org/report/1234/xml" xlink:role="isDescribedBy" xlink:type="URL"/>`,
		LocalCDI:    "OVIDE2018_OS150",
		ShipName:    "THALASSA",
		ShipCode:    "35HT",
		Attrs: map[string]string{
			"title":             "Shipboard ADCP OS150 OVIDE2018",
			"Conventions":       "CF-1.6 SeaDataNet_1.0",
			"featureType":       "trajectoryProfile",
			"date_update":       "2019-01-15T00:00:00Z",
			"ADCP_frequency":    "150 kHz",
			"ADCP_beam_angle":   "30",
			"ADCP_ship_angle":   "0.5",
			"bin_length":        "8 m",
			"middle_bin1_depth": "18",
			"heading_corr":      "yes",
			"pitch_corr":        "no",
			"ampli_corr":        "1.0",
			"pitch_roll_used":   "no",
			"date_creation":     "2018-06-01T00:00:00Z",
			"ADCP_type":         "OS",
			"data_type":         "vessel mounted ADCP",
			"project":           "OVIDE",
		},
	}
	for t := 0; t < nt; t++ {
		f.Times[t] = jd0 + float64(t)/4
		f.Lon[t] = -20 + float64(t)
		f.Lat[t] = 40 + float64(t)
		f.UCUR[t] = make([]float64, nz)
		f.VCUR[t] = make([]float64, nz)
		for z := 0; z < nz; z++ {
			f.UCUR[t][z] = 0.1 * float64(t+1)
			f.VCUR[t][z] = -0.1 * float64(z+1)
		}
		f.USHIP[t] = 5
		f.VSHIP[t] = -1
		f.Bathy[t] = -3000 - float64(100*t)
		f.BottomDepth[t] = 3000 + float64(100*t)
	}
	return f
}

func orderedMap(t *testing.T, keys []string, values map[string]interface{}) api.AttributeMap {
	t.Helper()
	m, err := util.NewOrderedMap(keys, values)
	require.NoError(t, err)
	return m
}

func fillNaN(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if math.IsNaN(x) {
			x = FillDouble
		}
		out[i] = x
	}
	return out
}

func floatGrid(rows [][]float64) [][]float32 {
	out := make([][]float32, len(rows))
	for i, row := range rows {
		out[i] = make([]float32, len(row))
		for j, x := range row {
			if math.IsNaN(x) {
				out[i][j] = FillFloat
				continue
			}
			out[i][j] = float32(x)
		}
	}
	return out
}

func floatAttrs(t *testing.T, units string) api.AttributeMap {
	return orderedMap(t, []string{"units", "_FillValue", "coordinates"}, map[string]interface{}{
		"units":       units,
		"_FillValue":  FillFloat,
		"coordinates": "TIME LATITUDE LONGITUDE",
	})
}

func qcAttrs(t *testing.T) api.AttributeMap {
	return orderedMap(t, []string{"long_name", "flag_values"}, map[string]interface{}{
		"long_name":   "SeaDataNet quality flag",
		"flag_values": "0123456789ABQ",
	})
}

// WriteSurveyNC writes f to dir/name in NetCDF classic format and returns the
// full path.
func WriteSurveyNC(t *testing.T, dir, name string, f SurveyFixture) string {
	t.Helper()

	path := filepath.Join(dir, name)
	w, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	nt, nz := len(f.Times), len(f.Depths)

	keys := make([]string, 0, len(f.Attrs))
	values := map[string]interface{}{}
	for k, v := range f.Attrs {
		if contains(f.OmitAttrs, k) {
			continue
		}
		keys = append(keys, k)
		values[k] = v
	}
	require.NoError(t, w.AddGlobalAttrs(orderedMap(t, keys, values)))

	cast := []string{"INSTANCE", "MAXT"}
	grid := []string{"INSTANCE", "MAXT", "MAXZ"}

	add := func(name string, v api.Variable) {
		require.NoError(t, w.AddVar(name, v))
	}

	add("TIME", api.Variable{
		Values:     [][]float64{fillNaN(f.Times)},
		Dimensions: cast,
		Attributes: orderedMap(t, []string{"units", "_FillValue"}, map[string]interface{}{
			"units":      "days since -4712-01-01T00:00:00Z",
			"_FillValue": FillDouble,
		}),
	})
	add("LONGITUDE", api.Variable{
		Values:     [][]float64{fillNaN(f.Lon)},
		Dimensions: cast,
		Attributes: orderedMap(t, []string{"units", "_FillValue"}, map[string]interface{}{
			"units": "degrees_east", "_FillValue": FillDouble,
		}),
	})
	add("LATITUDE", api.Variable{
		Values:     [][]float64{fillNaN(f.Lat)},
		Dimensions: cast,
		Attributes: orderedMap(t, []string{"units", "_FillValue"}, map[string]interface{}{
			"units": "degrees_north", "_FillValue": FillDouble,
		}),
	})

	profz := make([][]float64, nt)
	for i := range profz {
		profz[i] = append([]float64(nil), f.Depths...)
	}
	add("PROFZ", api.Variable{
		Values:     [][][]float32{floatGrid(profz)},
		Dimensions: grid,
		Attributes: orderedMap(t, []string{"units", "positive", "_FillValue"}, map[string]interface{}{
			"units": "m", "positive": "down", "_FillValue": FillFloat,
		}),
	})

	for _, v := range []struct {
		name string
		data [][]float64
	}{{"UCUR", f.UCUR}, {"VCUR", f.VCUR}} {
		add(v.name, api.Variable{
			Values:     [][][]float32{floatGrid(v.data)},
			Dimensions: grid,
			Attributes: floatAttrs(t, "m/s"),
		})
	}

	for _, v := range []struct {
		name  string
		data  []float64
		units string
	}{
		{"USHIP", f.USHIP, "m/s"},
		{"VSHIP", f.VSHIP, "m/s"},
		{"BATHY", f.Bathy, "m"},
		{"BOTTOM_DEPTH", f.BottomDepth, "m"},
	} {
		add(v.name, api.Variable{
			Values:     floatGrid([][]float64{v.data}),
			Dimensions: cast,
			Attributes: floatAttrs(t, v.units),
		})
	}

	n := 0
	badFlag := func() byte {
		if len(f.BadFlags) == 0 {
			return QCBad
		}
		b := f.BadFlags[n%len(f.BadFlags)]
		n++
		return b
	}
	gridFlags := func(pairs [][2]int) []string {
		rows := make([][]byte, nt)
		for i := range rows {
			rows[i] = []byte(strings.Repeat(string(rune(QCGood)), nz))
		}
		for _, p := range pairs {
			rows[p[0]][p[1]] = badFlag()
		}
		out := make([]string, nt)
		for i, r := range rows {
			out[i] = string(r)
		}
		return out
	}
	castFlags := func(casts []int) []string {
		row := []byte(strings.Repeat(string(rune(QCGood)), nt))
		for _, i := range casts {
			row[i] = badFlag()
		}
		return []string{string(row)}
	}
	add("UCUR_SEADATANET_QC", api.Variable{Values: [][]string{gridFlags(f.Bad)}, Dimensions: grid, Attributes: qcAttrs(t)})
	add("VCUR_SEADATANET_QC", api.Variable{Values: [][]string{gridFlags(f.BadV)}, Dimensions: grid, Attributes: qcAttrs(t)})
	add("USHIP_SEADATANET_QC", api.Variable{Values: castFlags(f.BadShip), Dimensions: cast, Attributes: qcAttrs(t)})
	add("VSHIP_SEADATANET_QC", api.Variable{Values: castFlags(f.BadVShip), Dimensions: cast, Attributes: qcAttrs(t)})

	add("SDN_CRUISE", api.Variable{
		Values:     []string{"OVIDE2018"},
		Dimensions: []string{"INSTANCE"},
		Attributes: orderedMap(t, []string{"long_name", "shipname", "shipcode"}, map[string]interface{}{
			"long_name": "SeaDataNet cruise name",
			"shipname":  f.ShipName,
			"shipcode":  f.ShipCode,
		}),
	})
	add("SDN_LOCAL_CDI_ID", api.Variable{
		Values:     []string{f.LocalCDI},
		Dimensions: []string{"INSTANCE"},
	})
	add("SDN_XLINK", api.Variable{
		Values:     [][]string{{f.XLink}},
		Dimensions: []string{"INSTANCE", "REFMAX"},
	})

	require.NoError(t, w.Close())
	return path
}

// BathymetryFixture is a regular longitude/latitude elevation grid.
type BathymetryFixture struct {
	Lon []float64
	Lat []float64
	// Z is indexed [lat][lon]; negative below sea level.
	Z [][]float64
}

// DefaultBathymetry returns a 5x4 grid sloping from deep ocean in the west to
// land in the east.
func DefaultBathymetry() BathymetryFixture {
	b := BathymetryFixture{
		Lon: []float64{-22, -21, -20, -19, -18},
		Lat: []float64{39, 40, 41, 42},
	}
	for range b.Lat {
		row := make([]float64, len(b.Lon))
		for i := range row {
			row[i] = -4000 + 1000*float64(i)
		}
		b.Z = append(b.Z, row)
	}
	return b
}

// WriteBathymetryNC writes b to dir/name with lat/lon/z variables.
func WriteBathymetryNC(t *testing.T, dir, name string, b BathymetryFixture) string {
	t.Helper()

	path := filepath.Join(dir, name)
	w, err := cdf.OpenWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.AddVar("lon", api.Variable{Values: b.Lon, Dimensions: []string{"lon"}}))
	require.NoError(t, w.AddVar("lat", api.Variable{Values: b.Lat, Dimensions: []string{"lat"}}))
	require.NoError(t, w.AddVar("z", api.Variable{
		Values:     floatGrid(b.Z),
		Dimensions: []string{"lat", "lon"},
		Attributes: orderedMap(t, []string{"units"}, map[string]interface{}{"units": "m"}),
	}))

	require.NoError(t, w.Close())
	return path
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
