package dataprocessing

import (
	"math"

	"github.com/skypies/geo"

	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

// FilterBBox masks the casts whose position lies outside the closed box
// spanned by lon and lat. With trim, those casts are removed instead. A cast
// with a missing position is outside every box.
func FilterBBox(ds *dataset.Dataset, lon, lat Range, trim bool) (*dataset.Dataset, error) {
	td, err := timeDim(ds)
	if err != nil {
		return nil, apperrors.NewDataFormatError(VarTime, err)
	}
	lonV, err := positionVar(ds, VarLongitude, td)
	if err != nil {
		return nil, err
	}
	latV, err := positionVar(ds, VarLatitude, td)
	if err != nil {
		return nil, err
	}

	box := geo.Latlong{Lat: lat.Min, Long: lon.Min}.BoxTo(geo.Latlong{Lat: lat.Max, Long: lon.Max})

	keep := make([]bool, len(lonV.Data))
	var inside []int
	for i := range keep {
		x, y := lonV.Data[i], latV.Data[i]
		if math.IsNaN(x) || math.IsNaN(y) {
			continue
		}
		if box.Contains(geo.Latlong{Lat: y, Long: x}) {
			keep[i] = true
			inside = append(inside, i)
		}
	}

	if trim {
		if inside == nil {
			inside = []int{}
		}
		return ds.Take(td, inside)
	}
	return ds.Where(&dataset.Mask{Dims: []string{td}, Shape: []int{len(keep)}, Keep: keep})
}

// SelectDepth keeps the depth levels inside band, in stored order. An empty
// result is a valid dataset with a zero-length depth dimension.
func SelectDepth(ds *dataset.Dataset, band Range) (*dataset.Dataset, error) {
	zv, err := ds.MustVar(VarDepth)
	if err != nil {
		return nil, apperrors.NewDataFormatError(VarDepth, err)
	}
	if len(zv.Dims) != 1 || zv.Kind() != dataset.Float {
		return nil, apperrors.NewDataFormatError(VarDepth, errNotIndex)
	}

	idx := []int{}
	for i, z := range zv.Data {
		if band.Contains(z) {
			idx = append(idx, i)
		}
	}
	return ds.Take(zv.Dims[0], idx)
}

// SliderRange returns the integer bounds offered to a range control for the
// named variable: the rounded extremes widened by one on each side.
func SliderRange(ds *dataset.Dataset, name string) (Range, error) {
	v, err := ds.MustVar(name)
	if err != nil {
		return Range{}, apperrors.NewDataFormatError(name, err)
	}
	lo, hi, ok := v.Range()
	if !ok {
		return Range{}, apperrors.NewDataFormatError(name, errNoValues)
	}
	return Range{Min: math.RoundToEven(lo) - 1, Max: math.RoundToEven(hi) + 1}, nil
}

// Extent returns the smallest box enclosing every present cast position. It
// reports false when no cast has a position.
func Extent(ds *dataset.Dataset) (lon, lat Range, ok bool) {
	lonV, ok1 := ds.Var(VarLongitude)
	latV, ok2 := ds.Var(VarLatitude)
	if !ok1 || !ok2 || len(lonV.Data) != len(latV.Data) {
		return Range{}, Range{}, false
	}

	var box geo.LatlongBox
	for i := range lonV.Data {
		p := geo.Latlong{Lat: latV.Data[i], Long: lonV.Data[i]}
		if math.IsNaN(p.Lat) || math.IsNaN(p.Long) {
			continue
		}
		if !ok {
			box = geo.LatlongBox{SW: p, NE: p}
			ok = true
			continue
		}
		box.Enclose(p)
	}
	if !ok {
		return Range{}, Range{}, false
	}
	return Range{Min: box.SW.Long, Max: box.NE.Long}, Range{Min: box.SW.Lat, Max: box.NE.Lat}, true
}

func positionVar(ds *dataset.Dataset, name, dim string) (*dataset.Variable, error) {
	v, err := ds.MustVar(name)
	if err != nil {
		return nil, apperrors.NewDataFormatError(name, err)
	}
	if len(v.Dims) != 1 || v.Dims[0] != dim || v.Kind() != dataset.Float {
		return nil, apperrors.NewDataFormatError(name, errNotIndex)
	}
	return v, nil
}
