package dataprocessing

import (
	"errors"
	"math"
	"time"

	"adcpview/internal/calendar"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

var errNoTimes = errors.New("every time value is missing")

// FixTime fills gaps in TIME with the nearest present value along the cast
// dimension and converts the Julian days to instants. Ties go to the earlier
// cast. A TIME that already holds instants is returned unchanged.
func FixTime(ds *dataset.Dataset) (*dataset.Dataset, error) {
	tv, err := ds.MustVar(VarTime)
	if err != nil {
		return nil, apperrors.NewDataFormatError(VarTime, err)
	}
	if tv.Kind() == dataset.Temporal {
		return ds, nil
	}
	if len(tv.Dims) != 1 || tv.Kind() != dataset.Float {
		return nil, apperrors.NewDataFormatError(VarTime, errNotIndex)
	}

	filled, ok := nearestFill(tv.Data)
	if !ok {
		return nil, apperrors.NewDataFormatError(VarTime, errNoTimes)
	}

	times := make([]time.Time, len(filled))
	for i, jd := range filled {
		times[i] = calendar.ToDateTime(jd).Time()
	}

	attrs := tv.Attrs.Clone()
	delete(attrs, "units")
	out, err := ds.Assign(VarTime, dataset.NewTimes(tv.Dims, times, attrs))
	if err != nil {
		return nil, apperrors.NewDataFormatError(VarTime, err)
	}
	return out, nil
}

// nearestFill replaces every NaN with the closest non-NaN value by index.
// It reports false when no value is present.
func nearestFill(xs []float64) ([]float64, bool) {
	var present []int
	for i, x := range xs {
		if !math.IsNaN(x) {
			present = append(present, i)
		}
	}
	if len(present) == 0 {
		return nil, len(xs) == 0
	}

	out := make([]float64, len(xs))
	j := 0
	for i := range xs {
		for j+1 < len(present) && present[j+1] <= i {
			j++
		}
		best := present[j]
		if best < i && j+1 < len(present) && present[j+1]-i < i-best {
			best = present[j+1]
		}
		out[i] = xs[best]
	}
	return out, true
}
