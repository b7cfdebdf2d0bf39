package dataprocessing

import (
	"fmt"

	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

// Downsample averages consecutive casts so that roughly n remain. The block
// size is max(1, T/n); a trailing partial block is dropped. Positions are
// averaged like the data and stay coordinates.
func Downsample(ds *dataset.Dataset, n int) (*dataset.Dataset, error) {
	if n < 1 {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("sample count %d must be positive", n))
	}
	td, err := timeDim(ds)
	if err != nil {
		return nil, apperrors.NewDataFormatError(VarTime, err)
	}
	total, _ := ds.DimLen(td)

	factor := DownsampleFactor(total, n)
	if factor == 1 {
		return ds, nil
	}

	out, err := ds.ResetCoords(VarLongitude, VarLatitude).Coarsen(td, factor)
	if err != nil {
		return nil, err
	}
	return out.SetCoords(VarLongitude, VarLatitude), nil
}

// DownsampleFactor returns the block size Downsample uses for total casts.
func DownsampleFactor(total, n int) int {
	if n < 1 {
		return 1
	}
	return max(1, total/n)
}
