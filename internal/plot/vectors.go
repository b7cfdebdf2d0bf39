package plot

import (
	"fmt"

	"adcpview/internal/dataprocessing"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

// Vectors are depth-averaged currents at cast positions.
type Vectors struct {
	Lon []float64 `json:"lon"`
	Lat []float64 `json:"lat"`
	U   []float64 `json:"u"`
	V   []float64 `json:"v"`
}

// Len is the number of vectors.
func (v Vectors) Len() int {
	return len(v.Lon)
}

// DepthMeanVectors averages UCUR and VCUR over the depth levels inside band,
// skipping missing samples. An empty band yields no vectors.
func DepthMeanVectors(ds *dataset.Dataset, band dataprocessing.Range) (Vectors, error) {
	sel, err := dataprocessing.SelectDepth(ds, band)
	if err != nil {
		return Vectors{}, err
	}
	if n, _ := sel.DimLen(dataprocessing.VarDepth); n == 0 {
		return Vectors{Lon: []float64{}, Lat: []float64{}, U: []float64{}, V: []float64{}}, nil
	}

	u, err := depthMean(sel, dataprocessing.VarU)
	if err != nil {
		return Vectors{}, err
	}
	v, err := depthMean(sel, dataprocessing.VarV)
	if err != nil {
		return Vectors{}, err
	}

	lon, err := sel.MustVar(dataprocessing.VarLongitude)
	if err != nil {
		return Vectors{}, apperrors.NewDataFormatError(dataprocessing.VarLongitude, err)
	}
	lat, err := sel.MustVar(dataprocessing.VarLatitude)
	if err != nil {
		return Vectors{}, apperrors.NewDataFormatError(dataprocessing.VarLatitude, err)
	}
	if len(lon.Data) != len(u) || len(lat.Data) != len(u) {
		return Vectors{}, apperrors.NewDataFormatError(dataprocessing.VarLongitude,
			fmt.Errorf("%d positions for %d profiles", len(lon.Data), len(u)))
	}

	return Vectors{
		Lon: append([]float64(nil), lon.Data...),
		Lat: append([]float64(nil), lat.Data...),
		U:   u,
		V:   v,
	}, nil
}

func depthMean(ds *dataset.Dataset, name string) ([]float64, error) {
	v, err := ds.MustVar(name)
	if err != nil {
		return nil, apperrors.NewDataFormatError(name, err)
	}
	m, err := v.Mean(dataprocessing.VarDepth)
	if err != nil {
		return nil, apperrors.NewDataFormatError(name, err)
	}
	if len(m.Dims) != 1 {
		return nil, apperrors.NewDataFormatError(name, fmt.Errorf("depth mean has dimensions %v", m.Dims))
	}
	return m.Data, nil
}
