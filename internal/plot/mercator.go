package plot

import (
	"math"

	"gonum.org/v1/plot"
)

// maxMercatorLat keeps the projection finite near the poles.
const maxMercatorLat = 85.0

// MercatorScale maps latitude in degrees onto a Mercator axis.
type MercatorScale struct{}

var _ plot.Normalizer = MercatorScale{}

// Normalize implements plot.Normalizer.
func (MercatorScale) Normalize(min, max, x float64) float64 {
	lo, hi := mercatorY(min), mercatorY(max)
	if hi == lo {
		return 0.5
	}
	return (mercatorY(x) - lo) / (hi - lo)
}

// mercatorY returns the Mercator ordinate of lat.
func mercatorY(lat float64) float64 {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	return math.Log(math.Tan(math.Pi/4 + lat*math.Pi/360))
}
