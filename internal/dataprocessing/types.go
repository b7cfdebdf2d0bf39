package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"adcpview/internal/dataset"
)

// Variable names of the SeaDataNet ADCP layout
const (
	VarTime        = "TIME"
	VarLongitude   = "LONGITUDE"
	VarLatitude    = "LATITUDE"
	VarDepth       = "PROFZ"
	VarU           = "UCUR"
	VarV           = "VCUR"
	VarUShip       = "USHIP"
	VarVShip       = "VSHIP"
	VarBathy       = "BATHY"
	VarBottomDepth = "BOTTOM_DEPTH"
)

// QCVariables are the flag variables that must all read "good" for a sample
// to be kept.
var QCVariables = []string{
	"UCUR_SEADATANET_QC",
	"VCUR_SEADATANET_QC",
	"USHIP_SEADATANET_QC",
	"VSHIP_SEADATANET_QC",
}

// KeptVariables is the allow-list Transform selects. TIME ends up as the
// time coordinate, the rest as data variables.
var KeptVariables = []string{
	VarTime,
	VarUShip, VarVShip, VarBathy, VarBottomDepth,
	VarU, VarV,
}

// Range is a closed interval. Min may exceed Max; every consumer orders the
// bounds first.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewRange builds a Range.
func NewRange(lo, hi float64) Range {
	return Range{Min: lo, Max: hi}
}

// Ordered returns r with Min <= Max.
func (r Range) Ordered() Range {
	if r.Min > r.Max {
		return Range{Min: r.Max, Max: r.Min}
	}
	return r
}

// Contains reports whether x lies in the closed interval. NaN is never
// contained.
func (r Range) Contains(x float64) bool {
	o := r.Ordered()
	return x >= o.Min && x <= o.Max
}

// Clamp limits r to bounds.
func (r Range) Clamp(bounds Range) Range {
	b := bounds.Ordered()
	o := r.Ordered()
	return Range{
		Min: math.Min(math.Max(o.Min, b.Min), b.Max),
		Max: math.Max(math.Min(o.Max, b.Max), b.Min),
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Sink receives transformed datasets keyed by their source file name.
type Sink interface {
	Write(ctx context.Context, name string, ds *dataset.Dataset) error
}

// TransformOptions controls the side effects of Transform.
type TransformOptions struct {
	// Name is the source file name; it keys the persisted output.
	Name string
	// Persist writes the result to Sink.
	Persist bool
	Sink    Sink
}

// timeDim returns the dimension TIME runs along.
func timeDim(ds *dataset.Dataset) (string, error) {
	tv, ok := ds.Var(VarTime)
	if !ok || len(tv.Dims) != 1 {
		return "", fmt.Errorf("%s must be a 1-D variable", VarTime)
	}
	return tv.Dims[0], nil
}

var (
	errNotIndex = errors.New("expected a 1-D numeric variable")
	errNoValues = errors.New("no values present")
)
