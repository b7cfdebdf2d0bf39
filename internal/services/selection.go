package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"adcpview/internal/config"
	"adcpview/internal/dataprocessing"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/plot"
)

// Range is a closed filter interval.
type Range = dataprocessing.Range

// Selection is one complete set of viewer controls. It is a value: every
// pipeline run receives its own copy.
type Selection struct {
	// YearFrom and YearTo bound the catalog years offered. Both zero selects
	// every year.
	YearFrom int    `json:"year_from" validate:"gte=0,lte=9999"`
	YearTo   int    `json:"year_to" validate:"gte=0,lte=9999"`
	File     string `json:"file" validate:"omitempty,max=255,excludesall=/\\"`

	Lon Range `json:"lon"`
	Lat Range `json:"lat"`
	// Bands are the three depth bands. The first is always drawn; the
	// others only when enabled.
	Bands [3]plot.Band `json:"bands"`

	Vectors    int     `json:"vectors" validate:"gte=40,lte=800"`
	Scale      float64 `json:"scale" validate:"gte=0.1,lte=1"`
	Bathymetry bool    `json:"bathymetry"`
	Basemap    bool    `json:"basemap"`
}

// DefaultSelection returns the controls shown before any user input.
func DefaultSelection() Selection {
	return Selection{
		Vectors: config.DefaultVectors,
		Scale:   config.DefaultScale,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the control bounds. Filter ranges are not checked here;
// they are clamped to the slider bounds of the loaded file.
func (s Selection) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return apperrors.NewAppValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return apperrors.NewAppValidationError("invalid selection: "+strings.Join(msgs, "; ")).
		WithContext("field", verrs[0].Field())
}

// MapRequest converts the selection into a vector map request.
func (s Selection) MapRequest() plot.MapRequest {
	return plot.MapRequest{
		Lon:        s.Lon,
		Lat:        s.Lat,
		Bands:      s.Bands[:],
		Vectors:    s.Vectors,
		Scale:      s.Scale,
		Bathymetry: s.Bathymetry,
		Basemap:    s.Basemap,
	}
}

// Bounds are the slider bounds of the loaded file.
type Bounds struct {
	Lon   Range `json:"lon"`
	Lat   Range `json:"lat"`
	Depth Range `json:"depth"`
}

// sliderBounds computes the slider bounds of a transformed dataset.
func sliderBounds(ds *dataset.Dataset) (Bounds, error) {
	var b Bounds
	var err error
	if b.Lon, err = dataprocessing.SliderRange(ds, dataprocessing.VarLongitude); err != nil {
		return Bounds{}, err
	}
	if b.Lat, err = dataprocessing.SliderRange(ds, dataprocessing.VarLatitude); err != nil {
		return Bounds{}, err
	}
	if b.Depth, err = dataprocessing.SliderRange(ds, dataprocessing.VarDepth); err != nil {
		return Bounds{}, err
	}
	return b, nil
}

// reset moves every filter range to the slider bounds. Band enable flags
// are kept.
func (s Selection) reset(b Bounds) Selection {
	s.Lon, s.Lat = b.Lon, b.Lat
	for i := range s.Bands {
		s.Bands[i].Range = b.Depth
	}
	return s
}

// clamp limits every filter range to the slider bounds.
func (s Selection) clamp(b Bounds) Selection {
	s.Lon, s.Lat = s.Lon.Clamp(b.Lon), s.Lat.Clamp(b.Lat)
	for i := range s.Bands {
		s.Bands[i].Range = s.Bands[i].Range.Clamp(b.Depth)
	}
	return s
}
