package archive

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
)

// Attribute names consumed by decoding and removed from the decoded attrs.
const (
	attrFillValue    = "_FillValue"
	attrMissingValue = "missing_value"
	attrScaleFactor  = "scale_factor"
	attrAddOffset    = "add_offset"
	attrCoordinates  = "coordinates"
	attrFlagValues   = "flag_values"
)

// decodeGroup converts every variable of g into a Dataset.
func decodeGroup(g api.Group) (*dataset.Dataset, error) {
	b := dataset.NewBuilder().Attrs(convertAttrs(g.Attributes()))

	declared := map[string]int{}
	coords := map[string]bool{}
	var names []string
	vars := map[string]*dataset.Variable{}

	for _, name := range g.ListVariables() {
		raw, err := g.GetVariable(name)
		if err != nil {
			return nil, apperrors.NewDataFormatError(name, err)
		}

		v, err := decodeVariable(name, raw)
		if err != nil {
			return nil, err
		}

		for i, d := range v.Dims {
			if n, ok := declared[d]; ok {
				if n != v.Shape[i] {
					return nil, apperrors.NewDataFormatError(name,
						fmt.Errorf("dimension %s has length %d, previously %d", d, v.Shape[i], n))
				}
				continue
			}
			declared[d] = v.Shape[i]
			b.Dim(d, v.Shape[i])
		}

		if c, ok := raw.Attributes.Get(attrCoordinates); ok {
			if s, ok := c.(string); ok {
				for _, cn := range strings.Fields(s) {
					coords[cn] = true
				}
			}
		}
		if len(v.Dims) == 1 && v.Dims[0] == name {
			coords[name] = true
		}

		names = append(names, name)
		vars[name] = v
	}

	for _, name := range names {
		if coords[name] {
			b.Coord(name, vars[name])
		} else {
			b.Var(name, vars[name])
		}
	}

	ds, err := b.Build()
	if err != nil {
		return nil, apperrors.NewDataFormatError("dataset", err)
	}
	return ds, nil
}

// decodeVariable flattens a reader variable into a dataset.Variable.
func decodeVariable(name string, raw *api.Variable) (*dataset.Variable, error) {
	attrs := convertAttrs(raw.Attributes)
	rv := reflect.ValueOf(raw.Values)
	if !rv.IsValid() {
		return nil, apperrors.NewDataFormatError(name, fmt.Errorf("no values"))
	}

	shape := shapeOf(rv)
	if isText(rv) {
		text := make([]string, 0, product(shape))
		flattenText(rv, &text)
		if isFlagVariable(name, attrs) {
			return decodeFlags(name, raw.Dimensions, shape, text, attrs)
		}
		return decodeText(name, raw.Dimensions, shape, text, attrs)
	}

	if len(raw.Dimensions) != len(shape) {
		return nil, apperrors.NewDataFormatError(name,
			fmt.Errorf("%d dimensions for values of rank %d", len(raw.Dimensions), len(shape)))
	}

	data := make([]float64, 0, product(shape))
	if err := flattenNumbers(rv, &data); err != nil {
		return nil, apperrors.NewDataFormatError(name, err)
	}
	applyPacking(data, attrs)

	return dataset.NewFloat(append([]string(nil), raw.Dimensions...), shape, data, attrs), nil
}

// decodeFlags expands character flags into their byte codes over every
// dimension, the innermost included.
func decodeFlags(name string, dims []string, shape []int, text []string, attrs dataset.Attrs) (*dataset.Variable, error) {
	if len(dims) != len(shape)+1 {
		return nil, apperrors.NewDataFormatError(name,
			fmt.Errorf("%d dimensions for character flags of rank %d", len(dims), len(shape)+1))
	}
	width := 0
	for _, s := range text {
		if len(s) > width {
			width = len(s)
		}
	}
	data := make([]float64, 0, len(text)*width)
	for _, s := range text {
		for i := 0; i < width; i++ {
			if i >= len(s) || s[i] == 0 {
				data = append(data, math.NaN())
				continue
			}
			data = append(data, float64(s[i]))
		}
	}
	full := append(append([]int(nil), shape...), width)
	delete(attrs, attrFillValue)
	return dataset.NewFloat(append([]string(nil), dims...), full, data, attrs), nil
}

// decodeText trims padding from character arrays; the innermost dimension is
// the string length and is dropped.
func decodeText(name string, dims []string, shape []int, text []string, attrs dataset.Attrs) (*dataset.Variable, error) {
	if len(dims) == 0 {
		dims = nil
	} else if len(dims) == len(shape)+1 {
		dims = dims[:len(dims)-1]
	} else {
		return nil, apperrors.NewDataFormatError(name,
			fmt.Errorf("%d dimensions for text of rank %d", len(dims), len(shape)))
	}
	for i, s := range text {
		text[i] = strings.TrimRight(s, "\x00 ")
	}
	return dataset.NewText(append([]string(nil), dims...), shape, text, attrs), nil
}

func isFlagVariable(name string, attrs dataset.Attrs) bool {
	if strings.HasSuffix(name, "_QC") {
		return true
	}
	_, ok := attrs[attrFlagValues]
	return ok
}

// applyPacking maps fill values to NaN, then unpacks scale_factor and
// add_offset. The consumed attributes are removed.
func applyPacking(data []float64, attrs dataset.Attrs) {
	var fills []float64
	for _, key := range []string{attrFillValue, attrMissingValue} {
		if f, ok := attrs.Float(key); ok {
			fills = append(fills, f)
		}
		delete(attrs, key)
	}

	scale, hasScale := attrs.Float(attrScaleFactor)
	offset, hasOffset := attrs.Float(attrAddOffset)
	delete(attrs, attrScaleFactor)
	delete(attrs, attrAddOffset)

	for i, x := range data {
		for _, f := range fills {
			if x == f {
				x = math.NaN()
				break
			}
		}
		if hasScale {
			x *= scale
		}
		if hasOffset {
			x += offset
		}
		data[i] = x
	}
}

func convertAttrs(am api.AttributeMap) dataset.Attrs {
	out := dataset.Attrs{}
	if am == nil {
		return out
	}
	for _, k := range am.Keys() {
		if k == attrCoordinates {
			continue
		}
		v, _ := am.Get(k)
		if s, ok := v.(string); ok {
			v = strings.TrimRight(s, "\x00")
		}
		out[k] = v
	}
	return out
}

// shapeOf reports the nested slice lengths of rv. Strings are leaves.
func shapeOf(rv reflect.Value) []int {
	var shape []int
	for {
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			shape = append(shape, rv.Len())
			if rv.Len() == 0 {
				return shape
			}
			rv = rv.Index(0)
		default:
			return shape
		}
	}
}

func isText(rv reflect.Value) bool {
	t := rv.Type()
	for t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = t.Elem()
	}
	return t.Kind() == reflect.String
}

func flattenText(rv reflect.Value, out *[]string) {
	if rv.Kind() == reflect.String {
		*out = append(*out, rv.String())
		return
	}
	for i := 0; i < rv.Len(); i++ {
		flattenText(rv.Index(i), out)
	}
}

func flattenNumbers(rv reflect.Value, out *[]float64) error {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := flattenNumbers(rv.Index(i), out); err != nil {
				return err
			}
		}
	case reflect.Float32, reflect.Float64:
		*out = append(*out, rv.Float())
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		*out = append(*out, float64(rv.Int()))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		*out = append(*out, float64(rv.Uint()))
	default:
		return fmt.Errorf("unsupported element type %s", rv.Type())
	}
	return nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
