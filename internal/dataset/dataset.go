package dataset

import (
	"errors"
	"fmt"
)

// ErrNoVariable is returned when a named variable is absent.
var ErrNoVariable = errors.New("no such variable")

// Dim is a named dimension and its length.
type Dim struct {
	Name string `json:"name"`
	Len  int    `json:"len"`
}

// Dataset is an immutable collection of variables over shared dimensions.
type Dataset struct {
	dims   []Dim
	order  []string
	vars   map[string]*Variable
	coords map[string]bool
	attrs  Attrs
}

// Dims returns the dimensions in declaration order.
func (ds *Dataset) Dims() []Dim {
	return append([]Dim(nil), ds.dims...)
}

// DimLen returns the length of the named dimension.
func (ds *Dataset) DimLen(name string) (int, bool) {
	for _, d := range ds.dims {
		if d.Name == name {
			return d.Len, true
		}
	}
	return 0, false
}

// Attrs returns a copy of the global attributes.
func (ds *Dataset) Attrs() Attrs {
	return ds.attrs.Clone()
}

// Names lists every variable, coordinates included, in insertion order.
func (ds *Dataset) Names() []string {
	return cloneStrings(ds.order)
}

// DataVars lists the non-coordinate variables in insertion order.
func (ds *Dataset) DataVars() []string {
	var out []string
	for _, n := range ds.order {
		if !ds.coords[n] {
			out = append(out, n)
		}
	}
	return out
}

// Coords lists the coordinate variables in insertion order.
func (ds *Dataset) Coords() []string {
	var out []string
	for _, n := range ds.order {
		if ds.coords[n] {
			out = append(out, n)
		}
	}
	return out
}

// IsCoord reports whether name is a coordinate.
func (ds *Dataset) IsCoord(name string) bool {
	return ds.coords[name]
}

// Var returns the named variable.
func (ds *Dataset) Var(name string) (*Variable, bool) {
	v, ok := ds.vars[name]
	return v, ok
}

// MustVar returns the named variable or an error wrapping ErrNoVariable.
func (ds *Dataset) MustVar(name string) (*Variable, error) {
	v, ok := ds.vars[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoVariable)
	}
	return v, nil
}

// Empty reports whether any dimension has zero length.
func (ds *Dataset) Empty() bool {
	for _, d := range ds.dims {
		if d.Len == 0 {
			return true
		}
	}
	return false
}

func (ds *Dataset) clone() *Dataset {
	out := &Dataset{
		dims:   append([]Dim(nil), ds.dims...),
		order:  cloneStrings(ds.order),
		vars:   make(map[string]*Variable, len(ds.vars)),
		coords: make(map[string]bool, len(ds.coords)),
		attrs:  ds.attrs,
	}
	for k, v := range ds.vars {
		out.vars[k] = v
	}
	for k, v := range ds.coords {
		out.coords[k] = v
	}
	return out
}

func (ds *Dataset) check(name string, v *Variable) error {
	if len(v.Dims) != len(v.Shape) {
		return fmt.Errorf("variable %s: %d dims but %d shape entries", name, len(v.Dims), len(v.Shape))
	}
	for i, d := range v.Dims {
		n, ok := ds.DimLen(d)
		if !ok {
			return fmt.Errorf("variable %s: undeclared dimension %s", name, d)
		}
		if n != v.Shape[i] {
			return fmt.Errorf("variable %s: dimension %s has length %d, want %d", name, d, v.Shape[i], n)
		}
	}
	if got, want := v.storedLen(), v.Len(); got != want {
		return fmt.Errorf("variable %s: %d values for shape %v", name, got, v.Shape)
	}
	return nil
}

func (ds *Dataset) put(name string, v *Variable, coord bool) {
	if _, exists := ds.vars[name]; !exists {
		ds.order = append(ds.order, name)
	}
	ds.vars[name] = v
	ds.coords[name] = coord
}

// Builder assembles a Dataset and validates it on Build.
type Builder struct {
	ds  *Dataset
	err error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{ds: &Dataset{
		vars:   make(map[string]*Variable),
		coords: make(map[string]bool),
		attrs:  Attrs{},
	}}
}

// Dim declares a dimension.
func (b *Builder) Dim(name string, n int) *Builder {
	if _, ok := b.ds.DimLen(name); ok {
		b.fail(fmt.Errorf("dimension %s declared twice", name))
		return b
	}
	b.ds.dims = append(b.ds.dims, Dim{Name: name, Len: n})
	return b
}

// Var adds a data variable.
func (b *Builder) Var(name string, v *Variable) *Builder {
	b.add(name, v, false)
	return b
}

// Coord adds a coordinate variable.
func (b *Builder) Coord(name string, v *Variable) *Builder {
	b.add(name, v, true)
	return b
}

// Attrs sets the global attributes.
func (b *Builder) Attrs(a Attrs) *Builder {
	b.ds.attrs = orEmpty(a)
	return b
}

func (b *Builder) add(name string, v *Variable, coord bool) {
	if err := b.ds.check(name, v); err != nil {
		b.fail(err)
		return
	}
	b.ds.put(name, v, coord)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build returns the assembled Dataset or the first error recorded.
func (b *Builder) Build() (*Dataset, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.ds, nil
}
