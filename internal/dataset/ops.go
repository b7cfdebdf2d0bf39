package dataset

import (
	"fmt"
	"math"
	"time"
)

// Squeeze removes every dimension of length one.
func (ds *Dataset) Squeeze() *Dataset {
	out := ds.clone()
	unit := map[string]bool{}
	out.dims = out.dims[:0]
	for _, d := range ds.dims {
		if d.Len == 1 {
			unit[d.Name] = true
			continue
		}
		out.dims = append(out.dims, d)
	}
	if len(unit) == 0 {
		return out
	}
	for name, v := range ds.vars {
		if !spansAny(v, unit) {
			continue
		}
		nv := *v
		nv.Dims, nv.Shape = nil, nil
		for i, d := range v.Dims {
			if unit[d] {
				continue
			}
			nv.Dims = append(nv.Dims, d)
			nv.Shape = append(nv.Shape, v.Shape[i])
		}
		out.vars[name] = &nv
	}
	return out
}

func spansAny(v *Variable, dims map[string]bool) bool {
	for _, d := range v.Dims {
		if dims[d] {
			return true
		}
	}
	return false
}

// Assign adds or replaces a variable. A replaced coordinate stays a
// coordinate.
func (ds *Dataset) Assign(name string, v *Variable) (*Dataset, error) {
	if err := ds.check(name, v); err != nil {
		return nil, err
	}
	out := ds.clone()
	out.put(name, v, ds.coords[name])
	return out, nil
}

// AssignCoord adds or replaces a coordinate variable.
func (ds *Dataset) AssignCoord(name string, v *Variable) (*Dataset, error) {
	if err := ds.check(name, v); err != nil {
		return nil, err
	}
	out := ds.clone()
	out.put(name, v, true)
	return out, nil
}

// SetCoords marks existing variables as coordinates. Unknown names are
// ignored.
func (ds *Dataset) SetCoords(names ...string) *Dataset {
	return ds.markCoords(names, true)
}

// ResetCoords turns coordinates back into data variables.
func (ds *Dataset) ResetCoords(names ...string) *Dataset {
	return ds.markCoords(names, false)
}

func (ds *Dataset) markCoords(names []string, coord bool) *Dataset {
	out := ds.clone()
	for _, n := range names {
		if _, ok := out.vars[n]; ok {
			out.coords[n] = coord
		}
	}
	return out
}

// WithAttrs returns a copy carrying the given global attributes.
func (ds *Dataset) WithAttrs(a Attrs) *Dataset {
	out := ds.clone()
	out.attrs = orEmpty(a)
	return out
}

// Select keeps the named variables plus every coordinate, then drops
// dimensions nothing refers to.
func (ds *Dataset) Select(names ...string) (*Dataset, error) {
	keep := map[string]bool{}
	for _, n := range names {
		if _, ok := ds.vars[n]; !ok {
			return nil, fmt.Errorf("select %s: %w", n, ErrNoVariable)
		}
		keep[n] = true
	}
	out := ds.clone()
	out.order = out.order[:0]
	for _, n := range ds.order {
		if keep[n] || ds.coords[n] {
			out.order = append(out.order, n)
			continue
		}
		delete(out.vars, n)
		delete(out.coords, n)
	}
	out.prune()
	return out, nil
}

// Drop removes the named variables. Unknown names are ignored.
func (ds *Dataset) Drop(names ...string) *Dataset {
	out := ds.clone()
	for _, n := range names {
		delete(out.vars, n)
		delete(out.coords, n)
	}
	out.order = out.order[:0]
	for _, n := range ds.order {
		if _, ok := out.vars[n]; ok {
			out.order = append(out.order, n)
		}
	}
	return out
}

func (ds *Dataset) prune() {
	used := map[string]bool{}
	for _, v := range ds.vars {
		for _, d := range v.Dims {
			used[d] = true
		}
	}
	dims := ds.dims[:0:0]
	for _, d := range ds.dims {
		if used[d.Name] {
			dims = append(dims, d)
		}
	}
	ds.dims = dims
}

// Where replaces every data value outside the mask with a missing value.
// Data variables are broadcast onto the mask's dimensions first, so shape is
// preserved and nothing is dropped. Coordinates and text variables are left
// untouched.
func (ds *Dataset) Where(m *Mask) (*Dataset, error) {
	for i, d := range m.Dims {
		n, ok := ds.DimLen(d)
		if !ok || n != m.Shape[i] {
			return nil, fmt.Errorf("where: mask dimension %s does not match dataset", d)
		}
	}
	mv := m.variable()
	out := ds.clone()
	for _, name := range ds.order {
		v := ds.vars[name]
		if ds.coords[name] || v.Kind() == Text {
			continue
		}
		dims, shape := cloneStrings(v.Dims), cloneInts(v.Shape)
		for i, d := range m.Dims {
			if !v.HasDim(d) {
				dims = append(dims, d)
				shape = append(shape, m.Shape[i])
			}
		}
		bv, err := v.BroadcastTo(dims, shape)
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", name, err)
		}
		bm, err := mv.BroadcastTo(dims, shape)
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", name, err)
		}
		for i, keep := range bm.Data {
			if keep != 0 {
				continue
			}
			if bv.Kind() == Temporal {
				bv.Times[i] = time.Time{}
			} else {
				bv.Data[i] = math.NaN()
			}
		}
		out.vars[name] = bv
	}
	return out, nil
}

// Take keeps the listed positions along dim in every variable that spans it.
func (ds *Dataset) Take(dim string, idx []int) (*Dataset, error) {
	if _, ok := ds.DimLen(dim); !ok {
		return nil, fmt.Errorf("take: no dimension %s", dim)
	}
	out := ds.clone()
	for i, d := range out.dims {
		if d.Name == dim {
			out.dims[i].Len = len(idx)
		}
	}
	for name, v := range ds.vars {
		if !v.HasDim(dim) {
			continue
		}
		nv, err := v.Take(dim, idx)
		if err != nil {
			return nil, fmt.Errorf("take %s: %w", name, err)
		}
		out.vars[name] = nv
	}
	return out, nil
}

// SwapDim renames dimension old to the name of an existing 1-D variable on
// old, making that variable the index coordinate of the dimension.
func (ds *Dataset) SwapDim(old, coord string) (*Dataset, error) {
	cv, ok := ds.vars[coord]
	if !ok {
		return nil, fmt.Errorf("swap %s: %w", coord, ErrNoVariable)
	}
	if len(cv.Dims) != 1 || cv.Dims[0] != old {
		return nil, fmt.Errorf("swap: %s must be 1-D along %s, has %v", coord, old, cv.Dims)
	}
	if _, exists := ds.DimLen(coord); exists {
		return nil, fmt.Errorf("swap: dimension %s already exists", coord)
	}
	out := ds.clone()
	for i, d := range out.dims {
		if d.Name == old {
			out.dims[i].Name = coord
		}
	}
	for name, v := range ds.vars {
		if !v.HasDim(old) {
			continue
		}
		nv := *v
		nv.Dims = cloneStrings(v.Dims)
		nv.Dims[v.Axis(old)] = coord
		out.vars[name] = &nv
	}
	out.coords[coord] = true
	return out, nil
}

// Coarsen groups consecutive positions along dim into blocks of factor and
// reduces each block: floats by NaN-skipping mean, instants by the mean
// instant, text by the first element. A trailing partial block is trimmed.
// Coordinates on dim are reduced the same way.
func (ds *Dataset) Coarsen(dim string, factor int) (*Dataset, error) {
	n, ok := ds.DimLen(dim)
	if !ok {
		return nil, fmt.Errorf("coarsen: no dimension %s", dim)
	}
	if factor < 1 {
		return nil, fmt.Errorf("coarsen: factor %d must be positive", factor)
	}
	blocks := n / factor
	out := ds.clone()
	for i, d := range out.dims {
		if d.Name == dim {
			out.dims[i].Len = blocks
		}
	}
	for name, v := range ds.vars {
		if !v.HasDim(dim) {
			continue
		}
		out.vars[name] = v.coarsen(v.Axis(dim), factor, blocks)
	}
	return out, nil
}

func (v *Variable) coarsen(axis, factor, blocks int) *Variable {
	outer, n, inner := v.split(axis)
	shape := cloneInts(v.Shape)
	shape[axis] = blocks
	out := v.withLayout(cloneStrings(v.Dims), shape)
	lane := make([]float64, factor)
	times := make([]time.Time, factor)
	for o := 0; o < outer; o++ {
		for b := 0; b < blocks; b++ {
			for i := 0; i < inner; i++ {
				dst := (o*blocks+b)*inner + i
				start := (o*n+b*factor)*inner + i
				switch v.Kind() {
				case Temporal:
					for k := range times {
						times[k] = v.Times[start+k*inner]
					}
					out.Times[dst] = meanTime(times)
				case Text:
					out.Text[dst] = v.Text[start]
				default:
					for k := range lane {
						lane[k] = v.Data[start+k*inner]
					}
					out.Data[dst] = NanMean(lane)
				}
			}
		}
	}
	return out
}

func meanTime(ts []time.Time) time.Time {
	var base time.Time
	var sum time.Duration
	var n int
	for _, t := range ts {
		if t.IsZero() {
			continue
		}
		if n == 0 {
			base = t
		}
		sum += t.Sub(base)
		n++
	}
	if n == 0 {
		return time.Time{}
	}
	return base.Add(sum / time.Duration(n))
}
