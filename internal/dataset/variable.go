package dataset

import (
	"fmt"
	"math"
	"time"
)

// Kind identifies the element type of a Variable.
type Kind int

const (
	// Float variables hold float64 samples; NaN is missing.
	Float Kind = iota
	// Temporal variables hold instants; the zero time is missing.
	Temporal
	// Text variables hold strings.
	Text
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Temporal:
		return "time"
	case Text:
		return "text"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Variable is a dense row-major array over named dimensions.
type Variable struct {
	Dims  []string
	Shape []int
	Data  []float64
	Times []time.Time
	Text  []string
	Attrs Attrs
}

// NewFloat builds a float variable.
func NewFloat(dims []string, shape []int, data []float64, attrs Attrs) *Variable {
	return &Variable{Dims: dims, Shape: shape, Data: data, Attrs: orEmpty(attrs)}
}

// NewTimes builds a 1-D temporal variable.
func NewTimes(dims []string, times []time.Time, attrs Attrs) *Variable {
	return &Variable{Dims: dims, Shape: []int{len(times)}, Times: times, Attrs: orEmpty(attrs)}
}

// NewText builds a text variable.
func NewText(dims []string, shape []int, text []string, attrs Attrs) *Variable {
	return &Variable{Dims: dims, Shape: shape, Text: text, Attrs: orEmpty(attrs)}
}

func orEmpty(a Attrs) Attrs {
	if a == nil {
		return Attrs{}
	}
	return a
}

// Kind reports the element type.
func (v *Variable) Kind() Kind {
	switch {
	case v.Times != nil:
		return Temporal
	case v.Text != nil:
		return Text
	}
	return Float
}

// Len is the total element count.
func (v *Variable) Len() int {
	return product(v.Shape)
}

// Axis returns the position of dim in v.Dims, or -1.
func (v *Variable) Axis(dim string) int {
	for i, d := range v.Dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// HasDim reports whether v spans dim.
func (v *Variable) HasDim(dim string) bool {
	return v.Axis(dim) >= 0
}

func (v *Variable) storedLen() int {
	switch v.Kind() {
	case Temporal:
		return len(v.Times)
	case Text:
		return len(v.Text)
	}
	return len(v.Data)
}

// Range returns the smallest and largest non-missing float values.
func (v *Variable) Range() (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v.Data {
		if math.IsNaN(x) {
			continue
		}
		ok = true
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if !ok {
		return math.NaN(), math.NaN(), false
	}
	return lo, hi, true
}

// withLayout returns an empty variable of the same kind and attributes.
func (v *Variable) withLayout(dims []string, shape []int) *Variable {
	out := &Variable{Dims: dims, Shape: shape, Attrs: v.Attrs}
	n := product(shape)
	switch v.Kind() {
	case Temporal:
		out.Times = make([]time.Time, n)
	case Text:
		out.Text = make([]string, n)
	default:
		out.Data = make([]float64, n)
	}
	return out
}

// gather builds a variable whose element i is v's element src[i].
func (v *Variable) gather(dims []string, shape []int, src []int) *Variable {
	out := v.withLayout(dims, shape)
	switch v.Kind() {
	case Temporal:
		for i, s := range src {
			out.Times[i] = v.Times[s]
		}
	case Text:
		for i, s := range src {
			out.Text[i] = v.Text[s]
		}
	default:
		for i, s := range src {
			out.Data[i] = v.Data[s]
		}
	}
	return out
}

// Isel selects a single index along dim, dropping that dimension.
func (v *Variable) Isel(dim string, index int) (*Variable, error) {
	axis := v.Axis(dim)
	if axis < 0 {
		return nil, fmt.Errorf("isel: variable has no dimension %s", dim)
	}
	if index < 0 || index >= v.Shape[axis] {
		return nil, fmt.Errorf("isel: index %d out of range for %s of length %d", index, dim, v.Shape[axis])
	}
	out, err := v.Take(dim, []int{index})
	if err != nil {
		return nil, err
	}
	return out.dropAxis(axis), nil
}

// Take gathers the listed positions along dim, keeping the dimension.
func (v *Variable) Take(dim string, idx []int) (*Variable, error) {
	axis := v.Axis(dim)
	if axis < 0 {
		return nil, fmt.Errorf("take: variable has no dimension %s", dim)
	}
	outer, n, inner := v.split(axis)
	for _, k := range idx {
		if k < 0 || k >= n {
			return nil, fmt.Errorf("take: index %d out of range for %s of length %d", k, dim, n)
		}
	}
	shape := cloneInts(v.Shape)
	shape[axis] = len(idx)
	src := make([]int, 0, outer*len(idx)*inner)
	for o := 0; o < outer; o++ {
		for _, k := range idx {
			base := (o*n + k) * inner
			for i := 0; i < inner; i++ {
				src = append(src, base+i)
			}
		}
	}
	return v.gather(cloneStrings(v.Dims), shape, src), nil
}

// BroadcastTo expands v onto dims/shape. Every dimension of v must appear in
// dims with the same length.
func (v *Variable) BroadcastTo(dims []string, shape []int) (*Variable, error) {
	step := make([]int, len(dims))
	srcStrides := strides(v.Shape)
	seen := 0
	for i, d := range dims {
		j := v.Axis(d)
		if j < 0 {
			continue
		}
		if v.Shape[j] != shape[i] {
			return nil, fmt.Errorf("broadcast: dimension %s has length %d, want %d", d, v.Shape[j], shape[i])
		}
		step[i] = srcStrides[j]
		seen++
	}
	if seen != len(v.Dims) {
		return nil, fmt.Errorf("broadcast: dimensions %v do not cover %v", dims, v.Dims)
	}
	return v.gather(cloneStrings(dims), cloneInts(shape), walk(shape, step)), nil
}

// Reduce collapses dim with fn applied to each lane of float values.
func (v *Variable) Reduce(dim string, fn func([]float64) float64) (*Variable, error) {
	if v.Kind() != Float {
		return nil, fmt.Errorf("reduce: %s variable is not numeric", v.Kind())
	}
	axis := v.Axis(dim)
	if axis < 0 {
		return nil, fmt.Errorf("reduce: variable has no dimension %s", dim)
	}
	outer, n, inner := v.split(axis)
	out := make([]float64, outer*inner)
	lane := make([]float64, n)
	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			for k := 0; k < n; k++ {
				lane[k] = v.Data[(o*n+k)*inner+i]
			}
			out[o*inner+i] = fn(lane)
		}
	}
	dims := append(cloneStrings(v.Dims[:axis]), v.Dims[axis+1:]...)
	shape := append(cloneInts(v.Shape[:axis]), v.Shape[axis+1:]...)
	return NewFloat(dims, shape, out, v.Attrs), nil
}

// Mean averages over dim, skipping missing values.
func (v *Variable) Mean(dim string) (*Variable, error) {
	return v.Reduce(dim, NanMean)
}

// Max takes the maximum over dim, skipping missing values.
func (v *Variable) Max(dim string) (*Variable, error) {
	return v.Reduce(dim, NanMax)
}

// Scale multiplies every float value by f.
func (v *Variable) Scale(f float64) *Variable {
	out := v.withLayout(cloneStrings(v.Dims), cloneInts(v.Shape))
	for i, x := range v.Data {
		out.Data[i] = x * f
	}
	return out
}

func (v *Variable) dropAxis(axis int) *Variable {
	v.Dims = append(v.Dims[:axis:axis], v.Dims[axis+1:]...)
	v.Shape = append(v.Shape[:axis:axis], v.Shape[axis+1:]...)
	return v
}

// split returns the element counts before, along and after axis.
func (v *Variable) split(axis int) (outer, n, inner int) {
	return product(v.Shape[:axis]), v.Shape[axis], product(v.Shape[axis+1:])
}

// NanMean is the mean of the non-NaN values, or NaN when there are none.
func NanMean(xs []float64) float64 {
	var sum float64
	var n int
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		sum += x
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// NanMax is the maximum of the non-NaN values, or NaN when there are none.
func NanMax(xs []float64) float64 {
	m := math.NaN()
	for _, x := range xs {
		if math.IsNaN(x) {
			continue
		}
		if math.IsNaN(m) || x > m {
			m = x
		}
	}
	return m
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

func strides(shape []int) []int {
	out := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = s
		s *= shape[i]
	}
	return out
}

// walk enumerates shape in row-major order and returns the source offset of
// each position given a per-axis source step.
func walk(shape, step []int) []int {
	n := product(shape)
	src := make([]int, n)
	idx := make([]int, len(shape))
	off := 0
	for flat := 0; flat < n; flat++ {
		src[flat] = off
		for a := len(shape) - 1; a >= 0; a-- {
			idx[a]++
			off += step[a]
			if idx[a] < shape[a] {
				break
			}
			off -= step[a] * shape[a]
			idx[a] = 0
		}
	}
	return src
}

func cloneInts(s []int) []int {
	return append([]int(nil), s...)
}

func cloneStrings(s []string) []string {
	return append([]string(nil), s...)
}
