package dataset

import "fmt"

// Mask is a boolean array over named dimensions. True keeps a value.
type Mask struct {
	Dims  []string
	Shape []int
	Keep  []bool
}

// Compare evaluates keep on every element of a float variable. Missing
// elements are passed through as NaN.
func Compare(v *Variable, keep func(float64) bool) (*Mask, error) {
	if v.Kind() != Float {
		return nil, fmt.Errorf("mask: %s variable is not numeric", v.Kind())
	}
	m := &Mask{Dims: cloneStrings(v.Dims), Shape: cloneInts(v.Shape), Keep: make([]bool, len(v.Data))}
	for i, x := range v.Data {
		m.Keep[i] = keep(x)
	}
	return m, nil
}

// Equal keeps the elements of v equal to want.
func Equal(v *Variable, want float64) (*Mask, error) {
	return Compare(v, func(x float64) bool { return x == want })
}

// Count returns the number of kept elements.
func (m *Mask) Count() int {
	n := 0
	for _, k := range m.Keep {
		if k {
			n++
		}
	}
	return n
}

// And combines two masks, broadcasting over the union of their dimensions.
func (m *Mask) And(o *Mask) (*Mask, error) {
	dims, shape := cloneStrings(m.Dims), cloneInts(m.Shape)
	for i, d := range o.Dims {
		j := indexOf(dims, d)
		if j < 0 {
			dims = append(dims, d)
			shape = append(shape, o.Shape[i])
			continue
		}
		if shape[j] != o.Shape[i] {
			return nil, fmt.Errorf("mask: dimension %s has lengths %d and %d", d, shape[j], o.Shape[i])
		}
	}
	a, err := m.variable().BroadcastTo(dims, shape)
	if err != nil {
		return nil, err
	}
	b, err := o.variable().BroadcastTo(dims, shape)
	if err != nil {
		return nil, err
	}
	out := &Mask{Dims: dims, Shape: shape, Keep: make([]bool, len(a.Data))}
	for i := range out.Keep {
		out.Keep[i] = a.Data[i] != 0 && b.Data[i] != 0
	}
	return out, nil
}

// Any reports, for each position along dim, whether any element is kept.
func (m *Mask) Any(dim string) ([]bool, error) {
	axis := indexOf(m.Dims, dim)
	if axis < 0 {
		return nil, fmt.Errorf("mask: no dimension %s", dim)
	}
	v := m.variable()
	outer, n, inner := v.split(axis)
	out := make([]bool, n)
	for o := 0; o < outer; o++ {
		for k := 0; k < n; k++ {
			for i := 0; i < inner; i++ {
				if m.Keep[(o*n+k)*inner+i] {
					out[k] = true
				}
			}
		}
	}
	return out, nil
}

func (m *Mask) variable() *Variable {
	data := make([]float64, len(m.Keep))
	for i, k := range m.Keep {
		if k {
			data[i] = 1
		}
	}
	return NewFloat(m.Dims, m.Shape, data, nil)
}

func indexOf(s []string, x string) int {
	for i, v := range s {
		if v == x {
			return i
		}
	}
	return -1
}
