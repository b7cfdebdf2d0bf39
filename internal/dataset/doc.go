// Package dataset is the in-memory model for ADCP profile datasets.
//
// A Dataset is an ordered collection of named dimensions and variables plus
// a coordinate set and global attributes. Variables are dense row-major
// arrays of one of three kinds: float samples (NaN marks a missing value),
// instants (the zero time.Time marks a missing value) or text.
//
// Datasets and the variables they hold are immutable once built. Every
// operation returns a new Dataset that may share untouched variables with its
// input, so callers must never write into a Variable obtained from a Dataset.
//
// Example usage:
//
//	ds, err := dataset.NewBuilder().
//		Dim("TIME", 3).
//		Coord("TIME", dataset.NewTimes([]string{"TIME"}, times, nil)).
//		Var("USHIP", dataset.NewFloat([]string{"TIME"}, []int{3}, speeds, nil)).
//		Build()
package dataset
