// Package dataprocessing turns raw shipboard ADCP survey datasets into the
// filtered, time-indexed datasets the viewer plots.
//
// # Pipeline
//
// Transformer.Transform runs the fixed stage sequence on a raw dataset:
//
//  1. squeeze unit-length dimensions
//  2. reference depth: PROFZ of the first cast, negated, as a 1-D coordinate
//  3. quality control: every sample whose UCUR, VCUR, USHIP or VSHIP flag is
//     not "good" (49) becomes missing; shape is preserved
//  4. keep TIME, USHIP, VSHIP, BATHY, BOTTOM_DEPTH, UCUR, VCUR and the
//     coordinates
//  5. FixTime: fill missing TIME entries from the nearest valid cast and
//     convert Julian days to instants
//  6. re-key the depth dimension by PROFZ
//
// Each stage is traced and timed through OpenTelemetry. Writing the result is
// opt-in through TransformOptions.Persist and a Sink.
//
// # Filters
//
// FilterBBox, SelectDepth and Downsample derive views of a transformed
// dataset. None of them fail on an empty selection; they return an empty
// dataset instead. SliderRange computes widget bounds for a coordinate.
//
// All functions return new datasets; inputs are never modified.
package dataprocessing
