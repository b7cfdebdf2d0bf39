// Package archive reads shipboard ADCP survey files and bathymetry grids from
// disk into dataset.Dataset values.
//
// Files are NetCDF classic (CDF-1/2/5) or NetCDF-4 and are decoded with the
// pure-Go reader from github.com/batchatco/go-native-netcdf. Decoding follows
// the CF conventions the SeaDataNet archive relies on:
//
//   - _FillValue and missing_value samples become NaN
//   - scale_factor and add_offset are applied
//   - character arrays become text, except quality-control flag arrays which
//     become numeric flag codes (0 marks an unwritten flag and becomes NaN)
//   - variables named in a coordinates attribute, and variables named after
//     their only dimension, become coordinates
//
// A Store hands out Handles. A Handle owns the open file until Close.
package archive
