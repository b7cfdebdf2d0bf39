// Package exporter writes survey data and metadata out of the viewer.
//
// This package contains four main components:
//
// NetCDFSink: persists transformed surveys as NetCDF classic files and keeps a
// MANIFEST of BLAKE2b-256 digests next to them.
//
// CSVWriter: Core CSV writing functionality with support for headers, streaming,
// and UTF-8 BOM for Excel compatibility. Catalog and metadata tables use it.
//
// WriteMetadataXLSX and WriteCatalogXLSX: spreadsheet exports.
//
// Report: a PDF summary of one survey with its vector map.
//
// Example usage:
//
//	sink := exporter.NewNetCDFSink(paths, logger)
//	err := sink.Write(ctx, "survey.nc", transformed)
//
//	writer := exporter.NewCSVWriter(paths)
//	err = writer.WriteTable("survey_metadata.csv", record.Table())
package exporter
