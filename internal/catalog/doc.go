// Package catalog loads the survey catalog: one row of metadata per survey
// file, read from CSV or XLSX and kept sorted by year.
//
// The catalog drives file selection in the viewer. FilterYears narrows it to
// a year range, Files lists the selectable file names and Resolve applies the
// default-to-first-file rule when the current file falls out of range. Tables
// splits a file's row into the short summary and the detailed metadata table.
package catalog
