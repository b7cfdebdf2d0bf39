package catalog

import (
	"slices"

	apperrors "adcpview/internal/errors"
)

// SummaryDropped are the columns left out of the summary table.
var SummaryDropped = []string{
	ColumnFile,
	"title",
	"Conventions",
	"featureType",
	"date_update",
	"ADCP_beam_angle",
	"ADCP_ship_angle",
	"middle_bin1_depth",
	"heading_corr",
	"pitch_corr",
	"ampli_corr",
	"pitch_roll_used",
	"date_creation",
	"ADCP_type",
	"data_type",
}

// DetailsDropped are the columns left out of the details table.
var DetailsDropped = []string{
	ColumnFile,
	"date_start",
	"date_end",
	"ADCP_frequency(kHz)",
	"bin_length(meter)",
	ColumnYear,
}

// Tables returns the summary and details tables of file. A file catalogued
// in several years is looked up among the entries of [from, to] only, so the
// tables match the row the year filter offered.
func (c *Catalog) Tables(file string, from, to int) (summary, details Table, err error) {
	e, ok := c.FilterYears(from, to).Lookup(file)
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("catalog entry " + file)
	}
	return c.table(e, SummaryDropped), c.table(e, DetailsDropped), nil
}

func (c *Catalog) table(e Entry, drop []string) Table {
	t := Table{}
	for i, col := range c.columns {
		if slices.Contains(drop, col) {
			continue
		}
		t = append(t, Field{Key: col, Value: e.values[i]})
	}
	return t
}
