package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"adcpview/internal/metadata"
)

// Sheet names of exported workbooks
const (
	MetadataSheet = "metadata"
	CatalogSheet  = "catalog"
)

// WriteMetadataXLSX writes a metadata record as a two-column key/value sheet.
// Numeric values stay numeric; absent values leave the cell empty.
func WriteMetadataXLSX(out io.Writer, rec *metadata.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", MetadataSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeHeader(f, MetadataSheet, TableHeaders); err != nil {
		return err
	}
	for i, field := range rec.Fields() {
		row := []interface{}{field.Key, cellValue(field.Value)}
		if err := f.SetSheetRow(MetadataSheet, cellName(1, i+2), &row); err != nil {
			return fmt.Errorf("failed to write %s: %w", field.Key, err)
		}
	}
	if err := f.SetColWidth(MetadataSheet, "A", "A", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(MetadataSheet, "B", "B", 60); err != nil {
		return err
	}

	return f.Write(out)
}

// WriteCatalogXLSX writes a catalog table to the first sheet of a workbook,
// the layout catalog.Load reads back.
func WriteCatalogXLSX(out io.Writer, columns []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CatalogSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeHeader(f, CatalogSheet, columns); err != nil {
		return err
	}
	for i, r := range rows {
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		if err := f.SetSheetRow(CatalogSheet, cellName(1, i+2), &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return f.Write(out)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	if len(headers) == 0 {
		return nil
	}
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	return f.SetCellStyle(sheet, "A1", cellName(len(headers), 1), style)
}

// cellName returns the A1 reference of a 1-based column and row
func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
