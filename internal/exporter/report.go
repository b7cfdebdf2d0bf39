package exporter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	apperrors "adcpview/internal/errors"
	"adcpview/internal/metadata"
)

// Report page layout in millimetres
const (
	reportMargin   = 15.0
	reportKeyWidth = 55.0
	reportRowH     = 5.0
	reportMapWidth = 180.0
)

// Report writes a PDF summary of a survey: its metadata table and, when
// mapPNG is not empty, the vector map on a second page.
func Report(out io.Writer, rec *metadata.Record, mapPNG []byte) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := "ADCP survey"
	if name := rec.String(metadata.KeyFilename); name != "" {
		title = fmt.Sprintf("ADCP survey %s", name)
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("adcpview", true)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	if start, end := rec.String(metadata.KeyDateStart), rec.String(metadata.KeyDateEnd); start != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s to %s", start, end)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 8)
	for _, f := range rec.Table() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(reportKeyWidth, reportRowH, tr(f.Key), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.MultiCell(0, reportRowH, tr(f.Value), "1", "L", false)
	}

	if len(mapPNG) > 0 {
		pdf.AddPage()
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("vector-map", opts, bytes.NewReader(mapPNG))
		pdf.ImageOptions("vector-map", reportMargin, reportMargin, reportMapWidth, 0, false, opts, 0, "")
	}

	if err := pdf.Output(out); err != nil {
		return apperrors.NewRenderError("write survey report", err)
	}
	return nil
}
