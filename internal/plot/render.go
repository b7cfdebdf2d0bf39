package plot

import (
	"bytes"
	"fmt"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	apperrors "adcpview/internal/errors"
)

// Default figure sizes
var (
	MapWidth     = 5 * vg.Inch
	MapHeight    = 4 * vg.Inch
	SeriesWidth  = 4 * vg.Inch
	SeriesHeight = 2 * vg.Inch
)

// Formats accepted by Render
const (
	FormatPNG = "png"
	FormatSVG = "svg"
	FormatPDF = "pdf"
)

// ContentType returns the MIME type of a render format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPDF:
		return "application/pdf"
	default:
		return "image/png"
	}
}

// Render draws p at the given size and returns the encoded image.
func Render(p *plot.Plot, w, h vg.Length, format string) ([]byte, error) {
	format = strings.ToLower(format)
	switch format {
	case FormatPNG, FormatSVG, FormatPDF:
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unsupported image format %q", format))
	}

	wt, err := p.WriterTo(w, h, format)
	if err != nil {
		return nil, apperrors.NewRenderError("prepare "+format, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, apperrors.NewRenderError("encode "+format, err)
	}
	return buf.Bytes(), nil
}
