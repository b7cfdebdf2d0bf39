package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "adcpview/internal/errors"
)

// Required columns
const (
	ColumnFile = "file_name"
	ColumnYear = "year"
)

// Field is one named catalog value.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Table is a transposed key/value view of one catalog row.
type Table []Field

// Entry is one catalog row.
type Entry struct {
	File   string
	Year   int
	values []string
}

// Catalog is an immutable, year-sorted list of entries sharing one header.
type Catalog struct {
	columns []string
	entries []Entry
}

// New builds a catalog from a header and rows. Rows are stably sorted by
// year. Short rows are padded with empty values.
func New(columns []string, rows [][]string) (*Catalog, error) {
	columns = slices.Clone(columns)
	for i, c := range columns {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}
	fileCol := slices.Index(columns, ColumnFile)
	if fileCol < 0 {
		return nil, apperrors.NewDataFormatError(ColumnFile, errors.New("missing catalog column"))
	}
	yearCol := slices.Index(columns, ColumnYear)
	if yearCol < 0 {
		return nil, apperrors.NewDataFormatError(ColumnYear, errors.New("missing catalog column"))
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		values := make([]string, len(columns))
		copy(values, row)

		year, err := parseYear(values[yearCol])
		if err != nil {
			return nil, apperrors.NewDataFormatError(ColumnYear, fmt.Errorf("row %d: %w", i+1, err))
		}
		entries = append(entries, Entry{File: strings.TrimSpace(values[fileCol]), Year: year, values: values})
	}

	sort.SliceStable(entries, func(a, b int) bool { return entries[a].Year < entries[b].Year })
	return &Catalog{columns: columns, entries: entries}, nil
}

// Load reads a catalog from a .csv or .xlsx file.
func Load(ctx context.Context, path string) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".xlsx":
		return loadXLSX(path)
	default:
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("unsupported catalog format %q", filepath.Ext(path)))
	}
}

func loadCSV(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewIOError(path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewDataFormatError(ColumnFile, errors.New("empty catalog"))
		}
		return nil, apperrors.NewDataFormatError(filepath.Base(path), err)
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.NewDataFormatError(filepath.Base(path), err)
	}
	return New(header, rows)
}

func loadXLSX(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewIOError(path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewDataFormatError(filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewDataFormatError(filepath.Base(path), errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.NewDataFormatError(filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewDataFormatError(ColumnFile, errors.New("empty catalog"))
	}
	return New(rows[0], rows[1:])
}

// Columns returns the header.
func (c *Catalog) Columns() []string {
	return slices.Clone(c.columns)
}

// Rows returns every row in catalog order.
func (c *Catalog) Rows() [][]string {
	out := make([][]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = slices.Clone(e.values)
	}
	return out
}

// Len is the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// FilterYears keeps the entries whose year lies in the closed range. The
// bounds may be given in either order.
func (c *Catalog) FilterYears(from, to int) *Catalog {
	if from > to {
		from, to = to, from
	}
	out := &Catalog{columns: c.columns}
	for _, e := range c.entries {
		if e.Year >= from && e.Year <= to {
			out.entries = append(out.entries, e)
		}
	}
	return out
}

// Files lists the distinct file names in first-seen order.
func (c *Catalog) Files() []string {
	seen := map[string]bool{}
	files := []string{}
	for _, e := range c.entries {
		if seen[e.File] {
			continue
		}
		seen[e.File] = true
		files = append(files, e.File)
	}
	return files
}

// YearBounds returns the smallest and largest year. ok is false for an empty
// catalog.
func (c *Catalog) YearBounds() (lo, hi int, ok bool) {
	if len(c.entries) == 0 {
		return 0, 0, false
	}
	return c.entries[0].Year, c.entries[len(c.entries)-1].Year, true
}

// Lookup returns the first entry for file.
func (c *Catalog) Lookup(file string) (Entry, bool) {
	for _, e := range c.entries {
		if e.File == file {
			return e, true
		}
	}
	return Entry{}, false
}

// Get returns the value of column for the entry.
func (c *Catalog) Get(e Entry, column string) (string, bool) {
	i := slices.Index(c.columns, column)
	if i < 0 {
		return "", false
	}
	return e.values[i], true
}

// Resolution is the outcome of narrowing the catalog to a year range.
type Resolution struct {
	Files []string `json:"files"`
	// File is the requested file when still offered, otherwise the first
	// offered file. Empty when nothing is offered.
	File string `json:"file"`
}

// Resolve narrows the catalog to [from, to] and picks the file to show.
func (c *Catalog) Resolve(from, to int, file string) Resolution {
	files := c.FilterYears(from, to).Files()
	res := Resolution{Files: files}
	switch {
	case len(files) == 0:
	case slices.Contains(files, file):
		res.File = file
	default:
		res.File = files[0]
	}
	return res
}

func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return int(f), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
