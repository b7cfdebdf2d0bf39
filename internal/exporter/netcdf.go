package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"golang.org/x/crypto/blake2b"

	"adcpview/internal/config"
	"adcpview/internal/dataset"
	apperrors "adcpview/internal/errors"
	"adcpview/internal/files"
)

// TimeUnits is the units attribute written for decoded time variables.
const TimeUnits = "seconds since 1970-01-01T00:00:00Z"

// NetCDFSink persists transformed surveys as NetCDF classic files under the
// transformed-output directory and records a BLAKE2b-256 digest of every
// file written in MANIFEST.
type NetCDFSink struct {
	files  *files.Manager
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewNetCDFSink creates a sink writing below paths.TransformedDir.
func NewNetCDFSink(paths *config.Paths, logger *slog.Logger) *NetCDFSink {
	return &NetCDFSink{
		files:  files.NewManager(paths),
		logger: logger.With(slog.String("component", "netcdf_sink")),
		now:    time.Now,
	}
}

// Write encodes ds and stores it as name, replacing any previous output.
func (s *NetCDFSink) Write(ctx context.Context, name string, ds *dataset.Dataset) error {
	if name == "" || filepath.Base(name) != name || name == config.ManifestFileName {
		return apperrors.NewAppValidationError(fmt.Sprintf("invalid output name %q", name))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeNetCDF(ds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	full, err := s.files.WriteFileAtomic("transformed/"+name, data)
	if err != nil {
		return apperrors.NewStorageError("write "+name, err)
	}

	sum := blake2b.Sum256(data)
	line := fmt.Sprintf("%x  %s  %s", sum, name, s.now().UTC().Format(time.RFC3339))
	if err := s.files.AppendLine("transformed/"+config.ManifestFileName, line); err != nil {
		return apperrors.NewStorageError("update manifest", err)
	}

	s.logger.InfoContext(ctx, "transformed survey written",
		slog.String("file", name),
		slog.String("path", full),
		slog.Int("size_bytes", len(data)),
		slog.String("blake2b", fmt.Sprintf("%x", sum[:8])))
	return nil
}

// EncodeNetCDF returns ds as a NetCDF classic file. Decoded times are stored
// as seconds since the Unix epoch. Empty variables are left out.
func EncodeNetCDF(ds *dataset.Dataset) ([]byte, error) {
	dir, err := os.MkdirTemp("", "adcpview-nc-*")
	if err != nil {
		return nil, apperrors.NewStorageError("create scratch directory", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "out.nc")
	w, err := cdf.OpenWriter(path)
	if err != nil {
		return nil, apperrors.NewStorageError("open netcdf writer", err)
	}

	if err := writeDataset(w, ds); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.NewStorageError("close netcdf writer", err)
	}
	return os.ReadFile(path)
}

func writeDataset(w *cdf.CDFWriter, ds *dataset.Dataset) error {
	global, err := attributeMap(ds.Attrs(), nil)
	if err != nil {
		return apperrors.NewDataFormatError("global attributes", err)
	}
	if err := w.AddGlobalAttrs(global); err != nil {
		return apperrors.NewDataFormatError("global attributes", err)
	}

	for _, name := range ds.Names() {
		v, _ := ds.Var(name)
		values, extra, ok := encodeValues(v)
		if !ok {
			continue
		}
		if !ds.IsCoord(name) {
			if c := auxCoordinates(ds, name, v); c != "" {
				extra["coordinates"] = c
			}
		}
		attrs, err := attributeMap(v.Attrs, extra)
		if err != nil {
			return apperrors.NewDataFormatError(name, err)
		}
		if err := w.AddVar(name, api.Variable{
			Values:     values,
			Dimensions: append([]string(nil), v.Dims...),
			Attributes: attrs,
		}); err != nil {
			return apperrors.NewDataFormatError(name, err)
		}
	}
	return nil
}

// encodeValues converts v into the nested slices the writer expects.
func encodeValues(v *dataset.Variable) (values any, extra map[string]any, ok bool) {
	extra = map[string]any{}
	switch v.Kind() {
	case dataset.Temporal:
		if len(v.Times) == 0 {
			return nil, nil, false
		}
		secs := make([]float64, len(v.Times))
		for i, t := range v.Times {
			secs[i] = math.NaN()
			if !t.IsZero() {
				secs[i] = float64(t.UnixNano()) / 1e9
			}
		}
		extra["units"] = TimeUnits
		extra["standard_name"] = "time"
		return secs, extra, true

	case dataset.Text:
		if len(v.Shape) != 1 || len(v.Text) == 0 {
			return nil, nil, false
		}
		longest := 0
		for _, s := range v.Text {
			longest = max(longest, len(s))
		}
		if longest == 0 {
			return nil, nil, false
		}
		return append([]string(nil), v.Text...), extra, true
	}

	n := 1
	for _, d := range v.Shape {
		n *= d
	}
	if n == 0 {
		return nil, nil, false
	}
	if len(v.Shape) == 0 {
		return v.Data[0], extra, true
	}
	return nest(v.Data, v.Shape).Interface(), extra, true
}

// nest reshapes row-major data into nested float64 slices.
func nest(data []float64, shape []int) reflect.Value {
	if len(shape) == 1 {
		return reflect.ValueOf(append([]float64(nil), data...))
	}
	step := len(data) / shape[0]
	rows := make([]reflect.Value, shape[0])
	for i := range rows {
		rows[i] = nest(data[i*step:(i+1)*step], shape[1:])
	}
	out := reflect.MakeSlice(reflect.SliceOf(rows[0].Type()), 0, shape[0])
	return reflect.Append(out, rows...)
}

// auxCoordinates lists the non-dimension coordinates laid out along the
// dimensions of v.
func auxCoordinates(ds *dataset.Dataset, name string, v *dataset.Variable) string {
	var names []string
	for _, c := range ds.Coords() {
		cv, _ := ds.Var(c)
		if len(cv.Dims) == 1 && cv.Dims[0] == c {
			continue
		}
		shared := len(cv.Dims) > 0
		for _, d := range cv.Dims {
			if !v.HasDim(d) {
				shared = false
			}
		}
		if shared && c != name {
			names = append(names, c)
		}
	}
	return strings.Join(names, " ")
}

// attributeMap converts attrs to writer attributes. Values the classic
// format cannot hold are written as text; empty strings are skipped.
func attributeMap(attrs dataset.Attrs, extra map[string]any) (api.AttributeMap, error) {
	merged := attrs.Clone()
	for k, v := range extra {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	values := map[string]any{}
	for _, k := range merged.Keys() {
		v, ok := attributeValue(merged[k])
		if !ok {
			continue
		}
		keys = append(keys, k)
		values[k] = v
	}
	return util.NewOrderedMap(keys, values)
}

func attributeValue(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return x, x != ""
	case float64, float32, int32, int16, int8,
		[]float64, []float32, []int32, []int16, []int8:
		return x, true
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
		return float64(x), true
	case int64:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
		return float64(x), true
	case uint8:
		return int16(x), true
	case uint16:
		return int32(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case bool:
		if x {
			return int8(1), true
		}
		return int8(0), true
	}
	s := fmt.Sprint(v)
	return s, s != ""
}
