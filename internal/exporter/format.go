package exporter

import (
	"adcpview/internal/catalog"
	"adcpview/internal/dataset"
)

// cellValue returns the value stored in a spreadsheet cell. Numbers stay
// numeric; absent values leave the cell empty.
func cellValue(v dataset.Value) any {
	if !v.Valid() {
		return nil
	}
	switch x := v.Any().(type) {
	case float64, float32, int, int8, int16, int32, int64:
		return x
	}
	return v.String()
}

// tableRecords turns a key/value table into two-column records
func tableRecords(t catalog.Table) [][]string {
	records := make([][]string, 0, len(t))
	for _, f := range t {
		records = append(records, []string{f.Key, f.Value})
	}
	return records
}
