package metadata

import (
	"bytes"
	"encoding/json"
	"slices"

	"adcpview/internal/catalog"
	"adcpview/internal/dataset"
)

// Record keys, in output order.
const (
	KeyFilename              = "filename"
	KeyShipName              = "shipname"
	KeyShipCode              = "shipcode"
	KeyDateStart             = "date_start"
	KeyDateEnd               = "date_end"
	KeyFrequencyKHz          = "adcp_frequency(KiloHz)"
	KeyBinLengthMeter        = "bin_length(meter)"
	KeyYear                  = "year"
	KeyPrincipalInvestigator = "principal_investigator"
	KeyProject               = "project"
	KeyUserInterfaceURL      = "user_interface_url"
	KeyLocalCDIID            = "LOCAL_CDI_ID"
)

const (
	attrADCPFrequency = "ADCP_frequency"
	attrBinLength     = "bin_length"
)

// CopiedAttributes are the global attributes carried into the record as-is.
var CopiedAttributes = []string{
	"title",
	"Conventions",
	"featureType",
	"date_update",
	attrADCPFrequency,
	"ADCP_beam_angle",
	"ADCP_ship_angle",
	attrBinLength,
	"middle_bin1_depth",
	"heading_corr",
	"pitch_corr",
	"ampli_corr",
	"pitch_roll_used",
	"date_creation",
	"ADCP_type",
	"data_type",
}

// catalogAliases renames record keys to their catalog column names.
var catalogAliases = map[string]string{
	KeyFilename:     catalog.ColumnFile,
	KeyFrequencyKHz: "ADCP_frequency(kHz)",
}

// Field is one record entry. A null Value marks an absent attribute.
type Field struct {
	Key   string
	Value dataset.Value
}

// Record is an ordered set of metadata fields.
type Record struct {
	fields []Field
}

func (r *Record) set(key string, v dataset.Value) {
	for i := range r.fields {
		if r.fields[i].Key == key {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Key: key, Value: v})
}

// Fields returns the entries in order.
func (r *Record) Fields() []Field {
	return slices.Clone(r.fields)
}

// Keys returns the keys in order.
func (r *Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value for key, or null.
func (r *Record) Get(key string) dataset.Value {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value
		}
	}
	return dataset.Null
}

// String returns the formatted value for key; null formats as "".
func (r *Record) String(key string) string {
	return r.Get(key).String()
}

// Table returns the record as key/value rows with null shown as an empty
// string.
func (r *Record) Table() catalog.Table {
	t := make(catalog.Table, len(r.fields))
	for i, f := range r.fields {
		t[i] = catalog.Field{Key: f.Key, Value: f.Value.String()}
	}
	return t
}

// CatalogRow returns the record as a catalog header and row.
func (r *Record) CatalogRow() (columns, values []string) {
	for _, f := range r.fields {
		key := f.Key
		if alias, ok := catalogAliases[key]; ok {
			key = alias
		}
		columns = append(columns, key)
		values = append(values, f.Value.String())
	}
	return columns, values
}

// MarshalJSON encodes the record as an object with keys in record order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
