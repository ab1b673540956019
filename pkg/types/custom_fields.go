package types

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format for custom date values and response timestamps.
const DateLayout = "2006-01-02T15:04:05.000Z"

// CustomFields carries extensible typed attributes for products and events.
// Empty groups are omitted from the wire form.
type CustomFields struct {
	Numeric []NumericField `json:"numeric,omitempty" yaml:"numeric,omitempty"`
	String  []StringField  `json:"string,omitempty" yaml:"string,omitempty"`
	Date    []DateField    `json:"date,omitempty" yaml:"date,omitempty"`
}

// IsEmpty reports whether no group holds any field
func (c CustomFields) IsEmpty() bool {
	return len(c.Numeric) == 0 && len(c.String) == 0 && len(c.Date) == 0
}

// NumericField is a custom field with numeric values
type NumericField struct {
	Key    string    `json:"key" yaml:"key"`
	Values []float64 `json:"values" yaml:"values"`
}

// StringField is a custom field with string values
type StringField struct {
	Key    string   `json:"key" yaml:"key"`
	Values []string `json:"values" yaml:"values"`
}

// DateField is a custom field with date values, sent as UTC ISO-8601 strings
type DateField struct {
	Key    string      `json:"key" yaml:"key"`
	Values []time.Time `json:"values" yaml:"values"`
}

// MarshalJSON writes nil values as an empty list so that a nil and an empty
// field serialize identically.
func (n NumericField) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key    string    `json:"key"`
		Values []float64 `json:"values"`
	}{Key: n.Key, Values: nonNilFloats(n.Values)})
}

// MarshalJSON writes nil values as an empty list.
func (f StringField) MarshalJSON() ([]byte, error) {
	values := f.Values
	if values == nil {
		values = []string{}
	}
	return json.Marshal(struct {
		Key    string   `json:"key"`
		Values []string `json:"values"`
	}{Key: f.Key, Values: values})
}

func (d DateField) MarshalJSON() ([]byte, error) {
	values := make([]string, len(d.Values))
	for i, v := range d.Values {
		values[i] = v.UTC().Format(DateLayout)
	}
	return json.Marshal(struct {
		Key    string   `json:"key"`
		Values []string `json:"values"`
	}{Key: d.Key, Values: values})
}

func (d *DateField) UnmarshalJSON(data []byte) error {
	var raw struct {
		Key    string   `json:"key"`
		Values []string `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Key = raw.Key
	d.Values = parseDates(raw.Values)
	return nil
}

// CustomFieldsFromMap builds CustomFields from a loosely typed map of the form
// {"numeric": [{"key": k, "values": [...]}], "string": [...], "date": [...]}.
// Entries without a string key are skipped, as are unparseable dates.
func CustomFieldsFromMap(m map[string]interface{}) CustomFields {
	var fields CustomFields

	for _, entry := range entries(m["numeric"]) {
		key, ok := entry["key"].(string)
		if !ok {
			continue
		}
		var values []float64
		for _, v := range list(entry["values"]) {
			if n, ok := toFloat(v); ok {
				values = append(values, n)
			}
		}
		fields.Numeric = append(fields.Numeric, NumericField{Key: key, Values: nonNilFloats(values)})
	}

	for _, entry := range entries(m["string"]) {
		key, ok := entry["key"].(string)
		if !ok {
			continue
		}
		var values []string
		for _, v := range list(entry["values"]) {
			if s, ok := v.(string); ok {
				values = append(values, s)
			}
		}
		if values == nil {
			values = []string{}
		}
		fields.String = append(fields.String, StringField{Key: key, Values: values})
	}

	for _, entry := range entries(m["date"]) {
		key, ok := entry["key"].(string)
		if !ok {
			continue
		}
		var raw []string
		for _, v := range list(entry["values"]) {
			if s, ok := v.(string); ok {
				raw = append(raw, s)
			}
		}
		if dates := parseDates(raw); len(dates) > 0 {
			fields.Date = append(fields.Date, DateField{Key: key, Values: dates})
		}
	}

	return fields
}

func parseDates(raw []string) []time.Time {
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		t, err := time.Parse(DateLayout, s)
		if err != nil {
			continue
		}
		dates = append(dates, t)
	}
	return dates
}

func entries(v interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	for _, item := range list(v) {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func list(v interface{}) []interface{} {
	switch l := v.(type) {
	case []interface{}:
		return l
	case []map[string]interface{}:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	case []string:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	case []float64:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	default:
		return nil
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func nonNilFloats(v []float64) []float64 {
	if v == nil {
		return []float64{}
	}
	return v
}
