package model

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// The field types have the same members as the model types but none of
// their methods, so they encode and decode with the default rules.
type (
	recordFields   WellRecord
	datasetFields  Dataset
	wellLogFields  WellLog
	constantFields Constant
)

var (
	recordKeys   = memberNames(reflect.TypeOf(WellRecord{}))
	datasetKeys  = memberNames(reflect.TypeOf(Dataset{}))
	wellLogKeys  = memberNames(reflect.TypeOf(WellLog{}))
	constantKeys = memberNames(reflect.TypeOf(Constant{}))
)

func (r *WellRecord) UnmarshalJSON(data []byte) error {
	extra, err := decodeMembers(data, (*recordFields)(r), recordKeys)
	if err != nil {
		return err
	}
	r.Extra = extra
	return nil
}

func (r WellRecord) MarshalJSON() ([]byte, error) {
	return encodeMembers(recordFields(r), r.Extra)
}

func (d *Dataset) UnmarshalJSON(data []byte) error {
	extra, err := decodeMembers(data, (*datasetFields)(d), datasetKeys)
	if err != nil {
		return err
	}
	d.Extra = extra
	return nil
}

func (d Dataset) MarshalJSON() ([]byte, error) {
	return encodeMembers(datasetFields(d), d.Extra)
}

func (l *WellLog) UnmarshalJSON(data []byte) error {
	extra, err := decodeMembers(data, (*wellLogFields)(l), wellLogKeys)
	if err != nil {
		return err
	}
	l.Extra = extra
	return nil
}

func (l WellLog) MarshalJSON() ([]byte, error) {
	return encodeMembers(wellLogFields(l), l.Extra)
}

func (c *Constant) UnmarshalJSON(data []byte) error {
	extra, err := decodeMembers(data, (*constantFields)(c), constantKeys)
	if err != nil {
		return err
	}
	c.Extra = extra
	return nil
}

func (c Constant) MarshalJSON() ([]byte, error) {
	return encodeMembers(constantFields(c), c.Extra)
}

// memberNames returns the lower-cased JSON member names of struct type t.
func memberNames(t reflect.Type) map[string]struct{} {
	names := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names[strings.ToLower(name)] = struct{}{}
	}
	return names
}

// decodeMembers decodes data into v and returns the members that v does not
// define. Member names match case-insensitively, as in encoding/json.
func decodeMembers(data []byte, v any, known map[string]struct{}) (map[string]json.RawMessage, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for k := range raw {
		if _, ok := known[strings.ToLower(k)]; ok {
			delete(raw, k)
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// encodeMembers encodes v, a struct, and appends the extra members in key
// order.
func encodeMembers(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	first := len(data) == 2
	for _, k := range keys {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val := extra[k]
		if len(val) == 0 {
			val = json.RawMessage("null")
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
