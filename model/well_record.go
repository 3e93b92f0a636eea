package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FileExt is the extension of a serialized well record.
const FileExt = ".ptrc"

// WellsDir is the directory, directly under a project directory, that holds
// the project's well files.
const WellsDir = "10-WELLS"

// ErrNoName is returned when a well record does not carry a well name.
var ErrNoName = errors.New("well record has no name")

// WellRecord is the canonical document describing one well. It is stored as
// one JSON file per well.
type WellRecord struct {
	// Name is the well name. It is also the base name of the well file.
	Name string `json:"name"`
	// WellType is the kind of well, such as "Dev".
	WellType string `json:"well_type,omitempty"`
	// DateCreated is the creation timestamp as written by the importer.
	DateCreated string `json:"date_created,omitempty"`
	// Datasets is the ordered list of datasets in the well.
	Datasets []Dataset `json:"datasets"`
	// Metadata is free-form well metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
	// Extra holds members of the document this type does not define. They
	// are written back unchanged after the known members.
	Extra map[string]json.RawMessage `json:"-"`
}

// Dataset is a named, typed group of logs and constants that share one depth
// index within a well.
type Dataset struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	WellName    string         `json:"wellname,omitempty"`
	IndexName   string         `json:"index_name,omitempty"`
	IndexLog    []any          `json:"index_log"`
	WellLogs    []WellLog      `json:"well_logs"`
	Constants   []Constant     `json:"constants"`
	DateCreated string         `json:"date_created,omitempty"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// WellLog is one curve within a dataset.
type WellLog struct {
	Name          string `json:"name"`
	Date          string `json:"date,omitempty"`
	Description   string `json:"description,omitempty"`
	Interpolation string `json:"interpolation,omitempty"`
	LogType       string `json:"log_type,omitempty"`
	Values        []any  `json:"log"`
	// Dataset tags the dataset the log was sourced from.
	Dataset string `json:"dtst,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Constant is a named scalar value within a dataset.
type Constant struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Tag   string `json:"tag,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Decode parses a serialized well record.
func Decode(data []byte) (*WellRecord, error) {
	var rec WellRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("cannot decode well record: %w", err)
	}
	return &rec, nil
}

// Encode serializes the well record in the indented form used on disk.
func (r *WellRecord) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Validate checks that the record can be stored.
func (r *WellRecord) Validate() error {
	if r == nil || strings.TrimSpace(r.Name) == "" {
		return ErrNoName
	}
	if strings.ContainsAny(r.Name, `/\`) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("invalid well name %q", r.Name)
	}
	return nil
}

// FileName returns the base name of the file that stores the record.
func (r *WellRecord) FileName() string {
	return r.Name + FileExt
}

// Clone returns a deep copy of the record. Records handed out by the cache
// are shared, so callers must clone before modifying one.
func (r *WellRecord) Clone() *WellRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Metadata = cloneMap(r.Metadata)
	c.Extra = cloneRaw(r.Extra)
	if r.Datasets != nil {
		c.Datasets = make([]Dataset, len(r.Datasets))
		for i := range r.Datasets {
			c.Datasets[i] = r.Datasets[i].clone()
		}
	}
	return &c
}

// Dataset returns the named dataset, or nil if there is none.
func (r *WellRecord) Dataset(name string) *Dataset {
	for i := range r.Datasets {
		if r.Datasets[i].Name == name {
			return &r.Datasets[i]
		}
	}
	return nil
}

// UpsertDataset replaces the dataset with the same name, or appends it if the
// well has no such dataset. It returns true if the dataset was added.
func (r *WellRecord) UpsertDataset(ds Dataset) bool {
	if ds.WellName == "" {
		ds.WellName = r.Name
	}
	if existing := r.Dataset(ds.Name); existing != nil {
		*existing = ds
		return false
	}
	r.Datasets = append(r.Datasets, ds)
	return true
}

// RemoveDataset removes the named dataset and reports whether it existed.
func (r *WellRecord) RemoveDataset(name string) bool {
	for i := range r.Datasets {
		if r.Datasets[i].Name == name {
			r.Datasets = append(r.Datasets[:i], r.Datasets[i+1:]...)
			return true
		}
	}
	return false
}

// UpsertLog replaces the log with the same name or appends it. It returns
// true if the log was added.
func (d *Dataset) UpsertLog(l WellLog) bool {
	if l.Dataset == "" {
		l.Dataset = d.Name
	}
	for i := range d.WellLogs {
		if d.WellLogs[i].Name == l.Name {
			d.WellLogs[i] = l
			return false
		}
	}
	d.WellLogs = append(d.WellLogs, l)
	return true
}

// UpsertConstant replaces the constant with the same name or appends it. It
// returns true if the constant was added.
func (d *Dataset) UpsertConstant(c Constant) bool {
	for i := range d.Constants {
		if d.Constants[i].Name == c.Name {
			d.Constants[i] = c
			return false
		}
	}
	d.Constants = append(d.Constants, c)
	return true
}

func (d *Dataset) clone() Dataset {
	c := *d
	c.IndexLog = cloneSlice(d.IndexLog)
	c.Metadata = cloneMap(d.Metadata)
	c.Extra = cloneRaw(d.Extra)
	if d.WellLogs != nil {
		c.WellLogs = make([]WellLog, len(d.WellLogs))
		for i, l := range d.WellLogs {
			l.Values = cloneSlice(l.Values)
			l.Extra = cloneRaw(l.Extra)
			c.WellLogs[i] = l
		}
	}
	if d.Constants != nil {
		c.Constants = make([]Constant, len(d.Constants))
		for i, k := range d.Constants {
			k.Value = cloneValue(k.Value)
			k.Extra = cloneRaw(k.Extra)
			c.Constants[i] = k
		}
	}
	return c
}

func cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	c := make([]any, len(s))
	for i, v := range s {
		c[i] = cloneValue(v)
	}
	return c
}

func cloneRaw(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	c := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		c[k] = append(json.RawMessage(nil), v...)
	}
	return c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = cloneValue(v)
	}
	return c
}

// cloneValue copies the composite values produced by decoding JSON into an
// any. Scalars are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		return cloneSlice(t)
	case map[string]any:
		return cloneMap(t)
	default:
		return v
	}
}
