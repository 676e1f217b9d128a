// Package registry implements the declarative field registry (C11): a
// YAML-loaded mapping from logical field names to physical
// (table, column, adjustable) triples, extensible without code changes
// to the query composer.
package registry

import (
	"os"

	"gopkg.in/yaml.v3"

	"krxdb/model"
)

// Entry is one field's physical mapping. Adjustable is true only for
// price fields that the loader rescales by the cumulative multiplier
// when a caller asks for adjusted values.
type Entry struct {
	Table      string `yaml:"table"`
	Column     string `yaml:"column"`
	Adjustable bool   `yaml:"adjustable"`
	Derived    bool   `yaml:"derived"`
}

// Registry resolves logical field names to their physical location.
type Registry struct {
	entries map[string]Entry
	order   []string
}

type fileFormat struct {
	Fields map[string]Entry `yaml:"fields"`
}

// Load reads the field registry YAML file at path. A malformed file
// is a ConfigError, matching C12's "malformed registry or field
// mapping" classification.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Message: err.Error()}
	}

	var doc fileFormat
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigError{Path: path, Message: "invalid registry yaml: " + err.Error()}
	}
	if len(doc.Fields) == 0 {
		return nil, &model.ConfigError{Path: path, Message: "registry defines no fields"}
	}

	r := &Registry{entries: make(map[string]Entry, len(doc.Fields))}
	for name, entry := range doc.Fields {
		if entry.Table == "" || entry.Column == "" {
			return nil, &model.ConfigError{Path: path, Message: "field " + name + " is missing table or column"}
		}
		r.entries[name] = entry
		r.order = append(r.order, name)
	}
	return r, nil
}

// Default returns the registry built into the loader for the
// standard snapshot schema, used when no registry path is configured.
func Default() *Registry {
	r := &Registry{entries: map[string]Entry{
		"close":             {Table: "snapshots", Column: "tdd_clsprc", Adjustable: true},
		"base_price":        {Table: "snapshots", Column: "bas_prc", Adjustable: true},
		"price_change":      {Table: "snapshots", Column: "cmpprevdd_prc", Adjustable: true},
		"volume":            {Table: "snapshots", Column: "acc_trdvol", Adjustable: false},
		"value":             {Table: "snapshots", Column: "acc_trdval", Adjustable: false},
		"name":              {Table: "snapshots", Column: "isu_abbrv", Adjustable: false},
		"market":            {Table: "snapshots", Column: "market", Adjustable: false},
		"fluctuation_rate":  {Table: "snapshots", Column: "fluc_rt", Adjustable: false},
		"fluctuation_type":  {Table: "snapshots", Column: "fluc_tp", Adjustable: false},
		"adjustment_factor": {Table: "snapshots", Column: "adjustment_factor", Adjustable: false, Derived: true},
		"liquidity_rank":    {Table: "snapshots", Column: "liquidity_rank", Adjustable: false, Derived: true},
	}}
	for name := range r.entries {
		r.order = append(r.order, name)
	}
	return r
}

// Resolve maps a logical field name to its physical location. An
// unknown field is a RegistryError carrying every known field name, so
// the caller can print a useful "did you mean" message.
func (r *Registry) Resolve(field string) (Entry, error) {
	entry, ok := r.entries[field]
	if !ok {
		return Entry{}, &model.RegistryError{Field: field, Known: r.ListFields()}
	}
	return entry, nil
}

// ListFields returns every known logical field name.
func (r *Registry) ListFields() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ListOriginalFields returns logical fields sourced directly from the
// upstream payload (not computed by S2/S3).
func (r *Registry) ListOriginalFields() []string {
	var out []string
	for _, name := range r.order {
		if !r.entries[name].Derived {
			out = append(out, name)
		}
	}
	return out
}

// ListDerivedFields returns logical fields computed by the enrichment
// stages (adjustment_factor, liquidity_rank).
func (r *Registry) ListDerivedFields() []string {
	var out []string
	for _, name := range r.order {
		if r.entries[name].Derived {
			out = append(out, name)
		}
	}
	return out
}
