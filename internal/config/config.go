// Package config loads fleet configurations.
//
// A fleet file is YAML (strict: unknown fields are rejected) or CUE. Both
// are unified with an embedded CUE schema that supplies defaults and range
// constraints, then checked for cross-references and built into the
// runtime types.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/convoy/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// File mirrors the on-disk layout. Optional numeric settings are pointers
// so an explicit zero survives and an omitted value takes the default.
type File struct {
	Name        string          `json:"name,omitempty" yaml:"name"`
	Start       string          `json:"start,omitempty" yaml:"start"`
	Horizon     string          `json:"horizon,omitempty" yaml:"horizon"`
	Model       ModelFile       `json:"model" yaml:"model"`
	Negotiation NegotiationFile `json:"negotiation" yaml:"negotiation"`
	Runtime     RuntimeFile     `json:"runtime" yaml:"runtime"`
	Products    []ProductFile   `json:"products,omitempty" yaml:"products"`
	Stores      []StoreFile     `json:"stores,omitempty" yaml:"stores"`
	Carriers    []CarrierFile   `json:"carriers,omitempty" yaml:"carriers"`
}

type ModelFile struct {
	SpeedKmH              *float64 `json:"speed_kmh,omitempty" yaml:"speed_kmh"`
	ServiceBaseSeconds    *int64   `json:"service_base_seconds,omitempty" yaml:"service_base_seconds"`
	ServicePerItemSeconds *int64   `json:"service_per_item_seconds,omitempty" yaml:"service_per_item_seconds"`
	LoadingSeconds        *int64   `json:"loading_seconds,omitempty" yaml:"loading_seconds"`
	CostWeight            *float64 `json:"cost_weight,omitempty" yaml:"cost_weight"`
	TimeWeight            *float64 `json:"time_weight,omitempty" yaml:"time_weight"`
}

type NegotiationFile struct {
	CollectionWindow *int64 `json:"collection_window,omitempty" yaml:"collection_window"`
	RetryInterval    *int64 `json:"retry_interval,omitempty" yaml:"retry_interval"`
}

type RuntimeFile struct {
	MaxCyclesPerInstant *int `json:"max_cycles_per_instant,omitempty" yaml:"max_cycles_per_instant"`
}

type ProductFile struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name,omitempty" yaml:"name"`
	UnitWeight float64 `json:"unit_weight" yaml:"unit_weight"`
}

type WindowFile struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type PointFile struct {
	X float64 `json:"x,omitempty" yaml:"x"`
	Y float64 `json:"y,omitempty" yaml:"y"`
}

type StoreFile struct {
	ID     string       `json:"id" yaml:"id"`
	Name   string       `json:"name,omitempty" yaml:"name"`
	X      float64      `json:"x,omitempty" yaml:"x"`
	Y      float64      `json:"y,omitempty" yaml:"y"`
	Window *WindowFile  `json:"window,omitempty" yaml:"window"`
	Demand []model.Line `json:"demand,omitempty" yaml:"demand"`
}

type CarrierFile struct {
	ID           string      `json:"id" yaml:"id"`
	Capacity     float64     `json:"capacity" yaml:"capacity"`
	CostPerKm    float64     `json:"cost_per_km,omitempty" yaml:"cost_per_km"`
	Depot        *PointFile  `json:"depot,omitempty" yaml:"depot"`
	Availability *WindowFile `json:"availability,omitempty" yaml:"availability"`
}

// Load reads and builds a fleet file. The format follows the extension:
// .cue is CUE, anything else is YAML.
func Load(path string) (*Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse builds a fleet from file contents. name selects the format.
func Parse(name string, data []byte) (*Fleet, error) {
	f, err := Decode(name, data)
	if err != nil {
		return nil, err
	}
	return f.Build()
}

// Decode parses and schema-checks a fleet file with defaults applied.
func Decode(name string, data []byte) (*File, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	var v cue.Value
	if strings.EqualFold(filepath.Ext(name), ".cue") {
		v = ctx.CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return nil, fromCUE(ErrCodeParse, err)
		}
	} else {
		raw, err := decodeYAML(data)
		if err != nil {
			return nil, err
		}
		v = ctx.Encode(raw)
		if err := v.Err(); err != nil {
			return nil, fromCUE(ErrCodeParse, err)
		}
	}

	unified := schema.LookupPath(cue.ParsePath("#Fleet")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fromCUE(ErrCodeSchema, err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return nil, fromCUE(ErrCodeSchema, err)
	}
	return &f, nil
}

func decodeYAML(data []byte) (*File, error) {
	var raw File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		ve := ValidationError{Field: "fleet", Message: err.Error(), Code: ErrCodeParse}
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			ve.Message = strings.Join(te.Errors, "; ")
		}
		return nil, Errors{ve}
	}
	return &raw, nil
}
