package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/convoy/internal/config"
)

// Scenario defines a conformance test scenario: a fleet to simulate and
// assertions over the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names golden files.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Fleet is an inline fleet configuration, in the same format as a
	// fleet file.
	Fleet yaml.Node `yaml:"fleet,omitempty"`

	// FleetFile points to a fleet file instead. Relative paths resolve
	// against the scenario file's directory.
	FleetFile string `yaml:"fleet_file,omitempty"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`

	// RunID fixes the stored run id. Defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the message kind (trace_contains, trace_count).
	Kind string `yaml:"kind,omitempty"`

	// From and To optionally narrow trace matches to one sender or recipient.
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Body is a subset match against the message body (trace_contains).
	Body map[string]any `yaml:"body,omitempty"`

	// Count is the expected number of matching messages (trace_count).
	Count int `yaml:"count,omitempty"`

	// Kinds is the expected first-occurrence order (trace_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Table is the state table name (final_state): stores, carriers,
	// routes or deliveries.
	Table string `yaml:"table,omitempty"`

	// Where selects exactly one row (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect is a subset match against the selected row (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.FleetFile != "" && !filepath.IsAbs(scenario.FleetFile) {
		scenario.FleetFile = filepath.Join(filepath.Dir(path), scenario.FleetFile)
	}
	if scenario.FleetFile != "" {
		if _, err := os.Stat(scenario.FleetFile); err != nil {
			return nil, fmt.Errorf("invalid scenario: fleet file: %w", err)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadFleet builds the scenario's fleet.
func (s *Scenario) LoadFleet() (*config.Fleet, error) {
	if s.FleetFile != "" {
		return config.Load(s.FleetFile)
	}
	data, err := yaml.Marshal(&s.Fleet)
	if err != nil {
		return nil, fmt.Errorf("encode inline fleet: %w", err)
	}
	return config.Parse(s.Name+".yaml", data)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	hasInline := !s.Fleet.IsZero()
	switch {
	case hasInline && s.FleetFile != "":
		return fmt.Errorf("fleet and fleet_file are mutually exclusive")
	case !hasInline && s.FleetFile == "":
		return fmt.Errorf("fleet or fleet_file is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
