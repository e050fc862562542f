package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the CUE relation schema, relative to the scenario file.
	Schema string `yaml:"schema"`

	// Seed is an optional SQL script run before the query, relative to the
	// scenario file.
	Seed string `yaml:"seed,omitempty"`

	// Request is the filter request: a list of filter objects or an object
	// with filters, sort_by and sort_order.
	Request any `yaml:"request"`

	// Expect is the overall outcome.
	Expect Expect `yaml:"expect"`

	// Assertions are extra checks on the result.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Expect is the expected outcome of a scenario. Exactly one of IDs or
// Error is meaningful: a scenario either succeeds or fails with a code.
type Expect struct {
	// IDs are the root primary keys returned, in order.
	IDs []any `yaml:"ids,omitempty"`

	// Error is the expected error code, e.g. UNSUPPORTED_OPERATOR.
	Error string `yaml:"error,omitempty"`
}

// Assertion is an extra check on a scenario result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Count is used by row_count and call_count.
	Count int `yaml:"count,omitempty"`

	// IDs is used by includes_ids and excludes_ids.
	IDs []any `yaml:"ids,omitempty"`

	// Text is used by sql_contains.
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount    = "row_count"
	AssertCallCount   = "call_count"
	AssertIncludesIDs = "includes_ids"
	AssertExcludesIDs = "excludes_ids"
	AssertSQLContains = "sql_contains"
)

var assertionTypes = []string{AssertRowCount, AssertCallCount, AssertIncludesIDs, AssertExcludesIDs, AssertSQLContains}

// LoadScenario reads and parses a scenario YAML file. Schema and seed paths
// are resolved relative to the file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	scenario.Schema = resolve(base, scenario.Schema)
	scenario.Seed = resolve(base, scenario.Seed)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file directly under dir, sorted
// by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*Scenario
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		sc, err := LoadScenario(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	return scenarios, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain slashes or spaces", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if _, err := os.Stat(s.Schema); err != nil {
		return fmt.Errorf("schema file not found: %s", s.Schema)
	}
	if s.Seed != "" {
		if _, err := os.Stat(s.Seed); err != nil {
			return fmt.Errorf("seed file not found: %s", s.Seed)
		}
	}
	if s.Request == nil {
		return fmt.Errorf("request is required")
	}
	if s.Expect.Error != "" && s.Expect.IDs != nil {
		return fmt.Errorf("expect: ids and error are mutually exclusive")
	}

	for i, a := range s.Assertions {
		if !slices.Contains(assertionTypes, a.Type) {
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
		if a.Type == AssertSQLContains && a.Text == "" {
			return fmt.Errorf("assertions[%d]: sql_contains requires text", i)
		}
		if (a.Type == AssertIncludesIDs || a.Type == AssertExcludesIDs) && len(a.IDs) == 0 {
			return fmt.Errorf("assertions[%d]: %s requires ids", i, a.Type)
		}
	}
	return nil
}
