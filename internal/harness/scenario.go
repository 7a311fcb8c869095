package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one testable-property conformance test: a raw
// document stream to render, an optional fake secret store, and the
// expectations to check against the render's result.
type Scenario struct {
	// Name uniquely identifies this scenario; also the golden-file key.
	Name string `yaml:"name"`

	// Description explains which testable property this scenario
	// exercises.
	Description string `yaml:"description"`

	// Documents is the raw `---`-delimited YAML document stream to
	// render, exactly as a bucket PUT would receive it.
	Documents string `yaml:"documents"`

	// Secrets is a reference-token-to-cleartext map backing the fake
	// secret store used for scenarios with encrypted documents. Nil if
	// the scenario has none.
	Secrets map[string]string `yaml:"secrets,omitempty"`

	// Expect is the set of assertions to check against the render
	// result.
	Expect ExpectClause `yaml:"expect"`
}

// ExpectClause specifies a scenario's expected render outcome.
type ExpectClause struct {
	// Documents lists the expected rendered documents. Order does not
	// matter; each entry is matched by (schema, name).
	Documents []ExpectedDocument `yaml:"documents,omitempty"`

	// DocumentCount, if non-nil, asserts the exact number of rendered
	// documents, catching unexpected extras that an exact Documents list
	// covering only a subset would miss.
	DocumentCount *int `yaml:"documentCount,omitempty"`

	// ErrorKinds lists the rendererr.Kind values expected to appear
	// somewhere in the report, in no particular order. An empty,
	// explicitly-present list asserts the report has no errors.
	ErrorKinds []string `yaml:"errorKinds,omitempty"`
}

// ExpectedDocument is one entry of ExpectClause.Documents.
type ExpectedDocument struct {
	Schema string         `yaml:"schema"`
	Name   string         `yaml:"name"`
	Data   map[string]any `yaml:"data"`
}

// LoadScenario reads and strictly parses a scenario YAML file. Unknown
// fields (a typo'd key) are rejected rather than silently ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}

	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Documents == "" {
		return fmt.Errorf("documents is required")
	}
	return nil
}
