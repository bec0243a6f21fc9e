package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cyp0633/rrulecheck/recurrence"
)

// ErrInvalidFixture is returned for fixture files that do not follow
// either supported layout.
var ErrInvalidFixture = errors.New("fixture: invalid fixture")

// Metadata describes a fixture file.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Category    string `yaml:"category,omitempty"`
}

// Case is a single test case: an expansion request plus optional labels.
// Keys the tool does not read are kept in Extra and written back as found.
type Case struct {
	Name               string         `yaml:"name,omitempty"`
	Description        string         `yaml:"description,omitempty"`
	recurrence.Request `yaml:",inline"`
	Extra              map[string]any `yaml:",inline"`
}

// Label names the case in reports.
func (c Case) Label(index int) string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("case %d", index)
}

// Input is a parsed input fixture. Legacy files hold exactly one case
// at the top level; multi-case files carry metadata and a test_cases list.
type Input struct {
	Path     string
	Legacy   bool
	Metadata Metadata
	Cases    []Case
}

// GeneratedCase pairs a case with the occurrences expected for it.
type GeneratedCase struct {
	Input    Case     `yaml:"input"`
	Expected []string `yaml:"expected_occurrences"`
}

// Expectations is a parsed generated fixture.
type Expectations struct {
	Path     string
	Legacy   bool
	Metadata Metadata
	Cases    []GeneratedCase
}

type multiInput struct {
	Metadata  Metadata `yaml:"metadata"`
	TestCases []Case   `yaml:"test_cases"`
}

type generatedMulti struct {
	Metadata  Metadata        `yaml:"metadata"`
	TestCases []GeneratedCase `yaml:"test_cases"`
}

type generatedLegacy struct {
	Metadata Metadata `yaml:"metadata"`
	Input    Case     `yaml:"input"`
	Expected []string `yaml:"expected_occurrences"`
}

func invalid(path, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidFixture, path, fmt.Sprintf(format, args...))
}

// LoadInput reads and validates an input fixture.
func LoadInput(path string) (*Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseInput(path, data)
}

// ParseInput parses an input fixture. path is only used in errors.
func ParseInput(path string, data []byte) (*Input, error) {
	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, invalid(path, "%v", err)
	}

	_, hasRule := keys["rrule"]
	_, hasCases := keys["test_cases"]
	if hasRule && !hasCases {
		for _, field := range []string{"name", "rrule", "dtstart"} {
			if _, ok := keys[field]; !ok {
				return nil, invalid(path, "missing required field %q", field)
			}
		}
		var c Case
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, invalid(path, "%v", err)
		}
		return &Input{
			Path:     path,
			Legacy:   true,
			Metadata: Metadata{Name: c.Name, Description: c.Description},
			Cases:    []Case{c},
		}, nil
	}

	meta, ok := keys["metadata"].(map[string]any)
	if !ok {
		return nil, invalid(path, "missing 'metadata' section")
	}
	if !hasCases {
		return nil, invalid(path, "missing 'test_cases' section")
	}
	for _, field := range []string{"name", "category"} {
		if _, ok := meta[field]; !ok {
			return nil, invalid(path, "missing required metadata field %q", field)
		}
	}

	var m multiInput
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, invalid(path, "%v", err)
	}
	if len(m.TestCases) == 0 {
		return nil, invalid(path, "'test_cases' must be a non-empty list")
	}
	for i, c := range m.TestCases {
		if strings.TrimSpace(c.RRule) == "" {
			return nil, invalid(path, "missing required field \"rrule\" in test case %d", i)
		}
		if strings.TrimSpace(c.DTStart) == "" {
			return nil, invalid(path, "missing required field \"dtstart\" in test case %d", i)
		}
	}

	return &Input{Path: path, Metadata: m.Metadata, Cases: m.TestCases}, nil
}

// LoadExpectations reads a generated fixture.
func LoadExpectations(path string) (*Expectations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	return ParseExpectations(path, data)
}

// ParseExpectations parses a generated fixture in either layout.
func ParseExpectations(path string, data []byte) (*Expectations, error) {
	var keys map[string]any
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, invalid(path, "%v", err)
	}

	if _, ok := keys["test_cases"]; ok {
		var g generatedMulti
		if err := yaml.Unmarshal(data, &g); err != nil {
			return nil, invalid(path, "%v", err)
		}
		return &Expectations{Path: path, Metadata: g.Metadata, Cases: g.TestCases}, nil
	}
	if _, ok := keys["input"]; ok {
		var g generatedLegacy
		if err := yaml.Unmarshal(data, &g); err != nil {
			return nil, invalid(path, "%v", err)
		}
		if g.Metadata.Name == "" {
			g.Metadata.Name = g.Input.Name
		}
		return &Expectations{
			Path:     path,
			Legacy:   true,
			Metadata: g.Metadata,
			Cases:    []GeneratedCase{{Input: g.Input, Expected: g.Expected}},
		}, nil
	}
	return nil, invalid(path, "neither 'test_cases' nor 'input' present")
}

// MarshalGenerated renders the generated fixture for in. Legacy inputs keep
// the legacy layout.
func MarshalGenerated(in *Input, cases []GeneratedCase) ([]byte, error) {
	var doc any
	if in.Legacy {
		if len(cases) != 1 {
			return nil, fmt.Errorf("legacy fixture %s needs exactly one case, got %d", in.Path, len(cases))
		}
		doc = generatedLegacy{Metadata: in.Metadata, Input: cases[0].Input, Expected: cases[0].Expected}
	} else {
		doc = generatedMulti{Metadata: in.Metadata, TestCases: cases}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode fixture: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode fixture: %w", err)
	}
	return buf.Bytes(), nil
}
