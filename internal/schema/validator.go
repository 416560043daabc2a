// Package schema implements the C6 user-data schema validator: it
// loads a wizard's draft-07 data schema and checks submitted user data
// against it, reporting every violation rather than failing fast
// (spec.md §4.6).
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MissingProperty is one required property user_data did not supply.
type MissingProperty struct {
	FieldID string `json:"field_id"`
	Label   string `json:"label,omitempty"`
	Example string `json:"example,omitempty"`
}

// Violation is one type/pattern/enum failure on a supplied property.
type Violation struct {
	FieldID string      `json:"field_id"`
	Value   interface{} `json:"value"`
	Reason  string      `json:"reason"`
}

// Report is the outcome of Validate. Valid is true only when both
// slices are empty (spec.md §4.6).
type Report struct {
	Valid   bool              `json:"valid"`
	Missing []MissingProperty `json:"missing,omitempty"`
	Invalid []Violation       `json:"invalid,omitempty"`
}

// Schema wraps a compiled user-data schema plus its raw document, so
// describe() can hand back the schema verbatim while Validate reuses
// the compiled form.
type Schema struct {
	WizardID string
	compiled *jsonschema.Schema
	raw      map[string]interface{}
}

// Load compiles rawJSON (the contents of
// wizards/data-schemas/<wizard_id>-schema.json) into a reusable
// Schema.
func Load(wizardID string, rawJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	url := "mem://" + wizardID + "-schema.json"
	if err := compiler.AddResource(url, bytes.NewReader(rawJSON)); err != nil {
		return nil, fmt.Errorf("loading schema for %s: %w", wizardID, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema for %s: %w", wizardID, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(rawJSON, &raw); err != nil {
		return nil, fmt.Errorf("parsing schema for %s: %w", wizardID, err)
	}

	return &Schema{WizardID: wizardID, compiled: compiled, raw: raw}, nil
}

// Describe returns the schema document verbatim, the contract an
// external LLM reads to decide what to ask the user for.
func (s *Schema) Describe() map[string]interface{} {
	return s.raw
}

// Default returns the documented default for a top-level or sub-field
// property, if the schema declares one via the "default" keyword
// (spec.md §4.7 — the resolver never invents defaults, only reads
// this).
func (s *Schema) Default(propertyPath ...string) (interface{}, bool) {
	node := s.raw
	for i, key := range propertyPath {
		props, ok := node["properties"].(map[string]interface{})
		if !ok {
			return nil, false
		}
		entry, ok := props[key].(map[string]interface{})
		if !ok {
			return nil, false
		}
		if i == len(propertyPath)-1 {
			def, ok := entry["default"]
			return def, ok
		}
		next, ok := entry["properties"]
		if !ok {
			return nil, false
		}
		node = map[string]interface{}{"properties": next}
	}
	return nil, false
}

// Validate checks userData against the compiled schema, aggregating
// every missing required property and every type/pattern/enum
// violation instead of stopping at the first (spec.md §4.6).
func (s *Schema) Validate(userData map[string]interface{}) (*Report, error) {
	report := &Report{Valid: true}

	err := s.compiled.Validate(userData)
	if err == nil {
		return report, nil
	}

	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("validating user data against %s: %w", s.WizardID, err)
	}

	missingSet := make(map[string]bool)
	var leaves []*jsonschema.ValidationError
	collectLeaves(verr, &leaves)

	for _, leaf := range leaves {
		if _, isMissing := missingPropertyFromMessage(leaf); isMissing {
			// One "required" failure names every absent property:
			// `missing properties: 'company_name', 'employee_count'`.
			parts := strings.Split(leaf.Message, "'")
			for k := 1; k < len(parts); k += 2 {
				if !missingSet[parts[k]] {
					missingSet[parts[k]] = true
					report.Missing = append(report.Missing, s.describeMissing(parts[k]))
				}
			}
			continue
		}
		fieldID := lastSegment(leaf.InstanceLocation)
		report.Invalid = append(report.Invalid, Violation{
			FieldID: fieldID,
			Value:   valueAt(userData, leaf.InstanceLocation),
			Reason:  leaf.Message,
		})
	}

	sort.Slice(report.Missing, func(i, j int) bool { return report.Missing[i].FieldID < report.Missing[j].FieldID })
	sort.Slice(report.Invalid, func(i, j int) bool { return report.Invalid[i].FieldID < report.Invalid[j].FieldID })

	report.Valid = len(report.Missing) == 0 && len(report.Invalid) == 0
	return report, nil
}

func (s *Schema) describeMissing(fieldID string) MissingProperty {
	m := MissingProperty{FieldID: fieldID}
	props, ok := s.raw["properties"].(map[string]interface{})
	if !ok {
		return m
	}
	entry, ok := props[fieldID].(map[string]interface{})
	if !ok {
		return m
	}
	if label, ok := entry["description"].(string); ok {
		m.Label = label
	}
	if example, ok := entry["examples"].([]interface{}); ok && len(example) > 0 {
		if str, ok := example[0].(string); ok {
			m.Example = str
		}
	}
	return m
}

// collectLeaves flattens a jsonschema.ValidationError tree into its
// leaf causes, which each carry one concrete violation.
func collectLeaves(e *jsonschema.ValidationError, out *[]*jsonschema.ValidationError) {
	if len(e.Causes) == 0 {
		*out = append(*out, e)
		return
	}
	for _, c := range e.Causes {
		collectLeaves(c, out)
	}
}

// missingPropertyFromMessage recognizes the library's "required"
// keyword failure, which reports at the parent's location rather than
// the missing property's own — this recovers the field_id the
// contract at spec.md §4.6 needs.
func missingPropertyFromMessage(e *jsonschema.ValidationError) (string, bool) {
	if e.KeywordLocation == "" {
		return "", false
	}
	if !hasSuffix(e.KeywordLocation, "/required") {
		return "", false
	}
	fieldID := extractQuoted(e.Message)
	if fieldID == "" {
		return "", false
	}
	return fieldID, true
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// extractQuoted pulls the first single-quoted token out of a message
// like `missing properties: 'company_name'`.
func extractQuoted(msg string) string {
	start := -1
	for i, r := range msg {
		if r == '\'' {
			if start == -1 {
				start = i + 1
			} else {
				return msg[start:i]
			}
		}
	}
	return ""
}

func lastSegment(pointer string) string {
	last := ""
	cur := ""
	for _, r := range pointer {
		if r == '/' {
			last = cur
			cur = ""
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		last = cur
	}
	return last
}

func valueAt(userData map[string]interface{}, pointer string) interface{} {
	key := lastSegment(pointer)
	if key == "" {
		return nil
	}
	return userData[key]
}
