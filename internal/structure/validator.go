// Package structure implements the C10 universal wizard-structure
// validator: a fixed meta-schema encoding spec.md §3's invariants,
// plus the contiguity/uniqueness checks a draft-07 schema cannot
// itself express (spec.md §4.10).
package structure

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/wizard-automation/core/internal/domain"
)

// metaSchemaID is the $id the meta-schema document declares; the
// compiler resolves embedded $ref fragments against it.
const metaSchemaID = "https://wizard-automation.internal/schemas/wizard-structure-v1.schema.json"

// ValidationReport is C10's output shape (spec.md §4.10).
type ValidationReport struct {
	IsComplete        bool
	HasRequiredFields bool
	Warnings          []string
}

// Summary joins Warnings into a single diagnostic line for error
// metadata.
func (r *ValidationReport) Summary() string {
	if len(r.Warnings) == 0 {
		return "structure invalid"
	}
	summary := r.Warnings[0]
	for _, w := range r.Warnings[1:] {
		summary += "; " + w
	}
	return summary
}

// Validator compiles the meta-schema once and reuses it across calls.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles metaSchemaJSON (the contents of
// schemas/wizard-structure-v1.schema.json) into a reusable Validator.
func NewValidator(metaSchemaJSON []byte) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(metaSchemaID, bytes.NewReader(metaSchemaJSON)); err != nil {
		return nil, fmt.Errorf("loading wizard-structure meta-schema: %w", err)
	}
	schema, err := compiler.Compile(metaSchemaID)
	if err != nil {
		return nil, fmt.Errorf("compiling wizard-structure meta-schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks s against the meta-schema and the cross-field
// invariants the schema cannot express (page-number contiguity,
// field_id uniqueness, continue_button presence per non-terminal
// page). It never itself returns an error for a structurally invalid
// document — that is reported via the returned report's Warnings; the
// error return is reserved for a marshaling/compiler failure.
func (v *Validator) Validate(s *domain.WizardStructure) (*ValidationReport, error) {
	report := &ValidationReport{IsComplete: true, HasRequiredFields: true}

	doc, err := toGenericJSON(s)
	if err != nil {
		return nil, fmt.Errorf("converting structure for validation: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		report.IsComplete = false
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			report.Warnings = append(report.Warnings, flattenValidationError(verr)...)
		} else {
			report.Warnings = append(report.Warnings, err.Error())
		}
	}

	if err := s.CheckStructuralInvariants(); err != nil {
		report.IsComplete = false
		report.Warnings = append(report.Warnings, err.Error())
	}

	for _, id := range s.RequiredFieldIDs() {
		if id == "" {
			report.HasRequiredFields = false
			report.Warnings = append(report.Warnings, "a required field is missing its field_id")
		}
	}

	return report, nil
}

// flattenValidationError walks a jsonschema.ValidationError tree into
// flat, one-line diagnostics.
func flattenValidationError(err *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, fmt.Sprintf("%s: %s", e.InstanceLocation, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(err)
	return out
}

func toGenericJSON(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}
