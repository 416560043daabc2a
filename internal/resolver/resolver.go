// Package resolver implements the C7 field resolver: it joins a
// WizardStructure with validated user data into an ordered execution
// plan of action-primitive invocations (spec.md §4.7).
package resolver

import (
	"fmt"

	"github.com/wizard-automation/core/internal/actions"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/schema"
)

// Step is one entry of the resolved plan: the page it belongs to, the
// field it fills, and the action ready to hand to actions.Runner.Run.
type Step struct {
	PageIndex int
	Field     domain.Field
	Value     string
	Action    actions.Action
}

// Resolve builds the ordered plan for structure given already-validated
// userData, reading group sub-field defaults from schema when the
// schema documents one (spec.md §4.7: "the resolver never invents
// defaults"). schema may be nil when the wizard has no data schema
// requirements beyond the structure itself.
func Resolve(structure *domain.WizardStructure, userData map[string]interface{}, sch *schema.Schema) ([]Step, error) {
	var plan []Step

	for pageIndex, page := range structure.Pages {
		for _, field := range page.Fields {
			if field.IsGroup() {
				steps, err := resolveGroup(pageIndex, field, userData, sch)
				if err != nil {
					return nil, err
				}
				plan = append(plan, steps...)
				continue
			}

			raw, ok := userData[field.FieldID]
			if !ok {
				if field.Required {
					return nil, fmt.Errorf("resolving plan: required field %q has no value after validation", field.FieldID)
				}
				continue
			}

			value, err := stringify(raw)
			if err != nil {
				return nil, fmt.Errorf("resolving field %q: %w", field.FieldID, err)
			}

			plan = append(plan, Step{
				PageIndex: pageIndex,
				Field:     field,
				Value:     value,
				Action:    stepAction(field, value),
			})
		}
	}

	return plan, nil
}

// resolveGroup unpacks a group field's user_data entry (an object
// keyed by sub-field id) into one Step per sub-field, applying the
// schema-documented default when a sub-field's value is absent.
func resolveGroup(pageIndex int, field domain.Field, userData map[string]interface{}, sch *schema.Schema) ([]Step, error) {
	raw, ok := userData[field.FieldID]
	groupValues, _ := raw.(map[string]interface{})
	if !ok || groupValues == nil {
		groupValues = map[string]interface{}{}
	}

	var steps []Step
	for _, sub := range field.SubFields {
		value, present := groupValues[sub.FieldID]
		if !present {
			if sch == nil {
				if sub.Required {
					return nil, fmt.Errorf("resolving group %q: sub-field %q missing with no schema to supply a default", field.FieldID, sub.FieldID)
				}
				continue
			}
			def, hasDefault := sch.Default(field.FieldID, sub.FieldID)
			if !hasDefault {
				if sub.Required {
					return nil, fmt.Errorf("resolving group %q: sub-field %q missing and schema declares no default", field.FieldID, sub.FieldID)
				}
				continue
			}
			value = def
		}

		str, err := stringify(value)
		if err != nil {
			return nil, fmt.Errorf("resolving group %q sub-field %q: %w", field.FieldID, sub.FieldID, err)
		}

		steps = append(steps, Step{
			PageIndex: pageIndex,
			Field:     sub,
			Value:     str,
			Action:    stepAction(sub, str),
		})
	}
	return steps, nil
}

func stepAction(field domain.Field, value string) actions.Action {
	return actions.Action{
		Interaction: field.Interaction,
		Target: actions.Target{
			Selector:     field.Selector,
			Alternatives: field.SelectorAlternatives,
		},
		Value: value,
	}
}

// stringify converts a decoded JSON value (string, float64, bool) into
// the string actions.Action.Value expects.
func stringify(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t)), nil
		}
		return fmt.Sprintf("%g", t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
