package domain

import (
	"fmt"
	"regexp"
	"time"
)

var wizardIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// FieldType enumerates the DOM construct a Field represents.
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeNumber    FieldType = "number"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeSelect    FieldType = "select"
	FieldTypeTypeahead FieldType = "typeahead"
	FieldTypeGroup     FieldType = "group"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeRadio, FieldTypeCheckbox,
		FieldTypeSelect, FieldTypeTypeahead, FieldTypeGroup:
		return true
	}
	return false
}

// Interaction is the closed enumeration of browser action primitives
// (spec.md §4.2). It is encoded as a string tag in the wire format but
// dispatched through a switch, never a string-keyed map (spec.md §9).
type Interaction string

const (
	InteractionFill             Interaction = "fill"
	InteractionFillEnter        Interaction = "fill_enter"
	InteractionClick            Interaction = "click"
	InteractionJavascriptClick  Interaction = "javascript_click"
	InteractionSelect           Interaction = "select"
)

func (i Interaction) IsValid() bool {
	switch i {
	case InteractionFill, InteractionFillEnter, InteractionClick,
		InteractionJavascriptClick, InteractionSelect:
		return true
	}
	return false
}

// ClickSpec describes a single clickable target, used both for a
// wizard's optional start_action and for a page's continue_button.
type ClickSpec struct {
	Selector             string   `json:"selector"`
	SelectorAlternatives []string `json:"selector_alternatives,omitempty"`
	WaitForNetworkIdle   bool     `json:"wait_for_network_idle,omitempty"`
}

// Field is a single discovered form control, or a group of sub-fields
// sharing no selector of their own (spec.md §3).
type Field struct {
	Label                string      `json:"label"`
	FieldID              string      `json:"field_id"`
	Selector             string      `json:"selector,omitempty"`
	SelectorAlternatives []string    `json:"selector_alternatives,omitempty"`
	FieldType            FieldType   `json:"field_type"`
	Interaction          Interaction `json:"interaction,omitempty"`
	Required             bool        `json:"required"`
	ExampleValue         string      `json:"example_value,omitempty"`
	Notes                string      `json:"notes,omitempty"`
	SubFields            []Field     `json:"sub_fields,omitempty"`
}

// IsGroup reports whether the field is a group field_type carrying
// sub-fields instead of its own selector.
func (f Field) IsGroup() bool {
	return f.FieldType == FieldTypeGroup
}

// Page is one step of a wizard.
type Page struct {
	PageNumber     int        `json:"page_number"`
	PageTitle      string     `json:"page_title"`
	URLPattern     string     `json:"url_pattern"`
	Fields         []Field    `json:"fields"`
	ContinueButton *ClickSpec `json:"continue_button,omitempty"`
}

// IsTerminal reports whether this page has no continue button, i.e.
// is the wizard's results page.
func (p Page) IsTerminal() bool {
	return p.ContinueButton == nil
}

// WizardStructure is the full replay description produced by
// discovery and consumed by execution (spec.md §3).
type WizardStructure struct {
	WizardID         string     `json:"wizard_id"`
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	DiscoveredAt     time.Time  `json:"discovered_at"`
	DiscoveryVersion string     `json:"discovery_version"`
	TotalPages       int        `json:"total_pages"`
	StartAction      *ClickSpec `json:"start_action,omitempty"`
	Pages            []Page     `json:"pages"`
}

// ValidWizardID reports whether id matches the stable slug format
// required by spec.md §3 (lowercase, hyphen-separated).
func ValidWizardID(id string) bool {
	return wizardIDPattern.MatchString(id)
}

// AllFields walks every field of the structure, flattening group
// sub-fields, in page then within-page order.
func (w *WizardStructure) AllFields() []Field {
	var out []Field
	for _, page := range w.Pages {
		out = append(out, flattenFields(page.Fields)...)
	}
	return out
}

func flattenFields(fields []Field) []Field {
	var out []Field
	for _, f := range fields {
		out = append(out, f)
		if f.IsGroup() {
			out = append(out, f.SubFields...)
		}
	}
	return out
}

// RequiredFieldIDs returns the field_id of every required, non-group
// field (groups themselves are never directly required; their
// required sub-fields are listed individually).
func (w *WizardStructure) RequiredFieldIDs() []string {
	var ids []string
	for _, f := range w.AllFields() {
		if f.Required && !f.IsGroup() {
			ids = append(ids, f.FieldID)
		}
	}
	return ids
}

// CheckStructuralInvariants enforces the invariants of spec.md §3.1
// that are cheap to check without the full C10 meta-schema pass:
// contiguous 1..N page numbers, a continue_button on every
// non-terminal page, and field_id uniqueness across the whole wizard.
func (w *WizardStructure) CheckStructuralInvariants() error {
	if w.TotalPages != len(w.Pages) {
		return fmt.Errorf("total_pages (%d) does not match len(pages) (%d)", w.TotalPages, len(w.Pages))
	}
	seen := make(map[string]bool)
	for i, page := range w.Pages {
		wantNumber := i + 1
		if page.PageNumber != wantNumber {
			return fmt.Errorf("page at index %d has page_number %d, want %d", i, page.PageNumber, wantNumber)
		}
		isLast := i == len(w.Pages)-1
		if !isLast && page.ContinueButton == nil {
			return fmt.Errorf("page %d is non-terminal but has no continue_button", page.PageNumber)
		}
		for _, f := range flattenFields(page.Fields) {
			if f.FieldID == "" {
				continue
			}
			if seen[f.FieldID] {
				return fmt.Errorf("duplicate field_id %q", f.FieldID)
			}
			seen[f.FieldID] = true
		}
	}
	return nil
}
