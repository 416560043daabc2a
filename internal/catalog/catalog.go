// Package catalog implements the C9 wizard catalog: a lazy directory
// scan of wizards/structure-schemas/*.json paired with
// wizards/data-schemas/<id>-schema.json, validated through C10/C6
// before being considered available (spec.md §4.9).
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/schema"
	"github.com/wizard-automation/core/internal/structure"
)

// Summary is the listing-friendly view of an available wizard.
type Summary struct {
	WizardID   string `json:"wizard_id"`
	Name       string `json:"name"`
	TotalPages int    `json:"total_pages"`
}

// entry holds one wizard's parse outcome. Entries are not cached: every
// List and Get re-reads and re-validates the files on disk.
type entry struct {
	summary   Summary
	structure *domain.WizardStructure
	schema    *schema.Schema
	available bool
	diagnostic string
}

// Catalog enumerates and serves wizards rooted at a wizards directory
// (spec.md §6 on-disk layout).
type Catalog struct {
	root      string
	validator *structure.Validator
	log       *zap.Logger
}

// New builds a Catalog rooted at wizardsDir, using validator for C10
// structural checks.
func New(wizardsDir string, validator *structure.Validator, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{root: wizardsDir, validator: validator, log: log}
}

func (c *Catalog) structureSchemasDir() string {
	return filepath.Join(c.root, "structure-schemas")
}

func (c *Catalog) dataSchemaPath(wizardID string) string {
	return filepath.Join(c.root, "data-schemas", wizardID+"-schema.json")
}

// List scans structure-schemas/*.json and returns a Summary for every
// wizard that passes availability checks; non-available wizards are
// omitted, with a diagnostic logged for operators (spec.md §4.9).
func (c *Catalog) List() ([]Summary, error) {
	paths, err := filepath.Glob(filepath.Join(c.structureSchemasDir(), "*.json"))
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, path := range paths {
		wizardID := strings.TrimSuffix(filepath.Base(path), ".json")
		e, err := c.load(wizardID)
		if err != nil {
			c.log.Warn("wizard catalog entry unreadable", zap.String("wizard_id", wizardID), zap.Error(err))
			continue
		}
		if !e.available {
			c.log.Warn("wizard catalog entry unavailable",
				zap.String("wizard_id", wizardID),
				zap.String("diagnostic", e.diagnostic),
			)
			continue
		}
		out = append(out, e.summary)
	}
	return out, nil
}

// Get returns the full structure+schema pair for wizardID, or
// wizard_not_found if it is absent, unparseable, or fails C10/C6
// validation (spec.md §4.9).
func (c *Catalog) Get(wizardID string) (*domain.WizardStructure, *schema.Schema, error) {
	e, err := c.load(wizardID)
	if err != nil {
		return nil, nil, domain.ErrWizardNotFound(wizardID)
	}
	if !e.available {
		c.log.Warn("wizard requested but unavailable",
			zap.String("wizard_id", wizardID),
			zap.String("diagnostic", e.diagnostic),
		)
		return nil, nil, domain.ErrWizardNotFound(wizardID)
	}
	return e.structure, e.schema, nil
}

// load reads, parses, and validates one wizard from disk. It never
// returns a partial entry silently — availability failures are
// recorded on the entry's diagnostic instead of being swallowed.
func (c *Catalog) load(wizardID string) (*entry, error) {
	structurePath := filepath.Join(c.structureSchemasDir(), wizardID+".json")
	structureData, err := os.ReadFile(structurePath)
	if err != nil {
		return nil, err
	}

	var s domain.WizardStructure
	if err := json.Unmarshal(structureData, &s); err != nil {
		return &entry{available: false, diagnostic: "structure JSON unparseable: " + err.Error()}, nil
	}

	report, err := c.validator.Validate(&s)
	if err != nil {
		return &entry{available: false, diagnostic: "C10 validation failed: " + err.Error()}, nil
	}
	if !report.IsComplete {
		return &entry{available: false, diagnostic: "structure invalid: " + report.Summary()}, nil
	}

	schemaData, err := os.ReadFile(c.dataSchemaPath(wizardID))
	if err != nil {
		return &entry{available: false, diagnostic: "data schema unreadable: " + err.Error()}, nil
	}

	sch, err := schema.Load(wizardID, schemaData)
	if err != nil {
		return &entry{available: false, diagnostic: "data schema invalid: " + err.Error()}, nil
	}

	return &entry{
		summary: Summary{
			WizardID:   s.WizardID,
			Name:       s.Name,
			TotalPages: s.TotalPages,
		},
		structure: &s,
		schema:    sch,
		available: true,
	}, nil
}
