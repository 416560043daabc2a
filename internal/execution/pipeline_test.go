package execution

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/wizard-automation/core/internal/actions"
	"github.com/wizard-automation/core/internal/catalog"
	"github.com/wizard-automation/core/internal/config"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/resolver"
	"github.com/wizard-automation/core/internal/structure"
)

const fixtureStructureJSON = `{
  "wizard_id": "acme-onboarding",
  "name": "Acme Onboarding",
  "url": "https://acme.example.com/onboarding",
  "discovered_at": "2026-08-01T00:00:00Z",
  "discovery_version": "1.0.0",
  "total_pages": 1,
  "pages": [
    {
      "page_number": 1,
      "page_title": "Company details",
      "url_pattern": "/onboarding/company",
      "fields": [
        {
          "label": "Company name",
          "field_id": "company_name",
          "selector": "#company-name",
          "field_type": "text",
          "interaction": "fill",
          "required": true
        }
      ]
    }
  ]
}`

const fixtureSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["company_name"],
  "properties": {
    "company_name": {"type": "string", "description": "Company name", "examples": ["Acme Corp"]}
  }
}`

func seedFixtureWizard(t *testing.T, root string) {
	t.Helper()
	structDir := filepath.Join(root, "structure-schemas")
	schemaDir := filepath.Join(root, "data-schemas")
	if err := os.MkdirAll(structDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(structDir, "acme-onboarding.json"), []byte(fixtureStructureJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(schemaDir, "acme-onboarding-schema.json"), []byte(fixtureSchemaJSON), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Browser:    config.BrowserConfig{Engine: config.EngineChromium, ViewportW: 1280, ViewportH: 800},
		Timeouts:   config.TimeoutConfig{NavigationMs: 120000, ExecutionSec: 180, RequestSec: 240},
		Screenshot: config.ScreenshotConfig{Quality: 60, MaxBytes: 51200},
		RateLimit:  config.RateLimitConfig{LaunchesPerSecond: 10, Burst: 10},
	}
}

func newTestPipeline(t *testing.T, root string) *Pipeline {
	t.Helper()
	v, err := structure.NewValidator(structure.MetaSchemaJSON)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	cat := catalog.New(root, v, nil)
	return New(cat, testConfig(), nil, nil, nil)
}

// TestExecute_WizardNotFound, TestExecute_MissingData_NeverLaunchesBrowser,
// and TestExecute_ValidationError_NeverLaunchesBrowser below all exercise branches of Execute
// that spec.md §4.8 step 2 requires to return before any browser is
// launched — p.launch is left at its real browser.Launch default and
// is simply never reached on these paths.

func TestExecute_WizardNotFound(t *testing.T) {
	root := t.TempDir()
	p := newTestPipeline(t, root)

	result := p.Execute(context.Background(), domain.ExecutionRequest{WizardID: "does-not-exist"})
	if result.Outcome != domain.OutcomeExecutionError {
		t.Fatalf("Outcome = %v, want execution_error", result.Outcome)
	}
	if result.ErrorKind != string(domain.KindWizardNotFound) {
		t.Errorf("ErrorKind = %v, want wizard_not_found", result.ErrorKind)
	}
}

func TestExecute_MissingData_NeverLaunchesBrowser(t *testing.T) {
	root := t.TempDir()
	seedFixtureWizard(t, root)
	p := newTestPipeline(t, root)

	result := p.Execute(context.Background(), domain.ExecutionRequest{
		WizardID: "acme-onboarding",
		UserData: map[string]interface{}{},
	})
	if result.Outcome != domain.OutcomeMissingData {
		t.Fatalf("Outcome = %v, want missing_data", result.Outcome)
	}
	if len(result.MissingFields) != 1 || result.MissingFields[0].FieldID != "company_name" {
		t.Errorf("MissingFields = %+v, want company_name", result.MissingFields)
	}
}

func TestExecute_ValidationError_NeverLaunchesBrowser(t *testing.T) {
	root := t.TempDir()
	seedFixtureWizard(t, root)
	p := newTestPipeline(t, root)

	result := p.Execute(context.Background(), domain.ExecutionRequest{
		WizardID: "acme-onboarding",
		UserData: map[string]interface{}{"company_name": float64(123)},
	})
	if result.Outcome != domain.OutcomeValidationError {
		t.Fatalf("Outcome = %v, want validation_error", result.Outcome)
	}
	if len(result.InvalidFields) != 1 || result.InvalidFields[0].FieldID != "company_name" {
		t.Errorf("InvalidFields = %+v, want company_name", result.InvalidFields)
	}
}

func TestOutcomeLabel(t *testing.T) {
	if got := outcomeLabel(nil); got != "success" {
		t.Errorf("outcomeLabel(nil) = %q, want success", got)
	}
	if got := outcomeLabel(context.DeadlineExceeded); got != "failure" {
		t.Errorf("outcomeLabel(err) = %q, want failure", got)
	}
}

func TestGroupByPage(t *testing.T) {
	plan := []resolver.Step{
		{PageIndex: 0, Field: domain.Field{FieldID: "a"}},
		{PageIndex: 0, Field: domain.Field{FieldID: "b"}},
		{PageIndex: 1, Field: domain.Field{FieldID: "c"}},
	}
	grouped := groupByPage(plan)
	if len(grouped[0]) != 2 || len(grouped[1]) != 1 {
		t.Fatalf("grouped = %v, want 2 entries at page 0 and 1 at page 1", grouped)
	}
}

func TestActionsFor(t *testing.T) {
	plan := []resolver.Step{
		{Action: actions.Action{Interaction: domain.InteractionFill, Value: "x"}},
	}
	got := actionsFor(plan)
	if len(got) != 1 || got[0].Value != "x" {
		t.Fatalf("actionsFor() = %+v, want one action with value x", got)
	}
}
