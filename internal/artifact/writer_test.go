package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/structure"
)

func mustWriter(t *testing.T, root string) *Writer {
	t.Helper()
	v, err := structure.NewValidator(structure.MetaSchemaJSON)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return New(root, v, nil)
}

func completeStructure() *domain.WizardStructure {
	return &domain.WizardStructure{
		WizardID:         "acme-onboarding",
		Name:             "Acme Onboarding",
		URL:              "https://acme.example.com/onboarding",
		DiscoveredAt:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DiscoveryVersion: "1.0.0",
		TotalPages:       1,
		Pages: []domain.Page{
			{
				PageNumber: 1,
				PageTitle:  "Company details",
				URLPattern: "/onboarding/company",
				Fields: []domain.Field{
					{
						Label:       "Company name",
						FieldID:     "company_name",
						Selector:    "#company-name",
						FieldType:   domain.FieldTypeText,
						Interaction: domain.InteractionFill,
						Required:    true,
					},
				},
			},
		},
	}
}

func TestWriter_WritePartial_CreatesFile(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	partial := completeStructure()
	if err := w.WritePartial("sess-1", partial); err != nil {
		t.Fatalf("WritePartial() error = %v", err)
	}

	path := filepath.Join(root, "_partial_sess-1.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("partial file not found: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading partial: %v", err)
	}
	var got domain.WizardStructure
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshaling partial: %v", err)
	}
	if got.WizardID != partial.WizardID {
		t.Errorf("WizardID = %q, want %q", got.WizardID, partial.WizardID)
	}
}

func TestWriter_WritePartial_OverwritesPrevious(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	first := completeStructure()
	if err := w.WritePartial("sess-1", first); err != nil {
		t.Fatalf("WritePartial() first error = %v", err)
	}

	second := completeStructure()
	second.Name = "Renamed"
	if err := w.WritePartial("sess-1", second); err != nil {
		t.Fatalf("WritePartial() second error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "_partial_sess-1.json"))
	if err != nil {
		t.Fatalf("reading partial: %v", err)
	}
	var got domain.WizardStructure
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshaling partial: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("Name = %q, want Renamed", got.Name)
	}
}

func TestWriter_DeletePartial_MissingFileIsNotError(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	if err := w.DeletePartial("never-written"); err != nil {
		t.Errorf("DeletePartial() error = %v, want nil", err)
	}
}

func TestWriter_DeletePartial_RemovesFile(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	if err := w.WritePartial("sess-1", completeStructure()); err != nil {
		t.Fatalf("WritePartial() error = %v", err)
	}
	if err := w.DeletePartial("sess-1"); err != nil {
		t.Fatalf("DeletePartial() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "_partial_sess-1.json")); !os.IsNotExist(err) {
		t.Error("partial file should have been removed")
	}
}

func TestWriter_Complete_ValidStructureWritesAndCleansUp(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	final := completeStructure()
	if err := w.WritePartial("sess-1", final); err != nil {
		t.Fatalf("WritePartial() error = %v", err)
	}

	result, err := w.Complete("sess-1", final)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !result.Validation.IsComplete {
		t.Errorf("Validation.IsComplete = false, warnings = %v", result.Validation.Warnings)
	}

	wantPath := filepath.Join(root, "structure-schemas", "acme-onboarding.json")
	if result.StructurePath != wantPath {
		t.Errorf("StructurePath = %q, want %q", result.StructurePath, wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("final structure file not found: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "_partial_sess-1.json")); !os.IsNotExist(err) {
		t.Error("partial file should have been deleted after Complete()")
	}
}

func TestWriter_Complete_InvalidStructureRetainsPartial(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	final := completeStructure()
	final.Pages = nil
	final.TotalPages = 0

	if err := w.WritePartial("sess-1", final); err != nil {
		t.Fatalf("WritePartial() error = %v", err)
	}

	result, err := w.Complete("sess-1", final)
	if err == nil {
		t.Fatal("Complete() error = nil, want structure_invalid")
	}
	appErr, ok := domain.AsAppError(err)
	if !ok || appErr.Code != domain.KindStructureInvalid {
		t.Fatalf("error = %v, want structure_invalid AppError", err)
	}
	if result.Validation.IsComplete {
		t.Error("Validation.IsComplete = true, want false")
	}

	if _, err := os.Stat(filepath.Join(root, "_partial_sess-1.json")); err != nil {
		t.Error("partial file should be retained on failed completion")
	}
	if _, err := os.Stat(filepath.Join(root, "structure-schemas", "acme-onboarding.json")); !os.IsNotExist(err) {
		t.Error("final structure file should not have been written")
	}
}

func TestWriter_WriteSchema_WritesFile(t *testing.T) {
	root := t.TempDir()
	w := mustWriter(t, root)

	schema := map[string]interface{}{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"type":    "object",
	}
	path, err := w.WriteSchema("acme-onboarding", schema)
	if err != nil {
		t.Fatalf("WriteSchema() error = %v", err)
	}

	wantPath := filepath.Join(root, "data-schemas", "acme-onboarding-schema.json")
	if path != wantPath {
		t.Errorf("path = %q, want %q", path, wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("schema file not found: %v", err)
	}
}
