package execution

import (
	"context"

	"github.com/wizard-automation/core/internal/catalog"
	"github.com/wizard-automation/core/internal/domain"
)

// Service exposes the execution tool surface (spec.md §6): listing and
// describing wizards from the C9 catalog, and replaying one through
// the C8 Pipeline.
type Service struct {
	catalog  *catalog.Catalog
	pipeline *Pipeline
}

// NewService builds a Service over cat and pipeline.
func NewService(cat *catalog.Catalog, pipeline *Pipeline) *Service {
	return &Service{catalog: cat, pipeline: pipeline}
}

// ListWizards returns every wizard currently available for execution.
func (s *Service) ListWizards() ([]catalog.Summary, error) {
	return s.catalog.List()
}

// WizardInfo is the output of GetWizardInfo.
type WizardInfo struct {
	Structure *domain.WizardStructure
	Schema    map[string]interface{}
}

// GetWizardInfo returns wizardID's structure summary and full
// user-data schema, or wizard_not_found.
func (s *Service) GetWizardInfo(wizardID string) (*WizardInfo, error) {
	structure, sch, err := s.catalog.Get(wizardID)
	if err != nil {
		return nil, err
	}
	return &WizardInfo{Structure: structure, Schema: sch.Describe()}, nil
}

// ExecuteWizard replays wizardID against userData under options,
// returning the tagged-union ExecutionResult (spec.md §7). This never
// returns a Go error: every failure mode is represented in the result.
func (s *Service) ExecuteWizard(ctx context.Context, wizardID string, userData map[string]interface{}, options domain.ExecutionOptions) *domain.ExecutionResult {
	return s.pipeline.Execute(ctx, domain.ExecutionRequest{WizardID: wizardID, UserData: userData, Options: options})
}
