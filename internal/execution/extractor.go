package execution

import (
	"github.com/wizard-automation/core/internal/browser"
	"github.com/wizard-automation/core/internal/domain"
)

// resultsRegionSelector is the default results-region selector the
// fallback extractor reads visible text from (spec.md §4.8 step 8).
const resultsRegionSelector = "main, #results, .results, [role=\"main\"]"

// Extractor pulls structured data off a wizard's results page.
// Extraction failures are non-fatal: an Extractor should prefer
// returning a warning string over an error (spec.md §4.8 step 8).
type Extractor func(driver *browser.Driver) (data map[string]interface{}, warning string, screenshot *domain.Screenshot)

// ExtractorRegistry maps wizard_id to its Extractor, falling back to a
// generic screenshot-plus-visible-text extractor (spec.md §4.8,
// "classifyPage/classifyFormType" taxonomy generalized to a registry).
type ExtractorRegistry struct {
	byWizardID map[string]Extractor
	fallback   Extractor
}

// DefaultRegistry returns a registry with no per-wizard overrides,
// using DefaultExtractor for every wizard_id.
func DefaultRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{
		byWizardID: make(map[string]Extractor),
		fallback:   DefaultExtractor,
	}
}

// Register installs a per-wizard extractor, overriding the fallback
// for that wizard_id.
func (r *ExtractorRegistry) Register(wizardID string, extractor Extractor) {
	r.byWizardID[wizardID] = extractor
}

// Extract dispatches to wizardID's registered extractor or the
// fallback.
func (r *ExtractorRegistry) Extract(wizardID string, driver *browser.Driver) (map[string]interface{}, string, *domain.Screenshot) {
	if extractor, ok := r.byWizardID[wizardID]; ok {
		return extractor(driver)
	}
	return r.fallback(driver)
}

// DefaultExtractor returns a results screenshot and the visible text
// of the designated results region, per spec.md §4.8 step 8's
// fallback behavior.
func DefaultExtractor(driver *browser.Driver) (map[string]interface{}, string, *domain.Screenshot) {
	shot, shotErr := driver.Screenshot()

	raw, err := driver.EvaluateJS(
		`(sel) => { const el = document.querySelector(sel); return el ? el.textContent.trim() : ""; }`,
		resultsRegionSelector,
	)
	if err != nil {
		return nil, "result extraction failed: " + err.Error(), screenshotOrNil(shot, shotErr)
	}

	text, _ := raw.(string)
	data := map[string]interface{}{"results_text": text}

	warning := ""
	if shotErr != nil {
		warning = "results screenshot failed: " + shotErr.Error()
	}
	return data, warning, screenshotOrNil(shot, shotErr)
}

func screenshotOrNil(data []byte, err error) *domain.Screenshot {
	if err != nil || data == nil {
		return nil
	}
	return &domain.Screenshot{Label: "results", JPEGBytes: data, ByteSize: len(data)}
}
