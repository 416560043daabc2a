// Package execution implements the C8 execution pipeline: the
// stateless, single-call replay of a wizard against validated user
// data (spec.md §4.8). A Pipeline is the Go-native home for the
// execute_wizard tool surface (SPEC_FULL.md §15).
package execution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wizard-automation/core/internal/actions"
	"github.com/wizard-automation/core/internal/batch"
	"github.com/wizard-automation/core/internal/browser"
	"github.com/wizard-automation/core/internal/catalog"
	"github.com/wizard-automation/core/internal/config"
	"github.com/wizard-automation/core/internal/domain"
	"github.com/wizard-automation/core/internal/observability"
	"github.com/wizard-automation/core/internal/resilience"
	"github.com/wizard-automation/core/internal/resolver"
)

// navigationBackoff implements the two-retry, exponential-backoff
// navigation policy of spec.md §4.8: one wait per retry, 250ms then 1s.
var navigationBackoff = []time.Duration{250 * time.Millisecond, time.Second}

// Pipeline executes wizards looked up from a catalog.Catalog against
// validated user data.
type Pipeline struct {
	catalog    *catalog.Catalog
	cfg        *config.Config
	breakers   *resilience.CircuitBreakerManager
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	log        *zap.Logger
	extractors *ExtractorRegistry

	// launch is overridden in tests to avoid starting a real browser.
	launch func(cfg config.BrowserConfig, timeouts config.TimeoutConfig, shots config.ScreenshotConfig, log *zap.Logger) (*browser.Driver, error)
}

// New builds a Pipeline over cfg, backed by catalog for structure+schema
// lookups.
func New(cat *catalog.Catalog, cfg *config.Config, breakers *resilience.CircuitBreakerManager, metrics *observability.Metrics, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if breakers == nil {
		breakers = resilience.NewCircuitBreakerManager()
	}
	return &Pipeline{
		catalog:    cat,
		cfg:        cfg,
		breakers:   breakers,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit.LaunchesPerSecond), cfg.RateLimit.Burst),
		metrics:    metrics,
		log:        log,
		extractors: DefaultRegistry(),
		launch:     browser.Launch,
	}
}

// Execute runs spec.md §4.8's nine-step algorithm for one
// ExecutionRequest.
func (p *Pipeline) Execute(ctx context.Context, req domain.ExecutionRequest) *domain.ExecutionResult {
	start := time.Now()

	// Step 4: L4 is the caller's ctx; L3 encloses the replay from here.
	l3 := p.cfg.Timeouts.L3()
	if req.Options.TimeoutSeconds > 0 {
		if custom := time.Duration(req.Options.TimeoutSeconds) * time.Second; custom < l3 {
			l3 = custom
		}
	}
	ctx, cancel := context.WithTimeout(ctx, l3)
	defer cancel()

	// Step 1: load structure and schema.
	structure, sch, err := p.catalog.Get(req.WizardID)
	if err != nil {
		return p.finish(req.WizardID, start, domain.ExecutionErrorResult(string(domain.KindWizardNotFound), err.Error()))
	}

	// Step 2: validate user data; neither branch below launches a browser.
	report, err := sch.Validate(req.UserData)
	if err != nil {
		return p.finish(req.WizardID, start, domain.ExecutionErrorResult(string(domain.KindInternal), err.Error()))
	}
	if len(report.Missing) > 0 {
		missing := make([]domain.MissingField, 0, len(report.Missing))
		for _, m := range report.Missing {
			missing = append(missing, domain.MissingField{FieldID: m.FieldID, Label: m.Label, Example: m.Example})
		}
		return p.finish(req.WizardID, start, domain.MissingDataResult(missing))
	}
	if len(report.Invalid) > 0 {
		invalid := make([]domain.InvalidField, 0, len(report.Invalid))
		for _, v := range report.Invalid {
			invalid = append(invalid, domain.InvalidField{FieldID: v.FieldID, Value: v.Value, Message: v.Reason})
		}
		return p.finish(req.WizardID, start, domain.SchemaValidationErrorResult(invalid))
	}

	// Step 3: build the plan.
	plan, err := resolver.Resolve(structure, req.UserData, sch)
	if err != nil {
		return p.finish(req.WizardID, start, domain.ExecutionErrorResult(string(domain.KindInternal), err.Error()))
	}

	// Step 5: launch the browser through the rate limiter and circuit
	// breaker, released on every exit path.
	driver, err := p.launchBrowser(ctx)
	if err != nil {
		return p.finish(req.WizardID, start, domain.ExecutionErrorResult(string(domain.KindBrowserCrash), err.Error()))
	}
	defer driver.Close()

	wantScreenshots := req.Options.WantsScreenshots(true)

	result := p.replay(ctx, structure, plan, driver, wantScreenshots)
	return p.finish(req.WizardID, start, result)
}

func (p *Pipeline) finish(wizardID string, start time.Time, result *domain.ExecutionResult) *domain.ExecutionResult {
	elapsed := time.Since(start)
	if result.Outcome == domain.OutcomeSuccess {
		result.ExecutionTimeMs = elapsed.Milliseconds()
	}
	p.metrics.RecordExecution(wizardID, string(result.Outcome), elapsed, result.PagesCompleted)
	return result
}

// launchBrowser gates a new Driver behind the rate limiter and the
// per-engine circuit breaker (SPEC_FULL.md §2.5/§2.6).
func (p *Pipeline) launchBrowser(ctx context.Context) (*browser.Driver, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	breaker := p.breakers.ForEngine(string(p.cfg.Browser.Engine))
	result, err := breaker.Execute(func() (interface{}, error) {
		d, err := p.launch(p.cfg.Browser, p.cfg.Timeouts, p.cfg.Screenshot, p.log)
		p.metrics.RecordBrowserLaunch(string(p.cfg.Browser.Engine), outcomeLabel(err))
		return d, err
	})
	if err != nil {
		return nil, err
	}
	return result.(*browser.Driver), nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return "failure"
}

// replay runs steps 6-9 of spec.md §4.8 against an already-launched
// driver.
func (p *Pipeline) replay(ctx context.Context, structure *domain.WizardStructure, plan []resolver.Step, driver *browser.Driver, wantScreenshots bool) *domain.ExecutionResult {
	runner := actions.NewRunner(driver.Page(), p.log)

	if err := p.navigateWithRetry(ctx, driver, structure.URL); err != nil {
		return domain.ExecutionErrorResult(string(domain.KindNavigationFailed), err.Error())
	}

	if structure.StartAction != nil {
		if err := runner.Run(ctx, actions.Action{
			Interaction: domain.InteractionClick,
			Target:      actions.Target{Selector: structure.StartAction.Selector, Alternatives: structure.StartAction.SelectorAlternatives},
		}); err != nil {
			return domain.ExecutionErrorResult(string(domain.KindElementNotInteractable), err.Error())
		}
		if structure.StartAction.WaitForNetworkIdle {
			driver.WaitForNetworkIdle()
		}
	}

	var screenshots []domain.Screenshot
	var warnings []string
	var results []domain.PageResult
	pagesCompleted := 0

	stepsByPage := groupByPage(plan)

	for pageIndex, page := range structure.Pages {
		if ctx.Err() != nil {
			return domain.ExecutionErrorResult(domain.KindTimeoutL3, ctx.Err().Error())
		}

		exec := batch.NewExecutor(stepsToActionRunner{runner, p.metrics}, driver, p.log)
		pageActions := actionsFor(stepsByPage[pageIndex])

		batchResult, err := exec.Run(ctx, pageActions)
		if err != nil {
			return domain.ExecutionErrorResult(string(domain.KindBrowserCrash), err.Error())
		}
		if wantScreenshots && batchResult.Screenshot != nil {
			screenshots = append(screenshots, domain.Screenshot{
				PageNumber: page.PageNumber,
				Label:      page.PageTitle,
				JPEGBytes:  batchResult.Screenshot,
				ByteSize:   len(batchResult.Screenshot),
			})
		}
		if batchResult.FailedAction != nil {
			return domain.ExecutionErrorResult(string(domain.KindElementNotFound), batchResult.FailedAction.Error)
		}

		if messages := p.pageValidationErrors(driver); len(messages) > 0 {
			return domain.ValidationErrorResult(page.PageNumber, messages, screenshots)
		}

		results = append(results, domain.PageResult{PageNumber: page.PageNumber, Completed: true})
		pagesCompleted++

		if page.ContinueButton != nil {
			if err := runner.Run(ctx, actions.Action{
				Interaction: domain.InteractionClick,
				Target:      actions.Target{Selector: page.ContinueButton.Selector, Alternatives: page.ContinueButton.SelectorAlternatives},
			}); err != nil {
				return domain.ExecutionErrorResult(string(domain.KindElementNotInteractable), err.Error())
			}
			if err := driver.WaitForNetworkIdle(); err != nil {
				return domain.ExecutionErrorResult(string(domain.KindNavigationFailed), err.Error())
			}
		}
	}

	extracted, extractWarning, extractShot := p.extractors.Extract(structure.WizardID, driver)
	if extractWarning != "" {
		warnings = append(warnings, extractWarning)
	}
	if wantScreenshots && extractShot != nil {
		screenshots = append(screenshots, *extractShot)
	}

	success := domain.Success(pagesCompleted, results, 0, screenshots)
	success.ExtractedData = extracted
	success.Warnings = warnings
	return success
}

// navigateWithRetry implements spec.md §4.8's two-retry,
// exponential-backoff navigation policy.
func (p *Pipeline) navigateWithRetry(ctx context.Context, driver *browser.Driver, url string) error {
	var lastErr error
	for attempt := 0; attempt <= len(navigationBackoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(navigationBackoff[attempt-1]):
			}
		}
		if err := driver.Goto(url); err != nil {
			lastErr = err
			p.log.Warn("navigation attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return nil
	}
	return lastErr
}

// pageValidationErrors inspects the DOM for a configurable error
// selector, defaulted to common validation-message patterns
// (spec.md §4.8 step 7c).
func (p *Pipeline) pageValidationErrors(driver *browser.Driver) []string {
	raw, err := driver.EvaluateJS(`
		Array.from(document.querySelectorAll('.error, .field-error, [role="alert"], .invalid-feedback'))
			.map(el => el.textContent.trim())
			.filter(t => t.length > 0)
	`)
	if err != nil {
		p.log.Warn("validation-error DOM inspection failed", zap.Error(err))
		return nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var messages []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			messages = append(messages, s)
		}
	}
	return messages
}

func groupByPage(plan []resolver.Step) map[int][]resolver.Step {
	out := make(map[int][]resolver.Step)
	for _, step := range plan {
		out[step.PageIndex] = append(out[step.PageIndex], step)
	}
	return out
}

func actionsFor(steps []resolver.Step) []actions.Action {
	out := make([]actions.Action, 0, len(steps))
	for _, s := range steps {
		out = append(out, s.Action)
	}
	return out
}

// stepsToActionRunner adapts actions.Runner into batch.ActionRunner
// while recording per-primitive outcome metrics (SPEC_FULL.md §2.4).
type stepsToActionRunner struct {
	runner  *actions.Runner
	metrics *observability.Metrics
}

func (s stepsToActionRunner) Run(ctx context.Context, action actions.Action) error {
	err := s.runner.Run(ctx, action)
	s.metrics.RecordPrimitive(string(action.Interaction), outcomeLabel(err))
	return err
}
