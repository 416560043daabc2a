// Package actions implements the C2 action primitives: five typed
// browser actions with deterministic semantics, a per-primitive
// single-retry-with-alternatives failure policy, and a uniform error
// shape (spec.md §4.2).
package actions

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/domain"
)

// retryWait is the fixed back-off between a primitive's first attempt
// and its single retry (spec.md §4.2: "retry once with a 500 ms wait").
const retryWait = 500 * time.Millisecond

// typeaheadSettle is how long fill_enter waits for suggestions to
// render before pressing Enter (spec.md §4.2).
const typeaheadSettle = 500 * time.Millisecond

// Target names the element an action operates on: a primary selector
// plus ordered fallbacks, tried in order on failure (spec.md §4.2).
type Target struct {
	Selector     string
	Alternatives []string
}

func (t Target) candidates() []string {
	return append([]string{t.Selector}, t.Alternatives...)
}

// Action is one request dispatched through the closed interaction
// enum via Run's switch statement, never a string-keyed map
// (spec.md §9).
type Action struct {
	Interaction domain.Interaction
	Target      Target
	Value       string // fill/fill_enter value, or select's option value/label
}

// Runner executes the five primitives against a live page.
type Runner struct {
	page playwright.Page
	log  *zap.Logger
}

// NewRunner builds a Runner bound to page.
func NewRunner(page playwright.Page, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{page: page, log: log}
}

// Run dispatches action to its primitive implementation, applying the
// single-retry-with-alternatives policy uniformly across all five.
// ctx bounds the retry loop: an expired ctx is surfaced immediately
// instead of silently extending a batch past its enclosing layer
// (spec.md §4.8 "Cancellation and timeouts").
func (r *Runner) Run(ctx context.Context, action Action) error {
	switch action.Interaction {
	case domain.InteractionFill:
		return r.withRetry(ctx, action, r.fill)
	case domain.InteractionFillEnter:
		return r.withRetry(ctx, action, r.fillEnter)
	case domain.InteractionClick:
		return r.withRetry(ctx, action, r.click)
	case domain.InteractionJavascriptClick:
		return r.withRetry(ctx, action, r.javascriptClick)
	case domain.InteractionSelect:
		return r.withRetry(ctx, action, r.selectOption)
	default:
		return domain.ErrInternal("unknown interaction: "+string(action.Interaction), nil)
	}
}

// primitiveFunc performs one primitive against one concrete selector.
type primitiveFunc func(selector, value string) error

// withRetry implements spec.md §4.2's failure handling: try the
// primary selector, retry once after 500ms, then try each alternative
// (each with its own single retry) before surfacing a structured
// element_not_found/element_not_interactable error. ctx is checked
// before every attempt and during the backoff wait so an enclosing
// deadline cascades into the retry loop rather than being silently
// outlived by it.
func (r *Runner) withRetry(ctx context.Context, action Action, fn primitiveFunc) error {
	var lastErr error
	for _, selector := range action.Target.candidates() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(selector, action.Value); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryWait):
		}
		if err := fn(selector, action.Value); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	r.log.Warn("primitive exhausted all selectors",
		zap.String("interaction", string(action.Interaction)),
		zap.String("selector", action.Target.Selector),
		zap.Strings("alternatives", action.Target.Alternatives),
		zap.Error(lastErr),
	)

	if action.Interaction == domain.InteractionJavascriptClick || action.Interaction == domain.InteractionClick {
		return domain.ErrElementNotInteractable(action.Target.Selector, string(action.Interaction)).WithCause(lastErr)
	}
	return domain.ErrElementNotFound(action.Target.Selector).WithCause(lastErr)
}

func (r *Runner) fill(selector, value string) error {
	locator := r.page.Locator(selector)
	if err := locator.Clear(); err != nil {
		return err
	}
	return locator.Fill(value)
}

func (r *Runner) fillEnter(selector, value string) error {
	locator := r.page.Locator(selector)
	if err := locator.Fill(value); err != nil {
		return err
	}
	r.page.WaitForTimeout(float64(typeaheadSettle.Milliseconds()))
	return locator.Press("Enter")
}

func (r *Runner) click(selector, _ string) error {
	return r.page.Locator(selector).Click()
}

func (r *Runner) javascriptClick(selector, _ string) error {
	_, err := r.page.Evaluate(
		`(sel) => { const el = document.querySelector(sel); if (!el) throw new Error('not found'); el.click(); }`,
		selector,
	)
	return err
}

func (r *Runner) selectOption(selector, value string) error {
	locator := r.page.Locator(selector)
	_, err := locator.SelectOption(playwright.SelectOptionValues{
		Values: &[]string{value},
	})
	if err != nil {
		// Fall back to matching by visible label when value-matching fails,
		// since discovery records whichever the page actually exposed.
		_, labelErr := locator.SelectOption(playwright.SelectOptionValues{
			Labels: &[]string{value},
		})
		if labelErr != nil {
			return err
		}
	}
	return nil
}

// SelectPrimitive implements spec.md §4.2a's primitive-selection
// heuristic, used by discovery when recording a newly-seen field's
// interaction. Execution never calls this: the structure already
// records the decision explicitly.
func SelectPrimitive(fieldType domain.FieldType, idOrClass string, hidden bool) domain.Interaction {
	switch fieldType {
	case domain.FieldTypeSelect:
		return domain.InteractionSelect
	case domain.FieldTypeTypeahead:
		return domain.InteractionFillEnter
	case domain.FieldTypeRadio, domain.FieldTypeCheckbox:
		if hidden {
			return domain.InteractionJavascriptClick
		}
		return domain.InteractionClick
	default:
		lower := strings.ToLower(idOrClass)
		if strings.Contains(lower, "typeahead") || strings.Contains(lower, "autocomplete") {
			return domain.InteractionFillEnter
		}
		return domain.InteractionFill
	}
}
