// Package batch implements the C3 batch executor: a sequence of
// heterogeneous actions run against one session's current page, with
// exactly one closing screenshot and halt-on-first-failure reporting
// (spec.md §4.3).
package batch

import (
	"context"

	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/actions"
)

// Screenshotter captures the single closing screenshot. The browser
// driver satisfies this; batch never touches playwright directly.
type Screenshotter interface {
	Screenshot() ([]byte, error)
}

// ActionRunner dispatches one action.Action. *actions.Runner
// satisfies this; the indirection lets batch be tested without a
// live browser page.
type ActionRunner interface {
	Run(ctx context.Context, action actions.Action) error
}

// FailedAction reports the action a batch halted on (spec.md §4.3).
type FailedAction struct {
	Index    int    `json:"index"`
	Error    string `json:"error"`
	Locator  string `json:"locator"`
}

// Result is the batch outcome returned to the driver's
// execute_actions tool call.
type Result struct {
	Completed    int           `json:"completed"`
	Total        int           `json:"total"`
	FailedAction *FailedAction `json:"failed_action,omitempty"`
	Screenshot   []byte        `json:"-"`
}

// Executor runs batches of actions.Action sequentially.
type Executor struct {
	runner     ActionRunner
	screenshot Screenshotter
	log        *zap.Logger
}

// NewExecutor builds an Executor over runner, capturing its closing
// screenshot via screenshotter.
func NewExecutor(runner ActionRunner, screenshotter Screenshotter, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{runner: runner, screenshot: screenshotter, log: log}
}

// Run executes batch in request order — never reordered — halting on
// the first failure. Exactly one screenshot is captured after the
// final action succeeds or the batch halts; a zero-length batch still
// captures one screenshot of the unchanged page (spec.md §8 boundary
// behavior). ctx is checked before every action so an enclosing
// deadline halts the batch instead of running it to completion.
func (e *Executor) Run(ctx context.Context, batch []actions.Action) (*Result, error) {
	result := &Result{Total: len(batch)}

	for i, action := range batch {
		if ctx.Err() != nil {
			result.FailedAction = &FailedAction{Index: i, Error: ctx.Err().Error(), Locator: action.Target.Selector}
			break
		}
		if err := e.runner.Run(ctx, action); err != nil {
			result.FailedAction = &FailedAction{
				Index:   i,
				Error:   err.Error(),
				Locator: action.Target.Selector,
			}
			e.log.Warn("batch halted on action failure",
				zap.Int("index", i),
				zap.Int("total", len(batch)),
				zap.String("locator", action.Target.Selector),
				zap.Error(err),
			)
			break
		}
		result.Completed++
	}

	shot, err := e.screenshot.Screenshot()
	if err != nil {
		return result, err
	}
	result.Screenshot = shot

	return result, nil
}
