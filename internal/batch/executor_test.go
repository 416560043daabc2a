package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/wizard-automation/core/internal/actions"
	"github.com/wizard-automation/core/internal/domain"
)

type fakeRunner struct {
	failAt int // -1 means never fail
	calls  []actions.Action
}

func (f *fakeRunner) Run(ctx context.Context, action actions.Action) error {
	f.calls = append(f.calls, action)
	if f.failAt >= 0 && len(f.calls)-1 == f.failAt {
		return domain.ErrElementNotFound(action.Target.Selector)
	}
	return nil
}

type fakeScreenshotter struct {
	calls int
	data  []byte
	err   error
}

func (f *fakeScreenshotter) Screenshot() ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func someActions(n int) []actions.Action {
	out := make([]actions.Action, n)
	for i := range out {
		out[i] = actions.Action{
			Interaction: domain.InteractionFill,
			Target:      actions.Target{Selector: "#field"},
			Value:       "x",
		}
	}
	return out
}

func TestExecutor_Run_AllSucceed(t *testing.T) {
	runner := &fakeRunner{failAt: -1}
	shots := &fakeScreenshotter{data: []byte("jpeg")}
	exec := NewExecutor(runner, shots, nil)

	result, err := exec.Run(context.Background(), someActions(3))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Completed != 3 || result.Total != 3 {
		t.Errorf("Completed/Total = %d/%d, want 3/3", result.Completed, result.Total)
	}
	if result.FailedAction != nil {
		t.Errorf("FailedAction = %v, want nil", result.FailedAction)
	}
	if shots.calls != 1 {
		t.Errorf("screenshot calls = %d, want exactly 1", shots.calls)
	}
}

func TestExecutor_Run_HaltsOnFirstFailure(t *testing.T) {
	runner := &fakeRunner{failAt: 1}
	shots := &fakeScreenshotter{data: []byte("jpeg")}
	exec := NewExecutor(runner, shots, nil)

	result, err := exec.Run(context.Background(), someActions(4))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Completed != 1 {
		t.Errorf("Completed = %d, want 1", result.Completed)
	}
	if result.Total != 4 {
		t.Errorf("Total = %d, want 4", result.Total)
	}
	if result.FailedAction == nil || result.FailedAction.Index != 1 {
		t.Fatalf("FailedAction = %v, want index 1", result.FailedAction)
	}
	if len(runner.calls) != 2 {
		t.Errorf("runner was called %d times, want exactly 2 (halt after failure)", len(runner.calls))
	}
	if shots.calls != 1 {
		t.Errorf("screenshot calls = %d, want exactly 1 even on halt", shots.calls)
	}
}

func TestExecutor_Run_EmptyBatchStillCapturesOneScreenshot(t *testing.T) {
	runner := &fakeRunner{failAt: -1}
	shots := &fakeScreenshotter{data: []byte("jpeg")}
	exec := NewExecutor(runner, shots, nil)

	result, err := exec.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Completed != 0 || result.Total != 0 {
		t.Errorf("Completed/Total = %d/%d, want 0/0", result.Completed, result.Total)
	}
	if shots.calls != 1 {
		t.Errorf("screenshot calls = %d, want exactly 1", shots.calls)
	}
}

func TestExecutor_Run_ScreenshotErrorPropagates(t *testing.T) {
	runner := &fakeRunner{failAt: -1}
	shots := &fakeScreenshotter{err: errors.New("capture failed")}
	exec := NewExecutor(runner, shots, nil)

	_, err := exec.Run(context.Background(), someActions(1))
	if err == nil {
		t.Fatal("expected screenshot error to propagate")
	}
}

func TestExecutor_Run_CancelledContextHaltsBeforeFirstAction(t *testing.T) {
	runner := &fakeRunner{failAt: -1}
	shots := &fakeScreenshotter{data: []byte("jpeg")}
	exec := NewExecutor(runner, shots, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := exec.Run(ctx, someActions(3))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Completed != 0 {
		t.Errorf("Completed = %d, want 0", result.Completed)
	}
	if result.FailedAction == nil || result.FailedAction.Index != 0 {
		t.Fatalf("FailedAction = %v, want index 0", result.FailedAction)
	}
	if len(runner.calls) != 0 {
		t.Errorf("runner was called %d times, want 0 (cancelled before any action ran)", len(runner.calls))
	}
}
