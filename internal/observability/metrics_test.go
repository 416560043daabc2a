package observability

import (
	"testing"
	"time"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	// None of these should panic on a nil receiver.
	m.SessionOpened()
	m.SessionClosed()
	m.RecordDiscoveryComplete(3)
	m.RecordExecution("acme-onboarding", "success", time.Second, 2)
	m.RecordPrimitive("fill", "success")
	m.RecordBrowserLaunch("chromium", "success")
}

func TestNewMetrics_RegistersDistinctCollectors(t *testing.T) {
	m := NewMetrics("wizard_automation_test_metrics")
	if m.DiscoverySessionsActive == nil {
		t.Fatal("DiscoverySessionsActive not initialized")
	}
	if m.ExecutionReplayDuration == nil {
		t.Fatal("ExecutionReplayDuration not initialized")
	}

	m.SessionOpened()
	m.RecordExecution("acme-onboarding", "success", 500*time.Millisecond, 1)
	m.RecordPrimitive("click", "success")
	m.RecordBrowserLaunch("chromium", "success")
}
