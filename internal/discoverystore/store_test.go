package discoverystore

import (
	"testing"
	"time"

	"github.com/wizard-automation/core/internal/domain"
)

type fakeBrowser struct {
	closed bool
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	return nil
}

func TestStore_CreateAndLookup(t *testing.T) {
	s := New(30*time.Minute, time.Minute, nil)

	session := s.Create(&fakeBrowser{})
	got, err := s.LookupOrReject(session.SessionID)
	if err != nil {
		t.Fatalf("LookupOrReject() error = %v", err)
	}
	if got != session {
		t.Error("LookupOrReject() returned a different session")
	}
}

func TestStore_LookupOrReject_UnknownID(t *testing.T) {
	s := New(30*time.Minute, time.Minute, nil)

	_, err := s.LookupOrReject("does-not-exist")
	appErr, ok := domain.AsAppError(err)
	if !ok || appErr.Code != domain.KindSessionExpired {
		t.Fatalf("error = %v, want session_expired AppError", err)
	}
}

func TestStore_Touch_UpdatesActivity(t *testing.T) {
	s := New(30*time.Minute, time.Minute, nil)
	session := s.Create(&fakeBrowser{})
	session.LastActivityAt = time.Now().Add(-time.Hour)

	if err := s.Touch(session.SessionID); err != nil {
		t.Fatalf("Touch() error = %v", err)
	}
	if time.Since(session.LastActivityAt) > time.Second {
		t.Error("Touch() should have refreshed LastActivityAt")
	}
}

func TestStore_Destroy_ClosesBrowserAndRemoves(t *testing.T) {
	s := New(30*time.Minute, time.Minute, nil)
	browser := &fakeBrowser{}
	session := s.Create(browser)

	if err := s.Destroy(session.SessionID); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}
	if !browser.closed {
		t.Error("Destroy() should close the browser handle")
	}
	if _, err := s.LookupOrReject(session.SessionID); err == nil {
		t.Error("session should no longer be found after Destroy()")
	}
}

func TestStore_Destroy_UnknownIDIsNoOp(t *testing.T) {
	s := New(30*time.Minute, time.Minute, nil)
	if err := s.Destroy("never-existed"); err != nil {
		t.Errorf("Destroy() on unknown id error = %v, want nil", err)
	}
}

func TestStore_ReapOnce_RemovesOnlyIdleSessions(t *testing.T) {
	s := New(10*time.Minute, time.Minute, nil)

	fresh := s.Create(&fakeBrowser{})
	idleBrowser := &fakeBrowser{}
	idle := s.Create(idleBrowser)
	idle.LastActivityAt = time.Now().Add(-time.Hour)

	reaped := s.reapOnce(time.Now())
	if reaped != 1 {
		t.Fatalf("reapOnce() reaped %d sessions, want 1", reaped)
	}
	if !idleBrowser.closed {
		t.Error("idle session's browser should be closed")
	}
	if _, err := s.LookupOrReject(fresh.SessionID); err != nil {
		t.Error("fresh session should survive reaping")
	}
	if _, err := s.LookupOrReject(idle.SessionID); err == nil {
		t.Error("idle session should have been reaped")
	}
}

func TestStore_StartStop_ReapsInBackground(t *testing.T) {
	s := New(20*time.Millisecond, 10*time.Millisecond, nil)
	browser := &fakeBrowser{}
	session := s.Create(browser)
	session.LastActivityAt = time.Now().Add(-time.Hour)

	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if browser.closed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("background reaper never closed the idle session's browser")
}

func TestStore_Count(t *testing.T) {
	s := New(30*time.Minute, time.Minute, nil)
	if s.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", s.Count())
	}
	s.Create(&fakeBrowser{})
	s.Create(&fakeBrowser{})
	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}
