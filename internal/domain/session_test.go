package domain

import (
	"testing"
	"time"
)

type fakeBrowserHandle struct {
	closed bool
}

func (f *fakeBrowserHandle) Close() error {
	f.closed = true
	return nil
}

func TestNewDiscoverySession(t *testing.T) {
	handle := &fakeBrowserHandle{}
	s := NewDiscoverySession("sess-1", handle)

	if s.State != SessionActive {
		t.Errorf("State = %v, want %v", s.State, SessionActive)
	}
	if s.CreatedAt != s.LastActivityAt {
		t.Error("CreatedAt and LastActivityAt should start equal")
	}
}

func TestDiscoverySession_Touch(t *testing.T) {
	s := NewDiscoverySession("sess-1", &fakeBrowserHandle{})
	before := s.LastActivityAt
	time.Sleep(time.Millisecond)
	s.Touch()

	if !s.LastActivityAt.After(before) {
		t.Error("Touch() should advance LastActivityAt")
	}
}

func TestDiscoverySession_IdleFor(t *testing.T) {
	s := NewDiscoverySession("sess-1", &fakeBrowserHandle{})
	s.LastActivityAt = time.Now().Add(-90 * time.Second)

	if got := s.IdleFor(time.Now()); got < 89*time.Second {
		t.Errorf("IdleFor() = %v, want >= 89s", got)
	}
}

func TestDiscoverySession_SavePage_OverwritesSameNumber(t *testing.T) {
	s := NewDiscoverySession("sess-1", &fakeBrowserHandle{})

	s.SavePage(Page{PageNumber: 1, PageTitle: "first save"})
	s.SavePage(Page{PageNumber: 2, PageTitle: "page two"})
	s.SavePage(Page{PageNumber: 1, PageTitle: "second save, same page number"})

	if len(s.PagesDiscovered) != 2 {
		t.Fatalf("len(PagesDiscovered) = %d, want 2", len(s.PagesDiscovered))
	}
	if s.PagesDiscovered[0].PageTitle != "second save, same page number" {
		t.Errorf("page 1 title = %q, want later save to win", s.PagesDiscovered[0].PageTitle)
	}
}

func TestDiscoverySession_ToPartialStructure(t *testing.T) {
	s := NewDiscoverySession("sess-abcdefghij", &fakeBrowserHandle{})
	s.SavePage(Page{PageNumber: 1})

	partial := s.ToPartialStructure("https://example.com/wizard", "1.0.0", nil)

	if partial.Name != "[IN PROGRESS]" {
		t.Errorf("Name = %q, want [IN PROGRESS]", partial.Name)
	}
	if partial.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", partial.TotalPages)
	}
	if len(partial.WizardID) == 0 {
		t.Error("WizardID should not be empty")
	}
}
