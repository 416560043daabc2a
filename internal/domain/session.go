package domain

import "time"

// SessionState is the lifecycle state of a DiscoverySession (spec.md §3).
type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionReaping SessionState = "reaping"
)

// BrowserHandle is implemented by the C1 browser driver. It is the
// seam domain.DiscoverySession uses to own a live browser context
// without the domain package importing playwright directly.
type BrowserHandle interface {
	Close() error
}

// DiscoverySession is a single in-flight discovery conversation (one
// browser context) tracked by the C4 session store.
type DiscoverySession struct {
	SessionID       string
	Browser         BrowserHandle
	PagesDiscovered []Page
	CreatedAt       time.Time
	LastActivityAt  time.Time
	State           SessionState
}

// NewDiscoverySession starts a new active session around browser.
func NewDiscoverySession(sessionID string, browser BrowserHandle) *DiscoverySession {
	now := time.Now()
	return &DiscoverySession{
		SessionID:      sessionID,
		Browser:        browser,
		CreatedAt:      now,
		LastActivityAt: now,
		State:          SessionActive,
	}
}

// Touch refreshes the idle clock; called on every tool call that
// references the session (spec.md §4.4).
func (s *DiscoverySession) Touch() {
	s.LastActivityAt = time.Now()
}

// IdleFor reports how long the session has gone without activity.
func (s *DiscoverySession) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivityAt)
}

// SavePage upserts a page by page number; a later save for the same
// page number overwrites the earlier one (spec.md §8 save-and-complete
// idempotence law).
func (s *DiscoverySession) SavePage(page Page) {
	for i, existing := range s.PagesDiscovered {
		if existing.PageNumber == page.PageNumber {
			s.PagesDiscovered[i] = page
			return
		}
	}
	s.PagesDiscovered = append(s.PagesDiscovered, page)
}

// ToPartialStructure assembles the best-effort structure written by
// C5 after every save_page_metadata call.
func (s *DiscoverySession) ToPartialStructure(url, discoveryVersion string, startAction *ClickSpec) *WizardStructure {
	pages := make([]Page, len(s.PagesDiscovered))
	copy(pages, s.PagesDiscovered)
	return &WizardStructure{
		WizardID:         "partial-" + shortSessionPrefix(s.SessionID),
		Name:             "[IN PROGRESS]",
		URL:              url,
		DiscoveredAt:     time.Now().UTC(),
		DiscoveryVersion: discoveryVersion,
		TotalPages:       len(pages),
		StartAction:      startAction,
		Pages:            pages,
	}
}

func shortSessionPrefix(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8]
}
