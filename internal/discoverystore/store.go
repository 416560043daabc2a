// Package discoverystore implements the C4 discovery session store: a
// process-local map of live discovery sessions with idle-timeout
// reaping (spec.md §4.4). It is the only process-wide mutable
// resource the core owns (spec.md §5, §9).
package discoverystore

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizard-automation/core/internal/domain"
)

// Store is a process-local session_id -> DiscoverySession map. The
// store is authoritative for session existence: Lookup on an unknown
// id is the sole source of session_expired (spec.md §4.4).
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.DiscoverySession

	idleTimeout  time.Duration
	reapInterval time.Duration
	log          *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New builds a Store. Call Start to begin the reaper goroutine.
func New(idleTimeout, reapInterval time.Duration, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		sessions:     make(map[string]*domain.DiscoverySession),
		idleTimeout:  idleTimeout,
		reapInterval: reapInterval,
		log:          log,
		stopCh:       make(chan struct{}),
	}
}

// Create starts a new session around browser and stores it under a
// freshly generated session id.
func (s *Store) Create(browser domain.BrowserHandle) *domain.DiscoverySession {
	session := domain.NewDiscoverySession(uuid.NewString(), browser)

	s.mu.Lock()
	s.sessions[session.SessionID] = session
	s.mu.Unlock()

	s.log.Info("discovery session created", zap.String("session_id", session.SessionID))
	return session
}

// LookupOrReject resolves a session id to its session, or returns
// session_expired if the id is unknown — never launching a browser on
// this path (spec.md §8 boundary behavior).
func (s *Store) LookupOrReject(sessionID string) (*domain.DiscoverySession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionExpired(sessionID)
	}
	return session, nil
}

// Touch refreshes a session's idle clock, called on every tool call
// that carries its id.
func (s *Store) Touch(sessionID string) error {
	session, err := s.LookupOrReject(sessionID)
	if err != nil {
		return err
	}
	session.Touch()
	return nil
}

// Destroy removes and closes the session's browser, releasing its
// resources. Destroy on an unknown id is a no-op, since the reaper
// and complete_discovery may race to destroy the same session.
func (s *Store) Destroy(sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return nil
	}

	s.log.Info("discovery session destroyed", zap.String("session_id", sessionID))
	if session.Browser != nil {
		return session.Browser.Close()
	}
	return nil
}

// Count returns the number of live sessions, for observability.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Start launches the reaper goroutine, mirroring the teacher's
// ticker-driven worker lifecycle. Calling Start twice is a no-op.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.reapLoop()
	})
}

// Stop terminates the reaper goroutine and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Store) reapLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.reapOnce(time.Now())
		}
	}
}

// reapOnce destroys every session idle longer than idleTimeout. It is
// exported indirectly via Start's ticker but kept callable directly
// for deterministic tests.
func (s *Store) reapOnce(now time.Time) int {
	s.mu.RLock()
	var expired []string
	for id, session := range s.sessions {
		if session.IdleFor(now) > s.idleTimeout {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.log.Info("reaping idle discovery session", zap.String("session_id", id))
		_ = s.Destroy(id)
	}
	return len(expired)
}
