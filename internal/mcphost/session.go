// Package mcphost implements the thin MCP host shim of spec.md §6:
// one synchronous tool per core operation, backed by an in-memory
// registry of open workbooks. Grounded on mcpxcel's
// internal/workbooks.Manager, adapted from a path-keyed *excelize.File
// cache into a uuid-keyed *workbook.Workbook + *eval.Evaluator cache —
// this module never opens a file itself, it only ever receives a
// workbook through jsonio.Load (§6's JSON document boundary).
package mcphost

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/cellforge/gscalc/eval"
	"github.com/cellforge/gscalc/workbook"
)

// DefaultSessionTTL is how long an idle session survives before
// eviction. Ground: mcpxcel's config.DefaultWorkbookIdleTTL, a value
// this module has no equivalent config package for, so it is declared
// locally instead.
const DefaultSessionTTL = 30 * time.Minute

// DefaultCleanupPeriod is how often the eviction sweep runs.
const DefaultCleanupPeriod = 5 * time.Minute

// ErrSessionNotFound indicates an unknown or expired session ID.
var ErrSessionNotFound = errors.New("mcphost: session not found")

// session pairs one open workbook with the evaluator that owns its
// dependency cache, guarded by its own lock so concurrent tool calls
// against different sessions never contend.
type session struct {
	id        string
	wb        *workbook.Workbook
	ev        *eval.Evaluator
	loadedAt  time.Time
	expiresAt time.Time
	mu        sync.RWMutex
}

// SessionManager is the registry every MCP tool handler goes through to
// reach a workbook. Capacity is bounded by a weighted semaphore rather
// than an unbounded map, the same posture mcpxcel's runtime.Controller
// takes for MaxOpenWorkbooks.
type SessionManager struct {
	mu           sync.RWMutex
	sessions     map[string]*session
	ttl          time.Duration
	cleanupEvery time.Duration
	gate         *semaphore.Weighted
	stopCh       chan struct{}
	cleanupWG    sync.WaitGroup
}

// NewSessionManager constructs a registry capped at maxOpen concurrently
// resident workbooks.
func NewSessionManager(maxOpen int64, ttl, cleanupEvery time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = DefaultCleanupPeriod
	}
	return &SessionManager{
		sessions:     make(map[string]*session),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		gate:         semaphore.NewWeighted(maxOpen),
		stopCh:       make(chan struct{}),
	}
}

// Start launches the background idle-eviction sweep.
func (m *SessionManager) Start() {
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.EvictExpired()
			}
		}
	}()
}

// Close stops the eviction sweep and releases every session's gate slot.
func (m *SessionManager) Close() {
	close(m.stopCh)
	m.cleanupWG.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.sessions {
		delete(m.sessions, id)
		m.gate.Release(1)
	}
}

// Open registers wb under a fresh session ID, blocking until a gate
// slot is available or ctx is canceled.
func (m *SessionManager) Open(ctx context.Context, wb *workbook.Workbook) (string, error) {
	if err := m.gate.Acquire(ctx, 1); err != nil {
		return "", err
	}
	ev := eval.New(wb)
	now := time.Now()
	id := uuid.NewString()
	s := &session{id: id, wb: wb, ev: ev, loadedAt: now, expiresAt: now.Add(m.ttl)}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return id, nil
}

func (m *SessionManager) get(id string) (*session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.expiresAt = time.Now().Add(m.ttl)
	s.mu.Unlock()
	return s, true
}

// WithRead obtains a shared lock on the session and runs fn against its
// workbook and evaluator.
func (m *SessionManager) WithRead(id string, fn func(*workbook.Workbook, *eval.Evaluator) error) error {
	s, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.wb, s.ev)
}

// WithWrite obtains an exclusive lock on the session and runs fn
// against its workbook and evaluator.
func (m *SessionManager) WithWrite(id string, fn func(*workbook.Workbook, *eval.Evaluator) error) error {
	s, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.wb, s.ev)
}

// CloseSession removes a session and frees its gate slot.
func (m *SessionManager) CloseSession(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.gate.Release(1)
	return nil
}

// EvictExpired drops every session whose TTL has lapsed.
func (m *SessionManager) EvictExpired() int {
	now := time.Now()
	var evicted []string
	m.mu.RLock()
	for id, s := range m.sessions {
		s.mu.RLock()
		expired := now.After(s.expiresAt)
		s.mu.RUnlock()
		if expired {
			evicted = append(evicted, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range evicted {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		m.gate.Release(1)
	}
	return len(evicted)
}

// Count reports the number of resident sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
