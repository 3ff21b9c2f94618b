// Package session keeps the per-browser form sessions of the create-point
// page in memory.
package session

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/giovannicarmo/ecoleta-ui/internal/form"
	"github.com/giovannicarmo/ecoleta-ui/internal/model"
)

// Session is one mounted create-point page.
type Session struct {
	ID   string
	Form *form.State

	mu      sync.Mutex
	items   []model.Category
	ufs     []string
	notices []string
}

// SetCatalog replaces the categories and UF codes loaded at mount.
func (s *Session) SetCatalog(items []model.Category, ufs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = slices.Clone(items)
	s.ufs = slices.Clone(ufs)
}

// Items returns the categories loaded at mount.
func (s *Session) Items() []model.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// UFs returns the UF codes loaded at mount.
func (s *Session) UFs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ufs)
}

// AddNotice queues an error notice for the next render.
func (s *Session) AddNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, msg)
}

// TakeNotices returns and clears the queued notices.
func (s *Session) TakeNotices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notices
	s.notices = nil
	return n
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Stats contains registry statistics.
type Stats struct {
	Sessions    int   `json:"sessions"`
	MaxSessions int   `json:"max_sessions"`
	Created     int64 `json:"created"`
	Expired     int64 `json:"expired"`
}

// Registry is a concurrent-safe LRU registry of sessions with idle expiry.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*entry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	created    atomic.Int64
	expired    atomic.Int64
}

// NewRegistry creates a Registry holding at most maxEntries sessions, each
// expiring after ttl without use.
func NewRegistry(maxEntries int, ttl time.Duration) *Registry {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Create registers a fresh session whose form starts at center. When the
// registry is full the least recently used idle session is evicted; sessions
// with a submission in flight are kept even if that exceeds the limit.
func (r *Registry) Create(center model.Coordinate) *Session {
	s := &Session{
		ID:   uuid.New().String(),
		Form: form.New(center),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.entries) >= r.maxEntries {
		if !r.evictOldestIdle() {
			break
		}
	}

	r.entries[s.ID] = &entry{session: s, lastSeen: r.now()}
	r.order = append(r.order, s.ID)
	r.created.Add(1)
	return s
}

// Get returns the session with the given id, or nil when it is unknown or
// expired.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil
	}

	if r.now().Sub(e.lastSeen) > r.ttl {
		delete(r.entries, id)
		r.removeFromOrder(id)
		r.expired.Add(1)
		return nil
	}

	e.lastSeen = r.now()
	r.removeFromOrder(id)
	r.order = append(r.order, id)
	return e.session
}

// Delete removes a session.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		delete(r.entries, id)
		r.removeFromOrder(id)
	}
}

// Stats returns registry statistics.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	n := len(r.entries)
	r.mu.Unlock()

	return Stats{
		Sessions:    n,
		MaxSessions: r.maxEntries,
		Created:     r.created.Load(),
		Expired:     r.expired.Load(),
	}
}

// evictOldestIdle drops the least recently used session that has no
// submission in flight. It reports false when every session is busy.
func (r *Registry) evictOldestIdle() bool {
	for _, id := range r.order {
		if r.entries[id].session.Form.Status() == form.SubmitInFlight {
			continue
		}
		delete(r.entries, id)
		r.removeFromOrder(id)
		return true
	}
	return false
}

func (r *Registry) removeFromOrder(id string) {
	for i, k := range r.order {
		if k == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
