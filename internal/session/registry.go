package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Closer is per-browser state released when the browser's entry is dropped.
type Closer interface {
	Close()
}

// Entry is a signed-in browser: its Store plus lazily built per-browser
// state such as list controllers and the list builder.
type Entry struct {
	Store *Store

	mu       sync.Mutex
	slots    map[string]Closer
	lastSeen time.Time
}

func newEntry(s *Store, now time.Time) *Entry {
	return &Entry{Store: s, slots: map[string]Closer{}, lastSeen: now}
}

// Slot returns the value stored under key, calling create on first use.
func Slot[T Closer](e *Entry, key string, create func() T) T {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v, ok := e.slots[key]; ok {
		if t, ok := v.(T); ok {
			return t
		}
	}
	v := create()
	e.slots[key] = v
	return v
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()
}

func (e *Entry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen
}

// close releases every slot.
func (e *Entry) close() {
	e.mu.Lock()
	slots := e.slots
	e.slots = map[string]Closer{}
	e.mu.Unlock()
	for _, c := range slots {
		c.Close()
	}
}

// Registry caches signed-in Entries by cookie token. Logged-out Stores are
// never cached, so an anonymous request always rehydrates from scratch.
type Registry struct {
	m      *Manager
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*Entry
}

func NewRegistry(m *Manager) *Registry {
	return &Registry{
		m:       m,
		logger:  m.logger,
		entries: map[string]*Entry{},
	}
}

// Manager returns the Manager behind the registry.
func (r *Registry) Manager() *Manager { return r.m }

// Get returns the Entry for cookie. An unknown cookie is rehydrated; when
// that fails the returned Entry is logged out and not cached.
func (r *Registry) Get(ctx context.Context, cookie string) *Entry {
	now := r.m.now()
	if cookie != "" {
		r.mu.Lock()
		e, ok := r.entries[cookie]
		r.mu.Unlock()
		if ok {
			if e.Store.SignedIn() {
				e.touch(now)
				return e
			}
			r.Drop(cookie)
		}
	}

	s := r.m.New(cookie)
	s.Init(ctx)
	e := newEntry(s, now)
	if !s.SignedIn() {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.entries[cookie]; ok {
		return existing
	}
	r.entries[cookie] = e
	return e
}

// Attach caches e under its Store's current cookie token. Called after a
// login or registration changed the token.
func (r *Registry) Attach(e *Entry) {
	cookie := e.Store.CookieToken()
	if cookie == "" {
		return
	}
	e.touch(r.m.now())
	r.mu.Lock()
	old, ok := r.entries[cookie]
	r.entries[cookie] = e
	r.mu.Unlock()
	if ok && old != e {
		old.close()
	}
}

// Drop forgets cookie and releases its per-browser state.
func (r *Registry) Drop(cookie string) {
	r.mu.Lock()
	e, ok := r.entries[cookie]
	delete(r.entries, cookie)
	r.mu.Unlock()
	if ok {
		e.close()
	}
}

// Sweep drops entries that expired or were idle longer than maxIdle and
// returns how many were dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.m.now().Add(-maxIdle)
	var stale []string
	r.mu.Lock()
	for cookie, e := range r.entries {
		if !e.Store.SignedIn() || e.idleSince().Before(cutoff) {
			stale = append(stale, cookie)
		}
	}
	r.mu.Unlock()

	for _, cookie := range stale {
		r.Drop(cookie)
	}
	if len(stale) > 0 {
		r.logger.Info("swept idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Len reports how many signed-in browsers are cached.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
