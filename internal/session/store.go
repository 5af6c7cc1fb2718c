// Package session owns the signed-in identity of each browser and the
// per-browser application state built on top of it.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/model"
)

// Phase is the lifecycle position of a Store.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseReady
	PhaseTornDown
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseReady:
		return "ready"
	case PhaseTornDown:
		return "torn_down"
	}
	return "unknown"
}

// Repository persists sessions. *store.SessionStore implements it.
type Repository interface {
	Create(backendToken string, identity model.Identity, expiresAt time.Time) (*model.Session, error)
	GetByToken(token string) (*model.Session, error)
	BackendToken(sess *model.Session) (string, error)
	UpdateIdentity(id int64, identity model.Identity) error
	Delete(id int64) error
}

// Manager builds Stores. It is shared by every request.
type Manager struct {
	repo   Repository
	client *api.Client
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(repo Repository, client *api.Client, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:   repo,
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "session"),
		now:    time.Now,
	}
}

// New returns a Store in PhaseInit for the given cookie token, which may be
// empty.
func (m *Manager) New(cookieToken string) *Store {
	return &Store{m: m, cookie: cookieToken}
}

// expiry is the configured TTL, cut short by the token's own exp claim.
func (m *Manager) expiry(token string) time.Time {
	exp := m.now().Add(m.ttl)
	if tokExp, ok := api.TokenExpiry(token); ok && tokExp.Before(exp) {
		exp = tokExp
	}
	return exp
}

// Store is one browser's identity. It never surfaces rehydration failures:
// a bad or expired token simply leaves the Store logged out.
type Store struct {
	m *Manager

	mu      sync.Mutex
	phase   Phase
	loading bool
	cookie  string
	sess    *model.Session
	token   string
}

// Init rehydrates the persisted session by asking the backend who the token
// belongs to. Any failure ends Ready with no identity.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	if s.phase != PhaseInit {
		s.mu.Unlock()
		return
	}
	s.loading = true
	cookie := s.cookie
	s.mu.Unlock()

	sess, token := s.rehydrate(ctx, cookie)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if s.phase != PhaseInit {
		return
	}
	s.phase = PhaseReady
	s.sess, s.token = sess, token
	if sess == nil {
		s.cookie = ""
	}
}

func (s *Store) rehydrate(ctx context.Context, cookie string) (*model.Session, string) {
	if cookie == "" {
		return nil, ""
	}
	sess, err := s.m.repo.GetByToken(cookie)
	if err != nil || sess == nil {
		if err != nil {
			s.m.logger.Error("load session", "error", err)
		}
		return nil, ""
	}
	token, err := s.m.repo.BackendToken(sess)
	if err != nil {
		s.m.logger.Warn("unseal backend token", "session_id", sess.ID, "error", err)
		s.discard(sess)
		return nil, ""
	}

	id, err := s.m.client.WithToken(api.StaticToken(token)).Me(ctx)
	if err != nil {
		s.m.logger.Info("session rehydration failed", "session_id", sess.ID, "error", err)
		s.discard(sess)
		return nil, ""
	}
	if !sameIdentity(*id, sess.Identity) {
		if err := s.m.repo.UpdateIdentity(sess.ID, *id); err != nil {
			s.m.logger.Warn("update session identity", "session_id", sess.ID, "error", err)
		}
		sess.Identity = *id
	}
	return sess, token
}

func sameIdentity(a, b model.Identity) bool {
	if a.Role != b.Role || a.Name != b.Name || a.Email != b.Email {
		return false
	}
	if a.Points == nil || b.Points == nil {
		return a.Points == b.Points
	}
	return *a.Points == *b.Points
}

func (s *Store) discard(sess *model.Session) {
	if err := s.m.repo.Delete(sess.ID); err != nil {
		s.m.logger.Warn("delete session", "session_id", sess.ID, "error", err)
	}
}

// Login exchanges credentials for a backend token and persists a new
// session. The Store's cookie token changes on success.
func (s *Store) Login(ctx context.Context, email, password string, role model.Role) error {
	return s.authenticate(ctx, func() (*api.AuthResult, error) {
		return s.m.client.Login(ctx, api.Credentials{Email: email, Password: password, Role: role})
	})
}

// Register creates the account and signs it in.
func (s *Store) Register(ctx context.Context, reg api.Registration) error {
	return s.authenticate(ctx, func() (*api.AuthResult, error) {
		return s.m.client.Register(ctx, reg)
	})
}

func (s *Store) authenticate(ctx context.Context, call func() (*api.AuthResult, error)) error {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := call()
	if err != nil {
		return err
	}

	identity := res.Identity
	if identity.Name == "" || identity.Email == "" {
		id, err := s.m.client.WithToken(api.StaticToken(res.Token)).Me(ctx)
		if err != nil {
			return err
		}
		identity = *id
	}

	sess, err := s.m.repo.Create(res.Token, identity, s.m.expiry(res.Token))
	if err != nil {
		return errors.Internal("falha ao iniciar sessão").WithCause(err)
	}

	s.mu.Lock()
	old := s.sess
	s.sess, s.token, s.cookie = sess, res.Token, sess.Token
	s.phase = PhaseReady
	s.mu.Unlock()

	if old != nil {
		s.discard(old)
	}
	s.m.logger.Info("signed in", "session_id", sess.ID, "role", identity.Role)
	return nil
}

// Logout revokes the backend token best-effort, deletes the local session
// and tears the Store down.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	sess, token := s.sess, s.token
	s.sess, s.token, s.cookie = nil, "", ""
	s.phase = PhaseTornDown
	s.mu.Unlock()

	if sess == nil {
		return
	}
	if err := s.m.client.WithToken(api.StaticToken(token)).Logout(ctx); err != nil {
		s.m.logger.Info("backend logout failed", "session_id", sess.ID, "error", err)
	}
	s.discard(sess)
}

// Refresh re-reads the identity from the backend. An auth failure logs the
// Store out; other failures keep the cached identity.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	sess, token := s.sess, s.token
	s.mu.Unlock()
	if sess == nil {
		return errors.Auth("")
	}

	s.setLoading(true)
	id, err := s.m.client.WithToken(api.StaticToken(token)).Me(ctx)
	s.setLoading(false)
	if err != nil {
		if errors.Is(err, errors.ErrUnauthorized) {
			s.mu.Lock()
			if s.sess == sess {
				s.sess, s.token, s.cookie = nil, "", ""
			}
			s.mu.Unlock()
			s.discard(sess)
		}
		return err
	}

	if err := s.m.repo.UpdateIdentity(sess.ID, *id); err != nil {
		s.m.logger.Warn("update session identity", "session_id", sess.ID, "error", err)
	}
	s.mu.Lock()
	if s.sess == sess {
		cp := *sess
		cp.Identity = *id
		s.sess = &cp
	}
	s.mu.Unlock()
	return nil
}

// Identity returns a copy of the signed-in identity.
func (s *Store) Identity() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || !s.validLocked() {
		return model.Identity{}, false
	}
	id := s.sess.Identity
	if id.Points != nil {
		p := *id.Points
		id.Points = &p
	}
	return id, true
}

// SignedIn reports whether the Store holds a live session.
func (s *Store) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil && s.validLocked()
}

func (s *Store) validLocked() bool {
	return s.m.now().Before(s.sess.ExpiresAt)
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CookieToken is the value of the browser's session cookie, empty when
// logged out.
func (s *Store) CookieToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookie
}

// SessionID returns the local session row id, 0 when logged out.
func (s *Store) SessionID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return 0
	}
	return s.sess.ID
}

// ExpiresAt returns when the session ends.
func (s *Store) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return time.Time{}
	}
	return s.sess.ExpiresAt
}

// Token implements api.TokenSource. Logged-out Stores send requests
// anonymously.
func (s *Store) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || !s.validLocked() {
		return "", nil
	}
	return s.token, nil
}

// Client returns a backend client authenticated as this Store.
func (s *Store) Client() *api.Client {
	return s.m.client.WithToken(s)
}
