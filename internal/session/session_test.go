package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/database"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/store"
)

// fakeAuth accepts "ana@example.com" / "segredo123" and issues opaque tokens.
type fakeAuth struct {
	mu      sync.Mutex
	valid   map[string]model.Identity
	n       int
	logouts atomic.Int32
	meCalls atomic.Int32
}

func (f *fakeAuth) revoke(token string) {
	f.mu.Lock()
	delete(f.valid, token)
	f.mu.Unlock()
}

func (f *fakeAuth) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var cr api.Credentials
		json.NewDecoder(r.Body).Decode(&cr)
		if cr.Email != "ana@example.com" || cr.Password != "segredo123" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Credenciais inválidas"})
			return
		}
		f.mu.Lock()
		f.n++
		tok := "tok-" + string(rune('a'+f.n))
		f.valid[tok] = model.Identity{Role: cr.Role, Name: "Ana", Email: cr.Email}
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"token": tok, "type": cr.Role})
	})
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		f.meCalls.Add(1)
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		id, ok := f.valid[tok]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": id})
	})
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
		f.revoke(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type fixture struct {
	auth     *fakeAuth
	sessions *store.SessionStore
	manager  *Manager
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fakeAuth{valid: map[string]model.Identity{}}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	salt, err := store.NewSettingsStore(db).SealSalt()
	require.NoError(t, err)
	sealer, err := store.NewSealer("test-secret", salt)
	require.NoError(t, err)
	sessions := store.NewSessionStore(db, sealer)

	client, err := api.New(srv.URL + "/api")
	require.NoError(t, err)
	return &fixture{
		auth:     f,
		sessions: sessions,
		manager:  NewManager(sessions, client, time.Hour, nil),
	}
}

func TestInitWithoutCookieIsLoggedOut(t *testing.T) {
	fx := setup(t)
	s := fx.manager.New("")
	s.Init(context.Background())

	assert.Equal(t, PhaseReady, s.Phase())
	assert.False(t, s.SignedIn())
	_, ok := s.Identity()
	assert.False(t, ok)
	assert.Zero(t, fx.auth.meCalls.Load())
}

func TestLoginPersistsAndRehydrates(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()

	s := fx.manager.New("")
	s.Init(ctx)
	require.NoError(t, s.Login(ctx, "ana@example.com", "segredo123", model.RoleClient))

	id, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, "Ana", id.Name)
	assert.Equal(t, model.RoleClient, id.Role)
	cookie := s.CookieToken()
	require.Len(t, cookie, 64)

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok, "tok-"))

	again := fx.manager.New(cookie)
	again.Init(ctx)
	id, ok = again.Identity()
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", id.Email)
}

func TestLoginFailureLeavesLoggedOut(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	s := fx.manager.New("")
	s.Init(ctx)

	err := s.Login(ctx, "ana@example.com", "wrong", model.RoleClient)
	require.Error(t, err)
	assert.False(t, s.SignedIn())
	assert.Empty(t, s.CookieToken())
	assert.False(t, s.Loading())
}

func TestRevokedTokenRehydratesLoggedOut(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	s := fx.manager.New("")
	s.Init(ctx)
	require.NoError(t, s.Login(ctx, "ana@example.com", "segredo123", model.RoleClient))
	tok, _ := s.Token(ctx)
	fx.auth.revoke(tok)

	again := fx.manager.New(s.CookieToken())
	again.Init(ctx)
	assert.False(t, again.SignedIn())
	assert.Empty(t, again.CookieToken())

	sess, err := fx.sessions.GetByToken(s.CookieToken())
	require.NoError(t, err)
	assert.Nil(t, sess, "a rejected session row is deleted")
}

func TestLogoutTearsDown(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	s := fx.manager.New("")
	s.Init(ctx)
	require.NoError(t, s.Login(ctx, "ana@example.com", "segredo123", model.RoleCompany))
	cookie := s.CookieToken()

	s.Logout(ctx)
	assert.Equal(t, PhaseTornDown, s.Phase())
	assert.False(t, s.SignedIn())
	assert.Equal(t, int32(1), fx.auth.logouts.Load())

	sess, err := fx.sessions.GetByToken(cookie)
	require.NoError(t, err)
	assert.Nil(t, sess)

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestRefreshLogsOutOnAuthFailure(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	s := fx.manager.New("")
	s.Init(ctx)
	require.NoError(t, s.Login(ctx, "ana@example.com", "segredo123", model.RoleClient))
	require.NoError(t, s.Refresh(ctx))

	tok, _ := s.Token(ctx)
	fx.auth.revoke(tok)
	require.Error(t, s.Refresh(ctx))
	assert.False(t, s.SignedIn())
}

func TestExpiryCapsAtTokenClaim(t *testing.T) {
	fx := setup(t)
	now := time.Unix(1_700_000_000, 0)
	fx.manager.now = func() time.Time { return now }
	tok := jwtWithExp(t, now.Add(time.Minute))
	assert.Equal(t, now.Add(time.Minute).Unix(), fx.manager.expiry(tok).Unix())
	assert.Equal(t, now.Add(time.Hour), fx.manager.expiry("opaque"))
}

func jwtWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

type closer struct{ closed atomic.Bool }

func (c *closer) Close() { c.closed.Store(true) }

func TestRegistryCachesSignedInEntries(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	reg := NewRegistry(fx.manager)

	anon := reg.Get(ctx, "")
	assert.False(t, anon.Store.SignedIn())
	assert.Zero(t, reg.Len())

	require.NoError(t, anon.Store.Login(ctx, "ana@example.com", "segredo123", model.RoleClient))
	reg.Attach(anon)
	require.Equal(t, 1, reg.Len())

	cookie := anon.Store.CookieToken()
	calls := fx.auth.meCalls.Load()
	e := reg.Get(ctx, cookie)
	assert.Same(t, anon, e)
	assert.Equal(t, calls, fx.auth.meCalls.Load(), "cached entries skip rehydration")

	c := Slot(e, "lists", func() *closer { return &closer{} })
	assert.Same(t, c, Slot(e, "lists", func() *closer { return &closer{} }))

	reg.Drop(cookie)
	assert.True(t, c.closed.Load())
	assert.Zero(t, reg.Len())

	fresh := reg.Get(ctx, cookie)
	assert.True(t, fresh.Store.SignedIn(), "dropped entries rehydrate from the database")
	assert.NotSame(t, anon, fresh)
}

func TestRegistrySweepsIdle(t *testing.T) {
	fx := setup(t)
	ctx := context.Background()
	reg := NewRegistry(fx.manager)
	e := reg.Get(ctx, "")
	require.NoError(t, e.Store.Login(ctx, "ana@example.com", "segredo123", model.RoleClient))
	reg.Attach(e)
	c := Slot(e, "builder", func() *closer { return &closer{} })

	assert.Zero(t, reg.Sweep(time.Hour))
	now := time.Now().Add(2 * time.Hour)
	fx.manager.now = func() time.Time { return now }
	assert.Equal(t, 1, reg.Sweep(time.Hour))
	assert.True(t, c.closed.Load())
}
