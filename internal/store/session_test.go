package store

import (
	"bytes"
	"testing"
	"time"

	"github.com/dukerupert/smartshop/internal/database"
	"github.com/dukerupert/smartshop/internal/model"
)

func setupSessionTestDB(t *testing.T) (*SessionStore, *SettingsStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	settings := NewSettingsStore(db)
	salt, err := settings.SealSalt()
	if err != nil {
		t.Fatalf("seal salt: %v", err)
	}
	sealer, err := NewSealer("test-secret", salt)
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	return NewSessionStore(db, sealer), settings
}

func TestSessionCreate(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	points := 120
	identity := model.Identity{Role: model.RoleClient, Name: "Ana", Email: "ana@example.com", Points: &points}
	sess, err := ss.Create("backend-token-1", identity, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(sess.Token))
	}
	if sess.Identity.Role != model.RoleClient {
		t.Errorf("role = %q, want %q", sess.Identity.Role, model.RoleClient)
	}
	if sess.Identity.Points == nil || *sess.Identity.Points != 120 {
		t.Errorf("points = %v, want 120", sess.Identity.Points)
	}
	if bytes.Contains(sess.SealedToken, []byte("backend-token-1")) {
		t.Error("backend token stored in plaintext")
	}

	tok, err := ss.BackendToken(sess)
	if err != nil {
		t.Fatalf("backend token: %v", err)
	}
	if tok != "backend-token-1" {
		t.Errorf("backend token = %q, want %q", tok, "backend-token-1")
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	sess, err := ss.Create("tok", model.Identity{Role: model.RoleAdmin, Name: "Root"}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.ID != sess.ID {
		t.Errorf("id = %d, want %d", got.ID, sess.ID)
	}
	if got.Identity.Points != nil {
		t.Errorf("points = %v, want nil", *got.Identity.Points)
	}

	missing, err := ss.GetByToken("nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionExpired(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	sess, err := ss.Create("tok", model.Identity{Role: model.RoleClient}, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := ss.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired session")
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestSessionUpdateIdentityAndDelete(t *testing.T) {
	ss, _ := setupSessionTestDB(t)

	sess, _ := ss.Create("tok", model.Identity{Role: model.RoleClient, Name: "Ana"}, time.Now().Add(time.Hour))

	points := 7
	if err := ss.UpdateIdentity(sess.ID, model.Identity{Role: model.RoleClient, Name: "Ana Maria", Points: &points}); err != nil {
		t.Fatalf("update identity: %v", err)
	}
	got, _ := ss.GetByToken(sess.Token)
	if got.Identity.Name != "Ana Maria" {
		t.Errorf("name = %q, want %q", got.Identity.Name, "Ana Maria")
	}

	if err := ss.Delete(sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := ss.GetByToken(sess.Token); got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSealSaltPersists(t *testing.T) {
	_, settings := setupSessionTestDB(t)

	a, err := settings.SealSalt()
	if err != nil {
		t.Fatalf("first salt: %v", err)
	}
	b, err := settings.SealSalt()
	if err != nil {
		t.Fatalf("second salt: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("salt changed between calls")
	}
	if len(a) != saltSize {
		t.Errorf("salt length = %d, want %d", len(a), saltSize)
	}
}
