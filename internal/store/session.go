package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dukerupert/smartshop/internal/model"
)

type SessionStore struct {
	db     *sql.DB
	sealer *Sealer
}

func NewSessionStore(db *sql.DB, sealer *Sealer) *SessionStore {
	return &SessionStore{db: db, sealer: sealer}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	var role string
	var points sql.NullInt64
	err := scanner.Scan(&s.ID, &s.Token, &s.SealedToken, &role, &s.Identity.Name, &s.Identity.Email, &points, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Identity.Role = model.Role(role)
	if points.Valid {
		p := int(points.Int64)
		s.Identity.Points = &p
	}
	return &s, nil
}

const sessionCols = `id, token, sealed_token, role, name, email, points, expires_at, created_at`

func nullPoints(id model.Identity) sql.NullInt64 {
	if id.Points == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id.Points), Valid: true}
}

// Create stores a sealed backend token under a fresh crypto-random cookie token.
func (s *SessionStore) Create(backendToken string, identity model.Identity, expiresAt time.Time) (*model.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)

	sealed, err := s.sealer.Seal(backendToken)
	if err != nil {
		return nil, fmt.Errorf("seal backend token: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO sessions (token, sealed_token, role, name, email, points, expires_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		token, sealed, string(identity.Role), identity.Name, identity.Email, nullPoints(identity), expiresAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the session for the given token, or nil if expired or not found.
func (s *SessionStore) GetByToken(token string) (*model.Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionCols+` FROM sessions WHERE token = ? AND expires_at > ?`,
		token, time.Now().UTC(),
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// BackendToken unseals the bearer token stored with sess.
func (s *SessionStore) BackendToken(sess *model.Session) (string, error) {
	tok, err := s.sealer.Open(sess.SealedToken)
	if err != nil {
		return "", fmt.Errorf("open backend token: %w", err)
	}
	return tok, nil
}

// UpdateIdentity refreshes the cached identity after a backend round trip.
func (s *SessionStore) UpdateIdentity(id int64, identity model.Identity) error {
	_, err := s.db.Exec(
		`UPDATE sessions SET role = ?, name = ?, email = ?, points = ? WHERE id = ?`,
		string(identity.Role), identity.Name, identity.Email, nullPoints(identity), id,
	)
	if err != nil {
		return fmt.Errorf("update session identity: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
