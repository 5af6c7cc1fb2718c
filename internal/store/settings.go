package store

import (
	"database/sql"
	"encoding/hex"
	"fmt"
)

const sealSaltKey = "seal_salt"

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for key and whether it exists.
func (s *SettingsStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// SealSalt returns the installation's token-sealing salt, generating and
// persisting one on first use.
func (s *SettingsStore) SealSalt() ([]byte, error) {
	v, ok, err := s.Get(sealSaltKey)
	if err != nil {
		return nil, err
	}
	if ok {
		salt, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("decode seal salt: %w", err)
		}
		return salt, nil
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := s.Set(sealSaltKey, hex.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}
