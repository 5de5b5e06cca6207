package saberis

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const tokenLifetime = 24 * time.Hour

type storedToken struct {
	Token     string  `json:"token"`
	ExpiresAt float64 `json:"expires_at"`
}

// TokenStore persists the short-lived Saberis session token between runs.
type TokenStore struct {
	path string
}

func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load returns the stored token, or "" when none is stored or it has expired.
func (s *TokenStore) Load() string {
	blob, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	var stored storedToken
	if err := json.Unmarshal(blob, &stored); err != nil {
		return ""
	}
	if float64(time.Now().Unix()) >= stored.ExpiresAt {
		return ""
	}
	return stored.Token
}

func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	stored := storedToken{
		Token:     token,
		ExpiresAt: float64(time.Now().Add(tokenLifetime).Unix()),
	}
	blob, _ := json.Marshal(stored)
	return os.WriteFile(s.path, blob, 0o600)
}
