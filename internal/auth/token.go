package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

// expiryBuffer is how long before ExpiresAt a token stops being used.
const expiryBuffer = 30 * time.Second

// Static errors for err113 compliance.
var (
	ErrNoToken             = errors.New("no token configured")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenNotRefreshable = errors.New("static tokens cannot be refreshed")
)

// TokenManager supplies the credential sent with every request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) error
	SetToken(token string, expiresAt time.Time)
}

// Token is a personal access or installation token.
type Token struct {
	AccessToken string    `json:"access_token"         yaml:"access_token"`
	TokenType   string    `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

// Valid reports whether the token can be used. Tokens without an expiry
// never expire; the rest are treated as expired 30 seconds early.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(expiryBuffer).Before(t.ExpiresAt)
}

// TokenStore holds the current token.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.Set(nil)
}

// StaticTokenManager serves a fixed token.
type StaticTokenManager struct {
	store *TokenStore
}

// NewStaticTokenManager creates a manager for token. An empty token sends
// requests unauthenticated.
func NewStaticTokenManager(token string) *StaticTokenManager {
	manager := &StaticTokenManager{store: NewTokenStore()}
	if token != "" {
		manager.store.Set(&Token{AccessToken: token, TokenType: "token"})
	}

	return manager
}

// GetToken returns the token, "" when none is configured, or ErrTokenExpired.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token == nil {
		return "", nil
	}

	if !token.Valid() {
		return "", ErrTokenExpired
	}

	return token.AccessToken, nil
}

// RefreshToken always fails; a static token has no grant to refresh with.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrTokenNotRefreshable
}

// SetToken replaces the token.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{AccessToken: token, TokenType: "token", ExpiresAt: expiresAt})
}

// Current returns the stored token, or nil.
func (m *StaticTokenManager) Current() *Token {
	return m.store.Get()
}
