package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister saves a host's token, e.g. into the CLI config file.
type ConfigPersister interface {
	UpdateHostToken(host, token string, expiresAt time.Time) error
}

// ConfigTokenManager serves a static token and writes every token change
// through to a ConfigPersister.
type ConfigTokenManager struct {
	static    *StaticTokenManager
	persister ConfigPersister
	host      string
	mutex     sync.Mutex
}

// NewConfigTokenManager creates a config-persisting token manager for host.
func NewConfigTokenManager(persister ConfigPersister, host, initialToken string, initialExpiry time.Time) *ConfigTokenManager {
	static := NewStaticTokenManager("")
	if initialToken != "" {
		static.SetToken(initialToken, initialExpiry)
	}

	return &ConfigTokenManager{
		static:    static,
		persister: persister,
		host:      host,
	}
}

// GetToken returns the current token.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.static.GetToken(ctx)
}

// RefreshToken fails like StaticTokenManager.RefreshToken.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	return m.static.RefreshToken(ctx)
}

// SetToken replaces the token and persists it. Use Save to observe
// persistence errors.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	_ = m.Save(token, expiresAt)
}

// Save replaces the token and persists it.
func (m *ConfigTokenManager) Save(token string, expiresAt time.Time) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.static.SetToken(token, expiresAt)

	if m.persister == nil {
		return ErrNoConfigPersister
	}

	err := m.persister.UpdateHostToken(m.host, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update host token: %w", err)
	}

	return nil
}

// IsTokenExpiringSoon returns true if the token expires within the given duration.
func (m *ConfigTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	token := m.static.Current()
	if token == nil {
		return true
	}

	if token.ExpiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(token.ExpiresAt)
}
