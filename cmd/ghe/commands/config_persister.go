package commands

import (
	"fmt"
	"sync"
	"time"
)

// ConfigPersister implements the auth.ConfigPersister interface on top of
// the CLI config file.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateHostToken stores the token of the API registered under host.
func (p *ConfigPersister) UpdateHostToken(host, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config := loadConfig()

	apiConfig, exists := config.APIs[host]
	if !exists {
		return fmt.Errorf("API configuration for '%s': %w", host, ErrAPIConfigNotFound)
	}

	apiConfig.Token = token
	apiConfig.TokenExpiresAt = nil

	if !expiresAt.IsZero() {
		apiConfig.TokenExpiresAt = &expiresAt
	}

	now := time.Now().UTC().Truncate(time.Second)
	apiConfig.LastRefreshed = &now

	return saveConfigStruct(config)
}
