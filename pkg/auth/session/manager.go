package session

import (
	"context"
	"errors"
	"strings"
	"time"

	redisclient "github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/redis"
)

var errBlankAccessID = errors.New("access id is required")

// AccessSessionChecker is what the auth middleware consults after a token
// verifies, so a revoked access token stops working before it expires.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// Manager looks up access sessions that the identity service writes into the
// shared Redis namespace. Register and Revoke exist for local tooling and for
// forced logout.
type Manager struct {
	store store
}

func NewManager(client *redisclient.Client) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Manager{store: client}, nil
}

func (m *Manager) Register(ctx context.Context, accessID string, ttl time.Duration) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	return m.store.Set(ctx, key, "1", ttl)
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	return m.store.Exists(ctx, key)
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", errBlankAccessID
	}
	return m.store.AccessSessionKey(accessID), nil
}
