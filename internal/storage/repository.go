package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CredentialKey is the fixed name under which the bearer credential is persisted.
const CredentialKey = "token"

// ErrNotFound is returned by Get when the key has never been set or was deleted.
var ErrNotFound = errors.New("storage: key not found")

// Store is a small durable key-value store for client-side state that must
// survive process restarts. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Credentials persists the bearer credential in a Store under CredentialKey.
type Credentials struct {
	store Store
}

func NewCredentials(store Store) *Credentials {
	return &Credentials{store: store}
}

// Load returns the stored credential, or "" if none is stored.
func (c *Credentials) Load(ctx context.Context) (string, error) {
	token, err := c.store.Get(ctx, CredentialKey)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return strings.TrimSpace(token), nil
}

func (c *Credentials) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("save credential: empty token")
	}
	if err := c.store.Set(ctx, CredentialKey, token); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear removes the credential. Clearing an absent credential is not an error.
func (c *Credentials) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, CredentialKey); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// MemoryStore keeps values in process memory. Used by tests and by the
// "memory" credential backend for one-shot invocations.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
