// Package redis implements storage.Store on Redis, for deployments where the
// client runs on ephemeral hosts (CI runners, kiosks) and state must be shared.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/campus/internal/storage"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config captures the settings for establishing a Redis connection.
type Config struct {
	Addr      string
	Password  string
	DB        int
	Namespace string
	Timeout   time.Duration
}

type Store struct {
	client *goredis.Client
	prefix string
}

// Connect initialises a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis store: addr is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return New(client, cfg.Namespace), nil
}

// New wraps an existing client. Keys are stored as "<namespace>:<key>".
func New(client *goredis.Client, namespace string) *Store {
	if namespace == "" {
		namespace = "campus"
	}
	return &Store{client: client, prefix: namespace + ":"}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
