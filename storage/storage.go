// Package storage persists review drafts as JSON values in a key-value
// backend: process memory, NATS JetStream KV or Redis.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/swagger2dcat/config"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
	BackendRedis  = "redis"
)

// DefaultBucket is the JetStream KV bucket used when none is configured.
const DefaultBucket = "SWAGGER2DCAT_DRAFTS"

// Store is a key-value store with per-store expiry.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend connections.
	Close() error
}

// NewID generates a new unique key.
func NewID() string {
	return uuid.New().String()
}

// GetJSON loads key into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// PutJSON stores v as JSON under key.
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// Open creates the store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Backend {
	case "", BackendMemory:
		logger.Info("Using in-memory draft store", "ttl", cfg.TTL)
		return NewMemoryStore(cfg.TTL), nil
	case BackendNATS:
		logger.Info("Using NATS KV draft store", "url", cfg.NATS.URL, "bucket", cfg.NATS.Bucket)
		return OpenNATS(ctx, cfg.NATS.URL, cfg.NATS.Bucket, cfg.TTL)
	case BackendRedis:
		logger.Info("Using Redis draft store", "prefix", cfg.Redis.Prefix)
		return OpenRedis(ctx, cfg.Redis.URL, cfg.Redis.Prefix, cfg.TTL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// expired reports whether an entry written at t is past ttl.
func expired(t time.Time, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(t) >= ttl
}
