// Package redis validates bearer tokens stored in Redis. Each token is a key
// holding the JSON encoded credentials of its owner; the key TTL controls
// the token lifetime.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"tokengate/common/flux"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "tokengate:tokens:"

// Getter is the subset of the go-redis client used by the validator.
type Getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Config contains configuration options for the Redis validator.
type Config struct {
	// Client is the Redis client instance.
	Client Getter

	// KeyPrefix is the prefix for all token keys.
	// Default: "tokengate:tokens:"
	KeyPrefix string
}

// Validator implements bearer.Validator using Redis.
type Validator struct {
	client    Getter
	keyPrefix string
}

// New creates a new Redis-backed validator.
func New(config Config) (*Validator, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = defaultKeyPrefix
	}
	return &Validator{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Key returns the Redis key holding token.
func (v *Validator) Key(token string) string {
	return v.keyPrefix + token
}

// Validate implements bearer.Validator.
func (v *Validator) Validate(ctx context.Context, token string) (flux.Credentials, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	val, err := v.client.Get(ctx, v.Key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get token: %w", err)
	}

	var creds flux.Credentials
	if err := json.Unmarshal(val, &creds); err != nil {
		return nil, false, fmt.Errorf("redis: decode credentials: %w", err)
	}
	if creds == nil {
		return nil, false, errors.New("redis: decode credentials: empty value")
	}
	return creds, true, nil
}

// Store writes credentials for token with the given lifetime. A zero ttl
// stores the token without expiry.
func Store(ctx context.Context, client redis.Cmdable, keyPrefix, token string, creds flux.Credentials, ttl time.Duration) error {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	b, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("redis: encode credentials: %w", err)
	}
	if err := client.Set(ctx, keyPrefix+token, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set token: %w", err)
	}
	return nil
}
