package redis

// Package redis provides the Redis-backed TokenStore.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/ocfl-archive/clerk-login/internal/domain/auth"
	apperrors "github.com/ocfl-archive/clerk-login/internal/errors"
	"github.com/ocfl-archive/clerk-login/internal/ports"
)

const defaultPrefix = "clerk-login:session:"

// TokenStore keeps token sets in Redis.
// Keys expire with the access token; sets without an expiry are kept until deleted.
type TokenStore struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a Redis token store with the default key prefix.
func NewTokenStore(client redis.UniversalClient) *TokenStore {
	return NewTokenStoreWithPrefix(client, defaultPrefix)
}

// NewTokenStoreWithPrefix creates a Redis token store with a custom key prefix.
func NewTokenStoreWithPrefix(client redis.UniversalClient, prefix string) *TokenStore {
	return &TokenStore{
		client: client,
		prefix: prefix,
	}
}

func (s *TokenStore) Save(ctx context.Context, key string, ts domainauth.TokenSet) error {
	if key == "" {
		return apperrors.ValidationField("key", "session key cannot be empty")
	}

	var ttl time.Duration
	if !ts.Expiry.IsZero() {
		ttl = time.Until(ts.Expiry)
		if ttl <= 0 {
			return errors.New("session is expired")
		}
	}

	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	return s.client.Set(ctx, s.prefix+key, data, ttl).Err()
}

func (s *TokenStore) Load(ctx context.Context, key string) (domainauth.TokenSet, error) {
	if key == "" {
		return domainauth.TokenSet{}, apperrors.NotFound("session not found")
	}

	data, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.TokenSet{}, apperrors.NotFound("session not found")
		}
		return domainauth.TokenSet{}, fmt.Errorf("redis get: %w", err)
	}

	var ts domainauth.TokenSet
	if unmarshalErr := json.Unmarshal([]byte(data), &ts); unmarshalErr != nil {
		return domainauth.TokenSet{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}
	return ts, nil
}

func (s *TokenStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+key).Err()
}
