package config

import (
	"fmt"
	"strings"
)

// TokenStoreKind selects where the adapter keeps its session between runs.
type TokenStoreKind string

const (
	// TokenStoreMemory keeps sessions in process; every run logs in again.
	TokenStoreMemory TokenStoreKind = "memory"
	// TokenStoreRedis keeps sessions in Redis until the access token expires.
	TokenStoreRedis TokenStoreKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for TokenStoreKind.
func (k *TokenStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*k = TokenStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid TokenStore: %q (valid options: memory, redis)", v)
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelPort       string   `env:"SENTINEL_PORT"        envDefault:"26379"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// StorageConfig controls the adapter's token store.
type StorageConfig struct {
	Kind      TokenStoreKind `env:"TOKEN_STORE"        envDefault:"memory"`
	KeyPrefix string         `env:"TOKEN_STORE_PREFIX" envDefault:"clerk-login:session:"`
	Redis     RedisConfig    `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to storage configuration values.
func (c *StorageConfig) Sanitize() {
	if c.Kind == "" {
		c.Kind = TokenStoreMemory
	}
	if c.KeyPrefix = strings.TrimSpace(c.KeyPrefix); c.KeyPrefix == "" {
		c.KeyPrefix = "clerk-login:session:"
	}
	if c.Redis.DB < 0 {
		c.Redis.DB = 0
	}
}
