// Package config loads the small set of settings this service needs to
// start: where Postgres lives, how many shards the rule lock table uses,
// and the default lifetime ceiling applied when a rule's own lifetime_spec
// fails to parse. Grounded on the teacher's own use of gopkg.in/yaml.v3 for
// rule-definition files in api/rule_api.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecPerYear matches the original's SEC_PER_YEAR constant, used to derive
// the 25-year lifetime ceiling (spec §3, RuleRecord.lifetime_spec).
const SecPerYear = 365 * 24 * 60 * 60

// DefaultMaxLifetimeSeconds is the clamp applied when a lifetime_spec is
// malformed (spec §4.7 step 3): 25 * SEC_PER_YEAR.
const DefaultMaxLifetimeSeconds = 25 * SecPerYear

// Config holds the settings read from the service's YAML config file.
type Config struct {
	// PostgresDSN is the connection string handed to pgxpool.New.
	PostgresDSN string `yaml:"postgres_dsn"`

	// LockShardCount sizes the rule lock table (lock.NewRuleLockTable).
	LockShardCount int `yaml:"lock_shard_count"`

	// DefaultMaxLifetimeSeconds overrides DefaultMaxLifetimeSeconds when
	// positive; zero means "use the built-in 25-year ceiling".
	DefaultMaxLifetimeSeconds int64 `yaml:"default_max_lifetime_seconds"`
}

// EffectiveMaxLifetime returns the configured lifetime ceiling, or the
// built-in default when unset.
func (c Config) EffectiveMaxLifetime() int64 {
	if c.DefaultMaxLifetimeSeconds > 0 {
		return c.DefaultMaxLifetimeSeconds
	}
	return DefaultMaxLifetimeSeconds
}

// LoadConfig reads and parses a YAML config file at path, applying the
// LockShardCount default (1) when unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if cfg.LockShardCount <= 0 {
		cfg.LockShardCount = 1
	}
	return &cfg, nil
}
