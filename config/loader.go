package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads configuration with the usual precedence: defaults, then
// the YAML file (optional, "" skips it), then environment variables
// with the QUERYSIFT_ prefix.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the deployment-variable settings. Heuristic
// tunables stay file-only; only connection and operational knobs make
// sense per environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("QUERYSIFT_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("QUERYSIFT_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QUERYSIFT_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("QUERYSIFT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QUERYSIFT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("QUERYSIFT_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
}

// Validate checks field ranges and reports every violation at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.MaxEntries <= 0 {
		errs = append(errs, fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries))
	}
	if c.Cache.EvictFraction <= 0 || c.Cache.EvictFraction >= 1 {
		errs = append(errs, fmt.Errorf("cache.evict_fraction must be in (0,1), got %v", c.Cache.EvictFraction))
	}
	if t := c.Cache.SimilarityThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("cache.similarity_threshold must be in (0,1], got %v", t))
	}
	if t := c.Orchestrator.CacheSimilarityThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("orchestrator.cache_similarity_threshold must be in (0,1], got %v", t))
	}
	if t := c.Orchestrator.QualityThreshold; t <= 0 || t > 1 {
		errs = append(errs, fmt.Errorf("orchestrator.quality_threshold must be in (0,1], got %v", t))
	}
	if c.Orchestrator.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("orchestrator.rate_limit must be positive, got %v", c.Orchestrator.RateLimit))
	}
	if c.Memory.CandidateMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("memory.candidate_multiplier must be positive, got %d", c.Memory.CandidateMultiplier))
	}
	for name, b := range map[string]BreakerConfig{
		"breakers.search":       c.Breakers.Search,
		"breakers.memory_store": c.Breakers.MemoryStore,
		"breakers.embedding":    c.Breakers.Embedding,
	} {
		if b.FailureThreshold <= 0 {
			errs = append(errs, fmt.Errorf("%s.failure_threshold must be positive, got %d", name, b.FailureThreshold))
		}
		if b.ResetTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s.reset_timeout must be positive, got %v", name, b.ResetTimeout))
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr required when redis.enabled"))
	}

	return errors.Join(errs...)
}
