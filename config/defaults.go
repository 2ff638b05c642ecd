package config

import (
	"time"

	"github.com/querysift/querysift/memory"
	"github.com/querysift/querysift/orchestrator"
	"github.com/querysift/querysift/rescache"
	"github.com/querysift/querysift/searchcache"
)

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Cache:        searchcache.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Memory:       memory.DefaultConfig(),
		ProfileCache: rescache.DefaultConfig(),
		Breakers: BreakersConfig{
			Search:      DefaultBreakerConfig(),
			MemoryStore: DefaultBreakerConfig(),
			Embedding:   DefaultBreakerConfig(),
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Namespace: "querysift",
		},
	}
}

// DefaultBreakerConfig returns the default per-dependency breaker
// tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		MonitoringWindow: 2 * time.Minute,
		ResetTimeout:     60 * time.Second,
		CallTimeout:      30 * time.Second,
	}
}
