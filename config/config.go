package config

import (
	"fmt"
	"time"

	"github.com/querysift/querysift/circuitbreaker"
	"github.com/querysift/querysift/memory"
	"github.com/querysift/querysift/orchestrator"
	"github.com/querysift/querysift/rescache"
	"github.com/querysift/querysift/searchcache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is the complete engine configuration. Every heuristic
// constant (similarity thresholds, TTL buckets, strategy numbers) is a
// field here: the values were tuned empirically, so they stay
// configurable rather than hard-coded.
type Config struct {
	Cache        searchcache.Config  `yaml:"cache"`
	Orchestrator orchestrator.Config `yaml:"orchestrator"`
	Memory       memory.Config       `yaml:"memory"`
	ProfileCache rescache.Config     `yaml:"profile_cache"`
	Breakers     BreakersConfig      `yaml:"breakers"`
	Redis        RedisConfig         `yaml:"redis"`
	Log          LogConfig           `yaml:"log"`
	Metrics      MetricsConfig       `yaml:"metrics"`
}

// BreakersConfig holds one breaker configuration per protected
// upstream dependency class.
type BreakersConfig struct {
	Search      BreakerConfig `yaml:"search"`
	MemoryStore BreakerConfig `yaml:"memory_store"`
	Embedding   BreakerConfig `yaml:"embedding"`
}

// BreakerConfig is the serializable subset of a breaker's tuning.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	MonitoringWindow time.Duration `yaml:"monitoring_window"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
	CallTimeout      time.Duration `yaml:"call_timeout"`
}

// ToBreaker converts to the runtime breaker configuration.
func (b BreakerConfig) ToBreaker() *circuitbreaker.Config {
	return &circuitbreaker.Config{
		FailureThreshold: b.FailureThreshold,
		MonitoringWindow: b.MonitoringWindow,
		ResetTimeout:     b.ResetTimeout,
		CallTimeout:      b.CallTimeout,
	}
}

// RedisConfig configures the optional shared cache tier. Disabled by
// default; the engine is fully functional in process.
type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
}

// LogConfig configures the engine logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // json | console
}

// Build constructs a zap logger from the log configuration.
func (l LogConfig) Build() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", l.Level, err)
	}

	cfg := zap.NewProductionConfig()
	if l.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// MetricsConfig configures metric registration.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}
