// Package config loads and validates the engine configuration:
// defaults, then an optional YAML file, then QUERYSIFT_-prefixed
// environment variables for deployment knobs.
package config
