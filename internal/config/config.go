// Package config loads and validates warren.yml.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Validate when a field is omitted.
const (
	DefaultMaxSegmentSize    = 4000
	DefaultSpecialistTimeout = 60 * time.Second
	DefaultSessionBackend    = "memory"
	DefaultNamespace         = "default"
	DefaultRedisURL          = "redis://localhost:6379/0"
	DefaultHTTPAddr          = ":8080"
	DefaultMaxOutputBytes    = 1 << 20
)

// Environment variables that override file settings.
const (
	EnvRedisURL         = "WARREN_REDIS_URL"
	EnvMaxSegmentSize   = "WARREN_MAX_SEGMENT_SIZE"
	EnvHTTPAddr         = "WARREN_HTTP_ADDR"
	EnvSessionBackend   = "WARREN_SESSION_BACKEND"
	EnvSessionNamespace = "WARREN_SESSION_NAMESPACE"
)

// WarrenConfig represents the top-level warren.yml configuration
type WarrenConfig struct {
	Version      string              `yaml:"version"`
	Channel      *ChannelConfig      `yaml:"channel,omitempty"`
	Orchestrator *OrchestratorConfig `yaml:"orchestrator,omitempty"`
	Sessions     *SessionsConfig     `yaml:"sessions,omitempty"`
	HTTP         *HTTPConfig         `yaml:"http,omitempty"`
	Specialists  []Specialist        `yaml:"specialists"`
	Strategies   StrategiesConfig    `yaml:"strategies"`
}

// ChannelConfig specifies delivery limits shared by every channel adapter
type ChannelConfig struct {
	MaxSegmentSize int `yaml:"max_segment_size,omitempty"` // bytes per outgoing segment (default 4000)
}

// OrchestratorConfig specifies strategy execution behaviour
type OrchestratorConfig struct {
	SpecialistTimeout time.Duration `yaml:"specialist_timeout,omitempty"` // per-invocation budget (default 60s)
}

// SessionsConfig selects and tunes the session backend
type SessionsConfig struct {
	Backend      string        `yaml:"backend,omitempty"`   // "memory" or "redis"
	RedisURL     string        `yaml:"redis_url,omitempty"` // redis backend only
	Namespace    string        `yaml:"namespace,omitempty"`
	IdleEviction time.Duration `yaml:"idle_eviction,omitempty"` // 0 keeps sessions forever
}

// HTTPConfig configures `warren serve`
type HTTPConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Specialist represents a single specialist entry
type Specialist struct {
	ID        string          `yaml:"id"`
	Tags      []string        `yaml:"tags,omitempty"`
	Responder ResponderConfig `yaml:"responder"`
}

// ResponderConfig describes the reasoning call behind a specialist
type ResponderConfig struct {
	Kind           string   `yaml:"kind"`                       // "command" or "static"
	Command        []string `yaml:"command,omitempty"`          // command only
	Environment    []string `yaml:"environment,omitempty"`      // command only, KEY=VALUE
	MaxOutputBytes int      `yaml:"max_output_bytes,omitempty"` // command only (default 1 MiB)
	Text           string   `yaml:"text,omitempty"`             // static only
}

// StrategiesConfig binds each coordination mode to its specialists
type StrategiesConfig struct {
	Route       *StrategyConfig `yaml:"route"`
	Coordinate  *StrategyConfig `yaml:"coordinate"`
	Collaborate *StrategyConfig `yaml:"collaborate"`
}

// StrategyConfig lists the specialists eligible under one mode, in priority order
type StrategyConfig struct {
	Specialists []string `yaml:"specialists"`
	Synthesize  bool     `yaml:"synthesize,omitempty"` // collaborate only
}

// Validate performs strict validation on the configuration and applies defaults
func (c *WarrenConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	c.applyDefaults()

	if c.Channel.MaxSegmentSize <= 0 {
		return fmt.Errorf("channel.max_segment_size must be > 0, got %d", c.Channel.MaxSegmentSize)
	}
	if c.Orchestrator.SpecialistTimeout < 0 {
		return fmt.Errorf("orchestrator.specialist_timeout must be >= 0, got %s", c.Orchestrator.SpecialistTimeout)
	}

	switch c.Sessions.Backend {
	case "memory":
	case "redis":
		if c.Sessions.RedisURL == "" {
			return fmt.Errorf("sessions.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid sessions.backend: %s (must be 'memory' or 'redis')", c.Sessions.Backend)
	}
	if c.Sessions.IdleEviction < 0 {
		return fmt.Errorf("sessions.idle_eviction must be >= 0, got %s", c.Sessions.IdleEviction)
	}

	// Required: at least one specialist
	if len(c.Specialists) == 0 {
		return fmt.Errorf("no specialists defined")
	}

	known := make(map[string]bool, len(c.Specialists))
	for i := range c.Specialists {
		s := &c.Specialists[i]
		if err := s.Validate(i); err != nil {
			return err
		}
		if known[s.ID] {
			return fmt.Errorf("duplicate specialist id '%s'", s.ID)
		}
		known[s.ID] = true
	}

	return c.Strategies.Validate(known)
}

func (c *WarrenConfig) applyDefaults() {
	if c.Channel == nil {
		c.Channel = &ChannelConfig{}
	}
	if c.Channel.MaxSegmentSize == 0 {
		c.Channel.MaxSegmentSize = DefaultMaxSegmentSize
	}

	if c.Orchestrator == nil {
		c.Orchestrator = &OrchestratorConfig{}
	}
	if c.Orchestrator.SpecialistTimeout == 0 {
		c.Orchestrator.SpecialistTimeout = DefaultSpecialistTimeout
	}

	if c.Sessions == nil {
		c.Sessions = &SessionsConfig{}
	}
	if c.Sessions.Backend == "" {
		c.Sessions.Backend = DefaultSessionBackend
	}
	if c.Sessions.Namespace == "" {
		c.Sessions.Namespace = DefaultNamespace
	}
	if c.Sessions.Backend == "redis" && c.Sessions.RedisURL == "" {
		c.Sessions.RedisURL = DefaultRedisURL
	}

	if c.HTTP == nil {
		c.HTTP = &HTTPConfig{}
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
}

// Validate performs validation on a single specialist entry
func (s *Specialist) Validate(index int) error {
	// Required: id
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("specialist at index %d: id is required", index)
	}

	for _, tag := range s.Tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("specialist '%s': tags cannot be empty", s.ID)
		}
	}

	r := &s.Responder
	switch r.Kind {
	case "command":
		if len(r.Command) == 0 {
			return fmt.Errorf("specialist '%s': responder.command is required for kind 'command'", s.ID)
		}
		for _, kv := range r.Environment {
			if !strings.Contains(kv, "=") {
				return fmt.Errorf("specialist '%s': invalid environment entry %q (expected KEY=VALUE)", s.ID, kv)
			}
		}
		if r.MaxOutputBytes < 0 {
			return fmt.Errorf("specialist '%s': responder.max_output_bytes must be >= 0", s.ID)
		}
		if r.MaxOutputBytes == 0 {
			r.MaxOutputBytes = DefaultMaxOutputBytes
		}
	case "static":
		if r.Text == "" {
			return fmt.Errorf("specialist '%s': responder.text is required for kind 'static'", s.ID)
		}
	case "":
		return fmt.Errorf("specialist '%s': responder.kind is required", s.ID)
	default:
		return fmt.Errorf("specialist '%s': invalid responder kind: %s (must be 'command' or 'static')", s.ID, r.Kind)
	}

	return nil
}

// Validate checks that every mode is bound to known specialists
func (s *StrategiesConfig) Validate(known map[string]bool) error {
	bindings := []struct {
		name string
		cfg  *StrategyConfig
	}{
		{"route", s.Route},
		{"coordinate", s.Coordinate},
		{"collaborate", s.Collaborate},
	}

	for _, b := range bindings {
		if b.cfg == nil || len(b.cfg.Specialists) == 0 {
			return fmt.Errorf("strategies.%s: at least one specialist is required", b.name)
		}

		seen := make(map[string]bool, len(b.cfg.Specialists))
		for _, id := range b.cfg.Specialists {
			if !known[id] {
				return fmt.Errorf("strategies.%s: unknown specialist '%s'", b.name, id)
			}
			if seen[id] {
				return fmt.Errorf("strategies.%s: specialist '%s' listed more than once", b.name, id)
			}
			seen[id] = true
		}

		if b.cfg.Synthesize && b.name != "collaborate" {
			return fmt.Errorf("strategies.%s: synthesize is only supported for collaborate", b.name)
		}
	}

	return nil
}

// ApplyEnv overrides file settings from the process environment.
func (c *WarrenConfig) ApplyEnv() error {
	if c.Channel == nil {
		c.Channel = &ChannelConfig{}
	}
	if c.Sessions == nil {
		c.Sessions = &SessionsConfig{}
	}
	if c.HTTP == nil {
		c.HTTP = &HTTPConfig{}
	}

	if v, ok := os.LookupEnv(EnvMaxSegmentSize); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxSegmentSize, err)
		}
		c.Channel.MaxSegmentSize = n
	}

	c.Sessions.Backend = getEnv(EnvSessionBackend, c.Sessions.Backend)
	c.Sessions.Namespace = getEnv(EnvSessionNamespace, c.Sessions.Namespace)
	c.Sessions.RedisURL = getEnv(EnvRedisURL, c.Sessions.RedisURL)
	c.HTTP.Addr = getEnv(EnvHTTPAddr, c.HTTP.Addr)
	return nil
}

// Load reads warren.yml from the specified path, applies environment
// overrides and validates the result
func Load(path string) (*WarrenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config WarrenConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
