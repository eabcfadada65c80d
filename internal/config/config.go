// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package config loads watchparty configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Store      StoreConfig      `koanf:"store"`
	Broker     BrokerConfig     `koanf:"broker"`
	Party      PartyConfig      `koanf:"party"`
	Security   SecurityConfig   `koanf:"security"`
	Upstream   UpstreamConfig   `koanf:"upstream"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Store backends.
const (
	StoreBackendBadger = "badger"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

// StoreConfig selects and tunes the durable room store.
type StoreConfig struct {
	Backend   string        `koanf:"backend"`
	Path      string        `koanf:"path"` // badger directory
	OpTimeout time.Duration `koanf:"op_timeout"`

	// GCInterval paces badger value log compaction.
	GCInterval time.Duration `koanf:"gc_interval"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Circuit breaker around store calls.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// Broker modes.
const (
	BrokerModeLocal = "local"
	BrokerModeNATS  = "nats"
)

// BrokerConfig selects the pub/sub fabric used for room broadcasts.
type BrokerConfig struct {
	Mode           string        `koanf:"mode"`
	Topic          string        `koanf:"topic"`
	PublishTimeout time.Duration `koanf:"publish_timeout"`

	NATSURL         string        `koanf:"nats_url"`
	JetStream       bool          `koanf:"jetstream"`
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	Embedded        bool          `koanf:"embedded"`
	EmbeddedHost    string        `koanf:"embedded_host"`
	EmbeddedPort    int           `koanf:"embedded_port"`
	EmbeddedStore   string        `koanf:"embedded_store_dir"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// PartyConfig holds watch party business rules.
type PartyConfig struct {
	MaxParticipants     int           `koanf:"max_participants"`
	RoomTTL             time.Duration `koanf:"room_ttl"`
	Retention           time.Duration `koanf:"retention"`
	ExpireInterval      time.Duration `koanf:"expire_interval"`
	CleanupInterval     time.Duration `koanf:"cleanup_interval"`
	ExpiringSoonWindow  time.Duration `koanf:"expiring_soon_window"`
	LockTimeout         time.Duration `koanf:"lock_timeout"`
	CodeLength          int           `koanf:"code_length"`
	CodeAttempts        int           `koanf:"code_attempts"`
	MaxMessageLength    int           `koanf:"max_message_length"`
	ChatRatePerSecond   float64       `koanf:"chat_rate_per_second"`
	ChatBurst           int           `koanf:"chat_burst"`
	DefaultPageSize     int           `koanf:"default_page_size"`
	MaxPageSize         int           `koanf:"max_page_size"`
	MaxParticipantLimit int           `koanf:"max_participant_limit"`
}

// SecurityConfig holds caller verification and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	JWTIssuer       string        `koanf:"jwt_issuer"`
	TokenTTL        time.Duration `koanf:"token_ttl"` // lifetime of tokens minted by the CLI
	AdminRole       string        `koanf:"admin_role"`
	CasbinModelPath string        `koanf:"casbin_model_path"`
	CasbinPolicy    string        `koanf:"casbin_policy_path"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	RateLimitOff    bool          `koanf:"rate_limit_disabled"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	WSOrigins       []string      `koanf:"ws_origins"`
}

// UpstreamConfig points at the identity and content services.
type UpstreamConfig struct {
	CatalogURL       string        `koanf:"catalog_url"`
	IdentityURL      string        `koanf:"identity_url"`
	Token            string        `koanf:"token"`
	Timeout          time.Duration `koanf:"timeout"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	// StaticPodcasts seeds the development catalog when CatalogURL is empty.
	StaticPodcasts []string `koanf:"static_podcasts"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}

// IsProduction reports whether production-only checks apply.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
