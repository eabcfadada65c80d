// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// minJWTSecretLength is the shortest HS256 secret accepted in production.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateBroker(); err != nil {
		return err
	}
	if err := c.validateParty(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateUpstream()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required for the badger backend")
		}
	case StoreBackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case StoreBackendMemory:
		if c.Server.IsProduction() {
			return fmt.Errorf("STORE_BACKEND=memory is not durable and is rejected in production")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be badger, redis or memory, got %q", c.Store.Backend)
	}
	if c.Store.OpTimeout <= 0 {
		return fmt.Errorf("STORE_OP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateBroker() error {
	switch c.Broker.Mode {
	case BrokerModeLocal:
	case BrokerModeNATS:
		if !c.Broker.Embedded && c.Broker.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when BROKER_MODE=nats without an embedded server")
		}
		if c.Broker.Embedded && (c.Broker.EmbeddedPort < 1 || c.Broker.EmbeddedPort > 65535) {
			return fmt.Errorf("NATS_EMBEDDED_PORT must be between 1 and 65535")
		}
	default:
		return fmt.Errorf("BROKER_MODE must be local or nats, got %q", c.Broker.Mode)
	}
	if c.Broker.Topic == "" {
		return fmt.Errorf("BROKER_TOPIC must not be empty")
	}
	if strings.ContainsAny(c.Broker.Topic, " .*>") {
		return fmt.Errorf("BROKER_TOPIC %q must not contain spaces, dots or wildcards", c.Broker.Topic)
	}
	return nil
}

func (c *Config) validateParty() error {
	p := c.Party
	if p.MaxParticipants < 2 {
		return fmt.Errorf("PARTY_MAX_PARTICIPANTS must be at least 2, got %d", p.MaxParticipants)
	}
	if p.MaxParticipantLimit < p.MaxParticipants {
		return fmt.Errorf("PARTY_MAX_PARTICIPANT_LIMIT (%d) must be >= PARTY_MAX_PARTICIPANTS (%d)", p.MaxParticipantLimit, p.MaxParticipants)
	}
	durations := map[string]time.Duration{
		"PARTY_ROOM_TTL":             p.RoomTTL,
		"PARTY_RETENTION":            p.Retention,
		"PARTY_EXPIRE_INTERVAL":      p.ExpireInterval,
		"PARTY_CLEANUP_INTERVAL":     p.CleanupInterval,
		"PARTY_EXPIRING_SOON_WINDOW": p.ExpiringSoonWindow,
		"PARTY_LOCK_TIMEOUT":         p.LockTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if p.CodeLength < 4 || p.CodeLength > 12 {
		return fmt.Errorf("PARTY_CODE_LENGTH must be between 4 and 12, got %d", p.CodeLength)
	}
	if p.CodeAttempts < 1 {
		return fmt.Errorf("party.code_attempts must be at least 1")
	}
	if p.MaxMessageLength < 1 {
		return fmt.Errorf("PARTY_MAX_MESSAGE_LENGTH must be positive")
	}
	if p.DefaultPageSize < 1 || p.MaxPageSize < p.DefaultPageSize {
		return fmt.Errorf("page sizes must satisfy 1 <= default (%d) <= max (%d)", p.DefaultPageSize, p.MaxPageSize)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Server.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
	}
	if c.Security.AdminRole == "" {
		return fmt.Errorf("ADMIN_ROLE must not be empty")
	}
	if !c.Security.RateLimitOff && (c.Security.RateLimitReqs < 1 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive unless DISABLE_RATE_LIMIT=true")
	}
	return nil
}

func (c *Config) validateUpstream() error {
	for name, raw := range map[string]string{
		"CATALOG_URL":  c.Upstream.CatalogURL,
		"IDENTITY_URL": c.Upstream.IdentityURL,
	} {
		if raw == "" {
			continue
		}
		if err := validateHTTPURL(raw); err != nil {
			return fmt.Errorf("%s is invalid: %w", name, err)
		}
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
