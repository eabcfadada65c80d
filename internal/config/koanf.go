// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/watchparty/config.yaml",
	"/etc/watchparty/config.yml",
}

// ConfigPathEnvVar names the environment variable pointing at a YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8088,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Backend:         StoreBackendBadger,
			Path:            "/data/watchparty",
			OpTimeout:       3 * time.Second,
			GCInterval:      10 * time.Minute,
			RedisAddr:       "127.0.0.1:6379",
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Broker: BrokerConfig{
			Mode:            BrokerModeLocal,
			Topic:           "watchparty-events",
			PublishTimeout:  2 * time.Second,
			NATSURL:         "nats://127.0.0.1:4222",
			MaxReconnects:   -1,
			ReconnectWait:   2 * time.Second,
			EmbeddedHost:    "127.0.0.1",
			EmbeddedPort:    4222,
			EmbeddedStore:   "/data/watchparty-nats",
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Party: PartyConfig{
			MaxParticipants:     100,
			RoomTTL:             8 * time.Hour,
			Retention:           48 * time.Hour,
			ExpireInterval:      5 * time.Minute,
			CleanupInterval:     time.Hour,
			ExpiringSoonWindow:  30 * time.Minute,
			LockTimeout:         2 * time.Second,
			CodeLength:          6,
			CodeAttempts:        10,
			MaxMessageLength:    2000,
			ChatRatePerSecond:   2,
			ChatBurst:           10,
			DefaultPageSize:     20,
			MaxPageSize:         100,
			MaxParticipantLimit: 500,
		},
		Security: SecurityConfig{
			JWTIssuer:       "",
			TokenTTL:        24 * time.Hour,
			AdminRole:       "admin",
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			WSOrigins:       []string{"*"},
		},
		Upstream: UpstreamConfig{
			Timeout:          5 * time.Second,
			CacheTTL:         5 * time.Minute,
			FailureThreshold: 5,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load reads configuration. An explicit path overrides CONFIG_PATH and the
// default search locations. A .env file in the working directory is applied
// to the process environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.ws_origins",
	"upstream.static_podcasts",
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"store_backend":          "store.backend",
	"store_path":             "store.path",
	"store_op_timeout":       "store.op_timeout",
	"store_gc_interval":      "store.gc_interval",
	"redis_addr":             "store.redis_addr",
	"redis_password":         "store.redis_password",
	"redis_db":               "store.redis_db",
	"store_breaker_failures": "store.breaker_failures",
	"store_breaker_timeout":  "store.breaker_timeout",

	"broker_mode":            "broker.mode",
	"broker_topic":           "broker.topic",
	"broker_publish_timeout": "broker.publish_timeout",
	"nats_url":               "broker.nats_url",
	"nats_jetstream":         "broker.jetstream",
	"nats_max_reconnects":    "broker.max_reconnects",
	"nats_reconnect_wait":    "broker.reconnect_wait",
	"nats_embedded":          "broker.embedded",
	"nats_embedded_host":     "broker.embedded_host",
	"nats_embedded_port":     "broker.embedded_port",
	"nats_store_dir":         "broker.embedded_store_dir",

	"party_max_participants":      "party.max_participants",
	"party_room_ttl":              "party.room_ttl",
	"party_retention":             "party.retention",
	"party_expire_interval":       "party.expire_interval",
	"party_cleanup_interval":      "party.cleanup_interval",
	"party_expiring_soon_window":  "party.expiring_soon_window",
	"party_lock_timeout":          "party.lock_timeout",
	"party_code_length":           "party.code_length",
	"party_max_message_length":    "party.max_message_length",
	"party_chat_rate":             "party.chat_rate_per_second",
	"party_chat_burst":            "party.chat_burst",
	"party_default_page_size":     "party.default_page_size",
	"party_max_page_size":         "party.max_page_size",
	"party_max_participant_limit": "party.max_participant_limit",

	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"jwt_token_ttl":       "security.token_ttl",
	"admin_role":          "security.admin_role",
	"casbin_model_path":   "security.casbin_model_path",
	"casbin_policy_path":  "security.casbin_policy_path",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"ws_origins":          "security.ws_origins",

	"catalog_url":        "upstream.catalog_url",
	"identity_url":       "upstream.identity_url",
	"upstream_token":     "upstream.token",
	"upstream_timeout":   "upstream.timeout",
	"upstream_cache_ttl": "upstream.cache_ttl",
	"upstream_failures":  "upstream.failure_threshold",
	"static_podcasts":    "upstream.static_podcasts",
}

// envTransformFunc maps flat environment variable names onto koanf paths.
// Unknown variables map to "" and are ignored by the provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
