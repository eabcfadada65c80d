// Watchparty - Synchronized Group Playback for Podcast Communities
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchparty

// Package authz guards operator endpoints with Casbin RBAC.
//
// Room-level permissions (host-only actions, participant checks) live in the
// party package; this package only decides which platform roles may call the
// /api/v1/admin routes.
package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/watchparty/internal/cache"
	"github.com/tomtom215/watchparty/internal/config"
	"github.com/tomtom215/watchparty/internal/logging"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// DefaultAdminRole is the role the embedded policy grants admin access to.
const DefaultAdminRole = "admin"

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// ModelPath is the path to the Casbin model file.
	// If empty, uses embedded model.
	ModelPath string

	// PolicyPath is the path to the Casbin policy file.
	// If empty, uses embedded policy.
	PolicyPath string

	// AdminRole is mapped onto the embedded "admin" role when it differs.
	AdminRole string

	// ReloadInterval re-reads PolicyPath periodically. Zero disables it.
	ReloadInterval time.Duration

	// CacheTTL is how long to cache decisions. Zero disables caching.
	CacheTTL time.Duration
}

// ConfigFrom maps the security section onto an EnforcerConfig.
func ConfigFrom(cfg config.SecurityConfig) EnforcerConfig {
	return EnforcerConfig{
		ModelPath:      cfg.CasbinModelPath,
		PolicyPath:     cfg.CasbinPolicy,
		AdminRole:      cfg.AdminRole,
		ReloadInterval: 30 * time.Second,
		CacheTTL:       time.Minute,
	}
}

// Enforcer wraps the Casbin enforcer with a decision cache.
type Enforcer struct {
	config   EnforcerConfig
	enforcer *casbin.SyncedEnforcer
	cache    *cache.Cache[bool]
}

// NewEnforcer creates a new authorization enforcer.
func NewEnforcer(cfg EnforcerConfig) (*Enforcer, error) {
	var m model.Model
	var err error

	if cfg.ModelPath != "" {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		if _, statErr := os.Stat(cfg.PolicyPath); statErr != nil {
			return nil, fmt.Errorf("casbin policy %s: %w", cfg.PolicyPath, statErr)
		}
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	// A deployment whose identity service calls admins "staff" inherits the
	// embedded admin grants.
	if cfg.AdminRole != "" && cfg.AdminRole != DefaultAdminRole {
		if _, err := enforcer.AddGroupingPolicy(cfg.AdminRole, DefaultAdminRole); err != nil {
			return nil, fmt.Errorf("failed to map admin role %q: %w", cfg.AdminRole, err)
		}
	}

	if cfg.PolicyPath != "" && cfg.ReloadInterval > 0 {
		enforcer.StartAutoLoadPolicy(cfg.ReloadInterval)
	}

	e := &Enforcer{
		config:   cfg,
		enforcer: enforcer,
	}
	if cfg.CacheTTL > 0 {
		e.cache = cache.New[bool](cfg.CacheTTL, 0)
	}

	logging.Info().
		Bool("embedded_model", cfg.ModelPath == "").
		Bool("embedded_policy", cfg.PolicyPath == "").
		Str("admin_role", cfg.AdminRole).
		Msg("Authorization enforcer ready")

	return e, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ptype, rule := parts[0], parts[1:]
		switch {
		case ptype == "p" && len(rule) >= 3:
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case ptype == "g" && len(rule) >= 2:
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Enforce checks if the subject can perform the action on the object.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	key := subject + ":" + object + ":" + action
	if e.cache != nil {
		if allowed, ok := e.cache.Get(key); ok {
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.cache != nil {
		e.cache.Set(key, allowed)
	}
	return allowed, nil
}

// EnforceWithRoles checks the subject id and then each of its roles.
func (e *Enforcer) EnforceWithRoles(subject string, roles []string, object, action string) (bool, error) {
	if allowed, err := e.Enforce(subject, object, action); err != nil || allowed {
		return allowed, err
	}

	for _, role := range roles {
		if allowed, err := e.Enforce(role, object, action); err != nil || allowed {
			return allowed, err
		}
	}
	return false, nil
}

// GetPolicy returns all policy rules.
func (e *Enforcer) GetPolicy() [][]string {
	//nolint:errcheck // GetPolicy only fails if enforcer is nil, which is a programming error
	policies, _ := e.enforcer.GetPolicy()
	return policies
}

// Close stops policy reloads and the decision cache.
func (e *Enforcer) Close() {
	e.enforcer.StopAutoLoadPolicy()
	if e.cache != nil {
		e.cache.Close()
	}
}
