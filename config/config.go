// Package config loads the navigator runtime configuration: where the
// platform services live and how long their answers may be cached.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	cache "github.com/kbase/navcache"
	"github.com/kbase/navcache/resolver"
)

const (
	EnvHostRoot    = "NAVCACHE_HOST_ROOT"
	EnvServiceRoot = "NAVCACHE_SERVICE_ROOT"
)

var (
	ErrMissingHostRoot      = errors.New("config: host_root is required")
	ErrMissingServiceRoot   = errors.New("config: service_root is required")
	ErrMissingServiceWizard = errors.New("config: service_routes.service_wizard is required")
)

type ServiceRoutes struct {
	Search               string `yaml:"search"`
	Workspace            string `yaml:"workspace"`
	Auth                 string `yaml:"auth"`
	UserProfile          string `yaml:"user_profile"`
	NarrativeMethodStore string `yaml:"narrative_method_store"`
	Catalog              string `yaml:"catalog"`
	ServiceWizard        string `yaml:"service_wizard"`
}

type ViewRoutes struct {
	Narrative string `yaml:"narrative"`
	Login     string `yaml:"login"`
}

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type ResolverConfig struct {
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	Coalesce    *bool         `yaml:"coalesce"`
}

// Config holds absolute service and view urls. Routes in the file are
// relative and are joined to their root by Parse.
type Config struct {
	HostRoot      string         `yaml:"host_root"`
	ServiceRoot   string         `yaml:"service_root"`
	ServiceRoutes ServiceRoutes  `yaml:"service_routes"`
	ViewRoutes    ViewRoutes     `yaml:"view_routes"`
	Cache         CacheConfig    `yaml:"cache"`
	Resolver      ResolverConfig `yaml:"resolver"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies environment overrides and defaults, and
// resolves every route to an absolute url.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if v := os.Getenv(EnvHostRoot); v != "" {
		c.HostRoot = v
	}
	if v := os.Getenv(EnvServiceRoot); v != "" {
		c.ServiceRoot = v
	}

	c.HostRoot = strings.TrimSuffix(c.HostRoot, "/")
	c.ServiceRoot = strings.TrimSuffix(c.ServiceRoot, "/")
	if c.HostRoot == "" {
		return nil, ErrMissingHostRoot
	}
	if c.ServiceRoot == "" {
		return nil, ErrMissingServiceRoot
	}
	if c.ServiceRoutes.ServiceWizard == "" {
		return nil, ErrMissingServiceWizard
	}

	for _, route := range []*string{
		&c.ServiceRoutes.Search,
		&c.ServiceRoutes.Workspace,
		&c.ServiceRoutes.Auth,
		&c.ServiceRoutes.UserProfile,
		&c.ServiceRoutes.NarrativeMethodStore,
		&c.ServiceRoutes.Catalog,
		&c.ServiceRoutes.ServiceWizard,
	} {
		*route = join(c.ServiceRoot, *route)
	}
	for _, route := range []*string{
		&c.ViewRoutes.Narrative,
		&c.ViewRoutes.Login,
	} {
		*route = join(c.HostRoot, *route)
	}

	if c.Cache.TTL <= 0 {
		c.Cache.TTL = cache.DefaultTTL
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = cache.DefaultSweepInterval
	}
	if c.Resolver.MaxLifetime <= 0 {
		c.Resolver.MaxLifetime = resolver.DefaultMaxLifetime
	}
	if c.Resolver.Coalesce == nil {
		coalesce := true
		c.Resolver.Coalesce = &coalesce
	}
	return &c, nil
}

// ResolverOptions translates the resolver section into resolver options.
func (c *Config) ResolverOptions() []resolver.Option {
	return []resolver.Option{
		resolver.WithMaxLifetime(c.Resolver.MaxLifetime),
		resolver.WithSweepInterval(c.Cache.SweepInterval),
		resolver.WithCoalescing(c.Resolver.Coalesce == nil || *c.Resolver.Coalesce),
	}
}

// CacheOptions translates the cache section into options for a cache of
// any key and value type.
func CacheOptions[K comparable, V any](c *Config) []cache.Option[K, V] {
	return []cache.Option[K, V]{
		cache.WithTTL[K, V](c.Cache.TTL),
		cache.WithSweepInterval[K, V](c.Cache.SweepInterval),
	}
}

// join keeps an unset route empty.
func join(root, route string) string {
	if route == "" {
		return ""
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return root + route
}
