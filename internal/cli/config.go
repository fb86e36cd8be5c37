package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tenantsync/internal/registry"
	"github.com/roach88/tenantsync/internal/remote"
)

// Config is the tenantsync.yaml file: the cache database path, the shared
// rate-limit policy, and the known tenants.
type Config struct {
	Database  string                  `yaml:"database"`
	RateLimit RateLimitConfig         `yaml:"rate_limit"`
	Tenants   map[string]TenantConfig `yaml:"tenants"`
}

// RateLimitConfig is the rolling-window call budget shared by all remote
// calls of one invocation.
type RateLimitConfig struct {
	MaxCalls int    `yaml:"max_calls"`
	Window   string `yaml:"window"` // Go duration string, e.g. "1m"
}

// TenantConfig describes one tenant. Inventory points at a resource
// inventory document served as the tenant's remote source; a real product
// client would replace it behind the same interface.
type TenantConfig struct {
	Product   string `yaml:"product"`
	Inventory string `yaml:"inventory"`
}

// LoadConfig reads and validates the configuration file. Unknown keys are
// rejected so typos fail loudly.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		Database: "tenantsync.db",
		RateLimit: RateLimitConfig{
			MaxCalls: 100,
			Window:   "1m",
		},
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	for name, t := range cfg.Tenants {
		product := t.Product
		if product == "" {
			product = string(registry.ProductSWG)
			t.Product = product
			cfg.Tenants[name] = t
		}
		if len(registry.Types(registry.Product(product))) == 0 {
			return nil, fmt.Errorf("tenant %q: unknown product %q", name, product)
		}
	}
	if _, err := cfg.RateLimit.parse(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Tenant looks up a tenant by name.
func (c *Config) Tenant(name string) (TenantConfig, error) {
	t, ok := c.Tenants[name]
	if !ok {
		return TenantConfig{}, fmt.Errorf("unknown tenant %q", name)
	}
	return t, nil
}

// Limiter builds the rate limiter from the configured policy.
func (c *Config) Limiter() *remote.RateLimiter {
	window, _ := c.RateLimit.parse()
	return remote.NewRateLimiter(c.RateLimit.MaxCalls, window)
}

func (r RateLimitConfig) parse() (time.Duration, error) {
	window, err := time.ParseDuration(r.Window)
	if err != nil || window <= 0 {
		return 0, fmt.Errorf("rate_limit.window %q: not a positive duration", r.Window)
	}
	if r.MaxCalls <= 0 {
		return 0, fmt.Errorf("rate_limit.max_calls must be positive, got %d", r.MaxCalls)
	}
	return window, nil
}
