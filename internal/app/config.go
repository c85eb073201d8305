package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Unknumb/SneakerStoreMobile/internal/remote/mindicador"
	"github.com/Unknumb/SneakerStoreMobile/internal/remote/sneakerapi"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Catalog sources.
const (
	SourceFixture = "fixture"
	SourceFile    = "file"
	SourceStored  = "stored"
	SourceRemote  = "remote"
)

// Config holds the complete application configuration, loadable from
// environment variables (SNEAKER_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage     string `default:"memory" usage:"Persistence backend: memory or postgres"`
	DatabaseURL string `usage:"PostgreSQL connection URL (SNEAKER_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Catalog     CatalogConfig
	Indicator   IndicatorConfig
	Checkout    CheckoutConfig
	Login       LoginConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CatalogConfig selects where products come from.
type CatalogConfig struct {
	Source      string        `default:"remote" usage:"Catalog source: fixture, file, stored or remote"`
	FixturePath string        `usage:"Catalog file for the file source (.json or .json.gz)" flag:"catalog-fixture-path"`
	RemoteURL   string        `default:"https://backend-sneakerstore-1.onrender.com/" usage:"Sneaker backend base URL" flag:"catalog-remote-url"`
	Timeout     time.Duration `default:"15s" usage:"Catalog request timeout"`
	// Fallback loads the built-in catalog when the first load fails.
	Fallback bool `default:"true" usage:"Fall back to the built-in catalog when the first load fails"`
}

// IndicatorConfig configures the dollar rate source.
type IndicatorConfig struct {
	URL      string        `default:"https://mindicador.cl/api" usage:"Economic indicators endpoint"`
	Timeout  time.Duration `default:"5s" usage:"Indicator request timeout"`
	CacheTTL time.Duration `default:"1h" usage:"How long a fetched dollar rate is reused" flag:"indicator-cache-ttl"`
}

// CheckoutConfig holds checkout pricing.
type CheckoutConfig struct {
	ShippingCost int64 `default:"3500" usage:"Flat shipping cost in CLP" flag:"shipping-cost"`
}

// LoginConfig throttles login attempts per username.
type LoginConfig struct {
	MaxAttempts int           `default:"5" usage:"Failed logins allowed per window" flag:"login-max-attempts"`
	Window      time.Duration `default:"5m" usage:"Login throttling window" flag:"login-window"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// ShippingCost returns the configured shipping cost as a decimal.
func (c *Config) ShippingCost() decimal.Decimal {
	return decimal.NewFromInt(c.Checkout.ShippingCost)
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SNEAKER",
		Files:     []string{"config.yaml", "/etc/sneakerstore/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks option combinations.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres storage: set SNEAKER_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}

	switch c.Catalog.Source {
	case SourceFixture, SourceRemote:
	case SourceFile:
		if c.Catalog.FixturePath == "" {
			return errors.New("file catalog source requires a fixture path: set SNEAKER_CATALOG_FIXTURE_PATH")
		}
	case SourceStored:
		if c.Storage != StoragePostgres {
			return errors.New("stored catalog source requires postgres storage")
		}
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	if c.Checkout.ShippingCost < 0 {
		return errors.New("shipping cost must not be negative")
	}
	if c.Login.MaxAttempts < 0 {
		return errors.New("login max attempts must not be negative")
	}
	if c.Login.MaxAttempts > 0 && c.Login.Window <= 0 {
		return errors.New("login window must be positive")
	}
	if c.RateLimit.Max <= 0 {
		return errors.New("rate limit max must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's SNEAKER_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
	if c.Catalog.RemoteURL == "" {
		c.Catalog.RemoteURL = sneakerapi.DefaultBaseURL
	}
	if c.Indicator.URL == "" {
		c.Indicator.URL = mindicador.DefaultURL
	}
}
