package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the API server configuration, loadable from environment
// variables (POS_ prefix), a .env file, flags, or YAML config files.
type Config struct {
	// Addr is the listen address. PORT overrides it when left at the default.
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`
	// DatabaseURL is required. Falls back to DATABASE_URL.
	DatabaseURL string `usage:"PostgreSQL connection URL (POS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// UserHeader is set by the upstream auth layer. Requests to /api/
	// without a positive integer in it are rejected with 401.
	UserHeader string `default:"X-User-ID" usage:"Header carrying the authenticated cashier id" flag:"user-header"`

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// RateLimitConfig controls the per-cashier sliding window rate limiter.
// Buckets are keyed by UserHeader, or the client IP when it is absent.
type RateLimitConfig struct {
	// Max is the number of requests a bucket may make per Window. Must be
	// positive.
	Max int `default:"300" usage:"Max requests per window"`
	// Window is the sliding window length. Must be positive.
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	// Origins lists allowed origins; "*" allows any.
	Origins []string `default:"*" usage:"Allowed CORS origins"`
	// AllowCredentials echoes the request origin instead of "*".
	AllowCredentials bool `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	// ReadinessDelay gives load balancers time to observe /readyz failing
	// before the listener closes.
	ReadinessDelay time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	// ShutdownTimeout bounds draining in-flight requests.
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig reads an optional .env file into the environment, then loads
// configuration from environment variables and YAML config files.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(skipFlags bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: skipFlags,
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set POS_DATABASE_URL or DATABASE_URL")
	}
	if c.RateLimit.Max <= 0 {
		return errors.Errorf("rate limit max must be positive, got %d", c.RateLimit.Max)
	}
	if c.RateLimit.Window <= 0 {
		return errors.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	}
	return nil
}

// applyPlatformDefaults maps the conventional DATABASE_URL and PORT variables
// set by hosting platforms onto the POS_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
