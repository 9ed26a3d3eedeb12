package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"browsekit/browsekit/services/browserless"
	"browsekit/browsekit/utils/apperrors"
)

type Config struct {
	Port int    `envconfig:"PORT" default:"3000"`
	Host string `envconfig:"HOST" default:""`

	BrowserlessAPIKey            string        `envconfig:"BROWSERLESS_API_KEY"`
	BrowserlessURL               string        `envconfig:"BROWSERLESS_URL" default:"https://chrome.browserless.io"`
	BrowserlessFunctionTimeout   time.Duration `envconfig:"BROWSERLESS_FUNCTION_TIMEOUT" default:"60s"`
	BrowserlessScreenshotTimeout time.Duration `envconfig:"BROWSERLESS_SCREENSHOT_TIMEOUT" default:"30s"`
	BrowserlessScrapeTimeout     time.Duration `envconfig:"BROWSERLESS_SCRAPE_TIMEOUT" default:"30s"`

	BatchDelay      time.Duration `envconfig:"BATCH_DELAY" default:"2s"`
	BatchMaxQueries int           `envconfig:"BATCH_MAX_QUERIES" default:"25"`

	SearchEngineURL      string `envconfig:"SEARCH_ENGINE_URL" default:"https://www.google.com"`
	SearchInputSelector  string `envconfig:"SEARCH_INPUT_SELECTOR" default:"input[name='q']"`
	SearchResultSelector string `envconfig:"SEARCH_RESULT_SELECTOR" default:"h3"`

	APIKey    string `envconfig:"API_KEY"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	RateLimitEnabled bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS     float64 `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst   int     `envconfig:"RATE_LIMIT_BURST" default:"10"`

	LogDir string `envconfig:"LOG_DIR" default:"./logs"`

	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"browsekit-artifacts"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBHost     string `envconfig:"DB_HOST"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBName     string `envconfig:"DB_NAME"`
}

// Override adjusts a loaded Config before it is validated.
type Override func(*Config)

// WithBrowserless replaces the token and base URL when they are non-empty.
func WithBrowserless(token, baseURL string) Override {
	return func(c *Config) {
		if token != "" {
			c.BrowserlessAPIKey = token
		}
		if baseURL != "" {
			c.BrowserlessURL = baseURL
		}
	}
}

// LoadConfig reads .env (if present) and the environment, then applies
// overrides. A missing BROWSERLESS_API_KEY is a *apperrors.ConfigurationError.
func LoadConfig(overrides ...Override) (Config, error) {
	// No .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		var perr *envconfig.ParseError
		if errors.As(err, &perr) {
			return Config{}, &apperrors.ConfigurationError{Key: perr.KeyName, Err: err}
		}
		return Config{}, &apperrors.ConfigurationError{Err: err}
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if strings.TrimSpace(cfg.BrowserlessAPIKey) == "" {
		return Config{}, apperrors.MissingCredential(browserless.TokenEnv)
	}
	if cfg.BatchMaxQueries <= 0 {
		return Config{}, &apperrors.ConfigurationError{Key: "BATCH_MAX_QUERIES", Err: fmt.Errorf("must be positive, got %d", cfg.BatchMaxQueries)}
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

func (c Config) Browserless() browserless.Config {
	return browserless.Config{
		BaseURL:           c.BrowserlessURL,
		Token:             c.BrowserlessAPIKey,
		FunctionTimeout:   c.BrowserlessFunctionTimeout,
		CapabilityTimeout: c.BrowserlessScreenshotTimeout,
	}
}

// MinioEnabled reports whether artifact archiving is configured.
func (c Config) MinioEnabled() bool {
	return c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != ""
}

// DatabaseEnabled reports whether batch run history is configured.
func (c Config) DatabaseEnabled() bool {
	return c.DBHost != "" && c.DBName != ""
}

// DSN is the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}
