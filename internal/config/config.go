package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/google/uuid"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultBaseURL       = "http://localhost:8080"
	defaultUploadPath    = "static/qr-codes"
	defaultCodeLength    = 5
	maxCodeLength        = 10
	defaultCacheTTL      = 30 * time.Second
	defaultCacheSize     = 1000
	defaultCodeAttempts  = 20
	defaultRateLimit     = 10
	defaultProbeTimeout  = 5 * time.Second
	defaultSessionTTL    = 24 * time.Hour
)

type Config struct {
	ServerAddress         string        `env:"SERVER_ADDRESS"`
	BaseURL               string        `env:"BASE_URL"`
	FileStoragePath       string        `env:"FILE_STORAGE_PATH"`
	DatabaseDSN           string        `env:"DATABASE_DSN"`
	SecretKey             string        `env:"SECRET_KEY"`
	UploadPath            string        `env:"UPLOAD_PATH"`
	RedisURL              string        `env:"REDIS_URL"`
	ShortCodeLength       int           `env:"SHORT_CODE_LENGTH"`
	CodeMaxLength         int           `env:"CODE_MAX_LENGTH"`
	CodeAttempts          int           `env:"CODE_ATTEMPTS"`
	CacheTTL              time.Duration `env:"CACHE_TTL"`
	CacheSize             int           `env:"CACHE_SIZE"`
	RateLimit             int           `env:"RATE_LIMIT"`
	ProbeTimeout          time.Duration `env:"PROBE_TIMEOUT"`
	SkipReachabilityCheck bool          `env:"SKIP_REACHABILITY_CHECK"`
	QROnCreate            bool          `env:"QR_ON_CREATE"`
	LogFormat             string        `env:"LOG_FORMAT"`
	SessionTTL            time.Duration `env:"SESSION_TTL"`

	// GeneratedSecret is set when no secret was configured and a random one
	// was made up. Sessions then end with the process.
	GeneratedSecret bool
}

// ParseFlags reads command line flags and then environment variables. A
// non-empty environment value wins over its flag.
func ParseFlags() (*Config, error) {
	envCfg := &Config{}
	if err := env.Parse(envCfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.ServerAddress, "a", defaultServerAddress, "Address of the server")
	flag.StringVar(&cfg.BaseURL, "b", defaultBaseURL, "Base URL for short URLs")
	flag.StringVar(&cfg.FileStoragePath, "f", "", "Path of the JSON snapshot for in-memory storage")
	flag.StringVar(&cfg.DatabaseDSN, "d", "", "PostgreSQL connection string")
	flag.StringVar(&cfg.SecretKey, "s", "", "Secret used to sign session cookies")
	flag.StringVar(&cfg.UploadPath, "u", defaultUploadPath, "Directory for QR code images")
	flag.StringVar(&cfg.RedisURL, "r", "", "Redis URL for the QR code cache")
	flag.IntVar(&cfg.ShortCodeLength, "l", defaultCodeLength, "Length of generated short codes")
	flag.IntVar(&cfg.CodeMaxLength, "code-max-length", maxCodeLength, "Longest code generated after repeated collisions")
	flag.IntVar(&cfg.CodeAttempts, "code-attempts", defaultCodeAttempts, "Candidates drawn before code generation gives up")
	flag.DurationVar(&cfg.CacheTTL, "cache-ttl", defaultCacheTTL, "Lifetime of cached QR code images")
	flag.IntVar(&cfg.CacheSize, "cache-size", defaultCacheSize, "Entries kept by the in-memory QR code cache")
	flag.IntVar(&cfg.RateLimit, "rate-limit", defaultRateLimit, "Requests per minute on limited routes")
	flag.DurationVar(&cfg.ProbeTimeout, "probe-timeout", defaultProbeTimeout, "Timeout of the reachability check")
	flag.BoolVar(&cfg.SkipReachabilityCheck, "skip-probe", false, "Accept links without checking they respond")
	flag.BoolVar(&cfg.QROnCreate, "qr-on-create", false, "Store a QR code when a link is created")
	flag.StringVar(&cfg.LogFormat, "log-format", "console", "Log format: console or json")
	flag.DurationVar(&cfg.SessionTTL, "session-ttl", defaultSessionTTL, "Lifetime of a login session")

	flag.Parse()

	cfg.override(envCfg)
	cfg.applyDefaultValues()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) override(e *Config) {
	if e.ServerAddress != "" {
		c.ServerAddress = e.ServerAddress
	}
	if e.BaseURL != "" {
		c.BaseURL = e.BaseURL
	}
	if e.FileStoragePath != "" {
		c.FileStoragePath = e.FileStoragePath
	}
	if e.DatabaseDSN != "" {
		c.DatabaseDSN = e.DatabaseDSN
	}
	if e.SecretKey != "" {
		c.SecretKey = e.SecretKey
	}
	if e.UploadPath != "" {
		c.UploadPath = e.UploadPath
	}
	if e.RedisURL != "" {
		c.RedisURL = e.RedisURL
	}
	if e.ShortCodeLength != 0 {
		c.ShortCodeLength = e.ShortCodeLength
	}
	if e.CodeMaxLength != 0 {
		c.CodeMaxLength = e.CodeMaxLength
	}
	if e.CodeAttempts != 0 {
		c.CodeAttempts = e.CodeAttempts
	}
	if e.CacheTTL != 0 {
		c.CacheTTL = e.CacheTTL
	}
	if e.CacheSize != 0 {
		c.CacheSize = e.CacheSize
	}
	if e.RateLimit != 0 {
		c.RateLimit = e.RateLimit
	}
	if e.ProbeTimeout != 0 {
		c.ProbeTimeout = e.ProbeTimeout
	}
	if e.SkipReachabilityCheck {
		c.SkipReachabilityCheck = true
	}
	if e.QROnCreate {
		c.QROnCreate = true
	}
	if e.LogFormat != "" {
		c.LogFormat = e.LogFormat
	}
	if e.SessionTTL != 0 {
		c.SessionTTL = e.SessionTTL
	}
}

func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return errors.New("server address cannot be empty")
	}
	if c.BaseURL == "" {
		return errors.New("base URL cannot be empty")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q must be absolute", c.BaseURL)
	}
	if c.ShortCodeLength < 1 || c.ShortCodeLength > maxCodeLength {
		return fmt.Errorf("short code length must be between 1 and %d", maxCodeLength)
	}
	if c.CodeMaxLength < c.ShortCodeLength || c.CodeMaxLength > maxCodeLength {
		return fmt.Errorf("code max length must be between %d and %d", c.ShortCodeLength, maxCodeLength)
	}
	if c.CodeAttempts < 1 {
		return errors.New("code attempts must be positive")
	}
	if c.CacheSize < 1 {
		return errors.New("cache size must be positive")
	}
	if c.RateLimit < 1 {
		return errors.New("rate limit must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func (c *Config) applyDefaultValues() {
	if c.ServerAddress == "" {
		c.ServerAddress = defaultServerAddress
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.UploadPath == "" {
		c.UploadPath = defaultUploadPath
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
	if c.SecretKey == "" {
		c.SecretKey = uuid.NewString()
		c.GeneratedSecret = true
	}
}
