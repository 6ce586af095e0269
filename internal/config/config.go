// Package config loads the dashboard server configuration from CLI flags and
// environment variables, validates required fields, and fills in defaults.
//
// CLI flags choose the storage backend (--no-s3, --memory) and listen address.
// Environment variables provide secrets and service configuration.
package config

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/agent-dashboard/internal/ratelimit"
)

const (
	defaultTigrisRegion = "auto"
	defaultOpenAIModel  = "gpt-4o-mini"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Corrupt stored value policies.
const (
	CorruptFail  = "fail"
	CorruptReset = "reset"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string
	BaseURL    string
	LogLevel   string

	// Storage and encryption
	MasterKey       string // 64 hex characters (32 bytes)
	DataDir         string // Directory holding dashboard.db for the sqlite backend
	StoreBackend    string // sqlite | s3 | memory
	CorruptPolicy   string // fail | reset
	SessionDuration time.Duration

	// Remote completion
	OpenAIBaseURL string
	OpenAIModel   string

	// Rate limiting
	RateLimitConfig ratelimit.Config

	// Mock service flags (controlled by CLI flags, not env vars)
	NoS3   bool // In-memory S3 (--no-s3) when STORE_BACKEND=s3
	Memory bool // Force the memory backend (--memory)

	// S3/Tigris Storage (uses AWS_ env vars, set automatically by `fly storage create`)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
}

// Flags are the parsed CLI overrides.
type Flags struct {
	Addr   string
	NoS3   bool
	Memory bool
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// RegisterFlags binds the server flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	fs.BoolVar(&f.NoS3, "no-s3", false, "Use mock S3 storage (in-memory) for the s3 backend")
	fs.BoolVar(&f.Memory, "memory", false, "Keep all data in memory (nothing survives restart)")
	return f
}

// ParseFlags parses os.Args with the server flags. Call before LoadConfig.
func ParseFlags() Flags {
	f := RegisterFlags(flag.CommandLine)
	flag.Parse()
	return *f
}

// LoadConfig loads configuration from environment variables and CLI flag values.
func LoadConfig(flags Flags) (*Config, error) {
	cfg := &Config{
		NoS3:   flags.NoS3,
		Memory: flags.Memory,
	}

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if flags.Addr != "" {
		cfg.ListenAddr = flags.Addr
	}
	cfg.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.MasterKey = strings.TrimSpace(os.Getenv("MASTER_KEY"))
	cfg.DataDir = getEnvOrDefault("DATA_DIR", "/data")
	cfg.StoreBackend = strings.ToLower(getEnvOrDefault("STORE_BACKEND", BackendSQLite))
	if cfg.Memory {
		cfg.StoreBackend = BackendMemory
	}
	cfg.CorruptPolicy = strings.ToLower(getEnvOrDefault("STORE_CORRUPT_POLICY", CorruptFail))
	cfg.SessionDuration = parseDurationOrDefault("SESSION_DURATION", 24*time.Hour)

	cfg.OpenAIBaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", defaultOpenAIModel)

	cfg.RateLimitConfig = ratelimit.Config{
		APIRPS:          parseFloat64OrDefault("RATE_LIMIT_API_RPS", ratelimit.DefaultConfig.APIRPS),
		APIBurst:        parseIntOrDefault("RATE_LIMIT_API_BURST", ratelimit.DefaultConfig.APIBurst),
		ChatRPS:         parseFloat64OrDefault("RATE_LIMIT_CHAT_RPS", ratelimit.DefaultConfig.ChatRPS),
		ChatBurst:       parseIntOrDefault("RATE_LIMIT_CHAT_BURST", ratelimit.DefaultConfig.ChatBurst),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultTigrisRegion)
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("BUCKET_NAME"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	// MasterKey: always required (losing it = the store and every saved credential is unreadable)
	if c.MasterKey == "" {
		errs = append(errs, "MASTER_KEY is required (generate with: openssl rand -hex 32)")
	} else if _, err := hex.DecodeString(c.MasterKey); err != nil || len(c.MasterKey) != 64 {
		errs = append(errs, "MASTER_KEY must be 64 hex characters (32 bytes)")
	}

	switch c.StoreBackend {
	case BackendSQLite:
		if strings.TrimSpace(c.DataDir) == "" {
			errs = append(errs, "DATA_DIR is required for the sqlite backend")
		}
	case BackendS3:
		if !c.NoS3 {
			if c.AWSEndpointS3 == "" {
				errs = append(errs, "AWS_ENDPOINT_URL_S3 is required (set env var or use --no-s3)")
			}
			if c.AWSBucketName == "" {
				errs = append(errs, "BUCKET_NAME is required (set env var or use --no-s3)")
			}
			if c.AWSAccessKeyID == "" {
				errs = append(errs, "AWS_ACCESS_KEY_ID is required (set env var or use --no-s3)")
			}
			if c.AWSSecretAccessKey == "" {
				errs = append(errs, "AWS_SECRET_ACCESS_KEY is required (set env var or use --no-s3)")
			}
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be one of sqlite, s3, memory (got %q)", c.StoreBackend))
	}

	if c.CorruptPolicy != CorruptFail && c.CorruptPolicy != CorruptReset {
		errs = append(errs, fmt.Sprintf("STORE_CORRUPT_POLICY must be fail or reset (got %q)", c.CorruptPolicy))
	}
	if c.SessionDuration <= 0 {
		errs = append(errs, "SESSION_DURATION must be positive")
	}
	if strings.TrimSpace(c.OpenAIModel) == "" {
		errs = append(errs, "OPENAI_MODEL must not be empty")
	}

	if c.RateLimitConfig.APIRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_API_RPS must be positive")
	}
	if c.RateLimitConfig.APIBurst <= 0 {
		errs = append(errs, "RATE_LIMIT_API_BURST must be positive")
	}
	if c.RateLimitConfig.ChatRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_CHAT_RPS must be positive")
	}
	if c.RateLimitConfig.ChatBurst <= 0 {
		errs = append(errs, "RATE_LIMIT_CHAT_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// MasterKeyBytes decodes MasterKey. Only valid after Validate succeeds.
func (c *Config) MasterKeyBytes() []byte {
	b, _ := hex.DecodeString(c.MasterKey)
	return b
}

// RequireSecureCookies returns true if secure cookies should be required.
// Returns false for localhost development URLs.
func (c *Config) RequireSecureCookies() bool {
	return !strings.HasPrefix(c.BaseURL, "http://localhost") &&
		!strings.HasPrefix(c.BaseURL, "http://127.0.0.1")
}

// PrintStartupSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "dashboard server starting...")

	switch c.StoreBackend {
	case BackendMemory:
		fmt.Fprintln(os.Stderr, "  Storage: in-memory (nothing persists)")
	case BackendS3:
		if c.NoS3 {
			fmt.Fprintln(os.Stderr, "  Storage: Mock S3 (--no-s3)")
		} else {
			fmt.Fprintf(os.Stderr, "  Storage: S3 (endpoint: %s, bucket: %s)\n", c.AWSEndpointS3, c.AWSBucketName)
		}
	default:
		fmt.Fprintf(os.Stderr, "  Storage: SQLCipher (%s)\n", c.DataDir)
	}

	if c.OpenAIBaseURL != "" {
		fmt.Fprintf(os.Stderr, "  Chat:    %s via %s\n", c.OpenAIModel, c.OpenAIBaseURL)
	} else {
		fmt.Fprintf(os.Stderr, "  Chat:    %s via api.openai.com\n", c.OpenAIModel)
	}
	fmt.Fprintf(os.Stderr, "  Listen:  %s\n", c.ListenAddr)
	fmt.Fprintf(os.Stderr, "  Base:    %s\n", c.BaseURL)
	fmt.Fprintln(os.Stderr, "")
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
func MustLoadConfig(flags Flags) *Config {
	cfg, err := LoadConfig(flags)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
