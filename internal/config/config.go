// Package config provides application configuration.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/pmguide/internal/logging"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port             int
	KnowledgePath    string
	TemplatesDir     string
	StoreDriver      string
	SessionDir       string
	DBPath           string
	Redis            RedisConfig
	SessionTTL       time.Duration
	LogLevel         string
	LogFormat        logging.Format
	APIVersion       string
	CORSOrigins      []string
	MaxMessageLength int
	Privacy          PrivacyConfig
}

// RedisConfig configures the redis session store and locker.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// PrivacyConfig controls how conversation contexts are stored at rest.
type PrivacyConfig struct {
	MaskPII bool
	// EncryptionKey is the decoded SESSION_ENCRYPTION_KEY; empty disables encryption.
	EncryptionKey []byte
	FallbackKeys  [][]byte
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	encKey, err := getEnvKey("SESSION_ENCRYPTION_KEY")
	if err != nil {
		return nil, err
	}
	var fallback [][]byte
	for _, raw := range getEnvList("SESSION_FALLBACK_KEYS", nil) {
		k, err := decodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("SESSION_FALLBACK_KEYS: %w", err)
		}
		fallback = append(fallback, k)
	}

	cfg := &Config{
		Port:          getEnvInt("PORT", 8080),
		KnowledgePath: getEnv("KNOWLEDGE_PATH", "./knowledge/privacy_mark.yaml"),
		TemplatesDir:  getEnv("TEMPLATES_DIR", "./templates"),
		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		SessionDir:    getEnv("SESSION_DIR", "./.pmguide/sessions"),
		DBPath:        getEnv("DB_PATH", "./data/pmguide.db"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "pmguide:session:"),
		},
		SessionTTL:       getEnvDuration("SESSION_TTL", 0),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        logging.Format(strings.ToLower(getEnv("LOG_FORMAT", string(logging.FormatText)))),
		APIVersion:       getEnv("API_VERSION", "1.0.0"),
		CORSOrigins:      getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxMessageLength: getEnvInt("MAX_MESSAGE_LENGTH", 1000),
		Privacy: PrivacyConfig{
			MaskPII:       getEnvBool("MASK_PII", false),
			EncryptionKey: encKey,
			FallbackKeys:  fallback,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.KnowledgePath == "" {
		return fmt.Errorf("KNOWLEDGE_PATH cannot be empty")
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverFile:
		if c.SessionDir == "" {
			return fmt.Errorf("SESSION_DIR cannot be empty for the file store")
		}
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty for the sqlite store")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (memory, file, sqlite, redis)", c.StoreDriver)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must be >= 0")
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be > 0")
	}
	if len(c.Privacy.FallbackKeys) > 0 && len(c.Privacy.EncryptionKey) == 0 {
		return fmt.Errorf("SESSION_FALLBACK_KEYS requires SESSION_ENCRYPTION_KEY")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// getEnv treats an empty value as unset.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvKey(key string) ([]byte, error) {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return nil, nil
	}
	k, err := decodeKey(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return k, nil
}

// decodeKey accepts a base64 encoded 32-byte key.
func decodeKey(s string) ([]byte, error) {
	k, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key must be base64: %w", err)
	}
	if len(k) != 32 {
		return nil, fmt.Errorf("key must decode to 32 bytes, got %d", len(k))
	}
	return k, nil
}
