// Package config loads server settings. Sources are applied in order:
// defaults, an optional JSON file (-c / -config), CHAT_* environment
// variables and finally command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds runtime settings for the chat server.
type Config struct {
	Addr     string
	LogLevel string

	DBDriver    string // sqlite3 or pgx
	DatabaseDSN string

	SecretKey string
	TokenTTL  time.Duration

	MediaBackend  string // local or s3
	MediaRoot     string
	MediaURL      string
	PublicBaseURL string

	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string
	S3PublicURL    string

	RedisDSN     string
	UserCacheTTL time.Duration

	MaxUploadBytes     int64
	AvatarMaxDimension int

	LoginRateLimit float64 // requests per second per client IP, 0 disables
	LoginBurst     int

	CORSOrigins []string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.LogLevel = "info"
	c.DBDriver = "sqlite3"
	c.DatabaseDSN = "chat.db"
	c.SecretKey = "secretKey"
	c.TokenTTL = 24 * time.Hour
	c.MediaBackend = "local"
	c.MediaRoot = "media"
	c.MediaURL = "/media/"
	c.S3Region = "us-east-1"
	c.UserCacheTTL = 5 * time.Minute
	c.MaxUploadBytes = 5 << 20
	c.LoginRateLimit = 1
	c.LoginBurst = 5
	c.CORSOrigins = []string{"*"}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	switch c.MediaBackend {
	case "local":
		if c.MediaRoot == "" {
			return fmt.Errorf("media root is required for the local backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unsupported media backend %q", c.MediaBackend)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key must not be empty")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if !strings.HasPrefix(c.MediaURL, "/") && !strings.Contains(c.MediaURL, "://") {
		return fmt.Errorf("media url must be a path or an absolute URL")
	}
	return nil
}

// Load builds a Config from the given arguments and environment lookup.
func Load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}
