package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Duration accepts either a Go duration string ("24h") or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// jsonConfig mirrors Config for file decoding. Pointer fields tell "absent"
// apart from zero values so that the file only overrides what it names.
type jsonConfig struct {
	Addr               *string   `json:"addr"`
	LogLevel           *string   `json:"log_level"`
	DBDriver           *string   `json:"db_driver"`
	DatabaseDSN        *string   `json:"database_dsn"`
	SecretKey          *string   `json:"secret_key"`
	TokenTTL           *Duration `json:"token_ttl"`
	MediaBackend       *string   `json:"media_backend"`
	MediaRoot          *string   `json:"media_root"`
	MediaURL           *string   `json:"media_url"`
	PublicBaseURL      *string   `json:"public_base_url"`
	S3Bucket           *string   `json:"s3_bucket"`
	S3Region           *string   `json:"s3_region"`
	S3BaseEndpoint     *string   `json:"s3_base_endpoint"`
	S3AccessKey        *string   `json:"s3_access_key"`
	S3SecretKey        *string   `json:"s3_secret_key"`
	S3PublicURL        *string   `json:"s3_public_url"`
	RedisDSN           *string   `json:"redis_dsn"`
	UserCacheTTL       *Duration `json:"user_cache_ttl"`
	MaxUploadBytes     *int64    `json:"max_upload_bytes"`
	AvatarMaxDimension *int      `json:"avatar_max_dimension"`
	LoginRateLimit     *float64  `json:"login_rate_limit"`
	LoginBurst         *int      `json:"login_burst"`
	CORSOrigins        []string  `json:"cors_origins"`
}

func parseJSON(cfg *Config, args []string) error {
	path := jsonConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&cfg.Addr, c.Addr)
	setString(&cfg.LogLevel, c.LogLevel)
	setString(&cfg.DBDriver, c.DBDriver)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.SecretKey, c.SecretKey)
	setString(&cfg.MediaBackend, c.MediaBackend)
	setString(&cfg.MediaRoot, c.MediaRoot)
	setString(&cfg.MediaURL, c.MediaURL)
	setString(&cfg.PublicBaseURL, c.PublicBaseURL)
	setString(&cfg.S3Bucket, c.S3Bucket)
	setString(&cfg.S3Region, c.S3Region)
	setString(&cfg.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&cfg.S3AccessKey, c.S3AccessKey)
	setString(&cfg.S3SecretKey, c.S3SecretKey)
	setString(&cfg.S3PublicURL, c.S3PublicURL)
	setString(&cfg.RedisDSN, c.RedisDSN)

	if c.TokenTTL != nil {
		cfg.TokenTTL = c.TokenTTL.Duration
	}
	if c.UserCacheTTL != nil {
		cfg.UserCacheTTL = c.UserCacheTTL.Duration
	}
	if c.MaxUploadBytes != nil {
		cfg.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.AvatarMaxDimension != nil {
		cfg.AvatarMaxDimension = *c.AvatarMaxDimension
	}
	if c.LoginRateLimit != nil {
		cfg.LoginRateLimit = *c.LoginRateLimit
	}
	if c.LoginBurst != nil {
		cfg.LoginBurst = *c.LoginBurst
	}
	if c.CORSOrigins != nil {
		cfg.CORSOrigins = c.CORSOrigins
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
