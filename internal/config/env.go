package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "CHAT_"

func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	str("ADDR", &cfg.Addr)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("DB_DRIVER", &cfg.DBDriver)
	str("DATABASE_DSN", &cfg.DatabaseDSN)
	str("SECRET_KEY", &cfg.SecretKey)
	str("MEDIA_BACKEND", &cfg.MediaBackend)
	str("MEDIA_ROOT", &cfg.MediaRoot)
	str("MEDIA_URL", &cfg.MediaURL)
	str("PUBLIC_BASE_URL", &cfg.PublicBaseURL)
	str("S3_BUCKET", &cfg.S3Bucket)
	str("S3_REGION", &cfg.S3Region)
	str("S3_BASE_ENDPOINT", &cfg.S3BaseEndpoint)
	str("S3_ACCESS_KEY", &cfg.S3AccessKey)
	str("S3_SECRET_KEY", &cfg.S3SecretKey)
	str("S3_PUBLIC_URL", &cfg.S3PublicURL)
	str("REDIS_DSN", &cfg.RedisDSN)

	if v, ok := lookup(envPrefix + "TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTOKEN_TTL: %w", envPrefix, err)
		}
		cfg.TokenTTL = d
	}
	if v, ok := lookup(envPrefix + "USER_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sUSER_CACHE_TTL: %w", envPrefix, err)
		}
		cfg.UserCacheTTL = d
	}
	if v, ok := lookup(envPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", envPrefix, err)
		}
		cfg.MaxUploadBytes = n
	}
	if v, ok := lookup(envPrefix + "AVATAR_MAX_DIMENSION"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sAVATAR_MAX_DIMENSION: %w", envPrefix, err)
		}
		cfg.AvatarMaxDimension = n
	}
	if v, ok := lookup(envPrefix + "LOGIN_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sLOGIN_RATE_LIMIT: %w", envPrefix, err)
		}
		cfg.LoginRateLimit = f
	}
	if v, ok := lookup(envPrefix + "LOGIN_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sLOGIN_BURST: %w", envPrefix, err)
		}
		cfg.LoginBurst = n
	}
	if v, ok := lookup(envPrefix + "CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
