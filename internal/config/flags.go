package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags applies command-line overrides.
//
//	-a string   HTTP listen address
//	-d string   database DSN
//	-driver     database driver (sqlite3, pgx)
//	-s string   JWT secret key
//	-t int      token validity, minutes
//	-l string   log level
//	-m string   media backend (local, s3)
//	-media-root local media directory
//	-base-url   public base URL used to build absolute media links
//	-redis      Redis DSN for the user cache
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.DBDriver, "driver", cfg.DBDriver, "database driver")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	ttl := fs.Int("t", int(cfg.TokenTTL.Minutes()), "token validity (in minutes)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MediaBackend, "m", cfg.MediaBackend, "media backend")
	fs.StringVar(&cfg.MediaRoot, "media-root", cfg.MediaRoot, "media directory")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", cfg.PublicBaseURL, "public base URL")
	fs.StringVar(&cfg.RedisDSN, "redis", cfg.RedisDSN, "redis DSN")

	if err := fs.Parse(FilterArgs(fs, args)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.TokenTTL = time.Duration(*ttl) * time.Minute
		}
	})
	return nil
}
