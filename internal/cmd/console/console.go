// Package console parses console command configuration and starts the server.
package console

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	entrypoint "github.com/louisbranch/gmconsole/internal/platform/cmd"
	"github.com/louisbranch/gmconsole/internal/platform/config"
	"github.com/louisbranch/gmconsole/internal/platform/logging"
	"github.com/louisbranch/gmconsole/internal/platform/otel"
	"github.com/louisbranch/gmconsole/internal/platform/timeouts"
	server "github.com/louisbranch/gmconsole/internal/services/console"
	"github.com/louisbranch/gmconsole/internal/services/console/modules/library/cache"
)

const redisPingTimeout = 2 * time.Second

// Config holds console command configuration.
type Config struct {
	HTTPAddr       string        `env:"GMCONSOLE_HTTP_ADDR"       envDefault:"localhost:8090"`
	BackendURL     string        `env:"GMCONSOLE_BACKEND_URL"     envDefault:"http://localhost:8000"`
	BackendTimeout time.Duration `env:"GMCONSOLE_BACKEND_TIMEOUT" envDefault:"120s"`
	SessionTTL     time.Duration `env:"GMCONSOLE_SESSION_TTL"     envDefault:"30m"`
	RedisAddr      string        `env:"GMCONSOLE_REDIS_ADDR"`
	CacheTTL       time.Duration `env:"GMCONSOLE_CACHE_TTL"       envDefault:"1h"`
	LogLevel       string        `env:"GMCONSOLE_LOG_LEVEL"       envDefault:"info"`
	LogPretty      bool          `env:"GMCONSOLE_LOG_PRETTY"`
	OTelEndpoint   string        `env:"GMCONSOLE_OTEL_ENDPOINT"`
	OTelEnabled    bool          `env:"GMCONSOLE_OTEL_ENABLED"    envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "console HTTP listen address")
	fs.StringVar(&cfg.BackendURL, "backend-url", cfg.BackendURL, "game backend base URL")
	fs.DurationVar(&cfg.BackendTimeout, "backend-timeout", cfg.BackendTimeout, "timeout for one backend call")
	fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "idle time before a console session is evicted")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the library cache (empty keeps it in memory)")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "library cache entry lifetime in Redis")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.LogPretty, "log-pretty", cfg.LogPretty, "human-readable log output")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if _, err := config.RequireBaseURL("backend URL", c.BackendURL); err != nil {
		return err
	}
	for name, d := range map[string]time.Duration{
		"backend timeout": c.BackendTimeout,
		"session TTL":     c.SessionTTL,
		"cache TTL":       c.CacheTTL,
	} {
		if err := config.RequirePositive(name, d); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the console server and blocks until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.Setup(logging.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	options := entrypoint.RunOptions{
		Telemetry: otel.Options{
			Endpoint: cfg.OTelEndpoint,
			Disabled: !cfg.OTelEnabled,
		},
		ShutdownTimeout: timeouts.Shutdown,
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceConsole, options, func(ctx context.Context) error {
		store, closeStore := cacheStore(ctx, cfg, logger)
		defer closeStore()

		srv, err := server.NewServer(server.Config{
			HTTPAddr:       cfg.HTTPAddr,
			BackendURL:     cfg.BackendURL,
			BackendTimeout: cfg.BackendTimeout,
			SessionTTL:     cfg.SessionTTL,
			CacheStore:     store,
			Logger:         logger,
		})
		if err != nil {
			return fmt.Errorf("init console server: %w", err)
		}
		defer srv.Close()

		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("serve console: %w", err)
		}
		return nil
	})
}

// cacheStore returns the Redis store when an address is configured. An
// unreachable Redis is logged; its failures then read as cache misses.
func cacheStore(ctx context.Context, cfg Config, logger zerolog.Logger) (cache.Store, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, library cache will miss")
	}
	return cache.NewRedis(rdb, cfg.CacheTTL), func() {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("close redis")
		}
	}
}
