// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	GRPCAddr       string
	FrontendURL    string
	AllowedOrigins []string

	DBDriver    string
	DBPath      string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RabbitMQURL   string

	CacheTTL       time.Duration
	SessionIdleTTL time.Duration
	LogLevel       string
}

// RegisterFlags defines every configuration flag on fs. Each flag can also
// be set through the environment variable of the same name in upper snake
// case, e.g. --db-path and DB_PATH.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.String("port", "8080", "HTTP port to listen on (env: PORT)")
	fs.String("grpc-addr", "", "address for the gRPC health server, empty disables it (env: GRPC_ADDR)")
	fs.String("frontend-url", "", "public URL of the web client (env: FRONTEND_URL)")
	fs.String("allowed-origins", "", "comma-separated extra CORS origins (env: ALLOWED_ORIGINS)")
	fs.String("db-driver", DriverSQLite, "database driver: sqlite or postgres (env: DB_DRIVER)")
	fs.String("db-path", "./data/trivia.db", "SQLite database file (env: DB_PATH)")
	fs.String("database-url", "", "Postgres connection string (env: DATABASE_URL)")
	fs.String("redis-addr", "", "Redis address for the shared content cache (env: REDIS_ADDR)")
	fs.String("redis-password", "", "Redis password (env: REDIS_PASSWORD)")
	fs.Int("redis-db", 0, "Redis database number (env: REDIS_DB)")
	fs.String("rabbitmq-url", "", "AMQP URL for content events (env: RABBITMQ_URL)")
	fs.Duration("cache-ttl", 5*time.Minute, "lifetime of cached game content (env: CACHE_TTL)")
	fs.Duration("session-idle-ttl", 60*time.Minute, "time before idle game sessions are dropped (env: SESSION_IDLE_TTL)")
	fs.String("log-level", "info", "debug, info, warn or error (env: LOG_LEVEL)")
}

// Load resolves configuration from parsed flags and the environment.
// Explicit flags win over environment variables, which win over defaults.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		GRPCAddr:       v.GetString("grpc-addr"),
		FrontendURL:    v.GetString("frontend-url"),
		AllowedOrigins: splitList(v.GetString("allowed-origins")),
		DBDriver:       strings.ToLower(v.GetString("db-driver")),
		DBPath:         v.GetString("db-path"),
		DatabaseURL:    v.GetString("database-url"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		RabbitMQURL:    v.GetString("rabbitmq-url"),
		CacheTTL:       v.GetDuration("cache-ttl"),
		SessionIdleTTL: v.GetDuration("session-idle-ttl"),
		LogLevel:       v.GetString("log-level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be > 0")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("SESSION_IDLE_TTL must be > 0")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// DSN returns the data source for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
