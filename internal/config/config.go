package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	AI        AIConfig        `yaml:"ai"`
	Session   SessionConfig   `yaml:"session"`
	Timer     TimerConfig     `yaml:"timer"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	MaxConns   int32  `yaml:"max_conns"`
	Migrations string `yaml:"migrations"`
}

// AuthConfig selects how requests are tied to a user. With a JWT secret set,
// every API request needs an HS256 bearer token whose subject is the user ID.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
	DevUser   string `yaml:"dev_user"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type AIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	MenuModel         string        `yaml:"menu_model"`
	AlternativesModel string        `yaml:"alternatives_model"`
	QuestionModel     string        `yaml:"question_model"`
	Timeout           time.Duration `yaml:"timeout"`
}

// SessionConfig selects where drafts are kept: "sqlite" (default) or "redis".
type SessionConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

type TimerConfig struct {
	Rest time.Duration `yaml:"rest"`
}

// EventsConfig enables Kafka publishing when Brokers is non-empty.
type EventsConfig struct {
	Brokers     []string `yaml:"brokers"`
	TopicPrefix string   `yaml:"topic_prefix"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, applies defaults, then environment
// variable overrides. Env vars use the prefix GYMCOACH_ and underscore-separated paths:
//
//	GYMCOACH_SERVER_HOST, GYMCOACH_SERVER_PORT,
//	GYMCOACH_DB_HOST, GYMCOACH_DB_PORT, GYMCOACH_DB_NAME,
//	GYMCOACH_DB_USER, GYMCOACH_DB_PASSWORD, GYMCOACH_DB_SSLMODE,
//	GYMCOACH_AUTH_JWT_SECRET, GYMCOACH_TAILSCALE_ENABLED,
//	GYMCOACH_AI_API_KEY, GYMCOACH_AI_BASE_URL,
//	GYMCOACH_SESSION_BACKEND, GYMCOACH_SESSION_PATH, GYMCOACH_REDIS_ADDR,
//	GYMCOACH_EVENTS_BROKERS (comma-separated), GYMCOACH_LOG_LEVEL, GYMCOACH_LOG_FILE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Migrations == "" {
		cfg.Database.Migrations = "migrations"
	}
	if cfg.Auth.DevUser == "" {
		cfg.Auth.DevUser = "local"
	}
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "gymcoach"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60 * time.Second
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "sqlite"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "data/session.db"
	}
	if cfg.Session.RedisPrefix == "" {
		cfg.Session.RedisPrefix = "gymcoach:"
	}
	if cfg.Timer.Rest == 0 {
		cfg.Timer.Rest = 90 * time.Second
	}
	if cfg.Events.TopicPrefix == "" {
		cfg.Events.TopicPrefix = "gymcoach."
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
}

func applyEnvOverrides(cfg *Config) {
	envString("GYMCOACH_SERVER_HOST", &cfg.Server.Host)
	envInt("GYMCOACH_SERVER_PORT", &cfg.Server.Port)
	envString("GYMCOACH_DB_HOST", &cfg.Database.Host)
	envInt("GYMCOACH_DB_PORT", &cfg.Database.Port)
	envString("GYMCOACH_DB_NAME", &cfg.Database.Name)
	envString("GYMCOACH_DB_USER", &cfg.Database.User)
	envString("GYMCOACH_DB_PASSWORD", &cfg.Database.Password)
	envString("GYMCOACH_DB_SSLMODE", &cfg.Database.SSLMode)
	envString("GYMCOACH_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	envBool("GYMCOACH_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	envString("GYMCOACH_AI_API_KEY", &cfg.AI.APIKey)
	envString("GYMCOACH_AI_BASE_URL", &cfg.AI.BaseURL)
	envString("GYMCOACH_SESSION_BACKEND", &cfg.Session.Backend)
	envString("GYMCOACH_SESSION_PATH", &cfg.Session.Path)
	envString("GYMCOACH_REDIS_ADDR", &cfg.Session.RedisAddr)
	envString("GYMCOACH_LOG_LEVEL", &cfg.Log.Level)
	envString("GYMCOACH_LOG_FILE", &cfg.Log.File)
	if v := os.Getenv("GYMCOACH_EVENTS_BROKERS"); v != "" {
		cfg.Events.Brokers = strings.Split(v, ",")
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required")
	}
	switch c.Session.Backend {
	case "sqlite":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("session.backend must be sqlite or redis, got %q", c.Session.Backend)
	}
	if c.Timer.Rest < 0 {
		return fmt.Errorf("timer.rest must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
