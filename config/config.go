package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/urbannassau/rides/internal/calendar"
)

// Store drivers accepted by BOOKING_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Store    string
	Slots    SlotsConfig
	Auth     AuthConfig
	WhatsApp WhatsAppConfig
	Cache    CacheConfig
	LogLevel string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `mapstructure:"SERVER_HOST"`
	Port           int           `mapstructure:"SERVER_PORT"`
	ReadTimeout    time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `mapstructure:"SERVER_IDLE_TIMEOUT"`
	RequestTimeout time.Duration `mapstructure:"SERVER_REQUEST_TIMEOUT"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"POSTGRES_HOST"`
	Port     int    `mapstructure:"POSTGRES_PORT"`
	User     string `mapstructure:"POSTGRES_USER"`
	Password string `mapstructure:"POSTGRES_PASSWORD"`
	DBName   string `mapstructure:"POSTGRES_DB"`
	SSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	MaxConns int32  `mapstructure:"POSTGRES_MAX_CONNS"`
	MinConns int32  `mapstructure:"POSTGRES_MIN_CONNS"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"REDIS_ENABLED"`
	Host     string `mapstructure:"REDIS_HOST"`
	Port     int    `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
	PoolSize int    `mapstructure:"REDIS_POOL_SIZE"`
}

// SlotsConfig holds the fixed slot policy. It is read once at startup and
// handed to availability and admission as the same calendar.Policy value.
type SlotsConfig struct {
	FirstHour       int    `mapstructure:"SLOTS_FIRST_HOUR"`
	LastHour        int    `mapstructure:"SLOTS_LAST_HOUR"`
	MinAdvanceHours int    `mapstructure:"SLOTS_MIN_ADVANCE_HOURS"`
	CapacityPerHour int    `mapstructure:"SLOTS_CAPACITY_PER_HOUR"`
	HorizonDays     int    `mapstructure:"SLOTS_HORIZON_DAYS"`
	Timezone        string `mapstructure:"SLOTS_TIMEZONE"`
}

// AuthConfig holds administrator token settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"AUTH_JWT_SECRET"`
	TokenTTL      time.Duration `mapstructure:"AUTH_TOKEN_TTL"`
	AdminEmail    string        `mapstructure:"AUTH_ADMIN_EMAIL"`
	AdminPassword string        `mapstructure:"AUTH_ADMIN_PASSWORD"`
}

// MinJWTSecretLen is the shortest HMAC key accepted for admin tokens.
const MinJWTSecretLen = 32

// placeholderJWTSecret is the value sample configs ship with.
const placeholderJWTSecret = "change-me-in-production"

// Validate rejects a weak token signing secret.
func (a AuthConfig) Validate() error {
	switch {
	case a.JWTSecret == "":
		return errors.New("config: AUTH_JWT_SECRET is required")
	case a.JWTSecret == placeholderJWTSecret:
		return errors.New("config: AUTH_JWT_SECRET is still the placeholder value")
	case len(a.JWTSecret) < MinJWTSecretLen:
		return fmt.Errorf("config: AUTH_JWT_SECRET must be at least %d bytes, got %d", MinJWTSecretLen, len(a.JWTSecret))
	}
	return nil
}

// WhatsAppConfig holds the business number used for chat handoff links.
type WhatsAppConfig struct {
	BusinessNumber string `mapstructure:"WHATSAPP_NUMBER"`
}

// CacheConfig holds TTLs for Redis-backed read caches.
type CacheConfig struct {
	AvailabilityTTL time.Duration `mapstructure:"CACHE_AVAILABILITY_TTL"`
	SettingsTTL     time.Duration `mapstructure:"CACHE_SETTINGS_TTL"`
}

// DSN returns the PostgreSQL connection string.
func (p *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode,
	)
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Policy converts the slot settings into a validated calendar.Policy.
func (s SlotsConfig) Policy() (calendar.Policy, error) {
	loc := time.Local
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return calendar.Policy{}, fmt.Errorf("config: load timezone %q: %w", tz, err)
		}
		loc = l
	}

	p := calendar.Policy{
		FirstHour:       s.FirstHour,
		LastHour:        s.LastHour,
		MinAdvanceHours: s.MinAdvanceHours,
		CapacityPerHour: s.CapacityPerHour,
		HorizonDays:     s.HorizonDays,
		Location:        loc,
	}
	if err := p.Validate(); err != nil {
		return calendar.Policy{}, fmt.Errorf("config: %w", err)
	}
	return p, nil
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_READ_TIMEOUT", "5s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	viper.SetDefault("SERVER_REQUEST_TIMEOUT", "8s")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "nassau")
	viper.SetDefault("POSTGRES_PASSWORD", "nassau_secret")
	viper.SetDefault("POSTGRES_DB", "nassau_rides")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_CONNS", 20)
	viper.SetDefault("POSTGRES_MIN_CONNS", 2)

	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 20)

	viper.SetDefault("BOOKING_STORE", StorePostgres)

	viper.SetDefault("SLOTS_FIRST_HOUR", 7)
	viper.SetDefault("SLOTS_LAST_HOUR", 23)
	viper.SetDefault("SLOTS_MIN_ADVANCE_HOURS", 1)
	viper.SetDefault("SLOTS_CAPACITY_PER_HOUR", 2)
	viper.SetDefault("SLOTS_HORIZON_DAYS", 60)
	viper.SetDefault("SLOTS_TIMEZONE", "America/Nassau")

	viper.SetDefault("AUTH_JWT_SECRET", "")
	viper.SetDefault("AUTH_TOKEN_TTL", "24h")
	viper.SetDefault("AUTH_ADMIN_EMAIL", "admin@urbannassau.com")
	viper.SetDefault("AUTH_ADMIN_PASSWORD", "")

	viper.SetDefault("WHATSAPP_NUMBER", "12425550100")

	viper.SetDefault("CACHE_AVAILABILITY_TTL", "30s")
	viper.SetDefault("CACHE_SETTINGS_TTL", "5m")

	viper.SetDefault("LOG_LEVEL", "info")

	// Try to read .env file. If it doesn't exist (e.g., inside Docker),
	// env vars injected by docker-compose env_file are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:           viper.GetString("SERVER_HOST"),
		Port:           viper.GetInt("SERVER_PORT"),
		ReadTimeout:    viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout:   viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:    viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		RequestTimeout: viper.GetDuration("SERVER_REQUEST_TIMEOUT"),
	}

	// ── Postgres ────────────────────────────────────────
	cfg.Postgres = PostgresConfig{
		Host:     viper.GetString("POSTGRES_HOST"),
		Port:     viper.GetInt("POSTGRES_PORT"),
		User:     viper.GetString("POSTGRES_USER"),
		Password: viper.GetString("POSTGRES_PASSWORD"),
		DBName:   viper.GetString("POSTGRES_DB"),
		SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		MaxConns: viper.GetInt32("POSTGRES_MAX_CONNS"),
		MinConns: viper.GetInt32("POSTGRES_MIN_CONNS"),
	}

	// ── Redis ───────────────────────────────────────────
	cfg.Redis = RedisConfig{
		Enabled:  viper.GetBool("REDIS_ENABLED"),
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
	}

	cfg.Store = strings.ToLower(strings.TrimSpace(viper.GetString("BOOKING_STORE")))
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("config: BOOKING_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, cfg.Store)
	}

	// ── Slot policy ─────────────────────────────────────
	cfg.Slots = SlotsConfig{
		FirstHour:       viper.GetInt("SLOTS_FIRST_HOUR"),
		LastHour:        viper.GetInt("SLOTS_LAST_HOUR"),
		MinAdvanceHours: viper.GetInt("SLOTS_MIN_ADVANCE_HOURS"),
		CapacityPerHour: viper.GetInt("SLOTS_CAPACITY_PER_HOUR"),
		HorizonDays:     viper.GetInt("SLOTS_HORIZON_DAYS"),
		Timezone:        viper.GetString("SLOTS_TIMEZONE"),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:     viper.GetString("AUTH_JWT_SECRET"),
		TokenTTL:      viper.GetDuration("AUTH_TOKEN_TTL"),
		AdminEmail:    viper.GetString("AUTH_ADMIN_EMAIL"),
		AdminPassword: viper.GetString("AUTH_ADMIN_PASSWORD"),
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}

	cfg.WhatsApp = WhatsAppConfig{
		BusinessNumber: viper.GetString("WHATSAPP_NUMBER"),
	}

	cfg.Cache = CacheConfig{
		AvailabilityTTL: viper.GetDuration("CACHE_AVAILABILITY_TTL"),
		SettingsTTL:     viper.GetDuration("CACHE_SETTINGS_TTL"),
	}

	cfg.LogLevel = viper.GetString("LOG_LEVEL")

	return cfg, nil
}
