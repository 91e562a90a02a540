package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Port        string
	SiteURL     string
	CORSOrigins []string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Media     MediaConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
}

// DSN returns the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MediaConfig struct {
	Root string
	URL  string
}

type RateLimitConfig struct {
	AuthRPS   float64
	AuthBurst int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtExpiration, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("parse JWT_EXPIRATION: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_DB: %w", err)
	}
	rps, err := strconv.ParseFloat(getEnv("AUTH_RATE_LIMIT_RPS", "1"), 64)
	if err != nil {
		return nil, fmt.Errorf("parse AUTH_RATE_LIMIT_RPS: %w", err)
	}
	burst, err := strconv.Atoi(getEnv("AUTH_RATE_LIMIT_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("parse AUTH_RATE_LIMIT_BURST: %w", err)
	}

	cfg := &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Port:        getEnv("PORT", "8080"),
		SiteURL:     strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", DriverPostgres),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			Name:       getEnv("DB_NAME", "foodgram"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "foodgram.db"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:     []byte(getEnv("JWT_SECRET", "your-secret-key-change-this-in-production")),
			Expiration: jwtExpiration,
		},
		Media: MediaConfig{
			Root: getEnv("MEDIA_ROOT", "media"),
			URL:  getEnv("MEDIA_URL", "/media/"),
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   rps,
			AuthBurst: burst,
		},
	}

	if cfg.Database.Driver != DriverPostgres && cfg.Database.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
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
