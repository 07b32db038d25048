package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddress string
	Environment   string
	LogLevel      string
	Database      DatabaseConfig
	Migration     MigrationConfig
	Redis         RedisConfig
	Sheet         SheetConfig
	Draft         DraftConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Client        ClientConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Params   string
}

type MigrationConfig struct {
	Dir string
}

// RedisConfig selects the draft store. An empty address keeps drafts in memory.
type RedisConfig struct {
	Address string
}

type SheetConfig struct {
	RowLimit      int
	LookAheadDays int
	LookBackDays  int
}

type DraftConfig struct {
	Debounce       time.Duration
	ForcedInterval time.Duration
	TTL            time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// ClientConfig is used by sheetctl to reach the server.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", ":8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 3306)
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_NAME", "daily_sheet")
	v.SetDefault("DB_PARAMS", "parseTime=true&multiStatements=true")
	v.SetDefault("MIGRATION_DIR", "migrations")
	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("SHEET_ROW_LIMIT", 25)
	v.SetDefault("DATE_LOOKAHEAD_DAYS", 30)
	v.SetDefault("DATE_LOOKBACK_DAYS", 365)
	v.SetDefault("DRAFT_DEBOUNCE", "2s")
	v.SetDefault("DRAFT_FORCED_INTERVAL", "5m")
	v.SetDefault("DRAFT_TTL", "168h")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("API_BASE_URL", "http://localhost:8080/api")
	v.SetDefault("API_TIMEOUT", "10s")
}

// LoadConfig reads .env from the working directory and the environment.
func LoadConfig() (*Config, error) {
	return Load(".env")
}

// Load reads the given env file, then the environment. A missing file is not
// an error; environment variables and defaults still apply.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(file)
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		Environment:   v.GetString("ENVIRONMENT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			Params:   v.GetString("DB_PARAMS"),
		},
		Migration: MigrationConfig{
			Dir: v.GetString("MIGRATION_DIR"),
		},
		Redis: RedisConfig{
			Address: v.GetString("REDIS_ADDRESS"),
		},
		Sheet: SheetConfig{
			RowLimit:      v.GetInt("SHEET_ROW_LIMIT"),
			LookAheadDays: v.GetInt("DATE_LOOKAHEAD_DAYS"),
			LookBackDays:  v.GetInt("DATE_LOOKBACK_DAYS"),
		},
		Draft: DraftConfig{
			Debounce:       v.GetDuration("DRAFT_DEBOUNCE"),
			ForcedInterval: v.GetDuration("DRAFT_FORCED_INTERVAL"),
			TTL:            v.GetDuration("DRAFT_TTL"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Client: ClientConfig{
			BaseURL: v.GetString("API_BASE_URL"),
			Timeout: v.GetDuration("API_TIMEOUT"),
		},
	}

	if config.Sheet.RowLimit <= 0 {
		return nil, fmt.Errorf("SHEET_ROW_LIMIT must be positive, got %d", config.Sheet.RowLimit)
	}

	return config, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LookAhead returns the future date window as a duration.
func (s SheetConfig) LookAhead() time.Duration {
	return time.Duration(s.LookAheadDays) * 24 * time.Hour
}

// LookBack returns the past date window as a duration.
func (s SheetConfig) LookBack() time.Duration {
	return time.Duration(s.LookBackDays) * 24 * time.Hour
}

// GetDSN returns the MySQL DSN string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Params,
	)
}

// GetMigrationDBURL returns the database URL for migrations
func (c *Config) GetMigrationDBURL() string {
	return "mysql://" + c.GetDSN()
}
