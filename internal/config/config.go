package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me"

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Env            string        `mapstructure:"APP_ENV"`
	ServerPort     string        `mapstructure:"SERVER_PORT"`
	MySQLDSN       string        `mapstructure:"MYSQL_DSN"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	RedisPass      string        `mapstructure:"REDIS_PASSWORD"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	TokenTTL       time.Duration `mapstructure:"TOKEN_TTL"`
	StoreTimeout   time.Duration `mapstructure:"STORE_TIMEOUT"`
	UploadDir      string        `mapstructure:"UPLOAD_DIR"`
	MaxUploadMB    int           `mapstructure:"MAX_UPLOAD_MB"`
	AllowedOrigins string        `mapstructure:"ALLOWED_ORIGINS"`
	SwaggerHost    string        `mapstructure:"SWAGGER_HOST"`
	ResetDB        bool          `mapstructure:"RESET_DB"`
}

// Load builds Config from a .env file (if present) and the environment, with sensible defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("MYSQL_DSN", "user:password@tcp(localhost:3306)/scrapdeal?charset=utf8mb4&parseTime=True&loc=Local")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_MB", 5)
	v.SetDefault("ALLOWED_ORIGINS", "https://scrapdeal-client.vercel.app,http://localhost:5173")
	v.SetDefault("SWAGGER_HOST", "")
	v.SetDefault("RESET_DB", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot safely run with.
func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("SERVER_PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be changed from the default value in production")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("STORE_TIMEOUT must be positive")
	}
	if c.MaxUploadMB <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Origins splits ALLOWED_ORIGINS into a trimmed list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
