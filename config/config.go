package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string        `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		Host           string `mapstructure:"host"`
		Port           string `mapstructure:"port"`
		User           string `mapstructure:"user"`
		Password       string `mapstructure:"password"`
		Name           string `mapstructure:"name"`
		SSLMode        string `mapstructure:"sslmode"`
		MigrationsPath string `mapstructure:"migrations_path"`
		AutoMigrate    bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	JWT struct {
		SecretKey       string        `mapstructure:"secret_key"`
		AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
		RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	} `mapstructure:"jwt"`
	Session struct {
		// Store is either "redis" or "memory".
		Store        string        `mapstructure:"store"`
		KeyPrefix    string        `mapstructure:"key_prefix"`
		StoreTimeout time.Duration `mapstructure:"store_timeout"`
	} `mapstructure:"session"`
	Cookie struct {
		Domain string `mapstructure:"domain"`
		Secure bool   `mapstructure:"secure"`
	} `mapstructure:"cookie"`
	Mail struct {
		Host            string        `mapstructure:"host"`
		Port            string        `mapstructure:"port"`
		Username        string        `mapstructure:"username"`
		Password        string        `mapstructure:"password"`
		From            string        `mapstructure:"from"`
		VerifyURL       string        `mapstructure:"verify_url"`
		VerificationTTL time.Duration `mapstructure:"verification_ttl"`
	} `mapstructure:"mail"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "file://db/migrations")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.refresh_token_ttl", "720h")

	v.SetDefault("session.store", "redis")
	v.SetDefault("session.key_prefix", "refresh_token:")
	v.SetDefault("session.store_timeout", "3s")

	v.SetDefault("cookie.secure", true)

	v.SetDefault("mail.port", "587")
	v.SetDefault("mail.from", "Knoword <no-reply@knoword.app>")
	v.SetDefault("mail.verify_url", "http://localhost:8080/auth/verify-email")
	v.SetDefault("mail.verification_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yml from path, applies defaults and environment
// overrides (e.g. JWT_SECRET_KEY, REDIS_HOST) and validates the result.
// A missing config file is not an error; everything can come from the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{
		"jwt.secret_key", "database.user", "database.password", "database.name",
		"redis.password", "mail.host", "mail.username", "mail.password", "cookie.domain",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.SecretKey) == "" {
		return errors.New("jwt.secret_key must be set")
	}
	if c.JWT.AccessTokenTTL <= 0 || c.JWT.RefreshTokenTTL <= 0 {
		return errors.New("jwt token lifetimes must be positive")
	}
	if c.Session.StoreTimeout <= 0 {
		return errors.New("session.store_timeout must be positive")
	}
	switch c.Session.Store {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported session store %q", c.Session.Store)
	}
	return nil
}

// LoadConfig populates AppConfig and stops the process if the
// configuration cannot be used.
func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	AppConfig = *cfg
}
