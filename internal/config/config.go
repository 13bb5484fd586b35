package config

import (
	"fmt"
	"strings"

	pkgconfig "emailhub/pkg/config"
	"emailhub/pkg/db"
)

// DefaultJWTSecret is only suitable for local development; Load callers warn when it is in use.
const DefaultJWTSecret = "secret"

type Config struct {
	DB        pkgconfig.DBConfig        `yaml:"db"`
	MQ        pkgconfig.MQConfig        `yaml:"mq"`
	Redis     pkgconfig.RedisConfig     `yaml:"redis"`
	JWT       pkgconfig.JWTConfig       `yaml:"jwt"`
	Server    pkgconfig.ServerConfig    `yaml:"server"`
	OpenAI    pkgconfig.OpenAIConfig    `yaml:"openai"`
	SMTP      pkgconfig.SMTPConfig      `yaml:"smtp"`
	Log       pkgconfig.LogConfig       `yaml:"log"`
	RateLimit pkgconfig.RateLimitConfig `yaml:"rate_limit"`
}

// Load reads config/<CONFIG_ENV>.yaml over config/base.yaml (CONFIG_DIR overrides the
// directory), applies environment overrides and fills in defaults.
func Load() (*Config, error) {
	return LoadFrom(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
}

func LoadFrom(env, dir string) (*Config, error) {
	raw, err := pkgconfig.LoadConfig(env, dir)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := pkgconfig.Decode(raw, &cfg); err != nil {
		return nil, err
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	pkgconfig.OverrideOpenAIFromEnv(&cfg.OpenAI)
	pkgconfig.OverrideSMTPFromEnv(&cfg.SMTP)
	pkgconfig.OverrideLogFromEnv(&cfg.Log)

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "3000"
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = DefaultJWTSecret
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.Temperature == 0 {
		cfg.OpenAI.Temperature = 0.3
	}
	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = "smtp.ethereal.email"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}

	if cfg.DB.Driver == "" {
		cfg.DB.Driver = db.DriverPostgres
	}
	switch cfg.DB.Driver {
	case db.DriverPostgres:
		setDBDefaults(&cfg.DB, 5432, "postgres", "postgres", "emailhub")
	case db.DriverMySQL:
		setDBDefaults(&cfg.DB, 3306, "root", "password", "email_app")
	default:
		return fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
	return nil
}

func setDBDefaults(cfg *pkgconfig.DBConfig, port int, user, password, name string) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = port
	}
	if cfg.User == "" {
		cfg.User = user
	}
	if cfg.Password == "" {
		cfg.Password = password
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}
