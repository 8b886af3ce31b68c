package main

import (
	"errors"
	"fmt"
	"os"
	"time"
	"tokengate/common/flux"
	"tokengate/common/postgres"
	"tokengate/common/valid"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Strategy types.
const (
	StrategyStatic  = "static"
	StrategySession = "session"
	StrategyRedis   = "redis"
	StrategyJWT     = "jwt"
)

type Config struct {
	Debug      bool             `yaml:"debug" env:"TOKENGATE_DEBUG"`
	LogLevel   string           `yaml:"log_level" env:"TOKENGATE_LOG_LEVEL"`
	Server     ServerConfig     `yaml:"server"`
	Database   postgres.Config  `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Strategies []StrategyConfig `yaml:"strategies"`
}

type ServerConfig struct {
	Port              int           `yaml:"port" env:"TOKENGATE_PORT"`
	TLS               bool          `yaml:"tls" env:"TOKENGATE_TLS"`
	CertCacheDir      string        `yaml:"cert_cache_dir"`
	IPExtractor       string        `yaml:"ip_extractor" env:"TOKENGATE_IP_EXTRACTOR"`
	Metrics           bool          `yaml:"metrics" env:"TOKENGATE_METRICS"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"TOKENGATE_REQUEST_TIMEOUT"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"TOKENGATE_REDIS_ADDR"`
	Password  string `yaml:"password" env:"TOKENGATE_REDIS_PASSWORD"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type StrategyConfig struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Realm         string `yaml:"realm"`
	ExposeRequest bool   `yaml:"expose_request"`

	// static
	TokenFile string `yaml:"token_file"`
	Watch     bool   `yaml:"watch"`

	// session
	BindIP bool `yaml:"bind_ip"`

	// jwt
	Issuer      string        `yaml:"issuer"`
	Audiences   []string      `yaml:"audiences"`
	JWKSURL     string        `yaml:"jwks_url"`
	Discovery   bool          `yaml:"discovery"`
	AllowedAlgs []string      `yaml:"allowed_algs"`
	Leeway      time.Duration `yaml:"leeway"`
}

// loadConfig reads the YAML file at path, then applies variables from an
// optional .env file and the environment.
func loadConfig(path, envFile string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors that would only surface at startup.
func (c *Config) Validate() error {
	var errs valid.Errors
	if _, err := flux.ParseIPExtractor(c.Server.IPExtractor); err != nil {
		errs.Add("server.ip_extractor", "%s", err.Error())
	}
	if len(c.Strategies) == 0 {
		errs.Add("strategies", "At least one strategy is required.")
	}

	seen := make(map[string]bool)
	for i, sc := range c.Strategies {
		field := fmt.Sprintf("strategies[%d]", i)
		if sc.Name == "" {
			errs.Add(field + ".name", "Required.")
		} else if seen[sc.Name] {
			errs.Add(field + ".name", "Duplicate name.")
		}
		seen[sc.Name] = true

		switch sc.Type {
		case StrategyStatic:
			if sc.TokenFile == "" {
				errs.Add(field + ".token_file", "Required.")
			}
		case StrategySession, StrategyRedis:
		case StrategyJWT:
			if sc.Discovery && sc.Issuer == "" {
				errs.Add(field + ".issuer", "Required for discovery.")
			}
			if !sc.Discovery && sc.JWKSURL == "" {
				errs.Add(field + ".jwks_url", "Required without discovery.")
			}
		default:
			errs.Add(field + ".type", "Unknown type %q.", sc.Type)
		}
	}
	return errs.Err()
}

// uses reports whether any strategy has the given type.
func (c *Config) uses(typ string) bool {
	for _, sc := range c.Strategies {
		if sc.Type == typ {
			return true
		}
	}
	return false
}
