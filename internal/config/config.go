package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		ReadTimeout    time.Duration `yaml:"readTimeout"`
		WriteTimeout   time.Duration `yaml:"writeTimeout"`
		AllowedOrigins []string      `yaml:"allowedOrigins"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"database"`

	Session struct {
		Secret string        `yaml:"secret"`
		Issuer string        `yaml:"issuer"`
		TTL    time.Duration `yaml:"ttl"`
	} `yaml:"session"`

	Scoring struct {
		Provider       string        `yaml:"provider"`
		BaseURL        string        `yaml:"baseURL"`
		DefaultModel   string        `yaml:"defaultModel"`
		Models         []string      `yaml:"models"`
		Timeout        time.Duration `yaml:"timeout"`
		MaxPromptChars int           `yaml:"maxPromptChars"`
	} `yaml:"scoring"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

const maxPromptCharsLimit = 8000

// Default returns a config that only lacks the session secret.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 75 * time.Second
	c.Server.AllowedOrigins = []string{"*"}
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Database.Driver = "mysql"
	c.Database.Host = "127.0.0.1"
	c.Session.Issuer = "forensic-lab"
	c.Session.TTL = 2 * time.Hour
	c.Scoring.Provider = "gemini"
	c.Scoring.DefaultModel = "gemini-2.5-flash"
	c.Scoring.Models = []string{"gemini-2.5-flash", "gemini-flash-latest", "gemini-2.5-pro"}
	c.Scoring.Timeout = 60 * time.Second
	c.Scoring.MaxPromptChars = 5000
	c.Redis.TTL = 30 * 24 * time.Hour
	return &c
}

// Load baca file config.yaml di atas Default, lalu override dari env.
// File yang tidak ada dianggap kosong.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Session.Secret = getenv("JWT_SECRET", c.Session.Secret)
	c.Database.Password = getenv("DATABASE_PASSWORD", c.Database.Password)
	c.Redis.Password = getenv("REDIS_PASSWORD", c.Redis.Password)
	c.Minio.SecretKey = getenv("MINIO_SECRET_KEY", c.Minio.SecretKey)
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate rejects configs the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Session.Secret) == "" {
		errs = append(errs, errors.New("session.secret is required (set JWT_SECRET)"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.Scoring.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("scoring.provider %q is not supported", c.Scoring.Provider))
	}
	if !c.modelListed(c.Scoring.DefaultModel) {
		errs = append(errs, fmt.Errorf("scoring.defaultModel %q is not in scoring.models", c.Scoring.DefaultModel))
	}
	if c.Scoring.MaxPromptChars < 1 || c.Scoring.MaxPromptChars > maxPromptCharsLimit {
		errs = append(errs, fmt.Errorf("scoring.maxPromptChars must be within 1..%d", maxPromptCharsLimit))
	}
	if c.Scoring.Timeout <= 0 {
		errs = append(errs, errors.New("scoring.timeout must be positive"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	return errors.Join(errs...)
}

func (c *Config) modelListed(m string) bool {
	m = strings.TrimPrefix(strings.TrimSpace(m), "models/")
	for _, v := range c.Scoring.Models {
		if strings.TrimPrefix(strings.TrimSpace(v), "models/") == m {
			return true
		}
	}
	return false
}

func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }

func (c *Config) MinioEnabled() bool { return c.Minio.Endpoint != "" && c.Minio.BucketName != "" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
