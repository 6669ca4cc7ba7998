package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bryanwahyu/forensic-lab/internal/application/batch"
)

// Duration decodes TOML strings such as "750ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the operator CLI configuration.
type Config struct {
	ServerURL      string   `toml:"serverURL"`
	Workspace      string   `toml:"workspace"`
	Model          string   `toml:"model"`
	Pacing         Duration `toml:"pacing"`
	RequestTimeout Duration `toml:"requestTimeout"`
	LogLevel       string   `toml:"logLevel"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL:      "http://localhost:8080",
		Workspace:      filepath.Join(dataHome(), "forensics", "workspace.db"),
		Pacing:         Duration{batch.DefaultPacing},
		RequestTimeout: Duration{90 * time.Second},
		LogLevel:       "warn",
	}
}

// DefaultConfigPath is $XDG_CONFIG_HOME/forensics/config.toml.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if strings.TrimSpace(base) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "forensics.toml")
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "forensics", "config.toml")
}

func dataHome() string {
	if base := os.Getenv("XDG_DATA_HOME"); strings.TrimSpace(base) != "" {
		return base
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// LoadConfig reads path over the defaults. An empty path means the default
// location; a missing file there is fine, a missing explicit file is not.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("FORENSICS_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(strings.TrimSpace(c.ServerURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("serverURL %q must be an http(s) URL", c.ServerURL))
	}
	if strings.TrimSpace(c.Workspace) == "" {
		errs = append(errs, errors.New("workspace path is required"))
	}
	if err := checkPacing(c.Pacing.Duration); err != nil {
		errs = append(errs, err)
	}
	if c.RequestTimeout.Duration <= 0 {
		errs = append(errs, errors.New("requestTimeout must be positive"))
	}
	return errors.Join(errs...)
}

func checkPacing(d time.Duration) error {
	if d < batch.MinPacing {
		return fmt.Errorf("pacing %s is below the %s minimum", d, batch.MinPacing)
	}
	return nil
}

// Encode renders c as TOML, used by `forensics config`.
func (c Config) Encode() (string, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
