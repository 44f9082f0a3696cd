package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata" // US/Eastern etc. on hosts without zoneinfo

	govalidator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvConfigPath = "COURSECAL_CONFIG"
	EnvTerm       = "COURSECAL_TERM"
	EnvTimezone   = "COURSECAL_TIMEZONE"
	EnvLogLevel   = "LOG_LEVEL"
	EnvLogFormat  = "LOG_FORMAT"

	DefaultPath = "config.yaml"
)

// CatalogConfig locates the course-catalog service.
type CatalogConfig struct {
	APIURL         string `yaml:"api_url" validate:"required,url"`
	SOCURL         string `yaml:"soc_url" validate:"required,url"`
	University     string `yaml:"university" validate:"required"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`
}

// CalendarConfig controls the Google Calendar sink.
type CalendarConfig struct {
	CalendarID       string `yaml:"calendar_id" validate:"required"`
	ClientSecretFile string `yaml:"client_secret_file" validate:"required"`
	TokenFile        string `yaml:"token_file" validate:"required"`

	// RedirectListen is the loopback address for the consent redirect.
	RedirectListen string `yaml:"redirect_listen" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info error"`
	Format string `yaml:"format" validate:"oneof=pretty json"`
}

// Config is the top-level application configuration.
type Config struct {
	// Term is the "{Season} {Year}" term to sync, e.g. "Spring 2024".
	Term string `yaml:"term" validate:"required"`

	// Timezone is the IANA zone the events are created in.
	Timezone string `yaml:"timezone" validate:"required"`

	// CredentialsFile is the two-line catalog login file.
	CredentialsFile string `yaml:"credentials_file" validate:"required"`

	Catalog  CatalogConfig  `yaml:"catalog"`
	Calendar CalendarConfig `yaml:"calendar"`

	// ICSExport, if set, also writes every planned event to this .ics file.
	ICSExport string `yaml:"ics_export,omitempty"`

	// DryRun plans (and exports) events without touching Google Calendar.
	DryRun bool `yaml:"dry_run"`

	Log LogConfig `yaml:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Term:            "",
		Timezone:        "US/Eastern",
		CredentialsFile: "login.txt",
		Catalog: CatalogConfig{
			APIURL:         "https://api.courseoff.com",
			SOCURL:         "https://soc.courseoff.com",
			University:     "uga",
			TimeoutSeconds: 30,
		},
		Calendar: CalendarConfig{
			CalendarID:       "primary",
			ClientSecretFile: "google_calendar/credentials.json",
			TokenFile:        "google_calendar/token.json",
			RedirectListen:   "127.0.0.1:8085",
		},
		Log: LogConfig{Level: "info", Format: "pretty"},
	}
}

// Normalize fills in missing/zero values with defaults so partially
// filled files still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = d.CredentialsFile
	}
	if c.Catalog.APIURL == "" {
		c.Catalog.APIURL = d.Catalog.APIURL
	}
	if c.Catalog.SOCURL == "" {
		c.Catalog.SOCURL = d.Catalog.SOCURL
	}
	if c.Catalog.University == "" {
		c.Catalog.University = d.Catalog.University
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = d.Catalog.TimeoutSeconds
	}
	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = d.Calendar.CalendarID
	}
	if c.Calendar.ClientSecretFile == "" {
		c.Calendar.ClientSecretFile = d.Calendar.ClientSecretFile
	}
	if c.Calendar.TokenFile == "" {
		c.Calendar.TokenFile = d.Calendar.TokenFile
	}
	if c.Calendar.RedirectListen == "" {
		c.Calendar.RedirectListen = d.Calendar.RedirectListen
	}
	switch c.Log.Level {
	case "debug", "info", "error":
	default:
		c.Log.Level = d.Log.Level
	}
	switch c.Log.Format {
	case "pretty", "json":
	default:
		c.Log.Format = d.Log.Format
	}
}

// LoadEnv loads variables from an optional .env file at path (".env" when
// empty). Variables already set in the environment win. A missing file is
// not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies environment overrides. Call LoadEnv first so .env
// values take part.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvTerm); v != "" {
		c.Term = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

var validate = govalidator.New(govalidator.WithRequiredStructEnabled())

// Validate checks required fields and that Timezone names a known zone.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CatalogTimeout is the per-request timeout for catalog calls.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.TimeoutSeconds) * time.Second
}

// PathFromEnv returns the config path named by COURSECAL_CONFIG, or
// DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there with
//     0600 perms and returned.
//   - Otherwise the YAML is unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".coursecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save writes the config to path.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
