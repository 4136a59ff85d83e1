// Package config loads Koyomi's configuration from an optional YAML file and
// the environment. Environment variables take precedence over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Koyomi/common/environment"
	"github.com/bdobrica/Koyomi/common/redact"
	"github.com/bdobrica/Koyomi/internal/koyomi/calendar"
	"github.com/bdobrica/Koyomi/internal/koyomi/commands"
	"github.com/bdobrica/Koyomi/internal/koyomi/matrix"
	"github.com/bdobrica/Koyomi/internal/koyomi/nlu"
	"github.com/bdobrica/Koyomi/internal/koyomi/slack"
)

// Platforms.
const (
	PlatformSlack  = "slack"
	PlatformMatrix = "matrix"
)

// EnvConfigFile names the environment variable holding the config file path.
const EnvConfigFile = "KOYOMI_CONFIG"

// Config is the complete runtime configuration.
type Config struct {
	Platform     string         `yaml:"platform"`
	Slack        SlackConfig    `yaml:"slack"`
	Matrix       MatrixConfig   `yaml:"matrix"`
	Wit          WitConfig      `yaml:"wit"`
	Calendar     CalendarConfig `yaml:"calendar"`
	DatabasePath string         `yaml:"database_path"`
	// Timezone is the IANA zone dates are shown in.
	Timezone     string        `yaml:"timezone"`
	HTTPAddr     string        `yaml:"http_addr"`
	NLURateLimit int           `yaml:"nlu_rate_limit"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	LogLevel     string        `yaml:"log_level"`
	LogFormat    string        `yaml:"log_format"`

	location *time.Location
}

// SlackConfig configures the Slack transport.
type SlackConfig struct {
	BotToken   string `yaml:"bot_token"`
	AppToken   string `yaml:"app_token"`
	APIURL     string `yaml:"api_url"`
	BotChannel string `yaml:"bot_channel"`
}

// MatrixConfig configures the Matrix transport.
type MatrixConfig struct {
	Homeserver  string   `yaml:"homeserver"`
	UserID      string   `yaml:"user_id"`
	AccessToken string   `yaml:"access_token"`
	Rooms       []string `yaml:"rooms"`
	Prefix      string   `yaml:"prefix"`
}

// WitConfig configures the NLU client.
type WitConfig struct {
	Token      string `yaml:"token"`
	APIURL     string `yaml:"api_url"`
	APIVersion string `yaml:"api_version"`
}

// CalendarConfig configures the calendar service client.
type CalendarConfig struct {
	APIURL    string `yaml:"api_url"`
	VerifyURL string `yaml:"verify_url"`
}

// Default returns the configuration used before the file and environment
// are applied.
func Default() Config {
	return Config{
		Platform: PlatformSlack,
		Slack:    SlackConfig{APIURL: slack.DefaultBaseURL},
		Matrix:   MatrixConfig{Prefix: matrix.DefaultPrefix},
		Calendar: CalendarConfig{
			APIURL:    calendar.DefaultBaseURL,
			VerifyURL: commands.DefaultVerifyURL,
		},
		Timezone:     "UTC",
		NLURateLimit: nlu.DefaultRateLimit,
		HTTPTimeout:  30 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// FromEnv loads the file named by KOYOMI_CONFIG (if any), then the
// environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	environment.OverrideString(&c.Platform, "KOYOMI_PLATFORM")

	environment.OverrideString(&c.Slack.BotToken, "SLACK_BOT_TOKEN")
	environment.OverrideString(&c.Slack.AppToken, "SLACK_APP_TOKEN")
	environment.OverrideString(&c.Slack.APIURL, "SLACK_API_URL")
	environment.OverrideString(&c.Slack.BotChannel, "BOT_CHANNEL")

	environment.OverrideString(&c.Matrix.Homeserver, "MATRIX_HOMESERVER")
	environment.OverrideString(&c.Matrix.UserID, "MATRIX_USER_ID")
	environment.OverrideString(&c.Matrix.AccessToken, "MATRIX_ACCESS_TOKEN")
	environment.OverrideStringSlice(&c.Matrix.Rooms, "MATRIX_ROOMS")

	environment.OverrideString(&c.Wit.Token, "WIT_TOKEN")
	environment.OverrideString(&c.Wit.APIURL, "WIT_API_URL")
	environment.OverrideString(&c.Wit.APIVersion, "WIT_API_VERSION")

	environment.OverrideString(&c.Calendar.APIURL, "CALENDAR_API_URL")
	environment.OverrideString(&c.Calendar.VerifyURL, "CALENDAR_VERIFY_URL")

	environment.OverrideString(&c.DatabasePath, "DATABASE_PATH")
	environment.OverrideString(&c.HTTPAddr, "HTTP_ADDR")
	environment.OverrideInt(&c.NLURateLimit, "NLU_RATE_LIMIT")
	environment.OverrideDuration(&c.HTTPTimeout, "HTTP_TIMEOUT")
	environment.OverrideString(&c.LogLevel, "LOG_LEVEL")
	environment.OverrideString(&c.LogFormat, "LOG_FORMAT")

	fileLoc, err := loadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	loc, err := environment.LocationOr("KOYOMI_TIMEZONE", fileLoc)
	if err != nil {
		return err
	}
	c.location = loc
	c.Timezone = loc.String()
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Platform {
	case PlatformSlack:
		if c.Slack.BotToken == "" {
			errs = append(errs, errors.New("SLACK_BOT_TOKEN is required for the slack platform"))
		}
		if c.Slack.AppToken == "" {
			errs = append(errs, errors.New("SLACK_APP_TOKEN is required for the slack platform"))
		}
		if c.Slack.BotChannel == "" {
			errs = append(errs, errors.New("BOT_CHANNEL is required for the slack platform"))
		}
	case PlatformMatrix:
		if c.Matrix.Homeserver == "" {
			errs = append(errs, errors.New("MATRIX_HOMESERVER is required for the matrix platform"))
		}
		if c.Matrix.UserID == "" {
			errs = append(errs, errors.New("MATRIX_USER_ID is required for the matrix platform"))
		}
		if c.Matrix.AccessToken == "" {
			errs = append(errs, errors.New("MATRIX_ACCESS_TOKEN is required for the matrix platform"))
		}
		if len(c.Matrix.Rooms) == 0 {
			errs = append(errs, errors.New("MATRIX_ROOMS must name at least one room"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown platform %q (want %s or %s)", c.Platform, PlatformSlack, PlatformMatrix))
	}
	if c.Wit.Token == "" {
		errs = append(errs, errors.New("WIT_TOKEN is required"))
	}
	if c.Calendar.APIURL == "" {
		errs = append(errs, errors.New("CALENDAR_API_URL must not be empty"))
	}
	if c.NLURateLimit < 0 {
		errs = append(errs, fmt.Errorf("NLU_RATE_LIMIT must not be negative, got %d", c.NLURateLimit))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Location returns the zone dates are shown in.
func (c Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// LogArgs returns a redacted summary of c for a startup log line.
func (c Config) LogArgs() []any {
	return redact.Args(map[string]any{
		"platform":            c.Platform,
		"slack_bot_token":     c.Slack.BotToken,
		"slack_app_token":     c.Slack.AppToken,
		"slack_bot_channel":   c.Slack.BotChannel,
		"matrix_homeserver":   c.Matrix.Homeserver,
		"matrix_user_id":      c.Matrix.UserID,
		"matrix_access_token": c.Matrix.AccessToken,
		"matrix_rooms":        strings.Join(c.Matrix.Rooms, ","),
		"wit_token":           c.Wit.Token,
		"wit_api_version":     c.Wit.APIVersion,
		"calendar_api_url":    c.Calendar.APIURL,
		"database_path":       c.DatabasePath,
		"timezone":            c.Timezone,
		"http_addr":           c.HTTPAddr,
		"nlu_rate_limit":      c.NLURateLimit,
		"http_timeout":        c.HTTPTimeout.String(),
	})
}

// Secrets returns the configured credentials, for redacting error text.
func (c Config) Secrets() []string {
	return []string{c.Slack.BotToken, c.Slack.AppToken, c.Matrix.AccessToken, c.Wit.Token}
}
