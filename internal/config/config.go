package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"icsbuild/internal/ics"
	appLog "icsbuild/internal/log"
)

// EnvPrefix marks environment variables that override file values.
// Nested keys are separated by a double underscore, e.g.
// ICSBUILD_CALENDAR__PRODUCT_ID sets calendar.product_id.
const EnvPrefix = "ICSBUILD_"

// CalendarConfig is the branding written into every artifact.
type CalendarConfig struct {
	ProductID string `koanf:"product_id" yaml:"product_id"`
	// Name is a format string; %s is replaced by the recipient's display name.
	Name         string `koanf:"name" yaml:"name"`
	OrganizerURL string `koanf:"organizer_url" yaml:"organizer_url"`
	UIDDomain    string `koanf:"uid_domain" yaml:"uid_domain"`
}

// Config is the top-level application configuration.
type Config struct {
	// EventsDir holds one JSON file per event group.
	EventsDir string `koanf:"events_dir" yaml:"events_dir"`
	// UserconfigDir holds one JSON file per recipient.
	UserconfigDir string `koanf:"userconfig_dir" yaml:"userconfig_dir"`
	// OutputDir receives the published calendars.
	OutputDir string `koanf:"output_dir" yaml:"output_dir"`

	// Timezone is the IANA zone change dates are converted into before
	// time-of-day overrides resolve against their calendar day. Artifacts are
	// always written in ics.TZID.
	Timezone string `koanf:"timezone" yaml:"timezone"`
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	PollSeconds     int `koanf:"poll_seconds" yaml:"poll_seconds"`
	GraceSeconds    int `koanf:"grace_seconds" yaml:"grace_seconds"`
	DebounceSeconds int `koanf:"debounce_seconds" yaml:"debounce_seconds"`

	// RebuildCron optionally schedules full rebuilds (e.g. "0 3 * * *"). Empty disables them.
	RebuildCron string `koanf:"rebuild_cron" yaml:"rebuild_cron"`

	// RecurrenceHorizonDays bounds how far recurring event records are expanded.
	RecurrenceHorizonDays int `koanf:"recurrence_horizon_days" yaml:"recurrence_horizon_days"`

	Calendar CalendarConfig `koanf:"calendar" yaml:"calendar"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	r := ics.DefaultRenderer()
	return &Config{
		EventsDir:             "eventfiles",
		UserconfigDir:         "userconfig",
		OutputDir:             "calendars",
		Timezone:              ics.TZID,
		LogLevel:              "info",
		PollSeconds:           5,
		GraceSeconds:          10,
		DebounceSeconds:       10,
		RecurrenceHorizonDays: 365,
		Calendar: CalendarConfig{
			ProductID:    r.ProductID,
			Name:         r.CalendarName,
			OrganizerURL: r.OrganizerURL,
			UIDDomain:    r.UIDDomain,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.EventsDir == "" {
		c.EventsDir = def.EventsDir
	}
	if c.UserconfigDir == "" {
		c.UserconfigDir = def.UserconfigDir
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.PollSeconds <= 0 {
		c.PollSeconds = def.PollSeconds
	}
	if c.GraceSeconds < 0 {
		c.GraceSeconds = 0
	}
	if c.DebounceSeconds <= 0 {
		c.DebounceSeconds = def.DebounceSeconds
	}
	if c.RecurrenceHorizonDays <= 0 {
		c.RecurrenceHorizonDays = def.RecurrenceHorizonDays
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = def.Calendar.ProductID
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = def.Calendar.Name
	}
	if c.Calendar.OrganizerURL == "" {
		c.Calendar.OrganizerURL = def.Calendar.OrganizerURL
	}
	if c.Calendar.UIDDomain == "" {
		c.Calendar.UIDDomain = def.Calendar.UIDDomain
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Renderer() ics.Renderer {
	return ics.Renderer{
		ProductID:    c.Calendar.ProductID,
		CalendarName: c.Calendar.Name,
		OrganizerURL: c.Calendar.OrganizerURL,
		UIDDomain:    c.Calendar.UIDDomain,
	}
}

func (c *Config) Poll() time.Duration     { return time.Duration(c.PollSeconds) * time.Second }
func (c *Config) Grace() time.Duration    { return time.Duration(c.GraceSeconds) * time.Second }
func (c *Config) Debounce() time.Duration { return time.Duration(c.DebounceSeconds) * time.Second }
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.RecurrenceHorizonDays) * 24 * time.Hour
}

// Load builds the configuration from defaults, the YAML file at path and
// ICSBUILD_ environment variables, later sources winning.
//
// If the file does not exist, a default config is written there first.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		appLog.Info("config file not found, writing defaults", "path", path)
		if err := Save(path, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(*DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
			return strings.ReplaceAll(k, "__", "."), v
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()

	appLog.Debug("config loaded", "path", path)
	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename. The parent
// directory is created if needed and the file ends up with 0600 permissions.
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

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icsbuild-config-*.tmp")
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
