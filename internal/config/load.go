package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	logx "pushrelay/pkg/logx"
)

const (
	DefaultAddr            = "0.0.0.0:5000"
	DefaultCredentialsPath = "firebase_credentials.json"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:              DefaultAddr,
			ReadHeaderTimeout: DefaultReadHeaderTimeout.String(),
			WriteTimeout:      DefaultWriteTimeout.String(),
			IdleTimeout:       DefaultIdleTimeout.String(),
			CORSOrigins:       []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Firebase: FirebaseConfig{
			CredentialsPath:  DefaultCredentialsPath,
			SendTimeout:      DefaultSendTimeout.String(),
			WatchCredentials: true,
		},
		Dispatch: DispatchConfig{FanoutWorkers: 1},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Interval:     6,
			Unit:         "hours",
			Timezone:     "Local",
			JobTimeout:   DefaultJobTimeout.String(),
			ReminderUser: "1",
			Announcement: AnnouncementConfig{At: "09:00", Topic: "announcements"},
		},
		Metrics: MetricsConfig{Enabled: true},
		Tracing: TracingConfig{ServiceName: "pushrelay"},
	}
}

// Load builds the configuration: defaults, then the optional file at path,
// then environment overrides (only variables that are set). The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := parseFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseFile decodes a JSON or YAML file over cfg. Unknown fields and trailing data are rejected.
func parseFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if isYAML(path) {
		if b, err = yamlToJSON(b); err != nil {
			return err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("trailing data")
		}
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	for _, f := range c.durationFields() {
		if _, err := f.parse(); err != nil {
			errs = append(errs, err)
		}
	}
	if lvl := strings.TrimSpace(c.Log.Level); lvl != "" && !logx.ValidLevel(lvl) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: must be console or json, got %q", c.Log.Format))
	}
	if strings.TrimSpace(c.Firebase.CredentialsPath) == "" {
		errs = append(errs, errors.New("firebase.credentials_path is required"))
	}
	if c.Dispatch.FanoutWorkers < 0 {
		errs = append(errs, errors.New("dispatch.fanout_workers must be >= 0"))
	}
	if c.Dispatch.FanoutRPS < 0 {
		errs = append(errs, errors.New("dispatch.fanout_rps must be >= 0"))
	}
	// scheduler.unit is deliberately not checked here: unknown units fall back to seconds.
	if c.Scheduler.Enabled.Bool() && c.Scheduler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.interval must be > 0, got %d", c.Scheduler.Interval))
	}
	if c.Scheduler.Enabled.Bool() && strings.TrimSpace(c.Scheduler.ReminderUser) == "" {
		errs = append(errs, errors.New("scheduler.reminder_user is required when the scheduler is enabled"))
	}
	if a := c.Scheduler.Announcement; a.Enabled.Bool() {
		if _, err := time.Parse("15:04", strings.TrimSpace(a.At)); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.announcement.at: expected HH:MM, got %q", a.At))
		}
		if strings.TrimSpace(a.Topic) == "" {
			errs = append(errs, errors.New("scheduler.announcement.topic is required"))
		}
	}
	return errors.Join(errs...)
}

// EnvDescription renders the table of supported environment variables.
func EnvDescription() (string, error) {
	header := "Environment variables (override the config file):"
	return cleanenv.GetDescription(Default(), &header)
}
