package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/runward/internal/execute"
)

// Config is the root configuration structure for runward.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging Logging `yaml:"logging"`
	Execute Execute `yaml:"execute"`
	History History `yaml:"history"`
	Metrics Metrics `yaml:"metrics"`
	Events  Events  `yaml:"events"`
	HTTP    HTTP    `yaml:"http"`
}

// Logging contains logging settings.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Execute contains default execution policy settings. Command-line flags
// override these per run.
type Execute struct {
	// Attempts is the total number of spawn attempts.
	Attempts int `yaml:"attempts"`

	// IntervalSeconds is the base wait between retries.
	IntervalSeconds float64 `yaml:"interval_seconds"`

	// BackoffRate is the exponential base for the backoff curve.
	BackoffRate float64 `yaml:"backoff_rate"`

	// DelayOnRetry replaces the backoff curve with a short randomised
	// jitter sleep. Mutually exclusive with interval_seconds.
	DelayOnRetry bool `yaml:"delay_on_retry"`

	// TimeoutSeconds arms the per-attempt watchdog when positive.
	TimeoutSeconds float64 `yaml:"timeout_seconds"`

	// TerminationSignal is sent on timeout: "term", "kill", "int", or "hup".
	TerminationSignal string `yaml:"termination_signal"`

	// CheckExitCode accepts a bool (false disables validation), a single
	// integer, or a list of integers.
	CheckExitCode execute.ExitCodes `yaml:"check_exit_code"`
}

// History contains the SQLite execution history settings.
type History struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// Metrics contains InfluxDB execution metrics settings.
type Metrics struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// Events contains MQTT event publishing settings.
type Events struct {
	Enabled bool         `yaml:"enabled"`
	Broker  EventsBroker `yaml:"broker"`
	Auth    EventsAuth   `yaml:"auth"`
	QoS     int          `yaml:"qos"`
}

// EventsBroker contains MQTT broker connection details.
type EventsBroker struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// EventsAuth contains MQTT authentication credentials.
type EventsAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HTTP contains settings for the JSON REST client wrapper.
type HTTP struct {
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
	UserAgent      string  `yaml:"user_agent"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Unknown keys in the file are rejected, so a typoed option fails fast
// instead of being silently ignored.
//
// Environment variables follow the pattern: RUNWARD_SECTION_KEY
// For example: RUNWARD_HISTORY_PATH, RUNWARD_EVENTS_HOST
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Execute: Execute{
			Attempts:          1,
			IntervalSeconds:   1,
			BackoffRate:       2,
			TerminationSignal: "term",
		},
		History: History{
			Enabled:     false,
			Path:        "./data/runward.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Metrics: Metrics{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Events: Events{
			Broker: EventsBroker{
				Host:     "localhost",
				Port:     1883,
				ClientID: "runward",
			},
			QoS: 1,
		},
		HTTP: HTTP{
			TimeoutSeconds: 30,
			UserAgent:      "runward-httpclient",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: RUNWARD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// History
	if v := os.Getenv("RUNWARD_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}

	// Events
	if v := os.Getenv("RUNWARD_EVENTS_HOST"); v != "" {
		cfg.Events.Broker.Host = v
	}
	if v := os.Getenv("RUNWARD_EVENTS_USERNAME"); v != "" {
		cfg.Events.Auth.Username = v
	}
	if v := os.Getenv("RUNWARD_EVENTS_PASSWORD"); v != "" {
		cfg.Events.Auth.Password = v
	}

	// Metrics
	if v := os.Getenv("RUNWARD_METRICS_URL"); v != "" {
		cfg.Metrics.URL = v
	}
	if v := os.Getenv("RUNWARD_METRICS_TOKEN"); v != "" {
		cfg.Metrics.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Execute.Attempts < 1 {
		errs = append(errs, "execute.attempts must be >= 1")
	}
	if c.Execute.IntervalSeconds < 0 {
		errs = append(errs, "execute.interval_seconds must be >= 0")
	}
	if c.Execute.BackoffRate < 0 {
		errs = append(errs, "execute.backoff_rate must be >= 0")
	}
	if c.Execute.TimeoutSeconds < 0 {
		errs = append(errs, "execute.timeout_seconds must be >= 0")
	}
	if _, err := ParseSignal(c.Execute.TerminationSignal); err != nil {
		errs = append(errs, err.Error())
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, "history.path is required when history is enabled")
	}

	if c.Metrics.Enabled {
		if c.Metrics.URL == "" {
			errs = append(errs, "metrics.url is required when metrics are enabled")
		}
		if c.Metrics.Bucket == "" {
			errs = append(errs, "metrics.bucket is required when metrics are enabled")
		}
	}

	if c.Events.QoS < 0 || c.Events.QoS > 2 {
		errs = append(errs, "events.qos must be 0, 1, or 2")
	}
	if c.Events.Enabled && c.Events.Broker.Host == "" {
		errs = append(errs, "events.broker.host is required when events are enabled")
	}

	if c.HTTP.TimeoutSeconds < 0 {
		errs = append(errs, "http.timeout_seconds must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Policy converts the execute section into an execution policy.
func (c *Config) Policy() execute.Policy {
	pol := execute.DefaultPolicy()
	pol.Attempts = c.Execute.Attempts
	pol.Interval = secondsToDuration(c.Execute.IntervalSeconds)
	pol.BackoffRate = c.Execute.BackoffRate
	pol.DelayOnRetry = c.Execute.DelayOnRetry
	if pol.DelayOnRetry {
		pol.Interval = 0
	}
	pol.Timeout = secondsToDuration(c.Execute.TimeoutSeconds)
	pol.Check = c.Execute.CheckExitCode
	if sig, err := ParseSignal(c.Execute.TerminationSignal); err == nil {
		pol.Signal = sig
	}
	return pol
}

// HTTPTimeout returns the HTTP client timeout as a Duration.
func (c *Config) HTTPTimeout() time.Duration {
	return secondsToDuration(c.HTTP.TimeoutSeconds)
}

// ParseSignal maps a configured signal name to the signal sent on timeout.
// An empty name selects SIGTERM.
func ParseSignal(name string) (syscall.Signal, error) {
	switch strings.ToLower(name) {
	case "", "term", "sigterm":
		return syscall.SIGTERM, nil
	case "kill", "sigkill":
		return syscall.SIGKILL, nil
	case "int", "sigint":
		return syscall.SIGINT, nil
	case "hup", "sighup":
		return syscall.SIGHUP, nil
	default:
		return 0, fmt.Errorf("execute.termination_signal %q is not one of term, kill, int, hup", name)
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
