package config

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load() = nil error for missing file")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
execute:
  attempts: 5
  interval_seconds: 0.5
  timeout_seconds: 30
  termination_signal: kill
  check_exit_code: [0, 2]
history:
  enabled: true
  path: /var/lib/runward/history.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Execute.Attempts != 5 {
		t.Errorf("Execute.Attempts = %d, want 5", cfg.Execute.Attempts)
	}
	if !cfg.History.Enabled || cfg.History.Path != "/var/lib/runward/history.db" {
		t.Errorf("History = %+v, want enabled with configured path", cfg.History)
	}
	// Untouched sections keep their defaults.
	if cfg.Events.Broker.Port != 1883 {
		t.Errorf("Events.Broker.Port = %d, want default 1883", cfg.Events.Broker.Port)
	}

	pol := cfg.Policy()
	if pol.Attempts != 5 {
		t.Errorf("Policy().Attempts = %d, want 5", pol.Attempts)
	}
	if pol.Interval != 500*time.Millisecond {
		t.Errorf("Policy().Interval = %v, want 500ms", pol.Interval)
	}
	if pol.Timeout != 30*time.Second {
		t.Errorf("Policy().Timeout = %v, want 30s", pol.Timeout)
	}
	if pol.Signal != syscall.SIGKILL {
		t.Errorf("Policy().Signal = %v, want SIGKILL", pol.Signal)
	}
	if !pol.Check.Accepts(2) || pol.Check.Accepts(1) {
		t.Errorf("Policy().Check accepts wrong codes: %v", pol.Check)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
execute:
  atempts: 3
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() = nil error for unknown key")
	}
	if !strings.Contains(err.Error(), "atempts") {
		t.Errorf("Load() error = %v, want mention of the unknown key", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RUNWARD_HISTORY_PATH", "/tmp/env-override.db")
	t.Setenv("RUNWARD_EVENTS_PASSWORD", "secret")

	path := writeConfig(t, `
history:
  enabled: true
  path: /from/file.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.History.Path != "/tmp/env-override.db" {
		t.Errorf("History.Path = %q, want env override", cfg.History.Path)
	}
	if cfg.Events.Auth.Password != "secret" {
		t.Errorf("Events.Auth.Password = %q, want env override", cfg.Events.Auth.Password)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "zero attempts",
			mutate: func(c *Config) { c.Execute.Attempts = 0 },
			want:   "execute.attempts",
		},
		{
			name:   "negative interval",
			mutate: func(c *Config) { c.Execute.IntervalSeconds = -1 },
			want:   "execute.interval_seconds",
		},
		{
			name:   "bad signal",
			mutate: func(c *Config) { c.Execute.TerminationSignal = "usr1" },
			want:   "termination_signal",
		},
		{
			name: "metrics enabled without url",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Bucket = "executions"
			},
			want: "metrics.url",
		},
		{
			name:   "qos out of range",
			mutate: func(c *Config) { c.Events.QoS = 3 },
			want:   "events.qos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name string
		want syscall.Signal
	}{
		{"", syscall.SIGTERM},
		{"term", syscall.SIGTERM},
		{"SIGTERM", syscall.SIGTERM},
		{"kill", syscall.SIGKILL},
		{"int", syscall.SIGINT},
		{"hup", syscall.SIGHUP},
	}
	for _, tt := range tests {
		got, err := ParseSignal(tt.name)
		if err != nil {
			t.Errorf("ParseSignal(%q) error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSignal(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}

	if _, err := ParseSignal("usr2"); err == nil {
		t.Error("ParseSignal(usr2) = nil error, want rejection")
	}
}

func TestPolicy_DelayOnRetryClearsInterval(t *testing.T) {
	cfg := Default()
	cfg.Execute.DelayOnRetry = true

	pol := cfg.Policy()
	if !pol.DelayOnRetry {
		t.Error("Policy().DelayOnRetry = false, want true")
	}
	if pol.Interval != 0 {
		t.Errorf("Policy().Interval = %v, want 0 when delay_on_retry is set", pol.Interval)
	}
}
