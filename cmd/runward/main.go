// runward - resilient external command runner
//
// runward spawns a command with retries, exponential backoff, and a
// per-attempt timeout watchdog, relaying the child's output and exit code.
// Optional subsystems record every attempt: a SQLite history store, InfluxDB
// metrics, and MQTT events.
//
// Usage:
//
//	runward [flags] -- command [args...]
//	runward -attempts 3 -timeout 30 -- rsync -a /src /dst
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/runward/internal/execute"
	"github.com/nerrad567/runward/internal/history"
	"github.com/nerrad567/runward/internal/infrastructure/config"
	"github.com/nerrad567/runward/internal/infrastructure/database"
	"github.com/nerrad567/runward/internal/infrastructure/influxdb"
	"github.com/nerrad567/runward/internal/infrastructure/logging"
	"github.com/nerrad567/runward/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options holds the parsed command-line flags.
type options struct {
	configPath   string
	attempts     int
	interval     float64
	backoffRate  float64
	delayOnRetry bool
	timeout      float64
	shell        bool
	dir          string
	exitCodes    string
	ignoreExit   bool
	set          map[string]bool
}

func main() {
	// Cancel on interrupt signals so a retry backoff can be abandoned
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	code, err := run(ctx, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "runward: %v\n", err)
	}
	os.Exit(code)
}

// run is the actual application logic, separated from main for testability.
//
// Returns the process exit code (the child's where known) and an error to
// report.
func run(ctx context.Context, args []string) (int, error) {
	opts, cmdArgs, err := parseArgs(args)
	if err != nil {
		return 2, err
	}
	if len(cmdArgs) == 0 {
		return 2, errors.New("no command given; usage: runward [flags] -- command [args...]")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return 2, err
	}

	log := logging.New(cfg.Logging, version)
	log.Debug("starting runward", "version", version, "commit", commit)

	pol := cfg.Policy()
	applyFlagOverrides(&pol, opts)

	cmd := execute.Command{
		Args:  cmdArgs,
		Shell: opts.shell,
		Dir:   opts.dir,
	}

	executor := execute.NewExecutor()
	executor.SetLogger(log.With("component", "execute"))

	// Optional recorders attach here; none of them can affect the run.
	finish, err := wireRecorders(ctx, cfg, cmdArgs, executor, log)
	if err != nil {
		return 2, err
	}

	result, execErr := executor.Execute(ctx, cmd, pol)

	exitCode, reportErr := renderOutcome(result, execErr)
	finish(exitCode, execErr == nil)
	return exitCode, reportErr
}

// parseArgs parses flags up to the command line, tracking which flags were
// explicitly set so only those override the config file.
func parseArgs(args []string) (*options, []string, error) {
	fs := flag.NewFlagSet("runward", flag.ContinueOnError)
	opts := &options{set: make(map[string]bool)}

	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.IntVar(&opts.attempts, "attempts", 1, "total spawn attempts")
	fs.Float64Var(&opts.interval, "interval", 1, "base retry wait in seconds")
	fs.Float64Var(&opts.backoffRate, "backoff-rate", 2, "exponential backoff base")
	fs.BoolVar(&opts.delayOnRetry, "delay-on-retry", false, "use randomised jitter between retries instead of backoff")
	fs.Float64Var(&opts.timeout, "timeout", 0, "per-attempt timeout in seconds (0 disables)")
	fs.BoolVar(&opts.shell, "shell", false, "run the command through /bin/sh -c")
	fs.StringVar(&opts.dir, "dir", "", "working directory for the command")
	fs.StringVar(&opts.exitCodes, "exit-codes", "", "comma-separated exit codes to treat as success")
	fs.BoolVar(&opts.ignoreExit, "ignore-exit-code", false, "treat any exit code as success")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	return opts, fs.Args(), nil
}

// loadConfig resolves the configuration: an explicit -config path must
// exist; the default path is optional and falls back to built-in defaults.
func loadConfig(flagPath string) (*config.Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("RUNWARD_CONFIG")
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := os.Stat(defaultConfigPath); err == nil {
		return config.Load(defaultConfigPath)
	}
	return config.Default(), nil
}

// applyFlagOverrides layers explicitly-set flags over the config policy.
func applyFlagOverrides(pol *execute.Policy, opts *options) {
	if opts.set["attempts"] {
		pol.Attempts = opts.attempts
	}
	if opts.set["interval"] {
		pol.Interval = time.Duration(opts.interval * float64(time.Second))
	}
	if opts.set["backoff-rate"] {
		pol.BackoffRate = opts.backoffRate
	}
	if opts.set["delay-on-retry"] {
		pol.DelayOnRetry = opts.delayOnRetry
		if opts.delayOnRetry && !opts.set["interval"] {
			pol.Interval = 0
		}
	}
	if opts.set["timeout"] {
		pol.Timeout = time.Duration(opts.timeout * float64(time.Second))
	}
	if opts.set["ignore-exit-code"] && opts.ignoreExit {
		pol.Check = execute.Any()
	} else if opts.set["exit-codes"] {
		pol.Check = parseExitCodes(opts.exitCodes)
	}
}

// parseExitCodes converts a comma-separated list into an exit code policy.
// Unparseable entries are skipped.
func parseExitCodes(list string) execute.ExitCodes {
	var codes []int
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		codes = append(codes, code)
	}
	return execute.Allow(codes...)
}

// wireRecorders attaches the enabled observers (history, metrics, events)
// to the executor and returns a finish func that records the terminal
// outcome and closes everything down.
func wireRecorders(ctx context.Context, cfg *config.Config, cmdArgs []string, executor *execute.Executor, log *logging.Logger) (func(exitCode int, succeeded bool), error) {
	var finishers []func(exitCode int, succeeded bool)

	// Shared across finishers: how many attempts ran and whether any timed out.
	tracker := &attemptTracker{}
	if cfg.History.Enabled || cfg.Events.Enabled {
		executor.AddRecorder(tracker)
	}

	if cfg.History.Enabled {
		db, err := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening history database: %w", err)
		}

		store, err := history.NewStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialising history store: %w", err)
		}
		executionID, err := store.Begin(ctx, cmdArgs)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("recording execution: %w", err)
		}
		log.Debug("history enabled", "path", cfg.History.Path, "execution_id", executionID)

		executor.AddRecorder(history.NewRecorder(store, executionID, log))

		finishers = append(finishers, func(exitCode int, succeeded bool) {
			if err := store.Finish(ctx, executionID, tracker.attempts, exitCode, tracker.timedOut, succeeded); err != nil {
				log.Warn("failed to record execution outcome", "error", err)
			}
			db.Close()
		})
	}

	if cfg.Metrics.Enabled {
		influxClient, err := influxdb.Connect(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write error", "error", err)
		})
		log.Debug("metrics enabled", "url", cfg.Metrics.URL, "bucket", cfg.Metrics.Bucket)

		executor.AddRecorder(influxClient)
		finishers = append(finishers, func(int, bool) {
			influxClient.Close()
		})
	}

	if cfg.Events.Enabled {
		mqttClient, err := mqtt.Connect(cfg.Events)
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		publisher := mqtt.NewEventPublisher(mqttClient, cfg.Events.QoS, log)
		log.Debug("events enabled",
			"broker", fmt.Sprintf("%s:%d", cfg.Events.Broker.Host, cfg.Events.Broker.Port),
		)

		executor.AddRecorder(publisher)

		finishers = append(finishers, func(exitCode int, succeeded bool) {
			publisher.PublishResult(cmdArgs, tracker.attempts, exitCode, succeeded)
			mqttClient.Close()
		})
	}

	return func(exitCode int, succeeded bool) {
		for _, f := range finishers {
			f(exitCode, succeeded)
		}
	}, nil
}

// attemptTracker observes attempts so the finishers can report totals.
type attemptTracker struct {
	attempts int
	timedOut bool
}

func (t *attemptTracker) RecordAttempt(stats execute.AttemptStats) {
	t.attempts++
	if stats.TimedOut {
		t.timedOut = true
	}
}

// renderOutcome relays the child's captured output and maps the execution
// result to a process exit code.
func renderOutcome(result *execute.Result, err error) (int, error) {
	if err == nil {
		os.Stdout.Write(result.Stdout)
		os.Stderr.Write(result.Stderr)
		return 0, nil
	}

	var execErr *execute.ExecError
	if errors.As(err, &execErr) {
		os.Stdout.Write(execErr.Stdout)
		os.Stderr.Write(execErr.Stderr)
		if execErr.ExitCode == execute.UnknownExitCode {
			return 1, err
		}
		return execErr.ExitCode, err
	}

	// Spawn or configuration failure: nothing ran.
	return 1, err
}
