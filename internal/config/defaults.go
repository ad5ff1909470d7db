package config

import (
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

const (
	DefaultAdminAddr     = "127.0.0.1:8090"
	DefaultSyncBaseURL   = "http://localhost:3000"
	DefaultSyncPath      = "/api/testcases/sync"
	DefaultSourcePath    = "/data/testcases.xlsx"
	DefaultInterval      = 30 // minutes
	DefaultKeepCompleted = 20
	DefaultKeepFailed    = 50
	DefaultHeaderRows    = 8
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

var defaultAppliers = []DefaultApplier{
	daemonDefaults{},
	queueDefaults{},
	retryDefaults{},
	syncDefaults{},
	collectorDefaults{},
	sourceDefaults{},
	storeDefaults{},
	observabilityDefaults{},
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	for _, a := range defaultAppliers {
		a.ApplyDefaults(cfg)
	}
}

type daemonDefaults struct{}

func (daemonDefaults) Domain() string { return "daemon" }

func (daemonDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Daemon.DataDir == "" {
		cfg.Daemon.DataDir = "./data"
	}
	if cfg.Daemon.AdminAddr == "" {
		cfg.Daemon.AdminAddr = DefaultAdminAddr
	}
	if cfg.Daemon.ShutdownTimeout <= 0 {
		cfg.Daemon.ShutdownTimeout = Duration(30 * time.Second)
	}
}

type queueDefaults struct{}

func (queueDefaults) Domain() string { return "queue" }

func (queueDefaults) ApplyDefaults(cfg *Config) {
	q := &cfg.Queue
	if q.Workers <= 0 {
		q.Workers = 1
	}
	if q.MaxSize <= 0 {
		q.MaxSize = 100
	}
	if q.StallThreshold <= 0 {
		q.StallThreshold = Duration(30 * time.Second)
	}
	if q.KeepCompleted <= 0 {
		q.KeepCompleted = DefaultKeepCompleted
	}
	if q.KeepFailed <= 0 {
		q.KeepFailed = DefaultKeepFailed
	}
	if q.CleanAge <= 0 {
		q.CleanAge = Duration(30 * 24 * time.Hour)
	}
}

type retryDefaults struct{}

func (retryDefaults) Domain() string { return "retry" }

func (retryDefaults) ApplyDefaults(cfg *Config) {
	r := &cfg.Retry
	if r.Backoff == "" {
		r.Backoff = RetryBackoffExponential
	} else if m := NormalizeRetryBackoff(string(r.Backoff)); m != "" {
		r.Backoff = m
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = Duration(5 * time.Second)
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = Duration(30 * time.Minute)
	}
	if r.Multiplier == 0 {
		r.Multiplier = 2
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
}

type syncDefaults struct{}

func (syncDefaults) Domain() string { return "sync" }

func (syncDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Sync.BaseURL == "" {
		// API_URL is the variable the dashboard deployment already exports.
		if v := os.Getenv("API_URL"); v != "" {
			cfg.Sync.BaseURL = v
		} else {
			cfg.Sync.BaseURL = DefaultSyncBaseURL
		}
	}
	if cfg.Sync.Path == "" {
		cfg.Sync.Path = DefaultSyncPath
	}
	if cfg.Sync.Timeout <= 0 {
		cfg.Sync.Timeout = Duration(30 * time.Second)
	}
}

type collectorDefaults struct{}

func (collectorDefaults) Domain() string { return "collector" }

func (collectorDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Collector.ReadTimeout <= 0 {
		cfg.Collector.ReadTimeout = Duration(60 * time.Second)
	}
	if cfg.Collector.HeaderRows <= 0 {
		cfg.Collector.HeaderRows = DefaultHeaderRows
	}
}

type sourceDefaults struct{}

func (sourceDefaults) Domain() string { return "source" }

func (sourceDefaults) ApplyDefaults(cfg *Config) {
	s := &cfg.Source
	if s.Type == "" {
		s.Type = testcase.SourceExcel
	} else if t, err := testcase.ParseSourceType(string(s.Type)); err == nil {
		s.Type = t
	}
	if s.Type == testcase.SourceExcel && s.Path == "" {
		s.Path = DefaultSourcePath
	}
	if s.Interval == 0 {
		s.Interval = DefaultInterval
	}
	if s.WatchDebounce <= 0 {
		s.WatchDebounce = Duration(2 * time.Second)
	}
}

type storeDefaults struct{}

func (storeDefaults) Domain() string { return "store" }

func (storeDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.Daemon.DataDir, "tccollector.db")
	}
}

type observabilityDefaults struct{}

func (observabilityDefaults) Domain() string { return "observability" }

func (observabilityDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	n := &cfg.Alerts.NATS
	if n.URL == "" {
		n.URL = "nats://127.0.0.1:4222"
	}
	if n.Subject == "" {
		n.Subject = "tccollector.alerts"
	}
	if n.Stream == "" {
		n.Stream = "TCCOLLECTOR_ALERTS"
	}
}
