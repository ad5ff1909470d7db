package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// Config is the daemon and CLI configuration.
type Config struct {
	Daemon    DaemonConfig    `yaml:"daemon"`
	Queue     QueueConfig     `yaml:"queue"`
	Retry     RetryConfig     `yaml:"retry"`
	Sync      SyncConfig      `yaml:"sync"`
	Collector CollectorConfig `yaml:"collector"`
	Source    SourceConfig    `yaml:"source"`
	Store     StoreConfig     `yaml:"store"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DaemonConfig holds process-level settings.
type DaemonConfig struct {
	DataDir         string   `yaml:"data_dir"`
	AdminAddr       string   `yaml:"admin_addr"` // host:port of the admin API
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// QueueConfig sizes the job queue and its retention.
type QueueConfig struct {
	Workers        int      `yaml:"workers"`
	MaxSize        int      `yaml:"max_size"`
	StallThreshold Duration `yaml:"stall_threshold"`
	KeepCompleted  int      `yaml:"keep_completed"`
	KeepFailed     int      `yaml:"keep_failed"`
	CleanAge       Duration `yaml:"clean_age"`
}

// SyncConfig points at the ingestion boundary.
type SyncConfig struct {
	BaseURL string   `yaml:"base_url"`
	Path    string   `yaml:"path"`
	Timeout Duration `yaml:"timeout"`
}

// CollectorConfig tunes spreadsheet reading.
type CollectorConfig struct {
	ReadTimeout Duration `yaml:"read_timeout"`
	HeaderRows  int      `yaml:"header_rows"`
}

// SourceConfig provides defaults for commands that omit a source, and the
// optional file watcher.
type SourceConfig struct {
	Type          testcase.SourceType `yaml:"type"`
	Path          string              `yaml:"path"`
	SpreadsheetID string              `yaml:"spreadsheet_id"`
	SheetName     string              `yaml:"sheet_name"`
	Interval      int                 `yaml:"interval"` // minutes
	Watch         bool                `yaml:"watch"`
	WatchDebounce Duration            `yaml:"watch_debounce"`
}

// Locator returns the configured source as a collection locator.
func (s SourceConfig) Locator() testcase.Locator {
	return testcase.Locator{
		Type:          s.Type,
		FilePath:      s.Path,
		SpreadsheetID: s.SpreadsheetID,
		SheetName:     s.SheetName,
	}
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// AlertsConfig configures optional alert publishers.
type AlertsConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig configures the JetStream alert publisher.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads configPath, expands ${ENV} references, applies defaults and
// validates. An empty path yields Default(). Environment files are loaded
// first so they can feed the expansion.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	if configPath == "" {
		cfg := Default()
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
