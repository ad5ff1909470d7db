// Package commands implements the tccollector CLI.
package commands

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/tccollector/internal/client"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path (defaults apply when empty)" env:"TCCOLLECTOR_CONFIG"`
	Admin     string           `help:"Admin API address of the daemon (host:port or URL); defaults to daemon.admin_addr" env:"TCCOLLECTOR_ADMIN"`
	Output    string           `short:"o" help:"Output format" enum:"table,json" default:"table"`
	Timeout   time.Duration    `help:"Admin API request timeout" default:"15s"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Daemon         DaemonCmd         `cmd:"" help:"Run the collection daemon (scheduler, queue and admin API)"`
	Enable         EnableCmd         `cmd:"" help:"Enable automatic collection at an interval"`
	Disable        DisableCmd        `cmd:"" help:"Disable automatic collection"`
	UpdateInterval UpdateIntervalCmd `cmd:"" name:"update-interval" help:"Change the interval of automatic collection"`
	Trigger        TriggerCmd        `cmd:"" help:"Queue a one-off collection"`
	Status         StatusCmd         `cmd:"" help:"Show queue counts, settings and the schedule"`
	Jobs           JobsCmd           `cmd:"" help:"List recent collection jobs"`
	Clean          CleanCmd          `cmd:"" help:"Remove finished jobs older than N days"`
	Pause          PauseCmd          `cmd:"" help:"Stop workers from taking new jobs"`
	Resume         ResumeCmd         `cmd:"" help:"Let workers take jobs again"`
	Alerts         AlertsCmd         `cmd:"" help:"List or acknowledge alerts"`
	Collect        CollectCmd        `cmd:"" help:"Collect a spreadsheet once, in-process"`
	Validate       ValidateCmd       `cmd:"" help:"Check that a spreadsheet has the expected structure"`
	Init           InitCmd           `cmd:"" help:"Write a configuration file with every default"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	slog.SetDefault(config.NewLogger(config.LoggingConfig{
		Level:  level,
		Format: config.NormalizeLogFormat(c.LogFormat),
	}))
	return nil
}

// loadConfig reads the configuration named by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, errors.ConfigError("failed to load configuration").
			WithCause(err).
			WithContext("path", c.Config).
			Build()
	}
	return cfg, nil
}

// adminClient connects to the daemon named by --admin or the configuration.
func (c *CLI) adminClient() (*client.Client, error) {
	addr := c.Admin
	if addr == "" {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, err
		}
		addr = cfg.Daemon.AdminAddr
	}
	return client.New(addr, c.Timeout)
}

func (c *CLI) jsonOutput() bool { return c.Output == "json" }

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
