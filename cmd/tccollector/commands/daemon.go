package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/daemon"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	DataDir string `short:"d" help:"Data directory for the daemon database (overrides daemon.data_dir)"`
	Addr    string `help:"Admin API listen address (overrides daemon.admin_addr)"`
	Watch   bool   `help:"Collect whenever the configured source file changes"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	d.apply(cfg)
	if root.Verbose {
		cfg.Logging.Level = config.LogLevelDebug
	}
	return RunDaemon(cfg, daemonLogger(cfg))
}

// apply layers flags over the loaded configuration.
func (d *DaemonCmd) apply(cfg *config.Config) {
	if d.DataDir != "" {
		cfg.Daemon.DataDir = d.DataDir
		cfg.Store.Path = ""
		config.ApplyDefaults(cfg)
	}
	if d.Addr != "" {
		cfg.Daemon.AdminAddr = d.Addr
	}
	if d.Watch {
		cfg.Source.Watch = true
	}
}

// RunDaemon runs the daemon until SIGINT or SIGTERM.
func RunDaemon(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := commandContext()
	defer cancel()

	logger.Info("Starting daemon mode", logfields.Path(cfg.Daemon.DataDir))
	d, err := daemon.New(ctx, cfg, daemon.Options{Logger: logger})
	if err != nil {
		return err
	}
	if err := d.Run(ctx); err != nil {
		return err
	}
	logger.Info("Daemon stopped successfully")
	return nil
}

// daemonLogger honours logging.format and logging.level from the configuration.
func daemonLogger(cfg *config.Config) *slog.Logger {
	logger := config.NewLogger(cfg.Logging)
	slog.SetDefault(logger)
	return logger
}
