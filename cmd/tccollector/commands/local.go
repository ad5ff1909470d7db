package commands

import (
	"context"
	"os"

	"github.com/pterm/pterm"

	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/syncclient"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// CollectCmd implements the 'collect' command.
type CollectCmd struct {
	File   string `arg:"" optional:"" help:"Spreadsheet path (default: source.path)" type:"path"`
	Sheet  string `help:"Sheet name (defaults to the first sheet)"`
	DryRun bool   `name:"dry-run" help:"Parse and fingerprint without pushing"`
}

func (c *CollectCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	loc := localSource(cfg, c.File, c.Sheet)

	var pusher syncclient.Pusher = dryRunPusher{}
	if !c.DryRun {
		if pusher, err = syncclient.New(cfg.Sync.BaseURL,
			syncclient.WithPath(cfg.Sync.Path),
			syncclient.WithTimeout(cfg.Sync.Timeout.Duration())); err != nil {
			return err
		}
	}
	col := collector.New(pusher,
		collector.WithLogger(g.Logger),
		collector.WithReadTimeout(cfg.Collector.ReadTimeout.Duration()),
		collector.WithHeaderRows(cfg.Collector.HeaderRows))

	ctx, cancel := commandContext()
	defer cancel()

	out, err := col.Collect(ctx, loc)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, out)
	}
	if c.DryRun {
		pterm.Info.Printf("Dry run: %d test cases parsed from %s (fingerprint %s)\n", out.Records, out.Source, out.Fingerprint)
		return nil
	}
	pterm.Success.Printf("%d test cases synced from %s (HTTP %d)\n", out.Records, out.Source, out.AckStatus)
	return nil
}

// dryRunPusher accepts every batch without sending it.
type dryRunPusher struct{}

func (dryRunPusher) Push(context.Context, syncclient.Batch) (*syncclient.Ack, error) {
	return &syncclient.Ack{}, nil
}

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	File  string `arg:"" optional:"" help:"Spreadsheet path (default: source.path)" type:"path"`
	Sheet string `help:"Sheet name (defaults to the first sheet)"`
}

func (c *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	loc := localSource(cfg, c.File, c.Sheet)
	col := collector.New(dryRunPusher{},
		collector.WithLogger(g.Logger),
		collector.WithReadTimeout(cfg.Collector.ReadTimeout.Duration()),
		collector.WithHeaderRows(cfg.Collector.HeaderRows))

	ctx, cancel := commandContext()
	defer cancel()

	if err := col.ValidateStructure(ctx, loc.FilePath, loc.SheetName); err != nil {
		return err
	}
	pterm.Success.Printf("%s has the expected structure\n", loc.FilePath)
	return nil
}

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (c *InitCmd) Run(_ *Global, root *CLI) error {
	path := root.Config
	if path == "" {
		path = "tccollector.yaml"
	}
	if err := config.Init(path, c.Force); err != nil {
		return err
	}
	pterm.Success.Printf("Configuration written to %s\n", path)
	return nil
}

func localSource(cfg *config.Config, file, sheet string) testcase.Locator {
	loc := testcase.Locator{Type: testcase.SourceExcel, FilePath: cfg.Source.Path, SheetName: cfg.Source.SheetName}
	if file != "" {
		loc.FilePath = file
	}
	if sheet != "" {
		loc.SheetName = sheet
	}
	return loc
}
