package commands

import (
	"os"

	"github.com/pterm/pterm"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// SourceFlags select a spreadsheet on the command line.
type SourceFlags struct {
	Source        string `help:"Source type (excel or gsheet)" default:"excel"`
	SpreadsheetID string `name:"spreadsheet-id" help:"Spreadsheet id for gsheet sources"`
	Sheet         string `help:"Sheet name (defaults to the first sheet)"`
}

func (f SourceFlags) locator(file string) (testcase.Locator, error) {
	t, err := testcase.ParseSourceType(f.Source)
	if err != nil {
		return testcase.Locator{}, errors.ValidationError(err.Error()).Build()
	}
	return testcase.Locator{Type: t, FilePath: file, SpreadsheetID: f.SpreadsheetID, SheetName: f.Sheet}, nil
}

// EnableCmd implements the 'enable' command.
type EnableCmd struct {
	Interval    int    `arg:"" optional:"" help:"Interval in minutes (default: source.interval)"`
	File        string `arg:"" optional:"" help:"Spreadsheet path as seen by the daemon (default: source.path)"`
	Validate    bool   `help:"Check the workbook structure before enabling (file sources only)"`
	SourceFlags `embed:""`
}

func (c *EnableCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	interval := c.Interval
	if interval == 0 {
		interval = cfg.Source.Interval
	}
	file := c.File
	if file == "" && c.SpreadsheetID == "" {
		file = cfg.Source.Path
	}
	loc, err := c.locator(file)
	if err != nil {
		return err
	}

	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := cl.Enable(ctx, scheduler.AutoUpdateConfig{
		Interval:       interval,
		Source:         loc.Type,
		FilePath:       loc.FilePath,
		SpreadsheetID:  loc.SpreadsheetID,
		SheetName:      loc.SheetName,
		CheckStructure: c.Validate,
	})
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, resp)
	}
	pterm.Success.Printf("Auto-update enabled: every %d minutes from %s\n",
		resp.Settings.CollectionInterval, resp.Settings.Locator())
	return nil
}

// DisableCmd implements the 'disable' command.
type DisableCmd struct{}

func (c *DisableCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := cl.Disable(ctx)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, resp)
	}
	pterm.Success.Println("Auto-update disabled")
	return nil
}

// UpdateIntervalCmd implements the 'update-interval' command.
type UpdateIntervalCmd struct {
	Minutes int `arg:"" help:"New interval in minutes"`
}

func (c *UpdateIntervalCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := cl.UpdateInterval(ctx, c.Minutes)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, resp)
	}
	pterm.Success.Printf("Collection interval set to %d minutes\n", resp.Settings.CollectionInterval)
	return nil
}

// TriggerCmd implements the 'trigger' command.
type TriggerCmd struct {
	File        string `arg:"" optional:"" help:"Spreadsheet path as seen by the daemon (default: the daemon's source.path)"`
	SourceFlags `embed:""`
}

func (c *TriggerCmd) Run(_ *Global, root *CLI) error {
	var loc testcase.Locator
	if c.File != "" || c.SpreadsheetID != "" {
		var err error
		if loc, err = c.locator(c.File); err != nil {
			return err
		}
	}

	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := cl.Trigger(ctx, loc)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, resp)
	}
	pterm.Success.Printf("Collection queued: job %s\n", resp.JobID)
	return nil
}

// StatusCmd implements the 'status' command.
type StatusCmd struct{}

func (c *StatusCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	status, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, status)
	}
	return renderStatus(status)
}

// JobsCmd implements the 'jobs' command.
type JobsCmd struct {
	Count int    `arg:"" optional:"" default:"20" help:"Number of jobs to show"`
	ID    string `help:"Show a single job"`
}

func (c *JobsCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if c.ID != "" {
		job, err := cl.Job(ctx, c.ID)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, job)
	}

	jobs, err := cl.Jobs(ctx, c.Count)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, jobs)
	}
	return renderJobs(jobs)
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Days int `arg:"" optional:"" default:"30" help:"Remove finished jobs older than this many days"`
}

func (c *CleanCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	resp, err := cl.Clean(ctx, c.Days)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, resp)
	}
	pterm.Success.Printf("Removed %d jobs older than %d days\n", resp.Removed, resp.Days)
	return nil
}

// PauseCmd implements the 'pause' command.
type PauseCmd struct{}

func (c *PauseCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	counts, err := cl.Pause(ctx)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, counts)
	}
	pterm.Warning.Printf("Queue paused (%d waiting, %d active)\n", counts.Waiting, counts.Active)
	return nil
}

// ResumeCmd implements the 'resume' command.
type ResumeCmd struct{}

func (c *ResumeCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	counts, err := cl.Resume(ctx)
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, counts)
	}
	pterm.Success.Printf("Queue resumed (%d waiting)\n", counts.Waiting)
	return nil
}

// AlertsCmd groups the alert subcommands.
type AlertsCmd struct {
	List AlertsListCmd `cmd:"" default:"withargs" help:"List alerts, newest first"`
	Ack  AlertsAckCmd  `cmd:"" help:"Acknowledge an alert"`
}

// AlertsListCmd implements 'alerts list'.
type AlertsListCmd struct {
	All   bool `help:"Include acknowledged alerts"`
	Limit int  `default:"20" help:"Maximum number of alerts"`
}

func (c *AlertsListCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	list, err := cl.Alerts(ctx, alerts.Filter{UnacknowledgedOnly: !c.All, Limit: c.Limit})
	if err != nil {
		return err
	}
	if root.jsonOutput() {
		return printJSON(os.Stdout, list)
	}
	return renderAlerts(list)
}

// AlertsAckCmd implements 'alerts ack'.
type AlertsAckCmd struct {
	ID int64 `arg:"" help:"Alert id"`
}

func (c *AlertsAckCmd) Run(_ *Global, root *CLI) error {
	cl, err := root.adminClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if err := cl.Acknowledge(ctx, c.ID); err != nil {
		return err
	}
	pterm.Success.Printf("Alert %d acknowledged\n", c.ID)
	return nil
}
