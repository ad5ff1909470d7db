package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/tccollector/cmd/tccollector/commands"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("tccollector"),
		kong.Description("Collects test cases from spreadsheets and syncs them to the dashboard API."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	// AfterApply has installed the process logger by now.
	if err := parser.Run(&commands.Global{Logger: slog.Default()}, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
