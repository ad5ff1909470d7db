package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/server/httpserver"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
	"git.home.luguber.info/inful/tccollector/internal/testutil"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("tccollector"), kong.Vars{"version": "test"}, kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, kctx
}

func TestParse_PositionalDefaults(t *testing.T) {
	cli, _ := parse(t, "jobs")
	assert.Equal(t, 20, cli.Jobs.Count)

	cli, _ = parse(t, "clean")
	assert.Equal(t, 30, cli.Clean.Days)

	cli, _ = parse(t, "enable", "15", "/srv/tc.xlsx", "--sheet", "Regression")
	assert.Equal(t, 15, cli.Enable.Interval)
	assert.Equal(t, "/srv/tc.xlsx", cli.Enable.File)
	assert.Equal(t, "Regression", cli.Enable.Sheet)
	assert.Equal(t, "excel", cli.Enable.Source)
	assert.False(t, cli.Enable.Validate)

	cli, _ = parse(t, "enable", "--validate")
	assert.True(t, cli.Enable.Validate)

	cli, _ = parse(t, "update-interval", "5")
	assert.Equal(t, 5, cli.UpdateInterval.Minutes)

	_, kctx := parse(t, "alerts")
	assert.Equal(t, "alerts list", kctx.Command())

	cli, _ = parse(t, "alerts", "ack", "7")
	assert.Equal(t, int64(7), cli.Alerts.Ack.ID)

	cli, _ = parse(t, "status")
	assert.Equal(t, "text", cli.LogFormat)
	cli, _ = parse(t, "--log-format", "json", "-v", "status")
	assert.Equal(t, "json", cli.LogFormat)
	assert.True(t, cli.Verbose)
}

func TestSourceFlags_RejectsUnknownType(t *testing.T) {
	_, err := SourceFlags{Source: "csv"}.locator("/x")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	loc, err := SourceFlags{Source: "XLSX", Sheet: "S"}.locator("/x.xlsx")
	require.NoError(t, err)
	assert.Equal(t, testcase.Locator{Type: testcase.SourceExcel, FilePath: "/x.xlsx", SheetName: "S"}, loc)
}

func TestLocalSource(t *testing.T) {
	cfg := config.Default()
	cfg.Source.SheetName = "Main"

	assert.Equal(t, config.DefaultSourcePath, localSource(cfg, "", "").FilePath)
	assert.Equal(t, "Main", localSource(cfg, "", "").SheetName)

	loc := localSource(cfg, "/tmp/a.xlsx", "Other")
	assert.Equal(t, "/tmp/a.xlsx", loc.FilePath)
	assert.Equal(t, "Other", loc.SheetName)
}

func TestDaemonCmd_AppliesFlags(t *testing.T) {
	cfg := config.Default()
	cmd := DaemonCmd{DataDir: "/var/lib/tcc", Addr: "0.0.0.0:9000", Watch: true}
	cmd.apply(cfg)

	assert.Equal(t, filepath.Join("/var/lib/tcc", "tccollector.db"), cfg.Store.Path)
	assert.Equal(t, "0.0.0.0:9000", cfg.Daemon.AdminAddr)
	assert.True(t, cfg.Source.Watch)
}

func writeWorkbook(t *testing.T, contents ...string) string {
	t.Helper()
	wb := testutil.NewWorkbook(t).Headers(config.DefaultHeaderRows)
	for i, content := range contents {
		wb.Cells(map[int]any{
			collector.ColTestID:      fmt.Sprintf("TC-%d", i+1),
			collector.ColTestContent: content,
		})
	}
	return wb.Save()
}

func quietGlobal() *Global {
	return &Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestCollectCmd_DryRun(t *testing.T) {
	path := writeWorkbook(t, "open page", "", "submit form")
	cmd := CollectCmd{File: path, DryRun: true}
	require.NoError(t, cmd.Run(quietGlobal(), &CLI{Output: "json"}))
}

func TestValidateCmd(t *testing.T) {
	require.NoError(t, (&ValidateCmd{File: writeWorkbook(t, "open page")}).Run(quietGlobal(), &CLI{}))

	err := (&ValidateCmd{File: writeWorkbook(t)}).Run(quietGlobal(), &CLI{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	err = (&ValidateCmd{File: filepath.Join(t.TempDir(), "missing.xlsx")}).Run(quietGlobal(), &CLI{})
	require.Error(t, err)
}

type noopRunner struct{}

func (noopRunner) Run(_ context.Context, loc testcase.Locator, _ collector.ProgressFunc) (*collector.Outcome, error) {
	return &collector.Outcome{Source: loc.String(), CollectedAt: time.Now()}, nil
}

func TestRemoteCommands(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.Context(), ":memory:")
	require.NoError(t, err)
	sched, err := scheduler.New(st, noopRunner{}, scheduler.Options{Logger: logger})
	require.NoError(t, err)
	srv := httptest.NewServer(httpserver.New(config.Default(), httpserver.Options{
		Collection: sched, Alerts: st, Logger: logger,
	}).Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Stop(ctx)
		_ = st.Close()
	})

	root := &CLI{Admin: srv.URL, Output: "json", Timeout: time.Second}
	g := quietGlobal()

	err = (&UpdateIntervalCmd{Minutes: 5}).Run(g, root)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotEnabled))

	err = (&EnableCmd{Interval: 30, File: "/srv/tc.xlsx", Validate: true, SourceFlags: SourceFlags{Source: "excel"}}).Run(g, root)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))
	assert.Empty(t, sched.Registrations())

	require.NoError(t, (&EnableCmd{Interval: 30, File: "/srv/tc.xlsx", SourceFlags: SourceFlags{Source: "excel"}}).Run(g, root))
	require.NoError(t, (&UpdateIntervalCmd{Minutes: 5}).Run(g, root))
	regs := sched.Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, 5, regs[0].Interval)
	assert.Equal(t, "/srv/tc.xlsx", regs[0].Source.FilePath)

	require.NoError(t, (&TriggerCmd{}).Run(g, root))
	require.NoError(t, (&StatusCmd{}).Run(g, root))
	require.NoError(t, (&JobsCmd{Count: 5}).Run(g, root))
	require.NoError(t, (&PauseCmd{}).Run(g, root))
	assert.True(t, sched.Counts().Paused)
	require.NoError(t, (&ResumeCmd{}).Run(g, root))
	require.NoError(t, (&CleanCmd{Days: 30}).Run(g, root))
	require.NoError(t, (&AlertsListCmd{Limit: 5}).Run(g, root))

	err = (&AlertsAckCmd{ID: 42}).Run(g, root)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	require.NoError(t, (&DisableCmd{}).Run(g, root))
	assert.Empty(t, sched.Registrations())

	root.Output = "table"
	require.NoError(t, (&StatusCmd{}).Run(g, root))
	require.NoError(t, (&JobsCmd{Count: 5}).Run(g, root))
}
