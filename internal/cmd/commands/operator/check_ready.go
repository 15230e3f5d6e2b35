package operator

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/fruitstand/fruitstand/internal/cmd/base"
	"github.com/fruitstand/fruitstand/internal/config"
	"github.com/fruitstand/fruitstand/internal/db"
	"github.com/fruitstand/fruitstand/pkg/fruits"
	"github.com/fruitstand/fruitstand/pkg/health"
)

// CheckReadyCommand runs the readiness probe against the configured database
// without starting the server.
type CheckReadyCommand struct {
	*base.Command

	// Fs is where the config file is read from. Nil means the OS filesystem.
	Fs afero.Fs

	flagConfig  string
	flagTimeout time.Duration
}

func (c *CheckReadyCommand) Synopsis() string {
	return "Run the readiness probe against the configured database"
}

func (c *CheckReadyCommand) Help() string {
	return `Usage: fruitstand operator check-ready -config=<file>

  Looks up the readiness fruit once and prints the health report. Exits 0
  when the database answers and 1 otherwise.` +
		c.Flags().Help()
}

func (c *CheckReadyCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("check-ready", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "(Required) Path to the fruitstand `config` file",
	)
	f.DurationVar(
		&c.flagTimeout, "timeout", 5*time.Second,
		"How long to wait for the database.",
	)

	return f
}

func (c *CheckReadyCommand) Run(args []string) int {
	ui := c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	if c.flagConfig == "" {
		ui.Error("config flag is required")
		return 1
	}

	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfg, err := config.Load(fs, c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}

	database, err := db.NewDB(cfg, nil)
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing database: %v", err))
		return 1
	}
	defer func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), c.flagTimeout)
	defer cancel()

	store := fruits.NewGormStore(database, cfg.Fruits.TopVotedLimit)
	report := health.NewReport(health.Readiness(ctx, store, cfg.ReadinessFruitID()))

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		ui.Error(fmt.Sprintf("error encoding report: %v", err))
		return 1
	}
	ui.Output(string(out))

	if report.State != health.StateUp {
		return 1
	}
	return 0
}
