package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyp0633/rrulecheck/fixture"
	"github.com/cyp0633/rrulecheck/internal/config"
)

// errFailures signals a completed run with failing fixtures. The report
// has already been printed, so main only sets the exit status.
var errFailures = errors.New("run had failures")

// RootOptions holds state shared by all commands.
type RootOptions struct {
	ConfigFile string

	v      *viper.Viper
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the rrulecheck command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "rrulecheck",
		Short: "Expand RFC 5545 recurrence rules and check fixture files",
		Long: `rrulecheck expands iCalendar RRULEs with python-dateutil semantics.

It generates expected-occurrence fixtures from input YAML files and
verifies generated fixtures against the expansion engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default is ./.rrulecheck.yaml)")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("timezone", "UTC", "default zone for requests without one")
	flags.String("engine", "native", "expansion engine (native|reference)")
	flags.Bool("strict", false, "reject a missing or unknown FREQ")
	flags.Bool("cache", true, "memoize expansions of identical requests")
	flags.Int("workers", 4, "fixture files processed in parallel")
	flags.String("pattern", fixture.DefaultPattern, "glob selecting fixture files")
	flags.String("junit", "", "also write a JUnit XML report to this file")

	for key, name := range map[string]string{
		"log_level": "log-level",
		"timezone":  "timezone",
		"engine":    "engine",
		"strict":    "strict",
		"cache":     "cache",
		"workers":   "workers",
		"pattern":   "pattern",
		"junit":     "junit",
	} {
		if err := opts.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	cmd.AddCommand(NewExpandCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}

func (o *RootOptions) load(stderr io.Writer) error {
	c, err := config.Load(o.v, o.ConfigFile)
	if err != nil {
		return err
	}
	level, err := c.Level()
	if err != nil {
		return err
	}
	o.Config = c
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	o.Logger.Debug("configuration loaded", "file", o.v.ConfigFileUsed(), "engine", c.Engine, "workers", c.Workers)
	return nil
}

// writeJUnit writes the JUnit report when a path is configured.
func (o *RootOptions) writeJUnit(report *fixture.Report) error {
	if o.Config.JUnit == "" {
		return nil
	}
	f, err := os.Create(o.Config.JUnit)
	if err != nil {
		return fmt.Errorf("failed to create JUnit report: %w", err)
	}
	if err := report.WriteJUnit(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write JUnit report: %w", err)
	}
	return f.Close()
}
