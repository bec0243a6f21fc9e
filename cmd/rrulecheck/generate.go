package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cyp0633/rrulecheck/fixture"
	"github.com/cyp0633/rrulecheck/recurrence"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [input_dir] [output_dir]",
		Short: "Write expected occurrences for input fixtures",
		Long: `Expand every case of the input fixtures and write generated fixtures
holding the inputs and their expected occurrences.

A file with any failing case is reported and not written. The command
exits non-zero when any file failed.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := rootOpts.Config.InputDir, rootOpts.Config.OutputDir
			if len(args) > 0 {
				in = args[0]
			}
			if len(args) > 1 {
				out = args[1]
			}
			return runGenerate(cmd, rootOpts, in, out)
		},
	}
	return cmd
}

func runGenerate(cmd *cobra.Command, rootOpts *RootOptions, inDir, outDir string) error {
	paths, err := fixture.Discover(inDir, rootOpts.Config.Pattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no fixture files in %s", inDir)
	}

	runner, closeEngine, err := newRunner(rootOpts)
	if err != nil {
		return err
	}
	defer closeEngine()

	report, err := runner.Generate(cmd.Context(), paths, outDir)
	if err != nil {
		return err
	}
	return finishReport(rootOpts, report, cmd.OutOrStdout())
}

func newRunner(rootOpts *RootOptions) (*fixture.Runner, func(), error) {
	engine, err := rootOpts.Config.NewEngine(recurrence.WithLogger(rootOpts.Logger))
	if err != nil {
		return nil, nil, err
	}
	runner := fixture.NewRunner(engine,
		fixture.WithWorkers(rootOpts.Config.Workers),
		fixture.WithLogger(rootOpts.Logger))
	return runner, engine.Close, nil
}

func finishReport(rootOpts *RootOptions, report *fixture.Report, out io.Writer) error {
	if err := report.WriteText(out); err != nil {
		return err
	}
	if err := rootOpts.writeJUnit(report); err != nil {
		return err
	}
	if report.Failed() {
		return errFailures
	}
	return nil
}
