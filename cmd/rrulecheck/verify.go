package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cyp0633/rrulecheck/fixture"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "verify [dir]",
		Short: "Check generated fixtures against the expansion engine",
		Long: `Expand the input of every generated fixture and compare the result with
its expected occurrences, by instant and by canonical text.

With --watch the fixtures are verified again whenever one changes, until
interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Config.OutputDir
			if len(args) > 0 {
				dir = args[0]
			}
			return runVerify(cmd, rootOpts, dir, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "verify again when fixture files change")
	return cmd
}

func runVerify(cmd *cobra.Command, rootOpts *RootOptions, dir string, watch bool) error {
	paths, err := fixture.Discover(dir, rootOpts.Config.Pattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 && !watch {
		return fmt.Errorf("no fixture files in %s", dir)
	}

	runner, closeEngine, err := newRunner(rootOpts)
	if err != nil {
		return err
	}
	defer closeEngine()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	report, err := runner.Verify(ctx, paths)
	if err != nil {
		return err
	}
	result := finishReport(rootOpts, report, out)
	if !watch {
		return result
	}
	if result != nil && !errors.Is(result, errFailures) {
		return result
	}

	rootOpts.Logger.Info("watching for fixture changes", "dir", dir)
	err = fixture.Watch(ctx, []string{dir}, fixture.WatchConfig{Logger: rootOpts.Logger}, func(changed []string) {
		report, err := runner.Verify(ctx, changed)
		if err != nil {
			rootOpts.Logger.Error("verify failed", "error", err)
			return
		}
		fmt.Fprintln(out)
		if err := finishReport(rootOpts, report, out); err != nil && !errors.Is(err, errFailures) {
			rootOpts.Logger.Error("failed to write report", "error", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
