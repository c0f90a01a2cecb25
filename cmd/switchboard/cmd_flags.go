package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/pkg/types"
)

func newStatusCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current features and experiments",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "server:    %s\n", orNone(a.sw.ServerURL()))
			fmt.Fprintf(out, "uuid:      %s\n", a.uuid)
			fmt.Fprintf(out, "storage:   %s\n", a.cfg.Storage.Engine)
			fmt.Fprintf(out, "debugging: %t\n", a.sw.IsDebugging())
			printCounts(out, a.sw.Counts())
			fmt.Fprintln(out)
			printFeatures(out, a.sw.Features(), a.sw.InactiveFeatures())
			fmt.Fprintln(out)
			printExperiments(out, a.sw.Experiments(), a.sw.InactiveExperiments())
			return nil
		}),
	}
}

func newEnabledCmd(open opener) *cobra.Command {
	var def bool
	cmd := &cobra.Command{
		Use:   "enabled <feature>",
		Short: "Print whether a feature is enabled",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&def, "default", false, "Answer when the feature is unknown or vetoed")
	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(a.sw.IsEnabledOr(args[0], def)))
		return nil
	})
	return cmd
}

func newInCmd(open opener) *cobra.Command {
	var def bool
	cmd := &cobra.Command{
		Use:   "in <experiment>",
		Short: "Print whether this install is in an experiment",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&def, "default", false, "Answer when the experiment is unknown or vetoed")
	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
		out := cmd.OutOrStdout()
		in := a.sw.IsInOr(args[0], def)
		if e, ok := a.sw.Experiment(args[0]); ok && in {
			fmt.Fprintf(out, "true (cohort %s)\n", e.Cohort())
			return nil
		}
		fmt.Fprintln(out, strconv.FormatBool(in))
		return nil
	})
	return cmd
}

func newStartCmd(open opener) *cobra.Command {
	return lifecycleCmd(open, "start", "Start an entitled experiment", func(e *types.Experiment) (bool, error) {
		return e.Start(), nil
	})
}

func newCompleteCmd(open opener) *cobra.Command {
	return lifecycleCmd(open, "complete", "Complete a running experiment", func(e *types.Experiment) (bool, error) {
		return e.Complete(), nil
	})
}

func newResetCmd(open opener) *cobra.Command {
	return lifecycleCmd(open, "reset", "Clear the lifecycle flags of an experiment", func(e *types.Experiment) (bool, error) {
		if err := e.ClearState(); err != nil {
			return false, err
		}
		return true, nil
	})
}

// lifecycleCmd runs a state transition on an active experiment.
func lifecycleCmd(open opener, use, short string, transition func(*types.Experiment) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <experiment>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
			e, ok := a.sw.Experiment(args[0])
			if !ok {
				return fmt.Errorf("no active experiment %q", args[0])
			}
			from := e.State()
			changed, err := transition(e)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !changed {
				fmt.Fprintf(out, "%s: %s unchanged\n", e.Name(), from)
				return nil
			}
			fmt.Fprintf(out, "%s: %s -> %s\n", e.Name(), from, e.State())
			return nil
		}),
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
