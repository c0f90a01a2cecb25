package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/pkg/types"
)

func newPrefillCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefill",
		Short: "Manage the catalog of known features and experiments",
		Long: `The prefill catalog remembers features and experiments so they can be
brought back with "override activate" after they left the registry.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: withApp(open, func(cmd *cobra.Command, a *app, _ []string) error {
			p := a.prefill(cmd.Context())
			out := cmd.OutOrStdout()

			features := append(a.sw.Features(), a.sw.InactiveFeatures()...)
			experiments := append(a.sw.Experiments(), a.sw.InactiveExperiments()...)

			printFeatures(out, p.Features(), nil)
			fmt.Fprintln(out)
			printExperiments(out, p.Experiments(), nil)
			fmt.Fprintln(out)

			if p.CanPrefillFeatures(features) {
				fmt.Fprintf(out, "not in registry: %d feature(s)\n", len(p.FeaturesUnique(features)))
			}
			if p.CanPrefillExperiments(experiments) {
				fmt.Fprintf(out, "not in registry: %d experiment(s)\n", len(p.ExperimentsUnique(experiments)))
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add [name...]",
		Short: "Catalog registry entries (all of them when no name is given)",
		RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			var (
				features    []*types.Feature
				experiments []*types.Experiment
			)
			if len(args) == 0 {
				features = append(a.sw.Features(), a.sw.InactiveFeatures()...)
				experiments = append(a.sw.Experiments(), a.sw.InactiveExperiments()...)
			}
			for _, name := range args {
				if f, ok := findFeature(a.sw, name); ok {
					features = append(features, f)
					continue
				}
				if e, ok := findExperiment(a.sw, name); ok {
					experiments = append(experiments, e)
					continue
				}
				return fmt.Errorf("unknown feature or experiment %q", name)
			}

			p := a.prefill(ctx)
			if err := p.AddFeatures(ctx, features...); err != nil {
				return err
			}
			if err := p.AddExperiments(ctx, experiments...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalogued %d feature(s), %d experiment(s)\n", len(features), len(experiments))
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Remove an entry from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
			ctx := cmd.Context()
			p := a.prefill(ctx)
			if _, ok := p.Feature(args[0]); ok {
				return p.DeleteFeature(ctx, args[0])
			}
			if _, ok := p.Experiment(args[0]); ok {
				return p.DeleteExperiment(ctx, args[0])
			}
			return fmt.Errorf("%q is not in the catalog", args[0])
		}),
	})
	return cmd
}
