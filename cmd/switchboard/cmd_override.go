package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/internal/engine"
	"github.com/scrypster/switchboard/pkg/types"
)

// target is the entity an override command acts on. Exactly one field is set.
type target struct {
	feature    *types.Feature
	experiment *types.Experiment
}

// resolveTarget finds name among the registry's features, then its
// experiments, then the prefill catalog.
func resolveTarget(ctx context.Context, a *app, name string) (target, error) {
	if f, ok := findFeature(a.sw, name); ok {
		return target{feature: f}, nil
	}
	if e, ok := findExperiment(a.sw, name); ok {
		return target{experiment: e}, nil
	}
	p := a.prefill(ctx)
	if f, ok := p.Feature(name); ok {
		return target{feature: f}, nil
	}
	if e, ok := p.Experiment(name); ok {
		return target{experiment: e}, nil
	}
	return target{}, fmt.Errorf("unknown feature or experiment %q", name)
}

func newOverrideCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Change features and experiments locally",
		Long: `Override commands edit the local registry. The first override turns on
debugging: downloaded configuration is ignored until "override clear".`,
	}

	moves := []struct {
		use, short string
		feature    func(*engine.DebugController, context.Context, *types.Feature) error
		experiment func(*engine.DebugController, context.Context, *types.Experiment) error
	}{
		{"activate", "Move a feature or experiment into the active set",
			(*engine.DebugController).ActivateFeature, (*engine.DebugController).ActivateExperiment},
		{"deactivate", "Move a feature or experiment into the inactive set",
			(*engine.DebugController).DeactivateFeature, (*engine.DebugController).DeactivateExperiment},
		{"toggle", "Flip a feature or experiment between active and inactive",
			(*engine.DebugController).ToggleFeature, (*engine.DebugController).ToggleExperiment},
		{"delete", "Remove a feature or experiment from the registry",
			(*engine.DebugController).DeleteFeature, (*engine.DebugController).DeleteExperiment},
	}
	for _, m := range moves {
		m := m // per-iteration copy: go.mod targets go1.21 loop semantics
		cmd.AddCommand(&cobra.Command{
			Use:   m.use + " <name>",
			Short: m.short,
			Args:  cobra.ExactArgs(1),
			RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
				ctx := cmd.Context()
				t, err := resolveTarget(ctx, a, args[0])
				if err != nil {
					return err
				}
				debug := engine.NewDebugController(ctx, a.sw)
				if t.feature != nil {
					err = m.feature(debug, ctx, t.feature)
				} else {
					err = m.experiment(debug, ctx, t.experiment)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.use, args[0])
				return nil
			}),
		})
	}

	cmd.AddCommand(
		newOverrideAddCmd(open),
		newOverrideCohortCmd(open),
		newOverrideValuesCmd(open),
		newOverrideCohortsCmd(open),
		&cobra.Command{
			Use:   "clear",
			Short: "Drop every override and leave debugging",
			Args:  cobra.NoArgs,
			RunE: withApp(open, func(cmd *cobra.Command, a *app, _ []string) error {
				if err := engine.NewDebugController(cmd.Context(), a.sw).ClearCacheAndSwitchboard(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "overrides cleared")
				return nil
			}),
		},
	)
	return cmd
}

func newOverrideAddCmd(open opener) *cobra.Command {
	var (
		valuesJSON string
		cohorts    []string
		inactive   bool
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a feature, or an experiment when the values carry a cohort",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&valuesJSON, "values", "{}", "Values as a JSON object")
	cmd.Flags().StringSliceVar(&cohorts, "cohorts", nil, "Available cohorts of an experiment")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Add to the inactive set")

	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
		ctx := cmd.Context()
		values, err := parseValues(valuesJSON)
		if err != nil {
			return err
		}
		debug := engine.NewDebugController(ctx, a.sw)

		if _, hasCohort := values[types.KeyCohort]; hasCohort {
			e, err := a.sw.NewExperiment(args[0], values, cohorts...)
			if err != nil {
				return err
			}
			if inactive {
				err = debug.DeactivateExperiment(ctx, e)
			} else {
				err = debug.ActivateExperiment(ctx, e)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added experiment %s\n", e)
			return nil
		}

		f, err := a.sw.NewFeature(args[0], values)
		if err != nil {
			return err
		}
		if inactive {
			err = debug.DeactivateFeature(ctx, f)
		} else {
			err = debug.ActivateFeature(ctx, f)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added feature %s\n", f)
		return nil
	})
	return cmd
}

func newOverrideCohortCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "cohort <experiment> <cohort>",
		Short: "Assign a cohort to an experiment",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
			e, ok := findExperiment(a.sw, args[0])
			if !ok {
				return fmt.Errorf("unknown experiment %q", args[0])
			}
			ctx := cmd.Context()
			if err := engine.NewDebugController(ctx, a.sw).ChangeCohort(ctx, e, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: cohort %s\n", e.Name(), e.Cohort())
			return nil
		}),
	}
}

func newOverrideCohortsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "cohorts <experiment> [cohort...]",
		Short: "Replace the list of cohorts offered for an experiment",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
			e, ok := findExperiment(a.sw, args[0])
			if !ok {
				return fmt.Errorf("unknown experiment %q", args[0])
			}
			ctx := cmd.Context()
			return engine.NewDebugController(ctx, a.sw).UpdateAvailableCohorts(ctx, e, args[1:])
		}),
	}
}

func newOverrideValuesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "values <name> <json>",
		Short: "Replace the values of a feature or experiment",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
			values, err := parseValues(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			debug := engine.NewDebugController(ctx, a.sw)

			if f, ok := findFeature(a.sw, args[0]); ok {
				return debug.ChangeFeatureValues(ctx, f, values)
			}
			if e, ok := findExperiment(a.sw, args[0]); ok {
				return debug.ChangeExperimentValues(ctx, e, values)
			}
			return fmt.Errorf("unknown feature or experiment %q", args[0])
		}),
	}
}

func parseValues(raw string) (types.Values, error) {
	var values types.Values
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("values must be a JSON object: %w", err)
	}
	if values == nil {
		values = types.Values{}
	}
	return values, nil
}
