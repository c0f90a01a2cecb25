package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/internal/analytics"
	"github.com/scrypster/switchboard/internal/cache"
	"github.com/scrypster/switchboard/internal/config"
	"github.com/scrypster/switchboard/internal/engine"
	"github.com/scrypster/switchboard/internal/properties"
	"github.com/scrypster/switchboard/internal/storage"
	"github.com/scrypster/switchboard/internal/transport"
	"github.com/scrypster/switchboard/pkg/types"
)

// app is the wired client a single command runs against.
type app struct {
	cfg     *config.Config
	backend storage.Backend
	sw      *engine.Switchboard
	client  *transport.Client
	uuid    string
	info    properties.App
	env     properties.Environment
}

// opener builds an app for the running command.
type opener func(ctx context.Context) (*app, error)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "switchboard",
		Short: "Switchboard - feature flags and experiments on the client",
		Long: `Switchboard downloads feature and experiment configuration, keeps it
in a local cache and answers enablement queries against it.

Local overrides made with "override" win over downloads until cleared.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	open := func(ctx context.Context) (*app, error) {
		return openApp(ctx, configPath)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "switchboard v%s (%s)\n", version, commit)
		},
	})
	rootCmd.AddCommand(
		newFetchCmd(open),
		newApplyCmd(open),
		newPublishCmd(open),
		newStatusCmd(open),
		newEnabledCmd(open),
		newInCmd(open),
		newStartCmd(open),
		newCompleteCmd(open),
		newResetCmd(open),
		newOverrideCmd(open),
		newPrefillCmd(open),
		newWatchCmd(open),
		newPropertiesCmd(open),
	)
	return rootCmd
}

// openApp loads configuration, opens the backend and restores the registry.
func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Engine, err)
	}

	id := cfg.Server.UUID
	if id == "" {
		if cfg.Storage.Engine == config.EngineMemory {
			id = uuid.NewString()
		} else if id, err = properties.InstallID(cfg.Storage.DataPath); err != nil {
			_ = backend.Close()
			return nil, err
		}
	}

	a := &app{
		cfg:     cfg,
		backend: backend,
		uuid:    id,
		info: properties.App{
			ID:           cfg.Server.AppID,
			Version:      cfg.Server.Version,
			Build:        cfg.Server.Build,
			Manufacturer: cfg.Server.Manufacturer,
		},
		env: properties.Detect(),
	}
	a.client = transport.NewClient(transport.Config{
		Timeout:           cfg.Transport.Timeout,
		RequestsPerSecond: cfg.Transport.RequestsPerSecond,
		Burst:             cfg.Transport.Burst,
		Breaker: transport.BreakerConfig{
			MaxFailures:          uint32(cfg.Transport.BreakerMaxFailures),
			Timeout:              cfg.Transport.BreakerTimeout,
			HalfOpenMaxSuccesses: 1,
		},
		App:         a.info,
		Environment: a.env,
	})
	a.sw = engine.New(
		engine.WithBackend(backend),
		engine.WithTransport(a.client),
		engine.WithAnalytics(analytics.Multi{analytics.Log{}, analytics.Metrics{}}),
		engine.WithServer(cfg.Server.URL, id),
	)

	if cfg.Debug.Enabled && !a.sw.IsDebugging() {
		if err := a.sw.SetDebugging(true); err != nil {
			_ = backend.Close()
			return nil, err
		}
	}
	a.sw.Restore(ctx)
	return a, nil
}

func (a *app) Close() error {
	return a.backend.Close()
}

// prefill opens the prefill catalog with entities bound to the registry.
func (a *app) prefill(ctx context.Context) *engine.PrefillController {
	c := cache.New(a.backend, cache.BucketPrefill, a.sw.EntityOptions()...)
	return engine.NewPrefillController(ctx, c)
}

// withApp wraps a command body with open and close.
func withApp(open opener, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// findFeature looks name up in the active then the inactive features.
func findFeature(sw *engine.Switchboard, name string) (*types.Feature, bool) {
	if f, ok := sw.Feature(name); ok {
		return f, true
	}
	return sw.InactiveFeature(name)
}

// findExperiment looks name up in the active then the inactive experiments.
func findExperiment(sw *engine.Switchboard, name string) (*types.Experiment, bool) {
	if e, ok := sw.Experiment(name); ok {
		return e, true
	}
	return sw.InactiveExperiment(name)
}

// parseUserData turns key=value pairs into request parameters.
func parseUserData(pairs []string) (types.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(types.Values, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --data %q: want key=value", pair)
		}
		values[key] = types.StringValue(value)
	}
	return values, nil
}
