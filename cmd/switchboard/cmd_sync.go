package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/internal/engine"
	"github.com/scrypster/switchboard/internal/notify"
)

func newFetchCmd(open opener) *cobra.Command {
	var (
		trackingID string
		data       []string
		trace      bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the configuration and apply it",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&trackingID, "tracking-id", "", "Tracking identifier sent with the request")
	cmd.Flags().StringArrayVar(&data, "data", nil, "Extra request parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print an ingestion report")

	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, _ []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if a.sw.IsDebugging() {
			fmt.Fprintln(out, "debugging: local overrides win, download skipped")
			return nil
		}
		userData, err := parseUserData(data)
		if err != nil {
			return err
		}
		if trackingID == "" {
			trackingID = a.cfg.Server.TrackingID
		}

		if !trace {
			if err := a.sw.Download(ctx, a.uuid, trackingID, userData); err != nil {
				return err
			}
			printCounts(out, a.sw.Counts())
			return nil
		}

		report, err := a.sw.DownloadWithTrace(ctx, a.uuid, trackingID, userData)
		if err != nil {
			return err
		}
		return writeJSON(out, report)
	})
	return cmd
}

func newApplyCmd(open opener) *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "apply <file|->",
		Short: "Apply a configuration payload from a file or stdin",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "Print an ingestion report")

	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if a.sw.IsDebugging() {
			fmt.Fprintln(out, "debugging: local overrides win, payload ignored")
		}

		report, err := a.sw.ApplyJSONWithTrace(cmd.Context(), data, engine.SourceManual)
		if err != nil {
			return err
		}
		if trace {
			return writeJSON(out, report)
		}
		printCounts(out, a.sw.Counts())
		return nil
	})
	return cmd
}

// newPublishCmd hands a payload to a running "watch" through the data path.
func newPublishCmd(open opener) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "publish <file|->",
		Short: "Drop a payload where a running watch will apply it",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&label, "label", "manual", "Label embedded in the payload file name")

	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		if _, err := engine.ParsePayload(data); err != nil {
			return err
		}
		path, err := notify.NewPayloadWriter(a.cfg.Storage.DataPath).Write(label, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", path)
		return nil
	})
	return cmd
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}
