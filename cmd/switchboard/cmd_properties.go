package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrypster/switchboard/internal/properties"
)

func newPropertiesCmd(open opener) *cobra.Command {
	var (
		data   []string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Print the request parameters sent with downloads",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringArrayVar(&data, "data", nil, "Extra request parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	cmd.RunE = withApp(open, func(cmd *cobra.Command, a *app, _ []string) error {
		userData, err := parseUserData(data)
		if err != nil {
			return err
		}
		params := properties.Parameters(a.uuid, a.cfg.Server.TrackingID, userData, a.info, a.env)

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSON(out, params)
		}
		for _, key := range params.Keys() {
			fmt.Fprintf(out, "%s=%v\n", key, params[key].Interface())
		}
		return nil
	})
	return cmd
}
