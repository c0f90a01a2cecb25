package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/scrypster/switchboard/internal/engine"
	"github.com/scrypster/switchboard/pkg/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCounts(w io.Writer, c engine.SetCounts) {
	fmt.Fprintf(w, "features: %d active, %d inactive\n", c.Features, c.InactiveFeatures)
	fmt.Fprintf(w, "experiments: %d active, %d inactive\n", c.Experiments, c.InactiveExperiments)
}

func formatValues(values types.Values) string {
	if len(values) == 0 {
		return "{}"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "?"
	}
	return string(data)
}

func printFeatures(w io.Writer, active, inactive []*types.Feature) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tACTIVE\tVALUES")
	for _, f := range active {
		fmt.Fprintf(tw, "%s\tyes\t%s\n", f.Name(), formatValues(f.Values()))
	}
	for _, f := range inactive {
		fmt.Fprintf(tw, "%s\tno\t%s\n", f.Name(), formatValues(f.Values()))
	}
	_ = tw.Flush()
}

func printExperiments(w io.Writer, active, inactive []*types.Experiment) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EXPERIMENT\tACTIVE\tCOHORT\tSTATE\tCOHORTS")
	row := func(e *types.Experiment, active string) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Name(), active, e.Cohort(), e.State(), strings.Join(e.AvailableCohorts(), ","))
	}
	for _, e := range active {
		row(e, "yes")
	}
	for _, e := range inactive {
		row(e, "no")
	}
	_ = tw.Flush()
}
