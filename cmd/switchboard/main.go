// Command switchboard inspects and overrides the feature-flag and experiment
// state of a local Switchboard client.
package main

import (
	"context"
	"os"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
