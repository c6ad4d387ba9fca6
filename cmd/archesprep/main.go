// Command archesprep cleans survey CSV exports for import into Arches.
//
//	archesprep run --config pipelines/sites.yaml
//	archesprep validate --config pipelines/sites.yaml
//	archesprep cards --schema "models/Heritage Place.json"
//	archesprep probe --input data/sites.csv > pipelines/sites.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
