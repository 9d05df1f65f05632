// Command walleetctl administers a walleet data directory from the shell:
// PIN setup, ledger inspection and offline queue maintenance.
package main

import (
	"context"
	"fmt"
	"os"

	"walleet/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	ctx, stop := cli.SignalContext()
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
