package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/waabox/stagerun/internal/cmd"
	"github.com/waabox/stagerun/internal/exitcode"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cmd.ExecuteContext(ctx, version)
	interrupted := ctx.Err() != nil
	stop()

	switch {
	case err == nil:
		exitcode.Exit(exitcode.Success)
	case interrupted:
		fmt.Fprintf(os.Stderr, "\nrun interrupted: %v\n", err)
		exitcode.Exit(exitcode.Interrupted)
	default:
		code := exitcode.DetermineExitCode(err)
		fmt.Fprintf(os.Stderr, "error: %v\n%s (exit %d)\n", err, exitcode.Description(code), code)
		exitcode.Exit(code)
	}
}
