// Command stockalerts checks a watchlist against a price source and sends
// Telegram alerts for crossed thresholds.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stock-alerts/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
