package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"quote_dash/internal/app"
	"quote_dash/internal/domain"
	"quote_dash/internal/infra"
)

func main() {
	configPath := flag.String("config", infra.DefaultConfigPath, "path to the YAML config")
	flag.Parse()

	os.Exit(run(*configPath))
}

// run returns the process exit code. The terminal is restored before it returns.
func run(configPath string) int {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap(configPath)
	if err := bootstrap.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "bootstrapping failed: %v\n", err)
		return 1
	}
	defer bootstrap.Close()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	// 3. Feed + Dashboard
	err := bootstrap.Run(ctx)
	if err == nil || domain.IsUserInterrupt(err) {
		slog.Info("👋 Dashboard closed")
		return 0
	}

	fmt.Fprintf(os.Stderr, "dashboard stopped: %v\n", err)
	return 1
}
