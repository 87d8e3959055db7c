package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote_dash/internal/infra"
	"quote_dash/internal/sim"
)

func main() {
	configPath := flag.String("config", infra.DefaultConfigPath, "path to the YAML config")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.Logging.File = "feedsim.log"
	slog.SetDefault(infra.NewConsoleLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed := uint64(cfg.Sim.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	gen := sim.NewGenerator(cfg.Sim.Symbol, cfg.Sim.SymbolID, cfg.Sim.StartPrice, cfg.Sim.TickSize, seed)
	server := sim.NewServer(gen, time.Duration(cfg.Sim.IntervalMS)*time.Millisecond)

	slog.Info("🚀 Starting feed simulator",
		slog.String("symbol", cfg.Sim.Symbol),
		slog.Int("interval_ms", cfg.Sim.IntervalMS),
		slog.Uint64("seed", seed))

	if err := server.ListenAndServe(ctx, cfg.Sim.Addr); err != nil {
		slog.Error("❌ Feed simulator failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("👋 Feed simulator stopped")
}
