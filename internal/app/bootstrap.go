package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"quote_dash/internal/domain"
	"quote_dash/internal/engine"
	"quote_dash/internal/infra"
	"quote_dash/internal/infra/feed"
	"quote_dash/internal/infra/storage"
	"quote_dash/internal/service"
	"quote_dash/internal/ui"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string
	Config     *infra.Config
	Storage    *storage.Storage // nil when storage is disabled
	Metrics    *infra.Metrics
	Tracker    *service.SymbolTracker
	SessionID  string
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{
		ConfigPath: configPath,
		Metrics:    &infra.Metrics{},
		SessionID:  uuid.NewString(),
	}
}

// Initialize loads config, installs the file logger and opens storage.
func (b *Bootstrap) Initialize() error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("session", b.SessionID))
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping quote dashboard...",
		slog.String("feed", cfg.Feed.URL),
		slog.Int("history", cfg.UI.HistorySize))

	// 3. Initialize Storage (DB)
	var repo domain.SymbolRepository
	if cfg.Storage.Enabled {
		store, err := storage.NewStorage(cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Storage = store
		repo = store
		slog.Info("✅ Database initialized")
	}

	b.Tracker = service.NewSymbolTracker(repo)
	return nil
}

// Run starts the feed and the dashboard and blocks until both have stopped.
func (b *Bootstrap) Run(ctx context.Context) error {
	cfg := b.Config
	session := &domain.Session{
		ID:        b.SessionID,
		Endpoint:  cfg.Feed.URL,
		StartedAt: time.Now(),
	}
	b.saveSession(session)

	inbox := engine.NewInbox(cfg.Pipeline.InboxSize)
	client := feed.NewClient(cfg, inbox,
		feed.WithMetrics(b.Metrics),
		feed.WithObserver(b.Tracker),
		feed.WithLogger(slog.Default()))
	dashboard := ui.NewDashboard(ui.NewModel(cfg, inbox, b.Metrics))

	err := NewPipeline(client, dashboard, inbox).Run(ctx)

	snap := b.Metrics.Snapshot()
	slog.Info("📊 Session metrics",
		slog.Uint64("ticks_received", snap.TicksReceived),
		slog.Uint64("ticks_rendered", snap.TicksRendered),
		slog.Uint64("parse_errors", snap.ParseErrors),
		slog.Uint64("frames_skipped", snap.FramesSkipped),
		slog.Uint64("backpressure_waits", snap.BackpressureWaits),
		slog.Uint64("reconnects", snap.Reconnects),
		slog.Int64("avg_latency_ns", snap.AvgLatencyNs))

	session.EndedAt = time.Now()
	session.Ticks = snap.TicksReceived
	session.ExitReason = exitReason(err)
	b.saveSession(session)

	if ferr := b.Tracker.Flush(); ferr != nil {
		slog.Warn("Failed to flush symbol counters", slog.Any("error", ferr))
	}
	return err
}

func (b *Bootstrap) saveSession(s *domain.Session) {
	if b.Storage == nil {
		return
	}
	if err := b.Storage.SaveSession(s); err != nil {
		slog.Warn("Failed to save session", slog.Any("error", err))
	}
}

// Close releases storage.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close database", slog.Any("error", err))
		}
	}
}

func exitReason(err error) string {
	switch {
	case err == nil:
		return "shutdown"
	case domain.IsUserInterrupt(err):
		return "user interrupt"
	}

	var ce *domain.ConnectionError
	var pe *domain.ProtocolError
	var te *domain.TerminalIOError
	switch {
	case errors.As(err, &ce):
		return "connection error"
	case errors.As(err, &pe):
		return "protocol error"
	case errors.As(err, &te):
		return "terminal error"
	default:
		return err.Error()
	}
}
