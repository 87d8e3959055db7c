package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"quote_dash/internal/domain"
	"quote_dash/internal/engine"
)

// Frontend is the consumer side of the pipeline: it runs until the user quits,
// the terminal fails, or it is told the feed is gone.
type Frontend interface {
	Run() error
	NotifyUpstream(err error)
}

// Pipeline joins the feed and the dashboard. Whichever finishes first stops the other.
type Pipeline struct {
	source   domain.TickSource
	frontend Frontend
	inbox    *engine.Inbox
}

// NewPipeline wires a tick source to a frontend through inbox.
func NewPipeline(source domain.TickSource, frontend Frontend, inbox *engine.Inbox) *Pipeline {
	return &Pipeline{source: source, frontend: frontend, inbox: inbox}
}

// Run blocks until the dashboard stops and the feed has been torn down.
// It returns ErrUserInterrupt after a deliberate quit, nil when the process was
// asked to shut down, and the first failure otherwise.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		feedErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		feedErr = p.source.Run(ctx)
		switch {
		case feedErr == nil:
			// Stream ended cleanly; the dashboard keeps showing the last window.
			slog.Info("🛑 Feed ended, dashboard stays open")
		default:
			p.frontend.NotifyUpstream(feedErr)
		}
	}()

	// Shutdown requested from outside (signal): stop the dashboard too.
	stopWatch := context.AfterFunc(ctx, func() {
		p.frontend.NotifyUpstream(context.Cause(ctx))
	})

	uiErr := p.frontend.Run()
	stopWatch()

	p.inbox.Close()
	cancel()
	wg.Wait()

	err := outcome(uiErr, feedErr)
	if err != nil && !domain.IsUserInterrupt(err) {
		slog.Error("❌ Dashboard stopped with error", slog.Any("error", err))
	}
	return err
}

// outcome picks the result of the join. The dashboard's outcome wins because it
// already carries the feed error that made it stop.
func outcome(uiErr, feedErr error) error {
	if isShutdown(uiErr) {
		return nil
	}
	if uiErr != nil {
		return uiErr
	}
	if isShutdown(feedErr) || errors.Is(feedErr, domain.ErrChannelClosed) {
		return nil
	}
	return feedErr
}

func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
