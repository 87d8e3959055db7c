package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"quote_dash/internal/domain"
	"quote_dash/internal/engine"
	"quote_dash/internal/infra"
)

// stableSession is how long a connection must stay up before a drop gets a fresh retry budget.
const stableSession = 30 * time.Second

// Client reads the Level 1 stream from one websocket endpoint and hands ticks to the dashboard inbox.
type Client struct {
	url              string
	action           string
	handshakeTimeout time.Duration
	readTimeout      time.Duration

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	stableAfter time.Duration

	inbox    *engine.Inbox
	metrics  *infra.Metrics
	observer domain.TickObserver
	logger   *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithMetrics records feed counters into m.
func WithMetrics(m *infra.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithObserver reports every accepted tick to o before it is queued.
func WithObserver(o domain.TickObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger used for connection lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a feed client from the feed section of cfg.
func NewClient(cfg *infra.Config, inbox *engine.Inbox, opts ...Option) *Client {
	c := &Client{
		url:              cfg.Feed.URL,
		action:           cfg.Feed.Action,
		handshakeTimeout: cfg.HandshakeTimeout(),
		readTimeout:      cfg.ReadTimeout(),
		maxAttempts:      cfg.Feed.Reconnect.MaxAttempts,
		baseDelay:        time.Duration(cfg.Feed.Reconnect.BaseDelayMS) * time.Millisecond,
		maxDelay:         time.Duration(cfg.Feed.Reconnect.MaxDelayMS) * time.Millisecond,
		stableAfter:      stableSession,
		inbox:            inbox,
		metrics:          &infra.Metrics{},
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run streams until the server closes the connection, a failure occurs, or ctx ends.
// A clean close returns nil. With reconnect disabled (the default) the first
// connection failure is returned as is. Otherwise up to maxAttempts reconnects are
// made in a row; only a session that stayed up for stableAfter resets the count, so a
// server that accepts and then drops every connection still exhausts the budget.
func (c *Client) Run(ctx context.Context) error {
	retryCount := 0
	for {
		uptime, err := c.stream(ctx)
		if err == nil || ctx.Err() != nil {
			return err
		}
		if !domain.IsRetriable(err) || c.maxAttempts == 0 {
			return err
		}

		if uptime >= c.stableAfter {
			retryCount = 0
		}
		if retryCount >= c.maxAttempts {
			c.logger.Error("❌ Feed reconnect attempts exhausted",
				slog.Int("attempts", retryCount),
				slog.Any("error", err))
			return err
		}

		delay := infra.CalculateBackoff(retryCount, c.baseDelay, c.maxDelay)
		retryCount++
		c.metrics.RecordReconnect()
		c.logger.Warn("Feed connection lost, reconnecting",
			slog.Any("error", err),
			slog.Int("retry", retryCount),
			slog.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// stream runs one connection. uptime is the time since the handshake, zero if dial failed.
func (c *Client) stream(ctx context.Context) (uptime time.Duration, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, domain.NewConnectionError("dial", c.url, err)
	}
	defer conn.Close()

	connectedAt := time.Now()
	c.metrics.IncrementConnections()
	defer c.metrics.DecrementConnections()
	c.logger.Info("🔌 Feed connected", slog.String("url", c.url))

	// ReadMessage does not watch ctx; closing the conn unblocks it.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		if c.readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(c.readTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return time.Since(connectedAt), ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Info("🛑 Feed closed by server", slog.String("url", c.url))
				return time.Since(connectedAt), nil
			}
			return time.Since(connectedAt), domain.NewConnectionError("read", c.url, err)
		}
		received := time.Now()

		tick, skip, err := ParseEnvelope(msg, c.action)
		if err != nil {
			c.metrics.RecordParseError()
			return time.Since(connectedAt), err
		}
		if skip {
			c.metrics.RecordSkipped()
			c.logger.Debug("Skipping frame", slog.Int("bytes", len(msg)))
			continue
		}

		if c.observer != nil {
			c.observer.Observe(tick)
		}
		if c.inbox.Full() {
			c.metrics.RecordBackpressure()
		}
		if err := c.inbox.Send(ctx, tick); err != nil {
			return time.Since(connectedAt), err
		}
		c.metrics.RecordTick(time.Since(received).Nanoseconds())
	}
}
