package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quote_dash/internal/domain"
	"quote_dash/internal/engine"
	"quote_dash/internal/infra"
)

const lvl1Frame = `{"action":"lvl1","data":{"timestamp_ms":1,"tkr_id":1,"tkr":"BTCCAD","best_bid":10,"best_ask":11,"last_trade_price":10.5,"last_trade_qty":1,"last_trade_time":1}}`

var upgrader = websocket.Upgrader{}

// newFeedServer starts a websocket server that writes frames and then either closes
// cleanly or drops the TCP connection.
func newFeedServer(t *testing.T, frames []string, cleanClose bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if !cleanClose {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		// Wait for the client's close reply so buffered frames are not cut off.
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testConfig(url string) *infra.Config {
	cfg := infra.DefaultConfig()
	cfg.Feed.URL = url
	cfg.Feed.HandshakeTimeoutMS = 2_000
	return cfg
}

type recordingObserver struct {
	mu    sync.Mutex
	ticks []domain.Tick
}

func (o *recordingObserver) Observe(t domain.Tick) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ticks = append(o.ticks, t)
}

func TestClient_StreamsUntilCleanClose(t *testing.T) {
	frames := []string{lvl1Frame, `{"action":"status","data":null}`, lvl1Frame}
	srv := newFeedServer(t, frames, true)

	inbox := engine.NewInbox(5)
	metrics := &infra.Metrics{}
	obs := &recordingObserver{}
	client := NewClient(testConfig(wsURL(srv)), inbox, WithMetrics(metrics), WithObserver(obs))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		t.Fatalf("Expected clean end of stream, got %v", err)
	}

	if inbox.Len() != 2 {
		t.Errorf("Expected 2 queued ticks, got %d", inbox.Len())
	}
	tick, ok := inbox.TryRecv()
	if !ok || tick.Symbol != "BTCCAD" || tick.LastTradePrice != 10.5 {
		t.Errorf("Unexpected tick: %+v", tick)
	}

	snap := metrics.Snapshot()
	if snap.TicksReceived != 2 {
		t.Errorf("Expected 2 ticks received, got %d", snap.TicksReceived)
	}
	if snap.FramesSkipped != 1 {
		t.Errorf("Expected 1 skipped frame, got %d", snap.FramesSkipped)
	}
	if snap.ActiveConnections != 0 {
		t.Errorf("Expected connection released, got %d", snap.ActiveConnections)
	}
	if len(obs.ticks) != 2 {
		t.Errorf("Expected observer to see 2 ticks, got %d", len(obs.ticks))
	}
}

func TestClient_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	client := NewClient(testConfig(url), engine.NewInbox(1))
	err := client.Run(context.Background())

	var ce *domain.ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConnectionError, got %v", err)
	}
	if ce.Op != "dial" {
		t.Errorf("Expected dial op, got %q", ce.Op)
	}
	if !domain.IsRetriable(err) {
		t.Error("Connection errors should be retriable")
	}
}

func TestClient_MalformedFrame(t *testing.T) {
	srv := newFeedServer(t, []string{lvl1Frame, `not json`}, true)

	inbox := engine.NewInbox(5)
	metrics := &infra.Metrics{}
	client := NewClient(testConfig(wsURL(srv)), inbox, WithMetrics(metrics))

	err := client.Run(context.Background())
	var pe *domain.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProtocolError, got %v", err)
	}
	if inbox.Len() != 1 {
		t.Errorf("Frames before the bad one should be delivered, got %d", inbox.Len())
	}
	if metrics.Snapshot().ParseErrors != 1 {
		t.Errorf("Expected 1 parse error, got %d", metrics.Snapshot().ParseErrors)
	}
}

func TestClient_ReceiverClosed(t *testing.T) {
	srv := newFeedServer(t, []string{lvl1Frame, lvl1Frame, lvl1Frame}, true)

	inbox := engine.NewInbox(1)
	inbox.Close()
	client := NewClient(testConfig(wsURL(srv)), inbox)

	err := client.Run(context.Background())
	if !errors.Is(err, domain.ErrChannelClosed) {
		t.Fatalf("Expected ErrChannelClosed, got %v", err)
	}
}

func TestClient_DroppedConnectionFailsFastByDefault(t *testing.T) {
	srv := newFeedServer(t, []string{lvl1Frame}, false)

	client := NewClient(testConfig(wsURL(srv)), engine.NewInbox(5))
	err := client.Run(context.Background())

	var ce *domain.ConnectionError
	if !errors.As(err, &ce) || ce.Op != "read" {
		t.Fatalf("Expected read ConnectionError, got %v", err)
	}
}

func TestClient_Reconnect(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(lvl1Frame))
		if conns.Add(1) == 1 {
			return // drop the first session
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(wsURL(srv))
	cfg.Feed.Reconnect.MaxAttempts = 2
	cfg.Feed.Reconnect.BaseDelayMS = 10
	cfg.Feed.Reconnect.MaxDelayMS = 50

	inbox := engine.NewInbox(5)
	metrics := &infra.Metrics{}
	client := NewClient(cfg, inbox, WithMetrics(metrics))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Run(ctx); err != nil {
		t.Fatalf("Expected clean end after reconnect, got %v", err)
	}

	if got := metrics.Snapshot().Reconnects; got != 1 {
		t.Errorf("Expected 1 reconnect, got %d", got)
	}
	if inbox.Len() != 2 {
		t.Errorf("Expected one tick per session, got %d", inbox.Len())
	}
}

func TestClient_ContextCancel(t *testing.T) {
	// Server that never writes and never closes.
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	client := NewClient(testConfig(wsURL(srv)), engine.NewInbox(1))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// newFlappingServer accepts every connection, writes one frame and drops it until
// closeAfter sessions have been served; later sessions close cleanly. closeAfter 0 never closes.
func newFlappingServer(t *testing.T, closeAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(lvl1Frame))
		if n := conns.Add(1); closeAfter == 0 || n <= closeAfter {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func TestClient_FlappingServerExhaustsRetries(t *testing.T) {
	srv, conns := newFlappingServer(t, 0)

	cfg := testConfig(wsURL(srv))
	cfg.Feed.Reconnect.MaxAttempts = 2
	cfg.Feed.Reconnect.BaseDelayMS = 10
	cfg.Feed.Reconnect.MaxDelayMS = 50

	metrics := &infra.Metrics{}
	client := NewClient(cfg, engine.NewInbox(10), WithMetrics(metrics))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := client.Run(ctx)

	var ce *domain.ConnectionError
	if !errors.As(err, &ce) || ce.Op != "read" {
		t.Fatalf("Expected read ConnectionError, got %v", err)
	}
	if got := metrics.Snapshot().Reconnects; got != 2 {
		t.Errorf("Expected 2 reconnects, got %d", got)
	}
	if got := conns.Load(); got != 3 {
		t.Errorf("Expected 3 connections, got %d", got)
	}
}

func TestClient_StableSessionResetsRetries(t *testing.T) {
	srv, _ := newFlappingServer(t, 3)

	cfg := testConfig(wsURL(srv))
	cfg.Feed.Reconnect.MaxAttempts = 1
	cfg.Feed.Reconnect.BaseDelayMS = 10
	cfg.Feed.Reconnect.MaxDelayMS = 50

	metrics := &infra.Metrics{}
	client := NewClient(cfg, engine.NewInbox(10), WithMetrics(metrics))
	client.stableAfter = 0

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Run(ctx); err != nil {
		t.Fatalf("Expected clean end, got %v", err)
	}
	if got := metrics.Snapshot().Reconnects; got != 3 {
		t.Errorf("Expected 3 reconnects, got %d", got)
	}
}

func TestClient_ReadTimeout(t *testing.T) {
	// Server that upgrades and then stays silent.
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	cfg := testConfig(wsURL(srv))
	cfg.Feed.ReadTimeoutMS = 100
	client := NewClient(cfg, engine.NewInbox(1))

	done := make(chan error, 1)
	start := time.Now()
	go func() { done <- client.Run(context.Background()) }()

	select {
	case err := <-done:
		var ce *domain.ConnectionError
		if !errors.As(err, &ce) || ce.Op != "read" {
			t.Fatalf("Expected read ConnectionError, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("Read timeout took %v", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not time out on a silent server")
	}
}
