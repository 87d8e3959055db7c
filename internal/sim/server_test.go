package sim

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quote_dash/internal/domain"
	"quote_dash/internal/engine"
	"quote_dash/internal/infra"
	"quote_dash/internal/infra/feed"
)

func waitForClients(t *testing.T, s *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, have %d", n, s.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_BroadcastFrame(t *testing.T) {
	s := NewServer(NewGenerator("BTCCAD", 1, 100, 0.5, 7), time.Hour)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	waitForClients(t, s, 1)

	want := domain.Tick{TimestampMS: 1, SymbolID: 1, Symbol: "BTCCAD", BestBid: 99.5, BestAsk: 100.5, LastTradePrice: 100}
	if err := s.Broadcast(want); err != nil {
		t.Fatalf("Broadcast failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	var env domain.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("Bad frame %s: %v", msg, err)
	}
	if env.Action != domain.ActionLevel1 || env.Data == nil || *env.Data != want {
		t.Errorf("Unexpected frame: %s", msg)
	}
}

func TestServer_FeedsDashboardClient(t *testing.T) {
	s := NewServer(NewGenerator("BTCCAD", 1, 100, 0.5, 7), time.Hour)
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	cfg := infra.DefaultConfig()
	cfg.Feed.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	inbox := engine.NewInbox(5)
	client := feed.NewClient(cfg, inbox)

	done := make(chan error, 1)
	go func() { done <- client.Run(context.Background()) }()
	waitForClients(t, s, 1)

	gen := NewGenerator("BTCCAD", 1, 100, 0.5, 7)
	now := time.Now()
	for i := 0; i < 3; i++ {
		s.Broadcast(gen.Next(now.Add(time.Duration(i) * time.Second)))
	}
	s.CloseAll()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected clean end of stream, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Client did not see the close")
	}
	if inbox.Len() != 3 {
		t.Errorf("Expected 3 ticks, got %d", inbox.Len())
	}
}

func TestServer_PublishStopsOnCancel(t *testing.T) {
	s := NewServer(NewGenerator("BTCCAD", 1, 100, 0.5, 7), 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Publish(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish did not stop")
	}
}
