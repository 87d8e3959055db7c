package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quote_dash/internal/domain"
)

const writeTimeout = 5 * time.Second

// Server publishes Level 1 frames to every connected websocket client.
type Server struct {
	gen      *Generator
	interval time.Duration
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewServer creates a publisher emitting one quote from gen every interval.
func NewServer(gen *Generator, interval time.Duration) *Server {
	return &Server{
		gen:      gen,
		interval: interval,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Upgrade failed", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()
	slog.Info("🔌 Client connected", slog.String("remote", r.RemoteAddr), slog.Int("clients", s.Clients()))

	// Clients never send data; reading only detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.remove(conn)
	slog.Info("Client disconnected", slog.String("remote", r.RemoteAddr))
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Broadcast sends one tick to all clients. Clients that fail the write are dropped.
func (s *Server) Broadcast(t domain.Tick) error {
	msg, err := json.Marshal(domain.Envelope{Action: domain.ActionLevel1, Data: &t})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			slog.Warn("Dropping client", slog.Any("error", err))
			delete(s.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// CloseAll ends every session with a normal close frame.
func (s *Server) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed stopped")
	for conn := range s.clients {
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		delete(s.clients, conn)
	}
}

func (s *Server) remove(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, conn)
	conn.Close()
}

// Publish emits quotes until ctx ends, then closes every session cleanly.
func (s *Server) Publish(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case now := <-ticker.C:
			if err := s.Broadcast(s.gen.Next(now)); err != nil {
				slog.Error("Broadcast failed", slog.Any("error", err))
			}
		}
	}
}

// ListenAndServe serves websocket clients on addr and publishes until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Publish(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	slog.Info("📡 Feed simulator listening", slog.String("addr", addr))

	var err error
	select {
	case err = <-errCh:
		cancel()
	case <-ctx.Done():
		wg.Wait() // close frames go out before the listener stops
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		err = srv.Shutdown(shutdownCtx)
	}
	wg.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
