package service

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"quote_dash/internal/domain"
)

// SymbolTracker keeps per-symbol counters for the feed and persists them.
// Observe runs on the feed goroutine; the repository is only touched when a
// symbol is first seen and on Flush.
type SymbolTracker struct {
	mu      sync.Mutex
	repo    domain.SymbolRepository
	symbols map[int64]*domain.SymbolInfo
	now     func() time.Time
}

var _ domain.TickObserver = (*SymbolTracker)(nil)

// NewSymbolTracker creates a tracker. repo may be nil when storage is disabled.
func NewSymbolTracker(repo domain.SymbolRepository) *SymbolTracker {
	return &SymbolTracker{
		repo:    repo,
		symbols: make(map[int64]*domain.SymbolInfo),
		now:     time.Now,
	}
}

// Observe counts one tick against its symbol.
func (s *SymbolTracker) Observe(t domain.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	info, exists := s.symbols[t.SymbolID]
	if !exists {
		info = s.load(t.SymbolID)
		if info == nil {
			info = &domain.SymbolInfo{SymbolID: t.SymbolID, FirstSeenAt: now}
		}
		s.symbols[t.SymbolID] = info
	}

	info.Symbol = t.Symbol
	info.TickCount++
	info.LastSeenAt = now

	if !exists && s.repo != nil {
		if err := s.repo.UpsertSymbol(info); err != nil {
			slog.Warn("Failed to store symbol", slog.Int64("tkr_id", t.SymbolID), slog.Any("error", err))
		}
	}
}

// load returns the stored record for id, or nil. Must be called with lock held.
func (s *SymbolTracker) load(id int64) *domain.SymbolInfo {
	if s.repo == nil {
		return nil
	}
	info, err := s.repo.GetSymbol(id)
	if err != nil {
		slog.Warn("Failed to load symbol", slog.Int64("tkr_id", id), slog.Any("error", err))
		return nil
	}
	return info
}

// Symbols returns a copy of the tracked symbols sorted by id.
func (s *SymbolTracker) Symbols() []domain.SymbolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.SymbolInfo, 0, len(s.symbols))
	for _, info := range s.symbols {
		result = append(result, *info)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SymbolID < result[j].SymbolID
	})
	return result
}

// Flush writes the current counters of every tracked symbol.
func (s *SymbolTracker) Flush() error {
	if s.repo == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, info := range s.symbols {
		if err := s.repo.UpsertSymbol(info); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
