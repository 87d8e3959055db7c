package domain

import (
	"context"
)

// TickSource is the producer side of the pipeline: it runs until the stream ends or fails.
type TickSource interface {
	Run(ctx context.Context) error
}

// TickObserver is notified of every tick accepted from the feed.
type TickObserver interface {
	Observe(t Tick)
}

// SymbolRepository persists instrument metadata and session records.
type SymbolRepository interface {
	UpsertSymbol(info *SymbolInfo) error
	GetSymbol(symbolID int64) (*SymbolInfo, error)
	SaveSession(s *Session) error
}
