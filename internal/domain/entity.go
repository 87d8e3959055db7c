package domain

import (
	"time"
)

// SymbolInfo represents metadata for an instrument seen on the feed
type SymbolInfo struct {
	SymbolID    int64     `gorm:"primaryKey;autoIncrement:false" json:"tkr_id"`
	Symbol      string    `gorm:"index" json:"tkr"`
	TickCount   int64     `json:"tick_count"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Session represents one run of the dashboard
type Session struct {
	ID         string    `gorm:"primaryKey" json:"id"` // uuid
	Endpoint   string    `json:"endpoint"`
	StartedAt  time.Time `json:"started_at" gorm:"index"`
	EndedAt    time.Time `json:"ended_at"`
	Ticks      uint64    `json:"ticks"`
	ExitReason string    `json:"exit_reason"`
}
