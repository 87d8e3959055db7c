package engine

import (
	"context"
	"sync"

	"quote_dash/internal/domain"
)

// Inbox is the bounded hand-off between the feed goroutine (single producer)
// and the dashboard goroutine (single consumer).
type Inbox struct {
	ch   chan domain.Tick
	done chan struct{}
	once sync.Once
}

// NewInbox creates an inbox holding at most size pending ticks.
func NewInbox(size int) *Inbox {
	if size < 1 {
		size = 1
	}
	return &Inbox{
		ch:   make(chan domain.Tick, size),
		done: make(chan struct{}),
	}
}

// Send blocks until the tick is queued, the receiver is closed, or ctx ends.
// A full inbox suspends the caller; ticks are never dropped.
func (in *Inbox) Send(ctx context.Context, t domain.Tick) error {
	// Receiver gone wins over free capacity.
	select {
	case <-in.done:
		return domain.ErrChannelClosed
	default:
	}

	select {
	case in.ch <- t:
		return nil
	case <-in.done:
		return domain.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryRecv takes one pending tick without blocking.
func (in *Inbox) TryRecv() (domain.Tick, bool) {
	select {
	case t := <-in.ch:
		return t, true
	default:
		return domain.Tick{}, false
	}
}

// Close marks the receiver as gone. Pending and future Sends fail with ErrChannelClosed.
// Safe to call more than once.
func (in *Inbox) Close() {
	in.once.Do(func() { close(in.done) })
}

// Closed reports whether Close has been called.
func (in *Inbox) Closed() bool {
	select {
	case <-in.done:
		return true
	default:
		return false
	}
}

// Len returns the number of queued ticks.
func (in *Inbox) Len() int {
	return len(in.ch)
}

// Cap returns the inbox capacity.
func (in *Inbox) Cap() int {
	return cap(in.ch)
}

// Full reports whether the next Send would have to wait.
func (in *Inbox) Full() bool {
	return len(in.ch) == cap(in.ch)
}
