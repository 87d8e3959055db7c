package history

import (
	"iter"

	"quote_dash/internal/domain"
)

// Ring is a fixed-capacity circular buffer of ticks with overwrite-oldest semantics.
// It is not safe for concurrent use; the dashboard goroutine is its only reader and writer.
type Ring struct {
	slots    []domain.Tick
	cursor   int // Next slot to write
	current  int // Slot holding the most recent tick
	inserted uint64
}

// NewRing creates a ring of the given capacity pre-filled with the empty tick.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		panic("history.NewRing: capacity must be positive")
	}
	slots := make([]domain.Tick, capacity)
	for i := range slots {
		slots[i] = domain.EmptyTick()
	}
	return &Ring{
		slots:   slots,
		cursor:  0,
		current: capacity - 1, // Slot just before the cursor
	}
}

// Cap returns the fixed number of slots.
func (r *Ring) Cap() int {
	return len(r.slots)
}

// Inserted returns the total number of ticks ever inserted.
func (r *Ring) Inserted() uint64 {
	return r.inserted
}

// Insert writes t into the next slot, evicting the oldest tick when full.
func (r *Ring) Insert(t domain.Tick) {
	r.slots[r.cursor] = t
	r.current = r.cursor
	r.cursor = (r.cursor + 1) % len(r.slots)
	r.inserted++
}

// Current returns the most recently inserted tick.
func (r *Ring) Current() domain.Tick {
	return r.slots[r.current]
}

// CurrentIndex returns the slot holding the most recent tick.
func (r *Ring) CurrentIndex() int {
	return r.current
}

// At returns the tick stored in slot i.
func (r *Ring) At(i int) domain.Tick {
	return r.slots[i]
}

// PreviousIndex returns the slot holding the tick inserted just before slot i.
func (r *Ring) PreviousIndex(i int) int {
	return r.Back(i, 1)
}

// Back returns the slot k steps older than slot i.
// k is reduced modulo the capacity first so i-k never drops below -C.
func (r *Ring) Back(i, k int) int {
	c := len(r.slots)
	return (i - k%c + c) % c
}

// OrderedView yields (tick, prior) pairs newest first. It yields Cap()-1 pairs:
// the oldest slot has nothing to compare against. Each call starts a fresh walk.
func (r *Ring) OrderedView() iter.Seq2[domain.Tick, domain.Tick] {
	return func(yield func(domain.Tick, domain.Tick) bool) {
		i := r.current
		for range len(r.slots) - 1 {
			prior := r.PreviousIndex(i)
			if !yield(r.slots[i], r.slots[prior]) {
				return
			}
			i = prior
		}
	}
}
