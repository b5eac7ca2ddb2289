package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// maxArrivals bounds the arrival history kept by a TruckTracker.
const maxArrivals = 50

// removalMemory is how long a removed truck keeps rejecting older frames
// that arrive late.
const removalMemory = time.Minute

// TruckTracker keeps the last frame seen for every truck and a short
// history of follow-mode arrivals.
type TruckTracker struct {
	staleAfter time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	frames   map[string]domain.TruckFrame
	removed  map[string]time.Time
	arrivals []domain.TruckArrival
}

// NewTruckTracker creates a tracker. Trucks not heard from within
// staleAfter are left out of listings; zero keeps them forever.
func NewTruckTracker(staleAfter time.Duration) *TruckTracker {
	return &TruckTracker{
		staleAfter: staleAfter,
		now:        time.Now,
		frames:     make(map[string]domain.TruckFrame),
		removed:    make(map[string]time.Time),
	}
}

// Observe records f. A removal frame drops the truck. It has the signature
// of a frame subscription handler.
func (t *TruckTracker) Observe(_ context.Context, f *domain.TruckFrame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.frames[f.TruckID]; ok && prev.Time.After(f.Time) {
		return nil
	}
	if at, ok := t.removed[f.TruckID]; ok && !f.Time.After(at) {
		return nil
	}

	if f.Removed {
		delete(t.frames, f.TruckID)
		t.removed[f.TruckID] = f.Time
		t.pruneRemoved(f.Time)
		return nil
	}
	delete(t.removed, f.TruckID)
	t.frames[f.TruckID] = *f
	return nil
}

func (t *TruckTracker) pruneRemoved(now time.Time) {
	for id, at := range t.removed {
		if now.Sub(at) > removalMemory {
			delete(t.removed, id)
		}
	}
}

// Trucks returns the freshest frame per truck ordered by truck ID,
// optionally filtered by mode.
func (t *TruckTracker) Trucks(mode string) []domain.TruckFrame {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	out := make([]domain.TruckFrame, 0, len(t.frames))
	for _, f := range t.frames {
		if mode != "" && f.Mode != mode {
			continue
		}
		if t.staleAfter > 0 && now.Sub(f.Time) > t.staleAfter {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TruckID < out[j].TruckID })
	return out
}

// Truck returns the last frame for id.
func (t *TruckTracker) Truck(id string) (domain.TruckFrame, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.frames[id]
	return f, ok
}

// ObserveArrival records a follow-mode arrival, newest first. A redelivered
// arrival for the same truck and time is ignored.
func (t *TruckTracker) ObserveArrival(_ context.Context, a *domain.TruckArrival) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, prev := range t.arrivals {
		if prev.TruckID == a.TruckID && prev.Time.Equal(a.Time) {
			return nil
		}
	}
	t.arrivals = append([]domain.TruckArrival{*a}, t.arrivals...)
	if len(t.arrivals) > maxArrivals {
		t.arrivals = t.arrivals[:maxArrivals]
	}
	return nil
}

// Arrivals returns up to limit recent arrivals, newest first.
func (t *TruckTracker) Arrivals(limit int) []domain.TruckArrival {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if limit <= 0 || limit > len(t.arrivals) {
		limit = len(t.arrivals)
	}
	out := make([]domain.TruckArrival, limit)
	copy(out, t.arrivals[:limit])
	return out
}
