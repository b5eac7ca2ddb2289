// Package animation moves map markers along straight legs in wall-clock time.
//
// An Engine is owned by a single goroutine. It never blocks: each Frame call
// advances every active leg, writes positions to the Surface and then fires
// completion callbacks and due timers. Use a Runner to drive an Engine from a
// ticker and to call into it from other goroutines.
package animation

import (
	"sort"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
)

// Clock supplies wall-clock time to the engine.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Surface receives marker updates for rendering. It only ever gets writes.
type Surface interface {
	MoveMarker(id string, pos domain.GeoPoint, progress float64)
	LabelMarker(id string, label string)
	// RemoveMarker clears the marker from the rendering.
	RemoveMarker(id string)
}

// TimerID identifies a deferred callback.
type TimerID uint64

// session is one leg in progress.
type session struct {
	start      domain.GeoPoint
	end        domain.GeoPoint
	startedAt  time.Time
	duration   time.Duration
	progress   float64
	onComplete func()
}

// Marker is one animated actor. Its state is only mutated by the Engine that
// created it.
type Marker struct {
	id       string
	position domain.GeoPoint
	legs     int
	active   *session
	// gen changes whenever a running leg is replaced, on Stop and on removal,
	// so that a completion queued for an older leg can be recognised as
	// stale. A leg that already reached its end is not stale.
	gen uint64
}

// ID returns the marker identifier.
func (m *Marker) ID() string { return m.id }

// Position returns the last position written for the marker.
func (m *Marker) Position() domain.GeoPoint { return m.position }

// LegsCompleted counts legs that reached their destination.
func (m *Marker) LegsCompleted() int { return m.legs }

// Moving reports whether a leg is in progress.
func (m *Marker) Moving() bool { return m.active != nil }

// Progress returns the fraction of the current leg, or 0 when idle.
func (m *Marker) Progress() float64 {
	if m.active == nil {
		return 0
	}
	return m.active.progress
}

type timer struct {
	id  TimerID
	due time.Time
	fn  func()
}

type completion struct {
	marker *Marker
	gen    uint64
	fn     func()
}

// Engine animates markers. It is not safe for concurrent use.
type Engine struct {
	clock   Clock
	surface Surface

	markers map[string]*Marker
	order   []string

	timers    map[TimerID]*timer
	nextTimer TimerID
}

// NewEngine creates an Engine. A nil clock means SystemClock; a nil surface
// discards updates.
func NewEngine(clock Clock, surface Surface) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	if surface == nil {
		surface = discardSurface{}
	}
	return &Engine{
		clock:   clock,
		surface: surface,
		markers: make(map[string]*Marker),
		timers:  make(map[TimerID]*timer),
	}
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// AddMarker registers a marker at start. An existing marker with the same ID
// is replaced and its pending work cancelled.
func (e *Engine) AddMarker(id string, start domain.GeoPoint) *Marker {
	if old, ok := e.markers[id]; ok {
		old.active = nil
		old.gen++
	} else {
		e.order = append(e.order, id)
	}
	m := &Marker{id: id, position: start}
	e.markers[id] = m
	e.surface.MoveMarker(id, start, 0)
	return m
}

// Marker returns the marker with the given ID.
func (e *Engine) Marker(id string) (*Marker, bool) {
	m, ok := e.markers[id]
	return m, ok
}

// Markers returns all markers in creation order.
func (e *Engine) Markers() []*Marker {
	out := make([]*Marker, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.markers[id])
	}
	return out
}

// RemoveMarker cancels the marker's leg, forgets it and clears it from the
// surface.
func (e *Engine) RemoveMarker(id string) {
	m, ok := e.markers[id]
	if !ok {
		return
	}
	m.active = nil
	m.gen++
	delete(e.markers, id)
	for i, v := range e.order {
		if v == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.surface.RemoveMarker(id)
}

// Reset removes every marker and cancels every timer.
func (e *Engine) Reset() {
	for _, id := range append([]string(nil), e.order...) {
		e.RemoveMarker(id)
	}
	for id := range e.timers {
		delete(e.timers, id)
	}
}

// StartLeg moves the marker linearly from its current position to dest over
// duration. Any leg already running for the marker is cancelled without its
// callback. A leg that finished earlier in the current Frame call is not
// running: its callback still fires even if another callback starts a new
// leg first. onComplete, if not nil, runs exactly once after the marker has
// been placed exactly on dest. The first movement happens on the next Frame;
// a zero-length leg or non-positive duration completes on that frame.
// StartLeg returns false when the marker is unknown.
func (e *Engine) StartLeg(id string, dest domain.GeoPoint, duration time.Duration, onComplete func()) bool {
	m, ok := e.markers[id]
	if !ok {
		return false
	}
	if m.active != nil {
		m.gen++
	}
	m.active = &session{
		start:      m.position,
		end:        dest,
		startedAt:  e.clock.Now(),
		duration:   duration,
		onComplete: onComplete,
	}
	return true
}

// Stop cancels the marker's leg. The marker stays where the last frame put
// it and the leg's callback never runs, even if its final frame was already
// rendered earlier in the current Frame call. Unlike StartLeg, Stop always
// drops a queued completion.
func (e *Engine) Stop(id string) {
	m, ok := e.markers[id]
	if !ok {
		return
	}
	m.active = nil
	m.gen++
}

// Label forwards a content update for the marker to the surface.
func (e *Engine) Label(id, label string) {
	if _, ok := e.markers[id]; !ok {
		return
	}
	e.surface.LabelMarker(id, label)
}

// After schedules fn to run on the first Frame at or after now+delay.
func (e *Engine) After(delay time.Duration, fn func()) TimerID {
	e.nextTimer++
	id := e.nextTimer
	e.timers[id] = &timer{id: id, due: e.clock.Now().Add(delay), fn: fn}
	return id
}

// CancelTimer drops a pending timer. Cancelling a fired or unknown timer is a
// no-op.
func (e *Engine) CancelTimer(id TimerID) {
	delete(e.timers, id)
}

// PendingTimers returns the number of timers not yet fired.
func (e *Engine) PendingTimers() int { return len(e.timers) }

// ActiveLegs returns the number of markers currently moving.
func (e *Engine) ActiveLegs() int {
	n := 0
	for _, m := range e.markers {
		if m.active != nil {
			n++
		}
	}
	return n
}

// Frame advances the animation to now. Positions for every active leg are
// written first, then completion callbacks run, then due timers fire.
func (e *Engine) Frame(now time.Time) {
	var done []completion
	for _, id := range e.order {
		m := e.markers[id]
		s := m.active
		if s == nil {
			continue
		}

		t := 1.0
		if s.duration > 0 {
			t = float64(now.Sub(s.startedAt)) / float64(s.duration)
			if t > 1 {
				t = 1
			}
		}
		if t < s.progress {
			t = s.progress
		}
		s.progress = t

		if t >= 1 {
			m.position = s.end
		} else {
			m.position = s.start.Lerp(s.end, t)
		}
		e.surface.MoveMarker(id, m.position, t)

		if t >= 1 {
			m.active = nil
			m.legs++
			if s.onComplete != nil {
				done = append(done, completion{marker: m, gen: m.gen, fn: s.onComplete})
			}
		}
	}

	for _, c := range done {
		if c.marker.gen != c.gen {
			continue
		}
		if cur, ok := e.markers[c.marker.id]; !ok || cur != c.marker {
			continue
		}
		c.fn()
	}

	e.fireTimers(now)
}

func (e *Engine) fireTimers(now time.Time) {
	var due []*timer
	for _, t := range e.timers {
		if !t.due.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	for _, t := range due {
		// An earlier callback may have cancelled this one.
		if _, ok := e.timers[t.id]; !ok {
			continue
		}
		delete(e.timers, t.id)
		t.fn()
	}
}

type discardSurface struct{}

func (discardSurface) MoveMarker(string, domain.GeoPoint, float64) {}
func (discardSurface) LabelMarker(string, string)                  {}
func (discardSurface) RemoveMarker(string)                         {}
