package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

// TruckSurface renders engine marker updates as truck frames on a
// broker. It implements animation.Surface and is called only from the
// engine's goroutine.
type TruckSurface struct {
	publisher   ports.FramePublisher
	projector   ports.Projector
	minInterval time.Duration
	now         func() time.Time
	// lastSent keeps frame times strictly increasing, so a removal and a
	// re-add of the same truck never share a timestamp.
	lastSent time.Time

	trucks map[string]*truckState
}

type truckState struct {
	frame  domain.TruckFrame
	sentAt time.Time
}

// NewTruckSurface creates a TruckSurface. Intermediate frames for the same
// truck closer together than minInterval are dropped; the first and final
// frame of each leg are always sent. projector may be nil.
func NewTruckSurface(publisher ports.FramePublisher, projector ports.Projector, minInterval time.Duration) *TruckSurface {
	return &TruckSurface{
		publisher:   publisher,
		projector:   projector,
		minInterval: minInterval,
		now:         time.Now,
		trucks:      make(map[string]*truckState),
	}
}

// MoveMarker publishes the truck's new position.
func (s *TruckSurface) MoveMarker(id string, pos domain.GeoPoint, progress float64) {
	st := s.state(id)
	st.frame.Location = pos
	st.frame.Progress = progress
	if s.projector != nil {
		st.frame.Mercator = s.projector.Project(pos)
	}

	now := s.now()
	if progress >= 1 {
		metrics.LegsCompleted.WithLabelValues(st.frame.Mode).Inc()
	} else if progress > 0 && now.Sub(st.sentAt) < s.minInterval {
		return
	}
	s.send(st, now)
}

// LabelMarker attaches label to the truck and republishes its last frame.
func (s *TruckSurface) LabelMarker(id, label string) {
	st := s.state(id)
	st.frame.Label = label
	s.send(st, s.now())
}

// RemoveMarker publishes a removal frame at the truck's last position and
// drops what the surface remembers about it.
func (s *TruckSurface) RemoveMarker(id string) {
	st := s.state(id)
	st.frame.Removed = true
	s.send(st, s.now())
	delete(s.trucks, id)
}

func (s *TruckSurface) state(id string) *truckState {
	st, ok := s.trucks[id]
	if !ok {
		mode, reportID := truckMode(id)
		st = &truckState{frame: domain.TruckFrame{TruckID: id, Mode: mode, ReportID: reportID}}
		s.trucks[id] = st
	}
	return st
}

func (s *TruckSurface) send(st *truckState, now time.Time) {
	if !now.After(s.lastSent) {
		now = s.lastSent.Add(time.Nanosecond)
	}
	s.lastSent = now
	st.sentAt = now
	f := st.frame
	f.Time = now
	if err := s.publisher.PublishFrame(context.Background(), &f); err != nil {
		metrics.FramePublishErrors.WithLabelValues(f.Mode).Inc()
		slog.Debug("publish truck frame failed", "truck", f.TruckID, "error", err)
		return
	}
	metrics.FramesPublished.WithLabelValues(f.Mode).Inc()
}
