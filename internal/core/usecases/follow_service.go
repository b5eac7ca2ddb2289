package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/zKi3v/ECOALERTA-FTD/internal/core/animation"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"
	"github.com/zKi3v/ECOALERTA-FTD/internal/core/ports"
	"github.com/zKi3v/ECOALERTA-FTD/internal/pkg/metrics"
)

// FollowConfig describes the truck dispatched from the depot to a report.
type FollowConfig struct {
	Depot        domain.GeoPoint
	Steps        int
	StepInterval time.Duration
	// Linger keeps an arrived truck on the map before it is removed.
	Linger time.Duration
}

// Duration is the drive time from depot to report.
func (c FollowConfig) Duration() time.Duration {
	return time.Duration(c.Steps) * c.StepInterval
}

// FollowService animates one truck per followed report.
type FollowService struct {
	exec      EngineExecutor
	reports   ports.ReportBackend
	publisher ports.FramePublisher
	cfg       FollowConfig

	// Only touched on the engine goroutine.
	active map[int]*followState
}

type followState struct {
	ticker animation.TimerID
	linger animation.TimerID
}

// NewFollowService creates a new FollowService.
func NewFollowService(exec EngineExecutor, reports ports.ReportBackend, publisher ports.FramePublisher, cfg FollowConfig) *FollowService {
	if cfg.Steps <= 0 {
		cfg.Steps = 100
	}
	if cfg.StepInterval <= 0 {
		cfg.StepInterval = 200 * time.Millisecond
	}
	return &FollowService{
		exec:      exec,
		reports:   reports,
		publisher: publisher,
		cfg:       cfg,
		active:    make(map[int]*followState),
	}
}

// Duration is how long a follow trip takes.
func (s *FollowService) Duration() time.Duration { return s.cfg.Duration() }

// Follow looks up the report and sends a truck from the depot to it.
// Following a report that already has a truck restarts the trip.
func (s *FollowService) Follow(ctx context.Context, reportID int, token string) (*domain.ReportDetail, error) {
	report, err := s.reports.GetReport(ctx, reportID, token)
	if err != nil {
		return nil, fmt.Errorf("get report %d: %w", reportID, err)
	}
	dest := report.Location()

	err = s.exec.Do(ctx, func(e *animation.Engine) {
		s.cancel(e, reportID)

		id := FollowTruckID(reportID)
		st := &followState{}
		s.active[reportID] = st
		metrics.ActiveMarkers.WithLabelValues(domain.ModeFollow).Set(float64(len(s.active)))

		e.AddMarker(id, s.cfg.Depot)
		e.Label(id, progressLabel(0))
		e.StartLeg(id, dest, s.cfg.Duration(), func() { s.arrive(e, reportID, dest) })
		st.ticker = e.After(s.cfg.StepInterval, func() { s.tick(e, reportID, st) })
	})
	if err != nil {
		return nil, err
	}
	slog.Info("following report", "report_id", reportID, "lat", dest.Lat, "lon", dest.Lon)
	return report, nil
}

// Cancel removes the truck following reportID. It reports whether one was
// active.
func (s *FollowService) Cancel(ctx context.Context, reportID int) (bool, error) {
	var found bool
	err := s.exec.Do(ctx, func(e *animation.Engine) {
		found = s.cancel(e, reportID)
	})
	return found, err
}

// Active lists the reports that currently have a truck.
func (s *FollowService) Active(ctx context.Context) ([]int, error) {
	var ids []int
	err := s.exec.Do(ctx, func(*animation.Engine) {
		for id := range s.active {
			ids = append(ids, id)
		}
	})
	sort.Ints(ids)
	return ids, err
}

func (s *FollowService) cancel(e *animation.Engine, reportID int) bool {
	st, ok := s.active[reportID]
	if !ok {
		return false
	}
	e.CancelTimer(st.ticker)
	e.CancelTimer(st.linger)

	id := FollowTruckID(reportID)
	if m, ok := e.Marker(id); ok && m.Moving() {
		metrics.LegsCancelled.WithLabelValues(domain.ModeFollow).Inc()
	}
	e.RemoveMarker(id)
	delete(s.active, reportID)
	metrics.ActiveMarkers.WithLabelValues(domain.ModeFollow).Set(float64(len(s.active)))
	return true
}

// tick refreshes the progress label once per step while the truck drives.
func (s *FollowService) tick(e *animation.Engine, reportID int, st *followState) {
	m, ok := e.Marker(FollowTruckID(reportID))
	if !ok || !m.Moving() {
		return
	}
	e.Label(m.ID(), progressLabel(m.Progress()))
	st.ticker = e.After(s.cfg.StepInterval, func() { s.tick(e, reportID, st) })
}

func (s *FollowService) arrive(e *animation.Engine, reportID int, dest domain.GeoPoint) {
	st, ok := s.active[reportID]
	if !ok {
		return
	}
	e.CancelTimer(st.ticker)

	id := FollowTruckID(reportID)
	e.Label(id, fmt.Sprintf("Reporte #%d atendido", reportID))

	arrival := &domain.TruckArrival{
		Time:     e.Now(),
		TruckID:  id,
		ReportID: fmt.Sprint(reportID),
		Location: dest,
	}
	if err := s.publisher.PublishArrival(context.Background(), arrival); err != nil {
		slog.Warn("publish truck arrival failed", "report_id", reportID, "error", err)
	}

	if s.cfg.Linger > 0 {
		st.linger = e.After(s.cfg.Linger, func() { s.cancel(e, reportID) })
	}
}

func progressLabel(p float64) string {
	return fmt.Sprintf("Progreso: %d%%", int(math.Round(p*100)))
}
