// Package widget is the UI boundary of the garland. A Session owns the bonus
// machine and the layout engine and serialises every activation, viewport
// report and timer behind one lock.
package widget

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playperu/bonuslights/internal/bonus"
	"github.com/playperu/bonuslights/internal/garland"
	"github.com/playperu/bonuslights/internal/layout"
)

// Timing holds the deferral delays for relayouts after a viewport report.
type Timing struct {
	// Debounce collapses bursts of resize reports; the last one wins.
	Debounce time.Duration
	// Frame and Settle defer the relayout past the next paint and then let
	// font and image metrics stabilise.
	Frame  time.Duration
	Settle time.Duration
}

type Session struct {
	mu      sync.Mutex
	machine *bonus.Machine
	engine  *layout.Engine
	markers int
	logger  *slog.Logger

	debounce *layout.Debouncer
	settle   *layout.Settler

	viewport     layout.Viewport
	haveViewport bool
}

func New(machine *bonus.Machine, engine *layout.Engine, markers int, timing Timing, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		machine:  machine,
		engine:   engine,
		markers:  markers,
		logger:   logger,
		debounce: layout.NewDebouncer(timing.Debounce),
		settle:   layout.NewSettler(timing.Frame, timing.Settle),
	}
}

// Start restores any stored daily choice and begins the first round unless
// the machine came up locked.
func (s *Session) Start(ctx context.Context) garland.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.Restore(ctx)
	s.machine.StartRound()
	phase := s.machine.Snapshot().Phase
	s.logger.Info("session started", "phase", phase)
	return phase
}

// ReportViewport records new surface geometry and schedules a full relayout
// once the reports stop and the surface has settled.
func (s *Session) ReportViewport(vp layout.Viewport) {
	s.mu.Lock()
	s.viewport = vp
	s.haveViewport = true
	s.engine.Invalidate()
	s.mu.Unlock()

	s.debounce.Schedule(func() {
		s.settle.Schedule(func() { s.Relayout() })
	})
}

// Relayout recomputes every placement from the last reported viewport. It
// reports false when the surface is not measurable yet; the next report
// retries.
func (s *Session) Relayout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relayout()
}

func (s *Session) relayout() bool {
	if !s.haveViewport {
		return false
	}
	placements, ok := s.engine.Layout(s.markers, s.viewport)
	if !ok {
		s.logger.Debug("layout skipped, surface not measurable")
		return false
	}
	s.machine.ApplyLayout(placements)
	return true
}

// Layout returns the current placements and whether they reflect the last
// reported viewport.
func (s *Session) Layout() ([]garland.Placement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	placements, ok := s.engine.Last()
	return append([]garland.Placement(nil), placements...), ok
}

func (s *Session) Strategy() layout.Strategy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Strategy()
}

func (s *Session) Select(ctx context.Context, index int) (bonus.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.machine.Select(ctx, index)
	if !ok {
		s.logger.Debug("selection ignored", "marker", index)
		return out, false
	}
	s.logger.Info("marker selected", "marker", index, "bonus", out.Bonus.Label, "resolved", out.Resolved)
	return out, true
}

func (s *Session) StartRound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.StartRound()
}

func (s *Session) AdvanceRound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.AdvanceRound()
}

func (s *Session) ResetSession() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ResetSession()
}

func (s *Session) Acknowledge() (garland.StoredChoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Acknowledge()
}

func (s *Session) Replay() (garland.StoredChoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Replay()
}

func (s *Session) ClearLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ClearLock(ctx)
}

func (s *Session) Snapshot() garland.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Snapshot()
}

func (s *Session) Stored() (garland.StoredChoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Stored()
}

// Close drops pending relayouts.
func (s *Session) Close() {
	s.debounce.Stop()
	s.settle.Stop()
}
