// Package bonus implements the bonus round state machine: it assigns catalog
// bonuses to markers, accepts selections and keeps the optional daily lock.
//
// A Machine is not safe for concurrent use. The widget session serialises
// every call into it.
package bonus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/playperu/bonuslights/internal/garland"
	"github.com/playperu/bonuslights/internal/store"
)

// ChoiceKey is the storage key of the daily-lock record.
const ChoiceKey = "bonuslights.choice"

const (
	ConfettiParticles = 18
	PaletteSize       = 9
)

type PickMode string

const (
	// PickSingle resolves the round on the first pick and disables every
	// other marker.
	PickSingle PickMode = "single"
	// PickMulti allows AttemptsPerRound picks before the round resolves.
	PickMulti PickMode = "multi"
)

type ScoreMode string

const (
	// ScoreCumulative moves straight into the next round on acknowledge.
	ScoreCumulative ScoreMode = "cumulative"
	// ScorePerDay ends the session on acknowledge.
	ScorePerDay ScoreMode = "per_day"
)

type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type Sink interface {
	Publish(garland.Event)
}

type Options struct {
	MarkerCount      int
	AttemptsPerRound int
	PickMode         PickMode
	Assignment       Assignment
	DailyLock        bool
	ScoreMode        ScoreMode
	Catalog          []garland.Bonus
	// Seed fixes the random source. Zero seeds from the clock.
	Seed uint64
	// Location is the zone calendar days are counted in. Nil means local time.
	Location *time.Location
	Now      func() time.Time
}

// Outcome describes an accepted selection.
type Outcome struct {
	Marker   int
	Bonus    garland.Bonus
	Resolved bool
	Score    decimal.Decimal
}

type Machine struct {
	opts   Options
	store  Storage
	sink   Sink
	logger *slog.Logger
	rng    *rand.Rand

	round      garland.Round
	placements []garland.Placement

	// stored is the record the current lock replays.
	stored *garland.StoredChoice
	// lockPending is set once a resolved choice has been persisted and the
	// machine moves to Locked on the next transition out of Resolved.
	lockPending bool
}

func New(opts Options, st Storage, sink Sink, logger *slog.Logger) (*Machine, error) {
	if opts.MarkerCount < 1 {
		return nil, fmt.Errorf("marker count must be at least 1, got %d", opts.MarkerCount)
	}
	if opts.AttemptsPerRound < 1 {
		return nil, fmt.Errorf("attempts per round must be at least 1, got %d", opts.AttemptsPerRound)
	}
	if len(opts.Catalog) == 0 {
		return nil, errors.New("bonus catalog is empty")
	}
	if opts.PickMode == "" {
		opts.PickMode = PickSingle
	}
	if opts.Assignment == "" {
		opts.Assignment = AssignUniform
	}
	if opts.ScoreMode == "" {
		opts.ScoreMode = ScoreCumulative
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(opts.Now().UnixNano())
	}

	m := &Machine{
		opts:   opts,
		store:  st,
		sink:   sink,
		logger: logger,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	m.round = garland.Round{
		Phase:   garland.PhaseIdle,
		Score:   decimal.Zero,
		Markers: m.freshMarkers(nil, garland.MarkerDisabled),
	}
	return m, nil
}

// Restore reads the persisted record at session start. A record dated today
// puts the machine straight into Locked and replays the stored value.
// Missing, unreadable or malformed records are treated as no record.
func (m *Machine) Restore(ctx context.Context) {
	if !m.opts.DailyLock || m.store == nil {
		return
	}
	c, ok := m.readChoice(ctx)
	if !ok {
		return
	}
	if c.Date != m.today() {
		m.logger.Debug("stored choice is from an earlier period", "date", c.Date)
		return
	}

	m.stored = &c
	m.lockPending = false
	m.round.Phase = garland.PhaseLocked
	m.round.AttemptsRemaining = 0
	m.disableUnrevealed()
	m.emit(garland.Event{Type: garland.EventLocked, Phase: garland.PhaseLocked, Choice: copyChoice(m.stored)})
	m.Replay()
}

func (m *Machine) readChoice(ctx context.Context) (garland.StoredChoice, bool) {
	var c garland.StoredChoice
	data, err := m.store.Get(ctx, ChoiceKey)
	if errors.Is(err, store.ErrNotFound) {
		return c, false
	}
	if err != nil {
		m.logger.Warn("reading stored choice", "error", err)
		return c, false
	}
	if err := json.Unmarshal(data, &c); err != nil {
		m.logger.Warn("malformed stored choice", "error", err)
		return c, false
	}
	if c.Date == "" {
		m.logger.Warn("stored choice has no date")
		return c, false
	}
	return c, true
}

// StartRound assigns fresh bonuses to every marker and moves to Active.
// It is valid from Idle and Resolved. From Locked it only succeeds once the
// calendar period has rolled over.
func (m *Machine) StartRound() bool {
	switch m.round.Phase {
	case garland.PhaseActive:
		return false
	case garland.PhaseLocked:
		if !m.periodRolledOver() {
			return false
		}
		m.unlock()
	case garland.PhaseResolved:
		if m.lockPending {
			m.enterLocked()
			return false
		}
	}
	m.begin()
	return true
}

// AdvanceRound starts the next round and keeps the accumulated score. Unlike
// StartRound it may abandon an Active round.
func (m *Machine) AdvanceRound() bool {
	if m.round.Phase == garland.PhaseActive {
		m.begin()
		return true
	}
	return m.StartRound()
}

// ResetSession zeroes the score and the round counter and starts over. A
// daily lock survives the reset.
func (m *Machine) ResetSession() bool {
	m.round.Score = decimal.Zero
	m.round.Number = 0
	m.round.Picks = nil
	m.emit(garland.Event{Type: garland.EventSessionReset, Phase: m.round.Phase, Score: m.round.Score.String()})

	if m.round.Phase == garland.PhaseActive {
		m.round.Phase = garland.PhaseIdle
	}
	return m.StartRound()
}

func (m *Machine) begin() {
	attempts := m.opts.AttemptsPerRound
	if m.opts.PickMode == PickSingle {
		attempts = 1
	}
	bonuses := assign(m.rng, m.opts.Assignment, m.opts.Catalog, m.opts.MarkerCount)

	m.round = garland.Round{
		ID:                uuid.NewString(),
		Number:            m.round.Number + 1,
		Markers:           m.freshMarkers(bonuses, garland.MarkerUnrevealed),
		AttemptsRemaining: attempts,
		Phase:             garland.PhaseActive,
		Score:             m.round.Score,
	}
	m.emit(garland.Event{
		Type:  garland.EventRoundStarted,
		Round: m.round.Number,
		Phase: garland.PhaseActive,
		Score: m.round.Score.String(),
	})
}

func (m *Machine) freshMarkers(bonuses []garland.Bonus, state garland.MarkerState) []garland.Marker {
	markers := make([]garland.Marker, m.opts.MarkerCount)
	for i := range markers {
		markers[i] = garland.Marker{Index: i, State: state, Color: i % PaletteSize}
		if bonuses != nil {
			b := bonuses[i]
			markers[i].Assigned = &b
		}
		if i < len(m.placements) {
			markers[i].Placement = m.placements[i]
			markers[i].Placed = true
		}
	}
	return markers
}

// Select reveals marker index. It reports false, changing nothing and
// emitting nothing, unless the round is Active, the marker is Unrevealed and
// attempts remain.
func (m *Machine) Select(ctx context.Context, index int) (Outcome, bool) {
	if m.round.Phase != garland.PhaseActive || m.round.AttemptsRemaining <= 0 {
		return Outcome{}, false
	}
	if index < 0 || index >= len(m.round.Markers) {
		return Outcome{}, false
	}
	mk := &m.round.Markers[index]
	if mk.State != garland.MarkerUnrevealed || mk.Assigned == nil {
		return Outcome{}, false
	}

	mk.State = garland.MarkerRevealed
	m.round.AttemptsRemaining--
	picked := *mk.Assigned
	m.round.Picks = append(m.round.Picks, picked)
	m.round.Score = m.round.Score.Add(picked.Value)

	idx := index
	m.emit(garland.Event{
		Type:        garland.EventReveal,
		Round:       m.round.Number,
		MarkerIndex: &idx,
		Label:       picked.Label,
		Value:       picked.Value.String(),
		Score:       m.round.Score.String(),
	})
	confetti := garland.Event{Type: garland.EventConfetti, MarkerIndex: &idx, Particles: ConfettiParticles}
	if mk.Placed {
		at := mk.Placement.Screen
		confetti.At = &at
	}
	m.emit(confetti)

	out := Outcome{Marker: index, Bonus: picked, Score: m.round.Score}
	if m.opts.PickMode == PickSingle || m.round.AttemptsRemaining == 0 {
		m.resolve(ctx, picked)
		out.Resolved = true
	}
	return out, true
}

func (m *Machine) resolve(ctx context.Context, last garland.Bonus) {
	m.round.AttemptsRemaining = 0
	m.round.Phase = garland.PhaseResolved
	m.disableUnrevealed()
	m.emit(garland.Event{
		Type:  garland.EventResolved,
		Round: m.round.Number,
		Label: last.Label,
		Value: last.Value.String(),
		Score: m.round.Score.String(),
		Phase: garland.PhaseResolved,
	})

	if m.opts.DailyLock {
		m.persist(ctx, last)
	}
}

// persist writes the daily-lock record. Failure leaves the session unlocked.
func (m *Machine) persist(ctx context.Context, b garland.Bonus) {
	if m.store == nil {
		return
	}
	now := m.opts.Now()
	c := garland.StoredChoice{
		Value:     b.Label,
		Date:      garland.Today(now, m.opts.Location),
		Timestamp: now.UnixMilli(),
	}
	data, err := json.Marshal(c)
	if err != nil {
		m.logger.Warn("encoding stored choice", "error", err)
		return
	}
	if err := m.store.Put(ctx, ChoiceKey, data); err != nil {
		m.logger.Warn("persisting stored choice, continuing unlocked", "error", err)
		return
	}
	m.stored = &c
	m.lockPending = true
}

// Acknowledge closes a Resolved round. A persisted daily choice moves the
// machine to Locked. Otherwise cumulative scoring starts the next round and
// per-day scoring returns to Idle. In Locked it replays the stored value.
func (m *Machine) Acknowledge() (garland.StoredChoice, bool) {
	switch m.round.Phase {
	case garland.PhaseLocked:
		return m.Replay()
	case garland.PhaseResolved:
	default:
		return garland.StoredChoice{}, false
	}

	if m.lockPending {
		m.enterLocked()
		return *m.stored, true
	}
	if m.opts.ScoreMode == ScorePerDay {
		m.round.Phase = garland.PhaseIdle
		m.emit(garland.Event{Type: garland.EventSessionReset, Phase: garland.PhaseIdle, Score: m.round.Score.String()})
		return garland.StoredChoice{}, true
	}
	m.begin()
	return garland.StoredChoice{}, true
}

// Replay re-emits the stored choice while locked.
func (m *Machine) Replay() (garland.StoredChoice, bool) {
	if m.round.Phase != garland.PhaseLocked || m.stored == nil {
		return garland.StoredChoice{}, false
	}
	m.emit(garland.Event{
		Type:   garland.EventReplay,
		Label:  m.stored.Value,
		Phase:  garland.PhaseLocked,
		Choice: copyChoice(m.stored),
	})
	return *m.stored, true
}

// ClearLock deletes the persisted record and releases a lock.
func (m *Machine) ClearLock(ctx context.Context) error {
	if m.store != nil {
		if err := m.store.Delete(ctx, ChoiceKey); err != nil {
			return fmt.Errorf("deleting stored choice: %w", err)
		}
	}
	wasLocked := m.round.Phase == garland.PhaseLocked || m.lockPending
	m.unlock()
	if wasLocked {
		m.emit(garland.Event{Type: garland.EventSessionReset, Phase: m.round.Phase, Score: m.round.Score.String()})
	}
	return nil
}

func (m *Machine) enterLocked() {
	m.lockPending = false
	m.round.Phase = garland.PhaseLocked
	m.round.AttemptsRemaining = 0
	m.disableUnrevealed()
	m.emit(garland.Event{Type: garland.EventLocked, Phase: garland.PhaseLocked, Choice: copyChoice(m.stored)})
}

func (m *Machine) unlock() {
	m.stored = nil
	m.lockPending = false
	if m.round.Phase == garland.PhaseLocked {
		m.round.Phase = garland.PhaseIdle
	}
}

func (m *Machine) periodRolledOver() bool {
	return m.stored == nil || m.stored.Date != m.today()
}

func (m *Machine) today() string {
	return garland.Today(m.opts.Now(), m.opts.Location)
}

func (m *Machine) disableUnrevealed() {
	for i := range m.round.Markers {
		if m.round.Markers[i].State == garland.MarkerUnrevealed {
			m.round.Markers[i].State = garland.MarkerDisabled
		}
	}
}

// ApplyLayout writes placements onto the markers, in index order, and keeps
// them for later rounds.
func (m *Machine) ApplyLayout(placements []garland.Placement) {
	if len(placements) != m.opts.MarkerCount {
		return
	}
	m.placements = append(m.placements[:0], placements...)
	for i := range m.round.Markers {
		m.round.Markers[i].Placement = placements[i]
		m.round.Markers[i].Placed = true
	}
	m.emit(garland.Event{Type: garland.EventLayout, Placements: append([]garland.Placement(nil), placements...)})
}

// Snapshot returns a deep copy of the current round.
func (m *Machine) Snapshot() garland.Round {
	r := m.round
	r.Markers = make([]garland.Marker, len(m.round.Markers))
	for i, mk := range m.round.Markers {
		if mk.Assigned != nil {
			b := *mk.Assigned
			mk.Assigned = &b
		}
		r.Markers[i] = mk
	}
	r.Picks = append([]garland.Bonus(nil), m.round.Picks...)
	return r
}

// Stored returns the choice the machine is locked on, if any.
func (m *Machine) Stored() (garland.StoredChoice, bool) {
	if m.stored == nil {
		return garland.StoredChoice{}, false
	}
	return *m.stored, true
}

func (m *Machine) emit(e garland.Event) {
	if m.sink != nil {
		m.sink.Publish(e)
	}
}

func copyChoice(c *garland.StoredChoice) *garland.StoredChoice {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
