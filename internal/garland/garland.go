// Package garland defines the core domain types shared by the layout engine,
// the bonus round state machine and the HTTP boundary.
package garland

import (
	"time"

	"github.com/shopspring/decimal"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Placement is one layout result for a marker.
type Placement struct {
	T          float64 `json:"t"`
	Screen     Point   `json:"screen"`
	Curve      Point   `json:"curve"`
	Angle      float64 `json:"angle"`
	GlyphAngle float64 `json:"glyphAngle"`
}

type MarkerState string

const (
	MarkerUnrevealed MarkerState = "unrevealed"
	MarkerRevealed   MarkerState = "revealed"
	MarkerDisabled   MarkerState = "disabled"
)

// Bonus is one entry of the bonus catalog.
type Bonus struct {
	Label  string          `json:"label" yaml:"label"`
	Value  decimal.Decimal `json:"value" yaml:"value"`
	Weight float64         `json:"weight,omitempty" yaml:"weight"`
}

type Marker struct {
	Index     int         `json:"index"`
	Placement Placement   `json:"placement"`
	Placed    bool        `json:"placed"`
	Assigned  *Bonus      `json:"-"`
	State     MarkerState `json:"state"`
	Color     int         `json:"color"`
}

// ParamFor returns the arc-length fraction of marker i out of n. It never
// reaches 0 or 1 so no marker sits on a curve endpoint.
func ParamFor(i, n int) float64 {
	return float64(i+1) / float64(n+1)
}

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseResolved Phase = "resolved"
	PhaseLocked   Phase = "locked"
)

type Round struct {
	ID                string
	Number            int
	Markers           []Marker
	AttemptsRemaining int
	Phase             Phase
	Score             decimal.Decimal
	Picks             []Bonus
}

// StoredChoice is the persisted daily-lock record. Fields missing from older
// records decode to their zero values.
type StoredChoice struct {
	Value     string `json:"value"`
	Date      string `json:"date"`
	Timestamp int64  `json:"timestamp"`
}

// DateLayout is the calendar date format of StoredChoice.Date.
const DateLayout = "2006-01-02"

// Today formats now as a calendar date in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DateLayout)
}

type EventType string

const (
	EventRoundStarted EventType = "round_started"
	EventReveal       EventType = "reveal"
	EventConfetti     EventType = "confetti"
	EventResolved     EventType = "resolved"
	EventLocked       EventType = "locked"
	EventReplay       EventType = "replay"
	EventLayout       EventType = "layout"
	EventSessionReset EventType = "session_reset"
)

// Event is published to the renderer. Only the fields relevant to Type are set.
type Event struct {
	Type        EventType     `json:"type"`
	Round       int           `json:"round,omitempty"`
	MarkerIndex *int          `json:"markerIndex,omitempty"`
	Label       string        `json:"label,omitempty"`
	Value       string        `json:"value,omitempty"`
	Score       string        `json:"score,omitempty"`
	At          *Point        `json:"at,omitempty"`
	Particles   int           `json:"particles,omitempty"`
	Phase       Phase         `json:"phase,omitempty"`
	Placements  []Placement   `json:"placements,omitempty"`
	Choice      *StoredChoice `json:"choice,omitempty"`
}
