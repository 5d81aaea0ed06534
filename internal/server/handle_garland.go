package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/bonuslights/internal/garland"
	"github.com/playperu/bonuslights/internal/layout"
	"github.com/playperu/bonuslights/internal/widget"
)

// MarkerView is one marker as the renderer draws it. Label and Value are set
// only once the marker has been revealed.
type MarkerView struct {
	Index      int                 `json:"index"`
	State      garland.MarkerState `json:"state"`
	Color      int                 `json:"color"`
	Placed     bool                `json:"placed"`
	T          float64             `json:"t"`
	X          float64             `json:"x"`
	Y          float64             `json:"y"`
	Angle      float64             `json:"angle"`
	GlyphAngle float64             `json:"glyphAngle"`
	Label      string              `json:"label,omitempty"`
	Value      string              `json:"value,omitempty"`
}

// PickView is one bonus picked in the current round.
type PickView struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// GarlandResponse is the response for GET /api/garland.
type GarlandResponse struct {
	RoundID           string                `json:"roundId,omitempty"`
	Round             int                   `json:"round"`
	Phase             garland.Phase         `json:"phase"`
	AttemptsRemaining int                   `json:"attemptsRemaining"`
	Score             string                `json:"score"`
	Markers           []MarkerView          `json:"markers"`
	Picks             []PickView            `json:"picks"`
	Stored            *garland.StoredChoice `json:"stored,omitempty"`
}

// LayoutResponse is the response for GET /api/garland/layout.
type LayoutResponse struct {
	Placements []garland.Placement `json:"placements"`
	Current    bool                `json:"current"`
	Strategy   layout.Strategy     `json:"strategy"`
}

// CurveResponse is the response for GET /api/garland/curve.
type CurveResponse struct {
	Path    string      `json:"d"`
	ViewBox layout.Rect `json:"viewBox"`
}

// ViewportRequest is the request body for POST /api/garland/viewport.
// Rendered, Container and CTM are page coordinates.
type ViewportRequest struct {
	ViewBox   layout.Rect   `json:"viewBox"`
	Rendered  layout.Rect   `json:"rendered"`
	Container garland.Point `json:"container"`
	CTM       *[6]float64   `json:"ctm,omitempty"`
}

// ViewportResponse is the response for POST /api/garland/viewport.
type ViewportResponse struct {
	Scheduled bool `json:"scheduled"`
}

// ActionResponse is returned by the round control endpoints. Accepted is false
// when the action was a no-op in the current phase.
type ActionResponse struct {
	Accepted bool            `json:"accepted"`
	State    GarlandResponse `json:"state"`
}

// SelectResponse is the response for POST /api/garland/markers/{index}/select.
type SelectResponse struct {
	Accepted bool            `json:"accepted"`
	Resolved bool            `json:"resolved,omitempty"`
	Label    string          `json:"label,omitempty"`
	Value    string          `json:"value,omitempty"`
	State    GarlandResponse `json:"state"`
}

// AcknowledgeResponse is the response for POST /api/garland/round/ack.
type AcknowledgeResponse struct {
	Accepted bool                  `json:"accepted"`
	Choice   *garland.StoredChoice `json:"choice,omitempty"`
	State    GarlandResponse       `json:"state"`
}

func garlandView(sess *widget.Session) GarlandResponse {
	round := sess.Snapshot()
	resp := GarlandResponse{
		RoundID:           round.ID,
		Round:             round.Number,
		Phase:             round.Phase,
		AttemptsRemaining: round.AttemptsRemaining,
		Score:             round.Score.String(),
		Markers:           make([]MarkerView, len(round.Markers)),
		Picks:             make([]PickView, len(round.Picks)),
	}
	for i, mk := range round.Markers {
		v := MarkerView{
			Index:      mk.Index,
			State:      mk.State,
			Color:      mk.Color,
			Placed:     mk.Placed,
			T:          garland.ParamFor(mk.Index, len(round.Markers)),
			X:          mk.Placement.Screen.X,
			Y:          mk.Placement.Screen.Y,
			Angle:      mk.Placement.Angle,
			GlyphAngle: mk.Placement.GlyphAngle,
		}
		if mk.State == garland.MarkerRevealed && mk.Assigned != nil {
			v.Label = mk.Assigned.Label
			v.Value = mk.Assigned.Value.String()
		}
		resp.Markers[i] = v
	}
	for i, p := range round.Picks {
		resp.Picks[i] = PickView{Label: p.Label, Value: p.Value.String()}
	}
	if c, ok := sess.Stored(); ok && round.Phase == garland.PhaseLocked {
		resp.Stored = &c
	}
	return resp
}

func handleGarland(sess *widget.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, garlandView(sess))
	}
}

func handleLayout(sess *widget.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		placements, current := sess.Layout()
		if placements == nil {
			placements = []garland.Placement{}
		}
		writeJSON(w, http.StatusOK, LayoutResponse{
			Placements: placements,
			Current:    current,
			Strategy:   sess.Strategy(),
		})
	}
}

func handleCurve(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CurveResponse{Path: opts.CurvePath, ViewBox: opts.ViewBox})
	}
}

func handleViewport(sess *widget.Session, viewBox layout.Rect) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ViewportRequest
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ViewBox.W == 0 && req.ViewBox.H == 0 {
			req.ViewBox = viewBox
		}

		sess.ReportViewport(layout.Viewport{
			ViewBox:   req.ViewBox,
			Rendered:  req.Rendered,
			Container: req.Container,
			CTM:       req.CTM,
		})
		writeJSON(w, http.StatusAccepted, ViewportResponse{Scheduled: true})
	}
}

func handleSelect(logger *slog.Logger, sess *widget.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "marker index must be an integer")
			return
		}

		out, ok := sess.Select(r.Context(), index)
		resp := SelectResponse{Accepted: ok}
		if ok {
			resp.Resolved = out.Resolved
			resp.Label = out.Bonus.Label
			resp.Value = out.Bonus.Value.String()
		} else {
			logger.Debug("selection was a no-op", "marker", index)
		}
		resp.State = garlandView(sess)
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleRoundAction wraps a round control. A control that does not apply in
// the current phase answers 200 with accepted=false.
func handleRoundAction(sess *widget.Session, action func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok := action()
		writeJSON(w, http.StatusOK, ActionResponse{Accepted: ok, State: garlandView(sess)})
	}
}

func handleAcknowledge(sess *widget.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := sess.Acknowledge()
		resp := AcknowledgeResponse{Accepted: ok}
		if ok && c.Date != "" {
			resp.Choice = &c
		}
		resp.State = garlandView(sess)
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleReplay(sess *widget.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := sess.Replay()
		resp := AcknowledgeResponse{Accepted: ok}
		if ok {
			resp.Choice = &c
		}
		resp.State = garlandView(sess)
		writeJSON(w, http.StatusOK, resp)
	}
}
