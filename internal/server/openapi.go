package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents the /healthz body: one status per checker.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

type markerIndexPath struct {
	Index int `path:"index"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Bonus Lights API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Local runtime of the bonus lights garland widget.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of the record store.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/garland
	getGarland, _ := r.NewOperationContext(http.MethodGet, "/api/garland")
	getGarland.SetSummary("Garland state")
	getGarland.SetDescription("Returns the round phase, score and every marker. Bonus labels are only included for revealed markers.")
	getGarland.AddRespStructure(GarlandResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getGarland)

	// GET /api/garland/curve
	getCurve, _ := r.NewOperationContext(http.MethodGet, "/api/garland/curve")
	getCurve.SetSummary("Garland curve")
	getCurve.SetDescription("Returns the SVG path data and logical view box of the garland string.")
	getCurve.AddRespStructure(CurveResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCurve)

	// GET /api/garland/layout
	getLayout, _ := r.NewOperationContext(http.MethodGet, "/api/garland/layout")
	getLayout.SetSummary("Marker layout")
	getLayout.SetDescription("Returns the last computed placements and whether they match the last reported viewport.")
	getLayout.AddRespStructure(LayoutResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getLayout)

	// POST /api/garland/viewport
	postViewport, _ := r.NewOperationContext(http.MethodPost, "/api/garland/viewport")
	postViewport.SetSummary("Report viewport")
	postViewport.SetDescription("Reports the rendering surface geometry. Layout is recomputed once reports stop and the surface settles.")
	postViewport.AddReqStructure(ViewportRequest{})
	postViewport.AddRespStructure(ViewportResponse{}, openapi.WithHTTPStatus(http.StatusAccepted))
	postViewport.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postViewport)

	// POST /api/garland/markers/{index}/select
	postSelect, _ := r.NewOperationContext(http.MethodPost, "/api/garland/markers/{index}/select")
	postSelect.SetSummary("Select marker")
	postSelect.SetDescription("Pointer or keyboard activation of a marker. Selections outside an active round are ignored and answer accepted=false.")
	postSelect.AddReqStructure(markerIndexPath{})
	postSelect.AddRespStructure(SelectResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postSelect.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postSelect)

	for _, op := range []struct{ path, summary, desc string }{
		{"/api/garland/round/start", "Start round", "Assigns fresh bonuses and opens the round. Ignored while a round is active or the device is locked for the day."},
		{"/api/garland/round/advance", "Next round", "Starts the next round and keeps the accumulated score."},
		{"/api/garland/session/reset", "Reset session", "Zeroes the score and round counter and starts over. A daily lock survives the reset."},
	} {
		oc, _ := r.NewOperationContext(http.MethodPost, op.path)
		oc.SetSummary(op.summary)
		oc.SetDescription(op.desc)
		oc.AddRespStructure(ActionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
		_ = r.AddOperation(oc)
	}

	// POST /api/garland/round/ack
	postAck, _ := r.NewOperationContext(http.MethodPost, "/api/garland/round/ack")
	postAck.SetSummary("Acknowledge result")
	postAck.SetDescription("Closes a resolved round. Locks the device when the choice was stored for the day; replays it when already locked.")
	postAck.AddRespStructure(AcknowledgeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postAck)

	// POST /api/garland/replay
	postReplay, _ := r.NewOperationContext(http.MethodPost, "/api/garland/replay")
	postReplay.SetSummary("Replay stored choice")
	postReplay.SetDescription("Re-emits the stored choice while the device is locked.")
	postReplay.AddRespStructure(AcknowledgeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postReplay)

	// GET /api/garland/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/garland/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of reveal, confetti, resolved, locked, replay, layout and round events.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// POST /api/admin/lock/clear
	postClear, _ := r.NewOperationContext(http.MethodPost, "/api/admin/lock/clear")
	postClear.SetSummary("Clear daily lock")
	postClear.SetDescription("Deletes the stored daily choice. Requires operator basic auth.")
	postClear.AddRespStructure(ActionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postClear.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	postClear.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(postClear)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
