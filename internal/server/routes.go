package server

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/bonuslights/internal/widget"
)

func addRoutes(r chi.Router, logger *slog.Logger, sess *widget.Session, broker *Broker, opts Options) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Bonus Lights API", "/openapi.json", "/docs"))

	r.Route("/api/garland", func(r chi.Router) {
		r.Get("/", handleGarland(sess))
		r.Get("/curve", handleCurve(opts))
		r.Get("/layout", handleLayout(sess))
		r.Get("/events", handleEvents(broker))
		r.Post("/viewport", handleViewport(sess, opts.ViewBox))
		r.Post("/markers/{index}/select", handleSelect(logger, sess))
		r.Post("/round/start", handleRoundAction(sess, sess.StartRound))
		r.Post("/round/advance", handleRoundAction(sess, sess.AdvanceRound))
		r.Post("/round/ack", handleAcknowledge(sess))
		r.Post("/session/reset", handleRoundAction(sess, sess.ResetSession))
		r.Post("/replay", handleReplay(sess))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(operatorAuthMiddleware(opts.AdminPasswordHash))
		r.Post("/lock/clear", handleClearLock(logger, sess))
	})

	r.NotFound(handleSPA(rendererFS(opts.SPADir)))
}
