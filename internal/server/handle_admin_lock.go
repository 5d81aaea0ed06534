package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/bonuslights/internal/widget"
)

// handleClearLock deletes the stored daily choice so the device can play
// again today.
func handleClearLock(logger *slog.Logger, sess *widget.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sess.ClearLock(r.Context()); err != nil {
			logger.Error("clearing daily lock", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("daily lock cleared by operator")
		writeJSON(w, http.StatusOK, ActionResponse{Accepted: true, State: garlandView(sess)})
	}
}
