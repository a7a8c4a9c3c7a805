package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vancomm/maze-server/internal/session"
)

type Status struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Records  bool   `json:"records"`
}

func StatusHandler(log logrus.FieldLogger, sessions *session.Manager, records bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sendJSONOrLog(w, log, http.StatusOK, Status{
			Status:   "ok",
			Sessions: sessions.Len(),
			Records:  records,
		})
	}
}
