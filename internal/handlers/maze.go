package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/maze-server/internal/config"
	"github.com/vancomm/maze-server/internal/maze"
	"github.com/vancomm/maze-server/internal/middleware"
	"github.com/vancomm/maze-server/internal/session"
)

var (
	ErrBadSessionID    = errors.New("session id must be a uuid")
	ErrMissingToken    = errors.New("a bearer control token is required")
	ErrForeignToken    = errors.New("control token belongs to another session")
	ErrShuttingDown    = errors.New("server is shutting down")
	ErrSessionNotFound = errors.New("session not found")
)

type MazeHandler struct {
	log      logrus.FieldLogger
	sessions *session.Manager
	jwt      *config.JWT
	ws       *config.WebSocket
}

func NewMazeHandler(
	log logrus.FieldLogger,
	sessions *session.Manager,
	jwt *config.JWT,
	ws *config.WebSocket,
) *MazeHandler {
	return &MazeHandler{
		log:      log,
		sessions: sessions,
		jwt:      jwt,
		ws:       ws,
	}
}

// session resolves the {id} path value, writing the error response itself
// when it fails.
func (h MazeHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, ErrBadSessionID)
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if errors.Is(err, session.ErrNotFound) {
		sendErrorOrLog(w, h.log, http.StatusNotFound, ErrSessionNotFound)
		return nil, false
	}
	if err != nil {
		internalError(w, h.log, "unable to look up session", err)
		return nil, false
	}
	return s, true
}

func (h MazeHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	dto, err := ParseCreateMazeDTO(r.Form)
	if err != nil {
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	}

	s, err := h.sessions.Start(dto.Params())
	switch {
	case errors.Is(err, maze.ErrInvalidDimensions), errors.Is(err, maze.ErrOutOfBounds):
		sendErrorOrLog(w, h.log, http.StatusBadRequest, err)
		return
	case errors.Is(err, session.ErrClosed):
		sendErrorOrLog(w, h.log, http.StatusServiceUnavailable, ErrShuttingDown)
		return
	case err != nil:
		internalError(w, h.log, "unable to start session", err)
		return
	}

	token, err := h.jwt.Sign(h.jwt.NewControlClaims(s.ID.String()))
	if err != nil {
		s.Cancel()
		internalError(w, h.log, "unable to sign control token", err)
		return
	}

	created := NewSessionDTO(s, false)
	created.Token = token
	w.Header().Set("Location", r.URL.Path+"/"+s.ID.String())
	sendJSONOrLog(w, h.log, http.StatusCreated, created)
}

func (h MazeHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	dtos := make([]*SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		dtos = append(dtos, NewSessionDTO(s, false))
	}
	sendJSONOrLog(w, h.log, http.StatusOK, dtos)
}

func (h MazeHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	sendJSONOrLog(w, h.log, http.StatusOK, NewSessionDTO(s, true))
}

func (h MazeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ControlClaims(r.Context())
	if !ok {
		sendErrorOrLog(w, h.log, http.StatusUnauthorized, ErrMissingToken)
		return
	}
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if claims.SessionID != s.ID.String() {
		sendErrorOrLog(w, h.log, http.StatusForbidden, ErrForeignToken)
		return
	}

	if err := h.sessions.Cancel(s.ID); err != nil {
		internalError(w, h.log, "unable to cancel session", err)
		return
	}
	sendJSONOrLog(w, h.log, http.StatusAccepted, NewSessionDTO(s, false))
}

// Connect streams snapshots over a websocket until the session finishes or
// the client goes away. Slow clients skip intermediate snapshots.
func (h MazeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := h.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("upgrade")
		return
	}
	defer conn.Close()

	log := h.log.WithField("session_id", s.ID)
	log.Debug("stream opened")

	sub := s.Maze.State().Subscribe()
	defer sub.Close()

	gone := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.ws.PongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.WithError(err).Debug("read")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(h.ws.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case snap, ok := <-sub.Updates():
			conn.SetWriteDeadline(time.Now().Add(h.ws.WriteWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished"))
				log.Debug("stream closed")
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				log.WithError(err).Debug("write")
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(h.ws.WriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-gone:
			log.Debug("client left")
			return
		}
	}
}
