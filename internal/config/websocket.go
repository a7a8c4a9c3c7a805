package config

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader   websocket.Upgrader
	WriteWait  time.Duration
	PingPeriod time.Duration
	PongWait   time.Duration
}

func NewWebSocket() (*WebSocket, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	pongWait := 60 * time.Second
	ws := &WebSocket{
		Upgrader:   upgrader,
		WriteWait:  10 * time.Second,
		PongWait:   pongWait,
		PingPeriod: pongWait * 9 / 10,
	}

	return ws, nil
}
