package http

import (
	"log"
	"net/http"

	"interanxy-service/internal/app"
	"interanxy-service/internal/domain"
	"github.com/gorilla/websocket"
)

// MonitorHandler streams group statistics to instructor dashboards over a
// websocket. The stream is one-way: inbound frames are read only to detect
// the client going away.
type MonitorHandler struct {
	rooms    *app.RoomService
	monitor  *app.Monitor
	upgrader websocket.Upgrader
}

func NewMonitorHandler(rooms *app.RoomService, monitor *app.Monitor) *MonitorHandler {
	return &MonitorHandler{
		rooms:   rooms,
		monitor: monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type statsFrame struct {
	Type    string            `json:"type"`
	Payload app.StatsSnapshot `json:"payload"`
}

type errorFrame struct {
	Type    string       `json:"type"`
	Payload errorPayload `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func (h *MonitorHandler) Serve(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	roomID := r.PathValue("id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Current standings first, so the dashboard never starts blank.
	initial, err := h.rooms.Stats(r.Context(), roomID)
	if err != nil {
		_ = conn.WriteJSON(errorFrame{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := h.monitor.Subscribe(roomID)
	defer cancel()

	send := make(chan statsFrame, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- statsFrame{Type: "stats", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- statsFrame{Type: "stats", Payload: initial}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
