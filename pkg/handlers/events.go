package handlers

import (
	"context"
	"net/http"
	"time"

	"socialfeed/pkg/broadcast"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type PushSettings struct {
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

func DefaultPushSettings() *PushSettings {
	return &PushSettings{
		PingTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		ReadTimeout:  30 * time.Second,
	}
}

// EventsHandler upgrades to a websocket and streams every broadcast event to
// the client as a text frame {"event": kind, "data": payload}. Frames sent by
// the client are ignored.
type EventsHandler struct {
	Bus      broadcast.Bus
	Logger   *zap.SugaredLogger
	Settings *PushSettings
	Upgrader websocket.Upgrader
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	settings := h.Settings
	if settings == nil {
		settings = DefaultPushSettings()
	}

	ws, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an http error
		h.Logger.Infow("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	defer ws.Close()

	sub := h.Bus.Subscribe()
	defer h.Bus.Unsubscribe(sub)

	h.Logger.Infow("push client connected", "subscriber", sub.ID, "remote_addr", r.RemoteAddr)
	defer h.Logger.Infow("push client disconnected", "subscriber", sub.ID)

	handleCtx, handleCancel := context.WithCancel(context.Background())
	defer handleCancel()

	go func() {
		defer handleCancel()

		ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		})
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
			ws.SetReadDeadline(time.Now().Add(settings.ReadTimeout))
		}
	}()

	ping := time.NewTicker(settings.PingTimeout)
	defer ping.Stop()

	for {
		select {
		case <-handleCtx.Done():
			return
		case e, ok := <-sub.C:
			ws.SetWriteDeadline(time.Now().Add(settings.WriteTimeout))
			if !ok {
				// dropped by the bus, the client has to resync
				ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber too slow"))
				return
			}
			if err := ws.WriteJSON(e); err != nil {
				h.Logger.Infow("push write failed", "subscriber", sub.ID, "error", err)
				return
			}
		case <-ping.C:
			ws.SetWriteDeadline(time.Now().Add(settings.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
