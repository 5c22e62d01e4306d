package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"cliptone/logger"
	"cliptone/model"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsProgressFrame struct {
	Kind      string `json:"kind"`
	Progress  int    `json:"progress,omitempty"`
	Message   string `json:"message,omitempty"`
	Status    string `json:"status,omitempty"`
	EditorURL string `json:"editor_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// WebSocketProgressHandler mirrors the SSE progress stream over a websocket
// for clients that prefer a socket. Frames carry a kind discriminator
// instead of an event name; the terminal frame closes the connection.
func (h *APIHandler) WebSocketProgressHandler(w http.ResponseWriter, r *http.Request) {
	sid := muxVar(r, "sid")

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	deadline := time.Now().Add(h.cfg.StreamTimeout)
	lastProgress := -1
	var lastStatus model.Status

	for {
		if time.Now().After(deadline) {
			conn.WriteJSON(wsProgressFrame{Kind: "error", Error: "timeout"})
			return
		}

		rec, ok := h.progress.Get(sid)
		if ok && (rec.Progress != lastProgress || rec.Status != lastStatus) {
			lastProgress = rec.Progress
			lastStatus = rec.Status
			frame := wsProgressFrame{
				Kind:     "progress",
				Progress: rec.Progress,
				Message:  rec.Message,
				Status:   string(rec.Status),
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		}
		if ok {
			switch rec.Status {
			case model.StatusComplete:
				if h.workspaces.IsReady(sid) {
					conn.WriteJSON(wsProgressFrame{Kind: "complete", EditorURL: h.editorURL(sid)})
				} else {
					conn.WriteJSON(wsProgressFrame{Kind: "error", Error: "session expired"})
				}
				h.progress.Clear(sid)
				return
			case model.StatusError:
				conn.WriteJSON(wsProgressFrame{Kind: "error", Error: rec.Error})
				h.progress.Clear(sid)
				return
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(h.cfg.PollInterval):
		}
	}
}
