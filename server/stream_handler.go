package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"cliptone/core/token"
	"cliptone/model"
)

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// writeSSE emits a single server-sent event with a JSON payload.
func writeSSE(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

// ProgressStreamHandler pushes job progress for one session as server-sent
// events. It polls the progress store and only emits when something changed.
// The stream ends on a terminal status or when the stream timeout elapses,
// and terminal state is cleared from the store on the way out.
func (h *APIHandler) ProgressStreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sid := muxVar(r, "sid")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	deadline := time.Now().Add(h.cfg.StreamTimeout)
	var lastProgress = -1
	var lastStatus model.Status

	for {
		if time.Now().After(deadline) {
			writeSSE(w, "error_event", map[string]string{"error": "timeout"})
			flusher.Flush()
			return
		}

		rec, ok := h.progress.Get(sid)
		if ok && (rec.Progress != lastProgress || rec.Status != lastStatus) {
			lastProgress = rec.Progress
			lastStatus = rec.Status
			writeSSE(w, "progress", rec)
			flusher.Flush()
		}
		if ok {
			switch rec.Status {
			case model.StatusComplete:
				if h.workspaces.IsReady(sid) {
					writeSSE(w, "complete", map[string]string{"editor_url": h.editorURL(sid)})
					flusher.Flush()
				} else {
					writeSSE(w, "error_event", map[string]string{"error": "session expired"})
					flusher.Flush()
				}
				h.progress.Clear(sid)
				return
			case model.StatusError:
				writeSSE(w, "error_event", map[string]string{"error": rec.Error})
				flusher.Flush()
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

// AudioStreamHandler serves the prepared audio for the editor preview. Reads
// refresh the session's idle clock so an open editor keeps its workspace
// alive. ServeFile gives the player range request support for seeking.
func (h *APIHandler) AudioStreamHandler(w http.ResponseWriter, r *http.Request) {
	sid := muxVar(r, "sid")
	if !h.tokens.Verify(sid, token.ScopeAudio, r.URL.Query().Get("sig")) {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	src := h.workspaces.SourcePath(sid)
	if _, err := os.Stat(src); err != nil {
		http.Error(w, "session not found or expired", http.StatusGone)
		return
	}
	h.workspaces.Touch(sid)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, src)
}
