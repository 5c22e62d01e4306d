package server

import (
	"errors"
	"math"
	"net/http"

	"cliptone/core/audio"
	"cliptone/core/token"
	"cliptone/core/utils"
	"cliptone/logger"
)

// minClipSeconds is the shortest clip worth producing.
const minClipSeconds = 0.01

// ringtoneSeconds is the fixed clip length of ringtone mode.
const ringtoneSeconds = 30.0

var (
	errInvalidStart = errors.New("invalid start time")
	errInvalidEnd   = errors.New("invalid end time")
	errEndNotAfter  = errors.New("end time must be after start time")
	errClipTooShort = errors.New("clip must be at least 0.01 s long")
)

// resolveTrimRange validates and clamps a requested trim range against the
// known duration (0 = unknown, tolerated). In ringtone mode the end is
// derived as start+30s capped at the duration; an explicitly supplied end
// that is not after the start is rejected even then. NaN times are rejected,
// never coerced to 0.
func resolveTrimRange(duration, start, end float64, ringtone bool) (float64, float64, error) {
	if math.IsNaN(start) {
		return 0, 0, errInvalidStart
	}
	if !ringtone && math.IsNaN(end) {
		return 0, 0, errInvalidEnd
	}
	if !math.IsNaN(end) && end <= start {
		return 0, 0, errEndNotAfter
	}

	if ringtone {
		end = start + ringtoneSeconds
	}

	if start < 0 {
		start = 0
	}
	if duration > 0 {
		if start >= duration {
			start = math.Max(duration-0.1, 0)
		}
		if end > duration {
			end = duration
		}
	}

	if end-start <= minClipSeconds {
		return 0, 0, errClipTooShort
	}
	return start, end, nil
}

// TrimHandler cuts the requested range out of the prepared audio and streams
// it back as a download. The workspace is destroyed after the response body
// has been written, so success ends the session.
func (h *APIHandler) TrimHandler(w http.ResponseWriter, r *http.Request) {
	h.workspaces.ReclaimExpired()

	sid := r.FormValue("id")
	if !h.tokens.Verify(sid, token.ScopeTrim, r.FormValue("sig")) {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	meta, err := h.workspaces.ReadMeta(sid)
	if err != nil || !h.workspaces.IsReady(sid) {
		// A half-written workspace is gone, not corrupt-but-present.
		h.workspaces.Destroy(sid)
		http.Error(w, "session not found or expired", http.StatusGone)
		return
	}

	start := utils.ParseClock(r.FormValue("start"))
	end := utils.ParseClock(r.FormValue("end"))
	ringtone := r.FormValue("ringtone_mode") == "true"
	precise := r.FormValue("precise") != "false"
	fades := r.FormValue("fades") != "false"

	start, end, err = resolveTrimRange(meta.Duration, start, end, ringtone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := audio.TrimOptions{
		Precise: precise || ringtone,
		Fades:   fades && (precise || ringtone),
	}
	cutPath := h.workspaces.CutPath(sid)
	if err := h.transcoder.Trim(h.workspaces.SourcePath(sid), cutPath, start, end, opts); err != nil {
		http.Error(w, "trim failed: "+utils.Truncate(err.Error(), userErrorLimit), http.StatusInternalServerError)
		return
	}

	base := utils.SafeDownloadName(meta.Title)
	name := base + "-clip.mp3"
	if ringtone {
		name = base + "-tono30s.mp3"
	}

	logger.Info("trim served",
		logger.String("sid", sid),
		logger.Float64("start", start),
		logger.Float64("end", end),
		logger.Bool("ringtone", ringtone))

	h.serveAttachment(w, cutPath, name)
	// The body has been written; the session is over.
	h.workspaces.Destroy(sid)
}
