package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"cliptone/config"
	"cliptone/core/audio"
	"cliptone/core/extract"
	"cliptone/core/job"
	"cliptone/core/progress"
	"cliptone/core/token"
	"cliptone/core/utils"
	"cliptone/core/workspace"
	"cliptone/logger"
	"cliptone/model"
)

// userErrorLimit bounds error text shown to clients.
const userErrorLimit = 300

// sourceURLPattern accepts only the expected upstream hosts. Checked before
// any work starts.
var sourceURLPattern = regexp.MustCompile(`(?i)^https?://([a-z0-9-]+\.)*(youtube\.com|youtu\.be)/`)

// trackingParamPattern matches the share-tracking query parameter some
// clients append; it is stripped so it never reaches the extractor.
var trackingParamPattern = regexp.MustCompile(`(\?|&)si=[^&]+`)

// Transcoder is the transcoding engine seen by the handlers. Satisfied by
// *audio.FFmpegProcessor.
type Transcoder interface {
	ToMP3(src, dst string) error
	Trim(src, dst string, start, end float64, opts audio.TrimOptions) error
	ProbeDuration(file string) (float64, error)
}

// APIHandler composes the session components behind the HTTP surface.
type APIHandler struct {
	cfg        *config.Config
	workspaces *workspace.Store
	progress   progress.Store
	tokens     *token.Authority
	runner     *job.Runner
	extractor  extract.Extractor
	transcoder Transcoder
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	cfg *config.Config,
	workspaces *workspace.Store,
	progressStore progress.Store,
	tokens *token.Authority,
	runner *job.Runner,
	extractor extract.Extractor,
	transcoder Transcoder,
) *APIHandler {
	return &APIHandler{
		cfg:        cfg,
		workspaces: workspaces,
		progress:   progressStore,
		tokens:     tokens,
		runner:     runner,
		extractor:  extractor,
		transcoder: transcoder,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug("failed to encode response", logger.ErrorField(err))
	}
}

func (h *APIHandler) editorURL(sid string) string {
	return "/editor/" + sid + "?sig=" + h.tokens.Issue(sid, token.ScopeEditor)
}

// IndexHandler serves the mode chooser.
func (h *APIHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	h.workspaces.ReclaimExpired()
	renderTemplate(w, homeTemplate, nil)
}

// YouTubePageHandler serves the remote-source form with the progress UI.
func (h *APIHandler) YouTubePageHandler(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, youtubeTemplate, nil)
}

// UploadPageHandler serves the direct-upload form.
func (h *APIHandler) UploadPageHandler(w http.ResponseWriter, r *http.Request) {
	renderTemplate(w, uploadTemplate, nil)
}

// PrepareHandler validates a remote source URL, starts the background
// conversion job and returns the session id immediately. The client follows
// along on the progress stream.
func (h *APIHandler) PrepareHandler(w http.ResponseWriter, r *http.Request) {
	h.workspaces.ReclaimExpired()

	url := r.FormValue("url")
	if !sourceURLPattern.MatchString(url) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid URL: must be a youtube.com or youtu.be link",
		})
		return
	}
	url = trackingParamPattern.ReplaceAllString(url, "")

	sid := h.runner.Start(url)
	logger.Info("conversion session started", logger.String("sid", sid))
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sid})
}

// UploadHandler converts an uploaded file synchronously and renders the
// editor in the same request. Fast enough that no progress record exists.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	h.workspaces.ReclaimExpired()

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid or oversized upload", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing 'file' in form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	sid := workspace.NewID()
	if err := h.workspaces.Create(sid); err != nil {
		http.Error(w, "could not allocate session storage", http.StatusInternalServerError)
		return
	}

	inputPath := filepath.Join(h.workspaces.Dir(sid), "input")
	dst, err := os.Create(inputPath)
	if err != nil {
		h.workspaces.Destroy(sid)
		http.Error(w, "could not store upload", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		h.workspaces.Destroy(sid)
		http.Error(w, "could not store upload", http.StatusInternalServerError)
		return
	}
	dst.Close()

	if err := h.transcoder.ToMP3(inputPath, h.workspaces.SourcePath(sid)); err != nil {
		h.workspaces.Destroy(sid)
		http.Error(w, "conversion failed: "+utils.Truncate(err.Error(), userErrorLimit), http.StatusInternalServerError)
		return
	}
	if err := os.Remove(inputPath); err != nil {
		logger.Debug("failed to remove uploaded original", logger.ErrorField(err))
	}

	// 0 means unknown; trim validation tolerates it.
	duration, err := h.transcoder.ProbeDuration(h.workspaces.SourcePath(sid))
	if err != nil {
		logger.Warn("could not probe uploaded audio duration",
			logger.String("sid", sid),
			logger.ErrorField(err))
		duration = 0
	}

	meta := model.Meta{
		Title:    utils.TitleFromFilename(header.Filename),
		Duration: duration,
		Created:  time.Now().UTC(),
	}
	if err := h.workspaces.WriteMeta(sid, meta); err != nil {
		h.workspaces.Destroy(sid)
		http.Error(w, "could not persist session metadata", http.StatusInternalServerError)
		return
	}

	logger.Info("upload session ready",
		logger.String("sid", sid),
		logger.Float64("duration", duration))
	h.renderEditor(w, sid, meta)
}

// EditorHandler renders the trim editor for a prepared session.
func (h *APIHandler) EditorHandler(w http.ResponseWriter, r *http.Request) {
	sid := muxVar(r, "sid")
	if !h.tokens.Verify(sid, token.ScopeEditor, r.URL.Query().Get("sig")) {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	meta, err := h.workspaces.ReadMeta(sid)
	if err != nil {
		if errIsNotFound(err) {
			http.Error(w, "session not found or expired", http.StatusGone)
		} else {
			http.Error(w, "could not read session metadata", http.StatusInternalServerError)
		}
		return
	}
	if !h.workspaces.IsReady(sid) {
		http.Error(w, "session not found or expired", http.StatusGone)
		return
	}

	h.renderEditor(w, sid, meta)
}

func (h *APIHandler) renderEditor(w http.ResponseWriter, sid string, meta model.Meta) {
	renderTemplate(w, editorTemplate, editorData{
		Title:       meta.Title,
		DurationStr: utils.FormatClock(meta.Duration),
		AudioURL:    "/audio/" + sid + "?sig=" + h.tokens.Issue(sid, token.ScopeAudio),
		SID:         sid,
		TrimSig:     h.tokens.Issue(sid, token.ScopeTrim),
		CancelSig:   h.tokens.Issue(sid, token.ScopeCancel),
	})
}

// CancelHandler destroys the session workspace. Advisory for an in-flight
// job: the job is not interrupted, but a later write into the vanished
// workspace fails that job instead of recreating it.
func (h *APIHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	sid := r.FormValue("id")
	if !h.tokens.Verify(sid, token.ScopeCancel, r.FormValue("sig")) {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	h.workspaces.Destroy(sid)
	logger.Info("session cancelled", logger.String("sid", sid))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// DownloadHandler is the legacy direct-download fallback: convert the whole
// source and return it in one request, no editor, no session.
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	url := r.FormValue("url")
	if !sourceURLPattern.MatchString(url) {
		http.Error(w, "invalid URL: must be a youtube.com or youtu.be link", http.StatusBadRequest)
		return
	}
	url = trackingParamPattern.ReplaceAllString(url, "")

	tmpDir, err := os.MkdirTemp("", "cliptone_legacy_")
	if err != nil {
		http.Error(w, "could not allocate temporary storage", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Debug("failed to clean legacy download dir", logger.ErrorField(err))
		}
	}()

	ctx := r.Context()
	_, profile, err := h.extractor.Probe(ctx, url)
	if err != nil {
		http.Error(w, "extraction failed: "+utils.Truncate(err.Error(), userErrorLimit), http.StatusBadGateway)
		return
	}
	rawPath, err := h.extractor.Download(ctx, url, profile, tmpDir, nil)
	if err != nil {
		http.Error(w, "download failed: "+utils.Truncate(err.Error(), userErrorLimit), http.StatusBadGateway)
		return
	}

	mp3Path := filepath.Join(tmpDir, "audio.mp3")
	if err := h.transcoder.ToMP3(rawPath, mp3Path); err != nil {
		http.Error(w, "conversion failed: "+utils.Truncate(err.Error(), userErrorLimit), http.StatusInternalServerError)
		return
	}

	h.serveAttachment(w, mp3Path, "audio.mp3")
}

// serveAttachment streams a file as a download. The caller owns cleanup,
// which must happen after this returns so the file is never removed
// mid-transfer.
func (h *APIHandler) serveAttachment(w http.ResponseWriter, path, name string) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "output file unavailable", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	}

	if _, err := io.Copy(w, f); err != nil {
		logger.Debug("download interrupted", logger.ErrorField(err))
	}
}

// errIsNotFound collapses the store's not-found with a vanished file.
func errIsNotFound(err error) bool {
	return errors.Is(err, workspace.ErrNotFound) || os.IsNotExist(err)
}
