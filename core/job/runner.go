// Package job runs the extraction -> transcode -> metadata pipeline for one
// session on a background goroutine, publishing updates to the progress
// store and materializing results into the session's workspace.
package job

import (
	"context"
	"fmt"
	"os"
	"time"

	"cliptone/core/extract"
	"cliptone/core/progress"
	"cliptone/core/utils"
	"cliptone/core/workspace"
	"cliptone/logger"
)

// errorLimit bounds the user-visible error message.
const errorLimit = 300

// Converter produces the canonical MP3 from a downloaded artifact.
type Converter interface {
	ToMP3(src, dst string) error
}

// Runner executes one pipeline per session. It mutates only the progress
// store and the contents of the workspace it created; on any unrecoverable
// failure it destroys that workspace so a failed job leaves no partial
// state.
type Runner struct {
	Workspaces *workspace.Store
	Progress   progress.Store
	Extractor  extract.Extractor
	Converter  Converter
}

// Start allocates a session id and launches the pipeline in the background.
// It returns immediately; the caller follows along via the progress store.
func (r *Runner) Start(url string) string {
	sid := workspace.NewID()
	go r.run(sid, url)
	return sid
}

func (r *Runner) run(sid, url string) {
	started := time.Now()
	if err := r.runPipeline(sid, url); err != nil {
		logger.Error("conversion job failed",
			logger.String("sid", sid),
			logger.Duration("elapsed", time.Since(started)),
			logger.ErrorField(err))
		r.Progress.SetError(sid, utils.Truncate(err.Error(), errorLimit))
		// A failed job leaves no partial state behind.
		r.Workspaces.Destroy(sid)
		return
	}
	logger.Info("conversion job complete",
		logger.String("sid", sid),
		logger.Duration("elapsed", time.Since(started)))
}

func (r *Runner) runPipeline(sid, url string) error {
	ctx := context.Background()

	if err := r.Workspaces.Create(sid); err != nil {
		return err
	}
	r.Progress.Set(sid, 5, "starting")

	r.Progress.Set(sid, 10, "extracting media info")
	meta, profile, err := r.Extractor.Probe(ctx, url)
	if err != nil {
		return err
	}
	logger.Info("metadata extracted",
		logger.String("sid", sid),
		logger.String("profile", profile.Name),
		logger.String("title", meta.Title),
		logger.Float64("duration", meta.Duration))

	// Byte progress maps linearly into the 30-70% band of the job.
	r.Progress.Set(sid, 30, "downloading audio")
	rawPath, err := r.Extractor.Download(ctx, url, profile, r.Workspaces.Dir(sid), func(frac float64) {
		pct := 30 + int(frac*40)
		r.Progress.Set(sid, pct, fmt.Sprintf("downloading: %d%%", int(frac*100)))
	})
	if err != nil {
		return err
	}
	r.Progress.Set(sid, 70, "audio downloaded")

	r.Progress.Set(sid, 75, "converting to mp3")
	if err := r.Converter.ToMP3(rawPath, r.Workspaces.SourcePath(sid)); err != nil {
		return err
	}
	// The conversion output was verified non-empty; the raw artifact is no
	// longer needed.
	if err := os.Remove(rawPath); err != nil {
		logger.Debug("failed to remove raw artifact",
			logger.String("sid", sid),
			logger.ErrorField(err))
	}

	meta.Created = time.Now().UTC()
	// Fails if the workspace vanished under us (an explicit cancel); the
	// session is then treated as gone, never recreated.
	if err := r.Workspaces.WriteMeta(sid, meta); err != nil {
		return err
	}

	r.Progress.SetComplete(sid, "audio ready")
	return nil
}
