// Package audio wraps the external ffmpeg/ffprobe tools: canonical MP3
// conversion, range trimming and duration probing.
package audio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"cliptone/core/utils"
	"cliptone/logger"
)

// stderrTail bounds how much tool output ends up in an error message.
const stderrTail = 400

// TrimOptions controls how a trim is performed.
type TrimOptions struct {
	// Precise re-encodes through the filter graph for sample-accurate cuts.
	// When false the cut falls on the nearest frame boundary but runs without
	// re-encoding.
	Precise bool
	// Fades applies 5 ms boundary fades. Only honored with Precise.
	Fades bool
}

// FFmpegProcessor drives ffmpeg and ffprobe.
type FFmpegProcessor struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
func NewFFmpegProcessor(ffmpegPath, ffprobePath string) *FFmpegProcessor {
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// ToMP3 converts any input with an audio stream into the canonical MP3.
func (p *FFmpegProcessor) ToMP3(src, dst string) error {
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", src,
		"-vn",
		"-c:a", "libmp3lame",
		"-q:a", "0",
		dst,
	}
	if err := p.run(args, dst); err != nil {
		return fmt.Errorf("mp3 conversion failed: %w", err)
	}
	return nil
}

// Trim writes the [start, end) range of src into dst. Range validation is
// the caller's job; this only guards against an inverted range slipping
// through.
func (p *FFmpegProcessor) Trim(src, dst string, start, end float64, opts TrimOptions) error {
	if end <= start {
		return fmt.Errorf("invalid trim range: end %.3f not after start %.3f", end, start)
	}
	args := buildTrimArgs(src, dst, start, end, opts)
	if err := p.run(args, dst); err != nil {
		return fmt.Errorf("trim failed: %w", err)
	}
	return nil
}

// buildTrimArgs constructs the ffmpeg argument list for a trim.
func buildTrimArgs(src, dst string, start, end float64, opts TrimOptions) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}

	if opts.Precise {
		filters := []string{
			fmt.Sprintf("atrim=start=%.6f:end=%.6f", start, end),
			"asetpts=PTS-STARTPTS",
		}
		if opts.Fades {
			outStart := end - start - 0.005
			if outStart < 0 {
				outStart = 0
			}
			filters = append(filters,
				"afade=t=in:d=0.005",
				fmt.Sprintf("afade=t=out:st=%.6f:d=0.005", outStart),
			)
		}
		filterArg := filters[0]
		for _, f := range filters[1:] {
			filterArg += "," + f
		}
		args = append(args,
			"-i", src,
			"-af", filterArg,
			"-c:a", "libmp3lame",
			"-q:a", "0",
			dst,
		)
		return args
	}

	// Fast path: stream copy without re-encoding.
	args = append(args,
		"-ss", fmt.Sprintf("%.6f", start),
		"-to", fmt.Sprintf("%.6f", end),
		"-i", src,
		"-c", "copy",
		dst,
	)
	return args
}

// run executes ffmpeg and verifies it produced a non-empty output file. An
// exit status of zero with an empty output still counts as failure.
func (p *FFmpegProcessor) run(args []string, dst string) error {
	cmd := exec.Command(p.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		if info, statErr := os.Stat(dst); statErr == nil && info.Size() > 0 {
			return nil
		}
		err = fmt.Errorf("ffmpeg produced no output")
	}
	logger.Error("ffmpeg failed",
		logger.String("output", dst),
		logger.ErrorField(err))
	return fmt.Errorf("%w: %s", err, utils.Tail(stderr.String(), stderrTail))
}

// ProbeDuration returns the duration of a media file in seconds, or 0 when
// ffprobe cannot determine it. Duration 0 means "unknown", which trim
// validation tolerates.
func (p *FFmpegProcessor) ProbeDuration(file string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		file,
	}

	cmd := exec.Command(p.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed for %s: %w: %s",
			file, err, utils.Tail(stderr.String(), stderrTail))
	}

	var probeData struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if probeData.Format.Duration == "" {
		return 0, nil
	}
	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil || duration < 0 {
		return 0, nil
	}
	return duration, nil
}
