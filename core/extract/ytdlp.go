package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"cliptone/core/utils"
	"cliptone/logger"
	"cliptone/model"
)

// ErrAllProfilesFailed wraps the last profile's failure when no client
// identity could extract the source.
var ErrAllProfilesFailed = errors.New("all client profiles failed")

const stderrTail = 400

// rawName is the output template for the downloaded artifact; the extension
// is whatever the upstream format dictates.
const rawName = "raw.%(ext)s"

var downloadPctPattern = regexp.MustCompile(`\[download\]\s+([0-9.]+)%`)

// YtDlp drives the yt-dlp binary.
type YtDlp struct {
	binPath     string
	profiles    []ClientProfile
	cookiesFile string
	maxFileSize int64
}

// NewYtDlp creates an extractor. cookiesFile may be empty; maxFileSize of 0
// means unlimited.
func NewYtDlp(binPath string, profiles []ClientProfile, cookiesFile string, maxFileSize int64) *YtDlp {
	if len(profiles) == 0 {
		profiles = DefaultProfiles
	}
	return &YtDlp{
		binPath:     binPath,
		profiles:    profiles,
		cookiesFile: cookiesFile,
		maxFileSize: maxFileSize,
	}
}

// WriteCookies persists cookies.txt content for yt-dlp and returns its path.
func WriteCookies(dir, content string) (string, error) {
	path := filepath.Join(dir, "yt_cookies.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write cookies file: %w", err)
	}
	return path, nil
}

func (y *YtDlp) commonArgs(profile ClientProfile) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--socket-timeout", "30",
		"--retries", "5",
		"--extractor-retries", "3",
		"--no-check-certificates",
		"--user-agent", profile.UserAgent,
		"--extractor-args", "youtube:player_client=" + profile.Name,
		"--extractor-args", "youtube:skip=hls,dash",
	}
	if y.cookiesFile != "" {
		args = append(args, "--cookies", y.cookiesFile)
	}
	if y.maxFileSize > 0 {
		args = append(args, "--max-filesize", strconv.FormatInt(y.maxFileSize, 10))
	}
	return args
}

func (y *YtDlp) probeArgs(profile ClientProfile, url string) []string {
	args := y.commonArgs(profile)
	args = append(args, "--skip-download", "--dump-single-json", url)
	return args
}

func (y *YtDlp) downloadArgs(profile ClientProfile, destDir, url string) []string {
	args := y.commonArgs(profile)
	args = append(args,
		"-f", "bestaudio/best",
		"--newline",
		"--progress",
		"-o", filepath.Join(destDir, rawName),
		url,
	)
	return args
}

// Probe tries each client profile in order until one yields metadata. If
// every profile fails, the last failure is propagated under
// ErrAllProfilesFailed.
func (y *YtDlp) Probe(ctx context.Context, url string) (model.Meta, ClientProfile, error) {
	var lastErr error
	for _, profile := range y.profiles {
		cmd := exec.CommandContext(ctx, y.binPath, y.probeArgs(profile, url)...)
		var out, stderr bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			lastErr = fmt.Errorf("profile %s: %w: %s",
				profile.Name, err, utils.Tail(stderr.String(), stderrTail))
			logger.Debug("probe failed, trying next client profile",
				logger.String("profile", profile.Name),
				logger.ErrorField(err))
			continue
		}

		var info struct {
			Title    string  `json:"title"`
			Duration float64 `json:"duration"`
		}
		if err := json.Unmarshal(out.Bytes(), &info); err != nil {
			lastErr = fmt.Errorf("profile %s: failed to parse metadata: %w", profile.Name, err)
			continue
		}
		if info.Title == "" {
			info.Title = "audio"
		}
		if info.Duration < 0 {
			info.Duration = 0
		}
		return model.Meta{Title: info.Title, Duration: info.Duration}, profile, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no client profiles configured")
	}
	return model.Meta{}, ClientProfile{}, fmt.Errorf("%w: %s", ErrAllProfilesFailed, lastErr)
}

// Download fetches the best audio format into destDir with the profile that
// already proved to work, reporting byte-level progress parsed from yt-dlp's
// own progress lines.
func (y *YtDlp) Download(ctx context.Context, url string, profile ClientProfile, destDir string, fn ProgressFunc) (string, error) {
	cmd := exec.CommandContext(ctx, y.binPath, y.downloadArgs(profile, destDir, url)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open yt-dlp stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start yt-dlp: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if frac, ok := parseProgressLine(scanner.Text()); ok && fn != nil {
			fn(frac)
		}
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("download failed: %w: %s", err, utils.Tail(stderr.String(), stderrTail))
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "raw.*"))
	if err != nil || len(matches) == 0 {
		return "", errors.New("download produced no file")
	}
	return matches[0], nil
}

// parseProgressLine extracts the completion fraction from a yt-dlp progress
// line such as "[download]  42.3% of 5.02MiB at 1.2MiB/s".
func parseProgressLine(line string) (float64, bool) {
	m := downloadPctPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct / 100, true
}
