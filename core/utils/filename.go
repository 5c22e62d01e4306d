package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	forbiddenChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	multipleSpaces = regexp.MustCompile(`\s+`)
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9 _\-\.]`)
)

// SafeDownloadName sanitizes a title into a filename base usable in a
// Content-Disposition header.
func SafeDownloadName(base string) string {
	if base == "" {
		base = "audio"
	}
	base = forbiddenChars.ReplaceAllString(base, "_")
	base = multipleSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)
	if base == "" {
		base = "audio"
	}
	return base
}

// TitleFromFilename derives a display title from an uploaded filename:
// basename, extension stripped, unsafe characters removed. Falls back to
// "audio" when nothing usable remains.
func TitleFromFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeChars.ReplaceAllString(base, "")
	base = multipleSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		return "audio"
	}
	return base
}

// Truncate bounds a user-visible message so internal diagnostics cannot leak
// as a full dump.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Tail returns at most the last n bytes of s. Used to keep only the end of
// tool stderr, where ffmpeg and yt-dlp put the actual failure.
func Tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
