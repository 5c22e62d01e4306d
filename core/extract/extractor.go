// Package extract turns a remote media URL into metadata and a downloaded
// local file. The upstream source selectively blocks certain automated
// client signatures, so extraction tries an ordered list of client identity
// profiles until one succeeds.
package extract

import (
	"context"

	"cliptone/model"
)

// ClientProfile is one client identity the extractor can impersonate.
type ClientProfile struct {
	Name      string // upstream player client name
	UserAgent string
}

// DefaultProfiles is the ordered fallback list: mobile app clients first,
// since they are blocked least often, then embedded and desktop web.
// Reorder or extend here, not in control flow.
var DefaultProfiles = []ClientProfile{
	{Name: "android", UserAgent: "com.google.android.youtube/19.29.37 (Linux; U; Android 14; en_US)"},
	{Name: "android_music", UserAgent: "com.google.android.apps.youtube.music/7.02.52 (Linux; U; Android 14; en_US)"},
	{Name: "ios", UserAgent: "com.google.ios.youtube/19.29.1 (iPhone16,2; U; CPU iOS 17_5_1 like Mac OS X;)"},
	{Name: "mweb", UserAgent: "Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"},
	{Name: "web", UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"},
}

// ProgressFunc receives download progress as a fraction in [0, 1].
type ProgressFunc func(frac float64)

// Extractor is the extraction engine seen by the job runner.
type Extractor interface {
	// Probe fetches metadata without downloading, trying client profiles in
	// order. It returns the profile that succeeded so the download can reuse
	// it.
	Probe(ctx context.Context, url string) (model.Meta, ClientProfile, error)
	// Download fetches the media into destDir using the given profile and
	// returns the path of the downloaded file.
	Download(ctx context.Context, url string, profile ClientProfile, destDir string, fn ProgressFunc) (string, error)
}
