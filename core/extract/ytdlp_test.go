package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseProgressLine(t *testing.T) {
	cases := []struct {
		line string
		frac float64
		ok   bool
	}{
		{"[download]  42.3% of 5.02MiB at 1.2MiB/s ETA 00:03", 0.423, true},
		{"[download] 100% of 5.02MiB in 00:04", 1.0, true},
		{"[download]   0.0% of ~3.1MiB", 0.0, true},
		{"[download] Destination: raw.webm", 0, false},
		{"[info] extracting URL", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		frac, ok := parseProgressLine(c.line)
		if ok != c.ok {
			t.Fatalf("parseProgressLine(%q) ok = %v, want %v", c.line, ok, c.ok)
		}
		if ok && (frac < c.frac-1e-9 || frac > c.frac+1e-9) {
			t.Fatalf("parseProgressLine(%q) = %v, want %v", c.line, frac, c.frac)
		}
	}
}

func TestProbeArgsCarryProfileIdentity(t *testing.T) {
	y := NewYtDlp("yt-dlp", nil, "", 0)
	p := DefaultProfiles[0]

	joined := strings.Join(y.probeArgs(p, "https://youtu.be/x"), " ")
	if !strings.Contains(joined, "--user-agent "+p.UserAgent) {
		t.Fatalf("user agent missing: %q", joined)
	}
	if !strings.Contains(joined, "youtube:player_client="+p.Name) {
		t.Fatalf("player client missing: %q", joined)
	}
	if !strings.Contains(joined, "--skip-download") {
		t.Fatalf("probe must not download: %q", joined)
	}
	if !strings.Contains(joined, "--no-playlist") {
		t.Fatalf("playlist expansion not disabled: %q", joined)
	}
}

func TestDownloadArgs(t *testing.T) {
	y := NewYtDlp("yt-dlp", nil, "/tmp/cookies.txt", 1024)
	p := DefaultProfiles[2]

	args := y.downloadArgs(p, "/work/sid", "https://youtu.be/x")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-f bestaudio/best") {
		t.Fatalf("format selection missing: %q", joined)
	}
	if !strings.Contains(joined, "--cookies /tmp/cookies.txt") {
		t.Fatalf("cookies not passed: %q", joined)
	}
	if !strings.Contains(joined, "--max-filesize 1024") {
		t.Fatalf("size cap not passed: %q", joined)
	}
	if !strings.Contains(joined, filepath.Join("/work/sid", "raw.%(ext)s")) {
		t.Fatalf("output template missing: %q", joined)
	}
	if args[len(args)-1] != "https://youtu.be/x" {
		t.Fatalf("url not last: %v", args)
	}
}

func TestDefaultProfilesOrdering(t *testing.T) {
	// Mobile app identities come before web ones; the order is the fallback
	// strategy.
	if len(DefaultProfiles) < 2 {
		t.Fatalf("expected multiple profiles, got %d", len(DefaultProfiles))
	}
	if DefaultProfiles[0].Name != "android" {
		t.Fatalf("first profile is %q, want android", DefaultProfiles[0].Name)
	}
	if DefaultProfiles[len(DefaultProfiles)-1].Name != "web" {
		t.Fatalf("last profile is %q, want web", DefaultProfiles[len(DefaultProfiles)-1].Name)
	}
	for _, p := range DefaultProfiles {
		if p.UserAgent == "" {
			t.Fatalf("profile %q has no user agent", p.Name)
		}
	}
}

func TestWriteCookies(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteCookies(dir, "# Netscape HTTP Cookie File\n")
	if err != nil {
		t.Fatalf("write cookies: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Netscape") {
		t.Fatalf("unexpected content: %q", data)
	}
}
