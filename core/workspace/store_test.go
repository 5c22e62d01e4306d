package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cliptone/model"
)

func newTestStore(t *testing.T, ttl, sweepEvery time.Duration) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), ttl, sweepEvery)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 32 {
			t.Fatalf("id %q has length %d, want 32", id, len(id))
		}
		if !sessionIDPattern.MatchString(id) {
			t.Fatalf("id %q is not lowercase hex", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestMetaRoundTrip(t *testing.T) {
	s := newTestStore(t, time.Hour, time.Hour)
	sid := NewID()
	if err := s.Create(sid); err != nil {
		t.Fatalf("create: %v", err)
	}

	meta := model.Meta{Title: "a song", Duration: 123.5, Created: time.Now().UTC()}
	if err := s.WriteMeta(sid, meta); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	got, err := s.ReadMeta(sid)
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if got.Title != meta.Title || got.Duration != meta.Duration {
		t.Fatalf("meta mismatch: got %#v want %#v", got, meta)
	}
}

func TestReadMetaMissing(t *testing.T) {
	s := newTestStore(t, time.Hour, time.Hour)

	if _, err := s.ReadMeta(NewID()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRejectsBadID(t *testing.T) {
	s := newTestStore(t, time.Hour, time.Hour)

	for _, sid := range []string{"", "short", "../escape", "ABCDEF0123456789ABCDEF0123456789"} {
		if err := s.Create(sid); err == nil {
			t.Fatalf("create accepted bad id %q", sid)
		}
	}
}

func TestIsReadyRequiresBothArtifacts(t *testing.T) {
	s := newTestStore(t, time.Hour, time.Hour)
	sid := NewID()
	if err := s.Create(sid); err != nil {
		t.Fatalf("create: %v", err)
	}

	if s.IsReady(sid) {
		t.Fatalf("empty workspace reported ready")
	}

	// Audio only.
	if err := os.WriteFile(s.SourcePath(sid), []byte("mp3data"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if s.IsReady(sid) {
		t.Fatalf("ready with audio but no metadata")
	}

	// Both present.
	if err := s.WriteMeta(sid, model.Meta{Title: "t", Created: time.Now()}); err != nil {
		t.Fatalf("write meta: %v", err)
	}
	if !s.IsReady(sid) {
		t.Fatalf("not ready with both artifacts present")
	}

	// Metadata only.
	if err := os.Remove(s.SourcePath(sid)); err != nil {
		t.Fatalf("remove source: %v", err)
	}
	if s.IsReady(sid) {
		t.Fatalf("ready with metadata but no audio")
	}

	// Empty audio counts as missing.
	if err := os.WriteFile(s.SourcePath(sid), nil, 0644); err != nil {
		t.Fatalf("write empty source: %v", err)
	}
	if s.IsReady(sid) {
		t.Fatalf("ready with empty audio file")
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	s := newTestStore(t, time.Hour, time.Hour)
	sid := NewID()
	if err := s.Create(sid); err != nil {
		t.Fatalf("create: %v", err)
	}

	s.Destroy(sid)
	if _, err := os.Stat(s.Dir(sid)); !os.IsNotExist(err) {
		t.Fatalf("workspace still present after destroy")
	}
	// Destroying again must not panic or error out.
	s.Destroy(sid)
}

func expireWorkspace(t *testing.T, s *Store, sid string, age time.Duration) {
	t.Helper()
	old := time.Now().Add(-age)
	if err := os.Chtimes(s.Dir(sid), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestReclaimExpiredDeletesOldWorkspaces(t *testing.T) {
	s := newTestStore(t, time.Minute, time.Hour)

	expired := NewID()
	fresh := NewID()
	for _, sid := range []string{expired, fresh} {
		if err := s.Create(sid); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	expireWorkspace(t, s, expired, 10*time.Minute)

	s.ReclaimExpired()

	if _, err := os.Stat(s.Dir(expired)); !os.IsNotExist(err) {
		t.Fatalf("expired workspace survived the sweep")
	}
	if _, err := os.Stat(s.Dir(fresh)); err != nil {
		t.Fatalf("fresh workspace was reclaimed: %v", err)
	}
}

func TestReclaimExpiredIsRateLimited(t *testing.T) {
	s := newTestStore(t, time.Minute, time.Hour)

	first := NewID()
	if err := s.Create(first); err != nil {
		t.Fatalf("create: %v", err)
	}
	expireWorkspace(t, s, first, 10*time.Minute)

	s.ReclaimExpired()
	if _, err := os.Stat(s.Dir(first)); !os.IsNotExist(err) {
		t.Fatalf("first sweep did not run")
	}

	// A second call within the sweep interval must not enumerate again, so
	// this expired workspace survives.
	second := NewID()
	if err := s.Create(second); err != nil {
		t.Fatalf("create: %v", err)
	}
	expireWorkspace(t, s, second, 10*time.Minute)

	s.ReclaimExpired()
	if _, err := os.Stat(s.Dir(second)); err != nil {
		t.Fatalf("rate-limited sweep still enumerated: %v", err)
	}
}

func TestTouchRefreshesMarker(t *testing.T) {
	s := newTestStore(t, time.Minute, time.Hour)
	sid := NewID()
	if err := s.Create(sid); err != nil {
		t.Fatalf("create: %v", err)
	}
	expireWorkspace(t, s, sid, 10*time.Minute)

	s.Touch(sid)

	info, err := os.Stat(s.Dir(sid))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if time.Since(info.ModTime()) > time.Minute {
		t.Fatalf("touch did not refresh mtime: %v", info.ModTime())
	}
}

func TestPathsLiveUnderRoot(t *testing.T) {
	s := newTestStore(t, time.Hour, time.Hour)
	sid := NewID()

	for _, p := range []string{s.Dir(sid), s.SourcePath(sid), s.CutPath(sid)} {
		if !filepath.IsAbs(p) && filepath.IsAbs(s.root) {
			t.Fatalf("path %q not rooted", p)
		}
	}
	if s.SourcePath(sid) != filepath.Join(s.Dir(sid), "source.mp3") {
		t.Fatalf("unexpected source path %q", s.SourcePath(sid))
	}
	if s.CutPath(sid) != filepath.Join(s.Dir(sid), "cut.mp3") {
		t.Fatalf("unexpected cut path %q", s.CutPath(sid))
	}
}
