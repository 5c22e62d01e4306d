// Package workspace manages the per-session scratch directories that hold
// one session's media and metadata: the canonical source.mp3, a meta.json
// record and, transiently, the trimmed cut.mp3.
package workspace

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"cliptone/logger"
	"cliptone/model"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a workspace or its metadata is missing or
// only partially written. Readers must treat a half-written workspace as not
// found, never as corrupt-but-present.
var ErrNotFound = errors.New("workspace not found")

const (
	sourceName = "source.mp3"
	cutName    = "cut.mp3"
	metaName   = "meta.json"
)

var sessionIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewID returns a fresh opaque session identifier: 128 random bits as hex.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// Store maps session ids to directories under a scratch root and owns
// TTL-based reclamation.
type Store struct {
	root       string
	ttl        time.Duration
	sweepEvery time.Duration

	mu        sync.Mutex
	lastSweep time.Time
}

// NewStore creates the scratch root if needed and returns a Store.
func NewStore(root string, ttl, sweepEvery time.Duration) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
	}
	return &Store{root: root, ttl: ttl, sweepEvery: sweepEvery}, nil
}

// Dir returns the directory for a session id.
func (s *Store) Dir(sid string) string {
	return filepath.Join(s.root, sid)
}

// SourcePath returns the canonical audio path for a session.
func (s *Store) SourcePath(sid string) string {
	return filepath.Join(s.root, sid, sourceName)
}

// CutPath returns the trimmed output path for a session.
func (s *Store) CutPath(sid string) string {
	return filepath.Join(s.root, sid, cutName)
}

// Create allocates the directory for a session.
func (s *Store) Create(sid string) error {
	if !sessionIDPattern.MatchString(sid) {
		return fmt.Errorf("invalid session id %q", sid)
	}
	if err := os.MkdirAll(s.Dir(sid), 0755); err != nil {
		return fmt.Errorf("failed to allocate workspace: %w", err)
	}
	return nil
}

// WriteMeta persists the metadata record. It fails if the workspace is gone,
// so a job that lost its workspace to a cancel cannot recreate it here.
func (s *Store) WriteMeta(sid string, meta model.Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(sid), metaName), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// ReadMeta loads the metadata record. Any missing or unreadable piece is
// ErrNotFound.
func (s *Store) ReadMeta(sid string) (model.Meta, error) {
	if !sessionIDPattern.MatchString(sid) {
		return model.Meta{}, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.Dir(sid), metaName))
	if err != nil || len(data) == 0 {
		return model.Meta{}, ErrNotFound
	}
	var meta model.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.Meta{}, ErrNotFound
	}
	return meta, nil
}

// IsReady reports whether the session can be edited: the audio exists and is
// non-empty AND the metadata record is readable. One without the other reads
// as not ready.
func (s *Store) IsReady(sid string) bool {
	if !sessionIDPattern.MatchString(sid) {
		return false
	}
	info, err := os.Stat(s.SourcePath(sid))
	if err != nil || info.Size() == 0 {
		return false
	}
	_, err = s.ReadMeta(sid)
	return err == nil
}

// Touch refreshes the session's last-access marker so an active session is
// not reclaimed mid-stream.
func (s *Store) Touch(sid string) {
	if !sessionIDPattern.MatchString(sid) {
		return
	}
	now := time.Now()
	if err := os.Chtimes(s.Dir(sid), now, now); err != nil {
		logger.Debug("failed to touch workspace",
			logger.String("sid", sid),
			logger.ErrorField(err))
	}
}

// Destroy removes the workspace recursively, best effort. A failed delete is
// logged, not surfaced; the scratch host may reclaim the directory on its
// own anyway.
func (s *Store) Destroy(sid string) {
	if !sessionIDPattern.MatchString(sid) {
		return
	}
	if err := os.RemoveAll(s.Dir(sid)); err != nil {
		logger.Warn("failed to destroy workspace",
			logger.String("sid", sid),
			logger.ErrorField(err))
	}
}

// ReclaimExpired deletes workspaces whose last-access marker is older than
// the TTL. It runs opportunistically at the start of user-facing operations
// and rate-limits itself to once per sweep interval, so it never enumerates
// the scratch root on every request under load.
func (s *Store) ReclaimExpired() {
	now := time.Now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) < s.sweepEvery {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to enumerate workspaces", logger.ErrorField(err))
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= s.ttl {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, entry.Name())); err != nil {
			logger.Warn("failed to reclaim expired workspace",
				logger.String("sid", entry.Name()),
				logger.ErrorField(err))
			continue
		}
		logger.Info("reclaimed expired workspace", logger.String("sid", entry.Name()))
	}
}
