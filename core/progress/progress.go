// Package progress tracks the state of in-flight background jobs, keyed by
// session id. The job runner writes, the push streams read; a record exists
// only while a job is running or until its terminal event has been delivered.
package progress

import (
	"sync"
	"time"

	"cliptone/model"
)

// Store is the progress channel between the job runner and stream consumers.
// A record moves absent -> processing -> {complete|error}; Clear returns it
// to absent once the terminal event has been delivered. Implementations must
// not step a terminal record back to processing.
type Store interface {
	// Set upserts a processing record. Callers keep progress monotonic; the
	// store is last-write-wins.
	Set(sid string, pct int, msg string)
	// SetError marks the session failed.
	SetError(sid, msg string)
	// SetComplete marks the session done and pins progress to 100.
	SetComplete(sid, msg string)
	// Get returns a snapshot of the record, or ok=false when absent.
	Get(sid string) (model.Progress, bool)
	// Clear removes the record, bounding memory to in-flight sessions.
	Clear(sid string)
}

// MemoryStore is the in-process Store. A single RWMutex guards the map; all
// critical sections are O(1) copies, so readers of different sessions do not
// serialize behind a slow writer.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.Progress
}

// NewMemoryStore creates an empty in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.Progress)}
}

func (s *MemoryStore) Set(sid string, pct int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[sid]; ok && cur.Status.Terminal() {
		return
	}
	s.records[sid] = model.Progress{
		Progress:  pct,
		Message:   msg,
		Status:    model.StatusProcessing,
		Timestamp: time.Now().Unix(),
	}
}

func (s *MemoryStore) SetError(sid, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[sid]; ok && cur.Status.Terminal() {
		return
	}
	rec := s.records[sid]
	rec.Status = model.StatusError
	rec.Error = msg
	rec.Timestamp = time.Now().Unix()
	s.records[sid] = rec
}

func (s *MemoryStore) SetComplete(sid, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.records[sid]; ok && cur.Status.Terminal() {
		return
	}
	s.records[sid] = model.Progress{
		Progress:  100,
		Message:   msg,
		Status:    model.StatusComplete,
		Timestamp: time.Now().Unix(),
	}
}

func (s *MemoryStore) Get(sid string) (model.Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sid]
	return rec, ok
}

func (s *MemoryStore) Clear(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sid)
}
