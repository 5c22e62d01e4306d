package model

import "time"

// Meta describes the prepared audio of one session. Immutable once written.
// A Duration of 0 means "unknown", not an empty clip.
type Meta struct {
	Title    string    `json:"title"`
	Duration float64   `json:"duration"` // seconds
	Created  time.Time `json:"created"`
}

// Status is the state of a background conversion job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether the status ends the job.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Progress is the current state of one session's background job. It exists
// only while the job is in flight or until its terminal event has been
// delivered to a stream consumer.
type Progress struct {
	Progress  int    `json:"progress"` // 0-100
	Message   string `json:"message"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}
