package telemetry

import (
	"time"

	"github.com/google/uuid"

	"github.com/control-theory/venue/internal/model"
)

// Session is one explicitly constructed telemetry session: created when a
// viewer session starts, torn down on unmount. It owns the batcher and the
// play/pause counters, so mounting a second player never leaks state across
// sessions.
type Session struct {
	ID        string
	StartedAt time.Time

	batcher *Batcher
	metrics *Metrics
}

// NewSession creates a session with a fresh batcher delivering to sink.
func NewSession(sink Sink, metrics *Metrics, conf ...BatcherConfig) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		batcher:   NewBatcher(sink, metrics, conf...),
		metrics:   metrics,
	}
}

// Record appends one telemetry record to the session batch.
func (s *Session) Record(level model.Level, message string, details any) {
	s.batcher.Record(level, message, details)
}

// CountPlay increments the session play counter.
func (s *Session) CountPlay() { s.batcher.CountPlay() }

// CountPause increments the session pause counter.
func (s *Session) CountPause() { s.batcher.CountPause() }

// Flush forces a batch emission.
func (s *Session) Flush() { s.batcher.Flush() }

// Close flushes pending records and stops delivery.
func (s *Session) Close() { s.batcher.Stop() }

// Metrics exposes the pipeline metrics registry for this session.
func (s *Session) Metrics() *Metrics { return s.metrics }

// SessionStats is a read-surface snapshot of session activity.
type SessionStats struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Stats
}

// Snapshot returns current session stats.
func (s *Session) Snapshot() SessionStats {
	return SessionStats{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Stats:     s.batcher.Snapshot(),
	}
}
