package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/control-theory/venue/internal/model"
)

func TestHTTPSinkPostsJSONArray(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL + "/api/log-event")
	records := []model.LogRecord{
		model.NewLogRecord(time.Now(), model.LevelInfo, "[BUF] waiting", nil),
		model.NewLogRecord(time.Now(), model.LevelError, "[ERR] stalled", nil),
	}
	if err := sink.Send(context.Background(), records); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	var decoded []model.LogRecord
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body is not a JSON array: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Message != "[BUF] waiting" {
		t.Errorf("decoded batch = %+v", decoded)
	}
}

func TestHTTPSinkRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL)
	err := sink.Send(context.Background(), []model.LogRecord{
		model.NewLogRecord(time.Now(), model.LevelInfo, "x", nil),
	})
	if err == nil {
		t.Fatal("Send accepted a 502 response")
	}
}

func TestRetryQueueDropsOldestOnOverflow(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	q := newRetryQueue(sink, nil, RetryConfig{QueueSize: 1, MaxAttempts: 1, Backoff: time.Millisecond})

	first := []model.LogRecord{model.NewLogRecord(time.Now(), model.LevelInfo, "first", nil)}
	second := []model.LogRecord{model.NewLogRecord(time.Now(), model.LevelInfo, "second", nil)}
	third := []model.LogRecord{model.NewLogRecord(time.Now(), model.LevelInfo, "third", nil)}

	q.enqueue(first) // picked up by the worker, blocks in Send
	waitFor(t, "worker to pick up first batch", func() bool { return sink.inFlight() })
	q.enqueue(second) // sits in the queue
	q.enqueue(third)  // overflow: second is dropped, third lands

	close(block)
	q.stop()

	got := sink.messages()
	if len(got) != 2 || got[0] != "first" || got[1] != "third" {
		t.Errorf("delivered = %v, want [first third] with second dropped", got)
	}
}

func TestRetryQueueRetriesUntilAttemptCap(t *testing.T) {
	sink := &flakySink{failures: 2}
	q := newRetryQueue(sink, nil, RetryConfig{MaxAttempts: 3, Backoff: time.Millisecond})

	q.enqueue([]model.LogRecord{model.NewLogRecord(time.Now(), model.LevelInfo, "x", nil)})
	q.stop()

	if got := sink.attemptCount(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if got := sink.deliveredCount(); got != 1 {
		t.Errorf("delivered = %d, want 1", got)
	}
}

func TestRetryQueueDropsAfterFinalAttempt(t *testing.T) {
	sink := &flakySink{failures: 10}
	q := newRetryQueue(sink, nil, RetryConfig{MaxAttempts: 2, Backoff: time.Millisecond})

	q.enqueue([]model.LogRecord{model.NewLogRecord(time.Now(), model.LevelInfo, "x", nil)})
	q.stop()

	if got := sink.attemptCount(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
	if got := sink.deliveredCount(); got != 0 {
		t.Errorf("delivered = %d, want 0 (dropped)", got)
	}
}

type flakySink struct {
	mu        sync.Mutex
	failures  int
	attempts  int
	delivered int
}

func (s *flakySink) Name() string { return "flaky" }

func (s *flakySink) Send(_ context.Context, _ []model.LogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.delivered++
	return nil
}

func (s *flakySink) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *flakySink) deliveredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

type blockingSink struct {
	mu      sync.Mutex
	active  bool
	release chan struct{}
	sent    []string
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Send(_ context.Context, records []model.LogRecord) error {
	s.mu.Lock()
	s.active = true
	s.mu.Unlock()
	<-s.release
	s.mu.Lock()
	for _, r := range records {
		s.sent = append(s.sent, r.Message)
	}
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) inFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *blockingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}
