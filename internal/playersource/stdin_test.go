package playersource

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

// blockingReader returns a reader with no data available and a cleanup func.
func blockingReader() (io.Reader, func()) {
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	return r, func() {
		_ = w.Close()
		_ = r.Close()
	}
}

func TestStdinSourceReadsLines(t *testing.T) {
	in := strings.NewReader("{\"event\":\"waiting\"}\n\n{\"event\":\"canplay\"}\n")
	src := newStdinSourceWithReader(context.Background(), in)
	defer src.Stop()

	var lines []string
	timeout := time.After(2 * time.Second)
	for len(lines) < 2 {
		select {
		case env, ok := <-src.Events():
			if !ok {
				t.Fatalf("channel closed early, got %v", lines)
			}
			if env.Source != "stdin" {
				t.Fatalf("source = %q, want stdin", env.Source)
			}
			lines = append(lines, env.Line)
		case <-timeout:
			t.Fatalf("timed out, got %v", lines)
		}
	}
}

func TestStdinSourceStopClosesEvents(t *testing.T) {
	blocked, unblock := blockingReader()
	defer unblock()

	src := newStdinSourceWithReader(context.Background(), blocked)
	src.Stop()

	select {
	case _, ok := <-src.Events():
		if ok {
			t.Fatal("expected events channel to be closed after Stop")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events channel to close")
	}
}

func TestStdinSourceStopIsIdempotent(t *testing.T) {
	blocked, unblock := blockingReader()
	defer unblock()

	src := newStdinSourceWithReader(context.Background(), blocked)
	src.Stop()
	src.Stop()
}
