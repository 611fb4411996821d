package playersource

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
)

const (
	// DefaultStdinBuffer is the default channel buffer size for stdin events.
	DefaultStdinBuffer = 5_000
)

// StdinConfig holds tunable parameters for the stdin source.
type StdinConfig struct {
	BufferSize  int
	MaxLineSize int
}

// StdinSource reads player event lines from stdin. Useful for piping a
// recorded session through the engine.
type StdinSource struct {
	ch       chan model.PlayerEnvelope
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewStdinSource creates a StdinSource that reads stdin in a background
// goroutine.
func NewStdinSource(ctx context.Context, conf ...StdinConfig) *StdinSource {
	return newStdinSourceWithReader(ctx, os.Stdin, conf...)
}

func newStdinSourceWithReader(ctx context.Context, r io.Reader, conf ...StdinConfig) *StdinSource {
	bufferSize := DefaultStdinBuffer
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].BufferSize > 0 {
			bufferSize = conf[0].BufferSize
		}
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &StdinSource{
		ch:     make(chan model.PlayerEnvelope, bufferSize),
		cancel: cancel,
	}
	go s.read(ctx, r, maxLineSize)
	return s
}

func (s *StdinSource) read(ctx context.Context, r io.Reader, maxLineSize int) {
	defer close(s.ch)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, maxLineSize)
	scanner.Buffer(buf, maxLineSize)

	// A single scanning goroutine feeds results so cancellation is observed
	// without spawning a goroutine per line.
	type scanResult struct {
		line string
		ok   bool
	}
	results := make(chan scanResult)
	go func() {
		defer close(results)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case results <- scanResult{line: line, ok: true}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				log.WithField("max", maxLineSize).Warn("stdin event line exceeded max size, stopping stdin source")
				return
			}
			log.WithField("error", err).Warn("stdin scanner error")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-results:
			if !ok || !r.ok {
				return
			}
			select {
			case s.ch <- model.PlayerEnvelope{Source: s.Name(), Line: r.line}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *StdinSource) Events() <-chan model.PlayerEnvelope { return s.ch }
func (s *StdinSource) Stop()                               { s.stopOnce.Do(s.cancel) }
func (s *StdinSource) Name() string                        { return "stdin" }
