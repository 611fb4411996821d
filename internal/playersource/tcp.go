package playersource

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
)

const (
	// DefaultEventChannelSize is the default buffer size for the incoming
	// event line channel.
	DefaultEventChannelSize = 10_000

	// DefaultMaxLineSize is the default maximum size (in bytes) of a single
	// event line. Player events are small; oversized lines are hostile input.
	DefaultMaxLineSize = 64 * 1024
)

// TCPConfig holds tunable parameters for the TCP source.
type TCPConfig struct {
	EventChannelSize int
	MaxLineSize      int
}

// TCPSource listens for newline-delimited JSON player events over TCP.
// A browser shim or test harness connects and writes one event per line.
type TCPSource struct {
	listener    net.Listener
	addr        string
	eventChan   chan model.PlayerEnvelope
	maxLineSize int
	ctx         context.Context
	cancel      context.CancelFunc
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewTCPSource creates a TCP source. Default addr is "127.0.0.1:4000".
func NewTCPSource(addr string, conf ...TCPConfig) *TCPSource {
	if addr == "" {
		addr = "127.0.0.1:4000"
	}
	channelSize := DefaultEventChannelSize
	maxLineSize := DefaultMaxLineSize
	if len(conf) > 0 {
		if conf[0].EventChannelSize > 0 {
			channelSize = conf[0].EventChannelSize
		}
		if conf[0].MaxLineSize > 0 {
			maxLineSize = conf[0].MaxLineSize
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPSource{
		addr:        addr,
		eventChan:   make(chan model.PlayerEnvelope, channelSize),
		maxLineSize: maxLineSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins accepting TCP connections.
func (s *TCPSource) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					continue
				}
			}
			s.wg.Add(1)
			go s.handleConnection(conn)
		}
	}()

	return nil
}

func (s *TCPSource) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, s.maxLineSize)
	scanner.Buffer(buf, s.maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		select {
		case s.eventChan <- model.PlayerEnvelope{Source: s.Name(), Line: line}:
		case <-s.ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			log.WithFields(log.Fields{
				"remote": conn.RemoteAddr().String(),
				"max":    s.maxLineSize,
			}).Warn("dropping connection, event line exceeds max size")
			return
		}
		log.WithFields(log.Fields{
			"remote": conn.RemoteAddr().String(),
			"error":  err,
		}).Warn("player event connection read error")
	}
}

// Stop gracefully shuts down the TCP source.
func (s *TCPSource) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		close(s.eventChan)
	})
}

// Events returns the channel of received event envelopes.
func (s *TCPSource) Events() <-chan model.PlayerEnvelope {
	return s.eventChan
}

func (s *TCPSource) Name() string { return "tcp" }

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *TCPSource) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
