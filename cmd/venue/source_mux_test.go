package main

import (
	"context"
	"testing"
	"time"

	"github.com/control-theory/venue/internal/model"
)

type fakeSource struct {
	name    string
	events  chan model.PlayerEnvelope
	stopped chan struct{}
}

func newFakeSource(name string, buffer int) *fakeSource {
	return &fakeSource{
		name:    name,
		events:  make(chan model.PlayerEnvelope, buffer),
		stopped: make(chan struct{}),
	}
}

func (s *fakeSource) Events() <-chan model.PlayerEnvelope { return s.events }
func (s *fakeSource) Name() string                        { return s.name }

func (s *fakeSource) Stop() {
	select {
	case <-s.stopped:
		return
	default:
		close(s.stopped)
		close(s.events)
	}
}

func TestSourceMultiplexer_ForwardsFromAllSources(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newFakeSource("a", 2)
	b := newFakeSource("b", 2)

	mux := NewSourceMultiplexer(ctx, []NamedEventSource{a, b}, 16)
	mux.Start()
	defer mux.Stop()

	a.events <- model.PlayerEnvelope{Source: "a", Line: `{"event":"play"}`}
	b.events <- model.PlayerEnvelope{Source: "b", Line: `{"event":"pause"}`}
	a.Stop()
	b.Stop()

	got := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case env, ok := <-mux.Events():
			if !ok {
				t.Fatalf("multiplexer closed before receiving expected events: %+v", got)
			}
			got[env.Line] = true
		case <-timeout:
			t.Fatalf("timed out waiting for multiplexed events: %+v", got)
		}
	}

	if !got[`{"event":"play"}`] || !got[`{"event":"pause"}`] {
		t.Fatalf("missing expected events: %+v", got)
	}
}

func TestSourceMultiplexer_DropsEmptyLines(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFakeSource("x", 4)
	mux := NewSourceMultiplexer(ctx, []NamedEventSource{src}, 8)
	mux.Start()
	defer mux.Stop()

	src.events <- model.PlayerEnvelope{Source: "x", Line: ""}
	src.events <- model.PlayerEnvelope{Source: "x", Line: `{"event":"seeking"}`}
	src.Stop()

	select {
	case env := <-mux.Events():
		if env.Line != `{"event":"seeking"}` {
			t.Fatalf("unexpected event %q", env.Line)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSourceMultiplexer_StopInvokesSourceStop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := newFakeSource("x", 1)
	mux := NewSourceMultiplexer(ctx, []NamedEventSource{src}, 8)
	mux.Start()

	mux.Stop()

	select {
	case <-src.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("expected source Stop() to be called")
	}
}
