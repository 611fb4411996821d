// Package playersource accepts newline-delimited JSON player events from the
// host environment. Each embedding surface is one source; the venue engine
// multiplexes all of them into a single envelope stream.
package playersource

import "github.com/control-theory/venue/internal/model"

// Source is a unified interface for all player-event input surfaces.
type Source interface {
	Events() <-chan model.PlayerEnvelope // read-only channel of raw event lines
	Stop()                               // graceful shutdown
	Name() string                        // "tcp", "stdin"
}
