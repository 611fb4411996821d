package model

// PlayerEnvelope carries one raw player-event line with source metadata.
// It is the transport contract between event sources and the binder.
type PlayerEnvelope struct {
	Source string
	Line   string
}
