package model

import "time"

// Level classifies a telemetry record.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogRecord is one structured telemetry entry describing a UI or playback
// event. It is the canonical type for batching and transport; immutable once
// created.
type LogRecord struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Timestamp string `json:"timestamp"` // RFC 3339 / ISO-8601
}

// NewLogRecord stamps a record with the given wall-clock time.
func NewLogRecord(now time.Time, level Level, message string, details any) LogRecord {
	return LogRecord{
		Level:     level,
		Message:   message,
		Details:   details,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

// EventKind identifies a media-player event on the observed surface.
type EventKind string

const (
	EventDispose          EventKind = "dispose"
	EventError            EventKind = "error"
	EventAbort            EventKind = "abort"
	EventStalled          EventKind = "stalled"
	EventSuspend          EventKind = "suspend"
	EventEmptied          EventKind = "emptied"
	EventWaiting          EventKind = "waiting"
	EventPlaying          EventKind = "playing"
	EventCanPlay          EventKind = "canplay"
	EventCanPlayThrough   EventKind = "canplaythrough"
	EventSeeking          EventKind = "seeking"
	EventPlay             EventKind = "play"
	EventPause            EventKind = "pause"
	EventVolumeChange     EventKind = "volumechange"
	EventFullscreenChange EventKind = "fullscreenchange"
	EventRateChange       EventKind = "ratechange"
	EventQualityChange    EventKind = "qualitychange"
	EventNetworkChange    EventKind = "networkchange"
)

// MediaError mirrors the error object an external player reports.
type MediaError struct {
	Code     int            `json:"code"`
	Message  string         `json:"message"`
	Status   int            `json:"status,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QualityLevel describes one adaptive-bitrate rendition.
type QualityLevel struct {
	Height  int    `json:"height"`
	Bitrate int    `json:"bitrate"`
	ID      string `json:"id"`
}

// PlayerEvent is one decoded media-player event. Optional fields carry the
// payload for the event kinds that have one; pointers distinguish "absent"
// from zero values.
type PlayerEvent struct {
	Kind       EventKind     `json:"event"`
	Volume     *float64      `json:"volume,omitempty"`
	Muted      *bool         `json:"muted,omitempty"`
	Rate       *float64      `json:"rate,omitempty"`
	Fullscreen *bool         `json:"fullscreen,omitempty"`
	Error      *MediaError   `json:"error,omitempty"`
	Level      *QualityLevel `json:"level,omitempty"`
	Network    string        `json:"network,omitempty"` // effective type, e.g. "4g"
}
