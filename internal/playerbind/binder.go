// Package playerbind translates a media player's event stream into structured
// telemetry records, keeping cardinality low: chatty events (play/pause) are
// counted, not recorded, and canplaythrough is suppressed outright.
package playerbind

import (
	"fmt"
	"sync"
	"time"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/player"
	"github.com/control-theory/venue/internal/telemetry"
)

// RecordSink is the write contract the binder needs from a telemetry session.
type RecordSink interface {
	Record(level model.Level, message string, details any)
	CountPlay()
	CountPause()
}

// Clock supplies the current time for rebuffer accounting.
type Clock func() time.Time

// BinderConfig holds optional binder dependencies.
type BinderConfig struct {
	Clock   Clock
	Metrics *telemetry.Metrics
}

// Binder dispatches player events through a fixed binding table so the full
// instrumented surface is auditable in one place. It owns the rebuffer
// tracker; it owns no delivery logic.
type Binder struct {
	sink    RecordSink
	player  player.Player
	clock   Clock
	metrics *telemetry.Metrics

	handlers map[model.EventKind]func(model.PlayerEvent)

	mu            sync.Mutex
	rebufferStart time.Time // zero = no open interval
	totalRebuffer time.Duration
}

// NewBinder wires a binder between a player surface and a record sink.
// Call Bind once after construction to emit the setup-time records.
func NewBinder(sink RecordSink, p player.Player, conf ...BinderConfig) *Binder {
	clock := Clock(time.Now)
	var metrics *telemetry.Metrics
	if len(conf) > 0 {
		if conf[0].Clock != nil {
			clock = conf[0].Clock
		}
		metrics = conf[0].Metrics
	}

	b := &Binder{
		sink:    sink,
		player:  p,
		clock:   clock,
		metrics: metrics,
	}
	b.handlers = map[model.EventKind]func(model.PlayerEvent){
		model.EventDispose:          b.onDispose,
		model.EventError:            b.onError,
		model.EventAbort:            b.anomaly("[ERR] Media load aborted"),
		model.EventStalled:          b.onStalled,
		model.EventSuspend:          b.anomaly("[ERR] suspend"),
		model.EventEmptied:          b.anomaly("[ERR] emptied"),
		model.EventWaiting:          b.onWaiting,
		model.EventPlaying:          b.onPlaying,
		model.EventCanPlay:          b.onCanPlay,
		model.EventCanPlayThrough:   func(model.PlayerEvent) {}, // deliberately silent
		model.EventSeeking:          b.onSeeking,
		model.EventPlay:             func(model.PlayerEvent) { b.sink.CountPlay() },
		model.EventPause:            func(model.PlayerEvent) { b.sink.CountPause() },
		model.EventVolumeChange:     b.onVolumeChange,
		model.EventFullscreenChange: b.onFullscreenChange,
		model.EventRateChange:       b.onRateChange,
		model.EventQualityChange:    b.onQualityChange,
		model.EventNetworkChange:    b.onNetworkChange,
	}
	return b
}

// Bind performs the once-per-setup actions: warn when the quality-level
// capability is absent, and establish the network baseline when the
// connection capability is present.
func (b *Binder) Bind() {
	if _, ok := b.player.(player.QualityLeveler); !ok {
		b.sink.Record(model.LevelWarning, "[QUAL] not supported", nil)
	}
	if _, ok := b.player.(player.NetworkInformer); ok {
		b.logConnection()
	}
}

// Handle dispatches one decoded event through the binding table. Unknown
// kinds are ignored; the parser rejects them upstream.
func (b *Binder) Handle(ev model.PlayerEvent) {
	if h, ok := b.handlers[ev.Kind]; ok {
		h(ev)
	}
}

// TotalRebuffer returns the accumulated rebuffering time so far.
func (b *Binder) TotalRebuffer() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalRebuffer
}

// Rebuffering reports whether a stall interval is currently open.
func (b *Binder) Rebuffering() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.rebufferStart.IsZero()
}

func (b *Binder) onDispose(model.PlayerEvent) {
	b.sink.Record(model.LevelInfo, "player dispose", nil)
}

func (b *Binder) onError(model.PlayerEvent) {
	if err := b.player.Err(); err != nil {
		b.sink.Record(model.LevelError, "[ERR]", err)
		return
	}
	b.sink.Record(model.LevelError, "[ERR]", "Unknown error")
}

// anomaly builds a handler for events treated as playback anomalies rather
// than transient states.
func (b *Binder) anomaly(message string) func(model.PlayerEvent) {
	return func(model.PlayerEvent) {
		b.sink.Record(model.LevelError, message, nil)
	}
}

func (b *Binder) onStalled(ev model.PlayerEvent) {
	b.sink.Record(model.LevelError, "[ERR] stalled", nil)
	b.bufferNetworkWarning("stalled")
}

func (b *Binder) onWaiting(model.PlayerEvent) {
	b.sink.Record(model.LevelInfo, "[BUF] waiting", nil)
	b.mu.Lock()
	if b.rebufferStart.IsZero() {
		b.rebufferStart = b.clock()
	}
	b.mu.Unlock()
	b.bufferNetworkWarning("waiting")
}

func (b *Binder) onPlaying(model.PlayerEvent) {
	b.closeRebuffer()
}

func (b *Binder) onCanPlay(model.PlayerEvent) {
	b.closeRebuffer()
	b.sink.Record(model.LevelInfo, "[BUF] canplay", nil)
}

// closeRebuffer folds an open stall interval into the accumulator and
// reports both the interval and the running total.
func (b *Binder) closeRebuffer() {
	b.mu.Lock()
	if b.rebufferStart.IsZero() {
		b.mu.Unlock()
		return
	}
	interval := b.clock().Sub(b.rebufferStart)
	if interval < 0 {
		interval = 0
	}
	b.rebufferStart = time.Time{}
	b.totalRebuffer += interval
	total := b.totalRebuffer
	b.mu.Unlock()

	b.metrics.AddRebufferSeconds(interval.Seconds())
	b.sink.Record(model.LevelInfo,
		fmt.Sprintf("[BUF] rebuffer %.2fs, total %.2fs", interval.Seconds(), total.Seconds()),
		map[string]float64{
			"seconds":      interval.Seconds(),
			"totalSeconds": total.Seconds(),
		})
}

func (b *Binder) onSeeking(model.PlayerEvent) {
	b.sink.Record(model.LevelInfo, "[BUF] seeking", nil)
}

func (b *Binder) onVolumeChange(model.PlayerEvent) {
	b.sink.Record(model.LevelInfo, "[UI] volume", map[string]any{
		"volume": b.player.Volume(),
		"muted":  b.player.Muted(),
	})
}

func (b *Binder) onFullscreenChange(model.PlayerEvent) {
	b.sink.Record(model.LevelInfo, "[UI] fullscreen", map[string]any{
		"isFullscreen": b.player.Fullscreen(),
	})
}

func (b *Binder) onRateChange(model.PlayerEvent) {
	b.sink.Record(model.LevelInfo, "[UI] rate", map[string]any{
		"playbackRate": b.player.PlaybackRate(),
	})
}

func (b *Binder) onQualityChange(model.PlayerEvent) {
	ql, ok := b.player.(player.QualityLeveler)
	if !ok {
		// Capability absent: warned once at Bind, nothing per event.
		return
	}
	level, selected := ql.SelectedLevel()
	if !selected {
		b.sink.Record(model.LevelWarning, "[QUAL] changed, no level", nil)
		return
	}
	b.sink.Record(model.LevelWarning,
		fmt.Sprintf("[QUAL] %dp, %dbps, id:%s", level.Height, level.Bitrate, level.ID),
		level)
}

func (b *Binder) onNetworkChange(model.PlayerEvent) {
	if _, ok := b.player.(player.NetworkInformer); ok {
		b.logConnection()
	}
}

// logConnection records the current effective type and warns on poor quality.
func (b *Binder) logConnection() {
	effective := b.effectiveType()
	b.sink.Record(model.LevelInfo, fmt.Sprintf("[NET] type: %s", effective), nil)
	if player.PoorNetwork(effective) {
		b.sink.Record(model.LevelWarning, fmt.Sprintf("[NET] poor (%s)", effective), nil)
	}
}

// bufferNetworkWarning enhances stall-ish events with the connection state.
func (b *Binder) bufferNetworkWarning(event string) {
	b.sink.Record(model.LevelWarning,
		fmt.Sprintf("[NET/BUF] %s net: %s", event, b.effectiveType()), nil)
}

func (b *Binder) effectiveType() string {
	if ni, ok := b.player.(player.NetworkInformer); ok {
		return ni.EffectiveType()
	}
	return player.EffectiveTypeUnknown
}
