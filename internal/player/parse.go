package player

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/control-theory/venue/internal/model"
)

var knownKinds = map[model.EventKind]struct{}{
	model.EventDispose:          {},
	model.EventError:            {},
	model.EventAbort:            {},
	model.EventStalled:          {},
	model.EventSuspend:          {},
	model.EventEmptied:          {},
	model.EventWaiting:          {},
	model.EventPlaying:          {},
	model.EventCanPlay:          {},
	model.EventCanPlayThrough:   {},
	model.EventSeeking:          {},
	model.EventPlay:             {},
	model.EventPause:            {},
	model.EventVolumeChange:     {},
	model.EventFullscreenChange: {},
	model.EventRateChange:       {},
	model.EventQualityChange:    {},
	model.EventNetworkChange:    {},
}

// ParseEvent decodes one newline-delimited JSON player event.
// The minimal accepted form is {"event":"<kind>"}.
func ParseEvent(line string) (model.PlayerEvent, error) {
	var ev model.PlayerEvent
	dec := json.NewDecoder(strings.NewReader(line))
	if err := dec.Decode(&ev); err != nil {
		return model.PlayerEvent{}, fmt.Errorf("decode player event: %w", err)
	}
	if ev.Kind == "" {
		return model.PlayerEvent{}, fmt.Errorf("player event missing event field")
	}
	if _, ok := knownKinds[ev.Kind]; !ok {
		return model.PlayerEvent{}, fmt.Errorf("unknown player event kind %q", ev.Kind)
	}
	return ev, nil
}
