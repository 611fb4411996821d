// Package player models the observed surface of an external media player.
// This system never implements playback; it watches a player the host
// environment owns, and optional capabilities (adaptive-bitrate levels,
// network information) may or may not be present on a given player.
package player

import "github.com/control-theory/venue/internal/model"

// Player is the capability surface every observed player provides.
type Player interface {
	// Err returns the player's current error object, or nil.
	Err() *model.MediaError
	Volume() float64
	Muted() bool
	Fullscreen() bool
	PlaybackRate() float64
}

// QualityLeveler is the optional adaptive-bitrate capability. Presence is
// discovered by type assertion, never assumed.
type QualityLeveler interface {
	// SelectedLevel returns the currently selected rendition. ok is false
	// when the selection is indeterminate.
	SelectedLevel() (level model.QualityLevel, ok bool)
}

// NetworkInformer is the optional connection-information capability.
type NetworkInformer interface {
	// EffectiveType returns the current effective connection type,
	// e.g. "4g", "3g", "slow-2g", or EffectiveTypeUnknown.
	EffectiveType() string
}

// EffectiveTypeUnknown is reported when no network capability is available.
const EffectiveTypeUnknown = "unknown"

// PoorNetwork reports whether an effective connection type is too slow for
// seamless streaming.
func PoorNetwork(effectiveType string) bool {
	switch effectiveType {
	case "2g", "3g", "slow-2g":
		return true
	}
	return false
}
