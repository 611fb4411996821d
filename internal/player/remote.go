package player

import (
	"sync"

	"github.com/control-theory/venue/internal/model"
)

// RemoteConfig declares which optional capabilities the external player
// advertises. A player without the ABR plugin simply has no quality levels.
type RemoteConfig struct {
	QualityLevels bool
	NetworkInfo   bool
}

// Remote mirrors the last-known state of an external player from its event
// stream, so capability reads reflect the values the player reported.
type Remote struct {
	cfg RemoteConfig

	mu         sync.Mutex
	volume     float64
	muted      bool
	rate       float64
	fullscreen bool
	err        *model.MediaError
	level      *model.QualityLevel
	network    string
}

// NewRemote creates a remote player mirror with sane initial state.
func NewRemote(cfg RemoteConfig) *Remote {
	return &Remote{
		cfg:     cfg,
		volume:  1.0,
		rate:    1.0,
		network: EffectiveTypeUnknown,
	}
}

// Apply folds one decoded event into the mirrored state.
func (r *Remote) Apply(ev model.PlayerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case model.EventError:
		r.err = ev.Error
	case model.EventVolumeChange:
		if ev.Volume != nil {
			r.volume = *ev.Volume
		}
		if ev.Muted != nil {
			r.muted = *ev.Muted
		}
	case model.EventRateChange:
		if ev.Rate != nil {
			r.rate = *ev.Rate
		}
	case model.EventFullscreenChange:
		if ev.Fullscreen != nil {
			r.fullscreen = *ev.Fullscreen
		}
	case model.EventQualityChange:
		r.level = ev.Level
	case model.EventNetworkChange:
		if ev.Network != "" {
			r.network = ev.Network
		}
	case model.EventPlaying, model.EventCanPlay:
		r.err = nil
	}
}

// Surface returns the capability surface this player advertises. The binder
// type-asserts the optional interfaces; a mirror configured without a
// capability yields a surface that genuinely lacks it.
func (r *Remote) Surface() Player {
	core := coreSurface{r}
	switch {
	case r.cfg.QualityLevels && r.cfg.NetworkInfo:
		return fullSurface{qualitySurface{core}}
	case r.cfg.QualityLevels:
		return qualitySurface{core}
	case r.cfg.NetworkInfo:
		return networkSurface{core}
	default:
		return core
	}
}

func (r *Remote) currentErr() *model.MediaError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Remote) currentVolume() (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.volume, r.muted
}

func (r *Remote) currentRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

func (r *Remote) currentFullscreen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fullscreen
}

func (r *Remote) selectedLevel() (model.QualityLevel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level == nil {
		return model.QualityLevel{}, false
	}
	return *r.level, true
}

func (r *Remote) effectiveType() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.network
}

type coreSurface struct{ r *Remote }

func (s coreSurface) Err() *model.MediaError { return s.r.currentErr() }

func (s coreSurface) Volume() float64 {
	v, _ := s.r.currentVolume()
	return v
}

func (s coreSurface) Muted() bool {
	_, m := s.r.currentVolume()
	return m
}

func (s coreSurface) Fullscreen() bool { return s.r.currentFullscreen() }

func (s coreSurface) PlaybackRate() float64 { return s.r.currentRate() }

type qualitySurface struct{ coreSurface }

func (s qualitySurface) SelectedLevel() (model.QualityLevel, bool) {
	return s.r.selectedLevel()
}

type networkSurface struct{ coreSurface }

func (s networkSurface) EffectiveType() string { return s.r.effectiveType() }

type fullSurface struct{ qualitySurface }

func (s fullSurface) EffectiveType() string { return s.r.effectiveType() }
