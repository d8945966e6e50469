// Package gesture turns per-frame hand landmarks into cursor positions and
// pointer gestures: smoothing, coordinate mapping, pinch/fist classification,
// wave detection and the Idle/Clicking/Scrolling state machine.
//
// Everything here is pure and free of any rendering surface; the engine
// package owns side effects.
package gesture

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid gesture config")

// Config holds every tunable of the gesture pipeline.
type Config struct {
	// SmoothingFactor is the lerp blend applied to the cursor each frame (0,1].
	SmoothingFactor float64 `yaml:"smoothing_factor" json:"smoothing_factor"`
	// Margin is trimmed from each edge of the detector frame before rescaling [0,0.5).
	Margin float64 `yaml:"margin" json:"margin"`
	// MirrorX flips the horizontal axis to match a mirrored camera view.
	MirrorX bool `yaml:"mirror_x" json:"mirror_x"`

	// PinchEnabled turns on pinch-to-click. The fist-only variant disables it.
	PinchEnabled bool `yaml:"pinch_enabled" json:"pinch_enabled"`
	// PinchThreshold is the thumb-tip to index-tip distance below which the hand pinches.
	PinchThreshold float64 `yaml:"pinch_threshold" json:"pinch_threshold"`

	// FistThreshold is the mean fingertip-to-wrist distance below which a fist engages.
	FistThreshold float64 `yaml:"fist_threshold" json:"fist_threshold"`
	// FistReleaseThreshold applies while already scrolling; must be >= FistThreshold.
	FistReleaseThreshold float64 `yaml:"fist_release_threshold" json:"fist_release_threshold"`
	// ScrollSensitivity scales the per-frame vertical delta into a scroll offset.
	ScrollSensitivity float64 `yaml:"scroll_sensitivity" json:"scroll_sensitivity"`

	// WaveEnabled turns on wave-to-go-back.
	WaveEnabled bool `yaml:"wave_enabled" json:"wave_enabled"`
	// WaveHistorySize is the wrist-x ring buffer capacity.
	WaveHistorySize int `yaml:"wave_history_size" json:"wave_history_size"`
	// WaveRangeThreshold is the min (max - min) wrist travel inside the buffer.
	WaveRangeThreshold float64 `yaml:"wave_range_threshold" json:"wave_range_threshold"`
	// WaveMinReversals is the min number of direction changes inside the buffer.
	WaveMinReversals int `yaml:"wave_min_reversals" json:"wave_min_reversals"`
	// WaveCooldownMs is the minimum gap between two waves.
	WaveCooldownMs int `yaml:"wave_cooldown_ms" json:"wave_cooldown_ms"`
}

// DefaultConfig returns the pinch-and-fist tuning.
func DefaultConfig() Config {
	return Config{
		SmoothingFactor:      0.4,
		Margin:               0.15,
		MirrorX:              true,
		PinchEnabled:         true,
		PinchThreshold:       0.055,
		FistThreshold:        0.14,
		FistReleaseThreshold: 0.14,
		ScrollSensitivity:    1.5,
		WaveEnabled:          true,
		WaveHistorySize:      25,
		WaveRangeThreshold:   0.35,
		WaveMinReversals:     3,
		WaveCooldownMs:       3000,
	}
}

// FistOnlyConfig returns the older tuning with no pinch gesture, a looser
// fist and a shorter, more permissive wave.
func FistOnlyConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingFactor = 0.3
	cfg.PinchEnabled = false
	cfg.FistThreshold = 0.12
	cfg.FistReleaseThreshold = 0.13
	cfg.WaveHistorySize = 20
	cfg.WaveRangeThreshold = 0.25
	cfg.WaveMinReversals = 2
	cfg.WaveCooldownMs = 2000
	return cfg
}

// WaveCooldown returns WaveCooldownMs as a duration.
func (c Config) WaveCooldown() time.Duration {
	return time.Duration(c.WaveCooldownMs) * time.Millisecond
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.SmoothingFactor <= 0 || c.SmoothingFactor > 1:
		return fmt.Errorf("%w: smoothing_factor %v not in (0,1]", ErrInvalidConfig, c.SmoothingFactor)
	case c.Margin < 0 || c.Margin >= 0.5:
		return fmt.Errorf("%w: margin %v not in [0,0.5)", ErrInvalidConfig, c.Margin)
	case c.PinchEnabled && c.PinchThreshold <= 0:
		return fmt.Errorf("%w: pinch_threshold must be positive", ErrInvalidConfig)
	case c.FistThreshold <= 0:
		return fmt.Errorf("%w: fist_threshold must be positive", ErrInvalidConfig)
	case c.FistReleaseThreshold < c.FistThreshold:
		return fmt.Errorf("%w: fist_release_threshold %v below fist_threshold %v",
			ErrInvalidConfig, c.FistReleaseThreshold, c.FistThreshold)
	case c.ScrollSensitivity < 0:
		return fmt.Errorf("%w: scroll_sensitivity must not be negative", ErrInvalidConfig)
	case c.WaveEnabled && c.WaveHistorySize < 3:
		return fmt.Errorf("%w: wave_history_size %d below 3", ErrInvalidConfig, c.WaveHistorySize)
	case c.WaveEnabled && c.WaveRangeThreshold <= 0:
		return fmt.Errorf("%w: wave_range_threshold must be positive", ErrInvalidConfig)
	case c.WaveMinReversals < 0:
		return fmt.Errorf("%w: wave_min_reversals must not be negative", ErrInvalidConfig)
	case c.WaveCooldownMs < 0:
		return fmt.Errorf("%w: wave_cooldown_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}
