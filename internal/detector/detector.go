package detector

import "errors"

// ErrUnavailable is returned when no hand detector backend can be started.
var ErrUnavailable = errors.New("hand detector unavailable")

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. The gesture engine
	// tracks a single hand, so the default is 1.
	MaxHands int `yaml:"max_hands" json:"max_hands"`

	// ModelComplexity selects the landmark model (0 lite, 1 full).
	ModelComplexity int `yaml:"model_complexity" json:"model_complexity"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence" json:"min_tracking_confidence"`

	// ScriptPath overrides the location of mediapipe_service.py.
	ScriptPath string `yaml:"script_path" json:"script_path"`

	// Python overrides the interpreter. Empty means a venv next to the
	// binary or in ~/.wand, then python3 on PATH.
	Python string `yaml:"python" json:"python"`

	// IdleShutdownMs stops the detector subprocess after this long without a frame.
	IdleShutdownMs int `yaml:"idle_shutdown_ms" json:"idle_shutdown_ms"`

	// InputWidth downscales wider frames before they are sent. 0 sends them as is.
	InputWidth int `yaml:"input_width" json:"input_width"`

	// JPEGQuality is the encoder quality for frames sent to the service.
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`

	// ResponseTimeoutMs bounds one frame round trip; a slower service is
	// killed and restarted on the next frame.
	ResponseTimeoutMs int `yaml:"response_timeout_ms" json:"response_timeout_ms"`
}

// DefaultJPEGQuality is used when JPEGQuality is unset or out of range.
const DefaultJPEGQuality = 80

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:          1,
		ModelComplexity:   1,
		MinConfidence:     0.5,
		MinTrackingConf:   0.5,
		IdleShutdownMs:    30000,
		InputWidth:        640,
		JPEGQuality:       DefaultJPEGQuality,
		ResponseTimeoutMs: 2000,
	}
}

// Primary returns the first detected hand, or nil when none was found.
func Primary(hands []HandLandmarks) *HandLandmarks {
	if len(hands) == 0 {
		return nil
	}
	h := hands[0]
	return &h
}
