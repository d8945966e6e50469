package gesture

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink-research/wand/internal/detector"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, FistOnlyConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero smoothing", func(c *Config) { c.SmoothingFactor = 0 }},
		{"smoothing above one", func(c *Config) { c.SmoothingFactor = 1.5 }},
		{"margin too wide", func(c *Config) { c.Margin = 0.5 }},
		{"negative margin", func(c *Config) { c.Margin = -0.1 }},
		{"pinch threshold zero", func(c *Config) { c.PinchThreshold = 0 }},
		{"fist threshold zero", func(c *Config) { c.FistThreshold = 0 }},
		{"release below engage", func(c *Config) { c.FistReleaseThreshold = c.FistThreshold - 0.01 }},
		{"negative sensitivity", func(c *Config) { c.ScrollSensitivity = -1 }},
		{"tiny wave history", func(c *Config) { c.WaveHistorySize = 2 }},
		{"zero wave range", func(c *Config) { c.WaveRangeThreshold = 0 }},
		{"negative reversals", func(c *Config) { c.WaveMinReversals = -1 }},
		{"negative cooldown", func(c *Config) { c.WaveCooldownMs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}

	t.Run("pinch threshold ignored when pinch disabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PinchEnabled = false
		cfg.PinchThreshold = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestLerp(t *testing.T) {
	got := Lerp(Point{X: 0, Y: 10}, Point{X: 10, Y: 0}, 0.4)
	assert.InDelta(t, 4.0, got.X, 1e-9)
	assert.InDelta(t, 6.0, got.Y, 1e-9)
}

func TestSmoother(t *testing.T) {
	t.Run("first update snaps to target", func(t *testing.T) {
		s := NewSmoother(0.4)
		_, ok := s.Current()
		assert.False(t, ok)

		got := s.Update(Point{X: 300, Y: 200})
		assert.Equal(t, Point{X: 300, Y: 200}, got)
	})

	t.Run("converges monotonically toward a fixed target", func(t *testing.T) {
		for _, f := range []float64{0.3, 0.35, 0.4} {
			s := NewSmoother(f)
			s.Update(Point{X: 0, Y: 0})
			target := Point{X: 100, Y: 100}

			prev := math.Inf(1)
			for i := 0; i < 30; i++ {
				d := s.Update(target).Dist(target)
				require.Less(t, d, prev, "factor %v step %d", f, i)
				prev = d
			}
		}
	})

	t.Run("never overshoots", func(t *testing.T) {
		s := NewSmoother(0.4)
		s.Update(Point{X: 0, Y: 0})
		for i := 0; i < 20; i++ {
			p := s.Update(Point{X: 50, Y: -50})
			assert.LessOrEqual(t, p.X, 50.0)
			assert.GreaterOrEqual(t, p.Y, -50.0)
		}
	})

	t.Run("reset snaps again", func(t *testing.T) {
		s := NewSmoother(0.4)
		s.Update(Point{X: 0, Y: 0})
		s.Reset()
		assert.Equal(t, Point{X: 80, Y: 90}, s.Update(Point{X: 80, Y: 90}))
	})
}

func TestMapper(t *testing.T) {
	m := NewMapper(DefaultConfig())
	viewport := Size{Width: 1000, Height: 500}

	tests := []struct {
		name string
		x, y float64
		want Point
	}{
		{"center", 0.5, 0.5, Point{X: 500, Y: 250}},
		{"inner top-left edge maps to mirrored corner", 0.15, 0.15, Point{X: 1000, Y: 0}},
		{"inner bottom-right edge", 0.85, 0.85, Point{X: 0, Y: 500}},
		{"outside margin clamps", 0.02, 0.98, Point{X: 1000, Y: 500}},
		{"beyond frame clamps", -0.3, 1.4, Point{X: 1000, Y: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.ToScreen(tt.x, tt.y, viewport)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
		})
	}

	t.Run("no mirror keeps x direction", func(t *testing.T) {
		plain := Mapper{Margin: 0.15}
		got := plain.Normalize(0.15, 0.5)
		assert.InDelta(t, 0.0, got.X, 1e-9)
	})

	t.Run("far edges stay inside the viewport", func(t *testing.T) {
		for _, v := range []float64{0.85, 0.9, 1.4} {
			got := m.ToScreen(1-v, v, viewport)
			assert.Less(t, got.X, viewport.Width)
			assert.Less(t, got.Y, viewport.Height)
			assert.GreaterOrEqual(t, got.Y, viewport.Height-1)
		}
	})

	t.Run("vertical axis is never flipped", func(t *testing.T) {
		a := m.Normalize(0.5, 0.3)
		b := m.Normalize(0.5, 0.7)
		assert.Less(t, a.Y, b.Y)
	})
}

func TestMapper_ClampIdempotent(t *testing.T) {
	identity := Mapper{}
	m := NewMapper(DefaultConfig())

	for v := -1.0; v <= 2.0; v += 0.01 {
		c := Clamp01(v)
		require.Equal(t, c, Clamp01(c))

		once := m.Normalize(v, v)
		require.GreaterOrEqual(t, once.X, 0.0)
		require.LessOrEqual(t, once.X, 1.0)
		again := identity.Normalize(once.X, once.Y)
		require.Equal(t, once, again, "remapping a clamped value must not move it")
	}
}

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name      string
		hand      detector.HandLandmarks
		engaged   bool
		wantPinch bool
		wantFist  bool
	}{
		{"open palm", detector.OpenPalmLandmarks(), false, false, false},
		{"fist", detector.FistLandmarks(), false, false, true},
		{"pinch", detector.PinchLandmarks(), false, true, false},
		{"pinch inside fist", detector.PinchFistLandmarks(), false, true, true},
		{"just under pinch threshold", detector.WithPinchDistance(0.054), false, true, false},
		{"just over pinch threshold", detector.WithPinchDistance(0.056), false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(cfg, &tt.hand, tt.engaged)
			assert.Equal(t, tt.wantPinch, c.Pinch, "pinch distance %f", c.PinchDistance)
			assert.Equal(t, tt.wantFist, c.Fist, "fist distance %f", c.FistDistance)
		})
	}

	t.Run("nil hand classifies as nothing", func(t *testing.T) {
		assert.Equal(t, Classification{}, Classify(cfg, nil, true))
	})

	t.Run("pinch disabled in fist-only tuning", func(t *testing.T) {
		hand := detector.PinchLandmarks()
		assert.False(t, Classify(FistOnlyConfig(), &hand, false).Pinch)
	})

	t.Run("release threshold applies only while engaged", func(t *testing.T) {
		hcfg := DefaultConfig()
		hcfg.FistThreshold = 0.06
		hcfg.FistReleaseThreshold = 0.08
		hand := detector.FistLandmarks() // mean fingertip distance ~0.068

		assert.False(t, Classify(hcfg, &hand, false).Fist)
		assert.True(t, Classify(hcfg, &hand, true).Fist)
	})
}
