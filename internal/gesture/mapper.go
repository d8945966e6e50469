package gesture

import "math"

// Mapper converts detector coordinates into screen pixels.
//
// The central 1-2*Margin band of each axis is stretched to the full output
// range so small reaches cover the whole screen; anything outside clamps
// to the edge.
type Mapper struct {
	Margin  float64
	MirrorX bool
}

// NewMapper builds a Mapper from cfg.
func NewMapper(cfg Config) Mapper {
	return Mapper{Margin: cfg.Margin, MirrorX: cfg.MirrorX}
}

// Normalize maps a detector-space point into [0,1]x[0,1] screen fractions.
func (m Mapper) Normalize(x, y float64) Point {
	nx := Clamp01(m.rescale(x))
	ny := Clamp01(m.rescale(y))
	if m.MirrorX {
		nx = 1 - nx
	}
	return Point{X: nx, Y: ny}
}

// ToScreen maps a detector-space point into viewport pixels. The far edges
// map just inside the viewport, since hit areas exclude their right and
// bottom bounds.
func (m Mapper) ToScreen(x, y float64, viewport Size) Point {
	n := m.Normalize(x, y)
	return Point{X: scale(n.X, viewport.Width), Y: scale(n.Y, viewport.Height)}
}

func scale(n, size float64) float64 {
	if size <= 0 {
		return 0
	}
	return min(n*size, math.Nextafter(size, 0))
}

func (m Mapper) rescale(v float64) float64 {
	span := 1 - 2*m.Margin
	if span <= 0 {
		return v
	}
	return (v - m.Margin) / span
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
