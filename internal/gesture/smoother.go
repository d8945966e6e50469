package gesture

import "math"

// Point is a position in either normalized or screen space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Size is a viewport in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Lerp moves prev toward target by factor f.
func Lerp(prev, target Point, f float64) Point {
	return Point{
		X: prev.X + (target.X-prev.X)*f,
		Y: prev.Y + (target.Y-prev.Y)*f,
	}
}

// Smoother keeps the cursor's previous position between frames.
// The zero value is ready to use and snaps to the first target.
type Smoother struct {
	Factor float64

	current Point
	valid   bool
}

// NewSmoother returns a Smoother blending with factor f.
func NewSmoother(f float64) *Smoother {
	return &Smoother{Factor: f}
}

// Update blends target into the smoothed position and returns it.
func (s *Smoother) Update(target Point) Point {
	if !s.valid {
		s.current = target
		s.valid = true
		return target
	}
	s.current = Lerp(s.current, target, s.Factor)
	return s.current
}

// Current returns the last smoothed position and whether one exists.
func (s *Smoother) Current() (Point, bool) {
	return s.current, s.valid
}

// Reset forgets the previous position.
func (s *Smoother) Reset() {
	s.current = Point{}
	s.valid = false
}
