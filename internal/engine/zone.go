package engine

import "github.com/medlink-research/wand/internal/gesture"

// DefaultBarHeight is the height in pixels of the bottom control bar.
const DefaultBarHeight = 144

// RestrictedZone confines interaction to a bar along the bottom edge.
type RestrictedZone struct {
	BarHeight float64
}

// Threshold returns the screen y where the bar begins.
func (z RestrictedZone) Threshold(viewport gesture.Size) float64 {
	return viewport.Height - z.BarHeight
}

// Contains reports whether p lies inside the bar.
func (z RestrictedZone) Contains(p gesture.Point, viewport gesture.Size) bool {
	return p.Y >= z.Threshold(viewport)
}
