// Package detector provides hand landmark types and the detectors that produce them.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Fingertips lists the four non-thumb fingertip indices.
var Fingertips = [4]int{IndexTip, MiddleTip, RingTip, PinkyTip}

// Point3D is a landmark position. X and Y are normalized to [0,1] relative
// to the camera frame; Z is the detector's relative depth and may be zero.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 landmarks of one detected hand.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Distance2D returns the planar Euclidean distance between two landmarks,
// ignoring depth.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Translate returns a copy of the hand moved by (dx, dy) in normalized units.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// PinchDistance is the thumb-tip to index-tip distance.
func (h *HandLandmarks) PinchDistance() float64 {
	return Distance2D(h.Points[ThumbTip], h.Points[IndexTip])
}

// FingertipDistances returns the distance of each non-thumb fingertip to the wrist.
func (h *HandLandmarks) FingertipDistances() []float64 {
	palm := h.Points[Wrist]
	out := make([]float64, len(Fingertips))
	for i, idx := range Fingertips {
		out[i] = Distance2D(h.Points[idx], palm)
	}
	return out
}
