// Package mediapipe runs hand detection on camera frames. Service drives the
// MediaPipe Python process; Mock replays scripted landmarks for tests.
//
// This is the only detector package bound to OpenCV. Landmark types, poses
// and the wire format live in the parent detector package.
package mediapipe

import (
	"gocv.io/x/gocv"

	"github.com/medlink-research/wand/internal/detector"
)

// Detector finds hands in a video frame.
type Detector interface {
	// Detect returns the hands found in frame, nil when there are none.
	Detect(frame *gocv.Mat) ([]detector.HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

var (
	_ Detector = (*Service)(nil)
	_ Detector = (*Mock)(nil)
)
