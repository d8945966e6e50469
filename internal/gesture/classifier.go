package gesture

import (
	"gonum.org/v1/gonum/stat"

	"github.com/medlink-research/wand/internal/detector"
)

// Classification is the per-frame reading of one hand.
type Classification struct {
	Pinch         bool
	Fist          bool
	PinchDistance float64
	FistDistance  float64 // mean fingertip-to-wrist distance
}

// Classify measures pinch and fist on hand. fistEngaged selects the
// release threshold so a scroll in progress can tolerate a slightly
// looser fist.
func Classify(cfg Config, hand *detector.HandLandmarks, fistEngaged bool) Classification {
	if hand == nil {
		return Classification{}
	}

	c := Classification{
		PinchDistance: hand.PinchDistance(),
		FistDistance:  stat.Mean(hand.FingertipDistances(), nil),
	}

	c.Pinch = cfg.PinchEnabled && c.PinchDistance < cfg.PinchThreshold

	fistLimit := cfg.FistThreshold
	if fistEngaged && cfg.FistReleaseThreshold > fistLimit {
		fistLimit = cfg.FistReleaseThreshold
	}
	c.Fist = c.FistDistance < fistLimit

	return c
}
