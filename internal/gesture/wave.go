package gesture

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// WaveDetector watches the wrist's horizontal position for a back-and-forth
// wave. It keeps a bounded history; once full, a wave needs enough travel
// (range) and enough direction reversals, and must respect the cooldown.
// Slow drift fails the reversal test and jitter fails the range test.
type WaveDetector struct {
	capacity    int
	minRange    float64
	minReversal int
	cooldown    time.Duration

	history  []float64
	lastWave time.Time
}

// NewWaveDetector builds a detector from cfg.
func NewWaveDetector(cfg Config) *WaveDetector {
	w := &WaveDetector{}
	w.Configure(cfg)
	return w
}

// Configure applies new thresholds. History beyond the new capacity is
// trimmed from the oldest end; the cooldown clock is kept.
func (w *WaveDetector) Configure(cfg Config) {
	w.capacity = cfg.WaveHistorySize
	w.minRange = cfg.WaveRangeThreshold
	w.minReversal = cfg.WaveMinReversals
	w.cooldown = cfg.WaveCooldown()
	if w.capacity < 1 {
		w.capacity = 1
	}
	if len(w.history) > w.capacity {
		w.history = append(w.history[:0], w.history[len(w.history)-w.capacity:]...)
	}
}

// Push records a wrist x sample taken at now and reports whether a wave fired.
func (w *WaveDetector) Push(x float64, now time.Time) bool {
	if len(w.history) == w.capacity {
		copy(w.history, w.history[1:])
		w.history = w.history[:w.capacity-1]
	}
	w.history = append(w.history, x)

	if len(w.history) < w.capacity {
		return false
	}

	span := floats.Max(w.history) - floats.Min(w.history)
	if span <= w.minRange {
		return false
	}
	if CountReversals(w.history) < w.minReversal {
		return false
	}
	if !w.lastWave.IsZero() && now.Sub(w.lastWave) < w.cooldown {
		return false
	}

	w.lastWave = now
	w.history = w.history[:0]
	return true
}

// Reset clears the history. The cooldown clock survives so a lost and
// regained hand cannot fire twice inside the window.
func (w *WaveDetector) Reset() {
	w.history = w.history[:0]
}

// Len returns the number of buffered samples.
func (w *WaveDetector) Len() int {
	return len(w.history)
}

// LastWave returns when the last wave fired, zero if never.
func (w *WaveDetector) LastWave() time.Time {
	return w.lastWave
}

// CountReversals counts sign changes between consecutive deltas of xs.
// Zero deltas are skipped and the first established direction is not
// itself a reversal.
func CountReversals(xs []float64) int {
	reversals := 0
	lastDir := 0
	for i := 1; i < len(xs); i++ {
		dir := sign(xs[i] - xs[i-1])
		if dir == 0 || dir == lastDir {
			continue
		}
		if lastDir != 0 {
			reversals++
		}
		lastDir = dir
	}
	return reversals
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
