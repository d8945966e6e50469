package mediapipe

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/medlink-research/wand/internal/detector"
)

// Mock is an in-memory Detector. Queued frames are returned one per Detect
// call, after which the hands set with SetHands are returned.
type Mock struct {
	mu     sync.Mutex
	hands  []detector.HandLandmarks
	queue  [][]detector.HandLandmarks
	err    error
	calls  int
	closed bool
}

func NewMock() *Mock {
	return &Mock{}
}

// SetHands sets the hands returned once the queue is empty.
func (m *Mock) SetHands(hands []detector.HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Queue appends per-frame results consumed in order by Detect.
// A nil entry means no hand on that frame.
func (m *Mock) Queue(frames ...[]detector.HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError makes every Detect fail with err until cleared with nil.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mock) Detect(*gocv.Mat) ([]detector.HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

// Calls reports how many times Detect has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
