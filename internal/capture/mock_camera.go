package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoMoreFrames is returned by a non-looping MockCamera after its last frame.
var ErrNoMoreFrames = errors.New("no more frames")

// MockCamera plays back in-memory frames in place of a device.
type MockCamera struct {
	mu      sync.Mutex
	frames  []*gocv.Mat
	next    int
	loop    bool
	fps     int
	reads   int
	running bool

	openErr   error
	readErr   error
	failReads int
}

// NewMockCamera returns a camera replaying frames, from the start again
// when loop is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
		fps:    DefaultFPS,
	}
}

// NewBlankCamera returns a looping camera producing black frames of the
// given size.
func NewBlankCamera(width, height int) *MockCamera {
	frame := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	return NewMockCamera([]*gocv.Mat{&frame}, true)
}

// FailOpen makes Open fail with err until cleared with nil.
func (c *MockCamera) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// FailReads makes the next n reads return err, as a device dropping frames
// would.
func (c *MockCamera) FailReads(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failReads = n
	c.readErr = err
}

// Open starts playback from the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.next = 0
	return nil
}

// Close stops playback. The frames stay owned by the caller.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame; the caller closes it.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.running:
		return nil, ErrCameraNotOpen
	case c.failReads > 0:
		c.failReads--
		return nil, c.readErr
	case len(c.frames) == 0:
		return nil, ErrEmptyFrame
	}

	if c.next >= len(c.frames) {
		if !c.loop {
			return nil, ErrNoMoreFrames
		}
		c.next = 0
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

// SetFPS sets the reported rate; the pipeline ticks at it.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Negotiated reports the size of the first frame.
func (c *MockCamera) Negotiated() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := Config{FPS: c.fps}
	if len(c.frames) > 0 {
		cfg.Width = c.frames[0].Cols()
		cfg.Height = c.frames[0].Rows()
	}
	return cfg
}

// Reads returns how many frames have been delivered.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
