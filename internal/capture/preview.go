package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultPreviewQuality is the JPEG quality of preview frames.
const DefaultPreviewQuality = 70

// Preview holds the most recent camera frame as JPEG so viewers never
// compete with the detection pipeline for the device.
type Preview struct {
	quality int

	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	changed chan struct{}
}

// NewPreview returns an empty Preview encoding at quality (1-100).
func NewPreview(quality int) *Preview {
	if quality <= 0 || quality > 100 {
		quality = DefaultPreviewQuality
	}
	return &Preview{
		quality: quality,
		changed: make(chan struct{}),
	}
}

// Update encodes frame and publishes it to waiting viewers.
func (p *Preview) Update(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return ErrEmptyFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{int(gocv.IMWriteJpegQuality), p.quality})
	if err != nil {
		return fmt.Errorf("encoding preview: %w", err)
	}
	defer buf.Close()

	p.Publish(buf.GetBytes())
	return nil
}

// Publish stores an already encoded JPEG.
func (p *Preview) Publish(jpeg []byte) {
	data := append([]byte(nil), jpeg...)

	p.mu.Lock()
	p.jpeg = data
	p.seq++
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// Latest returns the current JPEG and its sequence number; seq 0 means no
// frame has been published.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			jpeg, seq := p.jpeg, p.seq
			p.mu.Unlock()
			return jpeg, seq, nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-changed:
		}
	}
}
