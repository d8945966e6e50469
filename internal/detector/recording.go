package detector

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// RecordedFrame is one line of a landmark recording.
type RecordedFrame struct {
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	Hands     []HandLandmarks `json:"hands"`
}

// Time returns the frame timestamp.
func (f RecordedFrame) Time() time.Time {
	return time.UnixMilli(f.Timestamp)
}

// RecordingReader reads JSON-lines landmark recordings, the same shape the
// server broadcasts: {"timestamp": 1700000000000, "hands": [{"points": [...]}]}.
type RecordingReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewRecordingReader wraps r.
func NewRecordingReader(r io.Reader) *RecordingReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &RecordingReader{scanner: scanner}
}

// Next returns the next frame. It returns io.EOF when the recording ends.
// Blank lines are skipped.
func (r *RecordingReader) Next() (RecordedFrame, error) {
	for r.scanner.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var wire struct {
			Timestamp int64      `json:"timestamp"`
			Hands     []jsonHand `json:"hands"`
		}
		if err := json.Unmarshal(raw, &wire); err != nil {
			return RecordedFrame{}, fmt.Errorf("recording line %d: %w", r.line, err)
		}

		frame := RecordedFrame{Timestamp: wire.Timestamp}
		for _, h := range wire.Hands {
			frame.Hands = append(frame.Hands, h.toHandLandmarks())
		}
		return frame, nil
	}
	if err := r.scanner.Err(); err != nil {
		return RecordedFrame{}, err
	}
	return RecordedFrame{}, io.EOF
}

// WriteFrame appends one frame to w in recording format.
func WriteFrame(w io.Writer, frame RecordedFrame) error {
	hands := frame.Hands
	if hands == nil {
		hands = []HandLandmarks{}
	}
	data, err := json.Marshal(RecordedFrame{Timestamp: frame.Timestamp, Hands: hands})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
