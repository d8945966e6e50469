package mediapipe

import (
	"errors"
	"testing"

	"github.com/medlink-research/wand/internal/detector"
)

func TestMock(t *testing.T) {
	t.Run("returns no hands by default", func(t *testing.T) {
		hands, err := NewMock().Detect(nil)
		if err != nil || hands != nil {
			t.Errorf("Detect() = %v, %v; want nil, nil", hands, err)
		}
	})

	t.Run("queued frames come first", func(t *testing.T) {
		mock := NewMock()
		mock.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
		mock.Queue(nil, []detector.HandLandmarks{detector.FistLandmarks()})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if first != nil {
			t.Errorf("first frame should have no hand, got %d", len(first))
		}
		if len(second) != 1 || second[0].Score != detector.FistLandmarks().Score {
			t.Error("second frame should be the queued fist")
		}
		if len(third) != 1 || third[0].Score != detector.OpenPalmLandmarks().Score {
			t.Error("third frame should fall back to SetHands")
		}
		if mock.Calls() != 3 {
			t.Errorf("Calls() = %d, want 3", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMock()
		errFailed := errors.New("detection failed")
		mock.SetError(errFailed)

		hands, err := mock.Detect(nil)
		if !errors.Is(err, errFailed) || hands != nil {
			t.Errorf("Detect() = %v, %v", hands, err)
		}
	})

	t.Run("Close marks closed", func(t *testing.T) {
		mock := NewMock()
		if err := mock.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if !mock.Closed() {
			t.Error("Closed() should report true after Close")
		}
	})
}
