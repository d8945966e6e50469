package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/capture"
	"github.com/medlink-research/wand/internal/detector"
	"github.com/medlink-research/wand/internal/detector/mediapipe"
)

// runPipeline is the landmark source loop. Every tick it reads one frame,
// publishes it to the preview, runs hand detection and hands the primary
// hand to the engine. Frames are processed one at a time, in order.
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}, camera capture.Camera, det mediapipe.Detector) {
	defer close(done)

	fps := camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			if err := a.processFrame(camera, det, now); err != nil {
				failures++
				if failures == 1 {
					a.logger.Warn("frame skipped", zap.Error(err))
				} else {
					a.logger.Debug("frame skipped", zap.Int("consecutive", failures), zap.Error(err))
				}
				continue
			}
			if failures > 0 {
				a.logger.Info("frames recovered", zap.Int("skipped", failures))
				failures = 0
			}
		}
	}
}

// processFrame runs one frame through the pipeline. An error means the
// frame was dropped before it reached the engine.
func (a *App) processFrame(camera capture.Camera, det mediapipe.Detector, now time.Time) error {
	frame, err := camera.ReadFrame()
	if err != nil {
		return err
	}
	defer frame.Close()

	if err := a.preview.Update(frame); err != nil {
		a.logger.Debug("preview update failed", zap.Error(err))
	}

	hands, err := det.Detect(frame)
	if err != nil {
		return err
	}

	a.engine.OnFrame(detector.Primary(hands), now)
	return nil
}
