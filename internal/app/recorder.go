package app

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/store"
)

// recorderBuffer bounds the events waiting to be written.
const recorderBuffer = 256

// recorder writes engine events to the store off the frame path. Events are
// dropped when the buffer is full.
type recorder struct {
	events    *store.EventRepository
	sessionID string
	logger    *zap.Logger

	queue   chan engine.Event
	dropped atomic.Int64
	wg      sync.WaitGroup
	once    sync.Once
}

func newRecorder(events *store.EventRepository, sessionID string, logger *zap.Logger) *recorder {
	r := &recorder{
		events:    events,
		sessionID: sessionID,
		logger:    logger,
		queue:     make(chan engine.Event, recorderBuffer),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Observe queues ev without blocking.
func (r *recorder) Observe(ev engine.Event) {
	select {
	case r.queue <- ev:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("event log falling behind, dropping events")
		}
	}
}

func (r *recorder) run() {
	defer r.wg.Done()
	for ev := range r.queue {
		err := r.events.Record(&store.Event{
			SessionID: r.sessionID,
			Kind:      string(ev.Kind),
			X:         ev.X,
			Y:         ev.Y,
			DeltaY:    ev.DeltaY,
			Target:    ev.Target,
			CreatedAt: ev.Time,
		})
		if err != nil {
			r.logger.Warn("recording event failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}
}

// Close flushes queued events. Observe must not be called afterwards.
func (r *recorder) Close() {
	r.once.Do(func() {
		close(r.queue)
		r.wg.Wait()
		if n := r.dropped.Load(); n > 0 {
			r.logger.Warn("events dropped", zap.Int64("count", n))
		}
	})
}

// Dropped reports how many events were discarded.
func (r *recorder) Dropped() int64 {
	return r.dropped.Load()
}
