// Package engine turns a stream of tracked hands into cursor movement,
// synthetic pointer events, scrolling and back navigation.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/detector"
	"github.com/medlink-research/wand/internal/gesture"
)

// ErrUnavailable is returned by Enable once the landmark source has failed
// to start. The failure is terminal for the process.
var ErrUnavailable = errors.New("gesture control unavailable")

// Config holds the engine tunables.
type Config struct {
	Gesture    gesture.Config
	Restricted bool
	BarHeight  float64
}

// DefaultConfig returns the default thresholds, unrestricted.
func DefaultConfig() Config {
	return Config{
		Gesture:   gesture.DefaultConfig(),
		BarHeight: DefaultBarHeight,
	}
}

// Deps are the ports the engine drives. Surface is required; the rest may
// be nil.
type Deps struct {
	Presenter   Presenter
	Surface     Surface
	Navigator   Navigator
	Source      Source
	Preferences Preferences
	Observer    Observer
}

// Engine owns the per-frame gesture state. OnFrame and the accessors
// serialize on mu, so frames are handled strictly in call order. Enable,
// Disable, Toggle and Restore also hold ctl for their whole run, including
// the source start and stop that happen outside mu.
type Engine struct {
	deps   Deps
	logger *zap.Logger

	ctl sync.Mutex

	mu          sync.Mutex
	cfg         gesture.Config
	zone        RestrictedZone
	restricted  bool
	mapper      gesture.Mapper
	smoother    *gesture.Smoother
	wave        *gesture.WaveDetector
	state       gesture.State
	enabled     bool
	unavailable bool
	cursor      CursorState
	visible     bool
	// last is the most recent mapped fingertip.
	last gesture.Point
}

// New creates a disabled engine. Call Restore or Enable to start it.
func New(cfg Config, deps Deps, logger *zap.Logger) (*Engine, error) {
	if deps.Surface == nil {
		return nil, errors.New("engine: surface is required")
	}
	if err := cfg.Gesture.Validate(); err != nil {
		return nil, err
	}
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	barHeight := cfg.BarHeight
	if barHeight <= 0 {
		barHeight = DefaultBarHeight
	}

	return &Engine{
		deps:       deps,
		logger:     logger,
		cfg:        cfg.Gesture,
		zone:       RestrictedZone{BarHeight: barHeight},
		restricted: cfg.Restricted,
		mapper:     gesture.NewMapper(cfg.Gesture),
		smoother:   gesture.NewSmoother(cfg.Gesture.SmoothingFactor),
		wave:       gesture.NewWaveDetector(cfg.Gesture),
	}, nil
}

// OnFrame processes one frame. hand is nil when no hand was detected.
func (e *Engine) OnFrame(hand *detector.HandLandmarks, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return
	}
	if hand == nil {
		e.loseHand()
		return
	}

	viewport := e.deps.Surface.Viewport()
	tip := hand.Points[detector.IndexTip]
	p := e.mapper.ToScreen(tip.X, tip.Y, viewport)
	e.last = p

	e.setVisible(true)
	if e.restricted && !e.zone.Contains(p, viewport) {
		e.setCursor(CursorRestricted)
		return
	}
	e.deps.Presenter.MoveCursor(e.smoother.Update(p))

	cls := gesture.Classify(e.cfg, hand, e.state.Mode == gesture.ModeScrolling)
	next, effects := gesture.Transition(e.state, gesture.Input{
		Pinch:         cls.Pinch,
		Fist:          cls.Fist,
		Point:         p,
		ScrollAllowed: !e.restricted,
	}, e.cfg.ScrollSensitivity)

	if next.Mode != e.state.Mode {
		e.logger.Debug("mode transition",
			zap.Stringer("from", e.state.Mode),
			zap.Stringer("to", next.Mode),
			zap.Float64("pinch_distance", cls.PinchDistance),
			zap.Float64("fist_distance", cls.FistDistance))
	}
	e.state = next

	for _, effect := range effects {
		e.apply(effect, viewport, now)
	}
	e.setCursor(cursorFor(next.Mode))

	if e.cfg.WaveEnabled && e.wave.Push(hand.Points[detector.Wrist].X, now) {
		e.onWave(p, now)
	}
}

func (e *Engine) apply(effect gesture.Effect, viewport gesture.Size, now time.Time) {
	switch effect.Kind {
	case gesture.EffectPress:
		e.dispatch(PointerDown, effect.Point, viewport, now)
	case gesture.EffectRelease:
		e.dispatch(PointerUp, effect.Point, viewport, now)
	case gesture.EffectClick:
		e.dispatch(PointerClick, effect.Point, viewport, now)
	case gesture.EffectScrollStart:
		e.observe(Event{Kind: EventScrollStart, X: effect.Point.X, Y: effect.Point.Y, Time: now})
	case gesture.EffectScroll:
		if err := e.deps.Surface.ScrollBy(effect.Point, effect.DeltaY); err != nil {
			e.logger.Warn("scroll failed", zap.Float64("dy", effect.DeltaY), zap.Error(err))
			return
		}
		e.observe(Event{Kind: EventScroll, X: effect.Point.X, Y: effect.Point.Y, DeltaY: effect.DeltaY, Time: now})
	case gesture.EffectScrollEnd:
		e.observe(Event{Kind: EventScrollEnd, X: effect.Point.X, Y: effect.Point.Y, Time: now})
	}
}

// dispatch sends a pointer event to whatever is under p. A point with no
// target, or outside the restricted zone, is skipped.
func (e *Engine) dispatch(kind PointerKind, p gesture.Point, viewport gesture.Size, now time.Time) {
	if e.restricted && !e.zone.Contains(p, viewport) {
		return
	}
	target, ok := e.deps.Surface.HitTest(p)
	if !ok {
		return
	}
	if err := e.deps.Surface.Dispatch(target, kind, p); err != nil {
		e.logger.Warn("dispatch failed",
			zap.Stringer("kind", kind),
			zap.String("target", target.ID),
			zap.Error(err))
		return
	}

	var ev EventKind
	switch kind {
	case PointerDown:
		ev = EventPress
	case PointerUp:
		ev = EventRelease
	default:
		ev = EventClick
	}
	e.observe(Event{Kind: ev, X: p.X, Y: p.Y, Target: target.ID, Time: now})
}

func (e *Engine) onWave(p gesture.Point, now time.Time) {
	e.logger.Info("wave detected")
	e.deps.Presenter.FlashWave()
	e.observe(Event{Kind: EventWave, X: p.X, Y: p.Y, Time: now})

	if e.deps.Navigator == nil {
		e.logger.Debug("no back navigation registered")
		return
	}
	if err := e.deps.Navigator.Back(); err != nil {
		e.logger.Warn("back navigation failed", zap.Error(err))
	}
}

func (e *Engine) observe(ev Event) {
	if e.deps.Observer != nil {
		e.deps.Observer(ev)
	}
}

// loseHand resets tracking without synthesizing any event.
func (e *Engine) loseHand() {
	e.resetTracking()
	e.setVisible(false)
	e.setCursor(CursorIdle)
}

func (e *Engine) resetTracking() {
	e.state = gesture.State{}
	e.wave.Reset()
	e.smoother.Reset()
}

func (e *Engine) setVisible(visible bool) {
	if e.visible == visible {
		return
	}
	e.visible = visible
	e.deps.Presenter.SetCursorVisible(visible)
}

func (e *Engine) setCursor(state CursorState) {
	if e.cursor == state {
		return
	}
	e.cursor = state
	e.deps.Presenter.SetCursorState(state)
}

func cursorFor(mode gesture.Mode) CursorState {
	switch mode {
	case gesture.ModeClicking:
		return CursorClicking
	case gesture.ModeScrolling:
		return CursorScrolling
	}
	return CursorIdle
}

// Enable starts the source and persists the preference.
func (e *Engine) Enable() error {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	return e.enable(true)
}

func (e *Engine) enable(persist bool) error {
	e.mu.Lock()
	if e.enabled {
		e.mu.Unlock()
		return nil
	}
	if e.unavailable {
		e.mu.Unlock()
		return ErrUnavailable
	}
	e.mu.Unlock()

	if e.deps.Source != nil {
		if err := e.deps.Source.Start(); err != nil {
			e.mu.Lock()
			e.unavailable = true
			e.deps.Presenter.SetEnabled(false)
			e.mu.Unlock()
			e.logger.Error("landmark source failed to start", zap.Error(err))
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}

	e.mu.Lock()
	e.enabled = true
	e.resetTracking()
	e.deps.Presenter.SetEnabled(true)
	e.mu.Unlock()

	e.logger.Info("gesture control enabled")
	if persist {
		e.persist(true)
	}
	return nil
}

// Disable stops the source and persists the preference. A frame already
// inside OnFrame completes first.
func (e *Engine) Disable() {
	e.ctl.Lock()
	defer e.ctl.Unlock()
	e.disable()
}

func (e *Engine) disable() {
	e.mu.Lock()
	if !e.enabled {
		e.mu.Unlock()
		return
	}
	e.enabled = false
	e.resetTracking()
	e.setVisible(false)
	e.setCursor(CursorIdle)
	e.deps.Presenter.SetEnabled(false)
	e.mu.Unlock()

	if e.deps.Source != nil {
		e.deps.Source.Stop()
	}
	e.logger.Info("gesture control disabled")
	e.persist(false)
}

// Toggle flips the enabled state and reports the new one.
func (e *Engine) Toggle() (bool, error) {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	if e.Enabled() {
		e.disable()
		return false, nil
	}
	if err := e.enable(true); err != nil {
		return false, err
	}
	return true, nil
}

// Restore applies the persisted preference. A missing or unreadable
// preference leaves the engine disabled.
func (e *Engine) Restore() error {
	e.ctl.Lock()
	defer e.ctl.Unlock()

	if e.deps.Preferences == nil {
		e.deps.Presenter.SetEnabled(false)
		return nil
	}
	enabled, err := e.deps.Preferences.GestureControlEnabled()
	if err != nil {
		e.logger.Warn("reading gesture control preference", zap.Error(err))
		enabled = false
	}
	if !enabled {
		e.deps.Presenter.SetEnabled(false)
		return nil
	}
	return e.enable(false)
}

func (e *Engine) persist(enabled bool) {
	if e.deps.Preferences == nil {
		return
	}
	if err := e.deps.Preferences.SetGestureControlEnabled(enabled); err != nil {
		e.logger.Warn("saving gesture control preference", zap.Error(err))
	}
}

// SetRestricted turns the restricted zone on or off. An active scroll is
// ended because scrolling is not allowed while restricted.
func (e *Engine) SetRestricted(restricted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.restricted = restricted
	if restricted && e.state.Mode == gesture.ModeScrolling {
		e.state = gesture.State{}
		e.observe(Event{Kind: EventScrollEnd, X: e.last.X, Y: e.last.Y, Time: time.Now()})
		e.setCursor(CursorIdle)
	}
	if !restricted && e.cursor == CursorRestricted {
		e.setCursor(cursorFor(e.state.Mode))
	}
}

// SetConfig swaps the gesture thresholds. Buffered wave samples beyond the
// new history size are dropped.
func (e *Engine) SetConfig(cfg gesture.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.cfg = cfg
	e.mapper = gesture.NewMapper(cfg)
	e.smoother.Factor = cfg.SmoothingFactor
	e.wave.Configure(cfg)
	e.logger.Info("gesture thresholds updated",
		zap.Float64("pinch", cfg.PinchThreshold),
		zap.Float64("fist", cfg.FistThreshold),
		zap.Bool("pinch_enabled", cfg.PinchEnabled))
	return nil
}

// Config returns the active gesture thresholds.
func (e *Engine) Config() gesture.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Enabled reports whether gesture control is on.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Unavailable reports whether the source failed to start.
func (e *Engine) Unavailable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unavailable
}

// Restricted reports whether the restricted zone is active.
func (e *Engine) Restricted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.restricted
}

// Mode returns the current interaction mode.
func (e *Engine) Mode() gesture.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Mode
}

// Cursor returns the cursor indicator's state and visibility.
func (e *Engine) Cursor() (CursorState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor, e.visible
}

// WaveLen returns the number of buffered wrist samples.
func (e *Engine) WaveLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wave.Len()
}

type nopPresenter struct{}

func (nopPresenter) MoveCursor(gesture.Point) {}
func (nopPresenter) SetCursorVisible(bool) {}
func (nopPresenter) SetCursorState(CursorState) {}
func (nopPresenter) SetEnabled(bool) {}
func (nopPresenter) FlashWave() {}
