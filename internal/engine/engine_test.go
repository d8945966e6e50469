package engine

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlink-research/wand/internal/detector"
	"github.com/medlink-research/wand/internal/gesture"
)

type dispatched struct {
	Kind   PointerKind
	Target string
	Point  gesture.Point
}

type fakeSurface struct {
	viewport gesture.Size
	miss     bool
	// area, when set, is the only hit region. Its right and bottom edges
	// are exclusive.
	area     *[4]float64
	events   []dispatched
	scrolls  []float64
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{viewport: gesture.Size{Width: 1280, Height: 720}}
}

func (s *fakeSurface) Viewport() gesture.Size { return s.viewport }

func (s *fakeSurface) HitTest(p gesture.Point) (Target, bool) {
	if s.miss {
		return Target{}, false
	}
	if a := s.area; a != nil {
		if p.X < a[0] || p.Y < a[1] || p.X >= a[0]+a[2] || p.Y >= a[1]+a[3] {
			return Target{}, false
		}
	}
	return Target{ID: "button"}, true
}

func (s *fakeSurface) Dispatch(t Target, kind PointerKind, p gesture.Point) error {
	s.events = append(s.events, dispatched{Kind: kind, Target: t.ID, Point: p})
	return nil
}

func (s *fakeSurface) ScrollBy(p gesture.Point, dy float64) error {
	s.scrolls = append(s.scrolls, dy)
	return nil
}

type fakePresenter struct {
	moves   []gesture.Point
	visible bool
	states  []CursorState
	enabled bool
	waves   int
}

func (p *fakePresenter) MoveCursor(pt gesture.Point) { p.moves = append(p.moves, pt) }
func (p *fakePresenter) SetCursorVisible(v bool) { p.visible = v }
func (p *fakePresenter) SetCursorState(state CursorState) { p.states = append(p.states, state) }
func (p *fakePresenter) SetEnabled(enabled bool) { p.enabled = enabled }
func (p *fakePresenter) FlashWave() { p.waves++ }

type fakeNavigator struct{ backs int }

func (n *fakeNavigator) Back() error {
	n.backs++
	return nil
}

type fakeSource struct {
	startErr error
	starts   int
	stops    int
	onStart  func()
	onStop   func()
}

func (s *fakeSource) Start() error {
	s.starts++
	if s.onStart != nil {
		s.onStart()
	}
	return s.startErr
}

func (s *fakeSource) Stop() {
	s.stops++
	if s.onStop != nil {
		s.onStop()
	}
}

type fakePrefs struct {
	mu      sync.Mutex
	enabled bool
	err     error
	writes  []bool
}

func (p *fakePrefs) GestureControlEnabled() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled, p.err
}

func (p *fakePrefs) SetGestureControlEnabled(enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
	p.writes = append(p.writes, enabled)
	return nil
}

type harness struct {
	engine    *Engine
	surface   *fakeSurface
	presenter *fakePresenter
	navigator *fakeNavigator
	source    *fakeSource
	prefs     *fakePrefs
	events    []Event
	now       time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		surface:   newFakeSurface(),
		presenter: &fakePresenter{},
		navigator: &fakeNavigator{},
		source:    &fakeSource{},
		prefs:     &fakePrefs{},
		now:       time.Unix(1_700_000_000, 0),
	}
	e, err := New(cfg, Deps{
		Presenter:   h.presenter,
		Surface:     h.surface,
		Navigator:   h.navigator,
		Source:      h.source,
		Preferences: h.prefs,
		Observer:    func(ev Event) { h.events = append(h.events, ev) },
	}, nil)
	require.NoError(t, err)
	h.engine = e
	return h
}

func (h *harness) frame(hand *detector.HandLandmarks) {
	h.now = h.now.Add(time.Second / 30)
	h.engine.OnFrame(hand, h.now)
}

func (h *harness) pose(pose detector.HandLandmarks) {
	h.frame(&pose)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{}, nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Gesture.Margin = 0.6
	_, err = New(cfg, Deps{Surface: newFakeSurface()}, nil)
	assert.True(t, errors.Is(err, gesture.ErrInvalidConfig))
}

func TestEngine_IgnoresFramesWhileDisabled(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.pose(detector.PinchLandmarks())

	assert.Empty(t, h.surface.events)
	assert.Empty(t, h.presenter.moves)
}

func TestEngine_HandLostHidesCursorAndClearsWave(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	for i := 0; i < 10; i++ {
		h.pose(detector.OpenPalmLandmarks())
	}
	_, visible := h.engine.Cursor()
	require.True(t, visible)
	require.Equal(t, 10, h.engine.WaveLen())

	for i := 0; i < 5; i++ {
		h.frame(nil)
	}

	_, visible = h.engine.Cursor()
	assert.False(t, visible)
	assert.False(t, h.presenter.visible)
	assert.Equal(t, 0, h.engine.WaveLen())
	assert.Empty(t, h.surface.events)
}

func TestEngine_HandLostWhileClickingEmitsNothing(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	h.pose(detector.PinchLandmarks())
	require.Equal(t, gesture.ModeClicking, h.engine.Mode())
	require.Len(t, h.surface.events, 1)

	h.frame(nil)
	assert.Equal(t, gesture.ModeIdle, h.engine.Mode())
	assert.Len(t, h.surface.events, 1)
}

func TestEngine_PinchPressesOnThirdFrame(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	var perFrame []int
	for _, d := range []float64{0.08, 0.08, 0.04, 0.04} {
		before := len(h.surface.events)
		h.pose(detector.WithPinchDistance(d))
		perFrame = append(perFrame, len(h.surface.events)-before)
	}

	assert.Equal(t, []int{0, 0, 1, 0}, perFrame)
	require.Len(t, h.surface.events, 1)
	assert.Equal(t, PointerDown, h.surface.events[0].Kind)
	assert.Equal(t, "button", h.surface.events[0].Target)
}

func TestEngine_PinchReleaseClicks(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	h.pose(detector.PinchLandmarks())
	h.pose(detector.OpenPalmLandmarks())

	require.Len(t, h.surface.events, 3)
	assert.Equal(t, PointerDown, h.surface.events[0].Kind)
	assert.Equal(t, PointerUp, h.surface.events[1].Kind)
	assert.Equal(t, PointerClick, h.surface.events[2].Kind)

	kinds := make([]EventKind, 0, len(h.events))
	for _, ev := range h.events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []EventKind{EventPress, EventRelease, EventClick}, kinds)
	assert.Contains(t, h.presenter.states, CursorClicking)
}

func TestEngine_EventsUseRawPointCursorUsesSmoothed(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	h.pose(detector.PointAt(detector.OpenPalmLandmarks(), 0.3, 0.3))
	h.pose(detector.PointAt(detector.PinchLandmarks(), 0.7, 0.7))

	require.Len(t, h.presenter.moves, 2)
	require.Len(t, h.surface.events, 1)

	raw := h.surface.events[0].Point
	cursor := h.presenter.moves[1]
	assert.NotEqual(t, raw, cursor)
	assert.Less(t, cursor.Y, raw.Y, "smoothed cursor lags behind the hand")
}

func TestEngine_NoTargetSkipsSilently(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.surface.miss = true
	require.NoError(t, h.engine.Enable())

	h.pose(detector.PinchLandmarks())
	h.pose(detector.OpenPalmLandmarks())

	assert.Empty(t, h.surface.events)
	assert.Empty(t, h.events)
	assert.Equal(t, gesture.ModeIdle, h.engine.Mode())
}

func TestEngine_FistScrollsByFrameDelta(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.50))
	h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.55))
	h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.55))
	h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.45))
	h.pose(detector.OpenPalmLandmarks())

	step := 0.05 / 0.7 * 720 * 1.5
	require.Len(t, h.surface.scrolls, 2)
	assert.InDelta(t, step, h.surface.scrolls[0], 1e-6)
	assert.InDelta(t, -2*step, h.surface.scrolls[1], 1e-6)

	assert.Equal(t, EventScrollStart, h.events[0].Kind)
	assert.Equal(t, EventScrollEnd, h.events[len(h.events)-1].Kind)
	assert.Equal(t, gesture.ModeIdle, h.engine.Mode())
	assert.Empty(t, h.surface.events, "scrolling never dispatches pointer events")
}

func TestEngine_PinchBeatsFist(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	h.pose(detector.PinchFistLandmarks())

	assert.Equal(t, gesture.ModeClicking, h.engine.Mode())
	assert.Empty(t, h.surface.scrolls)
	for _, ev := range h.events {
		assert.NotEqual(t, EventScrollStart, ev.Kind)
	}
}

func TestEngine_WaveNavigatesBackOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gesture.WaveHistorySize = 20
	h := newHarness(t, cfg)
	require.NoError(t, h.engine.Enable())

	start := h.now
	for i := 0; i < 60; i++ {
		x := 0.4 + 0.2*math.Sin(2*math.Pi*6*float64(i)/60)
		hand := detector.WristAt(detector.OpenPalmLandmarks(), x)
		h.engine.OnFrame(&hand, start.Add(time.Duration(i)*time.Second/60))
	}

	assert.Equal(t, 1, h.navigator.backs)
	assert.Equal(t, 1, h.presenter.waves)

	waves := 0
	for _, ev := range h.events {
		if ev.Kind == EventWave {
			waves++
		}
	}
	assert.Equal(t, 1, waves)
}

func TestEngine_WaveWithoutNavigatorIsNoop(t *testing.T) {
	e, err := New(DefaultConfig(), Deps{Surface: newFakeSurface()}, nil)
	require.NoError(t, err)
	require.NoError(t, e.Enable())

	start := time.Unix(0, 0)
	for i := 0; i < 30; i++ {
		hand := detector.WristAt(detector.OpenPalmLandmarks(), 0.2+0.5*float64(i%2))
		e.OnFrame(&hand, start.Add(time.Duration(i)*50*time.Millisecond))
	}
	assert.Equal(t, gesture.ModeIdle, e.Mode())
}

func TestEngine_WaveDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gesture.WaveEnabled = false
	h := newHarness(t, cfg)
	require.NoError(t, h.engine.Enable())

	for i := 0; i < 60; i++ {
		h.pose(detector.WristAt(detector.OpenPalmLandmarks(), 0.2+0.5*float64(i%2)))
	}
	assert.Zero(t, h.navigator.backs)
}

func TestEngine_RestrictedZone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Restricted = true

	t.Run("above the bar nothing is synthesized", func(t *testing.T) {
		h := newHarness(t, cfg)
		require.NoError(t, h.engine.Enable())

		h.pose(detector.PointAt(detector.PinchLandmarks(), 0.5, 0.3))
		h.pose(detector.PointAt(detector.OpenPalmLandmarks(), 0.5, 0.3))
		h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.3))
		h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.4))

		assert.Empty(t, h.surface.events)
		assert.Empty(t, h.surface.scrolls)
		assert.Empty(t, h.events)
		state, visible := h.engine.Cursor()
		assert.Equal(t, CursorRestricted, state)
		assert.True(t, visible)
	})

	t.Run("inside the bar clicks work", func(t *testing.T) {
		h := newHarness(t, cfg)
		require.NoError(t, h.engine.Enable())

		h.pose(detector.PointAt(detector.PinchLandmarks(), 0.5, 0.84))
		h.pose(detector.PointAt(detector.OpenPalmLandmarks(), 0.5, 0.84))

		assert.Len(t, h.surface.events, 3)
		state, _ := h.engine.Cursor()
		assert.Equal(t, CursorIdle, state)
	})

	t.Run("inside the bar fist does not scroll", func(t *testing.T) {
		h := newHarness(t, cfg)
		require.NoError(t, h.engine.Enable())

		h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.80))
		h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.84))

		assert.Empty(t, h.surface.scrolls)
		assert.Equal(t, gesture.ModeIdle, h.engine.Mode())
	})

	t.Run("enabling restriction ends an active scroll", func(t *testing.T) {
		h := newHarness(t, DefaultConfig())
		require.NoError(t, h.engine.Enable())

		h.pose(detector.PointAt(detector.FistLandmarks(), 0.5, 0.5))
		require.Equal(t, gesture.ModeScrolling, h.engine.Mode())

		h.engine.SetRestricted(true)
		assert.Equal(t, gesture.ModeIdle, h.engine.Mode())
		end := h.events[len(h.events)-1]
		assert.Equal(t, EventScrollEnd, end.Kind)
		assert.InDelta(t, 640.0, end.X, 1e-9, "ends where the hand was")
		assert.InDelta(t, 360.0, end.Y, 1e-9)
		assert.True(t, h.engine.Restricted())
	})

	t.Run("click at the bottom edge of a full-width bar", func(t *testing.T) {
		h := newHarness(t, cfg)
		h.surface.viewport = gesture.Size{Width: 1000, Height: 800}
		h.surface.area = &[4]float64{0, 656, 1000, 144}
		require.NoError(t, h.engine.Enable())

		h.pose(detector.PointAt(detector.OpenPalmLandmarks(), 0.5, 0.9))
		h.pose(detector.PointAt(detector.PinchLandmarks(), 0.5, 0.9))
		h.pose(detector.PointAt(detector.OpenPalmLandmarks(), 0.5, 0.9))

		require.Len(t, h.surface.events, 3)
		assert.Equal(t, PointerClick, h.surface.events[2].Kind)
		for _, ev := range h.surface.events {
			assert.Less(t, ev.Point.Y, 800.0)
			assert.GreaterOrEqual(t, ev.Point.Y, 799.0)
		}
	})
}

func TestEngine_EnableDisablePersists(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	require.NoError(t, h.engine.Enable())
	assert.True(t, h.presenter.enabled)
	assert.Equal(t, 1, h.source.starts)

	require.NoError(t, h.engine.Enable(), "enabling twice is a no-op")
	assert.Equal(t, 1, h.source.starts)

	h.engine.Disable()
	assert.False(t, h.presenter.enabled)
	assert.Equal(t, 1, h.source.stops)

	assert.Equal(t, []bool{true, false}, h.prefs.writes)
}

func TestEngine_Toggle(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	on, err := h.engine.Toggle()
	require.NoError(t, err)
	assert.True(t, on)

	on, err = h.engine.Toggle()
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, h.engine.Enabled())
}

func TestEngine_DisableWaitsForSlowEnable(t *testing.T) {
	h := newHarness(t, DefaultConfig())

	starting := make(chan struct{})
	release := make(chan struct{})
	h.source.onStart = func() {
		close(starting)
		<-release
	}

	enabled := make(chan error, 1)
	go func() { enabled <- h.engine.Enable() }()
	<-starting

	disabled := make(chan struct{})
	go func() {
		h.engine.Disable()
		close(disabled)
	}()

	select {
	case <-disabled:
		t.Fatal("Disable returned while Enable was still starting the source")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-enabled)
	<-disabled

	assert.False(t, h.engine.Enabled())
	assert.Equal(t, 1, h.source.stops)
	assert.Equal(t, []bool{true, false}, h.prefs.writes)
}

func TestEngine_SourceFailureIsTerminal(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	h.source.startErr = errors.New("camera busy")

	err := h.engine.Enable()
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, h.engine.Unavailable())
	assert.False(t, h.engine.Enabled())
	assert.False(t, h.presenter.enabled)

	h.source.startErr = nil
	_, err = h.engine.Toggle()
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, h.source.starts, "no retries")
	assert.Empty(t, h.prefs.writes)
}

func TestEngine_Restore(t *testing.T) {
	t.Run("enabled preference starts the source", func(t *testing.T) {
		h := newHarness(t, DefaultConfig())
		h.prefs.enabled = true

		require.NoError(t, h.engine.Restore())
		assert.True(t, h.engine.Enabled())
		assert.Equal(t, 1, h.source.starts)
		assert.Empty(t, h.prefs.writes)
	})

	t.Run("unreadable preference stays disabled", func(t *testing.T) {
		h := newHarness(t, DefaultConfig())
		h.prefs.enabled = true
		h.prefs.err = errors.New("disk gone")

		require.NoError(t, h.engine.Restore())
		assert.False(t, h.engine.Enabled())
		assert.Zero(t, h.source.starts)
	})
}

func TestEngine_DisableLetsInflightFrameFinish(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	done := make(chan struct{})
	h.source.onStop = func() {
		// a frame racing with Stop must not deadlock
		hand := detector.PinchLandmarks()
		h.engine.OnFrame(&hand, time.Now())
		close(done)
	}
	h.engine.Disable()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Disable deadlocked with an in-flight frame")
	}
	assert.Empty(t, h.surface.events, "frames after Disable are dropped")
}

func TestEngine_SetConfig(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	require.NoError(t, h.engine.Enable())

	bad := gesture.DefaultConfig()
	bad.SmoothingFactor = 0
	require.ErrorIs(t, h.engine.SetConfig(bad), gesture.ErrInvalidConfig)

	require.NoError(t, h.engine.SetConfig(gesture.FistOnlyConfig()))
	assert.False(t, h.engine.Config().PinchEnabled)

	h.pose(detector.PinchLandmarks())
	assert.Empty(t, h.surface.events, "pinch is ignored in fist-only tuning")
}

func TestCursorState_String(t *testing.T) {
	assert.Equal(t, "restricted", CursorRestricted.String())
	assert.Equal(t, "click", PointerClick.String())
}

func TestRestrictedZone(t *testing.T) {
	z := RestrictedZone{BarHeight: DefaultBarHeight}
	vp := gesture.Size{Width: 1280, Height: 720}

	assert.Equal(t, 576.0, z.Threshold(vp))
	assert.True(t, z.Contains(gesture.Point{Y: 576}, vp))
	assert.False(t, z.Contains(gesture.Point{Y: 575.9}, vp))
}
