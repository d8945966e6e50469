package engine

import (
	"fmt"
	"time"

	"github.com/medlink-research/wand/internal/gesture"
)

// CursorState is the visual class of the on-screen cursor indicator.
type CursorState int

const (
	CursorIdle CursorState = iota
	CursorClicking
	CursorScrolling
	// CursorRestricted marks a cursor outside the restricted zone.
	CursorRestricted
)

func (s CursorState) String() string {
	switch s {
	case CursorIdle:
		return "idle"
	case CursorClicking:
		return "clicking"
	case CursorScrolling:
		return "scrolling"
	case CursorRestricted:
		return "restricted"
	}
	return fmt.Sprintf("CursorState(%d)", int(s))
}

// Presenter renders the engine's visible state: the cursor indicator, the
// gesture control toggle and the wave feedback. Implementations must not
// call back into the Engine.
type Presenter interface {
	MoveCursor(p gesture.Point)
	SetCursorVisible(visible bool)
	SetCursorState(state CursorState)
	SetEnabled(enabled bool)
	FlashWave()
}

// PointerKind is the type of a synthetic pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota + 1
	PointerUp
	PointerClick
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "pointerdown"
	case PointerUp:
		return "pointerup"
	case PointerClick:
		return "click"
	}
	return fmt.Sprintf("PointerKind(%d)", int(k))
}

// Target is the interactive element found under a point.
type Target struct {
	ID string `json:"id"`
}

// Surface is the host UI the engine drives.
type Surface interface {
	// Viewport returns the current screen size in pixels.
	Viewport() gesture.Size
	// HitTest returns the topmost interactive element at p.
	HitTest(p gesture.Point) (Target, bool)
	// Dispatch delivers a synthetic pointer event to t at p.
	Dispatch(t Target, kind PointerKind, p gesture.Point) error
	// ScrollBy offsets the nearest scrollable container under p, or the
	// page when there is none.
	ScrollBy(p gesture.Point, dy float64) error
}

// Navigator performs the "go back" action bound to a wave.
type Navigator interface {
	Back() error
}

// Source is the capture and detection pipeline feeding OnFrame.
type Source interface {
	Start() error
	Stop()
}

// Preferences persists whether gesture control is enabled.
type Preferences interface {
	GestureControlEnabled() (bool, error)
	SetGestureControlEnabled(enabled bool) error
}

// EventKind names a synthesized interaction.
type EventKind string

const (
	EventPress       EventKind = "press"
	EventRelease     EventKind = "release"
	EventClick       EventKind = "click"
	EventScrollStart EventKind = "scroll-start"
	EventScroll      EventKind = "scroll"
	EventScrollEnd   EventKind = "scroll-end"
	EventWave        EventKind = "wave"
)

// Event describes one interaction the engine produced.
type Event struct {
	Kind   EventKind `json:"kind"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	DeltaY float64   `json:"delta_y,omitempty"`
	Target string    `json:"target,omitempty"`
	Time   time.Time `json:"time"`
}

// Observer receives every Event. It runs inside the frame callback.
type Observer func(Event)
