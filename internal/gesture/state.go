package gesture

import "fmt"

// Mode is the pointer interaction mode. Exactly one is active per frame.
type Mode int

const (
	ModeIdle Mode = iota
	ModeClicking
	ModeScrolling
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeClicking:
		return "clicking"
	case ModeScrolling:
		return "scrolling"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// State is the machine's memory between frames.
type State struct {
	Mode    Mode
	AnchorY float64 // screen y of the previous scroll frame
}

// Input is one frame's classified hand at a mapped screen point.
type Input struct {
	Pinch bool
	Fist  bool
	Point Point
	// ScrollAllowed is false while a restricted zone forbids scrolling.
	ScrollAllowed bool
}

// EffectKind names a side effect requested by a transition.
type EffectKind int

const (
	EffectPress EffectKind = iota + 1
	EffectRelease
	EffectClick
	EffectScrollStart
	EffectScroll
	EffectScrollEnd
)

func (k EffectKind) String() string {
	switch k {
	case EffectPress:
		return "press"
	case EffectRelease:
		return "release"
	case EffectClick:
		return "click"
	case EffectScrollStart:
		return "scroll-start"
	case EffectScroll:
		return "scroll"
	case EffectScrollEnd:
		return "scroll-end"
	}
	return fmt.Sprintf("EffectKind(%d)", int(k))
}

// Effect is a side effect to perform at Point. DeltaY is set for EffectScroll.
type Effect struct {
	Kind   EffectKind
	Point  Point
	DeltaY float64
}

// Transition advances the machine by one frame. Rules, first match wins:
//
//  1. pinch and not clicking: press (ending any scroll first)
//  2. no pinch while clicking: release then click
//  3. fist, scroll allowed, idle: start scrolling anchored at y
//  4. fist, scroll allowed, scrolling: scroll by (y-anchor)*sensitivity, re-anchor
//  5. scrolling otherwise: stop scrolling
//
// A pinching frame never starts or continues a scroll.
func Transition(prev State, in Input, sensitivity float64) (State, []Effect) {
	p := in.Point

	switch {
	case in.Pinch && prev.Mode != ModeClicking:
		var effects []Effect
		if prev.Mode == ModeScrolling {
			effects = append(effects, Effect{Kind: EffectScrollEnd, Point: p})
		}
		effects = append(effects, Effect{Kind: EffectPress, Point: p})
		return State{Mode: ModeClicking}, effects

	case !in.Pinch && prev.Mode == ModeClicking:
		return State{Mode: ModeIdle}, []Effect{
			{Kind: EffectRelease, Point: p},
			{Kind: EffectClick, Point: p},
		}

	case prev.Mode == ModeClicking:
		// still pinching
		return prev, nil
	}

	scrolling := in.Fist && !in.Pinch && in.ScrollAllowed

	switch {
	case scrolling && prev.Mode == ModeIdle:
		return State{Mode: ModeScrolling, AnchorY: p.Y}, []Effect{{Kind: EffectScrollStart, Point: p}}

	case scrolling && prev.Mode == ModeScrolling:
		next := State{Mode: ModeScrolling, AnchorY: p.Y}
		dy := (p.Y - prev.AnchorY) * sensitivity
		if dy == 0 {
			return next, nil
		}
		return next, []Effect{{Kind: EffectScroll, Point: p, DeltaY: dy}}

	case prev.Mode == ModeScrolling:
		return State{Mode: ModeIdle}, []Effect{{Kind: EffectScrollEnd, Point: p}}
	}

	return State{Mode: ModeIdle}, nil
}
