// Package surface provides an in-memory UI surface for the gesture engine:
// rectangular elements stacked by z-order, scrollable containers and a
// scrollable page. It backs offline replay and tests.
package surface

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
)

// Common errors.
var (
	ErrDuplicateElement = errors.New("duplicate element")
	ErrUnknownTarget    = errors.New("unknown target")
)

// Rect is an axis-aligned rectangle in screen pixels.
type Rect struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive.
func (r Rect) Contains(p gesture.Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Element is a box on the surface.
type Element struct {
	ID     string `yaml:"id" json:"id"`
	Bounds Rect   `yaml:"bounds" json:"bounds"`
	Z      int    `yaml:"z" json:"z"`
	// Scrollable elements receive scroll offsets. ContentHeight bounds
	// the offset at ContentHeight - Bounds.Height.
	Scrollable    bool    `yaml:"scrollable" json:"scrollable"`
	ContentHeight float64 `yaml:"content_height" json:"content_height"`
	ScrollTop     float64 `yaml:"-" json:"scroll_top"`
}

func (e *Element) maxScroll() float64 {
	return max(0, e.ContentHeight-e.Bounds.Height)
}

// Dispatched is a pointer event delivered to an element.
type Dispatched struct {
	Target string             `json:"target"`
	Kind   engine.PointerKind `json:"kind"`
	Point  gesture.Point      `json:"point"`
}

// Memory is a concurrency-safe in-memory engine.Surface.
type Memory struct {
	mu         sync.Mutex
	viewport   gesture.Size
	elements   []*Element
	pageHeight float64
	pageScroll float64
	dispatched []Dispatched
}

// NewMemory returns an empty surface of the given viewport size.
func NewMemory(viewport gesture.Size) *Memory {
	return &Memory{viewport: viewport, pageHeight: viewport.Height}
}

// Layout is the YAML description of a surface.
type Layout struct {
	Width      float64   `yaml:"width" json:"width"`
	Height     float64   `yaml:"height" json:"height"`
	PageHeight float64   `yaml:"page_height" json:"page_height"`
	Elements   []Element `yaml:"elements" json:"elements"`
}

// LoadLayout builds a surface from a YAML layout.
func LoadLayout(r io.Reader) (*Memory, error) {
	var layout Layout
	if err := yaml.NewDecoder(r).Decode(&layout); err != nil {
		return nil, fmt.Errorf("decoding layout: %w", err)
	}
	return FromLayout(layout)
}

// FromLayout builds a surface from a decoded layout.
func FromLayout(layout Layout) (*Memory, error) {
	if layout.Width <= 0 || layout.Height <= 0 {
		return nil, fmt.Errorf("layout viewport %vx%v must be positive", layout.Width, layout.Height)
	}

	m := NewMemory(gesture.Size{Width: layout.Width, Height: layout.Height})
	if layout.PageHeight > 0 {
		m.SetPageHeight(layout.PageHeight)
	}
	for _, el := range layout.Elements {
		if err := m.Add(el); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add places an element on the surface. Later elements sit above earlier
// ones with the same Z.
func (m *Memory) Add(el Element) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.elements {
		if existing.ID == el.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateElement, el.ID)
		}
	}
	m.elements = append(m.elements, &el)
	return nil
}

// SetPageHeight sets the full page height used to bound page scrolling.
func (m *Memory) SetPageHeight(h float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageHeight = h
}

// Viewport returns the viewport size.
func (m *Memory) Viewport() gesture.Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewport
}

// HitTest returns the topmost element containing p.
func (m *Memory) HitTest(p gesture.Point) (engine.Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el := m.topmost(p, func(*Element) bool { return true })
	if el == nil {
		return engine.Target{}, false
	}
	return engine.Target{ID: el.ID}, true
}

// Dispatch records a pointer event delivered to t.
func (m *Memory) Dispatch(t engine.Target, kind engine.PointerKind, p gesture.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.find(t.ID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, t.ID)
	}
	m.dispatched = append(m.dispatched, Dispatched{Target: t.ID, Kind: kind, Point: p})
	return nil
}

// ScrollBy scrolls the topmost scrollable element under p, or the page.
// Offsets are clamped to the scrollable range.
func (m *Memory) ScrollBy(p gesture.Point, dy float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el := m.topmost(p, func(e *Element) bool { return e.Scrollable }); el != nil {
		el.ScrollTop = clamp(el.ScrollTop+dy, 0, el.maxScroll())
		return nil
	}
	m.pageScroll = clamp(m.pageScroll+dy, 0, max(0, m.pageHeight-m.viewport.Height))
	return nil
}

// Dispatched returns a copy of every delivered pointer event.
func (m *Memory) Dispatched() []Dispatched {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Dispatched(nil), m.dispatched...)
}

// ScrollTop returns an element's scroll offset.
func (m *Memory) ScrollTop(id string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el := m.find(id)
	if el == nil {
		return 0, false
	}
	return el.ScrollTop, true
}

// PageScroll returns the page scroll offset.
func (m *Memory) PageScroll() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageScroll
}

func (m *Memory) topmost(p gesture.Point, accept func(*Element) bool) *Element {
	var best *Element
	for _, el := range m.elements {
		if !el.Bounds.Contains(p) || !accept(el) {
			continue
		}
		if best == nil || el.Z >= best.Z {
			best = el
		}
	}
	return best
}

func (m *Memory) find(id string) *Element {
	for _, el := range m.elements {
		if el.ID == id {
			return el
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
