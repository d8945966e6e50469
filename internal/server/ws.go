package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/surface"
)

const (
	// DocumentTarget is the hit-test result when the client has not sent a
	// layout; the client resolves the element under the point itself.
	DocumentTarget = "document"

	clientQueueSize = 64
	writeWait       = 2 * time.Second
)

// ErrNoClient is returned when an event is dispatched with nobody connected.
var ErrNoClient = errors.New("no cursor client connected")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is sent from the server to cursor clients.
type Message struct {
	Type    string        `json:"type"`
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	DeltaY  float64       `json:"dy,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Target  string        `json:"target,omitempty"`
	State   string        `json:"state,omitempty"`
	Visible *bool         `json:"visible,omitempty"`
	Enabled *bool         `json:"enabled,omitempty"`
	Event   *engine.Event `json:"event,omitempty"`
}

// Message types.
const (
	MsgCursor  = "cursor"
	MsgVisible = "visible"
	MsgState   = "state"
	MsgEnabled = "enabled"
	MsgWave    = "wave"
	MsgPointer = "pointer"
	MsgScroll  = "scroll"
	MsgEvent   = "event"
)

// ClientMessage is sent by cursor clients to describe their page.
type ClientMessage struct {
	Type   string          `json:"type"` // "viewport" or "layout"
	Width  float64         `json:"width"`
	Height float64         `json:"height"`
	Layout *surface.Layout `json:"layout,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is the remote surface: connected browser pages draw the cursor and
// receive the synthesized pointer and scroll events. It implements
// engine.Surface and engine.Presenter.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	clients  map[*client]struct{}
	viewport gesture.Size
	layout   *surface.Memory
	wg       sync.WaitGroup
}

// NewHub creates a hub reporting viewport until a client sends its own.
func NewHub(viewport gesture.Size, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:   logger,
		clients:  make(map[*client]struct{}),
		viewport: viewport,
	}
}

// ServeHTTP upgrades the request and serves one cursor client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientQueueSize)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()
	h.logger.Info("cursor client connected", zap.String("remote", r.RemoteAddr))

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		h.writeLoop(c)
	}()
	h.readLoop(c)

	h.remove(c)
	<-writeDone
	h.wg.Done()
	h.logger.Info("cursor client disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *Hub) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Debug("ignoring malformed client message", zap.Error(err))
			continue
		}
		h.apply(msg)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) apply(msg ClientMessage) {
	switch msg.Type {
	case "viewport":
		if msg.Width <= 0 || msg.Height <= 0 {
			return
		}
		h.mu.Lock()
		h.viewport = gesture.Size{Width: msg.Width, Height: msg.Height}
		h.mu.Unlock()
	case "layout":
		if msg.Layout == nil {
			return
		}
		mem, err := surface.FromLayout(*msg.Layout)
		if err != nil {
			h.logger.Debug("ignoring invalid layout", zap.Error(err))
			return
		}
		h.mu.Lock()
		h.viewport = mem.Viewport()
		h.layout = mem
		h.mu.Unlock()
	default:
		h.logger.Debug("ignoring client message", zap.String("type", msg.Type))
	}
}

// broadcast queues msg for every client, dropping it for clients that are
// too far behind. It reports how many clients received it.
func (h *Hub) broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding cursor message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		select {
		case c.send <- data:
			n++
		default:
		}
	}
	return n
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and waits for their handlers to return.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

// Viewport implements engine.Surface.
func (h *Hub) Viewport() gesture.Size {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.viewport
}

// HitTest implements engine.Surface. With a client layout it returns the
// topmost element; otherwise any point in the viewport hits the document.
func (h *Hub) HitTest(p gesture.Point) (engine.Target, bool) {
	h.mu.RLock()
	layout, viewport, n := h.layout, h.viewport, len(h.clients)
	h.mu.RUnlock()

	if n == 0 {
		return engine.Target{}, false
	}
	if layout != nil {
		return layout.HitTest(p)
	}
	if p.X < 0 || p.Y < 0 || p.X >= viewport.Width || p.Y >= viewport.Height {
		return engine.Target{}, false
	}
	return engine.Target{ID: DocumentTarget}, true
}

// Dispatch implements engine.Surface.
func (h *Hub) Dispatch(t engine.Target, kind engine.PointerKind, p gesture.Point) error {
	if h.broadcast(Message{Type: MsgPointer, Kind: kind.String(), Target: t.ID, X: p.X, Y: p.Y}) == 0 {
		return ErrNoClient
	}
	return nil
}

// ScrollBy implements engine.Surface. The client scrolls the nearest
// scrollable ancestor under the point, or the page. Scrolls are dropped
// while nobody is connected.
func (h *Hub) ScrollBy(p gesture.Point, dy float64) error {
	h.broadcast(Message{Type: MsgScroll, X: p.X, Y: p.Y, DeltaY: dy})
	return nil
}

// MoveCursor implements engine.Presenter.
func (h *Hub) MoveCursor(p gesture.Point) {
	h.broadcast(Message{Type: MsgCursor, X: p.X, Y: p.Y})
}

// SetCursorVisible implements engine.Presenter.
func (h *Hub) SetCursorVisible(visible bool) {
	h.broadcast(Message{Type: MsgVisible, Visible: &visible})
}

// SetCursorState implements engine.Presenter.
func (h *Hub) SetCursorState(state engine.CursorState) {
	h.broadcast(Message{Type: MsgState, State: state.String()})
}

// SetEnabled implements engine.Presenter.
func (h *Hub) SetEnabled(enabled bool) {
	h.broadcast(Message{Type: MsgEnabled, Enabled: &enabled})
}

// FlashWave implements engine.Presenter.
func (h *Hub) FlashWave() {
	h.broadcast(Message{Type: MsgWave})
}

// Observe forwards engine events to clients. It matches engine.Observer.
func (h *Hub) Observe(ev engine.Event) {
	h.broadcast(Message{Type: MsgEvent, X: ev.X, Y: ev.Y, Event: &ev})
}
