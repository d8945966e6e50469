// Package tray provides a system tray menu for switching gesture control
// on and off.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/medlink-research/wand/internal/engine"
)

// Menu titles.
const (
	titleEnabled     = "● Gesture control on"
	titleDisabled    = "○ Gesture control off"
	titleUnavailable = "Gesture control unavailable"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func() (bool, error)
	onRestricted func(bool)
	onSettings   func()
	onQuit       func()
	enabled      bool
	restricted   bool
	unavailable  bool
	lastEvent    string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuRestricted *systray.MenuItem
	menuLastEvent  *systray.MenuItem
}

// New creates a new Tray instance showing gesture control as off.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback run when the toggle item is clicked. It
// returns the new enabled state.
func (t *Tray) OnToggle(fn func() (bool, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRestricted sets the callback run when restricted mode is switched.
func (t *Tray) OnRestricted(fn func(restricted bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRestricted = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("wand")
	systray.SetTooltip("Hand gesture pointer control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(t.toggleTitle(), "Toggle gesture control")
	if t.unavailable {
		t.menuToggle.Disable()
	}
	t.menuRestricted = systray.AddMenuItemCheckbox("Restricted to bottom bar", "Only accept gestures over the bottom bar", t.restricted)
	systray.AddSeparator()

	t.menuLastEvent = systray.AddMenuItem(lastEventTitle(t.lastEvent), "Last synthesized interaction")
	t.menuLastEvent.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit wand")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuRestricted.ClickedCh:
				t.handleRestricted()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle runs the toggle callback and mirrors its result.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	callback := t.onToggle
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	enabled, err := callback()
	if err != nil {
		t.SetUnavailable()
		return
	}
	t.SetEnabled(enabled)
}

// handleRestricted flips restricted mode.
func (t *Tray) handleRestricted() {
	t.mu.Lock()
	t.restricted = !t.restricted
	restricted := t.restricted
	if t.menuRestricted != nil {
		if restricted {
			t.menuRestricted.Check()
		} else {
			t.menuRestricted.Uncheck()
		}
	}
	callback := t.onRestricted
	t.mu.Unlock()

	if callback != nil {
		callback(restricted)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func (t *Tray) toggleTitle() string {
	switch {
	case t.unavailable:
		return titleUnavailable
	case t.enabled:
		return titleEnabled
	default:
		return titleDisabled
	}
}

func lastEventTitle(kind string) string {
	if kind == "" {
		return "Last: none"
	}
	return "Last: " + kind
}

// SetEnabled shows the enabled state.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(t.toggleTitle())
	}
}

// SetUnavailable greys out the toggle for the rest of the process.
func (t *Tray) SetUnavailable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unavailable = true
	t.enabled = false
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(titleUnavailable)
		t.menuToggle.Disable()
	}
}

// SetRestricted shows the restricted mode without running the callback.
func (t *Tray) SetRestricted(restricted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restricted = restricted
	if t.menuRestricted != nil {
		if restricted {
			t.menuRestricted.Check()
		} else {
			t.menuRestricted.Uncheck()
		}
	}
}

// Observe shows the latest click or wave. It matches engine.Observer.
func (t *Tray) Observe(ev engine.Event) {
	if ev.Kind != engine.EventClick && ev.Kind != engine.EventWave {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastEvent = string(ev.Kind)
	if t.menuLastEvent != nil {
		t.menuLastEvent.SetTitle(lastEventTitle(t.lastEvent))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsRestricted returns the restricted mode shown in the menu.
func (t *Tray) IsRestricted() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.restricted
}

// LastEvent returns the last event kind shown.
func (t *Tray) LastEvent() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastEvent
}
