// Package main is the wand keyboard plugin. It sends keystrokes and
// implements the "back" navigation action bound to the wave gesture, via
// AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Gesture string          `json:"gesture"`
	Config  json.RawMessage `json:"config"`
	Params  json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Keystroke is a key with optional modifiers (command, option, control, shift).
type Keystroke struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

// BackConfig selects the back shortcut and the front applications on which
// it is suppressed (a menu has nowhere to go back to).
type BackConfig struct {
	Keystroke
	SkipApps []string `json:"skip_apps"`
}

// errSuppressed marks a back navigation skipped for the front app.
var errSuppressed = errors.New("back suppressed")

// defaultBack is the browser history shortcut per platform.
func defaultBack(goos string) Keystroke {
	if goos == "darwin" {
		return Keystroke{Key: "[", Modifiers: []string{"command"}}
	}
	return Keystroke{Key: "Left", Modifiers: []string{"alt"}}
}

// keyboard sends keystrokes on one platform.
type keyboard interface {
	Send(k Keystroke) error
	FrontApp() (string, error)
}

func main() {
	os.Exit(run(os.Stdin, os.Stdout, newKeyboard(runtime.GOOS), runtime.GOOS))
}

func run(in io.Reader, out io.Writer, kb keyboard, goos string) int {
	var req Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return respond(out, fmt.Errorf("failed to decode request: %w", err))
	}
	if kb == nil {
		return respond(out, fmt.Errorf("unsupported platform %s", goos))
	}

	var err error
	switch req.Action {
	case "keystroke", "shortcut":
		err = handleKeystroke(kb, req.Params)
	case "back":
		err = handleBack(kb, req.Config, goos)
	default:
		err = fmt.Errorf("unknown action: %s", req.Action)
	}
	if err != nil {
		err = fmt.Errorf("action %s failed: %w", req.Action, err)
	}
	return respond(out, err)
}

// respond writes the response. The exit status is always 0 once a
// response is written; failure travels in the body.
func respond(out io.Writer, err error) int {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if encErr := json.NewEncoder(out).Encode(resp); encErr != nil {
		return 1
	}
	return 0
}

func handleKeystroke(kb keyboard, params json.RawMessage) error {
	var k Keystroke
	if err := json.Unmarshal(params, &k); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}
	if k.Key == "" {
		return errors.New("key is required")
	}
	return kb.Send(k)
}

func handleBack(kb keyboard, raw json.RawMessage, goos string) error {
	cfg, err := parseBackConfig(raw, goos)
	if err != nil {
		return err
	}

	if len(cfg.SkipApps) > 0 {
		front, err := kb.FrontApp()
		if err != nil {
			return err
		}
		for _, app := range cfg.SkipApps {
			if strings.EqualFold(app, front) {
				return fmt.Errorf("%w on %s", errSuppressed, front)
			}
		}
	}
	return kb.Send(cfg.Keystroke)
}

// parseBackConfig applies raw over the platform default. A config without
// a key keeps the default shortcut.
func parseBackConfig(raw json.RawMessage, goos string) (BackConfig, error) {
	cfg := BackConfig{Keystroke: defaultBack(goos)}
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return BackConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Key == "" {
		cfg.Keystroke = defaultBack(goos)
	}
	return cfg, nil
}

func newKeyboard(goos string) keyboard {
	switch goos {
	case "darwin":
		return appleScript{}
	case "linux":
		return xdotool{}
	}
	return nil
}

type appleScript struct{}

var appleModifiers = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func (appleScript) Send(k Keystroke) error {
	return runCommand("osascript", "-e", appleKeystrokeScript(k))
}

func (appleScript) FrontApp() (string, error) {
	out, err := exec.Command("osascript", "-e",
		`tell application "System Events" to get name of first application process whose frontmost is true`).Output()
	if err != nil {
		return "", fmt.Errorf("reading front app: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// appleKeystrokeScript builds the System Events keystroke command.
// Unknown modifiers are dropped.
func appleKeystrokeScript(k Keystroke) string {
	key := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(k.Key)
	var mods []string
	for _, m := range k.Modifiers {
		if am, ok := appleModifiers[strings.ToLower(m)]; ok {
			mods = append(mods, am)
		}
	}
	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(mods, ", "))
}

type xdotool struct{}

var xdotoolModifiers = map[string]string{
	"command": "super",
	"cmd":     "super",
	"option":  "alt",
	"alt":     "alt",
	"control": "ctrl",
	"ctrl":    "ctrl",
	"shift":   "shift",
}

func (xdotool) Send(k Keystroke) error {
	return runCommand("xdotool", "key", "--clearmodifiers", xdotoolChord(k))
}

func (xdotool) FrontApp() (string, error) {
	out, err := exec.Command("xdotool", "getactivewindow", "getwindowclassname").Output()
	if err != nil {
		return "", fmt.Errorf("reading front app: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// xdotoolChord joins modifiers and key as "alt+Left".
func xdotoolChord(k Keystroke) string {
	var parts []string
	for _, m := range k.Modifiers {
		if xm, ok := xdotoolModifiers[strings.ToLower(m)]; ok {
			parts = append(parts, xm)
		}
	}
	return strings.Join(append(parts, k.Key), "+")
}

func runCommand(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
