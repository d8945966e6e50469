package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrTimeout is returned when a plugin outlives the executor timeout.
var ErrTimeout = errors.New("plugin execution timeout")

// maxStderr caps how much plugin stderr is kept in an ExitError.
const maxStderr = 1024

// ExitError reports a plugin process that failed before answering.
type ExitError struct {
	Plugin string
	Action string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("plugin %s %s failed: %v", e.Plugin, e.Action, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ExitError) Unwrap() error { return e.Err }

// Executor runs plugin processes. Every call is bounded by the executor
// timeout as well as the caller's context.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor with the given timeout.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Timeout returns the per-call limit.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Execute sends req to plugin on stdin and decodes its stdout as a
// Response. A decoded Response may still report failure; see Response.Err.
func (e *Executor) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, plugin.Executable)
	cmd.Dir = plugin.Path
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("%s %s: %w after %s", plugin.Manifest.Name, req.Action, ErrTimeout, e.timeout)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case runErr != nil:
		return nil, &ExitError{
			Plugin: plugin.Manifest.Name,
			Action: req.Action,
			Stderr: tail(stderr.String(), maxStderr),
			Err:    runErr,
		}
	}

	var resp Response
	if err := json.NewDecoder(&stdout).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%s %s: decoding response: %w", plugin.Manifest.Name, req.Action, err)
	}
	return &resp, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
