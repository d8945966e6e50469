package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrBusy is returned by Back while a previous navigation is still running.
var ErrBusy = errors.New("navigation already running")

// NavigatorConfig configures a Navigator.
type NavigatorConfig struct {
	Manager  *Manager
	Executor *Executor
	Plugin   string
	Action   string
	// Config is forwarded to the plugin as Request.Config.
	Config json.RawMessage
	Logger *zap.Logger
	// OnDone, if set, receives the outcome of every completed navigation.
	OnDone func(*Response, error)
}

// Navigator runs a plugin action as the "go back" navigation. The plugin
// runs in the background so Back never blocks the caller; at most one
// navigation is in flight.
type Navigator struct {
	cfg    NavigatorConfig
	logger *zap.Logger

	busy   atomic.Bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewNavigator creates a Navigator.
func NewNavigator(cfg NavigatorConfig) *Navigator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Navigator{
		cfg:    cfg,
		logger: logger.With(zap.String("plugin", cfg.Plugin), zap.String("action", cfg.Action)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Back starts the navigation action. It fails fast when the plugin or action
// is missing, or when a previous navigation has not finished.
func (n *Navigator) Back() error {
	plugin, err := n.cfg.Manager.Resolve(n.cfg.Plugin, n.cfg.Action)
	if err != nil {
		return err
	}
	if !n.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer n.busy.Store(false)

		resp, err := n.cfg.Executor.Execute(n.ctx, plugin, &Request{
			Action:  n.cfg.Action,
			Gesture: "wave",
			Config:  n.cfg.Config,
		})
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			n.logger.Warn("back navigation failed", zap.Error(err))
		} else {
			n.logger.Debug("back navigation done")
		}
		if n.cfg.OnDone != nil {
			n.cfg.OnDone(resp, err)
		}
	}()
	return nil
}

// Close cancels a running navigation and waits for it to exit.
func (n *Navigator) Close() {
	n.cancel()
	n.wg.Wait()
}
