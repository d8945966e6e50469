// Package app wires the camera, hand detector and gesture engine into the
// running wand process.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/capture"
	"github.com/medlink-research/wand/internal/detector"
	"github.com/medlink-research/wand/internal/detector/mediapipe"
	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/plugin"
	"github.com/medlink-research/wand/internal/store"
)

// ErrUnavailable reports that gesture control cannot run in this process.
var ErrUnavailable = engine.ErrUnavailable

// DefaultPluginTimeout bounds a single navigation plugin run.
const DefaultPluginTimeout = 5 * time.Second

// NavigationConfig names the plugin action run on a wave.
type NavigationConfig struct {
	Plugin string `yaml:"plugin" json:"plugin"`
	Action string `yaml:"action" json:"action"`
	// Options is passed to the plugin as its request config, e.g. the
	// keyboard plugin's shortcut and skip_apps.
	Options map[string]any `yaml:"options,omitempty" json:"options,omitempty"`
}

func (n NavigationConfig) options() (json.RawMessage, error) {
	if len(n.Options) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(n.Options)
	if err != nil {
		return nil, fmt.Errorf("navigation options: %w", err)
	}
	return data, nil
}

// Config holds configuration options for the application.
type Config struct {
	Store      *store.Store
	PluginDir  string
	Camera     capture.Config
	Detector   detector.Config
	Engine     engine.Config
	Navigation NavigationConfig

	// GestureOverride makes Engine.Gesture win over the active profile at
	// startup. It is set when the config file has a gesture section.
	GestureOverride bool

	// PreviewQuality is the JPEG quality of the camera preview.
	PreviewQuality int

	// Surface receives synthesized pointer events. Required.
	Surface engine.Surface
	// Presenter shows the cursor. Optional.
	Presenter engine.Presenter
	// Observer receives every engine event after it is queued for the log.
	Observer engine.Observer

	Logger *zap.Logger
}

// App owns the landmark pipeline and the engine it feeds. It is the
// engine's Source: enabling gesture control starts the camera loop.
type App struct {
	config    Config
	logger    *zap.Logger
	sessionID string

	camera    capture.Camera
	preview   *capture.Preview
	engine    *engine.Engine
	pluginMgr *plugin.Manager
	navigator *plugin.Navigator
	recorder  *recorder

	mu          sync.RWMutex
	mirrorX     bool
	detector    mediapipe.Detector
	detectorErr error
	stopCh      chan struct{}
	done        chan struct{}
}

// New creates an App. The detection pipeline does not run until the engine
// is enabled.
func New(config Config) (*App, error) {
	if config.Surface == nil {
		return nil, errors.New("app: surface is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		config:    config,
		logger:    logger,
		sessionID: uuid.NewString(),
		camera:    capture.NewCamera(config.Camera),
		preview:   capture.NewPreview(config.PreviewQuality),
		mirrorX:   config.Engine.Gesture.MirrorX,
	}

	if mp, err := mediapipe.New(config.Detector, logger); err == nil {
		a.detector = mp
		logger.Info("using MediaPipe hand detection")
	} else {
		a.detectorErr = err
		logger.Warn("hand detection unavailable", zap.Error(err))
	}

	if config.PluginDir != "" {
		a.pluginMgr = plugin.NewManager(config.PluginDir, logger.Named("plugin"))
		if err := a.pluginMgr.Discover(); err != nil {
			logger.Warn("plugin discovery failed", zap.String("dir", config.PluginDir), zap.Error(err))
		}
		if config.Navigation.Plugin != "" {
			options, err := config.Navigation.options()
			if err != nil {
				return nil, err
			}
			a.navigator = plugin.NewNavigator(plugin.NavigatorConfig{
				Manager:  a.pluginMgr,
				Executor: plugin.NewExecutor(DefaultPluginTimeout),
				Plugin:   config.Navigation.Plugin,
				Action:   config.Navigation.Action,
				Config:   options,
				Logger:   logger.Named("navigator"),
			})
		}
	}

	engineCfg := config.Engine
	deps := engine.Deps{
		Presenter: config.Presenter,
		Surface:   config.Surface,
		Source:    a,
		Observer:  a.observe,
	}
	if a.navigator != nil {
		deps.Navigator = a.navigator
	}
	if config.Store != nil {
		deps.Preferences = config.Store.Preferences()
		a.recorder = newRecorder(config.Store.Events(), a.sessionID, logger.Named("events"))

		if config.GestureOverride {
			logger.Info("gesture settings taken from config file")
		} else if p, err := config.Store.Profiles().Active(); err == nil {
			engineCfg.Gesture = a.withCapture(p.Config)
			logger.Info("loaded calibration profile", zap.String("profile", p.Name))
		} else if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("loading active profile failed", zap.Error(err))
		}
	}

	eng, err := engine.New(engineCfg, deps, logger.Named("engine"))
	if err != nil {
		a.closeAux()
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	a.engine = eng

	return a, nil
}

func (a *App) observe(ev engine.Event) {
	if a.recorder != nil {
		a.recorder.Observe(ev)
	}
	if a.config.Observer != nil {
		a.config.Observer(ev)
	}
}

// SetDetector replaces the hand detector. It clears an earlier detector
// failure.
func (a *App) SetDetector(d mediapipe.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	a.detectorErr = nil
}

// SetCamera replaces the camera. It must be called before the pipeline
// starts.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Start opens the camera and runs the detection pipeline. It implements
// engine.Source; a failure here makes gesture control unavailable.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.detector == nil {
		err := a.detectorErr
		if err == nil {
			err = detector.ErrUnavailable
		}
		return err
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("opening camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done, a.camera, a.detector)

	got := a.camera.Negotiated()
	a.logger.Info("detection pipeline started",
		zap.Int("width", got.Width),
		zap.Int("height", got.Height),
		zap.Int("fps", a.camera.FPS()))
	return nil
}

// Stop halts the pipeline, waits for the frame in progress and releases
// the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	a.mu.RLock()
	defer a.mu.RUnlock()
	if err := a.camera.Close(); err != nil {
		a.logger.Warn("closing camera failed", zap.Error(err))
	}
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("closing detector failed", zap.Error(err))
	}
	a.logger.Info("detection pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// ActivateProfile makes the stored profile current and applies its
// thresholds to the engine.
func (a *App) ActivateProfile(id string) (*store.Profile, error) {
	if a.config.Store == nil {
		return nil, errors.New("app: no store configured")
	}
	profiles := a.config.Store.Profiles()
	p, err := profiles.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := a.engine.SetConfig(a.withCapture(p.Config)); err != nil {
		return nil, err
	}
	if err := profiles.Activate(id); err != nil {
		return nil, err
	}
	p.Active = true
	a.logger.Info("calibration profile activated", zap.String("profile", p.Name))
	return p, nil
}

// ApplyGestureConfig pushes new thresholds into the running engine. The
// horizontal flip stays with the capture setup.
func (a *App) ApplyGestureConfig(cfg gesture.Config) error {
	return a.engine.SetConfig(a.withCapture(cfg))
}

// ReloadGestureConfig applies gesture settings re-read from the config
// file. Its mirror_x becomes the capture flip. The thresholds replace the
// profile's only when override is set.
func (a *App) ReloadGestureConfig(cfg gesture.Config, override bool) error {
	a.mu.Lock()
	a.mirrorX = cfg.MirrorX
	a.mu.Unlock()

	if !override {
		cfg = a.engine.Config()
	}
	return a.ApplyGestureConfig(cfg)
}

// withCapture replaces the profile's flip with the one the camera needs.
func (a *App) withCapture(cfg gesture.Config) gesture.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cfg.MirrorX = a.mirrorX
	return cfg
}

// Close stops the pipeline and flushes the event log. The persisted
// gesture control preference is left untouched.
func (a *App) Close() {
	a.Stop()
	a.closeAux()
}

func (a *App) closeAux() {
	if a.navigator != nil {
		a.navigator.Close()
	}
	if a.recorder != nil {
		a.recorder.Close()
	}
}

// Engine returns the gesture engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Preview returns the latest camera frame buffer.
func (a *App) Preview() *capture.Preview {
	return a.preview
}

// Store returns the configured store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// PluginManager returns the plugin manager, or nil without a plugin dir.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// SessionID identifies this process in the event log.
func (a *App) SessionID() string {
	return a.sessionID
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the hand detector, nil when none could be created.
func (a *App) Detector() mediapipe.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
