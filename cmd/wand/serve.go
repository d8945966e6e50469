package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/app"
	"github.com/medlink-research/wand/internal/config"
	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/server"
	"github.com/medlink-research/wand/internal/store"
	"github.com/medlink-research/wand/internal/tray"
)

var (
	serveAddr string
	serveTray bool
	watchConf bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run gesture control with the HTTP API and cursor websocket",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveTray, "tray", false, "show the system tray menu")
	serveCmd.Flags().BoolVar(&watchConf, "watch", true, "reload gesture settings when the config file changes")
}

// trayPresenter forwards to the cursor hub and mirrors the enabled state
// in the tray menu.
type trayPresenter struct {
	*server.Hub
	tray *tray.Tray
}

func (p trayPresenter) SetEnabled(enabled bool) {
	p.Hub.SetEnabled(enabled)
	p.tray.SetEnabled(enabled)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	useTray := serveTray || cfg.Tray

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	hub := server.NewHub(gesture.Size{Width: cfg.Server.ViewportWidth, Height: cfg.Server.ViewportHeight}, logger.Named("cursor"))

	var (
		presenter engine.Presenter = hub
		observer  engine.Observer  = hub.Observe
		menu      *tray.Tray
	)
	if useTray {
		menu = tray.New()
		presenter = trayPresenter{Hub: hub, tray: menu}
		observer = func(ev engine.Event) {
			hub.Observe(ev)
			menu.Observe(ev)
		}
	}

	a, err := app.New(app.Config{
		Store:           st,
		PluginDir:       cfg.PluginDir,
		Camera:          cfg.Camera,
		Detector:        cfg.Detector,
		Engine:          cfg.Engine(),
		Navigation:      cfg.Navigation,
		GestureOverride: cfg.GestureSet,
		PreviewQuality:  cfg.PreviewQuality,
		Surface:         hub,
		Presenter:       presenter,
		Observer:        observer,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	eng := a.Engine()

	if err := eng.Restore(); err != nil {
		logger.Warn("gesture control could not be restored", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchConf {
		if w, err := startWatcher(ctx, a, eng); err != nil {
			logger.Warn("config watch disabled", zap.Error(err))
		} else {
			defer w.Stop()
		}
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", zap.String("dir", webDir))
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: eng,
		Activator:  a,
		Preview:    a.Preview(),
		Hub:        hub,
		Logger:     logger.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx, cfg.Server.Addr) }()

	if menu != nil {
		menu.SetEnabled(eng.Enabled())
		menu.SetRestricted(eng.Restricted())
		if eng.Unavailable() {
			menu.SetUnavailable()
		}
		menu.OnToggle(eng.Toggle)
		menu.OnRestricted(eng.SetRestricted)
		menu.OnSettings(func() { openBrowser(settingsURL(cfg.Server.Addr)) })
		menu.OnQuit(stop)
		go func() {
			<-ctx.Done()
			menu.Quit()
		}()
		// systray needs the main thread
		menu.Run()
		stop()
	}

	return <-errCh
}

func startWatcher(ctx context.Context, a *app.App, eng *engine.Engine) (*config.Watcher, error) {
	w, err := config.NewWatcher(configPath, func(next config.Config) {
		if err := a.ReloadGestureConfig(next.Gesture, next.GestureSet); err != nil {
			logger.Warn("rejected gesture settings", zap.Error(err))
		}
		eng.SetRestricted(next.Restricted.Enabled)
	}, logger.Named("config"))
	if err != nil {
		return nil, err
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return nil, err
	}
	return w, nil
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("opening browser failed", zap.Error(err))
		return
	}
	go cmd.Wait()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.wand/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, config.DefaultDirName, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
