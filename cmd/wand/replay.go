package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medlink-research/wand/internal/detector"
	"github.com/medlink-research/wand/internal/engine"
	"github.com/medlink-research/wand/internal/gesture"
	"github.com/medlink-research/wand/internal/surface"
)

var (
	replayLayout     string
	replayRestricted bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording>",
	Short: "Run a landmark recording through the gesture engine",
	Long: `replay feeds a JSON-lines landmark recording to the gesture engine
against an in-memory page and prints every synthesized interaction as a
JSON line, followed by a summary.

The page defaults to an empty 1280x720 viewport; pass --layout to load
elements from YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayLayout, "layout", "", "YAML page layout")
	replayCmd.Flags().BoolVar(&replayRestricted, "restricted", false, "only accept gestures over the bottom bar")
}

// replaySummary counts what a replay produced.
type replaySummary struct {
	Frames int                      `json:"frames"`
	Hands  int                      `json:"frames_with_hand"`
	Events map[engine.EventKind]int `json:"events"`
	Backs  int                      `json:"back_navigations"`
}

// countingNavigator records back navigations instead of performing them.
type countingNavigator struct{ n int }

func (c *countingNavigator) Back() error {
	c.n++
	return nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	page, err := loadPage(replayLayout)
	if err != nil {
		return err
	}

	engCfg := cfg.Engine()
	if cmd.Flags().Changed("restricted") {
		engCfg.Restricted = replayRestricted
	}

	summary, err := replay(f, page, engCfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	return enc.Encode(map[string]replaySummary{"summary": summary})
}

func loadPage(path string) (*surface.Memory, error) {
	if path == "" {
		return surface.NewMemory(gesture.Size{Width: 1280, Height: 720}), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	page, err := surface.LoadLayout(f)
	if err != nil {
		return nil, fmt.Errorf("loading layout %s: %w", path, err)
	}
	return page, nil
}

// replay drives a fresh engine with every frame of the recording and
// writes each event to out as it happens.
func replay(r io.Reader, page engine.Surface, cfg engine.Config, out io.Writer, logger *zap.Logger) (replaySummary, error) {
	summary := replaySummary{Events: make(map[engine.EventKind]int)}
	enc := json.NewEncoder(out)
	var encErr error
	nav := &countingNavigator{}

	eng, err := engine.New(cfg, engine.Deps{
		Surface:   page,
		Navigator: nav,
		Observer: func(ev engine.Event) {
			summary.Events[ev.Kind]++
			if encErr == nil {
				encErr = enc.Encode(ev)
			}
		},
	}, logger)
	if err != nil {
		return summary, err
	}
	if err := eng.Enable(); err != nil {
		return summary, err
	}

	reader := detector.NewRecordingReader(r)
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, err
		}
		hand := detector.Primary(frame.Hands)
		summary.Frames++
		if hand != nil {
			summary.Hands++
		}
		eng.OnFrame(hand, frame.Time())
		if encErr != nil {
			return summary, encErr
		}
	}
	eng.Disable()
	summary.Backs = nav.n
	return summary, nil
}
