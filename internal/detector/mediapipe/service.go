package mediapipe

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/medlink-research/wand/internal/detector"
)

const scriptName = "mediapipe_service.py"

// shutdownGrace is how long a service may take to exit after stdin closes.
const shutdownGrace = 2 * time.Second

// Service detects hands with a MediaPipe Python subprocess.
//
// Frames go out on stdin in the detector wire framing and each is answered
// with one JSON line. The process starts on the first frame, stops after
// IdleShutdownMs without frames, and is killed and restarted on the next
// frame when a round trip fails or exceeds ResponseTimeoutMs.
type Service struct {
	config     detector.Config
	scriptPath string
	logger     *zap.Logger

	mu        sync.Mutex
	proc      *process
	idleTimer *time.Timer
	idleGen   uint64
	restarts  int
}

// process is one running subprocess. The pipes are plain files so reads
// and writes can carry deadlines.
type process struct {
	cmd       *exec.Cmd
	stdin     *os.File
	stdout    *os.File
	in        *bufio.Writer
	out       *bufio.Reader
	stderrEnd chan struct{}
}

// New locates the service script and returns a Service. It returns
// detector.ErrUnavailable when the script cannot be found.
func New(config detector.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findScript()
	} else if _, err := os.Stat(scriptPath); err != nil {
		scriptPath = ""
	}
	if scriptPath == "" {
		return nil, fmt.Errorf("%s not found: %w", scriptName, detector.ErrUnavailable)
	}

	return &Service{
		config:     config,
		scriptPath: scriptPath,
		logger:     logger.Named("mediapipe"),
	}, nil
}

// Detect sends frame to the subprocess and returns the hands it reports.
func (s *Service) Detect(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	jpeg, err := s.encode(frame)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil {
		if err := s.start(); err != nil {
			return nil, err
		}
	}
	// a pending idle shutdown must not stop the process in use
	s.stopIdleTimer()

	hands, err := s.proc.roundTrip(jpeg, s.timeout())
	if err != nil {
		s.logger.Warn("detector subprocess failed, restarting on next frame", zap.Error(err))
		s.kill()
		s.restarts++
		return nil, err
	}

	s.resetIdleTimer()
	return hands, nil
}

// Restarts returns how many times the subprocess was killed mid-stream.
func (s *Service) Restarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarts
}

// Close shuts down the subprocess.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *Service) timeout() time.Duration {
	return time.Duration(s.config.ResponseTimeoutMs) * time.Millisecond
}

// encode downscales frames wider than InputWidth and compresses them.
func (s *Service) encode(frame *gocv.Mat) ([]byte, error) {
	src := *frame
	if w := s.config.InputWidth; w > 0 && src.Cols() > w {
		h := src.Rows() * w / src.Cols()
		small := gocv.NewMat()
		defer small.Close()
		gocv.Resize(src, &small, image.Pt(w, h), 0, 0, gocv.InterpolationArea)
		src = small
	}

	quality := s.config.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = detector.DefaultJPEGQuality
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, src, []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// the native buffer is freed on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}

func (s *Service) start() error {
	python := s.config.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, s.scriptPath,
		"--max-hands", strconv.Itoa(s.config.MaxHands),
		"--model-complexity", strconv.Itoa(s.config.ModelComplexity),
		"--min-detection-confidence", strconv.FormatFloat(s.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(s.config.MinTrackingConf, 'f', -1, 64),
	)

	inR, inW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdin = inR
	cmd.Stdout = outW
	stderr, err := cmd.StderrPipe()
	if err == nil {
		err = cmd.Start()
	}
	// the child holds its own copies
	inR.Close()
	outW.Close()
	if err != nil {
		inW.Close()
		outR.Close()
		return fmt.Errorf("start mediapipe service: %w", err)
	}

	p := &process{
		cmd:       cmd,
		stdin:     inW,
		stdout:    outR,
		in:        bufio.NewWriter(inW),
		out:       bufio.NewReader(outR),
		stderrEnd: make(chan struct{}),
	}
	go func() {
		defer close(p.stderrEnd)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.logger.Debug("service output", zap.String("line", scanner.Text()))
		}
	}()
	s.proc = p

	s.logger.Info("detector subprocess started",
		zap.String("python", python),
		zap.String("script", s.scriptPath),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (p *process) roundTrip(jpeg []byte, timeout time.Duration) ([]detector.HandLandmarks, error) {
	if timeout > 0 {
		deadline := time.Now().Add(timeout)
		if err := p.stdin.SetWriteDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
			return nil, err
		}
		if err := p.stdout.SetReadDeadline(deadline); err != nil && !errors.Is(err, os.ErrNoDeadline) {
			return nil, err
		}
	}

	if err := detector.WriteFrameJPEG(p.in, jpeg); err != nil {
		return nil, err
	}
	if err := p.in.Flush(); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	line, err := p.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return detector.DecodeHands(line)
}

// reap waits for the process to exit, killing it after grace.
func (p *process) reap(grace time.Duration) error {
	done := make(chan error, 1)
	go func() {
		<-p.stderrEnd
		done <- p.cmd.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(grace):
		p.cmd.Process.Kill()
		select {
		case err = <-done:
		case <-time.After(grace):
			// a grandchild still holds stderr; leave the reaper behind
			err = errors.New("detector subprocess did not exit")
		}
	}
	p.stdout.Close()
	return err
}

// shutdown closes stdin so the service exits on its own.
func (s *Service) shutdown() error {
	s.stopIdleTimer()
	if s.proc == nil {
		return nil
	}
	p := s.proc
	s.proc = nil

	p.stdin.Close()
	err := p.reap(shutdownGrace)
	s.logger.Info("detector subprocess stopped", zap.Error(err))
	return err
}

// kill terminates a misbehaving service without waiting for it to drain.
func (s *Service) kill() {
	s.stopIdleTimer()
	if s.proc == nil {
		return
	}
	p := s.proc
	s.proc = nil

	p.cmd.Process.Kill()
	p.stdin.Close()
	p.reap(shutdownGrace)
}

// stopIdleTimer cancels the idle shutdown. Bumping the generation also
// disarms a callback that already fired and waits for mu.
func (s *Service) stopIdleTimer() {
	s.idleGen++
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *Service) resetIdleTimer() {
	s.stopIdleTimer()
	if s.config.IdleShutdownMs <= 0 {
		return
	}
	gen := s.idleGen
	s.idleTimer = time.AfterFunc(time.Duration(s.config.IdleShutdownMs)*time.Millisecond, func() {
		s.idleShutdown(gen)
	})
}

func (s *Service) idleShutdown(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.idleGen {
		return
	}
	s.logger.Debug("stopping idle detector subprocess")
	s.shutdown()
}

func findScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting([]string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(home, ".wand", "scripts", scriptName),
	})
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	home, _ := os.UserHomeDir()

	return firstExisting([]string{
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(filepath.Dir(execPath), "venv", "bin", "python"),
		filepath.Join(home, ".wand", "venv", "bin", "python"),
	})
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
