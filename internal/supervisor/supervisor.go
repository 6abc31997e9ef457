// Package supervisor spawns and owns the browser process: its argument
// finalization, temporary profile directory, standard streams, signal
// forwarding, and exit cleanup.
package supervisor

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-chrome-launch/internal/logging"
)

// Spec holds everything needed to spawn the browser process.
type Spec struct {
	// Path is the browser executable.
	Path string

	// Args is the argument list from the builder. The supervisor
	// appends the transport-selection and user-data-dir flags here,
	// because only it knows which resources it owns.
	Args []string

	// Env is the process environment. Nil means a snapshot of
	// os.Environ() taken at spawn time, never a live reference.
	Env []string

	// UsePipe selects --remote-debugging-pipe over an ephemeral port.
	UsePipe bool

	// UserDataDir is an explicit profile directory. When empty (and
	// none is present in Args), a temporary directory is allocated,
	// owned, and removed by the supervisor.
	UserDataDir string

	// DumpIO mirrors the browser's stdout/stderr to the caller's.
	DumpIO bool

	// Signal forwarding policy. Callers embedding the launcher in a
	// process with its own signal handling can opt out per signal.
	HandleSIGINT  bool
	HandleSIGTERM bool
	HandleSIGHUP  bool

	// LineHook, when set, observes every stderr line after the tap.
	// Must not block; it runs on the scanner goroutine.
	LineHook func(line string)

	Logger *slog.Logger
}

// Handle owns a spawned browser process. Exactly one Handle exists per
// launch; it outlives the transport channel and is responsible for
// terminating the process if the channel closes unexpectedly.
type Handle struct {
	cmd      *exec.Cmd
	logger   *slog.Logger
	tap      *logging.OutputTap
	lineHook func(string)

	usePipe   bool
	pipeWrite *os.File // parent writes, browser fd 3 reads
	pipeRead  *os.File // browser fd 4 writes, parent reads

	tempDir string // "" when the profile dir is caller-owned

	lines  chan string
	exitCh chan struct{}

	stateMu   sync.RWMutex
	state     State
	startTime time.Time
	exitCode  int

	sigCh chan os.Signal

	closing     atomic.Bool
	channelUp   atomic.Bool
	cleanupOnce sync.Once

	mu               sync.Mutex
	onUnexpectedExit func()
}

// Spawn finalizes the argument list, allocates owned resources, and
// starts the browser process. On any failure every resource allocated
// here is reclaimed before the error returns.
func Spawn(spec Spec) (*Handle, error) {
	logger := spec.Logger
	if logger == nil {
		logger = slog.Default()
	}

	args := append([]string(nil), spec.Args...)
	if !hasFlagPrefix(args, "--remote-debugging-") {
		if spec.UsePipe {
			args = append(args, "--remote-debugging-pipe")
		} else {
			args = append(args, "--remote-debugging-port=0")
		}
	}

	tempDir := ""
	if !hasFlagPrefix(args, "--user-data-dir") {
		if spec.UserDataDir != "" {
			args = append(args, "--user-data-dir="+spec.UserDataDir)
		} else {
			dir, err := os.MkdirTemp("", "go-chrome-launch-profile-")
			if err != nil {
				return nil, &SpawnError{Path: spec.Path, Err: err}
			}
			tempDir = dir
			args = append(args, "--user-data-dir="+dir)
		}
	}

	env := spec.Env
	if env == nil {
		env = os.Environ()
	}

	h := &Handle{
		logger:   logger,
		usePipe:  spec.UsePipe,
		tempDir:  tempDir,
		lineHook: spec.LineHook,
		lines:    make(chan string, 512),
		exitCh:   make(chan struct{}),
		state:    StateStarting,
	}

	cmd := exec.Command(spec.Path, args...)
	cmd.Env = env
	// Process group for clean shutdown of the whole renderer tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var childRead, childWrite *os.File
	if spec.UsePipe {
		var err error
		var parentWrite, parentRead *os.File
		childRead, parentWrite, err = pipePair()
		if err != nil {
			h.removeTempDir()
			return nil, &SpawnError{Path: spec.Path, Err: err}
		}
		parentRead, childWrite, err = pipePair()
		if err != nil {
			childRead.Close()
			parentWrite.Close()
			h.removeTempDir()
			return nil, &SpawnError{Path: spec.Path, Err: err}
		}
		// ExtraFiles[0] is fd 3 in the child, ExtraFiles[1] is fd 4.
		// Chromium reads commands from 3 and writes responses to 4.
		cmd.ExtraFiles = []*os.File{childRead, childWrite}
		h.pipeWrite = parentWrite
		h.pipeRead = parentRead
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		h.closePipes()
		h.removeTempDir()
		return nil, &SpawnError{Path: spec.Path, Err: err}
	}
	if spec.DumpIO {
		cmd.Stdout = os.Stdout
	}

	var mirror io.Writer
	if spec.DumpIO {
		mirror = os.Stderr
	}
	h.tap = logging.NewOutputTap(logger, mirror)

	h.startTime = time.Now()
	if err := cmd.Start(); err != nil {
		h.closePipes()
		h.removeTempDir()
		return nil, &SpawnError{Path: spec.Path, Err: err}
	}
	h.cmd = cmd

	// The child holds its own descriptors now; keeping the parent
	// copies open would defeat EOF detection on exit.
	if childRead != nil {
		childRead.Close()
	}
	if childWrite != nil {
		childWrite.Close()
	}

	h.setState(StateRunning)
	logger.Info("browser_started",
		"pid", cmd.Process.Pid,
		"pipe", spec.UsePipe,
		"temp_profile", tempDir != "",
	)

	go h.scanStderr(stderr)
	h.forwardSignals(spec)
	go h.waitLoop()

	return h, nil
}

// pipePair wraps os.Pipe to name the two ends at the call site.
func pipePair() (r, w *os.File, err error) {
	return os.Pipe()
}

// scanStderr feeds every diagnostic line to the tap and, best effort,
// to the readiness scanner. Lines are observed in emission order.
func (h *Handle) scanStderr(r io.Reader) {
	defer close(h.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		h.tap.Observe(line)
		if h.lineHook != nil {
			h.lineHook(line)
		}
		select {
		case h.lines <- line:
		default:
			// Nobody is draining (pipe mode, or readiness already
			// decided). The tap keeps the recent history.
		}
	}
}

func (h *Handle) forwardSignals(spec Spec) {
	var sigs []os.Signal
	if spec.HandleSIGINT {
		sigs = append(sigs, os.Interrupt)
	}
	if spec.HandleSIGTERM {
		sigs = append(sigs, syscall.SIGTERM)
	}
	if spec.HandleSIGHUP {
		sigs = append(sigs, syscall.SIGHUP)
	}
	if len(sigs) == 0 {
		return
	}

	h.sigCh = make(chan os.Signal, 1)
	signal.Notify(h.sigCh, sigs...)

	go func() {
		for {
			select {
			case sig := <-h.sigCh:
				h.logger.Debug("forwarding_signal", "signal", sig.String())
				h.cmd.Process.Signal(sig)
			case <-h.exitCh:
				return
			}
		}
	}()
}

// waitLoop reaps the process and runs cleanup exactly once. The
// unexpected-exit callback fires only when a transport channel owner
// has registered and the exit was not requested via Stop/Kill.
func (h *Handle) waitLoop() {
	waitErr := h.cmd.Wait()
	code := extractExitCode(waitErr)

	h.stateMu.Lock()
	h.exitCode = code
	h.state = StateExited
	h.stateMu.Unlock()

	close(h.exitCh)

	h.logger.Info("browser_exited",
		"pid", h.cmd.Process.Pid,
		"exit_code", code,
		"uptime", time.Since(h.startTime).String(),
	)

	h.cleanup()

	if h.closing.Load() || !h.channelUp.Load() {
		return
	}
	h.mu.Lock()
	cb := h.onUnexpectedExit
	h.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// cleanup reclaims supervisor-owned resources. Runs once, on the first
// of explicit close or process exit.
func (h *Handle) cleanup() {
	h.cleanupOnce.Do(func() {
		if h.sigCh != nil {
			signal.Stop(h.sigCh)
		}
		h.closePipes()
		h.removeTempDir()
	})
}

func (h *Handle) closePipes() {
	if h.pipeWrite != nil {
		h.pipeWrite.Close()
	}
	if h.pipeRead != nil {
		h.pipeRead.Close()
	}
}

func (h *Handle) removeTempDir() {
	if h.tempDir == "" {
		return
	}
	if err := os.RemoveAll(h.tempDir); err != nil {
		h.logger.Warn("temp_profile_cleanup_failed", "dir", h.tempDir, "error", err)
	}
}

// Stop requests a graceful shutdown: SIGTERM to the process group,
// escalating to SIGKILL after the timeout. It blocks until the process
// is reaped.
func (h *Handle) Stop(timeout time.Duration) error {
	h.closing.Store(true)

	if !h.Running() {
		h.cleanup()
		return nil
	}

	h.signalGroup(syscall.SIGTERM)

	select {
	case <-h.exitCh:
		return nil
	case <-time.After(timeout):
		h.logger.Warn("force_killing_browser", "pid", h.cmd.Process.Pid)
		h.signalGroup(syscall.SIGKILL)
		<-h.exitCh
		return errors.New("browser did not exit gracefully")
	}
}

// Kill terminates the process group immediately and blocks until it is
// reaped and cleanup has run.
func (h *Handle) Kill() {
	h.closing.Store(true)

	if h.Running() {
		h.signalGroup(syscall.SIGKILL)
		<-h.exitCh
	}
	h.cleanup()
}

func (h *Handle) signalGroup(sig syscall.Signal) {
	pid := h.cmd.Process.Pid
	if pgid, err := syscall.Getpgid(pid); err == nil {
		syscall.Kill(-pgid, sig)
	} else {
		h.cmd.Process.Signal(sig)
	}
}

// SetChannelOwned records that a transport channel now exists for this
// process, enabling the unexpected-exit callback.
func (h *Handle) SetChannelOwned(cb func()) {
	h.mu.Lock()
	h.onUnexpectedExit = cb
	h.mu.Unlock()
	h.channelUp.Store(true)
}

// PipeStreams returns the parent-side ends of the dedicated control
// pipes. Only valid in pipe mode.
func (h *Handle) PipeStreams() (w io.WriteCloser, r io.ReadCloser) {
	return h.pipeWrite, h.pipeRead
}

// UsesPipe reports whether the pipe transport was selected at spawn.
func (h *Handle) UsesPipe() bool {
	return h.usePipe
}

// Pid returns the process ID.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// TempDir returns the supervisor-owned profile directory, or "".
func (h *Handle) TempDir() string {
	return h.tempDir
}

// Running reports whether the process has not yet exited.
func (h *Handle) Running() bool {
	select {
	case <-h.exitCh:
		return false
	default:
		return true
	}
}

// Exited returns a channel closed when the process has been reaped.
func (h *Handle) Exited() <-chan struct{} {
	return h.exitCh
}

// ExitCode returns the exit code. Valid only after Exited is closed.
func (h *Handle) ExitCode() int {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.exitCode
}

// State returns the current process state.
func (h *Handle) State() State {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.state
}

func (h *Handle) setState(s State) {
	h.stateMu.Lock()
	h.state = s
	h.stateMu.Unlock()
}

// Uptime returns time since spawn while running, else 0.
func (h *Handle) Uptime() time.Duration {
	if !h.Running() {
		return 0
	}
	return time.Since(h.startTime)
}

// RecentOutput returns the buffered diagnostic lines, oldest first.
func (h *Handle) RecentOutput() []string {
	return h.tap.Recent()
}

// hasFlagPrefix reports whether any argument starts with the prefix.
func hasFlagPrefix(args []string, prefix string) bool {
	for _, arg := range args {
		if strings.HasPrefix(arg, prefix) {
			return true
		}
	}
	return false
}

// extractExitCode maps a Wait() error to a process exit code.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				// Signal exit: 128 + signal number.
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	return 1
}
