package sandbox

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/lexoliu/leash/internal/config"
	"github.com/lexoliu/leash/internal/ipc"
	"github.com/lexoliu/leash/internal/workdir"
)

// Supervisor owns every resource a single sandboxed run needs: the working
// directory, the HTTP proxy and optional IPC server (via Manager), and the
// tracker of pids it has spawned. It is the Go-idiomatic counterpart to the
// original implementation's Sandbox: construction order is workdir -> proxy
// -> IPC, and Close tears them down in the reverse-ish order the spec
// requires (IPC -> proxy -> kill descendants -> remove workdir).
type Supervisor struct {
	manager *Manager
	config  *config.Config
	workdir *workdir.WorkingDir
	tracker *ProcessTracker
	debug   bool
}

// NewSupervisor creates the sandbox's working directory (at workdirPath, or
// auto-generated under the current directory if workdirPath is empty). The
// proxy, and the IPC server if a router was registered with SetIPCRouter,
// are started later by Initialize or the first Run. A caller-supplied
// working directory is pinned, so Close never removes it.
func NewSupervisor(cfg *config.Config, workdirPath string, debug, monitor bool) (*Supervisor, error) {
	var wd *workdir.WorkingDir
	var err error
	if workdirPath != "" {
		wd, err = workdir.New(workdirPath)
	} else {
		wd, err = workdir.Random()
	}
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to create working directory: %w", err)
	}

	sup := &Supervisor{
		manager: NewManager(cfg, debug, monitor),
		config:  cfg,
		workdir: wd,
		tracker: NewProcessTracker(),
		debug:   debug,
	}
	if workdirPath != "" || (cfg != nil && cfg.Flags.KeepWorkingDir) {
		sup.KeepWorkingDir()
	}
	return sup, nil
}

// SetIPCRouter registers the command router the embedder wants reachable
// over the sandbox's IPC socket. Must be called before the first Run.
func (s *Supervisor) SetIPCRouter(router *ipc.Router) {
	s.manager.SetIPCRouter(router)
}

// SetExposedPorts sets the ports to expose for inbound connections.
func (s *Supervisor) SetExposedPorts(ports []int) {
	s.manager.SetExposedPorts(ports)
}

// WorkingDir returns the sandbox's working directory path.
func (s *Supervisor) WorkingDir() string {
	return s.workdir.Path()
}

// KeepWorkingDir pins the working directory so Close will not remove it.
func (s *Supervisor) KeepWorkingDir() {
	s.workdir.Keep()
}

// ProxyURL returns the sandbox's HTTP proxy URL, valid after the first Run
// (or an explicit Initialize) has started the proxy.
func (s *Supervisor) ProxyURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", s.manager.HTTPPort())
}

// IPCSocketPath returns the bound IPC socket path, or "" if no router was
// registered.
func (s *Supervisor) IPCSocketPath() string {
	return s.manager.IPCSocketPathIfEnabled()
}

// Initialize starts the proxy and, if a router was registered, the IPC
// server. Run calls this automatically; exposed so callers that need the
// proxy URL or IPC socket path before spawning anything can force it early.
func (s *Supervisor) Initialize() error {
	return s.manager.Initialize()
}

// Start wraps command under the platform backend's enforcement and starts
// it asynchronously with the sandbox working directory as its default cwd.
// A non-nil env becomes the environment of the sh that runs the wrapped
// command (nil inherits the parent's); the wrapped command clears it with
// env -i and rebuilds the sandboxed program's environment from the config,
// so env does not reach that program. The pid is registered with the tracker
// immediately so a concurrent Close can reach it even if the caller never
// calls Wait. The caller must eventually call Wait to reap the process and
// release it from the tracker.
func (s *Supervisor) Start(command string, env []string, stdin io.Reader, stdout, stderr io.Writer) (*exec.Cmd, error) {
	if err := CheckCommand(command, s.config); err != nil {
		return nil, err
	}

	wrapped, err := s.manager.WrapCommand(command)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to wrap command: %w", err)
	}

	cmd := exec.Command("sh", "-c", wrapped) //nolint:gosec // wrapped is constructed from caller-controlled policy, not untrusted input
	cmd.Dir = s.workdir.Path()
	if env != nil {
		cmd.Env = env
	}
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("sandbox: failed to start command: %w", err)
	}

	s.tracker.Register(cmd.Process.Pid, cmd.Process)
	return cmd, nil
}

// Wait blocks until cmd exits and removes it from the process tracker. A
// non-zero exit status is not itself an error: callers that need the exit
// code should read cmd.ProcessState after Wait returns nil.
func (s *Supervisor) Wait(cmd *exec.Cmd) error {
	waitErr := cmd.Wait()
	s.tracker.Remove(cmd.Process.Pid)

	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); ok {
			return nil
		}
		return fmt.Errorf("sandbox: command failed: %w", waitErr)
	}
	return nil
}

// Run is a synchronous convenience combining Start and Wait for callers
// that don't need to observe the pid before completion.
func (s *Supervisor) Run(command string, stdin io.Reader, stdout, stderr io.Writer) (*os.ProcessState, error) {
	cmd, err := s.Start(command, nil, stdin, stdout, stderr)
	if err != nil {
		return nil, err
	}
	err = s.Wait(cmd)
	return cmd.ProcessState, err
}

// RunPython runs a Python script under the sandbox, resolving the
// interpreter the same way the original implementation's run_python does:
// the configured venv's interpreter first, falling back to python3/python
// on PATH when no Python policy was configured or the configured venv has
// no interpreter. scriptPath and args are
// passed through as the script's own argv.
func (s *Supervisor) RunPython(scriptPath string, args ...string) (*os.ProcessState, error) {
	python, err := s.resolvePythonInterpreter()
	if err != nil {
		return nil, err
	}

	parts := append([]string{python, scriptPath}, args...)
	command := ShellQuote(parts)

	return s.Run(command, nil, os.Stdout, os.Stderr)
}

func (s *Supervisor) resolvePythonInterpreter() (string, error) {
	cfg := s.manager.config
	if cfg != nil && cfg.Python != nil {
		venvPython := cfg.Python.Venv.PythonExecutable()
		if _, err := os.Stat(venvPython); err == nil {
			return venvPython, nil
		}
	}

	if path, err := exec.LookPath("python3"); err == nil {
		return path, nil
	}
	if path, err := exec.LookPath("python"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("sandbox: no python interpreter found (configure Python.Venv or install python3/python on PATH)")
}

// Close tears down the sandbox in the order the spec requires: stop the IPC
// server (closes the socket), stop the proxy, force-kill any tracked pid
// still alive, then remove the working directory unless it was pinned or
// caller-supplied. Every step is best-effort; errors are logged, never
// returned, so Close can be deferred unconditionally.
func (s *Supervisor) Close() {
	s.manager.Cleanup()

	for _, err := range s.tracker.KillAll() {
		s.logDebug("kill-all: %v", err)
	}

	if err := s.workdir.Close(); err != nil {
		s.logDebug("failed to remove working directory %s: %v", s.workdir.Path(), err)
	}
}

func (s *Supervisor) logDebug(format string, args ...interface{}) {
	if s.debug {
		fmt.Fprintf(os.Stderr, "[leash] "+format+"\n", args...)
	}
}
