//go:build darwin

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// RunInteractive opens a pseudo-terminal, spawns command attached to it
// under the same sandbox-exec profile Run would use, relays stdin/stdout
// through it in raw mode, and blocks until the child exits.
func (s *Supervisor) RunInteractive(command string) (*os.ProcessState, error) {
	if err := CheckCommand(command, s.config); err != nil {
		return nil, err
	}

	wrapped, err := s.manager.WrapCommand(command)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to wrap command: %w", err)
	}

	cmd := exec.Command("sh", "-c", wrapped) //nolint:gosec // wrapped is constructed from caller-controlled policy
	cmd.Dir = s.workdir.Path()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("sandbox: failed to start pty: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	s.tracker.Register(cmd.Process.Pid, cmd.Process)
	defer s.tracker.Remove(cmd.Process.Pid)

	_ = pty.InheritSize(os.Stdin, ptmx)

	restore := func() {}
	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		if oldState, err := term.MakeRaw(stdinFd); err == nil {
			restore = func() { _ = term.Restore(stdinFd, oldState) }
		}
	}
	defer restore()

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	stopWinch := make(chan struct{})
	defer close(stopWinch)
	go func() {
		for {
			select {
			case <-winch:
				_ = pty.InheritSize(os.Stdin, ptmx)
			case <-stopWinch:
				return
			}
		}
	}()

	// exec.Cmd exposes no non-blocking waitpid; reaping happens on a
	// dedicated goroutine whose only job is the blocking Wait() call, while
	// runPtyIOLoop itself stays single-threaded and only ever polls
	// waitDone without blocking on it.
	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	if err := runPtyIOLoop(stdinFd, int(ptmx.Fd()), waitDone); err != nil {
		return cmd.ProcessState, err
	}

	return cmd.ProcessState, nil
}

// runPtyIOLoop relays bytes between stdin and the pty with a single
// level-triggered poll loop: both fds are put in non-blocking mode, and
// every iteration first checks non-blockingly whether the child has exited
// before polling for I/O with a 100ms timeout. On pty EOF/error or child
// exit, it drains any output still buffered in the pty before returning.
func runPtyIOLoop(stdinFd, ptyFd int, waitDone <-chan error) error {
	if err := unix.SetNonblock(stdinFd, true); err != nil {
		return fmt.Errorf("sandbox: failed to set stdin non-blocking: %w", err)
	}
	defer func() { _ = unix.SetNonblock(stdinFd, false) }()
	if err := unix.SetNonblock(ptyFd, true); err != nil {
		return fmt.Errorf("sandbox: failed to set pty non-blocking: %w", err)
	}

	stdinBuf := make([]byte, 1024)
	ptyBuf := make([]byte, 4096)
	stdinEOF := false

	for {
		select {
		case <-waitDone:
			drainPty(ptyFd, ptyBuf)
			return nil
		default:
		}

		fds := []unix.PollFd{{Fd: int32(ptyFd), Events: unix.POLLIN}}
		if !stdinEOF {
			fds = append(fds, unix.PollFd{Fd: int32(stdinFd), Events: unix.POLLIN})
		}

		if n, err := unix.Poll(fds, 100); err != nil || n == 0 {
			continue
		}

		for _, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}

			switch int(pfd.Fd) {
			case ptyFd:
				n, rerr := unix.Read(ptyFd, ptyBuf)
				switch {
				case rerr == unix.EAGAIN:
				case n == 0 || rerr != nil:
					<-waitDone
					drainPty(ptyFd, ptyBuf)
					return nil
				default:
					_, _ = os.Stdout.Write(ptyBuf[:n])
				}
			case stdinFd:
				n, rerr := unix.Read(stdinFd, stdinBuf)
				switch {
				case rerr == unix.EAGAIN:
				case n == 0 || rerr != nil:
					stdinEOF = true
				default:
					_, _ = unix.Write(ptyFd, stdinBuf[:n])
				}
			}
		}
	}
}

// drainPty reads whatever output is still buffered in the pty after the
// child has exited, without blocking once the buffer runs dry.
func drainPty(ptyFd int, buf []byte) {
	for {
		n, err := unix.Read(ptyFd, buf)
		if err != nil || n == 0 {
			return
		}
		_, _ = os.Stdout.Write(buf[:n])
	}
}
