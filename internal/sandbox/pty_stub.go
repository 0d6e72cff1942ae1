//go:build !darwin

package sandbox

import (
	"fmt"
	"os"
)

// RunInteractive is only implemented on macOS; the spec scopes the PTY
// front-end to that platform's sandbox-exec backend.
func (s *Supervisor) RunInteractive(command string) (*os.ProcessState, error) {
	return nil, fmt.Errorf("sandbox: interactive PTY mode is only supported on macOS")
}
