//go:build linux

package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/lexoliu/leash/internal/config"
)

// sandboxApplyFlag is the hidden cobra flag cmd/fence recognizes to enter
// the pre-exec helper mode: apply Landlock and seccomp to the calling
// process, then exec the real command. It never appears in --help.
const sandboxApplyFlag = "--sandbox-apply"

// selftestFlag triggers the disposable child process used to probe full
// Landlock enforcement without restricting the long-lived fence process
// itself (landlock_restrict_self cannot be undone once applied).
const selftestFlag = "--landlock-selftest"

// fenceConfigEnv carries the resolved sandbox configuration, as JSON, from
// the parent fence process to the --sandbox-apply helper it re-execs
// itself into. Go has no pre-exec hook comparable to posix_spawn_file_actions
// or a fork()-then-restrict-then-exec C idiom, so the restriction step has
// to happen in a second invocation of the same binary instead of in-process
// between fork and exec.
const fenceConfigEnv = "FENCE_CONFIG_JSON"

// fenceProxyPortEnv and fenceIPCSocketEnv pass the two pieces of dynamic
// state (config.Config is otherwise static per run) the helper needs to
// build its Landlock network rule and IPC socket grant.
const (
	fenceProxyPortEnv = "FENCE_PROXY_PORT"
	fenceIPCSocketEnv = "FENCE_IPC_SOCKET"
)

// WrapCommandLinux wraps command so that, when executed by a shell, it first
// re-execs the fence binary itself in --sandbox-apply mode. That helper
// invocation applies Landlock (filesystem + the single network rule for
// httpPort) and a seccomp syscall filter to itself, then syscall.Execs the
// original command - so the restrictions land on the process that actually
// runs the user's command, not on some sibling that never touches it.
//
// There is no namespace tool (bwrap) and no relay tool (socat) in this
// design: Landlock's NET_PORT rule is what keeps the sandboxed process
// confined to the proxy port, and the proxy itself runs in the unrestricted
// parent process, reachable over loopback.
func WrapCommandLinux(cfg *config.Config, command string, httpPort int, ipcSocketPath string, debug bool) (string, error) {
	features := DetectLinuxFeatures()
	if !features.CanUseLandlock() {
		return "", &UnsupportedPlatformVersionError{
			Platform: "Linux (Landlock ABI)",
			Minimum:  fmt.Sprintf("%d", requiredLandlockABI),
			Current:  fmt.Sprintf("%d", features.LandlockABI),
		}
	}
	if !features.HasSeccomp {
		return "", fmt.Errorf("seccomp is required but not available on this kernel")
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve fence executable path: %w", err)
	}

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal sandbox config: %w", err)
	}

	shellPath, err := exec.LookPath("bash")
	if err != nil {
		return "", fmt.Errorf("shell %q not found: %w", "bash", err)
	}

	// These three are fence's own plumbing to the --sandbox-apply helper,
	// not part of the sandboxed program's environment, and so ride alongside
	// the rebuilt environment rather than through BuildSandboxEnv.
	internalEnv := []string{
		fenceConfigEnv + "=" + string(configJSON),
		fmt.Sprintf("%s=%d", fenceProxyPortEnv, httpPort),
		fenceIPCSocketEnv + "=" + ipcSocketPath,
	}
	if ipcSocketPath != "" {
		internalEnv = append(internalEnv, "LEASH_IPC_SOCKET="+ipcSocketPath)
	}
	envs := BuildSandboxEnv(cfg.Env, GenerateProxyEnvVars(httpPort), internalEnv...)

	var parts []string
	parts = append(parts, "env", "-i")
	parts = append(parts, envs...)
	parts = append(parts, exe, sandboxApplyFlag)
	if debug {
		parts = append(parts, "--debug")
	}
	parts = append(parts, "--", shellPath, "-c", command)

	return ShellQuote(parts), nil
}

// RunSandboxApply is the --sandbox-apply helper entry point, invoked by
// cmd/fence's main() before cobra ever parses argv. It restricts the
// calling process with Landlock then seccomp, sanitizes the environment of
// any fence-internal variables, and execs into the real target - after this
// call returns (on error) or replaces the process image (on success), there
// is no remaining opportunity to apply restrictions.
func RunSandboxApply(debug bool, targetArgv []string) error {
	if len(targetArgv) == 0 {
		return fmt.Errorf("sandbox-apply: no target command given")
	}

	configJSON := os.Getenv(fenceConfigEnv)
	if configJSON == "" {
		return fmt.Errorf("sandbox-apply: %s not set", fenceConfigEnv)
	}

	var cfg config.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return fmt.Errorf("sandbox-apply: decode config: %w", err)
	}

	proxyPort := 0
	fmt.Sscanf(os.Getenv(fenceProxyPortEnv), "%d", &proxyPort)

	var socketPaths []string
	if sock := os.Getenv(fenceIPCSocketEnv); sock != "" {
		socketPaths = append(socketPaths, sock)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("sandbox-apply: getwd: %w", err)
	}

	if err := ApplyLandlockFromConfig(&cfg, cwd, socketPaths, proxyPort, debug); err != nil {
		return fmt.Errorf("sandbox-apply: landlock: %w", err)
	}

	security := SecurityConfigLikeFromConfig(&cfg)
	networkDenyAll := proxyPort <= 0 || cfg.Network.Mode == config.NetworkModeDenyAll
	prog, err := BuildSeccompProgram(security, networkDenyAll)
	if err != nil {
		return fmt.Errorf("sandbox-apply: build seccomp program: %w", err)
	}
	if err := ApplySeccompProgram(prog); err != nil {
		return fmt.Errorf("sandbox-apply: apply seccomp: %w", err)
	}

	if err := applyResourceLimits(cfg.Limits); err != nil {
		return fmt.Errorf("sandbox-apply: resource limits: %w", err)
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[fence:sandbox-apply] restrictions applied, exec-ing %v\n", targetArgv)
	}

	targetPath, err := exec.LookPath(targetArgv[0])
	if err != nil {
		return fmt.Errorf("sandbox-apply: lookup %s: %w", targetArgv[0], err)
	}

	for _, name := range []string{fenceConfigEnv, fenceProxyPortEnv, fenceIPCSocketEnv} {
		_ = os.Unsetenv(name)
	}
	env := FilterDangerousEnv(os.Environ())
	return syscall.Exec(targetPath, targetArgv, env) //nolint:gosec // targetPath resolved via exec.LookPath above
}

// applyResourceLimits sets the rlimits configured in limits on the calling
// process, which is about to be replaced by syscall.Exec into the target
// command - so these limits land on the sandboxed process itself, not on
// some ancestor. Unset fields leave the inherited limit untouched.
func applyResourceLimits(limits config.ResourceLimits) error {
	if limits.MaxMemoryBytes != nil {
		rlim := syscall.Rlimit{Cur: *limits.MaxMemoryBytes, Max: *limits.MaxMemoryBytes}
		if err := syscall.Setrlimit(syscall.RLIMIT_AS, &rlim); err != nil {
			return fmt.Errorf("RLIMIT_AS: %w", err)
		}
	}
	if limits.MaxCPUTimeSecs != nil {
		rlim := syscall.Rlimit{Cur: *limits.MaxCPUTimeSecs, Max: *limits.MaxCPUTimeSecs}
		if err := syscall.Setrlimit(syscall.RLIMIT_CPU, &rlim); err != nil {
			return fmt.Errorf("RLIMIT_CPU: %w", err)
		}
	}
	if limits.MaxFileSizeBytes != nil {
		rlim := syscall.Rlimit{Cur: *limits.MaxFileSizeBytes, Max: *limits.MaxFileSizeBytes}
		if err := syscall.Setrlimit(syscall.RLIMIT_FSIZE, &rlim); err != nil {
			return fmt.Errorf("RLIMIT_FSIZE: %w", err)
		}
	}
	if limits.MaxProcesses != nil {
		rlim := syscall.Rlimit{Cur: *limits.MaxProcesses, Max: *limits.MaxProcesses}
		if err := syscall.Setrlimit(syscall.RLIMIT_NPROC, &rlim); err != nil {
			return fmt.Errorf("RLIMIT_NPROC: %w", err)
		}
	}
	return nil
}

// SecurityConfigLikeFromConfig adapts config.SecurityConfig to the narrow
// interface BuildSeccompProgram depends on, keeping linux_seccomp.go free of
// an import of the config package.
func SecurityConfigLikeFromConfig(cfg *config.Config) SecurityConfigLike {
	return cfg.Security
}

// RunLandlockSelftest is the --landlock-selftest entry point: a disposable
// child that tries to build the most restrictive ruleset possible
// (deny-all but "/") and apply it to itself, reporting via exit code
// whether the kernel fully enforced it. ProbeLandlockStatus runs this in a
// fresh child precisely because landlock_restrict_self cannot be tested
// in-process without permanently restricting the caller.
func RunLandlockSelftest() int {
	ruleset, err := NewLandlockRuleset(false)
	if err != nil {
		return 2
	}
	defer func() { _ = ruleset.Close() }()

	if err := ruleset.Initialize(); err != nil {
		return 2
	}
	if err := ruleset.AllowRead("/"); err != nil {
		return 2
	}
	if err := ruleset.AllowNetConnect(1); err != nil {
		return 2
	}

	status, err := ruleset.Apply()
	if err != nil {
		return 2
	}
	if status != LandlockFullyEnforced {
		return 1
	}
	return 0
}

// ProbeLandlockStatus reports the Landlock enforcement level available on
// this system by re-executing the current binary with --landlock-selftest
// and inspecting its exit code. Memoized: the probe is relatively cheap but
// still forks a process, and the answer cannot change within a run.
var landlockProbeResult *LandlockStatus

func ProbeLandlockStatus(debug bool) (LandlockStatus, error) {
	if landlockProbeResult != nil {
		return *landlockProbeResult, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return LandlockNotEnforced, fmt.Errorf("resolve fence executable: %w", err)
	}

	cmd := exec.Command(exe, selftestFlag)
	cmd.Stderr = nil
	if debug {
		cmd.Stderr = os.Stderr
	}
	runErr := cmd.Run()

	var status LandlockStatus
	switch {
	case runErr == nil:
		status = LandlockFullyEnforced
	default:
		if exitErr, ok := runErr.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			status = LandlockPartiallyEnforced
		} else {
			status = LandlockNotEnforced
		}
	}

	landlockProbeResult = &status
	return status, nil
}

// StartLinuxMonitor starts the eBPF violation monitor for pid, when
// available. Seccomp violations are enforced via SECCOMP_RET_ERRNO, which
// silently returns EPERM without a dmesg/audit trail, so the eBPF monitor
// is the only source of visibility into blocked syscalls.
func StartLinuxMonitor(pid int, debug bool) (*LinuxMonitors, error) {
	monitors := &LinuxMonitors{}
	features := DetectLinuxFeatures()

	if features.HasEBPF {
		ebpfMon := NewEBPFMonitor(pid, debug)
		if err := ebpfMon.Start(); err != nil {
			if debug {
				fmt.Fprintf(os.Stderr, "[fence:linux] Failed to start eBPF monitor: %v\n", err)
			}
		} else {
			monitors.EBPFMonitor = ebpfMon
			if debug {
				fmt.Fprintf(os.Stderr, "[fence:linux] eBPF monitor started for PID %d\n", pid)
			}
		}
	} else if debug {
		fmt.Fprintf(os.Stderr, "[fence:linux] eBPF monitoring not available (need CAP_BPF or root)\n")
	}

	return monitors, nil
}

// LinuxMonitors holds all active monitors for a Linux sandbox.
type LinuxMonitors struct {
	EBPFMonitor *EBPFMonitor
}

// Stop stops all monitors.
func (m *LinuxMonitors) Stop() {
	if m.EBPFMonitor != nil {
		m.EBPFMonitor.Stop()
	}
}

// PrintLinuxFeatures prints available Linux sandbox features.
func PrintLinuxFeatures() {
	features := DetectLinuxFeatures()
	fmt.Printf("Linux Sandbox Features:\n")
	fmt.Printf("  Kernel: %d.%d\n", features.KernelMajor, features.KernelMinor)
	fmt.Printf("  Seccomp: %v (log level: %d)\n", features.HasSeccomp, features.SeccompLogLevel)
	fmt.Printf("  Landlock: %v (ABI v%d)\n", features.HasLandlock, features.LandlockABI)
	fmt.Printf("  eBPF: %v (CAP_BPF: %v, root: %v)\n", features.HasEBPF, features.HasCapBPF, features.HasCapRoot)

	fmt.Printf("\nFeature Status:\n")
	if features.MinimumViable() {
		fmt.Printf("  ✓ Minimum requirements met (Landlock v%d + seccomp)\n", requiredLandlockABI)
	} else {
		fmt.Printf("  ✗ Missing requirements: ")
		if !features.CanUseLandlock() {
			fmt.Printf("landlock(v%d+) ", requiredLandlockABI)
		}
		if !features.HasSeccomp {
			fmt.Printf("seccomp ")
		}
		fmt.Println()
	}

	if features.CanMonitorViolations() {
		fmt.Printf("  ✓ Violation monitoring available\n")
	} else {
		fmt.Printf("  ○ Violation monitoring limited (kernel 4.14+ for seccomp logging)\n")
	}

	if features.HasEBPF {
		fmt.Printf("  ✓ eBPF monitoring available (enhanced visibility)\n")
	} else {
		fmt.Printf("  ○ eBPF monitoring not available (needs CAP_BPF or root)\n")
	}
}
