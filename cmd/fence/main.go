// Package main implements the fence CLI.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/lexoliu/leash/internal/config"
	"github.com/lexoliu/leash/internal/sandbox"
	"github.com/lexoliu/leash/internal/templates"
	"github.com/spf13/cobra"
)

// Build-time variables (set via -ldflags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	debug         bool
	monitor       bool
	settingsPath  string
	templateName  string
	listTemplates bool
	cmdString     string
	exposePorts   []string
	exitCode      int
	showVersion   bool
	linuxFeatures bool
	workingDir    string
	keepWorkdir   bool
)

func main() {
	// The --sandbox-apply and --landlock-selftest modes are internal helper
	// entry points re-invoked by fence itself (see internal/sandbox/linux.go);
	// they must be recognized before cobra parses argv, since their own
	// argument conventions (a raw "--" separated target command) don't fit
	// cobra's flag model.
	if len(os.Args) >= 2 && os.Args[1] == "--sandbox-apply" {
		runSandboxApply()
		return
	}
	if len(os.Args) >= 2 && os.Args[1] == "--landlock-selftest" {
		os.Exit(sandbox.RunLandlockSelftest())
	}

	rootCmd := &cobra.Command{
		Use:   "fence [flags] -- [command...]",
		Short: "Run commands in a sandbox with network and filesystem restrictions",
		Long: `fence is a command-line tool that runs commands in a sandboxed environment
with network and filesystem restrictions.

By default, all network access is blocked. Configure allowed domains in
~/.fence.json or pass a settings file with --settings, or use a built-in
template with --template.

Examples:
  fence curl https://example.com          # Will be blocked (no domains allowed)
  fence -- curl -s https://example.com    # Use -- to separate fence flags from command
  fence -c "echo hello && ls"             # Run with shell expansion
  fence --settings config.json npm install
  fence -t npm-install npm install        # Use built-in npm-install template
  fence -t code -- agent-cmd              # Use AI coding agents template
  fence -p 3000 -c "npm run dev"          # Expose port 3000 for inbound connections
  fence --list-templates                  # Show available built-in templates

Configuration file format (~/.fence.json):
{
  "network": {
    "allowedDomains": ["github.com", "*.npmjs.org"],
    "deniedDomains": []
  },
  "filesystem": {
    "denyRead": [],
    "allowWrite": ["."],
    "denyWrite": []
  },
  "command": {
    "deny": ["git push", "npm publish"]
  }
}`,
		RunE:          runCommand,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
	}

	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&monitor, "monitor", "m", false, "Monitor and log sandbox violations (macOS: log stream, all: proxy denials)")
	rootCmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "Path to settings file (default: ~/.fence.json)")
	rootCmd.Flags().StringVarP(&templateName, "template", "t", "", "Use built-in template (e.g., code, npm-install)")
	rootCmd.Flags().BoolVar(&listTemplates, "list-templates", false, "List available templates")
	rootCmd.Flags().StringVarP(&cmdString, "c", "c", "", "Run command string directly (like sh -c)")
	rootCmd.Flags().StringArrayVarP(&exposePorts, "port", "p", nil, "Expose port for inbound connections (can be used multiple times)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	rootCmd.Flags().BoolVar(&linuxFeatures, "linux-features", false, "Show available Linux security features and exit")
	rootCmd.Flags().StringVar(&workingDir, "working-dir", "", "Sandbox working directory (default: auto-generated, e.g. ./amber-forest-thunder-pearl)")
	rootCmd.Flags().BoolVarP(&keepWorkdir, "keep-working-dir", "k", false, "Don't remove an auto-generated working directory on exit")

	rootCmd.Flags().SetInterspersed(true)

	rootCmd.AddCommand(newShellCmd())
	rootCmd.AddCommand(newPythonCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

// newShellCmd builds the "shell" subcommand: an interactive PTY session
// inside the sandbox, currently supported only on macOS.
func newShellCmd() *cobra.Command {
	var shellDebug bool
	var shellSettings string
	var shellWorkingDir string
	var shellKeep bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell inside the sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForRun(shellSettings, "", shellDebug)
			if err != nil {
				return err
			}

			sup, err := sandbox.NewSupervisor(cfg, shellWorkingDir, shellDebug, false)
			if err != nil {
				return fmt.Errorf("failed to create sandbox: %w", err)
			}
			if shellKeep {
				sup.KeepWorkingDir()
			}
			defer sup.Close()

			if err := sup.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize sandbox: %w", err)
			}

			shell := os.Getenv("SHELL")
			if shell == "" {
				shell = "/bin/sh"
			}

			state, err := sup.RunInteractive(shell)
			if err != nil {
				return err
			}
			if state != nil {
				exitCode = state.ExitCode()
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&shellDebug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&shellSettings, "settings", "s", "", "Path to settings file (default: ~/.fence.json)")
	cmd.Flags().StringVar(&shellWorkingDir, "working-dir", "", "Sandbox working directory")
	cmd.Flags().BoolVarP(&shellKeep, "keep-working-dir", "k", false, "Don't remove an auto-generated working directory on exit")
	return cmd
}

// newPythonCmd builds the "python" subcommand: runs a script under the
// sandbox's configured Python venv, falling back to python3/python on PATH
// when no venv policy is configured.
func newPythonCmd() *cobra.Command {
	var pythonDebug bool
	var pythonSettings string
	var pythonWorkingDir string
	var pythonKeep bool

	cmd := &cobra.Command{
		Use:                "python <script> [args...]",
		Short:              "Run a Python script inside the sandbox",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigForRun(pythonSettings, "", pythonDebug)
			if err != nil {
				return err
			}

			sup, err := sandbox.NewSupervisor(cfg, pythonWorkingDir, pythonDebug, false)
			if err != nil {
				return fmt.Errorf("failed to create sandbox: %w", err)
			}
			if pythonKeep {
				sup.KeepWorkingDir()
			}
			defer sup.Close()

			if err := sup.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize sandbox: %w", err)
			}

			state, err := sup.RunPython(args[0], args[1:]...)
			if err != nil {
				return err
			}
			if state != nil {
				exitCode = state.ExitCode()
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pythonDebug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVarP(&pythonSettings, "settings", "s", "", "Path to settings file (default: ~/.fence.json)")
	cmd.Flags().StringVar(&pythonWorkingDir, "working-dir", "", "Sandbox working directory")
	cmd.Flags().BoolVarP(&pythonKeep, "keep-working-dir", "k", false, "Don't remove an auto-generated working directory on exit")
	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("fence - lightweight, container-free sandbox for running untrusted commands\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Built:   %s\n", buildTime)
		fmt.Printf("  Commit:  %s\n", gitCommit)
		return nil
	}

	if linuxFeatures {
		sandbox.PrintLinuxFeatures()
		return nil
	}

	if listTemplates {
		printTemplates()
		return nil
	}

	var command string
	switch {
	case cmdString != "":
		command = cmdString
	case len(args) > 0:
		command = strings.Join(args, " ")
	default:
		return fmt.Errorf("no command specified. Use -c <command> or provide command arguments")
	}

	var ports []int
	for _, p := range exposePorts {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port: %s", p)
		}
		ports = append(ports, port)
	}

	if debug && len(ports) > 0 {
		fmt.Fprintf(os.Stderr, "[fence] Exposing ports: %v\n", ports)
	}

	cfg, err := loadConfigForRun(settingsPath, templateName, debug)
	if err != nil {
		return err
	}

	sup, err := sandbox.NewSupervisor(cfg, workingDir, debug, monitor)
	if err != nil {
		return fmt.Errorf("failed to create sandbox: %w", err)
	}
	if keepWorkdir {
		sup.KeepWorkingDir()
	}
	defer sup.Close()

	sup.SetExposedPorts(ports)
	if err := sup.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize sandbox: %w", err)
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[fence] Working directory: %s\n", sup.WorkingDir())
	}

	var logMonitor *sandbox.LogMonitor
	if monitor {
		logMonitor = sandbox.NewLogMonitor(sandbox.GetSessionSuffix())
		if logMonitor != nil {
			if err := logMonitor.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "[fence] Warning: failed to start log monitor: %v\n", err)
			} else {
				defer logMonitor.Stop()
			}
		}
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[fence] Command: %s\n", command)
	}

	hardenedEnv := sandbox.GetHardenedEnv()
	if debug {
		if stripped := sandbox.GetStrippedEnvVars(os.Environ()); len(stripped) > 0 {
			fmt.Fprintf(os.Stderr, "[fence] Stripped dangerous env vars: %v\n", stripped)
		}
	}

	execCmd, err := sup.Start(command, hardenedEnv, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start Linux monitors (eBPF tracing for filesystem violations). Landlock
	// and seccomp are already applied by the time execCmd is running: on
	// Linux, sup.Start wraps the command through fence's own --sandbox-apply
	// re-exec, which restricts the process before it execs the real target.
	var linuxMonitors *sandbox.LinuxMonitors
	if monitor && execCmd.Process != nil {
		linuxMonitors, _ = sandbox.StartLinuxMonitor(execCmd.Process.Pid, debug)
		if linuxMonitors != nil {
			defer linuxMonitors.Stop()
		}
	}

	go func() {
		sigCount := 0
		for sig := range sigChan {
			sigCount++
			if execCmd.Process == nil {
				continue
			}
			// First signal: graceful termination; second signal: force kill
			if sigCount >= 2 {
				_ = execCmd.Process.Kill()
			} else {
				_ = execCmd.Process.Signal(sig)
			}
		}
	}()

	// Wait for command to finish. Don't os.Exit() here - let deferred cleanup run.
	if err := sup.Wait(execCmd); err != nil {
		return err
	}
	if execCmd.ProcessState != nil {
		exitCode = execCmd.ProcessState.ExitCode()
	}

	return nil
}

// loadConfigForRun loads configuration in priority order: template >
// settings file > default path, matching runCommand's original resolution.
func loadConfigForRun(settings, template string, debug bool) (*config.Config, error) {
	switch {
	case template != "":
		cfg, err := templates.Load(template)
		if err != nil {
			return nil, fmt.Errorf("failed to load template: %w\nUse --list-templates to see available templates", err)
		}
		if debug {
			fmt.Fprintf(os.Stderr, "[fence] Using template: %s\n", template)
		}
		return cfg, nil
	case settings != "":
		cfg, err := config.Load(settings)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		absPath, _ := filepath.Abs(settings)
		cfg, err = templates.ResolveExtendsWithBaseDir(cfg, filepath.Dir(absPath))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve extends: %w", err)
		}
		return cfg, nil
	default:
		configPath := config.DefaultConfigPath()
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg == nil {
			if debug {
				fmt.Fprintf(os.Stderr, "[fence] No config found at %s, using default (block all network)\n", configPath)
			}
			return config.Default(), nil
		}
		cfg, err = templates.ResolveExtendsWithBaseDir(cfg, filepath.Dir(configPath))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve extends: %w", err)
		}
		return cfg, nil
	}
}

// printTemplates prints all available templates to stdout.
func printTemplates() {
	fmt.Println("Available templates:")
	fmt.Println()
	for _, t := range templates.List() {
		fmt.Printf("  %-20s %s\n", t.Name, t.Description)
	}
	fmt.Println()
	fmt.Println("Usage: fence -t <template> <command>")
	fmt.Println("Example: fence -t code -- code")
}

// runSandboxApply runs the --sandbox-apply helper: it applies Landlock and
// seccomp to this process, then execs the user command. Re-invoked by
// fence itself (see internal/sandbox/linux.go's WrapCommandLinux) rather
// than called directly by users.
// Usage: fence --sandbox-apply [--debug] -- <command...>
func runSandboxApply() {
	args := os.Args[2:] // Skip "fence" and "--sandbox-apply"

	var debugMode bool
	var cmdStart int

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug":
			debugMode = true
		case "--":
			cmdStart = i + 1
			goto parseCommand
		default:
			cmdStart = i
			goto parseCommand
		}
	}

parseCommand:
	if cmdStart >= len(args) {
		fmt.Fprintf(os.Stderr, "[fence:sandbox-apply] Error: no command specified\n")
		os.Exit(1)
	}

	if err := sandbox.RunSandboxApply(debugMode, args[cmdStart:]); err != nil {
		fmt.Fprintf(os.Stderr, "[fence:sandbox-apply] %v\n", err)
		os.Exit(1)
	}
}
