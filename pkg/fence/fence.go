// Package fence provides a public API for embedding the sandbox in another
// Go program, as an alternative to driving it through the CLI.
package fence

import (
	"github.com/lexoliu/leash/internal/config"
	"github.com/lexoliu/leash/internal/ipc"
	"github.com/lexoliu/leash/internal/sandbox"
)

// Config is the configuration for fence.
type Config = config.Config

// NetworkConfig defines network restrictions.
type NetworkConfig = config.NetworkConfig

// FilesystemConfig defines filesystem restrictions.
type FilesystemConfig = config.FilesystemConfig

// NetworkMode selects how outbound connections are evaluated: the default
// allow-list against NetworkConfig's domain patterns, or DenyAll/AllowAll/
// Custom for policies an allow-list can't express.
type NetworkMode = config.NetworkMode

// CustomAsyncFunc decides whether a single connection attempt is permitted,
// for NetworkModeCustom policies that need logic an allow-list can't express.
type CustomAsyncFunc = config.CustomAsyncFunc

// DomainRequest describes one connection attempt passed to a CustomAsyncFunc.
type DomainRequest = config.DomainRequest

// VenvConfig describes the Python virtual environment RunPython should use.
type VenvConfig = config.VenvConfig

// PythonConfig configures RunPython's interpreter resolution.
type PythonConfig = config.PythonConfig

// EnvConfig controls which environment variables a sandboxed command
// inherits beyond fence's own hardened baseline.
type EnvConfig = config.EnvConfig

// ResourceLimits caps the sandboxed process's memory, CPU time, max file
// size, and process count.
type ResourceLimits = config.ResourceLimits

// Flags holds the boolean policy toggles that don't fit elsewhere:
// filesystem strictness, tty write access, and working directory retention.
type Flags = config.Flags

const (
	NetworkModeAllowList = config.NetworkModeAllowList
	NetworkModeDenyAll   = config.NetworkModeDenyAll
	NetworkModeAllowAll  = config.NetworkModeAllowAll
	NetworkModeCustom    = config.NetworkModeCustom
)

// Manager handles sandbox initialization and command wrapping.
type Manager = sandbox.Manager

// Supervisor owns a single sandboxed run: working directory, proxy, IPC,
// and the spawned process tree.
type Supervisor = sandbox.Supervisor

// Router dispatches IPC commands received over the sandbox's Unix socket.
type Router = ipc.Router

// NewManager creates a new sandbox manager.
// If debug is true, verbose logging is enabled.
// If monitor is true, only violations (blocked requests) are logged.
func NewManager(cfg *Config, debug, monitor bool) *Manager {
	return sandbox.NewManager(cfg, debug, monitor)
}

// NewSupervisor creates a Supervisor for a single sandboxed run. workdirPath
// may be empty to auto-generate a working directory.
func NewSupervisor(cfg *Config, workdirPath string, debug, monitor bool) (*Supervisor, error) {
	return sandbox.NewSupervisor(cfg, workdirPath, debug, monitor)
}

// NewRouter creates an empty IPC command router; register commands with
// Router.Register before passing it to Supervisor.SetIPCRouter.
func NewRouter() *Router {
	return ipc.NewRouter()
}

// DefaultConfig returns the default configuration with all network blocked.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return config.DefaultConfigPath()
}
