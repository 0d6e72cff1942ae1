package sandbox

import (
	"fmt"
	"os"

	"github.com/lexoliu/leash/internal/config"
	"github.com/lexoliu/leash/internal/ipc"
	"github.com/lexoliu/leash/internal/platform"
	"github.com/lexoliu/leash/internal/proxy"
)

// Manager handles sandbox initialization and command wrapping.
type Manager struct {
	config       *config.Config
	httpProxy    *proxy.HTTPProxy
	ipcServer    *ipc.Server
	ipcRouter    *ipc.Router
	exposedPorts []int
	httpPort     int
	debug        bool
	monitor      bool
	initialized  bool
}

// NewManager creates a new sandbox manager.
func NewManager(cfg *config.Config, debug, monitor bool) *Manager {
	return &Manager{
		config:  cfg,
		debug:   debug,
		monitor: monitor,
	}
}

// SetExposedPorts sets the ports to expose for inbound connections.
func (m *Manager) SetExposedPorts(ports []int) {
	m.exposedPorts = ports
}

// SetIPCRouter registers the command router the embedder wants reachable
// over the sandbox's IPC socket. Must be called before Initialize.
func (m *Manager) SetIPCRouter(router *ipc.Router) {
	m.ipcRouter = router
}

// Initialize sets up the sandbox infrastructure (proxy, IPC server, etc.).
func (m *Manager) Initialize() error {
	if m.initialized {
		return nil
	}

	if !platform.IsSupported() {
		return fmt.Errorf("sandbox is not supported on platform: %s", platform.Detect())
	}

	filter := proxy.CreateDomainFilter(m.config, m.debug)

	m.httpProxy = proxy.NewHTTPProxy(filter, m.debug, m.monitor)
	httpPort, err := m.httpProxy.Start()
	if err != nil {
		return fmt.Errorf("failed to start HTTP proxy: %w", err)
	}
	m.httpPort = httpPort

	if m.ipcRouter != nil {
		socketPath := m.IPCSocketPath()
		srv, err := ipc.NewServer(m.ipcRouter, socketPath)
		if err != nil {
			m.httpProxy.Stop()
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
		m.ipcServer = srv
	}

	m.initialized = true
	m.logDebug("Sandbox manager initialized (HTTP proxy: %d, IPC: %v)", m.httpPort, m.ipcServer != nil)
	return nil
}

// IPCSocketPath returns the path the IPC server binds (or would bind) to.
func (m *Manager) IPCSocketPath() string {
	cwd, _ := os.Getwd()
	return ipc.DefaultSocketPath(cwd)
}

// WrapCommand wraps a command with sandbox restrictions.
func (m *Manager) WrapCommand(command string) (string, error) {
	if !m.initialized {
		if err := m.Initialize(); err != nil {
			return "", err
		}
	}

	plat := platform.Detect()
	switch plat {
	case platform.MacOS:
		return WrapCommandMacOS(m.config, command, m.httpPort, m.exposedPorts, m.IPCSocketPathIfEnabled(), m.debug)
	case platform.Linux:
		return WrapCommandLinux(m.config, command, m.httpPort, m.IPCSocketPathIfEnabled(), m.debug)
	default:
		return "", fmt.Errorf("unsupported platform: %s", plat)
	}
}

// IPCSocketPathIfEnabled returns the IPC socket path only when an IPC router
// was registered, so the Linux backend knows whether to grant it a rule.
func (m *Manager) IPCSocketPathIfEnabled() string {
	if m.ipcServer == nil {
		return ""
	}
	return m.IPCSocketPath()
}

// Cleanup stops the proxy and IPC server and releases resources. Ordered:
// IPC server first (so no new commands arrive), then the proxy.
func (m *Manager) Cleanup() {
	if m.ipcServer != nil {
		m.ipcServer.Stop()
	}
	if m.httpProxy != nil {
		m.httpProxy.Stop()
	}
	m.logDebug("Sandbox manager cleaned up")
}

func (m *Manager) logDebug(format string, args ...interface{}) {
	if m.debug {
		fmt.Fprintf(os.Stderr, "[leash] "+format+"\n", args...)
	}
}

// HTTPPort returns the HTTP proxy port.
func (m *Manager) HTTPPort() int {
	return m.httpPort
}
