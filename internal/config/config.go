// Package config defines the configuration types and loading for fence.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config is the main configuration for fence.
type Config struct {
	Extends    string           `json:"extends,omitempty"`
	Network    NetworkConfig    `json:"network"`
	Filesystem FilesystemConfig `json:"filesystem"`
	Command    CommandConfig    `json:"command"`
	SSH        SSHConfig        `json:"ssh"`
	Security   SecurityConfig   `json:"security"`
	Python     *PythonConfig    `json:"python,omitempty"`
	Env        EnvConfig        `json:"env,omitempty"`
	Limits     ResourceLimits   `json:"limits,omitempty"`
	Flags      Flags            `json:"flags,omitempty"`
	AllowPty   bool             `json:"allowPty,omitempty"`
}

// NetworkMode selects how the proxy evaluates an outbound (or, for Landlock
// bound ports, inbound) connection request. "" behaves like AllowList: the
// existing AllowedDomains/DeniedDomains pair decides.
type NetworkMode string

const (
	NetworkModeAllowList NetworkMode = ""
	NetworkModeDenyAll   NetworkMode = "deny"
	NetworkModeAllowAll  NetworkMode = "allow"
	NetworkModeCustom    NetworkMode = "custom"
)

// ConnectionDirection reports whether a DomainRequest is an outbound
// connection the sandboxed process is making, or an inbound one arriving on
// an exposed port.
type ConnectionDirection int

// Connection directions reported to a CustomAsync handler.
const (
	ConnectionOutbound ConnectionDirection = iota
	ConnectionInbound
)

// DomainRequest describes a single network access request submitted to a
// CustomAsync handler for a yes/no decision.
type DomainRequest struct {
	Target    string
	Port      int
	Direction ConnectionDirection
	Pid       int
}

// CustomAsyncFunc is a user-supplied network policy handler for
// NetworkModeCustom. It receives a context so a slow lookup (a remote
// policy service, a database check) can be cancelled, and returns true to
// allow the connection. It is not JSON-serializable: set it through the
// embedding API (pkg/fence), never through a config file.
type CustomAsyncFunc func(ctx context.Context, req DomainRequest) bool

// NetworkConfig defines network restrictions.
type NetworkConfig struct {
	Mode                NetworkMode      `json:"mode,omitempty"`
	AllowedDomains      []string         `json:"allowedDomains"`
	DeniedDomains       []string         `json:"deniedDomains"`
	AllowUnixSockets    []string         `json:"allowUnixSockets,omitempty"`
	AllowAllUnixSockets bool             `json:"allowAllUnixSockets,omitempty"`
	AllowLocalBinding   bool             `json:"allowLocalBinding,omitempty"`
	AllowLocalOutbound  *bool            `json:"allowLocalOutbound,omitempty"` // If nil, defaults to AllowLocalBinding value
	HTTPProxyPort       int              `json:"httpProxyPort,omitempty"`
	CustomAsync         CustomAsyncFunc  `json:"-"`
}

// FilesystemConfig defines filesystem restrictions.
type FilesystemConfig struct {
	DenyRead           []string `json:"denyRead"`
	AllowWrite         []string `json:"allowWrite"`
	DenyWrite          []string `json:"denyWrite"`
	AllowGitConfig     bool     `json:"allowGitConfig,omitempty"`
	Strict             bool     `json:"strict,omitempty"`             // Skip the backend's default writable-path convenience list; only AllowWrite grants write access.
	WritableFileSystem bool     `json:"writableFileSystem,omitempty"` // Grant write access to read-only system paths the backend would otherwise mount read-only.
}

// VenvConfig describes the Python virtual environment RunPython should use.
// Mirrors the original implementation's VenvConfig: Path defaults to
// ".sandbox-venv", SystemSitePackages and UseUV default to true.
type VenvConfig struct {
	Path                string   `json:"path,omitempty"`
	Python              string   `json:"python,omitempty"` // Interpreter used to create the venv; empty means "python3" or "python" from PATH.
	Packages            []string `json:"packages,omitempty"`
	SystemSitePackages  *bool    `json:"systemSitePackages,omitempty"` // nil defaults to true
	UseUV               *bool    `json:"useUv,omitempty"`              // nil defaults to true; prefer uv over python -m venv when both are available
}

// PythonConfig configures RunPython's interpreter resolution and whether
// the sandboxed process may install packages into the venv itself.
type PythonConfig struct {
	Venv            VenvConfig `json:"venv"`
	AllowPipInstall *bool      `json:"allowPipInstall,omitempty"` // nil defaults to true
}

// DefaultVenvPath is the virtual environment directory RunPython creates
// relative to the sandbox working directory when none is configured.
const DefaultVenvPath = ".sandbox-venv"

// PythonExecutable returns the path of the venv's python executable.
func (v *VenvConfig) PythonExecutable() string {
	path := v.Path
	if path == "" {
		path = DefaultVenvPath
	}
	return filepath.Join(path, "bin", "python")
}

// UseSystemSitePackages reports whether the venv should see packages
// installed in the system interpreter. Defaults to true.
func (v *VenvConfig) UseSystemSitePackages() bool {
	return v.SystemSitePackages == nil || *v.SystemSitePackages
}

// ShouldUseUV reports whether venv creation should prefer uv over
// python -m venv. Defaults to true.
func (v *VenvConfig) ShouldUseUV() bool {
	return v.UseUV == nil || *v.UseUV
}

// AllowsPipInstall reports whether the sandboxed process may run pip/uv
// install inside the configured venv. Defaults to true.
func (p *PythonConfig) AllowsPipInstall() bool {
	return p.AllowPipInstall == nil || *p.AllowPipInstall
}

// EnvConfig controls which environment variables a sandboxed command
// inherits beyond fence's own hardened baseline.
type EnvConfig struct {
	Passthrough []string          `json:"passthrough,omitempty"` // Names of variables to copy from fence's own environment, if set.
	Set         map[string]string `json:"set,omitempty"`         // Explicit key/value pairs, applied after Passthrough.
}

// ResourceLimits caps a sandboxed process's resource consumption. On Linux
// the --sandbox-apply helper sets them with setrlimit just before it execs
// the target; on macOS they become ulimit builtins in front of the command.
// Mirrors the original implementation's ResourceLimits; nil fields mean
// "no limit".
type ResourceLimits struct {
	MaxMemoryBytes   *uint64 `json:"maxMemoryBytes,omitempty"`
	MaxCPUTimeSecs   *uint64 `json:"maxCpuTimeSecs,omitempty"`
	MaxFileSizeBytes *uint64 `json:"maxFileSizeBytes,omitempty"`
	MaxProcesses     *uint64 `json:"maxProcesses,omitempty"`
}

// IsZero reports whether no limit is configured.
func (r ResourceLimits) IsZero() bool {
	return r.MaxMemoryBytes == nil && r.MaxCPUTimeSecs == nil && r.MaxFileSizeBytes == nil && r.MaxProcesses == nil
}

// Flags holds boolean sandbox behaviors that don't fit naturally under
// Network or Filesystem.
type Flags struct {
	AllowTTYWrite  bool `json:"allowTtyWrite,omitempty"`  // Let the sandboxed process write to its controlling tty device directly, not just through the piped stdout fence sets up.
	KeepWorkingDir bool `json:"keepWorkingDir,omitempty"` // Don't remove an auto-generated working directory on exit.
}

// CommandConfig defines command restrictions.
type CommandConfig struct {
	Deny        []string `json:"deny"`
	Allow       []string `json:"allow"`
	UseDefaults *bool    `json:"useDefaults,omitempty"`
}

// SSHConfig defines SSH command restrictions.
// SSH commands are filtered using an allowlist by default for security.
type SSHConfig struct {
	AllowedHosts     []string `json:"allowedHosts"`               // Host patterns to allow SSH to (supports wildcards like *.example.com)
	DeniedHosts      []string `json:"deniedHosts"`                // Host patterns to deny SSH to (checked before allowed)
	AllowedCommands  []string `json:"allowedCommands"`            // Commands allowed over SSH (allowlist mode)
	DeniedCommands   []string `json:"deniedCommands"`             // Commands denied over SSH (checked before allowed)
	AllowAllCommands bool     `json:"allowAllCommands,omitempty"` // If true, use denylist mode instead of allowlist
	InheritDeny      bool     `json:"inheritDeny,omitempty"`      // If true, also apply global command.deny rules
}

// DefaultDeniedCommands returns commands that are blocked by default.
// These are system-level dangerous commands that are rarely needed by AI agents.
var DefaultDeniedCommands = []string{
	// System control - can crash/reboot the machine
	"shutdown",
	"reboot",
	"halt",
	"poweroff",
	"init 0",
	"init 6",
	"systemctl poweroff",
	"systemctl reboot",
	"systemctl halt",

	// Kernel/module manipulation
	"insmod",
	"rmmod",
	"modprobe",
	"kexec",

	// Disk/partition manipulation (including common variants)
	"mkfs",
	"mkfs.ext2",
	"mkfs.ext3",
	"mkfs.ext4",
	"mkfs.xfs",
	"mkfs.btrfs",
	"mkfs.vfat",
	"mkfs.ntfs",
	"fdisk",
	"parted",
	"dd if=",

	// Container escape vectors
	"docker run -v /:/",
	"docker run --privileged",

	// Chroot/namespace escape
	"chroot",
	"unshare",
	"nsenter",
}

// Default returns the default configuration with all network blocked.
func Default() *Config {
	return &Config{
		Network: NetworkConfig{
			AllowedDomains: []string{},
			DeniedDomains:  []string{},
		},
		Security: StrictSecurity(),
		Filesystem: FilesystemConfig{
			DenyRead:   []string{},
			AllowWrite: []string{},
			DenyWrite:  []string{},
		},
		Command: CommandConfig{
			Deny:  []string{},
			Allow: []string{},
			// UseDefaults defaults to true (nil = true)
		},
		SSH: SSHConfig{
			AllowedHosts:    []string{},
			DeniedHosts:     []string{},
			AllowedCommands: []string{},
			DeniedCommands:  []string{},
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fence.json"
	}
	return filepath.Join(home, ".fence.json")
}

// Load loads configuration from a file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path - intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Handle empty file
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("invalid JSON in config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, domain := range c.Network.AllowedDomains {
		if err := validateDomainPattern(domain); err != nil {
			return fmt.Errorf("invalid allowed domain %q: %w", domain, err)
		}
	}
	for _, domain := range c.Network.DeniedDomains {
		if err := validateDomainPattern(domain); err != nil {
			return fmt.Errorf("invalid denied domain %q: %w", domain, err)
		}
	}

	if slices.Contains(c.Filesystem.DenyRead, "") {
		return errors.New("filesystem.denyRead contains empty path")
	}
	if slices.Contains(c.Filesystem.AllowWrite, "") {
		return errors.New("filesystem.allowWrite contains empty path")
	}
	if slices.Contains(c.Filesystem.DenyWrite, "") {
		return errors.New("filesystem.denyWrite contains empty path")
	}

	if slices.Contains(c.Command.Deny, "") {
		return errors.New("command.deny contains empty command")
	}
	if slices.Contains(c.Command.Allow, "") {
		return errors.New("command.allow contains empty command")
	}

	// SSH config
	for _, host := range c.SSH.AllowedHosts {
		if err := validateHostPattern(host); err != nil {
			return fmt.Errorf("invalid ssh.allowedHosts %q: %w", host, err)
		}
	}
	for _, host := range c.SSH.DeniedHosts {
		if err := validateHostPattern(host); err != nil {
			return fmt.Errorf("invalid ssh.deniedHosts %q: %w", host, err)
		}
	}
	if slices.Contains(c.SSH.AllowedCommands, "") {
		return errors.New("ssh.allowedCommands contains empty command")
	}
	if slices.Contains(c.SSH.DeniedCommands, "") {
		return errors.New("ssh.deniedCommands contains empty command")
	}

	return nil
}

// UseDefaultDeniedCommands returns whether to use the default deny list.
func (c *CommandConfig) UseDefaultDeniedCommands() bool {
	return c.UseDefaults == nil || *c.UseDefaults
}

func validateDomainPattern(pattern string) error {
	if pattern == "localhost" {
		return nil
	}

	if strings.Contains(pattern, "://") || strings.Contains(pattern, "/") || strings.Contains(pattern, ":") {
		return errors.New("domain pattern cannot contain protocol, path, or port")
	}

	// Handle wildcard patterns
	if strings.HasPrefix(pattern, "*.") {
		domain := pattern[2:]
		// Must have at least one more dot after the wildcard
		if !strings.Contains(domain, ".") {
			return errors.New("wildcard pattern too broad (e.g., *.com not allowed)")
		}
		if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
			return errors.New("invalid domain format")
		}
		// Check each part has content
		parts := strings.Split(domain, ".")
		if len(parts) < 2 {
			return errors.New("wildcard pattern too broad")
		}
		if slices.Contains(parts, "") {
			return errors.New("invalid domain format")
		}
		return nil
	}

	// Reject other uses of wildcards
	if strings.Contains(pattern, "*") {
		return errors.New("only *.domain.com wildcard patterns are allowed")
	}

	// Regular domains must have at least one dot
	if !strings.Contains(pattern, ".") || strings.HasPrefix(pattern, ".") || strings.HasSuffix(pattern, ".") {
		return errors.New("invalid domain format")
	}

	return nil
}

// validateHostPattern validates an SSH host pattern.
// Host patterns are more permissive than domain patterns:
// - Can contain wildcards anywhere (e.g., prod-*.example.com, *.example.com)
// - Can be IP addresses
// - Can be simple hostnames without dots
func validateHostPattern(pattern string) error {
	if pattern == "" {
		return errors.New("empty host pattern")
	}

	// Reject patterns with protocol or path
	if strings.Contains(pattern, "://") || strings.Contains(pattern, "/") {
		return errors.New("host pattern cannot contain protocol or path")
	}

	// Reject patterns with port (user@host:port style)
	// But allow colons for IPv6 addresses
	if strings.Contains(pattern, ":") && !strings.Contains(pattern, "::") && !isIPv6Pattern(pattern) {
		return errors.New("host pattern cannot contain port; specify port in SSH command instead")
	}

	// Reject patterns with @ (should be just the host, not user@host)
	if strings.Contains(pattern, "@") {
		return errors.New("host pattern should not contain username; specify just the host")
	}

	return nil
}

// isIPv6Pattern checks if a pattern looks like an IPv6 address.
func isIPv6Pattern(pattern string) bool {
	// IPv6 addresses contain multiple colons
	colonCount := strings.Count(pattern, ":")
	return colonCount >= 2
}

// MatchesDomain checks if a hostname matches a domain pattern. Matching is
// case-sensitive: a pattern of "Example.com" does not match a request for
// "example.com".
func MatchesDomain(hostname, pattern string) bool {
	// "*" matches all domains
	if pattern == "*" {
		return true
	}

	// Wildcard pattern like *.example.com
	if strings.HasPrefix(pattern, "*.") {
		baseDomain := pattern[2:]
		return strings.HasSuffix(hostname, "."+baseDomain)
	}

	// Exact match
	return hostname == pattern
}

// MatchesHost checks if a hostname matches an SSH host pattern.
// SSH host patterns support wildcards anywhere in the pattern.
func MatchesHost(hostname, pattern string) bool {
	hostname = strings.ToLower(hostname)
	pattern = strings.ToLower(pattern)

	// "*" matches all hosts
	if pattern == "*" {
		return true
	}

	// If pattern contains no wildcards, do exact match
	if !strings.Contains(pattern, "*") {
		return hostname == pattern
	}

	// Convert glob pattern to a simple matcher
	// Split pattern by * and check each part
	return matchGlob(hostname, pattern)
}

// matchGlob performs simple glob matching with * wildcards.
func matchGlob(s, pattern string) bool {
	// Handle edge cases
	if pattern == "*" {
		return true
	}
	if pattern == "" {
		return s == ""
	}

	// Split pattern by * and match parts
	parts := strings.Split(pattern, "*")

	// Check prefix (before first *)
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	// Check suffix (after last *)
	if len(parts) > 1 {
		last := parts[len(parts)-1]
		if !strings.HasSuffix(s, last) {
			return false
		}
		s = s[:len(s)-len(last)]
	}

	// Check middle parts (between *s)
	for i := 1; i < len(parts)-1; i++ {
		part := parts[i]
		if part == "" {
			continue
		}
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}

	return true
}

// Merge combines a base config with an override config.
// Values in override take precedence. Slice fields are appended (base + override).
// The Extends field is cleared in the result since inheritance has been resolved.
func Merge(base, override *Config) *Config {
	if base == nil {
		if override == nil {
			return Default()
		}
		result := *override
		result.Extends = ""
		return &result
	}
	if override == nil {
		result := *base
		result.Extends = ""
		return &result
	}

	result := &Config{
		// AllowPty: true if either config enables it
		AllowPty: base.AllowPty || override.AllowPty,

		Network: NetworkConfig{
			// Append slices (base first, then override additions)
			AllowedDomains:   mergeStrings(base.Network.AllowedDomains, override.Network.AllowedDomains),
			DeniedDomains:    mergeStrings(base.Network.DeniedDomains, override.Network.DeniedDomains),
			AllowUnixSockets: mergeStrings(base.Network.AllowUnixSockets, override.Network.AllowUnixSockets),

			// Boolean fields: override wins if set, otherwise base
			AllowAllUnixSockets: base.Network.AllowAllUnixSockets || override.Network.AllowAllUnixSockets,
			AllowLocalBinding:   base.Network.AllowLocalBinding || override.Network.AllowLocalBinding,

			// Pointer fields: override wins if set, otherwise base
			AllowLocalOutbound: mergeOptionalBool(base.Network.AllowLocalOutbound, override.Network.AllowLocalOutbound),

			// Port fields: override wins if non-zero
			HTTPProxyPort: mergeInt(base.Network.HTTPProxyPort, override.Network.HTTPProxyPort),

			// Mode and CustomAsync: override wins if set, otherwise base
			Mode:        mergeNetworkMode(base.Network.Mode, override.Network.Mode),
			CustomAsync: mergeCustomAsync(base.Network.CustomAsync, override.Network.CustomAsync),
		},

		Python: mergePython(base.Python, override.Python),

		Env: EnvConfig{
			Passthrough: mergeStrings(base.Env.Passthrough, override.Env.Passthrough),
			Set:         mergeStringMap(base.Env.Set, override.Env.Set),
		},

		Limits: ResourceLimits{
			MaxMemoryBytes:   mergeOptionalUint64(base.Limits.MaxMemoryBytes, override.Limits.MaxMemoryBytes),
			MaxCPUTimeSecs:   mergeOptionalUint64(base.Limits.MaxCPUTimeSecs, override.Limits.MaxCPUTimeSecs),
			MaxFileSizeBytes: mergeOptionalUint64(base.Limits.MaxFileSizeBytes, override.Limits.MaxFileSizeBytes),
			MaxProcesses:     mergeOptionalUint64(base.Limits.MaxProcesses, override.Limits.MaxProcesses),
		},

		Flags: Flags{
			AllowTTYWrite:  base.Flags.AllowTTYWrite || override.Flags.AllowTTYWrite,
			KeepWorkingDir: base.Flags.KeepWorkingDir || override.Flags.KeepWorkingDir,
		},

		// Security toggles: a protection enabled by either config stays
		// enabled; a hardware allowance granted by either config stays
		// granted (same additive-union policy as the other boolean fields).
		Security: SecurityConfig{
			ProtectUserHome:           base.Security.ProtectUserHome || override.Security.ProtectUserHome,
			ProtectCredentials:        base.Security.ProtectCredentials || override.Security.ProtectCredentials,
			ProtectCloudConfig:        base.Security.ProtectCloudConfig || override.Security.ProtectCloudConfig,
			ProtectBrowserData:        base.Security.ProtectBrowserData || override.Security.ProtectBrowserData,
			ProtectKeychain:           base.Security.ProtectKeychain || override.Security.ProtectKeychain,
			ProtectShellHistory:       base.Security.ProtectShellHistory || override.Security.ProtectShellHistory,
			ProtectPackageCredentials: base.Security.ProtectPackageCredentials || override.Security.ProtectPackageCredentials,
			AllowGPU:                  base.Security.AllowGPU || override.Security.AllowGPU,
			AllowNPU:                  base.Security.AllowNPU || override.Security.AllowNPU,
			AllowHardware:             base.Security.AllowHardware || override.Security.AllowHardware,
		},

		Filesystem: FilesystemConfig{
			// Append slices
			DenyRead:   mergeStrings(base.Filesystem.DenyRead, override.Filesystem.DenyRead),
			AllowWrite: mergeStrings(base.Filesystem.AllowWrite, override.Filesystem.AllowWrite),
			DenyWrite:  mergeStrings(base.Filesystem.DenyWrite, override.Filesystem.DenyWrite),

			// Boolean fields: override wins if set
			AllowGitConfig:     base.Filesystem.AllowGitConfig || override.Filesystem.AllowGitConfig,
			Strict:             base.Filesystem.Strict || override.Filesystem.Strict,
			WritableFileSystem: base.Filesystem.WritableFileSystem || override.Filesystem.WritableFileSystem,
		},

		Command: CommandConfig{
			// Append slices
			Deny:  mergeStrings(base.Command.Deny, override.Command.Deny),
			Allow: mergeStrings(base.Command.Allow, override.Command.Allow),

			// Pointer field: override wins if set
			UseDefaults: mergeOptionalBool(base.Command.UseDefaults, override.Command.UseDefaults),
		},

		SSH: SSHConfig{
			// Append slices
			AllowedHosts:    mergeStrings(base.SSH.AllowedHosts, override.SSH.AllowedHosts),
			DeniedHosts:     mergeStrings(base.SSH.DeniedHosts, override.SSH.DeniedHosts),
			AllowedCommands: mergeStrings(base.SSH.AllowedCommands, override.SSH.AllowedCommands),
			DeniedCommands:  mergeStrings(base.SSH.DeniedCommands, override.SSH.DeniedCommands),

			// Boolean fields: true if either enables it
			AllowAllCommands: base.SSH.AllowAllCommands || override.SSH.AllowAllCommands,
			InheritDeny:      base.SSH.InheritDeny || override.SSH.InheritDeny,
		},
	}

	return result
}

// mergeStrings appends two string slices, removing duplicates.
func mergeStrings(base, override []string) []string {
	if len(base) == 0 {
		return override
	}
	if len(override) == 0 {
		return base
	}

	seen := make(map[string]bool, len(base))
	result := make([]string, 0, len(base)+len(override))

	for _, s := range base {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range override {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// mergeOptionalBool returns override if non-nil, otherwise base.
func mergeOptionalBool(base, override *bool) *bool {
	if override != nil {
		return override
	}
	return base
}

// mergeInt returns override if non-zero, otherwise base.
func mergeInt(base, override int) int {
	if override != 0 {
		return override
	}
	return base
}

// mergeStringMap combines two string maps, override winning on key conflict.
func mergeStringMap(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	result := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range override {
		result[k] = v
	}
	return result
}

// mergeOptionalUint64 returns override if non-nil, otherwise base.
func mergeOptionalUint64(base, override *uint64) *uint64 {
	if override != nil {
		return override
	}
	return base
}

// mergeNetworkMode returns override if set, otherwise base.
func mergeNetworkMode(base, override NetworkMode) NetworkMode {
	if override != NetworkModeAllowList {
		return override
	}
	return base
}

// mergeCustomAsync returns override if set, otherwise base.
func mergeCustomAsync(base, override CustomAsyncFunc) CustomAsyncFunc {
	if override != nil {
		return override
	}
	return base
}

// mergePython returns override if set, otherwise base.
func mergePython(base, override *PythonConfig) *PythonConfig {
	if override != nil {
		return override
	}
	return base
}
