package sandbox

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexoliu/leash/internal/config"
)

// globChars are the characters doublestar treats specially in a pattern.
const globChars = "*?["

// ContainsGlobChars reports whether pattern contains any glob metacharacter,
// distinguishing a literal path (passed straight through to the platform
// backend) from a pattern that needs expansion via ExpandGlobPatterns.
func ContainsGlobChars(pattern string) bool {
	return strings.ContainsAny(pattern, globChars)
}

// RemoveTrailingGlobSuffix strips one trailing "/**" path segment, the
// idiom used throughout the config for "this directory and everything under
// it". Only one suffix is removed: "/path/**/**" yields "/path/**", not
// "/path", since the remaining "**" still carries meaning.
func RemoveTrailingGlobSuffix(pattern string) string {
	return strings.TrimSuffix(pattern, "/**")
}

// NormalizePath resolves a user- or config-supplied path into an absolute
// one: "~" expands to the home directory, relative paths resolve against
// the current working directory, and patterns containing glob characters
// are returned unchanged (expansion is ExpandGlobPatterns' job, which needs
// the original pattern intact).
func NormalizePath(path string) string {
	if ContainsGlobChars(path) {
		return path
	}

	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
		return path
	}

	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// GenerateProxyEnvVars returns the environment variable assignments
// ("KEY=value" strings, ready for exec.Cmd.Env or a shell's export) that
// point every proxy-aware HTTP client at the sandbox's local CONNECT proxy.
// Network access outside of an allow-listed domain has exactly one path in
// or out: this proxy, on 127.0.0.1. There is no SOCKS leg and no ALL_PROXY
// variable — the sandbox speaks HTTP/CONNECT only, matching the single
// listener the Manager starts.
func GenerateProxyEnvVars(httpPort int) []string {
	envs := []string{
		"FENCE_SANDBOX=1",
		"TMPDIR=/tmp/fence",
	}

	if httpPort <= 0 {
		return envs
	}

	proxyURL := fmt.Sprintf("http://127.0.0.1:%d", httpPort)
	envs = append(envs,
		"HTTP_PROXY="+proxyURL,
		"HTTPS_PROXY="+proxyURL,
		"http_proxy="+proxyURL,
		"https_proxy="+proxyURL,
		"NO_PROXY=localhost,127.0.0.1",
		"no_proxy=localhost,127.0.0.1",
	)
	return envs
}

// BuildSandboxEnv assembles the environment a sandboxed child actually sees,
// starting from a cleared slate rather than inheriting fence's own
// environment wholesale: passthrough names are read from fence's
// environment, explicit Set pairs are applied on top (winning over a
// passthrough value of the same name), proxyDefaults (typically
// GenerateProxyEnvVars' output) fill in anything the caller didn't already
// set, and internal entries are appended last, unconditionally, since
// they're fence's own plumbing rather than anything policy-controlled.
// Dangerous variables are stripped at the end regardless of which of those
// sources introduced them, so a passthrough list can never be used to
// smuggle LD_PRELOAD back in.
func BuildSandboxEnv(envCfg config.EnvConfig, proxyDefaults []string, internal ...string) []string {
	order := make([]string, 0, len(envCfg.Passthrough)+len(envCfg.Set)+len(proxyDefaults))
	values := make(map[string]string, cap(order))

	set := func(key, value string) {
		if _, seen := values[key]; !seen {
			order = append(order, key)
		}
		values[key] = value
	}

	for _, name := range envCfg.Passthrough {
		if value, ok := os.LookupEnv(name); ok {
			set(name, value)
		}
	}
	for key, value := range envCfg.Set {
		set(key, value)
	}
	for _, entry := range proxyDefaults {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, already := values[key]; !already {
			set(key, value)
		}
	}

	result := make([]string, 0, len(order)+len(internal))
	for _, key := range order {
		result = append(result, key+"="+values[key])
	}
	result = append(result, internal...)

	return FilterDangerousEnv(result)
}

// EncodeSandboxedCommand base64-encodes command for embedding in a sandbox
// profile's log tag (SBPL "with message" strings reject many shell
// metacharacters). Commands are truncated to 100 bytes first: the tag is
// diagnostic, not a faithful transcript, and SBPL log messages have their
// own length limits.
func EncodeSandboxedCommand(command string) string {
	if len(command) > 100 {
		command = command[:100]
	}
	return base64.StdEncoding.EncodeToString([]byte(command))
}

// DecodeSandboxedCommand reverses EncodeSandboxedCommand, for tooling that
// reads a sandbox violation log and wants to recover the offending command.
func DecodeSandboxedCommand(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sandboxed command: %w", err)
	}
	return string(decoded), nil
}
