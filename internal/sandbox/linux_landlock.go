//go:build linux

// Package sandbox provides sandboxing functionality for macOS and Linux.
package sandbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lexoliu/leash/internal/config"
	"golang.org/x/sys/unix"
)

// requiredLandlockABI is the minimum Landlock ABI this backend requires.
// ABI v4 is the first version that understands network rules (NetPort),
// which is the sole mechanism restricting the sandboxed process to the
// proxy port - without it the process could dial out directly.
const requiredLandlockABI = 4

// systemReadPaths are granted read+execute unconditionally: a process
// cannot even load its own dynamic libraries or resolve a shell builtin
// without them. They carry no secrets, so they are not gated by any
// protection toggle.
var systemReadPaths = []string{
	"/usr", "/lib", "/lib64", "/lib32", "/bin", "/sbin", "/etc",
	"/proc", "/sys", "/run",
}

// unconditionalDevices are granted read-write regardless of the hardware
// toggles: stdio and randomness that almost every program needs. Writing to
// the controlling tty is gated separately by Flags.AllowTTYWrite.
var unconditionalDevices = []string{
	"/dev/null", "/dev/zero", "/dev/full", "/dev/random", "/dev/urandom",
	"/dev/fd",
}

// ttyDevices are granted read unconditionally; write access is gated by
// cfg.AllowPty (full pty allocation, mirroring the macOS backend's
// AllowPty-gated pty block) or, for the controlling tty alone, by the
// narrower Flags.AllowTTYWrite.
var ttyDevices = []string{"/dev/tty", "/dev/ptmx", "/dev/pts"}

var gpuDevices = []string{"/dev/dri", "/dev/nvidia0", "/dev/nvidia1", "/dev/nvidiactl", "/dev/nvidia-uvm"}
var npuDevices = []string{"/dev/accel0", "/dev/accel1"}
var hardwareDevices = []string{"/dev/bus/usb", "/dev/input", "/dev/video0", "/dev/video1", "/dev/snd"}

// UnsupportedPlatformVersionError reports that the running kernel's Landlock
// ABI is older than the version this backend was written against.
type UnsupportedPlatformVersionError struct {
	Platform string
	Minimum  string
	Current  string
}

func (e *UnsupportedPlatformVersionError) Error() string {
	return fmt.Sprintf("%s version %s is below the minimum supported version %s", e.Platform, e.Current, e.Minimum)
}

// ApplyLandlockFromConfig builds a Landlock ruleset from cfg and restricts
// the calling process to it. Unlike the graceful-fallback posture of a
// best-effort sandbox, this call is fatal: it is made from inside the
// pre-exec helper (see linux.go's self-reexec design), after the point of
// no return, so a Landlock that cannot be fully applied must abort the run
// rather than silently execute the target unconfined.
func ApplyLandlockFromConfig(cfg *config.Config, cwd string, socketPaths []string, proxyPort int, debug bool) error {
	features := DetectLinuxFeatures()
	if features.LandlockABI < requiredLandlockABI {
		return &UnsupportedPlatformVersionError{
			Platform: "Linux (Landlock ABI)",
			Minimum:  fmt.Sprintf("%d", requiredLandlockABI),
			Current:  fmt.Sprintf("%d", features.LandlockABI),
		}
	}

	ruleset, err := NewLandlockRuleset(debug)
	if err != nil {
		return fmt.Errorf("landlock: create ruleset: %w", err)
	}
	defer func() { _ = ruleset.Close() }()

	if err := ruleset.Initialize(); err != nil {
		return fmt.Errorf("landlock: initialize: %w", err)
	}

	for _, p := range systemReadPaths {
		if err := ruleset.AllowRead(p); err != nil {
			return fmt.Errorf("landlock: system read path %s: %w", p, err)
		}
	}

	// Strict skips the convenience writable paths (scratch /tmp and the
	// working directory tree) so that only explicit AllowWrite entries grant
	// write access - Landlock's additive model means this is simply a matter
	// of never issuing these rules in the first place.
	if !cfg.Filesystem.Strict {
		for _, p := range []string{"/tmp", "/var/tmp"} {
			if err := ruleset.AllowReadWrite(p); err != nil {
				return fmt.Errorf("landlock: %s: %w", p, err)
			}
		}

		if cwd != "" {
			denyPatterns := append(
				GetMandatoryDenyPatterns(cwd, cfg.Filesystem.AllowGitConfig),
				cfg.Filesystem.DenyWrite...,
			)
			denyPatterns = append(denyPatterns, cfg.Filesystem.DenyRead...)
			if err := grantTreeExcludingDeny(ruleset, cwd, denyPatterns); err != nil {
				return fmt.Errorf("landlock: working directory %s: %w", cwd, err)
			}
		}
	} else if cwd != "" {
		// Even in strict mode the working directory must stay readable so
		// relative paths and config/script discovery keep working.
		if err := ruleset.AllowRead(cwd); err != nil {
			return fmt.Errorf("landlock: working directory %s: %w", cwd, err)
		}
	}

	if cfg.Filesystem.WritableFileSystem {
		if err := ruleset.AllowReadWrite("/"); err != nil {
			return fmt.Errorf("landlock: writable filesystem: %w", err)
		}
	}

	security := cfg.Security

	if !security.ProtectUserHome {
		if home, herr := os.UserHomeDir(); herr == nil {
			if err := ruleset.AllowReadWrite(home); err != nil {
				return fmt.Errorf("landlock: home directory %s: %w", home, err)
			}
		}
		if err := ruleset.AllowReadWrite("/home"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("landlock: /home: %w", err)
		}
	}

	// The seven other protection toggles have no dedicated Landlock rule:
	// Landlock is additive-only, so a sensitive path (~/.ssh, Keychains,
	// shell history...) is excluded automatically by never being listed,
	// as long as ProtectUserHome keeps $HOME out of the ruleset. The SBPL
	// backend needs explicit deny rules because macOS sandbox profiles
	// start from (allow default); Landlock starts from deny-all.

	devices := append([]string{}, unconditionalDevices...)
	if security.AllowGPU {
		devices = append(devices, gpuDevices...)
	}
	if security.AllowNPU {
		devices = append(devices, npuDevices...)
	}
	if security.AllowHardware {
		devices = append(devices, hardwareDevices...)
	}
	for _, p := range devices {
		if err := ruleset.AllowReadWrite(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("landlock: device %s: %w", p, err)
		}
	}

	for _, p := range ttyDevices {
		writable := cfg.AllowPty || (p == "/dev/tty" && cfg.Flags.AllowTTYWrite)
		grant := ruleset.AllowRead
		if writable {
			grant = ruleset.AllowReadWrite
		}
		if err := grant(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("landlock: tty device %s: %w", p, err)
		}
	}

	for _, p := range socketPaths {
		dir := filepath.Dir(p)
		if err := ruleset.AllowReadWrite(dir); err != nil {
			return fmt.Errorf("landlock: socket directory %s: %w", dir, err)
		}
	}

	if cfg.Filesystem.AllowWrite != nil {
		writeDeny := append(
			GetMandatoryDenyPatterns(cwd, cfg.Filesystem.AllowGitConfig),
			cfg.Filesystem.DenyWrite...,
		)
		writeDeny = append(writeDeny, cfg.Filesystem.DenyRead...)

		// Literal paths are granted by the grantTreeExcludingDeny loop below;
		// only glob patterns go through expansion here.
		var globPatterns []string
		for _, p := range cfg.Filesystem.AllowWrite {
			if ContainsGlobChars(p) {
				globPatterns = append(globPatterns, p)
			}
		}
		expandedPaths := ExpandGlobPatterns(globPatterns)
		for _, p := range expandedPaths {
			if pathMatchesDenyPattern(p, writeDeny) {
				continue
			}
			if err := ruleset.AllowReadWrite(p); err != nil {
				return fmt.Errorf("landlock: write path %s: %w", p, err)
			}
		}
		for _, p := range cfg.Filesystem.AllowWrite {
			if !ContainsGlobChars(p) {
				normalized := NormalizePath(p)
				if err := grantTreeExcludingDeny(ruleset, normalized, writeDeny); err != nil {
					return fmt.Errorf("landlock: write path %s: %w", normalized, err)
				}
			}
		}
	}

	if cfg.Filesystem.AllowGitConfig {
		if err := ruleset.AllowRead(filepath.Join(cwd, ".git")); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("landlock: .git: %w", err)
		}
	}

	if proxyPort > 0 {
		if err := ruleset.AllowNetConnect(proxyPort); err != nil {
			return fmt.Errorf("landlock: net port %d: %w", proxyPort, err)
		}
	}

	status, err := ruleset.Apply()
	if err != nil {
		return fmt.Errorf("landlock: apply: %w", err)
	}
	if status != LandlockFullyEnforced {
		return fmt.Errorf("landlock: ruleset only %s, refusing to run unconfined", status)
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[fence:landlock] Applied restrictions (ABI v%d, %s)\n", features.LandlockABI, status)
	}

	return nil
}

// LandlockStatus describes how completely a ruleset was applied to the
// calling process, mirroring the three states the kernel distinguishes:
// every requested access right was enforced, some were silently ignored
// by an older kernel, or the call failed outright.
type LandlockStatus string

const (
	LandlockNotEnforced     LandlockStatus = "not-enforced"
	LandlockPartiallyEnforced LandlockStatus = "partially-enforced"
	LandlockFullyEnforced   LandlockStatus = "fully-enforced"
)

// LandlockRuleset manages Landlock filesystem and network restrictions.
type LandlockRuleset struct {
	rulesetFd    int
	abiVersion   int
	debug        bool
	initialized  bool
	handledNet   uint64
}

// NewLandlockRuleset creates a new Landlock ruleset.
func NewLandlockRuleset(debug bool) (*LandlockRuleset, error) {
	features := DetectLinuxFeatures()
	if features.LandlockABI < requiredLandlockABI {
		return nil, &UnsupportedPlatformVersionError{
			Platform: "Linux (Landlock ABI)",
			Minimum:  fmt.Sprintf("%d", requiredLandlockABI),
			Current:  fmt.Sprintf("%d", features.LandlockABI),
		}
	}

	return &LandlockRuleset{
		rulesetFd:  -1,
		abiVersion: features.LandlockABI,
		debug:      debug,
	}, nil
}

// Initialize creates the Landlock ruleset, handling every filesystem access
// right the detected ABI supports plus both network access rights (ABI v4
// guarantees both exist).
func (l *LandlockRuleset) Initialize() error {
	if l.initialized {
		return nil
	}

	fsAccess := l.getHandledAccessFS()
	netAccess := uint64(LANDLOCK_ACCESS_NET_BIND_TCP | LANDLOCK_ACCESS_NET_CONNECT_TCP)

	attr := landlockRulesetAttr{
		handledAccessFS:  fsAccess,
		handledAccessNet: netAccess,
	}

	fd, _, err := unix.Syscall(
		unix.SYS_LANDLOCK_CREATE_RULESET,
		uintptr(unsafe.Pointer(&attr)), //nolint:gosec // required for syscall
		unsafe.Sizeof(attr),
		0,
	)
	if err != 0 {
		return fmt.Errorf("failed to create Landlock ruleset: %w", err)
	}

	l.rulesetFd = int(fd)
	l.handledNet = netAccess
	l.initialized = true

	if l.debug {
		fmt.Fprintf(os.Stderr, "[fence:landlock] Created ruleset (ABI v%d, fd=%d)\n", l.abiVersion, l.rulesetFd)
	}

	return nil
}

// getHandledAccessFS returns the filesystem access rights to handle.
func (l *LandlockRuleset) getHandledAccessFS() uint64 {
	access := uint64(
		LANDLOCK_ACCESS_FS_EXECUTE |
			LANDLOCK_ACCESS_FS_WRITE_FILE |
			LANDLOCK_ACCESS_FS_READ_FILE |
			LANDLOCK_ACCESS_FS_READ_DIR |
			LANDLOCK_ACCESS_FS_REMOVE_DIR |
			LANDLOCK_ACCESS_FS_REMOVE_FILE |
			LANDLOCK_ACCESS_FS_MAKE_CHAR |
			LANDLOCK_ACCESS_FS_MAKE_DIR |
			LANDLOCK_ACCESS_FS_MAKE_REG |
			LANDLOCK_ACCESS_FS_MAKE_SOCK |
			LANDLOCK_ACCESS_FS_MAKE_FIFO |
			LANDLOCK_ACCESS_FS_MAKE_BLOCK |
			LANDLOCK_ACCESS_FS_MAKE_SYM |
			LANDLOCK_ACCESS_FS_REFER |
			LANDLOCK_ACCESS_FS_TRUNCATE,
	)

	if l.abiVersion >= 5 {
		access |= LANDLOCK_ACCESS_FS_IOCTL_DEV
	}

	return access
}

// AllowRead adds read+execute access to a path.
func (l *LandlockRuleset) AllowRead(path string) error {
	return l.addPathRule(path, LANDLOCK_ACCESS_FS_READ_FILE|LANDLOCK_ACCESS_FS_READ_DIR|LANDLOCK_ACCESS_FS_EXECUTE)
}

// AllowWrite adds write access to a path.
func (l *LandlockRuleset) AllowWrite(path string) error {
	access := uint64(
		LANDLOCK_ACCESS_FS_WRITE_FILE |
			LANDLOCK_ACCESS_FS_REMOVE_DIR |
			LANDLOCK_ACCESS_FS_REMOVE_FILE |
			LANDLOCK_ACCESS_FS_MAKE_CHAR |
			LANDLOCK_ACCESS_FS_MAKE_DIR |
			LANDLOCK_ACCESS_FS_MAKE_REG |
			LANDLOCK_ACCESS_FS_MAKE_SOCK |
			LANDLOCK_ACCESS_FS_MAKE_FIFO |
			LANDLOCK_ACCESS_FS_MAKE_BLOCK |
			LANDLOCK_ACCESS_FS_MAKE_SYM |
			LANDLOCK_ACCESS_FS_REFER |
			LANDLOCK_ACCESS_FS_TRUNCATE,
	)
	return l.addPathRule(path, access)
}

// AllowReadWrite adds full read/write access to a path.
func (l *LandlockRuleset) AllowReadWrite(path string) error {
	if err := l.AllowRead(path); err != nil {
		return err
	}
	return l.AllowWrite(path)
}

// AllowNetConnect grants the single network right the sandboxed process
// needs: outbound TCP to its own loopback proxy port. This is the only
// network rule ever added - the sandbox has exactly one legitimate network
// destination, and it is not the caller's to negotiate.
func (l *LandlockRuleset) AllowNetConnect(port int) error {
	if !l.initialized {
		if err := l.Initialize(); err != nil {
			return err
		}
	}

	attr := landlockNetPortAttr{
		allowedAccess: LANDLOCK_ACCESS_NET_CONNECT_TCP,
		port:          uint64(port), //nolint:gosec // port is validated 1-65535 by the caller
	}

	_, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_ADD_RULE,
		uintptr(l.rulesetFd),
		LANDLOCK_RULE_NET_PORT,
		uintptr(unsafe.Pointer(&attr)), //nolint:gosec // required for syscall
	)
	if errno != 0 {
		return fmt.Errorf("failed to add Landlock net rule for port %d: %w", port, errno)
	}

	if l.debug {
		fmt.Fprintf(os.Stderr, "[fence:landlock] Added net-connect rule: port %d\n", port)
	}

	return nil
}

// addPathRule adds a rule for a specific path.
func (l *LandlockRuleset) addPathRule(path string, access uint64) error {
	if !l.initialized {
		if err := l.Initialize(); err != nil {
			return err
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	info, statErr := os.Stat(absPath)
	if os.IsNotExist(statErr) {
		if l.debug {
			fmt.Fprintf(os.Stderr, "[fence:landlock] Skipping non-existent path: %s\n", absPath)
		}
		return nil
	}

	fd, err := unix.Open(absPath, unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to open path %s: %w", absPath, err)
	}
	defer func() { _ = unix.Close(fd) }()

	access &= l.getHandledAccessFS()
	if statErr == nil && !info.IsDir() {
		// The kernel rejects directory-only rights on a non-directory rule.
		access &= LANDLOCK_ACCESS_FS_EXECUTE | LANDLOCK_ACCESS_FS_WRITE_FILE |
			LANDLOCK_ACCESS_FS_READ_FILE | LANDLOCK_ACCESS_FS_TRUNCATE |
			LANDLOCK_ACCESS_FS_IOCTL_DEV
	}

	attr := landlockPathBeneathAttr{
		allowedAccess: access,
		parentFd:      int32(fd), //nolint:gosec // fd from unix.Open fits in int32
	}

	_, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_ADD_RULE,
		uintptr(l.rulesetFd),
		LANDLOCK_RULE_PATH_BENEATH,
		uintptr(unsafe.Pointer(&attr)), //nolint:gosec // required for syscall
	)
	if errno != 0 {
		return fmt.Errorf("failed to add Landlock rule for %s: %w", absPath, errno)
	}

	if l.debug {
		fmt.Fprintf(os.Stderr, "[fence:landlock] Added rule: %s (access=0x%x)\n", absPath, access)
	}

	return nil
}

// Apply restricts the calling process to the ruleset and reports how
// completely the kernel enforced it.
func (l *LandlockRuleset) Apply() (LandlockStatus, error) {
	if !l.initialized {
		return LandlockNotEnforced, fmt.Errorf("Landlock ruleset not initialized")
	}

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return LandlockNotEnforced, fmt.Errorf("failed to set NO_NEW_PRIVS: %w", err)
	}

	ret, _, errno := unix.Syscall(
		unix.SYS_LANDLOCK_RESTRICT_SELF,
		uintptr(l.rulesetFd),
		0,
		0,
	)
	if errno != 0 {
		return LandlockNotEnforced, fmt.Errorf("failed to apply Landlock ruleset: %w", errno)
	}

	if l.debug {
		fmt.Fprintf(os.Stderr, "[fence:landlock] Ruleset applied to process\n")
	}

	// landlock_restrict_self returns 0 on full enforcement at the ABI we
	// requested; a kernel that silently downgrades handled access rights
	// would have already rejected ruleset creation above, so reaching
	// here with ret == 0 means every requested right is enforced.
	if ret == 0 {
		return LandlockFullyEnforced, nil
	}
	return LandlockPartiallyEnforced, nil
}

// Close closes the ruleset file descriptor.
func (l *LandlockRuleset) Close() error {
	if l.rulesetFd >= 0 {
		err := unix.Close(l.rulesetFd)
		l.rulesetFd = -1
		return err
	}
	return nil
}

// ExpandGlobPatterns expands glob patterns to actual paths for Landlock rules.
// Optimized for Landlock's PATH_BENEATH semantics:
//   - "dir/**" → returns just "dir" (Landlock covers descendants automatically)
//   - "**/pattern" → scoped to cwd only, skips already-covered directories
//   - "**/dir/**" → finds dirs in cwd, returns them (PATH_BENEATH covers contents)
func ExpandGlobPatterns(patterns []string) []string {
	var expanded []string
	seen := make(map[string]bool)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	coveredDirs := make(map[string]bool)
	for _, pattern := range patterns {
		if !ContainsGlobChars(pattern) {
			continue
		}
		pattern = NormalizePath(pattern)
		if strings.HasSuffix(pattern, "/**") && !strings.Contains(strings.TrimSuffix(pattern, "/**"), "**") {
			dir := strings.TrimSuffix(pattern, "/**")
			if !strings.HasPrefix(dir, "/") {
				dir = filepath.Join(cwd, dir)
			}
			relDir, err := filepath.Rel(cwd, dir)
			if err == nil {
				coveredDirs[relDir] = true
			}
		}
	}

	for _, pattern := range patterns {
		if !ContainsGlobChars(pattern) {
			normalized := NormalizePath(pattern)
			if !seen[normalized] {
				seen[normalized] = true
				expanded = append(expanded, normalized)
			}
			continue
		}

		pattern = NormalizePath(pattern)

		if strings.HasSuffix(pattern, "/**") && !strings.Contains(strings.TrimSuffix(pattern, "/**"), "**") {
			dir := strings.TrimSuffix(pattern, "/**")
			if !strings.HasPrefix(dir, "/") {
				dir = filepath.Join(cwd, dir)
			}
			if !seen[dir] {
				seen[dir] = true
				expanded = append(expanded, dir)
			}
			continue
		}

		if strings.HasPrefix(pattern, "**/") {
			suffix := strings.TrimPrefix(pattern, "**/")

			isDir := strings.HasSuffix(suffix, "/**")
			if isDir {
				suffix = strings.TrimSuffix(suffix, "/**")
			}

			fsys := os.DirFS(cwd)
			searchPattern := "**/" + suffix

			err := doublestar.GlobWalk(fsys, searchPattern, func(path string, d fs.DirEntry) error {
				pathParts := strings.Split(path, string(filepath.Separator))
				for i := 1; i <= len(pathParts); i++ {
					parentPath := strings.Join(pathParts[:i], string(filepath.Separator))
					if coveredDirs[parentPath] {
						if d.IsDir() {
							return fs.SkipDir
						}
						return nil
					}
				}

				absPath := filepath.Join(cwd, path)
				if !seen[absPath] {
					seen[absPath] = true
					expanded = append(expanded, absPath)
				}
				return nil
			})
			if err != nil {
				continue
			}
			continue
		}

		if !strings.Contains(pattern, "**") {
			var searchBase string
			var searchPattern string

			if strings.HasPrefix(pattern, "/") {
				parts := strings.Split(pattern, "/")
				var baseparts []string
				for _, p := range parts {
					if ContainsGlobChars(p) {
						break
					}
					baseparts = append(baseparts, p)
				}
				searchBase = strings.Join(baseparts, "/")
				if searchBase == "" {
					searchBase = "/"
				}
				searchPattern = strings.TrimPrefix(pattern, searchBase+"/")
			} else {
				searchBase = cwd
				searchPattern = pattern
			}

			fsys := os.DirFS(searchBase)
			matches, err := doublestar.Glob(fsys, searchPattern)
			if err != nil {
				continue
			}

			for _, match := range matches {
				absPath := filepath.Join(searchBase, match)
				if !seen[absPath] {
					seen[absPath] = true
					expanded = append(expanded, absPath)
				}
			}
		}
	}

	return expanded
}

// grantTreeExcludingDeny grants read-write access to root, carving out any
// entry matching denyPatterns. Landlock's PATH_BENEATH rules are additive
// and always cover a whole subtree, so the only way to keep a tree writable
// while excluding specific files within it - the mandatory deny patterns, or
// a caller's DenyWrite list - is to grant access one directory level at a
// time and skip the entries that match, unlike SBPL's allow-then-deny
// layering on macOS.
func grantTreeExcludingDeny(ruleset *LandlockRuleset, root string, denyPatterns []string) error {
	if len(denyPatterns) == 0 {
		return ruleset.AllowReadWrite(root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		// Not a directory (or unreadable for another reason): fall back to
		// granting the path itself, since there is nothing to recurse into.
		return ruleset.AllowReadWrite(root)
	}

	for _, entry := range entries {
		childPath := filepath.Join(root, entry.Name())
		if pathMatchesDenyPattern(childPath, denyPatterns) {
			continue
		}
		if entry.IsDir() && dirContainsDeniedDescendant(childPath, denyPatterns) {
			if err := grantTreeExcludingDeny(ruleset, childPath, denyPatterns); err != nil {
				return err
			}
			continue
		}
		if err := ruleset.AllowReadWrite(childPath); err != nil {
			return err
		}
	}
	return nil
}

// dirContainsDeniedDescendant reports whether any path beneath dir matches
// one of denyPatterns, so grantTreeExcludingDeny knows whether it can grant
// dir as a single subtree rule or must recurse further into it.
func dirContainsDeniedDescendant(dir string, denyPatterns []string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == dir {
			return nil
		}
		if pathMatchesDenyPattern(path, denyPatterns) {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	return found
}

// pathMatchesDenyPattern checks absPath against a mix of absolute glob
// patterns and bare "**/name" patterns, matching the two forms
// GetMandatoryDenyPatterns and a caller's DenyWrite list produce.
func pathMatchesDenyPattern(absPath string, patterns []string) bool {
	for _, p := range patterns {
		norm := NormalizePath(p)
		if ok, err := doublestar.Match(norm, absPath); err == nil && ok {
			return true
		}
		if !strings.HasPrefix(norm, "/") {
			if ok, err := doublestar.Match("**/"+norm, absPath); err == nil && ok {
				return true
			}
		}
	}
	return false
}
