//go:build !linux

package sandbox

// DangerousSyscalls is empty on non-Linux platforms.
var DangerousSyscalls []string

// HardwareGatedSyscalls is empty on non-Linux platforms.
var HardwareGatedSyscalls []string
