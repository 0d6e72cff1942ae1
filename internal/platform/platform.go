// Package platform identifies the host operating system and which sandbox
// backend, if any, is available for it.
package platform

import "runtime"

// OS identifies a supported (or unsupported) host operating system.
type OS string

const (
	MacOS   OS = "macos"
	Linux   OS = "linux"
	Windows OS = "windows"
	Unknown OS = "unknown"
)

func (o OS) String() string {
	return string(o)
}

// Detect returns the OS the binary is currently running on.
func Detect() OS {
	switch runtime.GOOS {
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	case "windows":
		return Windows
	default:
		return Unknown
	}
}

// IsSupported reports whether the current OS has a native sandbox backend.
// Windows is a recognized target but has no enforcement backend yet, so it
// is deliberately excluded here rather than silently no-opping.
func IsSupported() bool {
	switch Detect() {
	case MacOS, Linux:
		return true
	default:
		return false
	}
}
