package config

// SecurityConfig controls the protection toggles layered on top of the
// filesystem/network policy: a set of categories of sensitive host state
// that are excluded from the sandbox regardless of the configured path
// lists, plus a set of hardware-access toggles. Grounded on the original
// implementation's SecurityConfig, carried over field-for-field.
type SecurityConfig struct {
	ProtectUserHome          bool `json:"protectUserHome"`
	ProtectCredentials       bool `json:"protectCredentials"`       // ~/.ssh, ~/.gnupg
	ProtectCloudConfig       bool `json:"protectCloudConfig"`       // ~/.aws, ~/.kube, ~/.docker
	ProtectBrowserData       bool `json:"protectBrowserData"`       // Chrome/Firefox/Safari profiles and cookies
	ProtectKeychain          bool `json:"protectKeychain"`          // macOS Keychain
	ProtectShellHistory      bool `json:"protectShellHistory"`      // .bash_history, .zsh_history, .fish_history
	ProtectPackageCredentials bool `json:"protectPackageCredentials"` // .netrc, .npmrc, .pypirc

	AllowGPU      bool `json:"allowGPU"`
	AllowNPU      bool `json:"allowNPU"`
	AllowHardware bool `json:"allowHardware"`
}

// StrictSecurity is the default posture: every protection enabled, GPU/NPU
// access granted (common for ML workloads), general hardware access denied.
func StrictSecurity() SecurityConfig {
	return SecurityConfig{
		ProtectUserHome:           true,
		ProtectCredentials:        true,
		ProtectCloudConfig:        true,
		ProtectBrowserData:        true,
		ProtectKeychain:           true,
		ProtectShellHistory:       true,
		ProtectPackageCredentials: true,
		AllowGPU:                  true,
		AllowNPU:                  true,
		AllowHardware:             false,
	}
}

// PermissiveSecurity disables every protection and grants every hardware
// toggle. Intended for trusted, already-contained workloads (e.g. CI)
// where the filesystem/network policy is doing the real enforcement.
func PermissiveSecurity() SecurityConfig {
	return SecurityConfig{
		AllowGPU:      true,
		AllowNPU:      true,
		AllowHardware: true,
	}
}

// AllowsHardware reports whether general (non-GPU/NPU) hardware device
// access is granted. Satisfies sandbox.SecurityConfigLike.
func (s SecurityConfig) AllowsHardware() bool {
	return s.AllowHardware
}

// sbplDenyRule is one (category, regex) pair rendered as an SBPL deny rule
// when its category's protection toggle is enabled.
type sbplDenyRule struct {
	enabled bool
	regex   string
}

// SBPLDenyRules returns the SBPL file-read deny regexes that should be
// emitted for the categories currently enabled in s, mirroring the original
// SecurityConfig::sbpl_deny_rules exactly.
func (s SecurityConfig) SBPLDenyRules() []string {
	candidates := []sbplDenyRule{
		{s.ProtectCredentials, `.*/\.ssh(/.*)?$`},
		{s.ProtectCredentials, `.*/\.gnupg(/.*)?$`},
		{s.ProtectCloudConfig, `.*/\.aws(/.*)?$`},
		{s.ProtectCloudConfig, `.*/\.kube(/.*)?$`},
		{s.ProtectCloudConfig, `.*/\.docker(/.*)?$`},
		{s.ProtectBrowserData, `.*/Library/Application Support/Google/Chrome(/.*)?$`},
		{s.ProtectBrowserData, `.*/Library/Application Support/Firefox(/.*)?$`},
		{s.ProtectBrowserData, `.*/Library/Safari(/.*)?$`},
		{s.ProtectBrowserData, `.*/Library/Cookies(/.*)?$`},
		{s.ProtectKeychain, `.*/Library/Keychains(/.*)?$`},
		{s.ProtectShellHistory, `.*/\.(bash|zsh|fish)_history$`},
		{s.ProtectPackageCredentials, `.*/\.netrc$`},
		{s.ProtectPackageCredentials, `.*/\.npmrc$`},
		{s.ProtectPackageCredentials, `.*/\.pypirc$`},
		{s.ProtectUserHome, `/Users(/.*)?$`},
	}

	var rules []string
	for _, c := range candidates {
		if c.enabled {
			rules = append(rules, c.regex)
		}
	}
	return rules
}
