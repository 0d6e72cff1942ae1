//go:build linux

package sandbox

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DangerousSyscalls lists syscalls that are blocked unconditionally,
// regardless of network mode or hardware toggles. The entries up to "acct"
// mirror the original sandbox's seccomp filter, including categories the
// earlier bwrap-era filter here omitted: the UID/GID privilege-escalation
// family, namespace-escape syscalls, and clock/quota manipulation.
var DangerousSyscalls = []string{
	"ptrace",
	"process_vm_readv",
	"process_vm_writev",
	"init_module",
	"finit_module",
	"delete_module",
	"personality",
	"mount",
	"umount2",
	"pivot_root",
	"unshare",
	"setns",
	"reboot",
	"kexec_load",
	"kexec_file_load",
	"setuid",
	"setgid",
	"setreuid",
	"setregid",
	"setresuid",
	"setresgid",
	"setgroups",
	"add_key",
	"request_key",
	"keyctl",
	"bpf",
	"userfaultfd",
	"perf_event_open",
	"settimeofday",
	"clock_settime",
	"adjtimex",
	"swapon",
	"swapoff",
	"quotactl",
	"acct",
	// Kept beyond the original list: harmless additional hardening with no
	// legitimate use inside a sandboxed child.
	"syslog",
	"sethostname",
	"setdomainname",
	"ioperm",
	"iopl",
}

// HardwareGatedSyscalls lists syscalls blocked only when hardware access is
// not granted. io_uring can be used to bypass several other syscall
// restrictions (it performs file and socket I/O through a submission queue
// rather than direct syscalls), so it is blocked unless the caller has
// opted into broader hardware/IO access.
var HardwareGatedSyscalls = []string{
	"io_uring_setup",
	"io_uring_enter",
	"io_uring_register",
}

// seccompDataOffsets mirrors struct seccomp_data on 64-bit little-endian
// architectures (x86_64, aarch64): nr at 0, arch at 4, args[0..5] at 16,
// 8 bytes apart. We compare only the low 32 bits of each arg, which is
// sufficient for the int-sized domain/type/flags values socket() takes.
const (
	seccompOffNR   = 0
	seccompOffArg0 = 16
	seccompOffArg1 = 24
)

// ApplySeccompProgram installs prog as the calling process's seccomp filter
// via prctl(PR_SET_SECCOMP). Like Landlock's restrict_self, this is
// irreversible for the calling process, so it is only ever called from the
// pre-exec helper after Landlock has already been applied, immediately
// before syscall.Exec hands control to the real target.
func ApplySeccompProgram(prog []unix.SockFilter) error {
	if len(prog) == 0 {
		return fmt.Errorf("seccomp: empty program")
	}

	sockProg := unix.SockFprog{
		Len:    uint16(len(prog)), //nolint:gosec // program length bounded by small rule count
		Filter: &prog[0],
	}

	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("seccomp: set no_new_privs: %w", err)
	}

	_, _, errno := unix.Syscall(
		unix.SYS_PRCTL,
		unix.PR_SET_SECCOMP,
		unix.SECCOMP_MODE_FILTER,
		uintptr(unsafe.Pointer(&sockProg)), //nolint:gosec // required for syscall
	)
	if errno != 0 {
		return fmt.Errorf("seccomp: prctl(PR_SET_SECCOMP): %w", errno)
	}

	return nil
}

// BuildSeccompProgram compiles a classic BPF program enforcing the
// dangerous-syscall and socket-family restrictions described by security
// and networkDenyAll. The returned program is installed via prctl in the
// pre-exec helper (see linux.go), never written to a file for an external
// sandboxing binary to consume.
func BuildSeccompProgram(security SecurityConfigLike, networkDenyAll bool) ([]unix.SockFilter, error) {
	arch, err := detectSeccompArch()
	if err != nil {
		return nil, err
	}

	var rules [][]seccompCond

	socketNR, ok := arch.syscallNumbers["socket"]
	if !ok {
		return nil, fmt.Errorf("seccomp: socket syscall number unknown for this architecture")
	}

	// Reject AF_PACKET sockets of any type outright.
	rules = append(rules, []seccompCond{
		{seccompOffNR, uint32(socketNR)},
		{seccompOffArg0, uint32(unix.AF_PACKET)},
	})

	// Block UDP and RAW for AF_INET/AF_INET6 in all four NONBLOCK/CLOEXEC
	// flag combinations; block TCP the same way only under DenyAll, since
	// otherwise the child must be able to open a TCP socket to the proxy.
	families := []uint32{unix.AF_INET, unix.AF_INET6}
	blockedTypes := []uint32{unix.SOCK_DGRAM, unix.SOCK_RAW}
	if networkDenyAll {
		blockedTypes = append(blockedTypes, unix.SOCK_STREAM)
	}
	flagVariants := []uint32{0, unix.SOCK_NONBLOCK, unix.SOCK_CLOEXEC, unix.SOCK_NONBLOCK | unix.SOCK_CLOEXEC}

	for _, family := range families {
		for _, base := range blockedTypes {
			for _, flags := range flagVariants {
				rules = append(rules, []seccompCond{
					{seccompOffNR, uint32(socketNR)},
					{seccompOffArg0, family},
					{seccompOffArg1, base | flags},
				})
			}
		}
	}

	for _, name := range DangerousSyscalls {
		nr, ok := arch.syscallNumbers[name]
		if !ok {
			continue
		}
		rules = append(rules, []seccompCond{{seccompOffNR, uint32(nr)}})
	}

	if !security.AllowsHardware() {
		for _, name := range HardwareGatedSyscalls {
			nr, ok := arch.syscallNumbers[name]
			if !ok {
				continue
			}
			rules = append(rules, []seccompCond{{seccompOffNR, uint32(nr)}})
		}
	}

	return compileSeccompRules(rules), nil
}

// SecurityConfigLike is the minimal view BuildSeccompProgram needs of a
// SecurityConfig, expressed as an interface so this file does not import
// the config package; SecurityConfigLikeFromConfig in linux.go adapts a
// config.Config to it.
type SecurityConfigLike interface {
	AllowsHardware() bool
}

type seccompCond struct {
	offset uint32
	value  uint32
}

const (
	bpfRetBlock = uint32(0x00050000) | (uint32(unix.EPERM) & 0xFFFF) // SECCOMP_RET_ERRNO | EPERM
	bpfRetAllow = uint32(0x7fff0000)                                 // SECCOMP_RET_ALLOW
)

// compileSeccompRules assembles independent AND-condition rules into a flat
// BPF program: each rule either falls through to the next rule (any
// condition fails) or returns bpfRetBlock (all conditions match). The final
// instruction, reached only if no rule matched, returns bpfRetAllow.
func compileSeccompRules(rules [][]seccompCond) []unix.SockFilter {
	var prog []unix.SockFilter

	for _, conds := range rules {
		for i, c := range conds {
			remaining := uint8(2*(len(conds)-1-i) + 1) //nolint:gosec // rule bodies are always short
			prog = append(prog, unix.SockFilter{
				Code: unix.BPF_LD | unix.BPF_W | unix.BPF_ABS,
				K:    c.offset,
			})
			prog = append(prog, unix.SockFilter{
				Code: unix.BPF_JMP | unix.BPF_JEQ | unix.BPF_K,
				Jt:   0,
				Jf:   remaining,
				K:    c.value,
			})
		}
		prog = append(prog, unix.SockFilter{
			Code: unix.BPF_RET | unix.BPF_K,
			K:    bpfRetBlock,
		})
	}

	prog = append(prog, unix.SockFilter{
		Code: unix.BPF_RET | unix.BPF_K,
		K:    bpfRetAllow,
	})

	return prog
}

type seccompArch struct {
	name           string
	syscallNumbers map[string]int
}

// detectSeccompArch identifies the running architecture and returns its
// syscall number table. Only x86_64 and aarch64 are supported, matching the
// original implementation's scope.
func detectSeccompArch() (*seccompArch, error) {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		return nil, fmt.Errorf("seccomp: uname failed: %w", err)
	}
	machine := string(utsname.Machine[:])
	for i, c := range machine {
		if c == 0 {
			machine = machine[:i]
			break
		}
	}

	switch machine {
	case "aarch64", "arm64":
		return &seccompArch{name: "aarch64", syscallNumbers: aarch64Syscalls}, nil
	case "x86_64", "amd64":
		return &seccompArch{name: "x86_64", syscallNumbers: x86_64Syscalls}, nil
	default:
		return nil, fmt.Errorf("seccomp: unsupported architecture %q", machine)
	}
}

var x86_64Syscalls = map[string]int{
	"socket":             41,
	"ptrace":             101,
	"process_vm_readv":   310,
	"process_vm_writev":  311,
	"keyctl":             250,
	"add_key":            248,
	"request_key":        249,
	"personality":        135,
	"userfaultfd":        323,
	"perf_event_open":    298,
	"bpf":                321,
	"kexec_load":         246,
	"kexec_file_load":    320,
	"reboot":             169,
	"syslog":             103,
	"acct":               163,
	"mount":              165,
	"umount2":            166,
	"pivot_root":         155,
	"swapon":             167,
	"swapoff":            168,
	"sethostname":        170,
	"setdomainname":      171,
	"init_module":        175,
	"finit_module":       313,
	"delete_module":      176,
	"ioperm":             173,
	"iopl":               172,
	"unshare":            272,
	"setns":              308,
	"setuid":             105,
	"setgid":             106,
	"setreuid":           113,
	"setregid":           114,
	"setresuid":          117,
	"setresgid":          119,
	"setgroups":          116,
	"settimeofday":       164,
	"clock_settime":      227,
	"adjtimex":           159,
	"quotactl":           179,
	"io_uring_setup":     425,
	"io_uring_enter":     426,
	"io_uring_register":  427,
}

var aarch64Syscalls = map[string]int{
	"socket":             198,
	"ptrace":             117,
	"process_vm_readv":   270,
	"process_vm_writev":  271,
	"keyctl":             219,
	"add_key":            217,
	"request_key":        218,
	"personality":        92,
	"userfaultfd":        282,
	"perf_event_open":    241,
	"bpf":                280,
	"kexec_load":         104,
	"kexec_file_load":    294,
	"reboot":             142,
	"acct":               89,
	"mount":              40,
	"umount2":            39,
	"pivot_root":         41,
	"swapon":             224,
	"swapoff":            225,
	"sethostname":        161,
	"setdomainname":      162,
	"init_module":        105,
	"finit_module":       273,
	"delete_module":      106,
	"unshare":            97,
	"setns":              268,
	"setuid":             146,
	"setgid":             144,
	"setreuid":           145,
	"setregid":           143,
	"setresuid":          147,
	"setresgid":          149,
	"setgroups":          159,
	"settimeofday":       170,
	"clock_settime":      112,
	"adjtimex":           171,
	"quotactl":           60,
	"io_uring_setup":     425,
	"io_uring_enter":     426,
	"io_uring_register":  427,
	// ioperm, iopl, syslog have no aarch64 equivalents (x86-only I/O port
	// instructions / legacy kernel log syscall); omitted rather than faked.
}
