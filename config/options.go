// Package config holds the build/run options xtask accepts, either from the
// command line or from a YAML profile file (see LoadProfile). The shape and the
// Verify-after-parse pattern mirror compileopts.Options from the TinyGo
// compiler driver this firmware's toolchain is built on.
package config

import (
	"fmt"
	"strings"
)

var (
	validOptOptions    = []string{"debug", "release"}
	validMonitorOptions = []string{"none", "uart", "raw"}
)

// Options is xtask's resolved configuration for one invocation: which
// payload to build and pack, how to launch QEMU, and whether to attach a
// monitor afterwards.
type Options struct {
	Opt            string   // -opt flag: debug or release
	SMP            int      // -smp flag, hart count passed to qemu-system-riscv64
	Target         string   // target triple/tinygo target json, e.g. "riscv64-qemu-virt"
	KernelELF      string   // path to the payload ELF the firmware boots
	OutputBin      string   // raw binary path xtask produces via the image package
	OutputHex      string   // optional Intel HEX sidecar path, empty to skip
	Monitor        string   // -monitor flag: none, uart, raw
	BaudRate       int      // serial baud rate when Monitor != "none"
	GDB            bool     // profile "gdb" key; not read by xtask (its debug subcommand adds -S -gdb tcp::1234)
	ExtraQEMUArgs  []string // parsed from a single string via google/shlex
	QEMUArgsRaw    string   // raw -qemu-args value, tokenized into ExtraQEMUArgs by ParseQEMUArgs
}

// Verify validates o, raising an error if any field holds a value outside
// its accepted set. Mirrors compileopts.Options.Verify's per-field checks.
func (o *Options) Verify() error {
	if o.Opt != "" && !isInArray(validOptOptions, o.Opt) {
		return fmt.Errorf("invalid -opt=%s: valid values are %s", o.Opt, strings.Join(validOptOptions, ", "))
	}
	if o.Monitor != "" && !isInArray(validMonitorOptions, o.Monitor) {
		return fmt.Errorf("invalid -monitor=%s: valid values are %s", o.Monitor, strings.Join(validMonitorOptions, ", "))
	}
	if o.SMP <= 0 {
		return fmt.Errorf("invalid -smp=%d: must be positive", o.SMP)
	}
	if o.KernelELF == "" {
		return fmt.Errorf("missing kernel ELF path")
	}
	return nil
}

func isInArray(arr []string, item string) bool {
	for _, i := range arr {
		if i == item {
			return true
		}
	}
	return false
}
