// Command xtask is the host-side build/run driver for the firmware,
// mirroring rustsbi-qemu's own xtask binary: a handful of subcommands
// (make, qemu, debug, size, monitor) that shell out to the TinyGo
// toolchain and to qemu-system-riscv64, instead of a Makefile.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/felixonmars/rustsbi-qemu/config"
	"github.com/felixonmars/rustsbi-qemu/internal/fwlog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	log := fwlog.NewStderr(fwlog.LevelInfo)
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "make":
		err = runMake(log, args)
	case "qemu":
		err = runQEMU(log, args, false)
	case "debug":
		err = runQEMU(log, args, true)
	case "size":
		err = runSize(log, args)
	case "monitor":
		err = runMonitor(log, args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: xtask <make|qemu|debug|size|monitor> [flags]")
}

// parseOptions builds the flag set every build-related subcommand shares:
// -opt, -smp, -target, -kernel, -out, -hex, -profile.
func parseOptions(fs *flag.FlagSet, args []string) (config.Options, error) {
	var opts config.Options
	var profile string
	fs.StringVar(&profile, "profile", "", "load defaults from a YAML profile file")
	fs.StringVar(&opts.Opt, "opt", "debug", "build mode: debug or release")
	fs.IntVar(&opts.SMP, "smp", 1, "number of harts to boot")
	fs.StringVar(&opts.Target, "target", "riscv64-qemu-virt", "tinygo target")
	fs.StringVar(&opts.KernelELF, "kernel", "test-kernel.elf", "payload ELF to convert and load")
	fs.StringVar(&opts.OutputBin, "out", "firmware.bin", "raw firmware binary output path")
	fs.StringVar(&opts.OutputHex, "hex", "", "optional Intel HEX sidecar path")
	fs.StringVar(&opts.Monitor, "monitor", "none", "attach a monitor after qemu exits: none, uart, raw")
	fs.IntVar(&opts.BaudRate, "baud", 115200, "monitor baud rate")
	fs.StringVar(&opts.QEMUArgsRaw, "qemu-args", "", "extra qemu-system-riscv64 arguments, shell-quoted")
	if err := fs.Parse(args); err != nil {
		return config.Options{}, err
	}

	if profile != "" {
		loaded, err := config.LoadProfile(profile)
		if err != nil {
			return config.Options{}, fmt.Errorf("loading profile: %w", err)
		}
		opts = mergeProfile(loaded, opts, fs)
	}
	if err := opts.ParseQEMUArgs(); err != nil {
		return config.Options{}, err
	}

	if err := opts.Verify(); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

// mergeProfile lets flags explicitly passed on the command line override
// the profile's defaults; anything left at its flag default is taken from
// the profile instead.
func mergeProfile(profile, flags config.Options, fs *flag.FlagSet) config.Options {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	merged := profile
	if set["opt"] {
		merged.Opt = flags.Opt
	}
	if set["smp"] {
		merged.SMP = flags.SMP
	}
	if set["target"] {
		merged.Target = flags.Target
	}
	if set["kernel"] {
		merged.KernelELF = flags.KernelELF
	}
	if set["out"] {
		merged.OutputBin = flags.OutputBin
	}
	if set["hex"] {
		merged.OutputHex = flags.OutputHex
	}
	if set["monitor"] {
		merged.Monitor = flags.Monitor
	}
	if set["baud"] {
		merged.BaudRate = flags.BaudRate
	}
	if set["qemu-args"] {
		merged.QEMUArgsRaw = flags.QEMUArgsRaw
		merged.ExtraQEMUArgs = nil
	}
	return merged
}
