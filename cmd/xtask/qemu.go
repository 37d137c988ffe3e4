package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/felixonmars/rustsbi-qemu/internal/fwlog"
	"github.com/felixonmars/rustsbi-qemu/internal/monitor"
)

// runQEMU builds the firmware and converts the payload ELF (if it exists)
// to a raw binary, then launches
// qemu-system-riscv64 with them loaded at their fixed addresses, exactly
// as xtask_qemu_run's `-device loader,file=...,addr=...` pair does. debug
// additionally passes `-S -gdb tcp::1234`, as xtask_qemu_debug does.
func runQEMU(log *fwlog.Logger, args []string, debug bool) error {
	name := "qemu"
	if debug {
		name = "debug"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	opts, err := parseOptions(fs, args)
	if err != nil {
		return err
	}
	if err := build(log, opts); err != nil {
		return err
	}

	payloadELF := opts.KernelELF
	payloadBin := payloadELF[:len(payloadELF)-len(filepath.Ext(payloadELF))] + ".bin"

	qemuArgs := []string{
		"-machine", "virt",
		"-bios", "none",
		"-nographic",
		"-smp", fmt.Sprintf("%d", opts.SMP),
		"-device", fmt.Sprintf("loader,file=%s,addr=0x80000000", opts.OutputBin),
		"-device", fmt.Sprintf("loader,file=%s,addr=0x80200000", payloadBin),
	}
	if debug {
		qemuArgs = append(qemuArgs, "-gdb", "tcp::1234", "-S")
	}
	qemuArgs = append(qemuArgs, opts.ExtraQEMUArgs...)

	log.Command("qemu-system-riscv64", qemuArgs...)
	cmd := exec.Command("qemu-system-riscv64", qemuArgs...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("qemu-system-riscv64: %w", err)
	}

	if opts.Monitor == "none" {
		return nil
	}
	return monitor.Attach(monitor.Options{BaudRate: opts.BaudRate})
}

func runMonitor(log *fwlog.Logger, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	port := fs.String("port", "", "serial device path; empty attaches to this process's stdio")
	baud := fs.Int("baud", 115200, "baud rate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	log.Infof("attaching monitor (port=%q baud=%d)", *port, *baud)
	return monitor.Attach(monitor.Options{Port: *port, BaudRate: *baud})
}
