package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/felixonmars/rustsbi-qemu/config"
	"github.com/felixonmars/rustsbi-qemu/internal/fwlog"
	"github.com/felixonmars/rustsbi-qemu/internal/image"
)

// buildDir is where xtask stages ELF/binary artifacts, analogous to
// rustsbi-qemu's `target/<triple>/<debug|release>` directory.
const buildDir = "build"

// buildLockPath guards concurrent xtask invocations from racing on the
// shared build directory, e.g. a `make` still running when a `qemu` in
// another terminal wants the same firmware.bin.
const buildLockPath = buildDir + "/.xtask.lock"

func runMake(log *fwlog.Logger, args []string) error {
	fs := flag.NewFlagSet("make", flag.ExitOnError)
	opts, err := parseOptions(fs, args)
	if err != nil {
		return err
	}
	return build(log, opts)
}

func build(log *fwlog.Logger, opts config.Options) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return err
	}
	lock := flock.New(buildLockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking build dir: %w", err)
	}
	defer lock.Unlock()

	firmwareELF := filepath.Join(buildDir, "firmware.elf")
	if err := tinygoBuild(log, opts, "./cmd/firmware", firmwareELF); err != nil {
		return err
	}
	if err := image.ExtractRaw(firmwareELF, opts.OutputBin); err != nil {
		return fmt.Errorf("extracting firmware binary: %w", err)
	}
	if opts.OutputHex != "" {
		if err := image.ExtractHex(firmwareELF, opts.OutputHex); err != nil {
			return fmt.Errorf("extracting firmware hex: %w", err)
		}
	}

	payloadELF := opts.KernelELF
	payloadBin := payloadELF[:len(payloadELF)-len(filepath.Ext(payloadELF))] + ".bin"
	if _, err := os.Stat(payloadELF); err == nil {
		if err := image.ExtractRaw(payloadELF, payloadBin); err != nil {
			return fmt.Errorf("extracting payload binary: %w", err)
		}
	}
	log.Infof("build complete: %s", opts.OutputBin)
	return nil
}

// tinygoBuild shells out to `tinygo build`, mirroring xtask_build_sbi's use
// of `cargo build --target <triple>`.
func tinygoBuild(log *fwlog.Logger, opts config.Options, pkg, outELF string) error {
	args := []string{"build", "-o", outELF, "-target", opts.Target}
	if opts.Opt == "release" {
		args = append(args, "-opt", "2", "-no-debug")
	} else {
		args = append(args, "-opt", "0")
	}
	args = append(args, pkg)

	log.Command("tinygo", args...)
	cmd := exec.Command("tinygo", args...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}
