package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/inhies/go-bytesize"

	"github.com/felixonmars/rustsbi-qemu/internal/fwlog"
)

// runSize builds the firmware, then reports the raw binary's size in
// human-readable units -- xtask_size_sbi's `rust-size -A -x` replaced with
// a size this toolchain can compute without shelling out to a
// RISC-V-aware `size` binary.
func runSize(log *fwlog.Logger, args []string) error {
	fs := flag.NewFlagSet("size", flag.ExitOnError)
	opts, err := parseOptions(fs, args)
	if err != nil {
		return err
	}
	if err := build(log, opts); err != nil {
		return err
	}

	info, err := os.Stat(opts.OutputBin)
	if err != nil {
		return err
	}
	size := bytesize.New(float64(info.Size()))
	fmt.Printf("%s: %s\n", opts.OutputBin, size)
	return nil
}
