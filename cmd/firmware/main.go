//go:build tinygo.riscv && virt && qemu

// Command firmware is the M-mode entry point QEMU's `-bios` loader jumps
// to: it captures the reset-time (hart id, FDT address) pair _entry stashed
// for it, elects a boot hart, runs board discovery once, and then drives
// every hart's trap loop until the supervisor payload stops it.
package main

import (
	"device/riscv"
	"unsafe"

	"github.com/felixonmars/rustsbi-qemu/board"
	"github.com/felixonmars/rustsbi-qemu/clint"
	"github.com/felixonmars/rustsbi-qemu/firmware"
	"github.com/felixonmars/rustsbi-qemu/hsm"
	"github.com/felixonmars/rustsbi-qemu/internal/onceflag"
)

const maxHarts = 8

// payloadAddr is where the supervisor payload is loaded.
const payloadAddr = 0x80200000

//go:extern bootArgs
var bootArgs [maxHarts * 2]uint64

var bootReady onceflag.Flag
var manager *hsm.Manager
var clintDriver clint.Driver

//export main
func main() {
	hartID := uint32(riscv.MHARTID.Get())
	fdtAddr := uintptr(bootArgs[hartID*2+1])

	bootReady.Do(func() {
		board.Init(fdtAddr, readBlob)
		info := board.Get()
		clintDriver = clint.New(uintptr(info.CLINT.Start))
		manager = hsm.New(clintDriver, info.SMP, hartID, payloadAddr, fdtAddr)
	})
	bootReady.Wait()

	for {
		rec, ok := manager.ObserveWake(hartID)
		if !ok {
			riscv.Asm("wfi")
			continue
		}
		sup := firmware.Supervisor{StartAddr: rec.Addr, Opaque: rec.Opaque}
		firmware.Run(hartID, sup, clintDriver, manager)
		manager.HartStop(hartID)
	}
}

// readBlob gives board.Init a window onto physical memory at addr; on this
// target physical and virtual addresses coincide (M-mode runs with no
// translation), so this is just an unsafe reinterpretation of the pointer.
func readBlob(addr uintptr) []byte {
	const maxFDTSize = 1 << 20
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), maxFDTSize)
}
