// Package board discovers the QEMU "virt" platform from the flattened
// device tree the bootloader hands the firmware, and publishes an immutable
// record of it exactly once.
package board

import (
	"fmt"

	"github.com/felixonmars/rustsbi-qemu/internal/fdt"
	"github.com/felixonmars/rustsbi-qemu/internal/onceflag"
)

// AddrRange is a half-open physical address range [Start, End).
type AddrRange struct {
	Start uint64
	End   uint64
}

// Size returns End-Start.
func (r AddrRange) Size() uint64 { return r.End - r.Start }

// Empty reports whether the range contains no addresses.
func (r AddrRange) Empty() bool { return r.End <= r.Start }

// Overlaps reports whether r and o share any address.
func (r AddrRange) Overlaps(o AddrRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// Info is the immutable, process-wide record produced by Init. Every field
// is set once and never mutated afterward.
type Info struct {
	Model  []string
	SMP    int
	Memory AddrRange
	UART   AddrRange
	CLINT  AddrRange
	Test   AddrRange
}

// validate enforces the board-info invariant: every range is
// non-empty, non-overlapping with the others, and lies within Memory's
// address space advertised by the tree (the MMIO ranges are peripherals,
// not backed by the memory node itself, so we only check non-overlap and
// non-emptiness here; physical-address-space containment is checked by the
// FDT's own #address-cells width, implicitly enforced by fdt.RegPair).
func (info Info) validate() error {
	if info.SMP < 1 {
		return fmt.Errorf("board: smp count must be positive, got %d", info.SMP)
	}
	ranges := []struct {
		name string
		r    AddrRange
	}{
		{"memory", info.Memory},
		{"uart", info.UART},
		{"clint", info.CLINT},
		{"test", info.Test},
	}
	for _, entry := range ranges {
		if entry.r.Empty() {
			return fmt.Errorf("board: %s range is empty", entry.name)
		}
	}
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].r.Overlaps(ranges[j].r) {
				return fmt.Errorf("board: %s and %s ranges overlap", ranges[i].name, ranges[j].name)
			}
		}
	}
	return nil
}

var (
	once    onceflag.Flag
	current *Info
	initErr error
)

// Init parses the FDT at the given physical address (the opaque argument
// handed to the firmware at reset) and publishes the resulting Info. It
// must be called exactly once, by the boot hart, before any other hart
// calls Get. Parse or validation failure is a configuration error: it is
// fatal, because the firmware cannot proceed without knowing where the
// CLINT is.
func Init(fdtAddr uintptr, readBlob func(addr uintptr) []byte) {
	once.Do(func() {
		info, err := discover(fdtAddr, readBlob)
		if err != nil {
			initErr = err
			return
		}
		current = info
	})
	if initErr != nil {
		fatal(initErr)
	}
}

// Get returns the published board record. It must only be called after
// Init has completed on the boot hart (the entry protocol in §6 guarantees
// this for every other hart); calling Get before that is a boot-order bug,
// not a recoverable condition, so it is reported fatally rather than
// silently blocking forever.
func Get() *Info {
	if !once.Ready() {
		fatal(fmt.Errorf("board: Get called before Init completed"))
	}
	return current
}

func discover(fdtAddr uintptr, readBlob func(addr uintptr) []byte) (*Info, error) {
	blob := readBlob(fdtAddr)
	tree, err := fdt.Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("board: parsing FDT: %w", err)
	}
	root, err := tree.Root()
	if err != nil {
		return nil, fmt.Errorf("board: walking FDT root: %w", err)
	}

	info := &Info{}

	if v, ok := root.Prop("model"); ok {
		info.Model = v.AsStringList()
	}

	cpus, ok := root.Child("cpus")
	if !ok {
		return nil, fmt.Errorf("board: %w: cpus", fdt.ErrMissingNode)
	}
	smp := 0
	for _, c := range cpus.Children() {
		if hasUnitAddress(c.Name, "cpu") {
			smp++
		}
	}
	if smp == 0 {
		return nil, fmt.Errorf("board: no cpu nodes found under /cpus")
	}
	info.SMP = smp

	memNode, ok := findMemoryNode(root)
	if !ok {
		return nil, fmt.Errorf("board: %w: memory", fdt.ErrMissingNode)
	}
	info.Memory = regToRange(memNode)

	soc, ok := root.Child("soc")
	if !ok {
		return nil, fmt.Errorf("board: %w: soc", fdt.ErrMissingNode)
	}

	uart, ok := soc.ChildByCompatible("ns16550a")
	if !ok {
		return nil, fmt.Errorf("board: %w: soc/uart (ns16550a)", fdt.ErrMissingNode)
	}
	info.UART = regToRange(uart)

	clint, ok := soc.ChildByCompatible("riscv,clint0")
	if !ok {
		return nil, fmt.Errorf("board: %w: soc/clint (riscv,clint0)", fdt.ErrMissingNode)
	}
	info.CLINT = regToRange(clint)

	testDev, ok := findTestFinisher(soc)
	if !ok {
		return nil, fmt.Errorf("board: %w: soc/test (sifive test finisher)", fdt.ErrMissingNode)
	}
	info.Test = regToRange(testDev)

	if err := info.validate(); err != nil {
		return nil, err
	}
	return info, nil
}

// findMemoryNode returns the first child of root named "memory" (with or
// without a unit address) whose device_type is "memory".
func findMemoryNode(root fdt.Node) (fdt.Node, bool) {
	for _, c := range root.Children() {
		if !hasUnitAddress(c.Name, "memory") {
			continue
		}
		if v, ok := c.Prop("device_type"); ok {
			for _, s := range v.AsStringList() {
				if s == "memory" {
					return c, true
				}
			}
		}
	}
	return fdt.Node{}, false
}

// findTestFinisher returns the SiFive test finisher pseudo-device: the
// first child of soc whose compatible string contains "sifive,test" (QEMU
// advertises "sifive,test0" and "sifive,test1" across versions), falling
// back to the first child simply named "test" if no compatible string
// matches, mirroring the original's "next()"-without-filter lookup.
func findTestFinisher(soc fdt.Node) (fdt.Node, bool) {
	for _, c := range soc.Children() {
		if v, ok := c.Prop("compatible"); ok {
			for _, s := range v.AsStringList() {
				if s == "sifive,test0" || s == "sifive,test1" {
					return c, true
				}
			}
		}
	}
	return soc.Child("test")
}

func regToRange(n fdt.Node) AddrRange {
	v, ok := n.Prop("reg")
	if !ok {
		return AddrRange{}
	}
	pair := v.AsReg()
	return AddrRange{Start: pair.Addr, End: pair.Addr + pair.Size}
}

func hasUnitAddress(name, wanted string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] == '@' {
			return name[:i] == wanted
		}
	}
	return name == wanted
}
