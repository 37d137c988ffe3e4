// Package image turns a compiled ELF into the artifacts xtask hands to
// QEMU: a raw binary (what -device loader,file=...,addr=... loads directly
// into guest memory, equivalent to the original xtask's
// `rust-objcopy --binary-architecture=riscv64 --strip-all -O binary`), an
// optional Intel HEX sidecar for flashing tools that want one, a small
// checksummed header so a loader can detect a truncated transfer, and an ar
// archive bundling the firmware and payload binaries together for
// distribution.
package image

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/blakesmith/ar"
	"github.com/marcinbor85/gohex"
	"github.com/sigurn/crc16"
)

// ExtractRaw reads the ELF at elfPath and writes its loadable segments,
// concatenated in address order with zero-fill for any gaps, to a raw
// binary at outPath -- the -O binary equivalent of objcopy.
func ExtractRaw(elfPath, outPath string) error {
	raw, _, err := rawBytes(elfPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, raw, 0o644)
}

func rawBytes(elfPath string) ([]byte, uint64, error) {
	f, err := elf.Open(elfPath)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var segs []*elf.Prog
	var base, end uint64
	first := true
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}
		segs = append(segs, p)
		if first || p.Vaddr < base {
			base = p.Vaddr
		}
		if p.Vaddr+p.Memsz > end {
			end = p.Vaddr + p.Memsz
		}
		first = false
	}
	if len(segs) == 0 {
		return nil, 0, fmt.Errorf("image: %s has no loadable segments", elfPath)
	}

	out := make([]byte, end-base)
	for _, p := range segs {
		data := make([]byte, p.Filesz)
		if _, err := p.ReadAt(data, 0); err != nil {
			return nil, 0, fmt.Errorf("image: reading segment at %#x: %w", p.Vaddr, err)
		}
		copy(out[p.Vaddr-base:], data)
	}
	return out, base, nil
}

// ExtractHex writes the same loadable-segment contents as ExtractRaw, as
// an Intel HEX file at outPath instead of a flat binary.
func ExtractHex(elfPath, outPath string) error {
	raw, base, err := rawBytes(elfPath)
	if err != nil {
		return err
	}
	mem := gohex.NewMemory()
	if err := mem.AddBinary(uint32(base), raw); err != nil {
		return fmt.Errorf("image: building hex record: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return mem.DumpIntelHex(f, 16)
}

// header is a small, fixed-size preamble WriteChecksummed prepends to the
// raw image: a magic, the payload length, and a CRC-16/CCITT-FALSE of the
// payload, so a downstream loader (or a bootrom stricter than QEMU's
// `-device loader`) can detect a truncated or corrupted transfer before
// jumping into it.
type header struct {
	Magic  uint32
	Length uint32
	CRC16  uint16
}

const headerMagic = 0x53424921 // "SBI!"

// WriteChecksummed writes payload to outPath prefixed with a header
// carrying its length and CRC-16/CCITT-FALSE checksum.
func WriteChecksummed(payload []byte, outPath string) error {
	table := crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
	sum := crc16.Checksum(payload, table)

	var buf bytes.Buffer
	writeU32(&buf, headerMagic)
	writeU32(&buf, uint32(len(payload)))
	writeU16(&buf, sum)
	buf.Write(payload)

	return os.WriteFile(outPath, buf.Bytes(), 0o644)
}

func writeU32(w io.Writer, v uint32) {
	w.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func writeU16(w io.Writer, v uint16) {
	w.Write([]byte{byte(v), byte(v >> 8)})
}

// Bundle writes an ar archive at outPath containing each (name, path) entry
// in order, for distributing the firmware binary and its matching test
// payload as a single artifact.
func Bundle(outPath string, entries map[string]string, order []string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := ar.NewWriter(out)
	if err := w.WriteGlobalHeader(); err != nil {
		return fmt.Errorf("image: ar global header: %w", err)
	}
	for _, name := range order {
		path, ok := entries[name]
		if !ok {
			return fmt.Errorf("image: bundle entry %q has no path", name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := w.WriteHeader(&ar.Header{Name: name, Size: int64(len(data)), Mode: 0o644}); err != nil {
			return fmt.Errorf("image: ar header for %q: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("image: ar body for %q: %w", name, err)
		}
	}
	return nil
}
