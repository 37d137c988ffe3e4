package image

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteChecksummedRoundTrips(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "firmware.img")
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}

	if err := WriteChecksummed(payload, out); err != nil {
		t.Fatalf("WriteChecksummed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4+4+2+len(payload) {
		t.Fatalf("len(data) = %d, want header + payload", len(data))
	}
	magic := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	if magic != headerMagic {
		t.Fatalf("magic = %#x", magic)
	}
	length := uint32(data[4]) | uint32(data[5])<<8 | uint32(data[6])<<16 | uint32(data[7])<<24
	if length != uint32(len(payload)) {
		t.Fatalf("length = %d, want %d", length, len(payload))
	}
	if string(data[10:]) != string(payload) {
		t.Fatal("payload bytes not preserved")
	}
}

func TestExtractRawRejectsNonELF(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "not-an-elf")
	if err := os.WriteFile(bogus, []byte("not an elf file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractRaw(bogus, filepath.Join(dir, "out.bin")); err == nil {
		t.Fatal("expected error extracting a non-ELF file")
	}
}

func TestBundleWritesEntriesInOrder(t *testing.T) {
	dir := t.TempDir()
	fw := filepath.Join(dir, "firmware.bin")
	payload := filepath.Join(dir, "test-kernel.bin")
	if err := os.WriteFile(fw, []byte("firmware-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(payload, []byte("payload-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "bundle.a")
	entries := map[string]string{"firmware.bin": fw, "test-kernel.bin": payload}
	order := []string{"firmware.bin", "test-kernel.bin"}
	if err := Bundle(out, entries, order); err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty archive")
	}
}

func TestBundleMissingEntry(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "bundle.a")
	if err := Bundle(out, map[string]string{}, []string{"missing.bin"}); err == nil {
		t.Fatal("expected error for missing bundle entry")
	}
}
