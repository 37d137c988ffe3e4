//go:build !tinygo.riscv

package board

// fatal panics off-target, so that host-side tests can assert on the
// configuration-error path without halting the test binary.
func fatal(err error) {
	panic(err)
}
