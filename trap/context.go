// Package trap implements the M<->S privilege-transition trampolines and
// the per-hart Context they operate on.
//
// Context is the fixed 34-machine-word layout this firmware's trap ABI uses, laid
// out on the M-mode stack frame and handed to the trampolines by pointer:
//
//	word 0      saved M-mode stack pointer
//	words 1..31 S-mode x1 and x3..x31 (x0 is always zero, x2/sp lives at
//	            word 2 instead of being interleaved with the rest)
//	word 32     saved mstatus
//	word 33     saved mepc
//
// This layout is load-bearing: the trampolines in tramp_riscv.S index
// into it by fixed offset and know nothing about the Go type system, so
// Context must never gain or lose a field without updating the assembly in
// lockstep.
package trap

const NumWords = 34

// Context is the per-hart trap frame. The zero value has every register
// zero and mepc/mstatus zero; callers fill in mepc (the S-mode entry
// point) and argument registers before the first MToS call.
type Context struct {
	Words [NumWords]uint64
}

const (
	slotMSP     = 0
	slotSSP     = 2
	slotMStatus = 32
	slotMEPC    = 33
)

// firstArg is the register number of a0 in the RISC-V integer calling
// convention (x10); argument registers a0..a7 are x10..x17.
const firstArg = 10

// MSP returns the saved M-mode stack pointer (word 0).
func (c *Context) MSP() uint64 { return c.Words[slotMSP] }

// SetMSP sets the saved M-mode stack pointer.
func (c *Context) SetMSP(v uint64) { c.Words[slotMSP] = v }

// SSP returns the S-mode stack pointer (x2), stored at word 2.
func (c *Context) SSP() uint64 { return c.Words[slotSSP] }

// SetSSP sets the S-mode stack pointer.
func (c *Context) SetSSP(v uint64) { c.Words[slotSSP] = v }

// MStatus returns the saved mstatus CSR.
func (c *Context) MStatus() uint64 { return c.Words[slotMStatus] }

// SetMStatus sets the saved mstatus CSR.
func (c *Context) SetMStatus(v uint64) { c.Words[slotMStatus] = v }

// MEPC returns the saved mepc CSR (the S-mode resume PC).
func (c *Context) MEPC() uint64 { return c.Words[slotMEPC] }

// SetMEPC sets the saved mepc CSR.
func (c *Context) SetMEPC(v uint64) { c.Words[slotMEPC] = v }

// X returns general register xN (N in {1, 3..31}); x0 is always zero and
// x2 must be read via SSP.
func (c *Context) X(n int) uint64 {
	if n == 0 {
		return 0
	}
	if n == 2 {
		return c.SSP()
	}
	return c.Words[n]
}

// SetX sets general register xN, with the same restrictions as X.
func (c *Context) SetX(n int, v uint64) {
	switch n {
	case 0:
		return
	case 2:
		c.SetSSP(v)
	default:
		c.Words[n] = v
	}
}

// A returns argument register aN (N in 0..7), i.e. xN+10.
func (c *Context) A(n int) uint64 { return c.X(firstArg + n) }

// SetA sets argument register aN.
func (c *Context) SetA(n int, v uint64) { c.SetX(firstArg+n, v) }
