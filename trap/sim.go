package trap

// SimContext is a pure-Go reference model of the m_to_s/s_to_m trampolines
// that tramp_riscv.S implements for real. Tests use it to check the
// round-trip law the assembly must satisfy without needing a RISC-V target
// to run on.
//
// Real hardware has exactly one physical register file: x1 and x3..x31 are
// shared between M-mode and S-mode, time-multiplexed by the trampoline
// pair. SimContext models that sharing with a single regs array rather than
// two independent ones, so a trampoline that forgets to save M's registers
// before loading S's into the same slots is a bug this model can actually
// expose: mSave stands in for the 32-word frame m_to_s pushes onto the
// M-mode stack (distinct from ctx) to hold those values while S runs, and
// s_to_m must pop it back before returning.
type SimContext struct {
	regs  [32]uint64
	mSave [32]uint64

	MStatus uint64
	MEPC    uint64

	inS bool
}

// SetM sets register n (1..31, n != 2) as seen from M-mode, before a call
// to MToS. Mirrors loading a value into x1/x3../x31 on the M side.
func (c *SimContext) SetM(n int, v uint64) { c.regs[n] = v }

// M reads register n as seen from whichever mode last ran. Valid to call
// from M-mode (before MToS or after SToM); reading mid-S-mode would observe
// S's values since they share the same slots, matching real hardware.
func (c *SimContext) M(n int) uint64 { return c.regs[n] }

// SetMSP/MSP give x2 (the stack pointer) direct access since it is handled
// separately from the shared x1/x3..x31 bank: the trampoline tracks it via
// ctx word 0, not the M-frame save area.
func (c *SimContext) SetMSP(v uint64) { c.regs[2] = v }
func (c *SimContext) MSP() uint64     { return c.regs[2] }

// SetS/S give the test direct access to what "S-mode code" left in a
// register, for mutating simulated S-mode state between MToS and SToM.
func (c *SimContext) SetS(n int, v uint64) { c.regs[n] = v }
func (c *SimContext) S(n int) uint64       { return c.regs[n] }

// MToS simulates entering S-mode: it saves M's live x1/x3..x31 into the
// simulated M-stack frame, loads ctx's saved S registers and mstatus/mepc
// into the shared register file, switches the simulated privilege mode to
// S, and returns the PC execution resumes at (ctx.MEPC). It also spills the
// M-mode stack pointer that was live at the call site into ctx's word 0
// slot; the real trampoline stores it there after pushing its 32-word frame,
// and s_to_m undoes that offset on the way back.
func (c *SimContext) MToS(ctx *Context) uint64 {
	ctx.SetMSP(c.regs[2])
	for i := 1; i < 32; i++ {
		if i == 2 {
			continue
		}
		c.mSave[i] = c.regs[i]
	}
	for i := 1; i < 32; i++ {
		if i == 2 {
			continue
		}
		c.regs[i] = ctx.X(i)
	}
	c.regs[2] = ctx.SSP()
	c.MStatus = ctx.MStatus()
	c.MEPC = ctx.MEPC()
	c.inS = true
	return c.MEPC
}

// SToM simulates the reverse transition: it spills the current (S-mode)
// register file back into ctx, restores the M-mode stack pointer from
// ctx's word 0, pops the M-frame saved by the matching MToS back into the
// shared register file, and switches the simulated privilege mode to M.
func (c *SimContext) SToM(ctx *Context) {
	for i := 1; i < 32; i++ {
		if i == 2 {
			continue
		}
		ctx.SetX(i, c.regs[i])
	}
	ctx.SetSSP(c.regs[2])
	ctx.SetMStatus(c.MStatus)
	ctx.SetMEPC(c.MEPC)
	c.regs[2] = ctx.MSP()
	for i := 1; i < 32; i++ {
		if i == 2 {
			continue
		}
		c.regs[i] = c.mSave[i]
	}
	c.inS = false
}

// InS reports which simulated privilege level last ran.
func (c *SimContext) InS() bool { return c.inS }
