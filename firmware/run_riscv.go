//go:build tinygo.riscv && virt && qemu

package firmware

import (
	"device/riscv"

	"github.com/felixonmars/rustsbi-qemu/clint"
	"github.com/felixonmars/rustsbi-qemu/hsm"
	"github.com/felixonmars/rustsbi-qemu/sbi"
	"github.com/felixonmars/rustsbi-qemu/trap"
)

// hwCause reads mcause/handles the timer housekeeping directly against the
// CLINT and CSRs, satisfying firmware.CauseReader.
type hwCause struct {
	hart  uint32
	clint clint.Driver
}

func (h hwCause) ReadCause() uint64 { return uint64(riscv.MCAUSE.Get()) }

func (h hwCause) HandleTimerInterrupt() {
	riscv.MIP.ClearBits(riscv.MIP_MTIP)
	riscv.MIP.SetBits(riscv.MIP_STIP)
	h.clint.SetMTimeCmp(h.hart, ^uint64(0))
}

// Run installs this hart's trap vector, delegates everything but
// illegal-instruction and ecall to S-mode, and runs the trap loop for sup
// until the supervisor stops or non-retentively suspends this hart, per
// the real M-mode trap loop.
func Run(hart uint32, sup Supervisor, c clint.Driver, manager *hsm.Manager) {
	riscv.MSTATUS.SetBits(riscv.MSTATUS_MPP_S)
	riscv.MSTATUS.SetBits(riscv.MSTATUS_MIE)

	var ctx trap.Context
	ctx.SetMEPC(sup.StartAddr)
	ctx.SetA(0, uint64(hart))
	ctx.SetA(1, sup.Opaque)

	c.ClearSoft(hart)

	ctx.SetMStatus(uint64(riscv.MSTATUS.Get()))
	riscv.MIP.Set(0)

	trap.SetDelegation(trap.MidelegMask(),
		func(v uint64) { riscv.MIDELEG.Set(uint32(v)) },
		func() uint64 { return uint64(riscv.MIDELEG.Get()) })
	trap.SetDelegation(trap.MedelegMask(),
		func(v uint64) { riscv.MEDELEG.Set(uint32(v)) },
		func() uint64 { return uint64(riscv.MEDELEG.Get()) })

	riscv.MSTATUS.ClearBits(riscv.MSTATUS_MIE)
	riscv.MTVEC.Set(trap.VectorAddr())
	riscv.MIE.SetBits(riscv.MIE_MEIE | riscv.MIE_MSIE)

	disp := &sbi.Dispatcher{HSM: manager, CLINT: c, Hart: hart}
	cause := hwCause{hart: hart, clint: c}
	Loop(&ctx, hart, trap.MToS, cause, disp)
}
