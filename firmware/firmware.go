// Package firmware wires board discovery, the CLINT driver, the hart state
// manager, the M<->S trampolines and the SBI dispatcher into the per-hart
// trap loop that dispatches each exit back into the supervisor or into SBI.
// Run (in run_riscv.go) is the real
// target entry point; Loop here is the pure decision logic it drives,
// kept free of CSR access so it can run against a fake trap source in
// tests.
package firmware

import (
	"github.com/felixonmars/rustsbi-qemu/sbi"
	"github.com/felixonmars/rustsbi-qemu/trap"
)

// Supervisor is the entry point and opaque argument a hart starts or
// resumes at, exactly the pair latched by hsm.StartRecord.
type Supervisor struct {
	StartAddr uint64
	Opaque    uint64
}

// causeInterruptBit is the RISC-V mcause topmost bit (RV64) distinguishing
// interrupts from exceptions.
const causeInterruptBit = 1 << 63

const (
	excSupervisorEnvCall  = 9
	excIllegalInstruction = 2
	intMachineTimer       = 7
)

// EnterS runs S-mode code until the next trap, exactly like trap.MToS:
// ctx's registers/mepc/mstatus are loaded into the hart, and ctx is updated
// in place once the hart traps back to M. Real firmware wires this
// straight to trap.MToS; tests supply a fake that synthesizes a sequence
// of trap causes.
type EnterS func(ctx *trap.Context)

// CauseReader reads the mcause CSR the trap that just returned from EnterS
// recorded, and performs any interrupt-specific CSR housekeeping needed
// before the loop acts on it (clearing MTIP and raising STIP for a timer
// interrupt, in particular).
type CauseReader interface {
	ReadCause() uint64
	HandleTimerInterrupt()
}

// Loop drives ctx through repeated EnterS/decode cycles for one hart, until
// either the supervisor issues an HSM call that should stop the hart (see
// sbi.ExitsTrapLoop) or an unhandled exception is hit. It returns the
// reason it stopped: "" for a clean HSM-driven exit, or a short label
// describing the terminal condition.
func Loop(ctx *trap.Context, hart uint32, enter EnterS, cause CauseReader, disp *sbi.Dispatcher) string {
	for {
		enter(ctx)
		raw := cause.ReadCause()

		if raw&causeInterruptBit != 0 {
			code := raw &^ causeInterruptBit
			if code != intMachineTimer {
				return "unknown interrupt"
			}
			cause.HandleTimerInterrupt()
			continue
		}

		switch raw {
		case excSupervisorEnvCall:
			args := [6]uint64{ctx.A(0), ctx.A(1), ctx.A(2), ctx.A(3), ctx.A(4), ctx.A(5)}
			extID, funcID := ctx.A(7), ctx.A(6)
			errCode, value := disp.Dispatch(extID, funcID, args)
			if sbi.ExitsTrapLoop(extID, funcID, args, errCode) {
				return ""
			}
			ctx.SetA(0, errCode)
			ctx.SetA(1, value)
			ctx.SetMEPC(ctx.MEPC() + 4)
		case excIllegalInstruction:
			return "illegal instruction"
		default:
			return "unhandled exception"
		}
	}
}
