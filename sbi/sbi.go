// Package sbi implements the SBI v1.0 call dispatcher for the Base, TIME,
// IPI, RFENCE, and HSM extensions. Dispatch is pure: it takes the six
// argument registers plus the extension/function ids straight out of a
// trap.Context and returns the (error, value) pair the trap loop writes
// back into a0/a1, with no knowledge of how it got called.
package sbi

import (
	"github.com/felixonmars/rustsbi-qemu/clint"
	"github.com/felixonmars/rustsbi-qemu/hsm"
)

// Extension ids, assigned by the RISC-V SBI standard.
const (
	EIDBase = 0x10
	EIDTime = 0x54494D45 // "TIME"
	EIDIPI  = 0x735049   // "sPI"
	EIDRFNC = 0x52464E43 // "RFNC"
	EIDHSM  = 0x48534D   // "HSM"
)

// Base extension function ids.
const (
	FIDBaseGetSpecVersion = 0
	FIDBaseGetImplID      = 1
	FIDBaseGetImplVersion = 2
	FIDBaseProbeExtension = 3
	FIDBaseGetMVendorID   = 4
	FIDBaseGetMArchID     = 5
	FIDBaseGetMImpID      = 6
)

// TIME extension function ids.
const FIDTimeSetTimer = 0

// IPI extension function ids.
const FIDIPISendIPI = 0

// RFENCE extension function ids (all are no-ops on a single-address-space
// firmware with no stage-2 translation, but must still return success for
// a conformant supervisor to proceed).
const (
	FIDRFNCFenceI          = 0
	FIDRFNCSFenceVMA       = 1
	FIDRFNCSFenceVMAASID   = 2
	FIDRFNCHFenceGVMAVMID  = 3
	FIDRFNCHFenceGVMA      = 4
	FIDRFNCHFenceVVMAASID  = 5
	FIDRFNCHFenceVVMA      = 6
)

// HSM extension function ids.
const (
	FIDHartStart     = 0
	FIDHartStop      = 1
	FIDHartGetStatus = 2
	FIDHartSuspend   = 3
)

// SBI error codes.
const (
	Success          = 0
	ErrFailed        = ^uint64(0)     // -1
	ErrNotSupported  = ^uint64(0) - 1 // -2
	ErrInvalidParam  = ^uint64(0) - 2 // -3
	ErrDenied        = ^uint64(0) - 3 // -4
	ErrInvalidAddr   = ^uint64(0) - 4 // -5
	ErrAlreadyAvail  = ^uint64(0) - 5 // -6
	ErrAlreadyStart  = ^uint64(0) - 6 // -7
	ErrAlreadyStop   = ^uint64(0) - 7 // -8
)

const specVersion = 0x01000000 // v1.0, per the SBI encoding (major<<24|minor)
const implID = 0x0a5eb5b1      // an unassigned implementation id, chosen for this firmware
const implVersion = 1

// Dispatcher binds the HSM manager and CLINT driver Dispatch routes calls
// to; both are interfaces so tests can exercise the full extension surface
// without real hardware.
type Dispatcher struct {
	HSM   HSM
	CLINT IPITimer
	Hart  uint32
}

// HSM is the subset of *hsm.Manager the dispatcher needs.
type HSM interface {
	HartStart(id uint32, startAddr, opaque uint64) hsm.Result
	HartStop(self uint32) hsm.Result
	HartGetStatus(id uint32) (hsm.State, hsm.Result)
	HartSuspend(self uint32, kind hsm.SuspendKind, resumeAddr, opaque uint64) hsm.Result
}

// IPITimer is the subset of *clint.Driver the dispatcher needs for the IPI
// and TIME extensions.
type IPITimer interface {
	SendSoft(hart uint32)
	SetMTimeCmp(hart uint32, value uint64)
}

// ExitsTrapLoop reports whether a successful HSM call should make
// firmware.Run's trap loop return: a hart_stop, or a hart_suspend with
// SuspendNonRetentive. Both leave the hart with no valid S-mode context to
// resume, so the loop must exit and let the hart fall into its WFI-and-wait
// path instead of calling trap.MToS again.
func ExitsTrapLoop(extID, funcID uint64, args [6]uint64, errorCode uint64) bool {
	if extID != EIDHSM || errorCode != Success {
		return false
	}
	if funcID == FIDHartStop {
		return true
	}
	return funcID == FIDHartSuspend && hsm.SuspendKind(uint32(args[0])) == hsm.SuspendNonRetentive
}

// Dispatch routes one ecall. args holds a0..a5; extID/funcID come from a7/a6.
func (d *Dispatcher) Dispatch(extID, funcID uint64, args [6]uint64) (errorCode, value uint64) {
	switch extID {
	case EIDBase:
		return d.base(funcID, args)
	case EIDTime:
		return d.time(funcID, args)
	case EIDIPI:
		return d.ipi(funcID, args)
	case EIDRFNC:
		return d.rfence(funcID)
	case EIDHSM:
		return d.hsm(funcID, args)
	default:
		return ErrNotSupported, 0
	}
}

func (d *Dispatcher) base(funcID uint64, args [6]uint64) (uint64, uint64) {
	switch funcID {
	case FIDBaseGetSpecVersion:
		return Success, specVersion
	case FIDBaseGetImplID:
		return Success, implID
	case FIDBaseGetImplVersion:
		return Success, implVersion
	case FIDBaseProbeExtension:
		return d.probeExtension(args[0])
	case FIDBaseGetMVendorID, FIDBaseGetMArchID, FIDBaseGetMImpID:
		return Success, 0
	default:
		return ErrNotSupported, 0
	}
}

// probeExtension answers FIDBaseProbeExtension, which unlike the rest of
// Base needs the probed extension id (a0), not just the function id.
func (d *Dispatcher) probeExtension(extID uint64) (uint64, uint64) {
	switch extID {
	case EIDBase, EIDTime, EIDIPI, EIDRFNC, EIDHSM:
		return Success, 1
	default:
		return Success, 0
	}
}

func (d *Dispatcher) time(funcID uint64, args [6]uint64) (uint64, uint64) {
	if funcID != FIDTimeSetTimer {
		return ErrNotSupported, 0
	}
	d.CLINT.SetMTimeCmp(d.Hart, args[0])
	return Success, 0
}

func (d *Dispatcher) ipi(funcID uint64, args [6]uint64) (uint64, uint64) {
	if funcID != FIDIPISendIPI {
		return ErrNotSupported, 0
	}
	hartMask, hartMaskBase := args[0], args[1]
	if hartMaskBase == ^uint64(0) {
		return ErrNotSupported, 0 // no fixed upper hart bound known here
	}
	for i := 0; i < 64; i++ {
		if hartMask&(1<<uint(i)) != 0 {
			d.CLINT.SendSoft(uint32(hartMaskBase) + uint32(i))
		}
	}
	return Success, 0
}

func (d *Dispatcher) rfence(funcID uint64) (uint64, uint64) {
	switch funcID {
	case FIDRFNCFenceI, FIDRFNCSFenceVMA, FIDRFNCSFenceVMAASID,
		FIDRFNCHFenceGVMAVMID, FIDRFNCHFenceGVMA, FIDRFNCHFenceVVMAASID, FIDRFNCHFenceVVMA:
		return Success, 0
	default:
		return ErrNotSupported, 0
	}
}

func (d *Dispatcher) hsm(funcID uint64, args [6]uint64) (uint64, uint64) {
	switch funcID {
	case FIDHartStart:
		return hsmResult(d.HSM.HartStart(uint32(args[0]), args[1], args[2]))
	case FIDHartStop:
		return hsmResult(d.HSM.HartStop(d.Hart))
	case FIDHartGetStatus:
		state, res := d.HSM.HartGetStatus(uint32(args[0]))
		if res != hsm.Success {
			return hsmResult(res)
		}
		return Success, uint64(state)
	case FIDHartSuspend:
		kind := hsm.SuspendKind(uint32(args[0]))
		return hsmResult(d.HSM.HartSuspend(d.Hart, kind, args[1], args[2]))
	default:
		return ErrNotSupported, 0
	}
}

func hsmResult(r hsm.Result) (uint64, uint64) {
	if r == hsm.Success {
		return Success, 0
	}
	return uint64(int64(r)), 0
}
