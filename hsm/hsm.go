// Package hsm implements the SBI Hart State Management extension: the
// per-hart finite state machine {Stopped, StartPending, Started,
// SuspendPending, Suspended} and the fence-separated cross-hart protocol
// that drives it via IPIs.
//
// Each HartState entry is written only by its owning hart (on a transition
// out of S-mode) or by a sender issuing a start request while the target is
// known Stopped — see Manager.HartStart. No locks are used for the shared
// table; the fence-separated store/IPI ordering protocol makes them unnecessary.
package hsm

import (
	"sync/atomic"

	"github.com/felixonmars/rustsbi-qemu/internal/task"
)

// State is the coarse HSM state, returned by HartGetStatus. Numeric values
// match the SBI HSM extension's STATUS return values.
type State uint32

const (
	StateStarted        State = 0
	StateStopped        State = 1
	StateStartPending    State = 2
	StateStopPending     State = 3
	StateSuspended       State = 4
	StateSuspendPending   State = 5
	StateResumePending    State = 6
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateStartPending:
		return "start-pending"
	case StateStopPending:
		return "stop-pending"
	case StateSuspended:
		return "suspended"
	case StateSuspendPending:
		return "suspend-pending"
	case StateResumePending:
		return "resume-pending"
	default:
		return "unknown"
	}
}

// SuspendKind distinguishes a retentive suspend (hart resumes at the same
// PC the WFI was issued from) from a non-retentive one (hart re-enters
// through a fresh start record, exactly like hart_stop followed by
// hart_start).
type SuspendKind uint32

const (
	SuspendRetentive    SuspendKind = 0x00000000
	SuspendNonRetentive SuspendKind = 0x80000000
)

// Result mirrors the SBI HSM extension's error codes.
type Result int32

const (
	Success          Result = 0
	ErrFailed        Result = -1
	ErrNotSupported  Result = -2
	ErrInvalidParam  Result = -3
	ErrDenied        Result = -4
	ErrInvalidAddr   Result = -5
	ErrAlreadyAvail  Result = -6
	ErrAlreadyStarted Result = -7
	ErrAlreadyStopped Result = -8
)

// StartRecord is the (entry point, argument) pair latched by a hart_start
// or non-retentive hart_suspend call, consumed by the target hart when it
// wakes.
type StartRecord struct {
	Addr   uint64
	Opaque uint64
}

// IPI is the subset of the CLINT driver the HSM needs to signal other
// harts. Satisfied by clint.Driver; kept as an interface so the state
// machine can be exercised in tests without real MMIO.
type IPI interface {
	SendSoft(hart uint32)
	ClearSoft(hart uint32)
}

// hart holds one hart's state-machine slot. state is the only field read or
// written racily across harts; record and kind are only ever read by a hart
// after it has observed (via an acquire load of state) that it owns them.
type hart struct {
	state  atomic.Uint32
	record StartRecord
	kind   SuspendKind
}

// Manager owns the fixed per-hart state table and the IPI mechanism used to
// coordinate it. One Manager instance exists per firmware image.
type Manager struct {
	ipi   IPI
	harts []hart
}

// New builds a Manager for smp harts. bootHart begins StartPending with the
// supervisor's entry point; every other hart begins Stopped, per the HSM
// lifecycle rule.
func New(ipi IPI, smp int, bootHart uint32, bootAddr, bootOpaque uint64) *Manager {
	m := &Manager{ipi: ipi, harts: make([]hart, smp)}
	for i := range m.harts {
		m.harts[i].state.Store(uint32(StateStopped))
	}
	if int(bootHart) < smp {
		m.harts[bootHart].record = StartRecord{Addr: bootAddr, Opaque: bootOpaque}
		m.harts[bootHart].state.Store(uint32(StateStartPending))
	}
	return m
}

func (m *Manager) valid(id uint32) bool {
	return int(id) < len(m.harts)
}

// stateClaimed marks a Stopped hart that a HartStart caller has claimed but
// whose start record is not yet published. HartGetStatus reports it as
// StateStartPending.
const stateClaimed State = 0xFFFFFFFF

// HartGetStatus is a pure read of hart id's coarse state.
func (m *Manager) HartGetStatus(id uint32) (State, Result) {
	if !m.valid(id) {
		return 0, ErrInvalidParam
	}
	s := State(task.AcquireLoad(&m.harts[id].state))
	if s == stateClaimed {
		s = StateStartPending
	}
	return s, Success
}

// HartStart requests that hart id begin executing at startAddr with opaque
// in its second argument register. Legal only when the target is Stopped.
//
// Ordering: the sender writes the start record, then writes
// StartPending, then sends the IPI — each pair separated by a fence. A
// CompareAndSwap from Stopped to an internal claimed state first picks the
// single winning sender; the record write then happens-before the release
// store of StartPending, and the receiver's acquire load of state
// (ObserveWake) happens-before it reads the record.
func (m *Manager) HartStart(id uint32, startAddr, opaque uint64) Result {
	if !m.valid(id) {
		return ErrInvalidParam
	}
	h := &m.harts[id]
	if !h.state.CompareAndSwap(uint32(StateStopped), uint32(stateClaimed)) {
		cur := State(task.AcquireLoad(&h.state))
		if cur == StateStarted || cur == StateStartPending || cur == stateClaimed {
			return ErrAlreadyAvail
		}
		return ErrFailed
	}
	// We now exclusively own h.record: no other sender can win the CAS
	// above while the target is not Stopped, and the target does not read
	// the record until it observes StartPending (ObserveWake).
	h.record = StartRecord{Addr: startAddr, Opaque: opaque}
	// Release: publish the record before the state that tells the target
	// to read it, and the state before the IPI.
	task.ReleaseStore(&h.state, uint32(StateStartPending))
	m.ipi.SendSoft(id)
	return Success
}

// HartStop transitions the calling hart to Stopped and clears its own
// software-interrupt-pending bit. The trap loop for that hart must exit
// after this call succeeds; the hart then spins waiting for its next IPI.
func (m *Manager) HartStop(self uint32) Result {
	if !m.valid(self) {
		return ErrInvalidParam
	}
	task.ReleaseStore(&m.harts[self].state, uint32(StateStopped))
	m.ipi.ClearSoft(self)
	return Success
}

// HartSuspend parks the calling hart. For SuspendRetentive, the caller is
// expected to execute WFI and return to S on wake (no state change needed
// beyond bookkeeping, since the hart never leaves Started from the
// supervisor's point of view if the HSM surfaces an intermediate
// SuspendPending/Suspended status externally). For SuspendNonRetentive, the
// hart behaves like stop-then-start with (resumeAddr, opaque): the trap
// loop must exit, and a later hart_start re-enters at resumeAddr.
func (m *Manager) HartSuspend(self uint32, kind SuspendKind, resumeAddr, opaque uint64) Result {
	if !m.valid(self) {
		return ErrInvalidParam
	}
	h := &m.harts[self]
	switch kind {
	case SuspendRetentive:
		h.kind = kind
		task.ReleaseStore(&h.state, uint32(StateSuspended))
		return Success
	case SuspendNonRetentive:
		h.kind = kind
		h.record = StartRecord{Addr: resumeAddr, Opaque: opaque}
		task.ReleaseStore(&h.state, uint32(StateStopped))
		m.ipi.ClearSoft(self)
		return Success
	default:
		return ErrInvalidParam
	}
}

// HartResume marks a retentively-suspended hart as Started again. Called by
// the trap loop after a WFI wakes the hart back up in place (no IPI
// protocol is needed here: the hart is resuming itself, not being started
// by another hart).
func (m *Manager) HartResume(self uint32) {
	if m.valid(self) {
		task.ReleaseStore(&m.harts[self].state, uint32(StateStarted))
	}
}

// ObserveWake is called by a hart immediately after it wakes from WFI. It
// first clears the hart's own software-interrupt-pending bit, which must
// happen before checking state, then performs the acquire load of state and, if
// the hart finds itself StartPending, latches and returns the start
// record, transitioning to Started. A hart that is Stopped with no start
// record re-enters WFI (ok == false).
func (m *Manager) ObserveWake(self uint32) (rec StartRecord, ok bool) {
	if !m.valid(self) {
		return StartRecord{}, false
	}
	h := &m.harts[self]
	m.ipi.ClearSoft(self)
	if State(task.AcquireLoad(&h.state)) != StateStartPending {
		return StartRecord{}, false
	}
	rec = h.record
	task.ReleaseStore(&h.state, uint32(StateStarted))
	return rec, true
}
