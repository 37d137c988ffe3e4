package hsm

import (
	"sync"
	"testing"
)

type fakeIPI struct {
	mu      sync.Mutex
	pending map[uint32]bool
	sent    []uint32
}

func newFakeIPI() *fakeIPI {
	return &fakeIPI{pending: map[uint32]bool{}}
}

func (f *fakeIPI) SendSoft(hart uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[hart] = true
	f.sent = append(f.sent, hart)
}

func (f *fakeIPI) ClearSoft(hart uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[hart] = false
}

func (f *fakeIPI) isPending(hart uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[hart]
}

func TestBootHartStartsPending(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0x80200000, 0xABCD)

	state, res := m.HartGetStatus(0)
	if res != Success || state != StateStartPending {
		t.Fatalf("boot hart state = %v, res = %v", state, res)
	}
	state, res = m.HartGetStatus(1)
	if res != Success || state != StateStopped {
		t.Fatalf("secondary hart state = %v, res = %v", state, res)
	}
}

func TestHartStartInvalidID(t *testing.T) {
	m := New(newFakeIPI(), 2, 0, 0, 0)
	if res := m.HartStart(5, 0x1000, 0); res != ErrInvalidParam {
		t.Fatalf("HartStart(5) = %v, want ErrInvalidParam", res)
	}
}

func TestHartStartAlreadyStarted(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0, 0)
	// Hart 0 observes its own boot wake and becomes Started.
	if _, ok := m.ObserveWake(0); !ok {
		t.Fatal("expected boot hart to observe StartPending")
	}
	if res := m.HartStart(0, 0x1000, 0); res != ErrAlreadyAvail {
		t.Fatalf("HartStart on started hart = %v, want ErrAlreadyAvail", res)
	}
}

func TestSecondaryStartScenario(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0x80200000, 0)
	m.ObserveWake(0)

	res := m.HartStart(1, 0x80400000, 0xABCD)
	if res != Success {
		t.Fatalf("HartStart(1) = %v", res)
	}
	state, _ := m.HartGetStatus(1)
	if state != StateStartPending {
		t.Fatalf("hart 1 state = %v, want StartPending", state)
	}
	if !ipi.isPending(1) {
		t.Fatal("expected IPI to be sent to hart 1")
	}

	rec, ok := m.ObserveWake(1)
	if !ok {
		t.Fatal("expected hart 1 to observe StartPending on wake")
	}
	if rec.Addr != 0x80400000 || rec.Opaque != 0xABCD {
		t.Fatalf("start record = %+v", rec)
	}
	if ipi.isPending(1) {
		t.Fatal("expected IPI pending bit cleared by ObserveWake")
	}
	state, _ = m.HartGetStatus(1)
	if state != StateStarted {
		t.Fatalf("hart 1 state after wake = %v, want Started", state)
	}
}

func TestSecondaryStopScenario(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0x80200000, 0)
	m.ObserveWake(0)
	m.HartStart(1, 0x80400000, 0xABCD)
	m.ObserveWake(1)

	if res := m.HartStop(1); res != Success {
		t.Fatalf("HartStop(1) = %v", res)
	}
	if ipi.isPending(1) {
		t.Fatal("HartStop must clear the caller's own pending bit")
	}
	state, _ := m.HartGetStatus(1)
	if state != StateStopped {
		t.Fatalf("hart 1 state after stop = %v, want Stopped", state)
	}
}

func TestNonRetentiveSuspendThenRestart(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0x80200000, 0)
	m.ObserveWake(0)
	m.HartStart(1, 0x80400000, 0)
	m.ObserveWake(1)

	if res := m.HartSuspend(1, SuspendNonRetentive, 0x80500000, 0); res != Success {
		t.Fatalf("HartSuspend = %v", res)
	}
	state, _ := m.HartGetStatus(1)
	if state != StateStopped {
		t.Fatalf("hart 1 state after non-retentive suspend = %v, want Stopped", state)
	}

	if res := m.HartStart(1, 0x80500000, 0); res != Success {
		t.Fatalf("re-start after non-retentive suspend = %v", res)
	}
	rec, ok := m.ObserveWake(1)
	if !ok || rec.Addr != 0x80500000 {
		t.Fatalf("expected resume at 0x80500000, got rec=%+v ok=%v", rec, ok)
	}
}

func TestRetentiveSuspendAndResume(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 1, 0, 0x80200000, 0)
	m.ObserveWake(0)

	if res := m.HartSuspend(0, SuspendRetentive, 0, 0); res != Success {
		t.Fatalf("HartSuspend retentive = %v", res)
	}
	state, _ := m.HartGetStatus(0)
	if state != StateSuspended {
		t.Fatalf("state = %v, want Suspended", state)
	}
	m.HartResume(0)
	state, _ = m.HartGetStatus(0)
	if state != StateStarted {
		t.Fatalf("state after resume = %v, want Started", state)
	}
}

func TestConcurrentHartStartOnlyOneWins(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0, 0)
	m.ObserveWake(0)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.HartStart(1, 0x80400000, 0)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, r := range results {
		if r == Success {
			successes++
		} else if r != ErrAlreadyAvail {
			t.Fatalf("unexpected result %v", r)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
}

func TestObserveWakeStoppedNoRecord(t *testing.T) {
	ipi := newFakeIPI()
	m := New(ipi, 2, 0, 0, 0)
	// Hart 1 is Stopped with no start record; a stray IPI should not
	// promote it.
	if _, ok := m.ObserveWake(1); ok {
		t.Fatal("expected ObserveWake to report no start record for a stopped hart")
	}
	state, _ := m.HartGetStatus(1)
	if state != StateStopped {
		t.Fatalf("state = %v, want Stopped", state)
	}
}
