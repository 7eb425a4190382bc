package observer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/genricoloni/audiobar/internal/domain"
	"go.uber.org/zap"
)

func TestBus_EmitAndTryEmit(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)

	if !bus.Emit(domain.EngineEvent{Kind: domain.EventReady, Item: 1, Seconds: 10}) {
		t.Fatal("Emit on an empty bus should succeed")
	}
	if bus.TryEmit(domain.EngineEvent{Kind: domain.EventTick, Item: 1}) {
		t.Error("TryEmit on a full bus should drop the event")
	}

	ev := <-bus.Events()
	if ev.Kind != domain.EventReady || ev.Seconds != 10 {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestBus_CloseUnblocksEmit(t *testing.T) {
	bus := NewBus(zap.NewNop(), 0)

	result := make(chan bool)
	go func() {
		result <- bus.Emit(domain.EngineEvent{Kind: domain.EventEndOfItem})
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Close()

	select {
	case ok := <-result:
		if ok {
			t.Error("Emit should report false after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout: Emit stayed blocked after Close")
	}

	if bus.TryEmit(domain.EngineEvent{Kind: domain.EventTick}) {
		t.Error("TryEmit should report false after Close")
	}
	bus.Close() // second close must not panic
}

func TestPeriodic_CancelStopsTicks(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic(5*time.Millisecond, func() { calls.Add(1) })

	time.Sleep(40 * time.Millisecond)
	p.Cancel()
	after := calls.Load()
	if after == 0 {
		t.Fatal("expected at least one tick before Cancel")
	}

	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("ticks continued after Cancel: %d -> %d", after, calls.Load())
	}
	p.Cancel()
}

func TestGate(t *testing.T) {
	g := NewGate()
	if !g.Open() {
		t.Fatal("new gate should be open")
	}
	g.Cancel()
	g.Cancel()
	if g.Open() {
		t.Error("gate should be closed after Cancel")
	}
}
