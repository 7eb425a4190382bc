// Package observer provides the event channel and subscription handles
// shared by the playback engines.
package observer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/genricoloni/audiobar/internal/domain"
	"go.uber.org/zap"
)

const dropWarningInterval = 5 * time.Second

// Bus delivers engine events to a single consumer
type Bus struct {
	logger          *zap.Logger
	events          chan domain.EngineEvent
	done            chan struct{}
	closeOnce       sync.Once
	mu              sync.Mutex
	lastDropWarning time.Time // Rate limiting for "channel full" warnings
}

// NewBus creates a bus with the given channel capacity
func NewBus(logger *zap.Logger, capacity int) *Bus {
	return &Bus{
		logger: logger,
		events: make(chan domain.EngineEvent, capacity),
		done:   make(chan struct{}),
	}
}

// Events returns the read side of the bus
func (b *Bus) Events() <-chan domain.EngineEvent {
	return b.events
}

// Emit blocks until the event is queued or the bus is closed.
// Ready, Failure and EndOfItem go through Emit.
func (b *Bus) Emit(ev domain.EngineEvent) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.events <- ev:
		return true
	case <-b.done:
		return false
	}
}

// TryEmit queues the event only if there is room. Ticks use it.
func (b *Bus) TryEmit(ev domain.EngineEvent) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.events <- ev:
		return true
	default:
		b.logChannelFullWarning(ev)
		return false
	}
}

// Close unblocks pending emitters. The events channel itself is left open
// so late producers never panic on send.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

// Done is closed once the bus is closed
func (b *Bus) Done() <-chan struct{} {
	return b.done
}

func (b *Bus) logChannelFullWarning(ev domain.EngineEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.Sub(b.lastDropWarning) >= dropWarningInterval {
		b.logger.Warn("Engine events channel full, dropping event",
			zap.String("kind", ev.Kind.String()),
			zap.Uint64("item", uint64(ev.Item)))
		b.lastDropWarning = now
	}
}

// Periodic calls fn every interval on its own goroutine until canceled
type Periodic struct {
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewPeriodic starts the ticker
func NewPeriodic(interval time.Duration, fn func()) *Periodic {
	p := &Periodic{stop: make(chan struct{})}
	ticker := time.NewTicker(interval)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return p
}

// Cancel stops the ticker and waits for a running fn to return
func (p *Periodic) Cancel() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// Gate is a subscription that is open until canceled
type Gate struct {
	closed atomic.Bool
}

// NewGate returns an open gate
func NewGate() *Gate {
	return &Gate{}
}

// Open reports whether the subscription is still live
func (g *Gate) Open() bool {
	return !g.closed.Load()
}

// Cancel closes the gate
func (g *Gate) Cancel() {
	g.closed.Store(true)
}

var (
	_ domain.Subscription = (*Periodic)(nil)
	_ domain.Subscription = (*Gate)(nil)
)
