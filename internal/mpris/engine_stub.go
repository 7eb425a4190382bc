//go:build !linux

package mpris

import (
	"errors"
	"time"

	"github.com/genricoloni/audiobar/internal/domain"
	"go.uber.org/zap"
)

// ErrUnsupported is returned by Load on platforms without a session bus
var ErrUnsupported = errors.New("MPRIS playback is only supported on Linux systems")

// Engine stub for non-Linux platforms
type Engine struct {
	logger *zap.Logger
	events chan domain.EngineEvent
}

// NewEngine creates a stub engine that refuses every item
func NewEngine(logger *zap.Logger, cfg domain.Config) *Engine {
	return &Engine{logger: logger, events: make(chan domain.EngineEvent)}
}

// Load always fails on this platform
func (e *Engine) Load(string, float64) (domain.ItemID, error) {
	return 0, ErrUnsupported
}

// Play is a no-op on non-Linux platforms
func (e *Engine) Play() {}

// Pause is a no-op on non-Linux platforms
func (e *Engine) Pause() {}

// Seek is a no-op on non-Linux platforms
func (e *Engine) Seek(float64) {}

// IsReadyToPlay is always false on non-Linux platforms
func (e *Engine) IsReadyToPlay() bool {
	return false
}

// ObservePosition returns a subscription that never ticks
func (e *Engine) ObservePosition(time.Duration) domain.Subscription {
	return noSubscription{}
}

// ObserveEnd returns a subscription that never fires
func (e *Engine) ObserveEnd() domain.Subscription {
	return noSubscription{}
}

// Events returns a channel that never delivers
func (e *Engine) Events() <-chan domain.EngineEvent {
	return e.events
}

// Close is a no-op on non-Linux platforms
func (e *Engine) Close() error {
	return nil
}

type noSubscription struct{}

func (noSubscription) Cancel() {}

var _ domain.Engine = (*Engine)(nil)
