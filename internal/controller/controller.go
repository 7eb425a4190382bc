package controller

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/genricoloni/audiobar/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultTickInterval = 500 * time.Millisecond
	updatesBuffer       = 32
	intentsBuffer       = 16
)

type intentKind int

const (
	intentTapPlay intentKind = iota
	intentTapPause
	intentDragSeek
)

type intent struct {
	kind    intentKind
	seconds float64
}

// Controller is the single source of truth for what the player widget displays.
// All intents and engine events are applied by the goroutine running Run.
type Controller struct {
	logger   *zap.Logger
	engine   domain.Engine
	url      string
	interval time.Duration

	intents chan intent
	updates chan domain.Notification
	done    chan struct{}
	stop    sync.Once

	mu   sync.RWMutex
	snap domain.Snapshot // written by the loop only

	item     domain.ItemID
	loaded   bool
	buffered bool // first tick of the current item seen
	ticks  domain.Subscription
	ends   domain.Subscription
}

// New creates a controller in ReadyToPlay with progress 0
func New(logger *zap.Logger, cfg domain.Config, engine domain.Engine) *Controller {
	interval := cfg.GetTickInterval()
	if interval <= 0 {
		interval = defaultTickInterval
	}

	return &Controller{
		logger:   logger,
		engine:   engine,
		url:      cfg.GetSourceURL(),
		interval: interval,
		intents:  make(chan intent, intentsBuffer),
		updates:  make(chan domain.Notification, updatesBuffer),
		done:     make(chan struct{}),
		snap:     domain.Snapshot{State: domain.StateReadyToPlay},
	}
}

// Run processes intents and engine events until ctx is cancelled.
// It releases the tick and end subscriptions on return.
func (c *Controller) Run(ctx context.Context) error {
	events := c.engine.Events()
	c.logger.Info("Controller loop started", zap.String("url", c.url))

	defer func() {
		c.stop.Do(func() { close(c.done) })
		c.cancelSubscriptions()
		c.logger.Info("Controller loop stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case in := <-c.intents:
			c.handleIntent(in)

		case ev, ok := <-events:
			if !ok {
				c.logger.Info("Engine events channel closed")
				return nil
			}
			c.handleEvent(ev)
		}
	}
}

// Snapshot returns the current state, progress and duration
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Updates emits a notification after every change
func (c *Controller) Updates() <-chan domain.Notification {
	return c.updates
}

// TapPlay asks to start playback
func (c *Controller) TapPlay() {
	c.send(intent{kind: intentTapPlay})
}

// TapPause asks to pause playback
func (c *Controller) TapPause() {
	c.send(intent{kind: intentTapPause})
}

// DragSeek moves the progress to seconds and pauses
func (c *Controller) DragSeek(seconds float64) {
	c.send(intent{kind: intentDragSeek, seconds: seconds})
}

func (c *Controller) send(in intent) {
	select {
	case c.intents <- in:
	case <-c.done:
		c.logger.Debug("Controller stopped, dropping intent", zap.Int("kind", int(in.kind)))
	}
}

func (c *Controller) handleIntent(in intent) {
	switch in.kind {
	case intentTapPlay:
		c.tapPlay()
	case intentTapPause:
		c.tapPause()
	case intentDragSeek:
		c.dragSeek(in.seconds)
	}
}

func (c *Controller) tapPlay() {
	snap := c.Snapshot()
	if snap.State != domain.StateReadyToPlay {
		c.logger.Debug("Ignoring play tap", zap.String("state", snap.State.String()))
		return
	}

	// Resume the loaded item from the current progress
	if c.loaded && c.engine.IsReadyToPlay() {
		c.setState(domain.StatePlaying)
		c.engine.Seek(snap.Progress)
		c.engine.Play()
		c.logger.Info("Resuming playback", zap.Float64("progress", snap.Progress))
		return
	}

	c.setState(domain.StateLoading)
	c.cancelSubscriptions()
	c.loaded = false
	c.buffered = false
	// A fresh item always starts at offset 0
	c.resetProgress()

	item, err := c.engine.Load(c.url, 0)
	if err != nil {
		c.logger.Warn("Engine refused to load item", zap.String("url", c.url), zap.Error(err))
		c.item = 0
		c.setState(domain.StateReadyToPlay)
		return
	}

	c.item = item
	c.ticks = c.engine.ObservePosition(c.interval)
	c.ends = c.engine.ObserveEnd()

	c.logger.Info("Loading item",
		zap.String("url", c.url),
		zap.Uint64("item", uint64(item)))
}

func (c *Controller) tapPause() {
	if c.Snapshot().State != domain.StatePlaying {
		return
	}
	c.setState(domain.StateReadyToPlay)
	c.engine.Pause()
}

func (c *Controller) dragSeek(seconds float64) {
	c.engine.Pause()

	c.mu.Lock()
	c.snap.Progress = clamp(seconds, c.snap.Duration)
	c.mu.Unlock()
	c.notify(domain.ProgressChanged, nil)

	c.setState(domain.StateReadyToPlay)
}

func (c *Controller) handleEvent(ev domain.EngineEvent) {
	if ev.Item == 0 || ev.Item != c.item {
		c.logger.Debug("Dropping event for superseded item",
			zap.String("kind", ev.Kind.String()),
			zap.Uint64("item", uint64(ev.Item)),
			zap.Uint64("current", uint64(c.item)))
		return
	}

	switch ev.Kind {
	case domain.EventReady:
		c.onReady(ev.Seconds)
	case domain.EventFailure:
		c.onFailure(ev.Code, ev.Err)
	case domain.EventTick:
		c.onTick(ev.Seconds)
	case domain.EventEndOfItem:
		c.onEndOfItem()
	}
}

func (c *Controller) onReady(duration float64) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		duration = 0
	}

	c.loaded = true
	c.mu.Lock()
	c.snap.Duration = duration
	c.snap.Progress = clamp(c.snap.Progress, duration)
	state := c.snap.State
	c.mu.Unlock()
	c.notify(domain.DurationKnown, nil)

	c.logger.Info("Item ready", zap.Float64("duration", duration))

	// A seek gesture during loading leaves the item ready but paused
	if state != domain.StateLoading {
		return
	}
	c.setState(domain.StatePlaying)
	c.engine.Play()
}

func (c *Controller) onFailure(code int, cause error) {
	failure := domain.NewPlaybackFailure(code, cause)
	c.logger.Error("Playback failed",
		zap.String("kind", failure.Kind.String()),
		zap.Int("code", code),
		zap.Error(cause))

	c.cancelSubscriptions()
	c.loaded = false
	c.notify(domain.Failed, failure)

	c.setState(domain.StateReadyToPlay)
}

func (c *Controller) onTick(seconds float64) {
	c.mu.Lock()
	if c.snap.State != domain.StatePlaying {
		c.mu.Unlock()
		return
	}
	c.snap.Progress = clamp(seconds, c.snap.Duration)
	c.mu.Unlock()
	c.notify(domain.ProgressChanged, nil)

	if !c.buffered {
		c.buffered = true
		c.logger.Debug("Item buffered", zap.Uint64("item", uint64(c.item)))
		c.notify(domain.Buffered, nil)
	}
}

func (c *Controller) onEndOfItem() {
	if c.Snapshot().State != domain.StatePlaying {
		return
	}

	c.resetProgress()
	c.setState(domain.StateReadyToPlay)

	c.logger.Info("Item finished")
}

func (c *Controller) resetProgress() {
	c.mu.Lock()
	if c.snap.Progress == 0 {
		c.mu.Unlock()
		return
	}
	c.snap.Progress = 0
	c.mu.Unlock()
	c.notify(domain.ProgressChanged, nil)
}

func (c *Controller) setState(state domain.PlaybackState) {
	c.mu.Lock()
	if c.snap.State == state {
		c.mu.Unlock()
		return
	}
	prev := c.snap.State
	c.snap.State = state
	c.mu.Unlock()

	c.logger.Debug("State changed",
		zap.String("from", prev.String()),
		zap.String("to", state.String()))
	c.notify(domain.StateChanged, nil)
}

// notify never blocks the loop; the UI re-reads Snapshot on each update
// so a dropped notification only delays a redraw.
func (c *Controller) notify(kind domain.NotificationKind, failure *domain.PlaybackFailure) {
	n := domain.Notification{Kind: kind, Snapshot: c.Snapshot(), Failure: failure}
	select {
	case c.updates <- n:
	default:
		if failure != nil {
			c.logger.Warn("Updates channel full, dropping failure notification", zap.Error(failure))
		}
	}
}

func (c *Controller) cancelSubscriptions() {
	if c.ticks != nil {
		c.ticks.Cancel()
		c.ticks = nil
	}
	if c.ends != nil {
		c.ends.Cancel()
		c.ends = nil
	}
}

// clamp keeps seconds within [0, duration]
func clamp(seconds, duration float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	if seconds > duration {
		return duration
	}
	return seconds
}
