// Package localplayer plays items through the local sound card with beep.
package localplayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/genricoloni/audiobar/internal/domain"
	"github.com/genricoloni/audiobar/internal/fetcher"
	"github.com/genricoloni/audiobar/internal/observer"
	"go.uber.org/zap"
)

const (
	outputRate       = beep.SampleRate(48000)
	resampleQuality  = 4
	eventsBufferSize = 16
)

// track is one loaded item
type track struct {
	id     domain.ItemID
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	ready  bool
	ends   *observer.Gate
}

// Engine implements domain.Engine on top of a beep Output
type Engine struct {
	logger  *zap.Logger
	fetcher domain.Fetcher
	out     Output
	bus     *observer.Bus

	ctx    context.Context
	cancel context.CancelFunc

	initMu      sync.Mutex
	initialized bool // set once Init succeeds

	mu   sync.Mutex
	next domain.ItemID
	cur  *track
}

// NewEngine creates a local engine writing to out
func NewEngine(logger *zap.Logger, fetch domain.Fetcher, out Output) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		logger:  logger,
		fetcher: fetch,
		out:     out,
		bus:     observer.NewBus(logger, eventsBufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Load starts decoding rawURL in the background. file:// URLs and bare paths
// are read from disk, http(s) URLs are fetched.
func (e *Engine) Load(rawURL string, startOffset float64) (domain.ItemID, error) {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return 0, domain.ErrInvalidURL
	}
	switch u.Scheme {
	case "", "file", "http", "https":
	default:
		return 0, fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}

	initErr := e.initOutput()

	e.mu.Lock()
	e.next++
	id := e.next
	e.releaseLocked()
	e.cur = &track{id: id}
	e.mu.Unlock()

	if initErr != nil {
		e.logger.Error("Audio output unavailable", zap.Error(initErr))
		go e.fail(id, domain.CodeStream, fmt.Errorf("audio output: %w", initErr))
		return id, nil
	}

	go e.prepare(id, u, rawURL, startOffset)
	return id, nil
}

// initOutput opens the output on first use. A failed attempt is retried on the next Load.
func (e *Engine) initOutput() error {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	if e.initialized {
		return nil
	}
	if err := e.out.Init(outputRate); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

func (e *Engine) prepare(id domain.ItemID, u *url.URL, rawURL string, startOffset float64) {
	src, name, err := e.open(u, rawURL)
	if err != nil {
		code := domain.CodeStream
		if errors.Is(err, fetcher.ErrUnreachable) {
			code = domain.CodeConnection
		}
		e.fail(id, code, err)
		return
	}

	stream, format, err := decode(src, name)
	if err != nil {
		_ = src.Close()
		e.fail(id, domain.CodeStream, err)
		return
	}

	if startOffset > 0 {
		if err := stream.Seek(clampSample(format.SampleRate.N(seconds(startOffset)), stream.Len())); err != nil {
			e.logger.Warn("Failed to apply start offset", zap.Float64("offset", startOffset), zap.Error(err))
		}
	}

	e.mu.Lock()
	if e.cur == nil || e.cur.id != id {
		e.mu.Unlock()
		_ = stream.Close()
		e.logger.Debug("Discarding superseded item", zap.Uint64("item", uint64(id)))
		return
	}
	t := e.cur
	t.stream = stream
	t.format = format
	t.ctrl = &beep.Ctrl{Paused: true}
	e.armLocked(t)
	t.ready = true
	duration := format.SampleRate.D(stream.Len()).Seconds()
	e.mu.Unlock()

	e.logger.Info("Item decoded",
		zap.Uint64("item", uint64(id)),
		zap.Int("sampleRate", int(format.SampleRate)),
		zap.Float64("duration", duration))

	e.bus.Emit(domain.EngineEvent{Kind: domain.EventReady, Item: id, Seconds: duration})
}

// open returns a seekable source for u and a name used for format detection
func (e *Engine) open(u *url.URL, rawURL string) (io.ReadSeekCloser, string, error) {
	switch u.Scheme {
	case "http", "https":
		data, mediaType, err := e.fetcher.Fetch(e.ctx, u.String())
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch item: %w", err)
		}
		return nopCloser{bytes.NewReader(data)}, mediaType + " " + u.Path, nil
	default:
		path := u.Path
		if u.Scheme == "" {
			path = rawURL
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open item: %w", err)
		}
		return f, path, nil
	}
}

// armLocked queues the track on the output, followed by the end callback.
// A fresh resampler is built each time because a drained one stays drained.
func (e *Engine) armLocked(t *track) {
	e.out.Lock()
	t.ctrl.Streamer = beep.Resample(resampleQuality, t.format.SampleRate, outputRate, t.stream)
	e.out.Unlock()

	id := t.id
	e.out.Play(beep.Seq(t.ctrl, beep.Callback(func() {
		// Runs on the output goroutine with the output lock held
		go e.finish(id)
	})))
}

// finish rewinds a track that played to the end and reports it
func (e *Engine) finish(id domain.ItemID) {
	e.mu.Lock()
	t := e.cur
	if t == nil || t.id != id || t.stream == nil {
		e.mu.Unlock()
		return
	}

	e.out.Lock()
	t.ctrl.Paused = true
	err := t.stream.Seek(0)
	e.out.Unlock()
	if err != nil {
		e.logger.Warn("Failed to rewind finished item", zap.Error(err))
	}
	e.armLocked(t)
	gate := t.ends
	e.mu.Unlock()

	e.logger.Info("Item reached its end", zap.Uint64("item", uint64(id)))
	if gate != nil && gate.Open() {
		e.bus.Emit(domain.EngineEvent{Kind: domain.EventEndOfItem, Item: id})
	}
}

func (e *Engine) fail(id domain.ItemID, code int, err error) {
	e.logger.Error("Failed to load item",
		zap.Uint64("item", uint64(id)),
		zap.Int("code", code),
		zap.Error(err))
	e.bus.Emit(domain.EngineEvent{Kind: domain.EventFailure, Item: id, Code: code, Err: err})
}

// Play resumes the loaded item
func (e *Engine) Play() {
	e.setPaused(false)
}

// Pause halts the loaded item, keeping its position
func (e *Engine) Pause() {
	e.setPaused(true)
}

func (e *Engine) setPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.cur
	if t == nil || !t.ready {
		return
	}
	e.out.Lock()
	t.ctrl.Paused = paused
	e.out.Unlock()
}

// Seek moves the playback cursor of the loaded item
func (e *Engine) Seek(offset float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.cur
	if t == nil || !t.ready {
		return
	}
	e.out.Lock()
	err := t.stream.Seek(clampSample(t.format.SampleRate.N(seconds(offset)), t.stream.Len()))
	e.out.Unlock()
	if err != nil {
		e.logger.Warn("Seek failed", zap.Float64("offset", offset), zap.Error(err))
	}
}

// IsReadyToPlay reports whether the current item is decoded
func (e *Engine) IsReadyToPlay() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur != nil && e.cur.ready
}

// ObservePosition ticks the position of the item loaded at subscription time
func (e *Engine) ObservePosition(interval time.Duration) domain.Subscription {
	e.mu.Lock()
	var id domain.ItemID
	if e.cur != nil {
		id = e.cur.id
	}
	e.mu.Unlock()

	return observer.NewPeriodic(interval, func() {
		if pos, ok := e.position(id); ok {
			e.bus.TryEmit(domain.EngineEvent{Kind: domain.EventTick, Item: id, Seconds: pos})
		}
	})
}

func (e *Engine) position(id domain.ItemID) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.cur
	if t == nil || t.id != id || !t.ready {
		return 0, false
	}
	e.out.Lock()
	pos := t.stream.Position()
	e.out.Unlock()
	return t.format.SampleRate.D(pos).Seconds(), true
}

// ObserveEnd reports EndOfItem for the current item until canceled
func (e *Engine) ObserveEnd() domain.Subscription {
	gate := observer.NewGate()

	e.mu.Lock()
	if e.cur != nil {
		e.cur.ends = gate
	} else {
		gate.Cancel()
	}
	e.mu.Unlock()

	return gate
}

// Events returns the engine notification channel
func (e *Engine) Events() <-chan domain.EngineEvent {
	return e.bus.Events()
}

// Close stops playback and releases the current item
func (e *Engine) Close() error {
	e.cancel()
	e.bus.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.releaseLocked()
	e.cur = nil
	return nil
}

// releaseLocked silences and closes the current item
func (e *Engine) releaseLocked() {
	t := e.cur
	if t == nil || t.stream == nil {
		return
	}
	e.out.Clear()
	if err := t.stream.Close(); err != nil {
		e.logger.Warn("Failed to close item", zap.Uint64("item", uint64(t.id)), zap.Error(err))
	}
	t.stream = nil
	t.ready = false
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clampSample(n, length int) int {
	if n < 0 {
		return 0
	}
	if n > length {
		return length
	}
	return n
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

var _ domain.Engine = (*Engine)(nil)
