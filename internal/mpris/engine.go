//go:build linux

// Package mpris drives a remote media player over the MPRIS D-Bus interface.
package mpris

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/genricoloni/audiobar/internal/domain"
	"github.com/genricoloni/audiobar/internal/observer"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	objectPath        = "/org/mpris/MediaPlayer2"
	playerInterface   = "org.mpris.MediaPlayer2.Player"
	propertiesChanged = "org.freedesktop.DBus.Properties.PropertiesChanged"
	nameOwnerChanged  = "org.freedesktop.DBus.NameOwnerChanged"
	eventsBufferSize  = 16
)

// ErrPlayerGone is reported when the remote player leaves the bus
var ErrPlayerGone = errors.New("media player left the session bus")

// D-Bus error names meaning the peer could not be reached
var unreachableErrors = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown": true,
	"org.freedesktop.DBus.Error.NameHasNoOwner": true,
	"org.freedesktop.DBus.Error.NoReply":        true,
	"org.freedesktop.DBus.Error.NoServer":       true,
	"org.freedesktop.DBus.Error.Disconnected":   true,
	"org.freedesktop.DBus.Error.TimedOut":       true,
}

// item is one OpenUri request
type item struct {
	id       domain.ItemID
	uri      string
	offset   float64
	trackID  dbus.ObjectPath
	duration float64
	ready    bool
	playing  bool
	ends     *observer.Gate
}

// Engine implements domain.Engine against a remote MPRIS player
type Engine struct {
	logger *zap.Logger
	player string
	dial   func() (DBusClient, error)
	bus    *observer.Bus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // Tracks the signal and open goroutines

	connMu sync.Mutex
	conn   DBusClient // nil until a dial succeeds

	mu    sync.Mutex
	owner string // unique bus name of the player
	next  domain.ItemID
	cur   *item
}

// NewEngine creates an engine for the player named in cfg.
// The session bus is dialed on the first Load, and again on a later Load
// if that dial failed or the connection dropped.
func NewEngine(logger *zap.Logger, cfg domain.Config) *Engine {
	return newEngine(logger, cfg.GetPlayerName(), func() (DBusClient, error) {
		conn, err := NewStdDBusClient()
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func newEngine(logger *zap.Logger, player string, dial func() (DBusClient, error)) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		logger: logger,
		player: player,
		dial:   dial,
		bus:    observer.NewBus(logger, eventsBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Load asks the player to open rawURL. Readiness is reported once the
// player publishes metadata with a track length.
func (e *Engine) Load(rawURL string, startOffset float64) (domain.ItemID, error) {
	uri, err := toURI(rawURL)
	if err != nil {
		return 0, err
	}

	conn, connErr := e.connection()

	e.mu.Lock()
	e.next++
	id := e.next
	e.cur = &item{id: id, uri: uri, offset: startOffset}
	e.mu.Unlock()

	if connErr != nil {
		go e.fail(id, domain.CodeConnection, connErr)
		return id, nil
	}

	e.wg.Add(1)
	go e.open(conn, id, uri)
	return id, nil
}

// toURI turns bare paths into file URIs and rejects other schemes
func toURI(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || rawURL == "" {
		return "", domain.ErrInvalidURL
	}

	switch u.Scheme {
	case "file", "http", "https":
		return rawURL, nil
	case "":
		abs, err := filepath.Abs(rawURL)
		if err != nil {
			return "", fmt.Errorf("%w: %w", domain.ErrInvalidURL, err)
		}
		return (&url.URL{Scheme: "file", Path: abs}).String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}
}

// connection returns the live bus connection, dialing when there is none
func (e *Engine) connection() (DBusClient, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()

	if e.conn != nil {
		return e.conn, nil
	}
	conn, err := e.connect()
	if err != nil {
		return nil, err
	}
	e.conn = conn
	return conn, nil
}

// client returns the current connection without dialing; nil when disconnected
func (e *Engine) client() DBusClient {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.conn
}

// forget drops conn so the next Load dials again
func (e *Engine) forget(conn DBusClient) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn == conn {
		e.conn = nil
	}
}

// connect dials the session bus and subscribes to the player's signals
func (e *Engine) connect() (DBusClient, error) {
	conn, err := e.dial()
	if err != nil {
		e.logger.Error("Failed to connect to session bus", zap.Error(err))
		return nil, fmt.Errorf("session bus connection failed: %w", err)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(objectPath),
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
	); err != nil {
		if cerr := conn.Close(); cerr != nil {
			e.logger.Warn("Failed to close D-Bus connection", zap.Error(cerr))
		}
		return nil, fmt.Errorf("failed to add match signal: %w", err)
	}

	// Lets us notice the player quitting mid-item
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, e.player),
	); err != nil {
		e.logger.Warn("Failed to add NameOwnerChanged match signal", zap.Error(err))
	}

	e.wg.Add(1)
	go e.monitorSignals(conn)

	e.logger.Info("Connected to MPRIS player", zap.String("player", e.player))
	return conn, nil
}

func (e *Engine) open(conn DBusClient, id domain.ItemID, uri string) {
	defer e.wg.Done()

	owner, err := conn.GetNameOwner(e.player)
	if err != nil {
		e.fail(id, failureCode(err), fmt.Errorf("player %s is not on the bus: %w", e.player, err))
		return
	}
	e.mu.Lock()
	e.owner = owner
	e.mu.Unlock()

	if err := conn.Call(e.ctx, e.player, objectPath, playerInterface+".OpenUri", uri); err != nil {
		e.fail(id, failureCode(err), fmt.Errorf("OpenUri failed: %w", err))
		return
	}

	e.logger.Info("Item sent to player",
		zap.String("player", e.player),
		zap.String("uri", uri),
		zap.Uint64("item", uint64(id)))

	// The player may have published the new metadata before we asked
	variant, err := conn.GetProperty(e.player, objectPath, playerInterface+".Metadata")
	if err != nil {
		e.logger.Debug("Failed to read metadata after OpenUri", zap.Error(err))
		return
	}
	if metadata, ok := variant.Value().(map[string]dbus.Variant); ok {
		e.applyMetadata(metadata)
	}
}

func (e *Engine) fail(id domain.ItemID, code int, err error) {
	e.logger.Error("Failed to load item",
		zap.String("player", e.player),
		zap.Uint64("item", uint64(id)),
		zap.Int("code", code),
		zap.Error(err))

	e.mu.Lock()
	if e.cur != nil && e.cur.id == id {
		e.cur.ready = false
	}
	e.mu.Unlock()

	e.bus.Emit(domain.EngineEvent{Kind: domain.EventFailure, Item: id, Code: code, Err: err})
}

// failureCode maps D-Bus errors for an unreachable peer to the connection code
func failureCode(err error) int {
	if errors.Is(err, dbus.ErrClosed) || errors.Is(err, ErrPlayerGone) {
		return domain.CodeConnection
	}

	var value dbus.Error
	if errors.As(err, &value) && unreachableErrors[value.Name] {
		return domain.CodeConnection
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil && unreachableErrors[ptr.Name] {
		return domain.CodeConnection
	}
	return domain.CodeStream
}

// monitorSignals listens for D-Bus signals and processes them
func (e *Engine) monitorSignals(conn DBusClient) {
	defer e.wg.Done()

	signals := make(chan *dbus.Signal, 10)
	conn.Signal(signals)

	e.logger.Debug("Signal monitoring goroutine started")

	for {
		select {
		case <-e.ctx.Done():
			e.logger.Debug("Signal monitoring goroutine stopped")
			return
		case sig, ok := <-signals:
			if !ok {
				e.logger.Warn("Session bus connection lost")
				e.forget(conn)
				return
			}
			if sig == nil {
				continue
			}
			e.handleSignal(sig)
		}
	}
}

func (e *Engine) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case nameOwnerChanged:
		e.handleNameOwnerChanged(sig)
	case propertiesChanged:
		e.handlePropertiesChanged(sig)
	}
}

// handleNameOwnerChanged tracks the player's unique name and fails the
// current item when the player goes away
func (e *Engine) handleNameOwnerChanged(sig *dbus.Signal) {
	if len(sig.Body) < 3 {
		return
	}

	name, ok := sig.Body[0].(string)
	if !ok || name != e.player {
		return
	}
	newOwner, _ := sig.Body[2].(string)

	e.mu.Lock()
	e.owner = newOwner
	it := e.cur
	e.mu.Unlock()

	if newOwner != "" {
		e.logger.Info("MPRIS player appeared", zap.String("player", name), zap.String("unique", newOwner))
		return
	}

	e.logger.Warn("MPRIS player removed", zap.String("player", name))
	if it != nil {
		e.fail(it.id, domain.CodeConnection, ErrPlayerGone)
	}
}

func (e *Engine) handlePropertiesChanged(sig *dbus.Signal) {
	// PropertiesChanged signal has 3 arguments:
	// 1. Interface name (string)
	// 2. Changed properties (map[string]Variant)
	// 3. Invalidated properties ([]string)
	if len(sig.Body) < 2 {
		return
	}

	interfaceName, ok := sig.Body[0].(string)
	if !ok || interfaceName != playerInterface {
		return
	}

	changedProps, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	e.mu.Lock()
	owner := e.owner
	e.mu.Unlock()
	if sig.Sender != owner && sig.Sender != e.player {
		return
	}

	if variant, ok := changedProps["Metadata"]; ok {
		if metadata, ok := variant.Value().(map[string]dbus.Variant); ok {
			e.applyMetadata(metadata)
		} else {
			e.logger.Warn("Invalid metadata format in signal, ignoring")
		}
	}

	if variant, ok := changedProps["PlaybackStatus"]; ok {
		if status, ok := variant.Value().(string); ok {
			e.applyStatus(status)
		} else {
			e.logger.Warn("Invalid playback status format in signal, ignoring")
		}
	}
}

// applyMetadata marks the current item ready once its length is known
func (e *Engine) applyMetadata(metadata map[string]dbus.Variant) {
	length, ok := lengthOf(metadata)
	if !ok {
		return
	}

	e.mu.Lock()
	it := e.cur
	if it == nil || it.ready || !sameURI(metadata, it.uri) {
		e.mu.Unlock()
		return
	}
	it.ready = true
	it.duration = length
	if v, ok := metadata["mpris:trackid"]; ok {
		switch id := v.Value().(type) {
		case dbus.ObjectPath:
			it.trackID = id
		case string:
			it.trackID = dbus.ObjectPath(id)
		}
	}
	id, offset := it.id, it.offset
	e.mu.Unlock()

	// Players start on OpenUri; hold the item until Play is asked for
	e.call("Pause")
	if offset > 0 {
		e.Seek(offset)
	}

	e.logger.Info("Item ready on player",
		zap.Uint64("item", uint64(id)),
		zap.Float64("duration", length))
	e.bus.Emit(domain.EngineEvent{Kind: domain.EventReady, Item: id, Seconds: length})
}

// applyStatus reports EndOfItem when a playing item stops
func (e *Engine) applyStatus(status string) {
	e.mu.Lock()
	it := e.cur
	if it == nil || !it.ready {
		e.mu.Unlock()
		return
	}
	ended := status == "Stopped" && it.playing
	it.playing = status == "Playing"
	id, gate := it.id, it.ends
	e.mu.Unlock()

	if !ended {
		return
	}

	e.logger.Info("Item reached its end", zap.Uint64("item", uint64(id)))
	e.call("Pause")
	e.Seek(0)
	if gate != nil && gate.Open() {
		e.bus.Emit(domain.EngineEvent{Kind: domain.EventEndOfItem, Item: id})
	}
}

// lengthOf reads mpris:length (microseconds) in seconds
func lengthOf(metadata map[string]dbus.Variant) (float64, bool) {
	v, ok := metadata["mpris:length"]
	if !ok {
		return 0, false
	}
	us, ok := microseconds(v.Value())
	if !ok || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}

func microseconds(v any) (int64, bool) {
	// Players disagree on the integer type
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// sameURI accepts metadata without xesam:url, or whose url names uri
func sameURI(metadata map[string]dbus.Variant, uri string) bool {
	v, ok := metadata["xesam:url"]
	if !ok {
		return true
	}
	got, ok := v.Value().(string)
	if !ok || got == "" {
		return true
	}
	return unescape(got) == unescape(uri)
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// Play resumes the loaded item
func (e *Engine) Play() {
	if e.IsReadyToPlay() {
		e.call("Play")
	}
}

// Pause halts the loaded item
func (e *Engine) Pause() {
	if e.IsReadyToPlay() {
		e.call("Pause")
	}
}

// Seek moves the player to offset seconds within the current track
func (e *Engine) Seek(offset float64) {
	e.mu.Lock()
	it := e.cur
	if it == nil || !it.ready {
		e.mu.Unlock()
		return
	}
	trackID := it.trackID
	if offset < 0 {
		offset = 0
	}
	if offset > it.duration {
		offset = it.duration
	}
	e.mu.Unlock()

	if trackID == "" {
		e.logger.Warn("Player did not publish a track id, cannot seek", zap.Float64("offset", offset))
		return
	}
	e.call("SetPosition", trackID, int64(offset*1e6))
}

func (e *Engine) call(method string, args ...any) {
	conn := e.client()
	if conn == nil {
		return
	}
	if err := conn.Call(e.ctx, e.player, objectPath, playerInterface+"."+method, args...); err != nil {
		e.logger.Warn("Player call failed",
			zap.String("player", e.player),
			zap.String("method", method),
			zap.Error(err))
	}
}

// IsReadyToPlay reports whether the player has published the item's length
func (e *Engine) IsReadyToPlay() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cur != nil && e.cur.ready
}

// ObservePosition polls the player's Position property
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
	it := e.cur
	live := it != nil && it.id == id && it.ready
	e.mu.Unlock()
	conn := e.client()
	if !live || conn == nil {
		return 0, false
	}

	variant, err := conn.GetProperty(e.player, objectPath, playerInterface+".Position")
	if err != nil {
		e.logger.Debug("Failed to read position", zap.Error(err))
		return 0, false
	}
	us, ok := microseconds(variant.Value())
	if !ok {
		return 0, false
	}
	return float64(us) / 1e6, true
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

// Close stops signal monitoring and closes the D-Bus connection
func (e *Engine) Close() error {
	e.cancel()
	e.bus.Close()

	// Wait for producers before closing the connection they use
	e.wg.Wait()

	conn := e.client()
	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close D-Bus connection: %w", err)
	}
	e.logger.Info("MPRIS engine shutdown complete")
	return nil
}

var _ domain.Engine = (*Engine)(nil)
