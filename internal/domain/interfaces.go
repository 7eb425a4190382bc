package domain

import (
	"context"
	"time"
)

// Engine defines the media playback engine the controller drives.
// Commands return immediately; results arrive later on Events.
//
//go:generate mockgen -destination=mocks/engine_mock.go -package=mocks github.com/genricoloni/audiobar/internal/domain Engine,Subscription
type Engine interface {
	// Load starts loading url asynchronously, positioned at startOffset seconds.
	// It returns ErrInvalidURL, and does nothing else, when url is malformed.
	Load(url string, startOffset float64) (ItemID, error)

	// Play resumes playback of the loaded item
	Play()

	// Pause halts playback, keeping the position
	Pause()

	// Seek moves the playback cursor to offset seconds
	Seek(offset float64)

	// IsReadyToPlay reports whether the loaded item can start immediately
	IsReadyToPlay() bool

	// ObservePosition emits a Tick every interval until the subscription is canceled
	ObservePosition(interval time.Duration) Subscription

	// ObserveEnd emits EndOfItem for the current item until canceled
	ObserveEnd() Subscription

	// Events returns the channel engine notifications are delivered on
	Events() <-chan EngineEvent

	// Close releases the engine
	Close() error
}

// Subscription is a cancelable observer registration
type Subscription interface {
	// Cancel stops the observer. It is safe to call more than once.
	Cancel()
}

// Player is what the UI talks to
type Player interface {
	// Snapshot returns the current state, progress and duration
	Snapshot() Snapshot

	// Updates emits a Notification after every change
	Updates() <-chan Notification

	TapPlay()
	TapPause()
	DragSeek(seconds float64)
}

// Fetcher defines the interface for retrieving remote audio
type Fetcher interface {
	// Fetch downloads the item at url
	// Returns the raw bytes, the content type or an error
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Config defines the interface for application configuration
type Config interface {
	// GetSourceURL returns the item the player loads
	GetSourceURL() string

	// GetBackend returns the engine implementation name ("local" or "mpris")
	GetBackend() string

	// GetPlayerName returns the MPRIS bus name of the remote player
	GetPlayerName() string

	// GetTickInterval returns the position tick cadence
	GetTickInterval() time.Duration

	// GetLogFile returns where the application log is written
	GetLogFile() string
}
