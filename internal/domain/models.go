package domain

import (
	"errors"
	"fmt"
)

// PlaybackState represents what the player widget currently displays
type PlaybackState int

const (
	// StateReadyToPlay shows the play button; nothing is audible
	StateReadyToPlay PlaybackState = iota
	// StateLoading shows the spinner while the engine prepares an item
	StateLoading
	// StatePlaying shows the pause button while audio is running
	StatePlaying
)

// String returns a human-readable label for the state
func (s PlaybackState) String() string {
	switch s {
	case StateReadyToPlay:
		return "ReadyToPlay"
	case StateLoading:
		return "Loading"
	case StatePlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Snapshot is the state, progress and duration the UI renders from
type Snapshot struct {
	// State is the single visible state
	State PlaybackState
	// Progress is the playback position in seconds
	Progress float64
	// Duration is the length of the loaded item in seconds (0 when unknown)
	Duration float64
}

// ItemID identifies one call to Engine.Load. Zero means no item.
type ItemID uint64

// Engine error codes reported with a failure
const (
	CodeConnection = -1009
	CodeStream     = -1102
)

// FailureKind classifies a playback failure
type FailureKind int

const (
	// ConnectionError means the item could not be reached
	ConnectionError FailureKind = iota
	// StreamError means the item was reached but could not be played
	StreamError
)

func (k FailureKind) String() string {
	if k == ConnectionError {
		return "ConnectionError"
	}
	return "StreamError"
}

var (
	// ErrConnection matches any PlaybackFailure of kind ConnectionError
	ErrConnection = errors.New("connection error")
	// ErrStream matches any PlaybackFailure of kind StreamError
	ErrStream = errors.New("stream error")
	// ErrInvalidURL is returned by Engine.Load for a malformed URL
	ErrInvalidURL = errors.New("invalid url")
)

// PlaybackFailure is a load failure reported by the engine
type PlaybackFailure struct {
	Kind FailureKind
	Code int
	Err  error
}

// NewPlaybackFailure classifies an engine error code.
// Only CodeConnection is a connection error, every other code is a stream error.
func NewPlaybackFailure(code int, cause error) *PlaybackFailure {
	kind := StreamError
	if code == CodeConnection {
		kind = ConnectionError
	}
	return &PlaybackFailure{Kind: kind, Code: code, Err: cause}
}

func (f *PlaybackFailure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s (code %d): %v", f.Kind, f.Code, f.Err)
	}
	return fmt.Sprintf("%s (code %d)", f.Kind, f.Code)
}

// Unwrap returns the engine cause
func (f *PlaybackFailure) Unwrap() error {
	return f.Err
}

// Is reports whether target is the sentinel for this failure's kind
func (f *PlaybackFailure) Is(target error) bool {
	switch target {
	case ErrConnection:
		return f.Kind == ConnectionError
	case ErrStream:
		return f.Kind == StreamError
	}
	return false
}

// EngineEventKind tells which notification an EngineEvent carries
type EngineEventKind int

const (
	// EventReady carries the item duration in Seconds
	EventReady EngineEventKind = iota
	// EventFailure carries the engine error Code and cause
	EventFailure
	// EventTick carries the current position in Seconds
	EventTick
	// EventEndOfItem has no payload
	EventEndOfItem
)

func (k EngineEventKind) String() string {
	switch k {
	case EventReady:
		return "Ready"
	case EventFailure:
		return "Failure"
	case EventTick:
		return "Tick"
	case EventEndOfItem:
		return "EndOfItem"
	default:
		return "Unknown"
	}
}

// EngineEvent is an asynchronous notification from the playback engine
type EngineEvent struct {
	Kind    EngineEventKind
	Item    ItemID
	Seconds float64
	Code    int
	Err     error
}

// NotificationKind tells what changed in a Notification
type NotificationKind int

const (
	// StateChanged is sent after every state transition
	StateChanged NotificationKind = iota
	// ProgressChanged is sent after progress moves
	ProgressChanged
	// DurationKnown is sent when the engine reports the item length
	DurationKnown
	// Failed is sent when a load fails
	Failed
	// Buffered is sent once per load, on the first position tick while playing
	Buffered
)

// Notification is emitted by the controller after each change
type Notification struct {
	Kind     NotificationKind
	Snapshot Snapshot
	// Failure is set for Failed notifications only
	Failure *PlaybackFailure
}
