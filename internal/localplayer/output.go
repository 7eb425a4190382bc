package localplayer

import (
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Output is the sink decoded audio is mixed into.
// Lock must be held while touching a streamer that is playing.
type Output interface {
	Init(rate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

// SpeakerOutput plays through the default sound card
type SpeakerOutput struct{}

// NewSpeakerOutput returns the sound card output
func NewSpeakerOutput() *SpeakerOutput {
	return &SpeakerOutput{}
}

// Init opens the sound card with a 100ms buffer
func (SpeakerOutput) Init(rate beep.SampleRate) error {
	return speaker.Init(rate, rate.N(100*time.Millisecond))
}

func (SpeakerOutput) Play(s beep.Streamer) { speaker.Play(s) }
func (SpeakerOutput) Clear()               { speaker.Clear() }
func (SpeakerOutput) Lock()                { speaker.Lock() }
func (SpeakerOutput) Unlock()              { speaker.Unlock() }
