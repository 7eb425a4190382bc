package localplayer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/genricoloni/audiobar/internal/domain"
	"github.com/genricoloni/audiobar/internal/fetcher"
	"go.uber.org/zap"
)

// fakeOutput stands in for the sound card; drain plays the mixer by hand
type fakeOutput struct {
	mu      sync.Mutex // the "speaker" lock
	pmu     sync.Mutex
	initErr error
	inits   int
	playing []beep.Streamer
}

func (f *fakeOutput) Lock()   { f.mu.Lock() }
func (f *fakeOutput) Unlock() { f.mu.Unlock() }

func (f *fakeOutput) Init(beep.SampleRate) error {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	f.inits++
	return f.initErr
}

func (f *fakeOutput) setInitErr(err error) {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	f.initErr = err
}

func (f *fakeOutput) initCount() int {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	return f.inits
}

func (f *fakeOutput) Play(s beep.Streamer) {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	f.playing = append(f.playing, s)
}

func (f *fakeOutput) Clear() {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	f.playing = nil
}

func (f *fakeOutput) last() beep.Streamer {
	f.pmu.Lock()
	defer f.pmu.Unlock()
	if len(f.playing) == 0 {
		return nil
	}
	return f.playing[len(f.playing)-1]
}

// drain streams the most recently queued streamer until it is exhausted
func (f *fakeOutput) drain(t *testing.T) {
	t.Helper()
	s := f.last()
	if s == nil {
		t.Fatal("nothing queued on the output")
	}
	buf := make([][2]float64, 1024)
	for i := 0; i < 100000; i++ {
		f.mu.Lock()
		_, ok := s.Stream(buf)
		f.mu.Unlock()
		if !ok {
			return
		}
	}
	t.Fatal("streamer never finished")
}

type stubFetcher struct {
	data      []byte
	mediaType string
	err       error
}

func (s *stubFetcher) Fetch(context.Context, string) ([]byte, string, error) {
	return s.data, s.mediaType, s.err
}

// writeWAV writes secs of stereo silence at 8kHz and returns the path
func writeWAV(t *testing.T, secs float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	format := beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}
	n := format.SampleRate.N(seconds(secs))
	if err := wav.Encode(f, beep.Silence(n), format); err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	return path
}

func waitEvent(t *testing.T, e *Engine, kind domain.EngineEventKind) domain.EngineEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-e.Events():
			if ev.Kind == kind {
				return ev
			}
		case <-timeout:
			t.Fatalf("Timeout: no %v event", kind)
		}
	}
}

func newTestEngine(t *testing.T, fetch domain.Fetcher) (*Engine, *fakeOutput) {
	t.Helper()
	out := &fakeOutput{}
	e := NewEngine(zap.NewNop(), fetch, out)
	t.Cleanup(func() { _ = e.Close() })
	return e, out
}

func TestLoad_InvalidURL(t *testing.T) {
	e, _ := newTestEngine(t, &stubFetcher{})

	for _, raw := range []string{"", "ftp://example.com/a.mp3", "http://[::1"} {
		t.Run(raw, func(t *testing.T) {
			id, err := e.Load(raw, 0)
			if !errors.Is(err, domain.ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL, got %v", err)
			}
			if id != 0 {
				t.Errorf("expected no item, got %d", id)
			}
		})
	}
}

func TestLoad_LocalWAV(t *testing.T) {
	path := writeWAV(t, 1)

	for _, raw := range []string{path, "file://" + path} {
		t.Run(raw, func(t *testing.T) {
			e, _ := newTestEngine(t, &stubFetcher{})

			id, err := e.Load(raw, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ev := waitEvent(t, e, domain.EventReady)
			if ev.Item != id {
				t.Errorf("Item: expected %d, got %d", id, ev.Item)
			}
			if math.Abs(ev.Seconds-1) > 0.01 {
				t.Errorf("Duration: expected 1s, got %v", ev.Seconds)
			}
			if !e.IsReadyToPlay() {
				t.Error("engine should be ready after Ready event")
			}
		})
	}
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		fetch        *stubFetcher
		expectedCode int
	}{
		{
			name:         "Missing File",
			url:          filepath.Join(os.TempDir(), "audiobar-does-not-exist.wav"),
			fetch:        &stubFetcher{},
			expectedCode: domain.CodeStream,
		},
		{
			name:         "Network Unreachable",
			url:          "https://example.com/a.mp3",
			fetch:        &stubFetcher{err: fmt.Errorf("%w: dial tcp: no route", fetcher.ErrUnreachable)},
			expectedCode: domain.CodeConnection,
		},
		{
			name:         "Not Audio",
			url:          "https://example.com/a.mp3",
			fetch:        &stubFetcher{err: fetcher.ErrNotAudio},
			expectedCode: domain.CodeStream,
		},
		{
			name:         "Undecodable Payload",
			url:          "https://example.com/blob",
			fetch:        &stubFetcher{data: []byte("definitely not audio"), mediaType: "application/octet-stream"},
			expectedCode: domain.CodeStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, tt.fetch)

			id, err := e.Load(tt.url, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ev := waitEvent(t, e, domain.EventFailure)
			if ev.Item != id {
				t.Errorf("Item: expected %d, got %d", id, ev.Item)
			}
			if ev.Code != tt.expectedCode {
				t.Errorf("Code: expected %d, got %d", tt.expectedCode, ev.Code)
			}
			if e.IsReadyToPlay() {
				t.Error("engine should not be ready after a failure")
			}
		})
	}
}

func TestLoad_OutputUnavailable(t *testing.T) {
	out := &fakeOutput{initErr: errors.New("no sound card")}
	e := NewEngine(zap.NewNop(), &stubFetcher{}, out)
	defer e.Close()

	if _, err := e.Load(writeWAV(t, 1), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := waitEvent(t, e, domain.EventFailure); ev.Code != domain.CodeStream {
		t.Errorf("Code: expected %d, got %d", domain.CodeStream, ev.Code)
	}
}

func TestLoad_OutputRetriedUntilInitialised(t *testing.T) {
	out := &fakeOutput{initErr: errors.New("sound card busy")}
	e := NewEngine(zap.NewNop(), &stubFetcher{}, out)
	defer e.Close()
	path := writeWAV(t, 1)

	if _, err := e.Load(path, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitEvent(t, e, domain.EventFailure)

	out.setInitErr(nil)
	id, err := e.Load(path, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := waitEvent(t, e, domain.EventReady); ev.Item != id {
		t.Errorf("Item: expected %d, got %d", id, ev.Item)
	}

	// Once open, the output is not initialised again
	if _, err := e.Load(path, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitEvent(t, e, domain.EventReady)
	if got := out.initCount(); got != 2 {
		t.Errorf("Init calls: expected 2, got %d", got)
	}
}

func TestPlayback_EndOfItemRewinds(t *testing.T) {
	e, out := newTestEngine(t, &stubFetcher{})

	id, err := e.Load(writeWAV(t, 0.25), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitEvent(t, e, domain.EventReady)

	ends := e.ObserveEnd()
	defer ends.Cancel()

	e.Play()
	out.drain(t)

	ev := waitEvent(t, e, domain.EventEndOfItem)
	if ev.Item != id {
		t.Errorf("Item: expected %d, got %d", id, ev.Item)
	}
	if !e.IsReadyToPlay() {
		t.Error("finished item should stay ready for replay")
	}
	if pos, ok := e.position(id); !ok || pos != 0 {
		t.Errorf("position after end: expected 0, got %v (ok=%v)", pos, ok)
	}
}

func TestSeekAndObservePosition(t *testing.T) {
	e, _ := newTestEngine(t, &stubFetcher{})

	id, err := e.Load(writeWAV(t, 2), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitEvent(t, e, domain.EventReady)

	e.Seek(1.5)
	if pos, _ := e.position(id); math.Abs(pos-1.5) > 0.01 {
		t.Errorf("position after Seek: expected 1.5, got %v", pos)
	}

	e.Seek(99) // clamped to the end
	if pos, _ := e.position(id); math.Abs(pos-2) > 0.01 {
		t.Errorf("position after Seek past end: expected 2, got %v", pos)
	}

	sub := e.ObservePosition(5 * time.Millisecond)
	ev := waitEvent(t, e, domain.EventTick)
	sub.Cancel()

	if ev.Item != id {
		t.Errorf("Tick Item: expected %d, got %d", id, ev.Item)
	}
}

func TestStartOffset(t *testing.T) {
	e, _ := newTestEngine(t, &stubFetcher{})

	id, err := e.Load(writeWAV(t, 2), 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitEvent(t, e, domain.EventReady)

	if pos, _ := e.position(id); math.Abs(pos-0.5) > 0.01 {
		t.Errorf("position: expected 0.5, got %v", pos)
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		header   []byte
		hint     string
		expected format
	}{
		{"WAV Magic", []byte("RIFF\x00\x00\x00\x00WAVE"), "", formatWAV},
		{"FLAC Magic", []byte("fLaC\x00\x00\x00\x22"), "", formatFLAC},
		{"MP3 ID3", []byte("ID3\x04\x00"), "", formatMP3},
		{"MP3 Frame Sync", []byte{0xFF, 0xFB, 0x90, 0x00}, "", formatMP3},
		{"Media Type", []byte("????"), "audio/x-flac /stream", formatFLAC},
		{"Extension", []byte("????"), "/music/song.mp3", formatMP3},
		{"Unknown", []byte("????"), "/music/song.txt", formatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detect(tt.header, tt.hint); got != tt.expected {
				t.Errorf("detect: expected %v, got %v", tt.expected, got)
			}
		})
	}
}
