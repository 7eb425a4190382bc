package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/genricoloni/audiobar/internal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// fakePlayer records intents and serves a fixed snapshot
type fakePlayer struct {
	mu      sync.Mutex
	snap    domain.Snapshot
	updates chan domain.Notification
	intents []string
	seeks   []float64
}

func newFakePlayer(snap domain.Snapshot) *fakePlayer {
	return &fakePlayer{snap: snap, updates: make(chan domain.Notification, 4)}
}

func (p *fakePlayer) Snapshot() domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *fakePlayer) Updates() <-chan domain.Notification { return p.updates }
func (p *fakePlayer) TapPlay()                            { p.record("play") }
func (p *fakePlayer) TapPause()                           { p.record("pause") }

func (p *fakePlayer) DragSeek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, "seek")
	p.seeks = append(p.seeks, seconds)
}

func (p *fakePlayer) record(intent string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents = append(p.intents, intent)
}

func (p *fakePlayer) recorded() ([]string, []float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.intents...), append([]float64(nil), p.seeks...)
}

type fakeShutdowner struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeShutdowner) Shutdown(...fx.ShutdownOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return nil
}

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init simulation screen: %v", err)
	}
	screen.SetSize(60, 10)
	t.Cleanup(screen.Fini)
	return screen
}

func rowText(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	var sb strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := screen.GetContent(x, y)
		sb.WriteRune(r)
	}
	return sb.String()
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		name           string
		state          domain.PlaybackState
		event          *tcell.EventKey
		expectedIntent string
		expectedSeek   float64
		expectQuit     bool
	}{
		{"Space While Ready", domain.StateReadyToPlay, tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "play", 0, false},
		{"Space While Playing", domain.StatePlaying, tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "pause", 0, false},
		{"Enter While Loading", domain.StateLoading, tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "play", 0, false},
		{"Left Seeks Back", domain.StatePlaying, tcell.NewEventKey(tcell.KeyLeft, 0, tcell.ModNone), "seek", 37, false},
		{"Right Seeks Forward", domain.StatePlaying, tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone), "seek", 47, false},
		{"Q Quits", domain.StatePlaying, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), "", 0, true},
		{"Escape Quits", domain.StateReadyToPlay, tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "", 0, true},
		{"Other Rune Ignored", domain.StatePlaying, tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := newFakePlayer(domain.Snapshot{State: tt.state, Progress: 42, Duration: 180})
			shutdowner := &fakeShutdowner{}
			v := NewView(zap.NewNop(), newSimScreen(t), player, shutdowner)

			v.handleEvent(tt.event)

			intents, seeks := player.recorded()
			if tt.expectedIntent == "" {
				if len(intents) != 0 {
					t.Errorf("expected no intent, got %v", intents)
				}
			} else {
				if len(intents) != 1 || intents[0] != tt.expectedIntent {
					t.Fatalf("expected intent %q, got %v", tt.expectedIntent, intents)
				}
				if tt.expectedIntent == "seek" && seeks[0] != tt.expectedSeek {
					t.Errorf("seek: expected %v, got %v", tt.expectedSeek, seeks[0])
				}
			}

			if quit := shutdowner.calls > 0; quit != tt.expectQuit {
				t.Errorf("quit: expected %v, got %v", tt.expectQuit, quit)
			}
		})
	}
}

func TestDraw_PlayerRow(t *testing.T) {
	tests := []struct {
		name     string
		snap     domain.Snapshot
		contains []string
	}{
		{
			name:     "Playing",
			snap:     domain.Snapshot{State: domain.StatePlaying, Progress: 65, Duration: 180},
			contains: []string{"❚❚", "1:05", "1:55", "=o-"},
		},
		{
			name:     "Ready At Start",
			snap:     domain.Snapshot{State: domain.StateReadyToPlay},
			contains: []string{"▶", "0:00", "[o-"},
		},
		{
			name:     "Finished Track Full",
			snap:     domain.Snapshot{State: domain.StateReadyToPlay, Progress: 60, Duration: 60},
			contains: []string{"1:00", "0:00", "==o]"},
		},
		{
			name:     "Loading",
			snap:     domain.Snapshot{State: domain.StateLoading},
			contains: []string{spinnerFrames[0]},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			screen := newSimScreen(t)
			v := NewView(zap.NewNop(), screen, newFakePlayer(tt.snap), &fakeShutdowner{})

			v.draw()

			_, h := screen.Size()
			row := rowText(screen, h/2)
			for _, want := range tt.contains {
				if !strings.Contains(row, want) {
					t.Errorf("row %q does not contain %q", row, want)
				}
			}
			if help := rowText(screen, h/2+3); !strings.Contains(help, "q: quit") {
				t.Errorf("help line missing, got %q", help)
			}
		})
	}
}

func TestMouseClick_SeeksAlongTrack(t *testing.T) {
	screen := newSimScreen(t)
	player := newFakePlayer(domain.Snapshot{State: domain.StatePlaying, Progress: 10, Duration: 180})
	v := NewView(zap.NewNop(), screen, player, &fakeShutdowner{})
	v.draw()

	track := v.track
	first := track.start + 1
	last := track.start + track.width - 2

	v.handleEvent(tcell.NewEventMouse(first, track.row, tcell.Button1, tcell.ModNone))
	v.handleEvent(tcell.NewEventMouse(last, track.row, tcell.Button1, tcell.ModNone))
	v.handleEvent(tcell.NewEventMouse(first, track.row+1, tcell.Button1, tcell.ModNone)) // off the row
	v.handleEvent(tcell.NewEventMouse(last, track.row, tcell.ButtonNone, tcell.ModNone)) // motion only

	_, seeks := player.recorded()
	if len(seeks) != 2 {
		t.Fatalf("expected 2 seeks, got %v", seeks)
	}
	if seeks[0] != 0 || seeks[1] != 180 {
		t.Errorf("expected seeks [0 180], got %v", seeks)
	}
}

func TestApply_StatusLine(t *testing.T) {
	v := NewView(zap.NewNop(), newSimScreen(t), newFakePlayer(domain.Snapshot{}), &fakeShutdowner{})

	v.apply(domain.Notification{
		Kind:    domain.Failed,
		Failure: domain.NewPlaybackFailure(domain.CodeConnection, errors.New("offline")),
	})
	if !strings.HasPrefix(v.status, "Connection error") {
		t.Errorf("expected connection error status, got %q", v.status)
	}

	v.apply(domain.Notification{
		Kind:    domain.Failed,
		Failure: domain.NewPlaybackFailure(domain.CodeStream, errors.New("bad frame")),
	})
	if !strings.HasPrefix(v.status, "Stream error") {
		t.Errorf("expected stream error status, got %q", v.status)
	}

	// A retry clears the message
	v.apply(domain.Notification{
		Kind:     domain.StateChanged,
		Snapshot: domain.Snapshot{State: domain.StateLoading},
	})
	if v.status != "" {
		t.Errorf("expected status cleared on reload, got %q", v.status)
	}
}

func TestStartStop_HandlesInjectedInput(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	player := newFakePlayer(domain.Snapshot{State: domain.StateReadyToPlay, Duration: 30})
	v := NewView(zap.NewNop(), screen, player, &fakeShutdowner{})

	if err := v.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	player.updates <- domain.Notification{Kind: domain.DurationKnown, Snapshot: player.Snapshot()}
	screen.InjectKey(tcell.KeyRune, ' ', tcell.ModNone)

	deadline := time.After(1 * time.Second)
	for {
		intents, _ := player.recorded()
		if len(intents) == 1 && intents[0] == "play" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("Timeout: injected key was not handled, intents %v", intents)
		case <-time.After(5 * time.Millisecond):
		}
	}

	stopped := make(chan struct{})
	go func() {
		v.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout: Stop did not return")
	}
}
