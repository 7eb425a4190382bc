// Package tui renders the player widget in a terminal with tcell.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/genricoloni/audiobar/internal/domain"
	"github.com/genricoloni/audiobar/internal/timefmt"
	"github.com/mattn/go-runewidth"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	seekStep        = 5.0
	spinnerInterval = 120 * time.Millisecond
	helpText        = "space: play/pause  ←/→: seek 5s  click: seek  q: quit"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// View draws the player row and turns keys and clicks into player intents
type View struct {
	logger     *zap.Logger
	screen     tcell.Screen
	player     domain.Player
	shutdowner fx.Shutdowner

	mu     sync.Mutex
	status string
	frame  int
	track  bounds // where the last draw put the slider

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// bounds is the slider's row and column span
type bounds struct {
	row, start, width int
}

// NewView creates a view over screen; Start initialises the terminal
func NewView(logger *zap.Logger, screen tcell.Screen, player domain.Player, shutdowner fx.Shutdowner) *View {
	return &View{
		logger:     logger,
		screen:     screen,
		player:     player,
		shutdowner: shutdowner,
		done:       make(chan struct{}),
	}
}

// Start takes over the terminal and begins handling input and updates
func (v *View) Start() error {
	if err := v.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialise terminal: %w", err)
	}
	v.screen.SetStyle(tcell.StyleDefault)
	v.screen.EnableMouse()
	v.draw()

	v.wg.Add(2)
	go v.pollInput()
	go v.watchUpdates()

	v.logger.Info("Terminal view started")
	return nil
}

// Stop restores the terminal and waits for the view goroutines
func (v *View) Stop() {
	v.stopOnce.Do(func() {
		close(v.done)
		// Fini makes PollEvent return nil
		v.screen.Fini()
	})
	v.wg.Wait()
	v.logger.Info("Terminal view stopped")
}

func (v *View) pollInput() {
	defer v.wg.Done()
	for {
		ev := v.screen.PollEvent()
		if ev == nil {
			return
		}
		v.handleEvent(ev)
	}
}

func (v *View) watchUpdates() {
	defer v.wg.Done()

	spinner := time.NewTicker(spinnerInterval)
	defer spinner.Stop()

	for {
		select {
		case <-v.done:
			return
		case n := <-v.player.Updates():
			v.apply(n)
			v.draw()
		case <-spinner.C:
			if v.player.Snapshot().State != domain.StateLoading {
				continue
			}
			v.mu.Lock()
			v.frame = (v.frame + 1) % len(spinnerFrames)
			v.mu.Unlock()
			v.draw()
		}
	}
}

// apply keeps the status line in step with notifications
func (v *View) apply(n domain.Notification) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch {
	case n.Failure != nil:
		v.status = failureText(n.Failure)
	case n.Kind == domain.StateChanged && n.Snapshot.State == domain.StateLoading:
		v.status = ""
	case n.Kind == domain.Buffered:
		v.logger.Debug("Playback under way", zap.Float64("progress", n.Snapshot.Progress))
	}
}

func failureText(f *domain.PlaybackFailure) string {
	switch {
	case errors.Is(f, domain.ErrConnection):
		return "Connection error: check the network and press space to retry"
	default:
		return "Stream error: the item could not be played"
	}
}

// handleEvent maps one terminal event to an intent
func (v *View) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.draw()

	case *tcell.EventKey:
		v.handleKey(ev)

	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 {
			return
		}
		x, y := ev.Position()
		v.mu.Lock()
		track := v.track
		v.mu.Unlock()
		if y != track.row || x < track.start || x >= track.start+track.width {
			return
		}
		snap := v.player.Snapshot()
		// Brackets count as the ends of the track
		target := ValueAt(RatioAt(x-track.start-1, track.width-2), snap.Duration, 1)
		v.logger.Debug("Seek by click", zap.Int("column", x), zap.Float64("seconds", target))
		v.player.DragSeek(target)
	}
}

func (v *View) handleKey(ev *tcell.EventKey) {
	snap := v.player.Snapshot()

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		v.quit()
	case tcell.KeyEnter:
		v.toggle(snap)
	case tcell.KeyLeft:
		v.player.DragSeek(snap.Progress - seekStep)
	case tcell.KeyRight:
		v.player.DragSeek(snap.Progress + seekStep)
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			v.toggle(snap)
		case 'q', 'Q':
			v.quit()
		}
	}
}

func (v *View) toggle(snap domain.Snapshot) {
	if snap.State == domain.StatePlaying {
		v.player.TapPause()
		return
	}
	v.player.TapPlay()
}

func (v *View) quit() {
	v.logger.Info("Quit requested from terminal")
	if err := v.shutdowner.Shutdown(); err != nil {
		v.logger.Error("Failed to request shutdown", zap.Error(err))
	}
}

// draw renders the player row, the status line and the help line
func (v *View) draw() {
	snap := v.player.Snapshot()

	v.mu.Lock()
	defer v.mu.Unlock()

	s := v.screen
	w, h := s.Size()
	s.Clear()

	row := h / 2
	x := 1

	icon := v.icon(snap.State)
	emitStr(s, x, row, tcell.StyleDefault.Bold(true), icon)
	x += max(runewidth.StringWidth(icon), 2) + 1

	// Labels get a fixed width so the track does not jump as digits change
	labelWidth := max(runewidth.StringWidth(timefmt.FormatElapsed(snap.Duration)), 4)
	elapsed := timefmt.FormatElapsed(snap.Progress)
	remaining := timefmt.FormatRemaining(snap.Progress, snap.Duration)

	emitStr(s, x+labelWidth-runewidth.StringWidth(elapsed), row, tcell.StyleDefault, elapsed)
	x += labelWidth + 1

	remainingX := w - 1 - labelWidth
	track := bounds{row: row, start: x, width: remainingX - 1 - x}
	if track.width > 0 {
		drawTrack(s, track, Ratio(snap.Progress, snap.Duration))
	} else {
		track.width = 0
	}
	v.track = track

	emitStr(s, remainingX, row, tcell.StyleDefault, remaining)

	if v.status != "" {
		emitStr(s, 1, row+2, tcell.StyleDefault.Foreground(tcell.ColorRed), v.status)
	}
	emitStr(s, 1, row+3, tcell.StyleDefault.Dim(true), helpText)

	s.Show()
}

func (v *View) icon(state domain.PlaybackState) string {
	switch state {
	case domain.StatePlaying:
		return "❚❚"
	case domain.StateLoading:
		return spinnerFrames[v.frame]
	default:
		return "▶"
	}
}

// drawTrack renders [====o-----] filled up to ratio
func drawTrack(s tcell.Screen, b bounds, ratio float64) {
	inner := b.width - 2
	if inner <= 0 {
		return
	}
	knob := int(ratio * float64(inner-1))

	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < inner; i++ {
		switch {
		case i < knob:
			sb.WriteByte('=')
		case i == knob:
			sb.WriteByte('o')
		default:
			sb.WriteByte('-')
		}
	}
	sb.WriteByte(']')
	emitStr(s, b.start, b.row, tcell.StyleDefault, sb.String())
}

func emitStr(s tcell.Screen, x, y int, style tcell.Style, str string) {
	for _, c := range str {
		var comb []rune
		w := runewidth.RuneWidth(c)
		if w == 0 {
			comb = []rune{c}
			c = ' '
			w = 1
		}
		s.SetContent(x, y, c, comb, style)
		x += w
	}
}
