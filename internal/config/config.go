package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/genricoloni/audiobar/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultBackend      = BackendLocal
	defaultPlayerName   = "org.mpris.MediaPlayer2.vlc"
	defaultTickInterval = 500 * time.Millisecond
	defaultLogFileName  = "audiobar.log"
)

// Playback backends
const (
	BackendLocal = "local"
	BackendMPRIS = "mpris"
)

// ErrMissingURL is returned when AUDIOBAR_URL is not set
var ErrMissingURL = errors.New("AUDIOBAR_URL is not set")

// AppConfig holds application configuration
type AppConfig struct {
	sourceURL    string
	backend      string
	playerName   string
	tickInterval time.Duration
	logFile      string
}

// NewAppConfig reads the configuration from the environment.
// The logger is built from it, so it cannot log by itself; see Fields.
func NewAppConfig() (*AppConfig, error) {
	sourceURL := strings.TrimSpace(os.Getenv("AUDIOBAR_URL"))
	if sourceURL == "" {
		return nil, ErrMissingURL
	}

	backend := strings.ToLower(os.Getenv("AUDIOBAR_BACKEND"))
	switch backend {
	case "":
		backend = defaultBackend
	case BackendLocal, BackendMPRIS:
	default:
		return nil, fmt.Errorf("unknown AUDIOBAR_BACKEND %q (want %q or %q)", backend, BackendLocal, BackendMPRIS)
	}

	playerName := os.Getenv("AUDIOBAR_MPRIS_PLAYER")
	if playerName == "" {
		playerName = defaultPlayerName
	}

	tickInterval := defaultTickInterval
	if raw := os.Getenv("AUDIOBAR_TICK_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid AUDIOBAR_TICK_INTERVAL: %w", err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid AUDIOBAR_TICK_INTERVAL: %s is not positive", d)
		}
		tickInterval = d
	}

	logFile := os.Getenv("AUDIOBAR_LOG_FILE")
	if logFile == "" {
		logFile = filepath.Join(os.TempDir(), defaultLogFileName)
	}

	return &AppConfig{
		sourceURL:    sourceURL,
		backend:      backend,
		playerName:   playerName,
		tickInterval: tickInterval,
		logFile:      expandPath(logFile),
	}, nil
}

// expandPath expands environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

// Fields describes the configuration for the startup log line
func (c *AppConfig) Fields() []zap.Field {
	return []zap.Field{
		zap.String("url", c.sourceURL),
		zap.String("backend", c.backend),
		zap.String("player", c.playerName),
		zap.Duration("tickInterval", c.tickInterval),
		zap.String("logFile", c.logFile),
	}
}

// GetSourceURL returns the item to play
func (c *AppConfig) GetSourceURL() string {
	return c.sourceURL
}

// GetBackend returns the playback backend, local or mpris
func (c *AppConfig) GetBackend() string {
	return c.backend
}

// GetPlayerName returns the bus name of the remote MPRIS player
func (c *AppConfig) GetPlayerName() string {
	return c.playerName
}

// GetTickInterval returns the progress tick cadence
func (c *AppConfig) GetTickInterval() time.Duration {
	return c.tickInterval
}

// GetLogFile returns where the application log is written
func (c *AppConfig) GetLogFile() string {
	return c.logFile
}

var _ domain.Config = (*AppConfig)(nil)
