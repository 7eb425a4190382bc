package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	_maxAudioSize = 200 * 1024 * 1024 // 200 MB
	_retryMax     = 2
)

var (
	// ErrUnreachable wraps transport failures: DNS, refused connections, timeouts
	ErrUnreachable = errors.New("item unreachable")
	// ErrNotAudio is returned when the response is not an audio payload
	ErrNotAudio = errors.New("url is not audio")
)

// HTTPFetcher downloads audio items from HTTP/HTTPS URLs
type HTTPFetcher struct {
	logger *zap.Logger
	client *http.Client
}

// NewHTTPFetcher creates a new HTTP-based fetcher instance.
// Transport failures and 5xx replies are retried a couple of times before giving up.
func NewHTTPFetcher(logger *zap.Logger) *HTTPFetcher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = _retryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 1 * time.Second
	retryClient.Logger = retryLogger{sugar: logger.Named("http").Sugar()}
	retryClient.HTTPClient = &http.Client{
		Timeout: 60 * time.Second,
	}
	// Hand the last response back so status codes are reported as such
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{
		logger: logger,
		client: retryClient.StandardClient(),
	}
}

// Fetch downloads the audio at url and returns its bytes and media type
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "audiobar/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	mediaType := resp.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	}
	if !isAudio(mediaType) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotAudio, mediaType)
	}

	// Read one byte past the limit to tell a full body from a truncated one
	data, err := io.ReadAll(io.LimitReader(resp.Body, _maxAudioSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to read body: %w", ErrUnreachable, err)
	}
	if len(data) > _maxAudioSize {
		return nil, "", fmt.Errorf("item exceeds %d bytes", _maxAudioSize)
	}

	f.logger.Debug("Audio fetched successfully",
		zap.Int("bytes", len(data)),
		zap.String("type", mediaType),
		zap.String("url", url))
	return data, mediaType, nil
}

func isAudio(mediaType string) bool {
	switch {
	case strings.HasPrefix(mediaType, "audio/"):
		return true
	case mediaType == "application/ogg", mediaType == "application/octet-stream":
		return true
	}
	return false
}

// retryLogger routes retryablehttp's leveled logging into zap
type retryLogger struct {
	sugar *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) { l.sugar.Errorw(msg, keysAndValues...) }
func (l retryLogger) Info(msg string, keysAndValues ...any)  { l.sugar.Infow(msg, keysAndValues...) }
func (l retryLogger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l retryLogger) Warn(msg string, keysAndValues ...any)  { l.sugar.Warnw(msg, keysAndValues...) }
