package localplayer

import (
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
	"github.com/h2non/filetype"
)

// headerSize covers every signature the filetype matchers look at
const headerSize = 261

// ErrUnknownFormat is returned when no decoder recognises the item
var ErrUnknownFormat = errors.New("unknown audio format")

type format int

const (
	formatUnknown format = iota
	formatWAV
	formatMP3
	formatFLAC
)

// detect picks a decoder from the leading bytes, falling back to the name
// (file path, or media type plus URL path for fetched items)
func detect(header []byte, name string) format {
	if kind, err := filetype.Match(header); err == nil {
		switch kind.Extension {
		case "wav":
			return formatWAV
		case "flac":
			return formatFLAC
		case "mp3":
			return formatMP3
		}
	}
	// MPEG frame sync variants the matcher does not list
	if len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0 {
		return formatMP3
	}

	name = strings.ToLower(name)
	switch {
	case strings.Contains(name, "audio/wav"), strings.Contains(name, "audio/x-wav"), strings.Contains(name, "audio/wave"):
		return formatWAV
	case strings.Contains(name, "audio/flac"), strings.Contains(name, "audio/x-flac"):
		return formatFLAC
	case strings.Contains(name, "audio/mpeg"), strings.Contains(name, "audio/mp3"):
		return formatMP3
	}

	switch path.Ext(name) {
	case ".wav":
		return formatWAV
	case ".flac":
		return formatFLAC
	case ".mp3":
		return formatMP3
	}
	return formatUnknown
}

// decode sniffs src and returns a seekable decoded stream.
// The stream owns src and closes it.
func decode(src io.ReadSeekCloser, name string) (beep.StreamSeekCloser, beep.Format, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(src, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, beep.Format{}, fmt.Errorf("failed to read header: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to rewind item: %w", err)
	}

	var (
		stream beep.StreamSeekCloser
		f      beep.Format
	)
	switch detect(header[:n], name) {
	case formatWAV:
		stream, f, err = wav.Decode(src)
	case formatFLAC:
		stream, f, err = flac.Decode(src)
	case formatMP3:
		stream, f, err = mp3.Decode(src)
	default:
		return nil, beep.Format{}, ErrUnknownFormat
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode item: %w", err)
	}
	return stream, f, nil
}
