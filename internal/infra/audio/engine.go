// Package audio plays looping sound files with beep.
package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/osa030/sleepmix/internal/app/playback"
	"github.com/osa030/sleepmix/internal/domain/sound"
	"github.com/osa030/sleepmix/internal/infra/logger"
)

// ErrUnsupportedFormat is returned for files beep cannot decode.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Config represents engine configuration.
type Config struct {
	SoundDir        string // Base directory of relative resource references
	ResampleQuality int    // beep.Resample quality (1-6)
}

// Engine opens sound files as looping players on one output.
// It implements playback.Loader.
type Engine struct {
	config Config
	out    Output
	log    zerolog.Logger
}

// NewEngine creates an engine playing on out.
func NewEngine(config Config, out Output) *Engine {
	if config.ResampleQuality <= 0 {
		config.ResampleQuality = 4
	}
	return &Engine{
		config: config,
		out:    out,
		log:    logger.Component("audio"),
	}
}

// Open decodes ref and prepares a silent looping player. Playback starts with Play.
func (e *Engine) Open(ctx context.Context, ref string) (playback.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := e.resolve(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", ref)
	}

	decoded, format, err := decode(f, sound.FormatOf(path))
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "failed to decode %s", ref)
	}

	looped, err := beep.Loop2(decoded)
	if err != nil {
		_ = decoded.Close()
		return nil, errors.Wrapf(err, "failed to loop %s", ref)
	}

	var s beep.Streamer = looped
	if rate := e.out.SampleRate(); format.SampleRate != rate {
		s = beep.Resample(e.config.ResampleQuality, format.SampleRate, rate, s)
	}

	e.log.Debug().Msgf("audio: opened: ref=%s rate=%d channels=%d", ref, format.SampleRate, format.NumChannels)
	return newPlayer(ref, e.out, decoded, s), nil
}

// resolve maps a resource reference to a file inside the sound directory.
// Absolute references are used as they are.
func (e *Engine) resolve(ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty resource reference")
	}
	if filepath.IsAbs(ref) {
		return ref, nil
	}

	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Newf("resource reference escapes sound directory: %s", ref)
	}
	return filepath.Join(e.config.SoundDir, clean), nil
}

// Close releases the output.
func (e *Engine) Close() {
	e.out.Close()
}

func decode(f *os.File, format sound.Format) (beep.StreamSeekCloser, beep.Format, error) {
	switch format {
	case sound.FormatMP3:
		return mp3.Decode(f)
	case sound.FormatWAV:
		return wav.Decode(f)
	case sound.FormatFLAC:
		return flac.Decode(f)
	case sound.FormatVorbis:
		return vorbis.Decode(f)
	default:
		return nil, beep.Format{}, errors.Wrapf(ErrUnsupportedFormat, "%s", filepath.Ext(f.Name()))
	}
}
