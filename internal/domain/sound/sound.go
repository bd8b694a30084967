// Package sound provides the Sound catalog entity.
package sound

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrSoundNotFound is returned when a sound does not exist in the catalog.
var ErrSoundNotFound = errors.New("sound not found")

// Format represents an audio container format.
type Format string

const (
	FormatMP3    Format = "mp3"
	FormatWAV    Format = "wav"
	FormatFLAC   Format = "flac"
	FormatVorbis Format = "ogg"
	FormatNone   Format = ""
)

// Sound represents an ambient sound available in the catalog.
type Sound struct {
	ID       string // Catalog ID
	Name     string // Display name ("Rain", "Wind", ...)
	FilePath string // Path relative to the sound directory (or absolute)
	Icon     string // Icon name for clients
}

// Format returns the audio format inferred from the file extension.
func (s *Sound) Format() Format {
	return FormatOf(s.FilePath)
}

// FormatOf infers the audio format from a path's extension.
// Returns FormatNone for unsupported extensions.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return FormatMP3
	case ".wav", ".wave":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".ogg", ".oga":
		return FormatVorbis
	default:
		return FormatNone
	}
}

// NameFromPath derives a display name from a file name ("heavy_rain.mp3" -> "Heavy Rain").
func NameFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
