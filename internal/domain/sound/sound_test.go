package sound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path     string
		expected Format
	}{
		{path: "rain.mp3", expected: FormatMP3},
		{path: "sounds/Wind.WAV", expected: FormatWAV},
		{path: "/abs/fire.flac", expected: FormatFLAC},
		{path: "birds.ogg", expected: FormatVorbis},
		{path: "birds.oga", expected: FormatVorbis},
		{path: "notes.txt", expected: FormatNone},
		{path: "noext", expected: FormatNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatOf(tt.path))
		})
	}
}

func TestSound_Format(t *testing.T) {
	s := &Sound{ID: "1", Name: "Rain", FilePath: "rain.mp3"}
	assert.Equal(t, FormatMP3, s.Format())
}

func TestNameFromPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{path: "rain.mp3", expected: "Rain"},
		{path: "heavy_rain.mp3", expected: "Heavy Rain"},
		{path: "dir/ocean-waves.flac", expected: "Ocean Waves"},
		{path: "white__noise.wav", expected: "White Noise"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, NameFromPath(tt.path))
		})
	}
}
