package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/sleepmix/internal/domain/mix"
	"github.com/osa030/sleepmix/internal/domain/sound"
)

func TestAudioFormatFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		formats      []sound.Format
		ref          string
		wantAccepted bool
	}{
		{name: "mp3 with defaults", ref: "rain.mp3", wantAccepted: true},
		{name: "ogg with defaults", ref: "sounds/birds.ogg", wantAccepted: true},
		{name: "unsupported extension", ref: "rain.aiff", wantAccepted: false},
		{name: "no extension", ref: "rain", wantAccepted: false},
		{name: "allowed subset", formats: []sound.Format{sound.FormatWAV}, ref: "wind.wav", wantAccepted: true},
		{name: "outside allowed subset", formats: []sound.Format{sound.FormatWAV}, ref: "wind.mp3", wantAccepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewAudioFormatFilter(tt.formats...)
			trk := mix.Track{ID: "1", ResourceRef: tt.ref}

			result := f.Check(context.Background(), trk, &mix.Mix{Tracks: []mix.Track{trk}})

			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "unsupported_format", result.Code)
			}
		})
	}
}

func TestAudioFormatFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
		want     []sound.Format
	}{
		{
			name:     "Empty settings (all formats)",
			settings: map[string]any{},
			want:     []sound.Format{sound.FormatMP3, sound.FormatWAV, sound.FormatFLAC, sound.FormatVorbis},
		},
		{
			name:     "Subset",
			settings: map[string]any{"formats": []any{"wav", "flac"}},
			want:     []sound.Format{sound.FormatWAV, sound.FormatFLAC},
		},
		{
			name:     "Unknown format",
			settings: map[string]any{"formats": []any{"aiff"}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewAudioFormatFilter()
			err := f.ValidateConfig(tt.settings)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.formats)
		})
	}
}

func TestFilters_AppliesTo(t *testing.T) {
	tests := []struct {
		filter     Filter
		wantMix    bool
		wantToggle bool
	}{
		{filter: NewAudioFormatFilter(), wantMix: true, wantToggle: true},
		{filter: NewDuplicateTrackFilter(), wantMix: true, wantToggle: false},
		{filter: NewTrackLimitFilter(), wantMix: true, wantToggle: false},
	}

	for _, tt := range tests {
		t.Run(tt.filter.Name(), func(t *testing.T) {
			assert.Equal(t, tt.wantMix, tt.filter.AppliesTo(OriginMix))
			assert.Equal(t, tt.wantToggle, tt.filter.AppliesTo(OriginToggle))
		})
	}
}

func TestRegistry(t *testing.T) {
	assert.Equal(t,
		[]string{"audio_format_filter", "duplicate_track_filter", "track_limit_filter"},
		RegisteredNames())

	for _, name := range RegisteredNames() {
		f, err := New(name, map[string]any{})
		require.NoError(t, err, name)
		assert.Equal(t, name, f.Name())
		assert.NotEmpty(t, f.Description())
		assert.NotEmpty(t, f.ReturnCodes())
	}

	_, err := New("no_such_filter", nil)
	assert.Error(t, err)

	_, err = New("track_limit_filter", map[string]any{"min_tracks": 6, "max_tracks": 5})
	assert.Error(t, err)
}

func TestChain_Partition(t *testing.T) {
	chain := NewChain()
	chain.Add(NewAudioFormatFilter())
	chain.Add(NewDuplicateTrackFilter())

	m := &mix.Mix{
		ID: "mix-1",
		Tracks: []mix.Track{
			{ID: "1", SoundID: "s-rain", ResourceRef: "rain.mp3"},
			{ID: "2", SoundID: "s-notes", ResourceRef: "notes.txt"},
			{ID: "3", SoundID: "s-rain", ResourceRef: "rain.mp3"},
			{ID: "4", SoundID: "s-wind", ResourceRef: "wind.wav"},
		},
	}

	accepted, rejected := chain.Partition(context.Background(), m, OriginMix)

	require.Len(t, accepted, 2)
	assert.Equal(t, "1", accepted[0].ID)
	assert.Equal(t, "4", accepted[1].ID)

	require.Len(t, rejected, 2)
	assert.Equal(t, Rejection{Track: m.Tracks[1], Filter: "audio_format_filter", Code: "unsupported_format"}, rejected[0])
	assert.Equal(t, Rejection{Track: m.Tracks[2], Filter: "duplicate_track_filter", Code: "duplicate_track"}, rejected[1])
}

func TestChain_ExecuteSkipsFiltersNotApplying(t *testing.T) {
	chain := NewChain()
	chain.Add(NewDuplicateTrackFilter())

	m := &mix.Mix{Tracks: []mix.Track{
		{ID: "1", SoundID: "s-rain"},
		{ID: "2", SoundID: "s-rain"},
	}}

	result, name := chain.Execute(context.Background(), m.Tracks[1], m, OriginToggle)
	assert.True(t, result.Accepted)
	assert.Empty(t, name)

	result, name = chain.Execute(context.Background(), m.Tracks[1], m, OriginMix)
	assert.False(t, result.Accepted)
	assert.Equal(t, "duplicate_track_filter", name)
}
