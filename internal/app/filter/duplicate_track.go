package filter

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/osa030/sleepmix/internal/domain/mix"
)

// DuplicateTrackFilter rejects a track whose sound already appears earlier in the mix.
// Detects:
// - Same catalog sound ID
// - Same resource after path normalisation ("Rain.MP3", "./sounds/../rain.mp3")
// - Same resource with a copy suffix ("rain (1).mp3", "rain_copy.mp3")
// Excludes:
// - Numbered variants ("birds-1.mp3", "birds-2.mp3") which are distinct recordings
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects a sound that is already part of the mix (including copies of the same file)"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// AppliesTo returns which origins this filter applies to.
func (f *DuplicateTrackFilter) AppliesTo(origin Origin) bool {
	// A toggled track was already deduplicated when the mix was loaded
	return origin == OriginMix
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track duplicates an earlier track of m.
func (f *DuplicateTrackFilter) Check(ctx context.Context, t mix.Track, m *mix.Mix) Result {
	ref := normalizeResourceRef(t.ResourceRef)

	for _, other := range m.Tracks {
		if other.ID == t.ID {
			// Only earlier tracks count; the first occurrence is kept
			return Accept()
		}
		if t.SoundID != "" && other.SoundID == t.SoundID {
			return Reject("duplicate_track")
		}
		if ref != "" && normalizeResourceRef(other.ResourceRef) == ref {
			return Reject("duplicate_track")
		}
	}

	return Accept()
}

var (
	copySuffixPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(\d+\)$`),     // "rain (1)"
		regexp.MustCompile(`[\s_-]*copy\d*$`), // "rain_copy", "rain copy2"
	}
	separatorPattern = regexp.MustCompile(`[\s_-]+`)
)

// normalizeResourceRef reduces a resource path to a comparable sound key.
func normalizeResourceRef(ref string) string {
	if ref == "" {
		return ""
	}

	cleaned := filepath.Clean(strings.ToLower(strings.TrimSpace(ref)))
	ext := filepath.Ext(cleaned)
	base := strings.TrimSuffix(filepath.Base(cleaned), ext)

	for _, pattern := range copySuffixPatterns {
		base = pattern.ReplaceAllString(base, "")
	}
	base = separatorPattern.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	return filepath.Join(filepath.Dir(cleaned), base)
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
