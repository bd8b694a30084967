// Package mix provides the Mix and Track domain entities.
package mix

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrMixNotFound   = errors.New("mix not found")
	ErrTrackNotFound = errors.New("track not found in mix")
)

// Track represents one looping sound within a mix.
type Track struct {
	ID           string  // Mix sound ID, unique within a mix
	MixID        string  // Owning mix
	SoundID      string  // Catalog sound ID
	Name         string  // Sound display name
	ResourceRef  string  // Audio resource reference (resolved by the audio loader)
	TargetVolume float64 // Target volume (0.0-1.0)
}

// Mix represents a named collection of tracks played together.
// The playback core treats a Mix as an immutable snapshot.
type Mix struct {
	ID        string
	Name      string
	OwnerID   string
	Tracks    []Track
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrackIDs returns all track IDs in the mix.
func (m *Mix) TrackIDs() []string {
	ids := make([]string, len(m.Tracks))
	for i, t := range m.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// Track returns the track with the given ID.
func (m *Mix) Track(id string) (Track, bool) {
	for _, t := range m.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// WithVolume returns a copy of the track with the target volume replaced (clamped).
func (t Track) WithVolume(v float64) Track {
	t.TargetVolume = ClampVolume(v)
	return t
}

// ClampVolume limits v to [0,1]. NaN maps to 0.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}
