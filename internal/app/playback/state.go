// Package playback provides multi-track mix playback with fades.
package playback

// State represents the controller state.
type State int

const (
	StateIdle    State = iota // No track sounding
	StatePlaying              // At least one track sounding
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// VolumePolicy controls how SetTrackVolume applies a new target.
type VolumePolicy string

const (
	VolumePolicyFade    VolumePolicy = "fade"    // Ramp to the new target
	VolumePolicyInstant VolumePolicy = "instant" // Jump to the new target
)
