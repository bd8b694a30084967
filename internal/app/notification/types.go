package notification

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Type represents a notification type.
type Type int

const (
	TypeInitial Type = iota // Full status sent right after subscribing
	TypeState               // Session phase or playing/idle changed
	TypeTrack               // A track started, stopped or failed
	TypeVolume              // A track's target volume changed
)

// String returns the string representation of the notification type.
func (t Type) String() string {
	switch t {
	case TypeInitial:
		return "initial"
	case TypeState:
		return "state"
	case TypeTrack:
		return "track"
	case TypeVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a type name. Unknown names are an error.
func (t *Type) UnmarshalText(text []byte) error {
	for _, typ := range []Type{TypeInitial, TypeState, TypeTrack, TypeVolume} {
		if typ.String() == string(text) {
			*t = typ
			return nil
		}
	}
	return errors.Newf("unknown notification type: %q", text)
}

// SessionInfo describes the playback session.
type SessionInfo struct {
	SessionID    string `json:"session_id"`
	Phase        string `json:"phase"`
	MixID        string `json:"mix_id,omitempty"`
	MixName      string `json:"mix_name,omitempty"`
	Playing      bool   `json:"playing"`
	ActiveTracks int    `json:"active_tracks"`
	BindingCount int    `json:"binding_count"`
}

// TrackInfo describes one track of the current mix.
type TrackInfo struct {
	TrackID      string  `json:"track_id"`
	Name         string  `json:"name,omitempty"`
	TargetVolume float64 `json:"target_volume"`
	Volume       float64 `json:"volume"`
	Playing      bool    `json:"playing"`
	Event        string  `json:"event,omitempty"` // Controller event that produced this notification
	Error        string  `json:"error,omitempty"`
}

// Notification is sent to every subscriber.
type Notification struct {
	Type        Type         `json:"type"`
	SequenceNo  uint64       `json:"sequence_no"`
	Timestamp   time.Time    `json:"timestamp"`
	SessionInfo *SessionInfo `json:"session_info,omitempty"`
	Track       *TrackInfo   `json:"track,omitempty"`
	Tracks      []TrackInfo  `json:"tracks,omitempty"` // Set for TypeInitial
}
