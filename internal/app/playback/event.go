package playback

// EventType represents a controller event type.
type EventType int

const (
	EventTrackStarted  EventType = iota // Track started sounding (fade-in scheduled)
	EventTrackFailed                    // Track could not be started
	EventTrackStopped                   // Track stopped (requested or platform failure)
	EventVolumeChanged                  // Track target volume changed
	EventStateChanged                   // Controller state changed (idle/playing)
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackFailed:
		return "track_failed"
	case EventTrackStopped:
		return "track_stopped"
	case EventVolumeChanged:
		return "volume_changed"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event represents a controller event.
type Event struct {
	Type    EventType
	TrackID string  // Empty for EventStateChanged
	Volume  float64 // Target volume for track events
	State   State   // Controller state after the event
	Err     error   // Failure cause (EventTrackFailed, EventTrackStopped on platform error)
}

// SlotEventType represents a slot lifecycle event type.
type SlotEventType int

const (
	SlotStarted   SlotEventType = iota // Player started looping
	SlotFailed                         // Player reported an error
	SlotCompleted                      // Player finished on its own
)

// String returns the string representation of the slot event type.
func (e SlotEventType) String() string {
	switch e {
	case SlotStarted:
		return "started"
	case SlotFailed:
		return "failed"
	case SlotCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// SlotEvent represents a slot lifecycle event.
type SlotEvent struct {
	Type    SlotEventType
	TrackID string
	Err     error // Set for SlotFailed
}
