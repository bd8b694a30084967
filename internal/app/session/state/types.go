// Package state provides session state management.
package state

// Phase represents the session lifecycle phase.
type Phase int

const (
	PhaseIdle       Phase = iota // No mix playing
	PhasePlaying                 // A mix is playing
	PhaseStopping                // Fading out, waiting for every slot to be released
	PhaseTerminated              // Session has ended
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseStopping:
		return "stopping"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// HostSignal represents the indication raised to the host process.
type HostSignal int

const (
	SignalBackground HostSignal = iota // Nothing audible, host may tear down
	SignalForeground                   // Audio playing, host must stay alive
)

// String returns the string representation of the host signal.
func (s HostSignal) String() string {
	switch s {
	case SignalBackground:
		return "background"
	case SignalForeground:
		return "foreground"
	default:
		return "unknown"
	}
}
