package mix

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidName   = errors.New("invalid mix name")
	ErrTooFewSounds  = errors.New("too few sounds in mix")
	ErrTooManySounds = errors.New("too many sounds in mix")
)

// Rules limits the name and size of a stored mix.
type Rules struct {
	MaxNameLength int // In characters
	MinSounds     int
	MaxSounds     int // 0 means no limit
}

// Check validates a mix about to be stored and returns its trimmed name.
func (r Rules) Check(name string, sounds int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.Wrap(ErrInvalidName, "name is blank")
	}
	if r.MaxNameLength > 0 && utf8.RuneCountInString(name) > r.MaxNameLength {
		return "", errors.Wrapf(ErrInvalidName, "name longer than %d characters", r.MaxNameLength)
	}

	if sounds == 0 || sounds < r.MinSounds {
		return "", errors.Wrapf(ErrTooFewSounds, "%d sounds, at least %d required", sounds, max(r.MinSounds, 1))
	}
	if r.MaxSounds > 0 && sounds > r.MaxSounds {
		return "", errors.Wrapf(ErrTooManySounds, "%d sounds, at most %d allowed", sounds, r.MaxSounds)
	}
	return name, nil
}
