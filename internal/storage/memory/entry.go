package memory

import "time"

// Entry is a stored value. Entries are never modified after they are
// stored; updates replace the whole entry.
type Entry struct {
	Value []byte
	// ExpireAt is the absolute deadline. The zero time means no expiry.
	ExpireAt time.Time
}

// HasExpiry reports whether the entry carries a deadline.
func (e *Entry) HasExpiry() bool {
	return !e.ExpireAt.IsZero()
}

// Expired reports whether the deadline has been reached at now.
func (e *Entry) Expired(now time.Time) bool {
	return e.HasExpiry() && !now.Before(e.ExpireAt)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}
