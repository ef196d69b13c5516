package engine

import "time"

// Clock abstracts wall-clock reads so tests can pin the current time.
// The location of the returned time determines local-day boundaries for
// the rate limiter's daily caps and local-time matching for triggers.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock in the given location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Now().In(loc)
}
