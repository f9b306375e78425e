// Package clock provides the single source of "now" for the engine.
//
// Every comparison in the store, ledger and sweeps goes through a Clock
// pinned to one reference timezone, so planner output and sweep checks
// can never drift apart across DST boundaries.
package clock

import "time"

// Clock supplies the current time in a fixed reference location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type realClock struct {
	loc *time.Location
}

// New returns a Clock pinned to the named IANA timezone.
func New(timezone string) (Clock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &realClock{loc: loc}, nil
}

func (c *realClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *realClock) Location() *time.Location {
	return c.loc
}
