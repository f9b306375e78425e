package clock

import "time"

// FakeClock is a manually advanced Clock for tests.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Location() *time.Location {
	return c.now.Location()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
