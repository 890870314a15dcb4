package clock

import "time"

// FakeClock is a manually advanced Clock for tests. Report-date windows and
// survey watermarks both derive from Now, so tests pin it to a known UTC
// instant and step it with Advance.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward, never backward.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
