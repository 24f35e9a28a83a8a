package clock

import "github.com/coder/quartz"

// Clock provides time and timer operations that can be mocked for testing.
// Tests use quartz.NewMock to drive timers deterministically.
type Clock = quartz.Clock

// New creates a Clock backed by the system clock
func New() Clock {
	return quartz.NewReal()
}
