// Package clock abstracts wall-clock access so deadline checks and timer
// arming are substitutable in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// System is the production clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }
