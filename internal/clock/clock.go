package clock

import "time"

// Clock abstracts the wall clock so schedule arithmetic can be tested
// against fixed instants.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}
