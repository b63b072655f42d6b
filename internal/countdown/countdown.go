// Package countdown breaks the time left until a deadline into display units.
package countdown

import "time"

// RefreshInterval is how often a displayed countdown is recomputed.
const RefreshInterval = time.Second

const day = 24 * time.Hour

// Remaining is the time left until a target instant. All fields are zero when IsOver.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	IsOver  bool
}

// Until decomposes target-now into whole days, hours, minutes and seconds.
// Sub-second remainders are dropped. A target at or before now is over.
func Until(target, now time.Time) Remaining {
	diff := target.Sub(now)
	if diff <= 0 {
		return Remaining{IsOver: true}
	}

	return Remaining{
		Days:    int(diff / day),
		Hours:   int(diff % day / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Seconds: int(diff % time.Minute / time.Second),
	}
}

// Duration reassembles the decomposed fields.
func (r Remaining) Duration() time.Duration {
	return time.Duration(r.Days)*day +
		time.Duration(r.Hours)*time.Hour +
		time.Duration(r.Minutes)*time.Minute +
		time.Duration(r.Seconds)*time.Second
}
