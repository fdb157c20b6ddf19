// Package clock is the business clock: every deadline computation in the
// service goes through it, pinned to the marketplace's canonical timezone so
// clients receive pre-resolved deadlines instead of raw UTC they would have
// to shift themselves.
package clock

import "time"

// Zone is the canonical business timezone (UTC+3, no DST since 2016).
var Zone = mustLoad("Europe/Istanbul")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Istanbul has been a fixed UTC+3 offset since 2016.
		return time.FixedZone("TRT", 3*60*60)
	}
	return loc
}

// Clock supplies the current business time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in the business timezone.
type System struct{}

func (System) Now() time.Time { return time.Now().In(Zone) }

// Fixed always returns the same instant. Test use only.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now() time.Time { return f.T.In(Zone) }
