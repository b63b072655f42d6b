package components

import (
	"time"
)

const displayLayout = "Jan 2, 2006 15:04 UTC"

// ISOTime is the machine readable form the browser localizes.
func ISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DisplayTime is shown until the browser swaps in local time.
func DisplayTime(t time.Time) string {
	return t.UTC().Format(displayLayout)
}
